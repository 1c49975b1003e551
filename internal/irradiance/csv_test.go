package irradiance

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forecastFixture = `{"forecasts":[
  {"period_end":"2020-10-20T01:00:00.0000000Z","ghi":561,"ghi90":601,"ghi10":400.5,"period":"PT30M"},
  {"period_end":"2020-10-20T01:30:00.0000000Z","ghi":580.25,"ghi90":620,"ghi10":410,"period":"PT30M"},
  {"period_end":"2020-10-20T02:00:00.0000000Z","ghi":0,"ghi90":0,"ghi10":0,"period":"PT30M"}
]}`

const actualsFixture = `{"estimated_actuals":[
  {"period_end":"2020-10-19T23:30:00.0000000Z","ghi":12,"period":"PT30M"},
  {"period_end":"2020-10-19T23:00:00.0000000Z","ghi":3.5,"period":"PT30M"}
]}`

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestConvertForecastsFileWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "forecasts.json")
	out := filepath.Join(dir, "forecasts.csv")
	require.NoError(t, os.WriteFile(in, []byte(forecastFixture), 0o644))

	require.NoError(t, ConvertForecastsFile(in, out))

	rows := readRows(t, out)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Period End", "GHI", "GHI 90", "GHI 10", "Period"}, rows[0])
	assert.Equal(t, []string{"2020-10-20T01:00:00.0000000Z", "561", "601", "400.5", "PT30M"}, rows[1])
	assert.Equal(t, []string{"2020-10-20T01:30:00.0000000Z", "580.25", "620", "410", "PT30M"}, rows[2])
	assert.Equal(t, []string{"2020-10-20T02:00:00.0000000Z", "0", "0", "0", "PT30M"}, rows[3])
}

func TestConvertActualsFileWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "actuals.json")
	out := filepath.Join(dir, "actuals.csv")
	require.NoError(t, os.WriteFile(in, []byte(actualsFixture), 0o644))

	require.NoError(t, ConvertActualsFile(in, out))

	rows := readRows(t, out)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Period End", "GHI", "Period"}, rows[0])
	assert.Equal(t, []string{"2020-10-19T23:30:00.0000000Z", "12", "PT30M"}, rows[1])
	assert.Equal(t, []string{"2020-10-19T23:00:00.0000000Z", "3.5", "PT30M"}, rows[2])
}

func TestForecastCSVReadsBackWhatWasWritten(t *testing.T) {
	in := []Forecast{
		{PeriodEnd: "2020-10-20T01:00:00Z", GHI: 1.5, GHI90: 2, GHI10: 1, Period: "PT30M"},
		{PeriodEnd: "2020-10-20T01:30:00Z", GHI: 3, GHI90: 4, GHI10: 2, Period: "PT30M"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteForecastsCSV(&buf, in))

	got, err := ReadForecastsCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestReadActualsCSVLocatesColumnsByName(t *testing.T) {
	data := "Period,GHI,Period End\nPT30M,42,2020-10-20 01:00:00\n"
	got, err := ReadActualsCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Actual{PeriodEnd: "2020-10-20 01:00:00", GHI: 42, Period: "PT30M"}, got[0])
}

func TestReadCSVRejectsMissingColumnsAndBadNumbers(t *testing.T) {
	_, err := ReadActualsCSV(strings.NewReader("Period End,Period\nx,y\n"))
	assert.ErrorIs(t, err, errMissingColumn)

	_, err = ReadActualsCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadForecastsCSV(strings.NewReader("Period End,GHI,GHI 90,GHI 10,Period\n2020-10-20T01:00:00Z,abc,1,1,PT30M\n"))
	assert.Error(t, err)
}
