package irradiance

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSV headers written for each dataset. Column order is part of the file format.
var (
	ForecastHeader = []string{"Period End", "GHI", "GHI 90", "GHI 10", "Period"}
	ActualsHeader  = []string{"Period End", "GHI", "Period"}
)

var errMissingColumn = errors.New("missing csv column")

// WriteForecastsCSV writes the header and one row per forecast element.
func WriteForecastsCSV(w io.Writer, recs []Forecast) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ForecastHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{r.PeriodEnd, formatFloat(r.GHI), formatFloat(r.GHI90), formatFloat(r.GHI10), r.Period}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteActualsCSV writes the header and one row per estimated actual.
func WriteActualsCSV(w io.Writer, recs []Actual) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ActualsHeader); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write([]string{r.PeriodEnd, formatFloat(r.GHI), r.Period}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadForecastsCSV parses a forecast file. Columns are located by header name.
func ReadForecastsCSV(r io.Reader) ([]Forecast, error) {
	rows, cols, err := readTable(r, ForecastHeader)
	if err != nil {
		return nil, err
	}
	out := make([]Forecast, 0, len(rows))
	for i, row := range rows {
		ghi, err1 := parseFloat(row[cols["GHI"]])
		ghi90, err2 := parseFloat(row[cols["GHI 90"]])
		ghi10, err3 := parseFloat(row[cols["GHI 10"]])
		if err := errors.Join(err1, err2, err3); err != nil {
			return nil, fmt.Errorf("forecast row %d: %w", i+2, err)
		}
		out = append(out, Forecast{
			PeriodEnd: row[cols["Period End"]],
			GHI:       ghi,
			GHI90:     ghi90,
			GHI10:     ghi10,
			Period:    row[cols["Period"]],
		})
	}
	return out, nil
}

// ReadActualsCSV parses an actuals file.
func ReadActualsCSV(r io.Reader) ([]Actual, error) {
	rows, cols, err := readTable(r, ActualsHeader)
	if err != nil {
		return nil, err
	}
	out := make([]Actual, 0, len(rows))
	for i, row := range rows {
		ghi, err := parseFloat(row[cols["GHI"]])
		if err != nil {
			return nil, fmt.Errorf("actuals row %d: %w", i+2, err)
		}
		out = append(out, Actual{
			PeriodEnd: row[cols["Period End"]],
			GHI:       ghi,
			Period:    row[cols["Period"]],
		})
	}
	return out, nil
}

// ConvertForecastsFile turns a saved forecasts API response into a CSV file.
func ConvertForecastsFile(jsonPath, csvPath string) error {
	var payload ForecastResponse
	if err := decodeFile(jsonPath, &payload); err != nil {
		return err
	}
	return writeFile(csvPath, func(w io.Writer) error {
		return WriteForecastsCSV(w, payload.Forecasts)
	})
}

// ConvertActualsFile turns a saved estimated actuals API response into a CSV file.
func ConvertActualsFile(jsonPath, csvPath string) error {
	var payload ActualsResponse
	if err := decodeFile(jsonPath, &payload); err != nil {
		return err
	}
	return writeFile(csvPath, func(w io.Writer) error {
		return WriteActualsCSV(w, payload.EstimatedActuals)
	})
}

func readTable(r io.Reader, required []string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: empty file", errMissingColumn)
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("%w: %q", errMissingColumn, name)
		}
	}

	rows := records[1:]
	for i, row := range rows {
		if len(row) < len(records[0]) {
			return nil, nil, fmt.Errorf("row %d: expected %d fields, got %d", i+2, len(records[0]), len(row))
		}
	}
	return rows, cols, nil
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
