package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/i474232898/solar-report/internal/irradiance"
	"github.com/i474232898/solar-report/internal/site"
)

// BuildWorkbook renders the charted series as an XLSX with one sheet per dataset.
func BuildWorkbook(s site.Site, charts Charts) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	actualsSheet := "actuals"
	forecastSheet := "forecast"
	if err := f.SetSheetName("Sheet1", actualsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(forecastSheet); err != nil {
		return nil, err
	}

	writeSeries(f, actualsSheet, s, charts.Actuals)
	writeSeries(f, forecastSheet, s, charts.Forecast)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSeries(f *excelize.File, sheet string, s site.Site, series irradiance.Series) {
	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Period End (UTC%+d)", s.Timezone))
	_ = f.SetCellValue(sheet, "B1", "GHI (W/m^2)")
	for i, p := range series {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), p.Time.Format("2006-01-02 15:04"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), p.GHI)
	}
}
