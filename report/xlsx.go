package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary = "Resumo"
	sheetHourly  = "Horario"
	sheetDevices = "Aparelhos"
	sheetPeriods = "Periodos"
)

// WriteXLSX writes the summary as a workbook with one sheet per dashboard view.
func WriteXLSX(w io.Writer, s Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	for _, name := range []string{sheetHourly, sheetDevices, sheetPeriods} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	_ = f.SetCellValue(sheetSummary, "A1", "Dashboard de Consumo de Energia")
	_ = f.SetCellValue(sheetSummary, "A3", "Data")
	_ = f.SetCellValue(sheetSummary, "B3", s.Date)
	_ = f.SetCellValue(sheetSummary, "A4", "Leituras")
	_ = f.SetCellValue(sheetSummary, "B4", s.Rows)
	_ = f.SetCellValue(sheetSummary, "A5", "Descartadas")
	_ = f.SetCellValue(sheetSummary, "B5", s.Dropped)
	_ = f.SetCellValue(sheetSummary, "A6", "Consumo Total (kWh)")
	_ = f.SetCellValue(sheetSummary, "B6", s.Total)
	_ = f.SetCellValue(sheetSummary, "A7", "Consumo Médio Horário (kWh)")
	_ = f.SetCellValue(sheetSummary, "B7", s.Mean)
	_ = f.SetCellValue(sheetSummary, "A8", "Aparelho de Maior Consumo")
	_ = f.SetCellValue(sheetSummary, "B8", s.TopDevice)
	if s.Max != nil {
		_ = f.SetCellValue(sheetSummary, "A9", "Pico Máximo")
		_ = f.SetCellValue(sheetSummary, "B9", s.Max.Consumption)
		_ = f.SetCellValue(sheetSummary, "C9", s.Max.Hour)
		_ = f.SetCellValue(sheetSummary, "D9", s.Max.Device)
	}
	if s.Min != nil {
		_ = f.SetCellValue(sheetSummary, "A10", "Pico Mínimo")
		_ = f.SetCellValue(sheetSummary, "B10", s.Min.Consumption)
		_ = f.SetCellValue(sheetSummary, "C10", s.Min.Hour)
		_ = f.SetCellValue(sheetSummary, "D10", s.Min.Device)
	}

	_ = f.SetCellValue(sheetHourly, "A1", "Hora")
	_ = f.SetCellValue(sheetHourly, "B1", "Aparelho")
	_ = f.SetCellValue(sheetHourly, "C1", "Consumo (kWh)")
	for i, p := range s.Hourly {
		row := i + 2
		_ = f.SetCellValue(sheetHourly, fmt.Sprintf("A%d", row), p.Hour)
		_ = f.SetCellValue(sheetHourly, fmt.Sprintf("B%d", row), p.Device)
		_ = f.SetCellValue(sheetHourly, fmt.Sprintf("C%d", row), p.Consumption)
	}

	_ = f.SetCellValue(sheetDevices, "A1", "Aparelho")
	_ = f.SetCellValue(sheetDevices, "B1", "Consumo Total (kWh)")
	for i, dt := range s.DeviceTotals {
		row := i + 2
		_ = f.SetCellValue(sheetDevices, fmt.Sprintf("A%d", row), dt.Device)
		_ = f.SetCellValue(sheetDevices, fmt.Sprintf("B%d", row), dt.Total)
	}

	_ = f.SetCellValue(sheetPeriods, "A1", "Período")
	_ = f.SetCellValue(sheetPeriods, "B1", "Aparelho")
	_ = f.SetCellValue(sheetPeriods, "C1", "Consumo Médio (kWh)")
	_ = f.SetCellValue(sheetPeriods, "D1", "Leituras")
	for i, pm := range s.PeriodMeans {
		row := i + 2
		_ = f.SetCellValue(sheetPeriods, fmt.Sprintf("A%d", row), pm.Period.Label())
		_ = f.SetCellValue(sheetPeriods, fmt.Sprintf("B%d", row), pm.Device)
		_ = f.SetCellValue(sheetPeriods, fmt.Sprintf("C%d", row), pm.Mean)
		_ = f.SetCellValue(sheetPeriods, fmt.Sprintf("D%d", row), pm.Count)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
