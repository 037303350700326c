package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/coreybb/consumo/reshape"
)

// RenderText writes the KPI block followed by the per-device and per-period tables.
func RenderText(w io.Writer, s Summary) error {
	if _, err := fmt.Fprintf(w, "Consumo em %s: %s leituras", s.Date, humanize.Comma(int64(s.Rows))); err != nil {
		return err
	}
	if s.Dropped > 0 {
		fmt.Fprintf(w, " (%s descartadas)", humanize.Comma(int64(s.Dropped)))
	}
	fmt.Fprintln(w)

	if s.Empty() {
		_, err := fmt.Fprintln(w, "Nenhum dado encontrado.")
		return err
	}

	kpis := newTable(w, "Indicador", "Valor")
	kpis.Append([]string{"Consumo Total (Geral)", kWh(s.Total)})
	kpis.Append([]string{"Consumo Médio Horário (Geral)", kWh(s.Mean)})
	kpis.Append([]string{"Aparelho de Maior Consumo Total", s.TopDevice})
	if s.Max != nil {
		kpis.Append([]string{"Pico Máximo", peakText(s.Max)})
	}
	if s.Min != nil {
		kpis.Append([]string{"Pico Mínimo", peakText(s.Min)})
	}
	kpis.Render()

	devices := newTable(w, "Aparelho", "Consumo Total")
	for _, dt := range s.DeviceTotals {
		devices.Append([]string{dt.Device, kWh(dt.Total)})
	}
	devices.Render()

	// One row per period in day order, one column per device.
	periods := newTable(w, append([]string{"Período"}, s.Devices...)...)
	for _, p := range reshape.Periods {
		row := []string{p.Label()}
		for _, device := range s.Devices {
			if mean, ok := s.PeriodMean(p, device); ok {
				row = append(row, kWh(mean))
			} else {
				row = append(row, "-")
			}
		}
		periods.Append(row)
	}
	periods.Render()
	return nil
}

// RenderHistogram writes the consumption distribution of one device.
func RenderHistogram(w io.Writer, device string, bins []reshape.Bin) error {
	if _, err := fmt.Fprintf(w, "Distribuição horária: %s\n", device); err != nil {
		return err
	}
	if len(bins) == 0 {
		_, err := fmt.Fprintln(w, "Nenhum dado encontrado.")
		return err
	}
	table := newTable(w, "Faixa (kWh)", "Horas")
	for _, b := range bins {
		table.Append([]string{fmt.Sprintf("%.3f - %.3f", b.Lower, b.Upper), strconv.Itoa(b.Count)})
	}
	table.Render()
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	return table
}

func peakText(p *Peak) string {
	return fmt.Sprintf("%s às %s (%s)", kWh(p.Consumption), p.Hour, p.Device)
}
