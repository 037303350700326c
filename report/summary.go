// Package report turns a reshaped table into the dashboard feed and renders
// it as terminal tables or an XLSX workbook.
package report

import (
	"fmt"

	"github.com/coreybb/consumo/reshape"
)

// Peak is the hour and device of an extreme reading.
type Peak struct {
	Hour        string
	Device      string
	Consumption float64
}

type HourlyPoint struct {
	Hour        string
	Device      string
	Consumption float64
}

// Summary is everything the dashboard shows for one day.
type Summary struct {
	Date         string
	Rows         int
	Dropped      int
	Total        float64
	Mean         float64
	TopDevice    string
	Devices      []string
	Max          *Peak
	Min          *Peak
	DeviceTotals []reshape.DeviceTotal
	PeriodMeans  []reshape.PeriodMean
	Hourly       []HourlyPoint
}

func Build(date string, t *reshape.Table) Summary {
	s := Summary{
		Date:         date,
		Rows:         t.Len(),
		Dropped:      t.Dropped,
		Total:        t.Total(),
		Devices:      t.Devices(),
		Mean:         t.Mean(),
		DeviceTotals: t.DeviceTotals(),
		PeriodMeans:  t.PeriodMeans(),
		Hourly:       make([]HourlyPoint, 0, t.Len()),
	}
	s.TopDevice, _ = t.TopDevice()
	if r, ok := t.Max(); ok {
		s.Max = peakOf(r)
	}
	if r, ok := t.Min(); ok {
		s.Min = peakOf(r)
	}
	for _, r := range t.Rows {
		s.Hourly = append(s.Hourly, HourlyPoint{Hour: r.Hour.String(), Device: r.Device, Consumption: r.Consumption})
	}
	return s
}

// PeriodMean looks up the mean consumption of device during p.
func (s Summary) PeriodMean(p reshape.Period, device string) (float64, bool) {
	for _, pm := range s.PeriodMeans {
		if pm.Period == p && pm.Device == device {
			return pm.Mean, true
		}
	}
	return 0, false
}

func (s Summary) Empty() bool {
	return s.Rows == 0
}

func peakOf(r reshape.Row) *Peak {
	return &Peak{Hour: r.Hour.String(), Device: r.Device, Consumption: r.Consumption}
}

func kWh(v float64) string {
	return fmt.Sprintf("%.3f kWh", v)
}
