package reshape

import (
	"slices"
	"strings"
)

const MaxHistogramBins = 10

type DeviceTotal struct {
	Device string
	Total  float64
}

type PeriodMean struct {
	Period Period
	Device string
	Mean   float64
	Count  int
}

// Bin is one histogram bucket covering [Lower, Upper). The last bin also
// includes Upper.
type Bin struct {
	Lower float64
	Upper float64
	Count int
}

func (t *Table) Total() float64 {
	var sum float64
	for _, r := range t.Rows {
		sum += r.Consumption
	}
	return sum
}

// Mean is the average hourly consumption, 0 for an empty table.
func (t *Table) Mean() float64 {
	if len(t.Rows) == 0 {
		return 0
	}
	return t.Total() / float64(len(t.Rows))
}

// DeviceTotals sums consumption per device, sorted by device name.
func (t *Table) DeviceTotals() []DeviceTotal {
	sums := make(map[string]float64)
	for _, r := range t.Rows {
		sums[r.Device] += r.Consumption
	}
	out := make([]DeviceTotal, 0, len(sums))
	for device, total := range sums {
		out = append(out, DeviceTotal{Device: device, Total: total})
	}
	slices.SortFunc(out, func(a, b DeviceTotal) int { return strings.Compare(a.Device, b.Device) })
	return out
}

// TopDevice is the device with the highest total. Ties go to the
// alphabetically first device.
func (t *Table) TopDevice() (string, bool) {
	totals := t.DeviceTotals()
	if len(totals) == 0 {
		return "", false
	}
	best := totals[0]
	for _, dt := range totals[1:] {
		if dt.Total > best.Total {
			best = dt
		}
	}
	return best.Device, true
}

// PeriodMeans averages consumption per (period, device), ordered by period
// then device.
func (t *Table) PeriodMeans() []PeriodMean {
	type key struct {
		period Period
		device string
	}
	sums := make(map[key]float64)
	counts := make(map[key]int)
	for _, r := range t.Rows {
		k := key{r.Period, r.Device}
		sums[k] += r.Consumption
		counts[k]++
	}

	out := make([]PeriodMean, 0, len(sums))
	for k, sum := range sums {
		out = append(out, PeriodMean{
			Period: k.period,
			Device: k.device,
			Mean:   sum / float64(counts[k]),
			Count:  counts[k],
		})
	}
	slices.SortFunc(out, func(a, b PeriodMean) int {
		if a.Period != b.Period {
			return int(a.Period) - int(b.Period)
		}
		return strings.Compare(a.Device, b.Device)
	})
	return out
}

// Max is the first row with the highest consumption.
func (t *Table) Max() (Row, bool) {
	return t.extreme(func(a, b float64) bool { return a > b })
}

// Min is the first row with the lowest consumption.
func (t *Table) Min() (Row, bool) {
	return t.extreme(func(a, b float64) bool { return a < b })
}

func (t *Table) extreme(better func(a, b float64) bool) (Row, bool) {
	if len(t.Rows) == 0 {
		return Row{}, false
	}
	best := t.Rows[0]
	for _, r := range t.Rows[1:] {
		if better(r.Consumption, best.Consumption) {
			best = r
		}
	}
	return best, true
}

// Histogram splits [min, max] consumption into equal-width bins. bins is
// clamped to [1, MaxHistogramBins]; a table whose values are all equal yields
// a single bin.
func (t *Table) Histogram(bins int) []Bin {
	if len(t.Rows) == 0 {
		return nil
	}
	if bins <= 0 || bins > MaxHistogramBins {
		bins = MaxHistogramBins
	}

	lo, _ := t.Min()
	hi, _ := t.Max()
	minV, maxV := lo.Consumption, hi.Consumption
	if minV == maxV {
		return []Bin{{Lower: minV, Upper: maxV, Count: len(t.Rows)}}
	}

	width := (maxV - minV) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = minV + float64(i)*width
		out[i].Upper = minV + float64(i+1)*width
	}
	out[bins-1].Upper = maxV

	for _, r := range t.Rows {
		i := int((r.Consumption - minV) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}
