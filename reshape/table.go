// Package reshape turns raw API rows into a typed, time-ordered table and
// computes the dashboard aggregates over it.
package reshape

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goccy/go-json"

	"github.com/coreybb/consumo/client"
	"github.com/coreybb/consumo/models"
)

const hourLayout = models.HourLayout

// ErrMalformedTable is returned when a row's hour or date cannot be parsed.
var ErrMalformedTable = errors.New("malformed table")

// Row is one reading after type conversion.
type Row struct {
	Date        time.Time // UTC midnight
	Hour        TimeOfDay
	Device      string
	Consumption float64
	Period      Period
}

// Table holds rows sorted by time of day. Dropped counts input rows whose
// consumption was not numeric.
type Table struct {
	Rows    []Row
	Dropped int
}

// Build converts raw rows into a Table. Rows with non-numeric consumption are
// dropped and counted; an unparsable hour or date fails the whole table.
func Build(raw []client.RawReading) (*Table, error) {
	t := &Table{Rows: make([]Row, 0, len(raw))}

	for i, r := range raw {
		hour, err := ParseTimeOfDay(strings.TrimSpace(r.Hour))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: hour %q: %w", ErrMalformedTable, i, r.Hour, err)
		}
		date, err := parseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: date %q: %w", ErrMalformedTable, i, r.Date, err)
		}

		value, ok := coerce(r.Consumption)
		if !ok {
			t.Dropped++
			continue
		}
		t.Rows = append(t.Rows, Row{
			Date:        date,
			Hour:        hour,
			Device:      r.Device,
			Consumption: value,
			Period:      PeriodOf(hour),
		})
	}

	slices.SortStableFunc(t.Rows, func(a, b Row) int {
		switch {
		case a.Hour < b.Hour:
			return -1
		case a.Hour > b.Hour:
			return 1
		}
		return 0
	})
	return t, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// coerce converts a wire value to a finite float64.
func coerce(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// ForDevice returns the rows of one device, still in time order.
func (t *Table) ForDevice(device string) *Table {
	out := &Table{}
	for _, r := range t.Rows {
		if r.Device == device {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Devices lists the distinct devices, sorted by name.
func (t *Table) Devices() []string {
	seen := make(map[string]struct{})
	var devices []string
	for _, r := range t.Rows {
		if _, ok := seen[r.Device]; ok {
			continue
		}
		seen[r.Device] = struct{}{}
		devices = append(devices, r.Device)
	}
	slices.Sort(devices)
	return devices
}
