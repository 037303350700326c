package models

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"
)

const (
	HoursPerDay          = 24
	MinConsumption       = 0.05
	MaxConsumption       = 0.3
	ConsumptionPrecision = 3
	MaxQueryResults      = 1000
	HourLayout           = "15:04"
)

// Document field names, shared by every store backend.
const (
	FieldDate        = "date"
	FieldHour        = "hour"
	FieldDevice      = "device"
	FieldConsumption = "consumption"
	FieldBatchID     = "batch_id"
)

// ErrMalformedRecord marks a stored document that cannot be mapped to a Reading.
var ErrMalformedRecord = errors.New("malformed record")

// Reading is one hourly consumption data point (kWh) for one device on one date.
type Reading struct {
	Date        string  `json:"date" bson:"date"`
	Hour        string  `json:"hour" bson:"hour"`
	Device      string  `json:"device" bson:"device"`
	Consumption float64 `json:"consumption" bson:"consumption"`
}

// StoredReading is the persisted document shape. Every reading written by the
// same ingestion request shares a BatchID.
type StoredReading struct {
	Reading `bson:",inline"`
	BatchID string `json:"batch_id" bson:"batch_id"`
}

// Document flattens the stored reading into the generic document map used by
// the SQL backends.
func (s StoredReading) Document() map[string]any {
	return map[string]any{
		FieldDate:        s.Date,
		FieldHour:        s.Hour,
		FieldDevice:      s.Device,
		FieldConsumption: s.Consumption,
		FieldBatchID:     s.BatchID,
	}
}

// ReadingFilter selects stored readings. Empty fields match any value.
type ReadingFilter struct {
	Date   string
	Device string
}

func (f ReadingFilter) IsEmpty() bool {
	return f.Date == "" && f.Device == ""
}

// Matches reports whether r satisfies the filter.
func (f ReadingFilter) Matches(r Reading) bool {
	if f.Date != "" && r.Date != f.Date {
		return false
	}
	if f.Device != "" && r.Device != f.Device {
		return false
	}
	return true
}

// IngestRequest is the body of POST /consumo. The legacy "data" and
// "aparelho" keys are accepted as aliases.
type IngestRequest struct {
	Date   string `json:"date" validate:"required"`
	Device string `json:"device" validate:"required"`
}

func (r *IngestRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		Date     string `json:"date"`
		Device   string `json:"device"`
		Data     string `json:"data"`
		Aparelho string `json:"aparelho"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Date = strings.TrimSpace(firstNonEmpty(raw.Date, raw.Data))
	r.Device = strings.TrimSpace(firstNonEmpty(raw.Device, raw.Aparelho))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// DecodeReading maps a raw stored document onto a Reading. Any missing or
// mistyped field yields an error wrapping ErrMalformedRecord. Empty strings
// are kept as stored.
func DecodeReading(doc map[string]any) (Reading, error) {
	var r Reading
	var err error

	if r.Date, err = stringField(doc, FieldDate); err != nil {
		return Reading{}, err
	}
	if r.Hour, err = stringField(doc, FieldHour); err != nil {
		return Reading{}, err
	}
	if r.Device, err = stringField(doc, FieldDevice); err != nil {
		return Reading{}, err
	}

	v, ok := doc[FieldConsumption]
	if !ok || v == nil {
		return Reading{}, fmt.Errorf("%w: missing field %q", ErrMalformedRecord, FieldConsumption)
	}
	switch n := v.(type) {
	case float64:
		r.Consumption = n
	case float32:
		r.Consumption = float64(n)
	case int:
		r.Consumption = float64(n)
	case int32:
		r.Consumption = float64(n)
	case int64:
		r.Consumption = float64(n)
	default:
		return Reading{}, fmt.Errorf("%w: field %q has type %T", ErrMalformedRecord, FieldConsumption, v)
	}
	if math.IsNaN(r.Consumption) || math.IsInf(r.Consumption, 0) {
		return Reading{}, fmt.Errorf("%w: field %q is not finite", ErrMalformedRecord, FieldConsumption)
	}

	return r, nil
}

func stringField(doc map[string]any, name string) (string, error) {
	v, ok := doc[name]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: missing field %q", ErrMalformedRecord, name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q has type %T", ErrMalformedRecord, name, v)
	}
	return s, nil
}
