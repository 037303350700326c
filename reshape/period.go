package reshape

import (
	"fmt"
	"time"
)

// Period is a coarse part of the day.
type Period int

const (
	Madrugada Period = iota // [00:00, 06:00)
	Manha                   // [06:00, 12:00)
	Tarde                   // [12:00, 18:00)
	Noite                   // [18:00, 24:00)
)

// Periods lists every period in day order.
var Periods = []Period{Madrugada, Manha, Tarde, Noite}

var periodNames = [...]string{"Madrugada", "Manhã", "Tarde", "Noite"}

// PeriodOf buckets a time of day. Hours past the end of the day land in Noite.
func PeriodOf(t TimeOfDay) Period {
	switch h := t.Hour(); {
	case h < 6:
		return Madrugada
	case h < 12:
		return Manha
	case h < 18:
		return Tarde
	default:
		return Noite
	}
}

func (p Period) String() string {
	if p < Madrugada || p > Noite {
		return fmt.Sprintf("Period(%d)", int(p))
	}
	return periodNames[p]
}

// Label is the display text with the hour range, e.g. "Madrugada (00-06)".
func (p Period) Label() string {
	start := int(p) * 6
	return fmt.Sprintf("%s (%02d-%02d)", p, start, start+6)
}

// TimeOfDay is the offset from midnight.
type TimeOfDay time.Duration

// ParseTimeOfDay parses an "HH:MM" hour string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(hourLayout, s)
	if err != nil {
		return 0, err
	}
	return TimeOfDay(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), nil
}

func (t TimeOfDay) Hour() int {
	return int(time.Duration(t) / time.Hour)
}

func (t TimeOfDay) Minute() int {
	return int(time.Duration(t) % time.Hour / time.Minute)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}
