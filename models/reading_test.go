package models

import (
	"errors"
	"math"
	"testing"

	"github.com/goccy/go-json"
)

func TestDecodeReading(t *testing.T) {
	t.Parallel()

	valid := func() map[string]any {
		return map[string]any{
			"date":        "2024-01-01",
			"hour":        "05:00",
			"device":      "Geladeira",
			"consumption": 0.125,
			"batch_id":    "ignored",
			"_id":         "ignored too",
		}
	}

	t.Run("valid document", func(t *testing.T) {
		t.Parallel()
		r, err := DecodeReading(valid())
		if err != nil {
			t.Fatalf("DecodeReading() error = %v", err)
		}
		want := Reading{Date: "2024-01-01", Hour: "05:00", Device: "Geladeira", Consumption: 0.125}
		if r != want {
			t.Errorf("DecodeReading() = %+v, want %+v", r, want)
		}
	})

	t.Run("integer consumption types", func(t *testing.T) {
		t.Parallel()
		for _, v := range []any{int(1), int32(1), int64(1), float32(1)} {
			doc := valid()
			doc["consumption"] = v
			r, err := DecodeReading(doc)
			if err != nil {
				t.Fatalf("DecodeReading(%T) error = %v", v, err)
			}
			if r.Consumption != 1 {
				t.Errorf("DecodeReading(%T) consumption = %v, want 1", v, r.Consumption)
			}
		}
	})

	t.Run("empty string fields are kept", func(t *testing.T) {
		t.Parallel()
		doc := valid()
		doc["hour"] = ""
		doc["device"] = ""
		r, err := DecodeReading(doc)
		if err != nil {
			t.Fatalf("DecodeReading() error = %v", err)
		}
		if r.Hour != "" || r.Device != "" || r.Date != "2024-01-01" {
			t.Errorf("DecodeReading() = %+v", r)
		}
	})

	malformed := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing date", func(d map[string]any) { delete(d, "date") }},
		{"null hour", func(d map[string]any) { d["hour"] = nil }},
		{"numeric device", func(d map[string]any) { d["device"] = 42 }},
		{"nil consumption", func(d map[string]any) { d["consumption"] = nil }},
		{"missing consumption", func(d map[string]any) { delete(d, "consumption") }},
		{"string consumption", func(d map[string]any) { d["consumption"] = "0.1" }},
		{"NaN consumption", func(d map[string]any) { d["consumption"] = math.NaN() }},
		{"infinite consumption", func(d map[string]any) { d["consumption"] = math.Inf(1) }},
	}
	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := valid()
			tt.mutate(doc)
			if _, err := DecodeReading(doc); !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("DecodeReading() error = %v, want ErrMalformedRecord", err)
			}
		})
	}
}

func TestReadingFilterMatches(t *testing.T) {
	t.Parallel()

	r := Reading{Date: "2024-01-01", Hour: "00:00", Device: "TV", Consumption: 0.1}
	tests := []struct {
		filter ReadingFilter
		want   bool
	}{
		{ReadingFilter{}, true},
		{ReadingFilter{Date: "2024-01-01"}, true},
		{ReadingFilter{Device: "TV"}, true},
		{ReadingFilter{Date: "2024-01-01", Device: "TV"}, true},
		{ReadingFilter{Date: "2024-01-02"}, false},
		{ReadingFilter{Date: "2024-01-01", Device: "Chuveiro"}, false},
	}
	for _, tt := range tests {
		if got := tt.filter.Matches(r); got != tt.want {
			t.Errorf("%+v.Matches() = %v, want %v", tt.filter, got, tt.want)
		}
	}
	if !(ReadingFilter{}).IsEmpty() {
		t.Error("zero filter should be empty")
	}
}

func TestIngestRequestUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want IngestRequest
	}{
		{"canonical keys", `{"date":"2024-01-01","device":"TV"}`, IngestRequest{"2024-01-01", "TV"}},
		{"legacy keys", `{"data":"2024-01-01","aparelho":"TV"}`, IngestRequest{"2024-01-01", "TV"}},
		{"canonical wins", `{"date":"2024-01-02","data":"2024-01-01","device":"TV"}`, IngestRequest{"2024-01-02", "TV"}},
		{"trims whitespace", `{"date":"  2024-01-01 ","device":"  "}`, IngestRequest{"2024-01-01", ""}},
		{"empty body", `{}`, IngestRequest{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got IngestRequest
			if err := json.Unmarshal([]byte(tt.body), &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStoredReadingDocument(t *testing.T) {
	t.Parallel()

	s := StoredReading{
		Reading: Reading{Date: "2024-01-01", Hour: "01:00", Device: "TV", Consumption: 0.2},
		BatchID: "b1",
	}
	r, err := DecodeReading(s.Document())
	if err != nil {
		t.Fatalf("DecodeReading(Document()) error = %v", err)
	}
	if r != s.Reading {
		t.Errorf("DecodeReading(Document()) = %+v, want %+v", r, s.Reading)
	}
}
