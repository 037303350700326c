package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestSearchSendsFilterAndKeepsRawNumbers(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != searchPath {
			t.Errorf("path = %q, want %q", r.URL.Path, searchPath)
		}
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[{"date":"2024-01-01","hour":"00:00","device":"TV","consumption":0.125}]`)
	}))
	defer srv.Close()

	rows, err := New(srv.URL).Search(context.Background(), "2024-01-01", "TV")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "aparelho=TV&data=2024-01-01" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	n, ok := rows[0].Consumption.(json.Number)
	if !ok {
		t.Fatalf("consumption has type %T, want json.Number", rows[0].Consumption)
	}
	if n.String() != "0.125" {
		t.Errorf("consumption = %s, want 0.125", n)
	}
}

func TestSearchEmptyFilterOmitsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("query = %q, want empty", r.URL.RawQuery)
		}
		fmt.Fprint(w, `null`)
	}))
	defer srv.Close()

	rows, err := New(srv.URL + "/").Search(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("rows = %#v, want empty non-nil slice", rows)
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
			},
			want: ErrUpstreamUnreachable,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			want: ErrUpstreamUnreachable,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `<html>`)
			},
			want: ErrUpstreamUnreachable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(srv.URL).Search(context.Background(), "2024-01-01", "TV")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSearchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Search(context.Background(), "", "")
	if !errors.Is(err, ErrUpstreamUnreachable) {
		t.Errorf("err = %v, want ErrUpstreamUnreachable", err)
	}
}

func TestSearchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL).Search(ctx, "", "")
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("err = %v, want ErrUpstreamTimeout", err)
	}
}

func TestIngest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != ingestPath {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["date"] != "2024-01-01" || body["device"] != "TV" {
			t.Errorf("body = %v", body)
		}
		w.Header().Set(batchHeader, "batch-1")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `[{"date":"2024-01-01","hour":"00:00","device":"TV","consumption":0.1}]`)
	}))
	defer srv.Close()

	res, err := New(srv.URL).Ingest(context.Background(), "2024-01-01", "TV")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.BatchID != "batch-1" {
		t.Errorf("batch id = %q", res.BatchID)
	}
	if len(res.Readings) != 1 {
		t.Errorf("got %d readings, want 1", len(res.Readings))
	}
}

func TestIngestBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Fields 'date' and 'device' are required"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Ingest(context.Background(), "", "")
	if !errors.Is(err, ErrUpstreamUnreachable) {
		t.Errorf("err = %v, want ErrUpstreamUnreachable", err)
	}
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	delay   map[string]time.Duration
	perCall int
}

func (f *fakeSearcher) Search(ctx context.Context, date, device string) ([]RawReading, error) {
	f.mu.Lock()
	f.calls = append(f.calls, device)
	f.mu.Unlock()

	if d := f.delay[device]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrUpstreamTimeout, ctx.Err())
		}
	}
	if err := f.fail[device]; err != nil {
		return nil, err
	}
	rows := make([]RawReading, f.perCall)
	for i := range rows {
		rows[i] = RawReading{Date: date, Hour: fmt.Sprintf("%02d:00", i), Device: device, Consumption: json.Number("0.1")}
	}
	return rows, nil
}

func TestLoadDayCombinesInDeviceOrder(t *testing.T) {
	fake := &fakeSearcher{perCall: 2, delay: map[string]time.Duration{"A": 20 * time.Millisecond}}
	loader := NewLoader(fake, time.Second)

	rows, err := loader.LoadDay(context.Background(), "2024-01-01", []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("LoadDay: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want 6", len(rows))
	}
	var order []string
	for _, r := range rows {
		if len(order) == 0 || order[len(order)-1] != r.Device {
			order = append(order, r.Device)
		}
	}
	if !slices.Equal(order, []string{"A", "B", "C"}) {
		t.Errorf("device order = %v", order)
	}
	slices.Sort(fake.calls)
	if !slices.Equal(fake.calls, []string{"A", "B", "C"}) {
		t.Errorf("calls = %v", fake.calls)
	}
}

func TestLoadDayRepeatedDevicesQueriedOnce(t *testing.T) {
	fake := &fakeSearcher{perCall: 24}
	loader := NewLoader(fake, time.Second)

	rows, err := loader.LoadDay(context.Background(), "2024-01-01", []string{"TV", "Geladeira", "TV", " ", "Geladeira"})
	if err != nil {
		t.Fatalf("LoadDay: %v", err)
	}
	if len(rows) != 48 {
		t.Errorf("got %d rows, want 48", len(rows))
	}
	if rows[0].Device != "TV" || rows[47].Device != "Geladeira" {
		t.Errorf("device order = %s..%s, want TV..Geladeira", rows[0].Device, rows[47].Device)
	}
	slices.Sort(fake.calls)
	if !slices.Equal(fake.calls, []string{"Geladeira", "TV"}) {
		t.Errorf("calls = %v, want one per distinct device", fake.calls)
	}
}

func TestUniqueDevices(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{nil, []string{}},
		{[]string{"TV"}, []string{"TV"}},
		{[]string{"TV", "TV"}, []string{"TV"}},
		{[]string{"B", "A", "B", "C", "A"}, []string{"B", "A", "C"}},
		{[]string{"", " TV ", "TV"}, []string{"TV"}},
	}
	for _, tt := range tests {
		if got := uniqueDevices(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("uniqueDevices(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadDayFailureDiscardsEverything(t *testing.T) {
	fake := &fakeSearcher{
		perCall: 24,
		fail:    map[string]error{"TV": fmt.Errorf("%w: status 500", ErrUpstreamUnreachable)},
	}
	loader := NewLoader(fake, time.Second)

	rows, err := loader.LoadDay(context.Background(), "2024-01-01", []string{"Geladeira", "TV", "Chuveiro"})
	if !errors.Is(err, ErrUpstreamUnreachable) {
		t.Fatalf("err = %v, want ErrUpstreamUnreachable", err)
	}
	if rows != nil {
		t.Errorf("rows = %v, want nil", rows)
	}
}

func TestLoadDayPerQueryTimeout(t *testing.T) {
	fake := &fakeSearcher{perCall: 1, delay: map[string]time.Duration{"slow": time.Second}}
	loader := NewLoader(fake, 30*time.Millisecond)

	_, err := loader.LoadDay(context.Background(), "2024-01-01", []string{"fast", "slow"})
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("err = %v, want ErrUpstreamTimeout", err)
	}
}

func TestLoadDayNoDevices(t *testing.T) {
	rows, err := NewLoader(&fakeSearcher{}, 0).LoadDay(context.Background(), "2024-01-01", nil)
	if err != nil {
		t.Fatalf("LoadDay: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("rows = %#v, want empty slice", rows)
	}
}

func TestLoadDayAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device := r.URL.Query().Get("aparelho")
		fmt.Fprintf(w, `[{"date":"2024-01-01","hour":"01:00","device":%q,"consumption":0.2}]`, device)
	}))
	defer srv.Close()

	rows, err := NewLoader(New(srv.URL), time.Second).LoadDay(context.Background(), "2024-01-01", []string{"TV", "Outro"})
	if err != nil {
		t.Fatalf("LoadDay: %v", err)
	}
	if len(rows) != 2 || rows[0].Device != "TV" || rows[1].Device != "Outro" {
		t.Errorf("rows = %+v", rows)
	}
}
