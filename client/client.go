// Package client talks to the consumption API on behalf of the dashboard.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultBaseURL      = "http://localhost:8000"
	DefaultQueryTimeout = 15 * time.Second

	ingestPath  = "/consumo"
	searchPath  = "/consumo/buscar"
	batchHeader = "X-Batch-ID"

	maxErrorBody = 512
)

var (
	// ErrUpstreamTimeout is returned when the API does not answer within the query timeout.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrUpstreamUnreachable covers connection failures and non-2xx responses.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
)

// RawReading is a reading as it came off the wire. Consumption is left
// un-coerced (json.Number for numbers) so the reshape layer can decide what
// to keep.
type RawReading struct {
	Date        string `json:"date"`
	Hour        string `json:"hour"`
	Device      string `json:"device"`
	Consumption any    `json:"consumption"`
}

// IngestResult is the API's answer to an ingestion request.
type IngestResult struct {
	BatchID  string
	Readings []RawReading
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs GET /consumo/buscar. Empty date or device means any.
func (c *Client) Search(ctx context.Context, date, device string) ([]RawReading, error) {
	q := url.Values{}
	if date != "" {
		q.Set("data", date)
	}
	if device != "" {
		q.Set("aparelho", device)
	}
	target := c.baseURL + searchPath
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rows, err := decodeReadings(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode search response: %w", ErrUpstreamUnreachable, err)
	}
	return rows, nil
}

// Ingest runs POST /consumo for one (date, device) pair.
func (c *Client) Ingest(ctx context.Context, date, device string) (*IngestResult, error) {
	payload, err := json.Marshal(map[string]string{"date": date, "device": device})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ingest request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ingestPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rows, err := decodeReadings(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode ingest response: %w", ErrUpstreamUnreachable, err)
	}
	return &IngestResult{BatchID: resp.Header.Get(batchHeader), Readings: rows}, nil
}

// do sends req and maps transport failures and non-2xx statuses onto the
// upstream error kinds. On success the caller owns resp.Body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(req, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %s %s returned %d: %s",
			ErrUpstreamUnreachable, req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

func classify(req *http.Request, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s %s: %w", ErrUpstreamTimeout, req.Method, req.URL.Path, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrUpstreamUnreachable, req.Method, req.URL.Path, err)
}

func decodeReadings(r io.Reader) ([]RawReading, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rows []RawReading
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []RawReading{}
	}
	return rows, nil
}
