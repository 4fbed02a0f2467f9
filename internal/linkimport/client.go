package linkimport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/hrvbot/core/logger"
)

// ErrMalformedPayload is returned when the provider response cannot be used.
var ErrMalformedPayload = errors.New("linkimport: malformed provider payload")

const maxPayloadBytes = 8 << 20

// Payload is the provider response body.
type Payload struct {
	GraphArrays []GraphArray `json:"graph_arrays"`
}

// GraphArray is one named series. Optional fields are nil when absent.
type GraphArray struct {
	Data  []float64 `json:"data"`
	Scale *float64  `json:"scale"`
	Title *string   `json:"title"`
	XUnit *string   `json:"x_unit"`
	YUnit *string   `json:"y_unit"`
}

// Series is a rescaled graph ready for rendering.
type Series struct {
	Title  string
	XLabel string
	YLabel string
	Values []float64
}

// Series applies the defaults for absent fields and divides every value by
// the scale. A missing scale means 1; an explicit zero is rejected.
func (g GraphArray) Series() (Series, error) {
	if g.Data == nil {
		return Series{}, fmt.Errorf("%w: graph array without data", ErrMalformedPayload)
	}
	scale := 1.0
	if g.Scale != nil {
		scale = *g.Scale
	}
	if scale == 0 {
		return Series{}, fmt.Errorf("%w: zero scale", ErrMalformedPayload)
	}
	values := make([]float64, len(g.Data))
	for i, v := range g.Data {
		values[i] = v / scale
	}
	return Series{
		Title:  orEmpty(g.Title),
		XLabel: orEmpty(g.XUnit),
		YLabel: orEmpty(g.YUnit),
		Values: values,
	}, nil
}

func orEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Fetcher retrieves the graph arrays for a token.
type Fetcher interface {
	Fetch(ctx context.Context, token string) (Payload, error)
}

// Client posts tokens to the provider endpoint as {"token": "..."}.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a provider client. A nil httpClient gets a 30s timeout.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// Fetch calls the provider and decodes its graph arrays.
func (c *Client) Fetch(ctx context.Context, token string) (Payload, error) {
	if c.endpoint == "" {
		return Payload{}, fmt.Errorf("linkimport: provider endpoint not configured")
	}
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return Payload{}, fmt.Errorf("linkimport: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Payload{}, fmt.Errorf("linkimport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("linkimport: provider request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return Payload{}, fmt.Errorf("linkimport: read response: %w", err)
	}
	logger.Debug(ctx, "service.import", "provider.response",
		slog.Int("http_code", resp.StatusCode),
		slog.Int("bytes", len(raw)),
		slog.Duration("duration", time.Since(start)),
	)
	if resp.StatusCode != http.StatusOK {
		return Payload{}, fmt.Errorf("linkimport: provider status %d: %s", resp.StatusCode, logger.SanitizeLimit(string(raw), 200))
	}

	var probe struct {
		GraphArrays *[]GraphArray `json:"graph_arrays"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if probe.GraphArrays == nil {
		return Payload{}, fmt.Errorf("%w: missing graph_arrays", ErrMalformedPayload)
	}
	return Payload{GraphArrays: *probe.GraphArrays}, nil
}
