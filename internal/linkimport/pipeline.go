package linkimport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/hrvbot/core/logger"
	"github.com/m3rciful/hrvbot/internal/blob"
)

// DefaultServedTitles are the plots sent back once an import is done.
var DefaultServedTitles = []string{"PSD", "AR PSD"}

// PlotKey is the blob key of the rendered plot for owner and title.
func PlotKey(owner, title string) string {
	return blob.Key(blob.CategoryPlots, owner, title+"_plot", ".png")
}

// Plot names a rendered plot and whether it has been stored.
type Plot struct {
	Title  string
	Key    string
	Stored bool
}

// Pipeline fetches, renders and stores plots for a link.
type Pipeline struct {
	fetcher  Fetcher
	renderer Renderer
	blobs    blob.Store
	served   []string
}

// NewPipeline wires a pipeline. Empty served titles fall back to DefaultServedTitles.
func NewPipeline(fetcher Fetcher, renderer Renderer, blobs blob.Store, served []string) *Pipeline {
	if len(served) == 0 {
		served = DefaultServedTitles
	}
	return &Pipeline{
		fetcher:  fetcher,
		renderer: renderer,
		blobs:    blobs,
		served:   append([]string(nil), served...),
	}
}

// Import extracts the token from link, fetches its graph arrays and stores
// one rendered plot per array. It returns the stored keys in provider order.
// Rendering is all or nothing: no blob is written unless every array renders.
func (p *Pipeline) Import(ctx context.Context, owner, link string) ([]string, error) {
	token, err := ExtractToken(link)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	payload, err := p.fetcher.Fetch(ctx, token)
	if err != nil {
		return nil, err
	}

	type rendered struct {
		key  string
		data []byte
	}
	out := make([]rendered, 0, len(payload.GraphArrays))
	for i, g := range payload.GraphArrays {
		s, err := g.Series()
		if err != nil {
			return nil, fmt.Errorf("graph array %d: %w", i, err)
		}
		var buf bytes.Buffer
		if err := p.renderer.Render(s, &buf); err != nil {
			return nil, err
		}
		out = append(out, rendered{key: PlotKey(owner, s.Title), data: buf.Bytes()})
	}

	keys := make([]string, 0, len(out))
	for _, r := range out {
		if err := p.blobs.Put(ctx, r.key, bytes.NewReader(r.data)); err != nil {
			return nil, fmt.Errorf("linkimport: store %s: %w", r.key, err)
		}
		keys = append(keys, r.key)
	}
	logger.Info(ctx, "service.import", "import.done",
		slog.String("status", "ok"),
		slog.Int("count", len(keys)),
		slog.Duration("duration", time.Since(start)),
	)
	return keys, nil
}

// Served lists the served plots for owner in their fixed order.
func (p *Pipeline) Served(ctx context.Context, owner string) ([]Plot, error) {
	plots := make([]Plot, 0, len(p.served))
	for _, title := range p.served {
		key := PlotKey(owner, title)
		ok, err := p.blobs.Exists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("linkimport: check %s: %w", key, err)
		}
		plots = append(plots, Plot{Title: title, Key: key, Stored: ok})
	}
	return plots, nil
}
