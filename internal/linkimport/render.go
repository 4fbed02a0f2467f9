package linkimport

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Renderer draws a series as an image.
type Renderer interface {
	Render(s Series, w io.Writer) error
}

// LineRenderer draws PNG line plots, one point per sample index.
type LineRenderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewLineRenderer returns a renderer producing 6x4 inch plots.
func NewLineRenderer() LineRenderer {
	return LineRenderer{Width: 6 * vg.Inch, Height: 4 * vg.Inch}
}

func (r LineRenderer) Render(s Series, w io.Writer) error {
	if len(s.Values) == 0 {
		return fmt.Errorf("%w: series %q has no samples", ErrMalformedPayload, s.Title)
	}
	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = s.XLabel
	p.Y.Label.Text = s.YLabel

	pts := make(plotter.XYs, len(s.Values))
	for i, v := range s.Values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("linkimport: build line for %q: %w", s.Title, err)
	}
	p.Add(line)

	width, height := r.Width, r.Height
	if width <= 0 {
		width = 6 * vg.Inch
	}
	if height <= 0 {
		height = 4 * vg.Inch
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("linkimport: encode plot %q: %w", s.Title, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("linkimport: write plot %q: %w", s.Title, err)
	}
	return nil
}
