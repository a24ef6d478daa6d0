// Package chart draws price history line charts.
//
// A Chart owns an in-memory drawing context. The dashboard keeps at most one
// per viewer and must Destroy the previous chart before installing a new one.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"

	"github.com/bobmcallan/stock-portal/internal/models"
)

var (
	// ErrDestroyed is returned when a destroyed chart is used.
	ErrDestroyed = errors.New("chart: destroyed")
	// ErrEmptySeries is returned when a series has no points.
	ErrEmptySeries = errors.New("chart: empty series")
)

// Factory builds charts of a fixed size.
type Factory struct {
	Width    int
	Height   int
	FontPath string // optional TTF; the built-in face is used when empty
}

// NewFactory returns a factory for width x height charts.
func NewFactory(width, height int) *Factory {
	if width <= 0 {
		width = 960
	}
	if height <= 0 {
		height = 400
	}
	return &Factory{Width: width, Height: height}
}

// Chart is a drawn line chart.
type Chart struct {
	mu        sync.Mutex
	title     string
	points    int
	dc        *gg.Context
	destroyed bool
}

// New draws series as a line chart titled title.
func (f *Factory) New(title string, series models.ChartSeries) (*Chart, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if series.Len() == 0 {
		return nil, ErrEmptySeries
	}

	dc, err := f.draw(title, series)
	if err != nil {
		return nil, err
	}
	return &Chart{title: title, points: series.Len(), dc: dc}, nil
}

// Title returns the chart title.
func (c *Chart) Title() string {
	return c.title
}

// Points returns the number of plotted points.
func (c *Chart) Points() int {
	return c.points
}

// PNG encodes the chart image.
func (c *Chart) PNG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return nil, ErrDestroyed
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.dc.Image()); err != nil {
		return nil, fmt.Errorf("chart: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Destroy releases the drawing context. Safe to call more than once.
func (c *Chart) Destroy() {
	c.mu.Lock()
	c.dc = nil
	c.destroyed = true
	c.mu.Unlock()
}

// Destroyed reports whether Destroy has been called.
func (c *Chart) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (f *Factory) draw(title string, series models.ChartSeries) (*gg.Context, error) {
	const (
		padLeft   = 80.0
		padRight  = 24.0
		padTop    = 48.0
		padBottom = 40.0
		titleSize = 18
	)

	width, height := float64(f.Width), float64(f.Height)
	dc := gg.NewContext(f.Width, f.Height)
	dc.SetColor(color.White)
	dc.Clear()

	if f.FontPath != "" {
		if err := dc.LoadFontFace(f.FontPath, titleSize); err != nil {
			return nil, fmt.Errorf("chart: load font: %w", err)
		}
	}

	dc.SetColor(color.Black)
	dc.DrawStringAnchored(title, padLeft, padTop/2, 0, 0.5)

	lo, hi := priceRange(series.Prices)
	plotW := width - padLeft - padRight
	plotH := height - padTop - padBottom
	n := series.Len()

	xAt := func(i int) float64 {
		if n == 1 {
			return padLeft + plotW/2
		}
		return padLeft + plotW*float64(i)/float64(n-1)
	}
	yAt := func(p float64) float64 {
		return padTop + plotH*(1-(p-lo)/(hi-lo))
	}

	// axes
	dc.SetColor(color.RGBA{R: 200, G: 200, B: 200, A: 255})
	dc.SetLineWidth(1)
	dc.DrawLine(padLeft, padTop, padLeft, padTop+plotH)
	dc.DrawLine(padLeft, padTop+plotH, padLeft+plotW, padTop+plotH)
	dc.Stroke()

	dc.SetColor(color.RGBA{R: 100, G: 100, B: 100, A: 255})
	dc.DrawStringAnchored(fmt.Sprintf("%.0f", hi), padLeft-8, padTop, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.0f", lo), padLeft-8, padTop+plotH, 1, 0.5)
	dc.DrawStringAnchored(series.Labels[0], padLeft, padTop+plotH+padBottom/2, 0, 0.5)
	if n > 1 {
		dc.DrawStringAnchored(series.Labels[n-1], padLeft+plotW, padTop+plotH+padBottom/2, 1, 0.5)
	}

	line := trendColor(series.Prices[n-1] - series.Prices[0])

	// light fill under the line
	r, g, b, _ := line.RGBA()
	dc.SetColor(color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 40})
	dc.MoveTo(xAt(0), padTop+plotH)
	for i, p := range series.Prices {
		dc.LineTo(xAt(i), yAt(p))
	}
	dc.LineTo(xAt(n-1), padTop+plotH)
	dc.ClosePath()
	dc.Fill()

	dc.SetColor(line)
	dc.SetLineWidth(2)
	for i, p := range series.Prices {
		if i == 0 {
			dc.MoveTo(xAt(i), yAt(p))
			continue
		}
		dc.LineTo(xAt(i), yAt(p))
	}
	if n == 1 {
		dc.DrawCircle(xAt(0), yAt(series.Prices[0]), 3)
		dc.Fill()
	} else {
		dc.Stroke()
	}

	return dc, nil
}

// priceRange returns a non-degenerate [lo, hi] span for the prices.
func priceRange(prices []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range prices {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	if hi == lo {
		pad := math.Max(math.Abs(hi)*0.01, 1)
		return lo - pad, hi + pad
	}
	return lo, hi
}

// trendColor follows the Korean market convention: red up, blue down.
func trendColor(change float64) color.RGBA {
	if change > 0 {
		return color.RGBA{R: 220, G: 68, B: 68, A: 255}
	}
	if change < 0 {
		return color.RGBA{R: 40, G: 100, B: 220, A: 255}
	}
	return color.RGBA{R: 120, G: 120, B: 120, A: 255}
}
