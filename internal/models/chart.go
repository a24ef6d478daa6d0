package models

import "fmt"

// ChartSeries is the date/close-price history returned by
// GET /api/chart-data/{symbol}. Labels and Prices are parallel, oldest first.
type ChartSeries struct {
	Labels  []string  `json:"labels"`
	Prices  []float64 `json:"prices"`
	Volumes []float64 `json:"volumes,omitempty"`
}

// Len returns the number of points.
func (c *ChartSeries) Len() int {
	return len(c.Labels)
}

// Validate checks that the parallel sequences line up.
func (c *ChartSeries) Validate() error {
	if len(c.Labels) != len(c.Prices) {
		return fmt.Errorf("chart series mismatch: %d labels, %d prices", len(c.Labels), len(c.Prices))
	}
	if len(c.Volumes) > 0 && len(c.Volumes) != len(c.Labels) {
		return fmt.Errorf("chart series mismatch: %d labels, %d volumes", len(c.Labels), len(c.Volumes))
	}
	return nil
}

// Selection is the viewer's current stock and period choice.
// An empty Symbol means nothing is selected.
type Selection struct {
	Symbol string `json:"symbol"`
	Days   int    `json:"days"`
}
