package client

import "github.com/bobmcallan/stock-portal/internal/models"

func seriesFixture() models.ChartSeries {
	return models.ChartSeries{Labels: []string{"2026-01-01"}, Prices: []float64{1}}
}
