// Package models defines data structures shared by the dashboard, the
// backend client and the view layer.
package models

import "fmt"

// Classification is the display bucket of a stock, derived from the sign of
// its one-year return.
type Classification string

const (
	Positive Classification = "positive"
	Negative Classification = "negative"
	Neutral  Classification = "neutral"
)

// Classify maps a year return to its bucket. Exactly zero is neutral.
func Classify(yearReturn float64) Classification {
	switch {
	case yearReturn > 0:
		return Positive
	case yearReturn < 0:
		return Negative
	default:
		return Neutral
	}
}

// Stock is one tracked instrument as returned by GET /api/stocks.
// Prices are optional; a missing price renders as a placeholder.
type Stock struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	CurrentPrice *float64 `json:"current_price"`
	YearReturn   float64  `json:"year_return"`
	YearHigh     *float64 `json:"year_high,omitempty"`
	YearLow      *float64 `json:"year_low,omitempty"`
}

// Classification returns the display bucket for the stock.
func (s Stock) Classification() Classification {
	return Classify(s.YearReturn)
}

// Label returns the selector label "name (symbol)".
func (s Stock) Label() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Symbol)
}

// StockList is an ordered, immutable list of stocks. A new list replaces
// the old one on every successful load; it is never mutated in place.
type StockList struct {
	stocks []Stock
}

// NewStockList copies stocks into a new list.
func NewStockList(stocks []Stock) StockList {
	cp := make([]Stock, len(stocks))
	copy(cp, stocks)
	return StockList{stocks: cp}
}

// Len returns the number of stocks.
func (l StockList) Len() int {
	return len(l.stocks)
}

// All returns a copy of the stocks in order.
func (l StockList) All() []Stock {
	cp := make([]Stock, len(l.stocks))
	copy(cp, l.stocks)
	return cp
}

// Find returns the stock with the given symbol.
func (l StockList) Find(symbol string) (Stock, bool) {
	for _, s := range l.stocks {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return Stock{}, false
}

// Statistics holds the sign-partition counts of a stock list.
// Total always equals Positive + Negative + Neutral.
type Statistics struct {
	Total    int `json:"total"`
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// ComputeStatistics partitions stocks by the sign of their year return.
func ComputeStatistics(stocks []Stock) Statistics {
	var st Statistics
	for _, s := range stocks {
		switch s.Classification() {
		case Positive:
			st.Positive++
		case Negative:
			st.Negative++
		default:
			st.Neutral++
		}
	}
	st.Total = len(stocks)
	return st
}

// Statistics computes the counts for the list.
func (l StockList) Statistics() Statistics {
	return ComputeStatistics(l.stocks)
}

// StockDetail is one stock's analysis as returned by GET /api/stocks/{symbol}.
// It carries the summary fields plus the company metadata the backend knows.
type StockDetail struct {
	Stock
	Sector    string   `json:"sector,omitempty"`
	MarketCap *float64 `json:"market_cap,omitempty"`
}

// Company is a registered company as returned by GET /api/companies.
type Company struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	MarketCap float64 `json:"market_cap"`
	Sector    string  `json:"sector"`
}
