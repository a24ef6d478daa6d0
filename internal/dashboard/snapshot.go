package dashboard

import (
	"github.com/bobmcallan/stock-portal/internal/models"
	"github.com/bobmcallan/stock-portal/internal/view"
)

// Snapshot is an immutable copy of the controller state.
type Snapshot struct {
	Stocks       []models.Stock          `json:"stocks"`
	Statistics   models.Statistics       `json:"statistics"`
	Options      []models.SelectorOption `json:"options"`
	Selection    models.Selection        `json:"selection"`
	Periods      []int                   `json:"periods"`
	Banner       *models.Banner          `json:"banner,omitempty"`
	Busy         map[models.Control]bool `json:"busy"`
	HasChart     bool                    `json:"has_chart"`
	ChartTitle   string                  `json:"chart_title,omitempty"`
	ChartVersion uint64                  `json:"chart_version"`
	Closed       bool                    `json:"closed"`
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Stocks:       c.stocks.All(),
		Statistics:   c.stats,
		Options:      append([]models.SelectorOption(nil), c.options...),
		Selection:    c.selection,
		Periods:      append([]int(nil), c.opts.Periods...),
		Busy:         map[models.Control]bool{models.ControlRefresh: c.busy[models.ControlRefresh], models.ControlUpdate: c.busy[models.ControlUpdate]},
		ChartVersion: c.chartVersion,
		Closed:       c.closed,
	}
	if c.banner != nil {
		b := *c.banner
		s.Banner = &b
	}
	if c.current != nil {
		s.HasChart = true
		s.ChartTitle = c.current.Title()
	}
	return s
}

// Render builds the dashboard body from the current state.
func (c *Controller) Render() *view.Node {
	// The grid and the snapshot must come from the same state, or a
	// concurrent reload could pair new stocks with an old grid.
	c.mu.Lock()
	snap := c.snapshotLocked()
	grid := c.grid
	c.mu.Unlock()

	var info *view.ChartInfo
	if snap.HasChart {
		info = &view.ChartInfo{Title: snap.ChartTitle, Version: snap.ChartVersion}
	}
	return view.Dashboard(view.Page{
		Stocks:      snap.Stocks,
		Grid:        grid,
		Statistics:  snap.Statistics,
		Options:     snap.Options,
		Selection:   snap.Selection,
		Periods:     snap.Periods,
		Banner:      snap.Banner,
		RefreshBusy: snap.Busy[models.ControlRefresh],
		UpdateBusy:  snap.Busy[models.ControlUpdate],
		Chart:       info,
		Formatter:   c.format,
	})
}
