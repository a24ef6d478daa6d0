// Package dashboard implements the per-viewer dashboard controller: it loads
// the stock list, keeps statistics and the selector in step with it, and
// draws the price chart for the current selection.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/stock-portal/internal/chart"
	"github.com/bobmcallan/stock-portal/internal/client"
	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/bobmcallan/stock-portal/internal/models"
	"github.com/bobmcallan/stock-portal/internal/view"
)

// Event names a UI affordance.
type Event string

const (
	EventRefresh      Event = "refresh"
	EventUpdate       Event = "update"
	EventSelectStock  Event = "select-stock"
	EventSelectPeriod Event = "select-period"
	EventCardClick    Event = "card-click"
	EventTeardown     Event = "teardown"
)

// Handler handles one event. value carries the payload (a symbol or a
// period) and is ignored by events that have none.
type Handler func(ctx context.Context, value string) error

// Status messages.
const (
	msgLoadingStocks = "Loading stock data..."
	msgStocksLoaded  = "Stock data loaded."
	msgLoadFailed    = "Load failed: "
	msgUpdating      = "Updating stock data... (takes about 1-2 minutes)"
	msgUpdated       = "Stock data update complete."
	msgUpdateFailed  = "Update failed: "
	msgLoadingChart  = "Loading chart data..."
	msgChartLoaded   = "Chart loaded."
	msgChartFailed   = "Chart load failed: "
	msgNetworkError  = "Network error: "
)

// Controller holds the dashboard state of one viewer. All state is guarded
// by mu, which is never held across a backend call.
type Controller struct {
	api    StockAPI
	charts ChartFactory
	timer  Timer
	format *common.Formatter
	logger *common.Logger
	opts   Options

	// bg outlives individual requests; the delayed reload runs on it.
	bg     context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	handlers     map[Event]Handler
	stocks       models.StockList
	stats        models.Statistics
	options      []models.SelectorOption
	grid         *view.Node
	selection    models.Selection
	banner       *models.Banner
	bannerTimer  Stopper
	reloadTimer  Stopper
	busy         map[models.Control]bool
	current      *chart.Chart
	series       models.ChartSeries
	chartVersion uint64
	chartToken   uint64
	closed       bool
}

// New creates a controller. Call Initialize before dispatching events.
func New(deps Deps, opts Options) *Controller {
	opts = opts.withDefaults()
	if deps.Timer == nil {
		deps.Timer = realTimer{}
	}
	if deps.Formatter == nil {
		deps.Formatter = common.NewFormatter("", "")
	}
	if deps.Logger == nil {
		deps.Logger = common.NewSilentLogger()
	}

	bg, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:       deps.API,
		charts:    deps.Charts,
		timer:     deps.Timer,
		format:    deps.Formatter,
		logger:    deps.Logger,
		opts:      opts,
		bg:        bg,
		cancel:    cancel,
		handlers:  make(map[Event]Handler),
		busy:      make(map[models.Control]bool),
		stocks:    models.NewStockList(nil),
		selection: models.Selection{Days: opts.DefaultDays},
	}
	c.renderLocked()
	return c
}

// Initialize binds every UI event to its handler, then loads the stock list.
// The controller stays usable when the initial load fails.
func (c *Controller) Initialize(ctx context.Context) error {
	c.Register(EventRefresh, func(ctx context.Context, _ string) error {
		return c.LoadStocks(ctx)
	})
	c.Register(EventUpdate, func(ctx context.Context, _ string) error {
		return c.TriggerUpdate(ctx)
	})
	c.Register(EventSelectStock, c.SelectStock)
	c.Register(EventSelectPeriod, c.onPeriodChange)
	c.Register(EventCardClick, c.CardClick)
	c.Register(EventTeardown, func(context.Context, string) error {
		c.Close()
		return nil
	})
	return c.LoadStocks(ctx)
}

// Register binds an event to a handler, replacing any previous binding.
func (c *Controller) Register(ev Event, h Handler) {
	c.mu.Lock()
	c.handlers[ev] = h
	c.mu.Unlock()
}

// Dispatch invokes the handler registered for ev.
func (c *Controller) Dispatch(ctx context.Context, ev Event, value string) error {
	c.mu.Lock()
	closed := c.closed
	h, ok := c.handlers[ev]
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, ev)
	}
	return h(ctx, value)
}

// LoadStocks fetches the stock list. On success the list, card grid,
// statistics and selector are replaced together; on failure they are left
// as they were. The refresh control is busy for the duration.
func (c *Controller) LoadStocks(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.busy[models.ControlRefresh] {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy[models.ControlRefresh] = true
	c.showLocked(models.StatusInfo, msgLoadingStocks)
	c.mu.Unlock()

	stocks, err := c.api.ListStocks(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy[models.ControlRefresh] = false
	if c.closed {
		return ErrClosed
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Stock list load failed")
		c.showLocked(models.StatusError, failureText(msgLoadFailed, err))
		return err
	}

	c.stocks = models.NewStockList(stocks)
	c.renderLocked()
	c.showLocked(models.StatusSuccess, msgStocksLoaded)
	c.logger.Debug().Int("stocks", c.stocks.Len()).Msg("Stock list loaded")
	return nil
}

// TriggerUpdate asks the backend to recompute its data. On success the
// stock list is reloaded once, after the reload delay. The update control
// is busy for the duration.
func (c *Controller) TriggerUpdate(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.busy[models.ControlUpdate] {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy[models.ControlUpdate] = true
	c.showLocked(models.StatusInfo, msgUpdating)
	c.mu.Unlock()

	start := time.Now()
	msg, err := c.api.TriggerUpdate(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy[models.ControlUpdate] = false
	if c.closed {
		return ErrClosed
	}
	if err != nil {
		c.logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Stock data update failed")
		c.showLocked(models.StatusError, failureText(msgUpdateFailed, err))
		return err
	}

	c.logger.Info().Str("message", msg).Dur("elapsed", time.Since(start)).Msg("Stock data updated")
	c.showLocked(models.StatusSuccess, msgUpdated)
	if c.reloadTimer != nil {
		c.reloadTimer.Stop()
	}
	c.reloadTimer = c.timer.AfterFunc(c.opts.ReloadDelay, c.delayedReload)
	return nil
}

func (c *Controller) delayedReload() {
	c.mu.Lock()
	c.reloadTimer = nil
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	if err := c.LoadStocks(c.bg); err != nil {
		if errors.Is(err, ErrBusy) {
			c.logger.Debug().Msg("Reload after update skipped: refresh already in flight")
			return
		}
		c.logger.Debug().Err(err).Msg("Reload after update failed")
	}
}

// SelectStock sets the selected symbol and reloads the chart.
// An empty symbol clears the selection.
func (c *Controller) SelectStock(ctx context.Context, symbol string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.selection.Symbol = strings.TrimSpace(symbol)
	c.mu.Unlock()
	return c.LoadChart(ctx)
}

// CardClick sets the selector to the card's symbol and reloads the chart.
func (c *Controller) CardClick(ctx context.Context, symbol string) error {
	return c.SelectStock(ctx, symbol)
}

// SelectPeriod sets the chart period and reloads the chart.
func (c *Controller) SelectPeriod(ctx context.Context, days int) error {
	if days <= 0 {
		return ErrInvalidPeriod
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.selection.Days = days
	c.mu.Unlock()
	return c.LoadChart(ctx)
}

func (c *Controller) onPeriodChange(ctx context.Context, value string) error {
	days, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, value)
	}
	return c.SelectPeriod(ctx, days)
}

// LoadChart draws the chart for the current selection. With no symbol
// selected the current chart is destroyed and no request is made.
// Responses that arrive after a newer LoadChart has started are discarded.
func (c *Controller) LoadChart(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.chartToken++
	token := c.chartToken
	sel := c.selection
	if sel.Symbol == "" {
		c.destroyChartLocked()
		c.mu.Unlock()
		return nil
	}
	title := c.chartTitleLocked(sel)
	c.showLocked(models.StatusInfo, msgLoadingChart)
	c.mu.Unlock()

	series, err := c.api.ChartData(ctx, sel.Symbol, sel.Days)
	var drawn *chart.Chart
	if err == nil {
		drawn, err = c.charts.New(title, series)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || token != c.chartToken {
		if drawn != nil {
			drawn.Destroy()
		}
		c.logger.Debug().Str("symbol", sel.Symbol).Int("days", sel.Days).Msg("Discarded stale chart response")
		return nil
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", sel.Symbol).Int("days", sel.Days).Msg("Chart load failed")
		c.showLocked(models.StatusError, failureText(msgChartFailed, err))
		return err
	}

	c.destroyChartLocked()
	c.current = drawn
	c.series = series
	c.chartVersion++
	c.showLocked(models.StatusSuccess, msgChartLoaded)
	c.logger.Debug().Str("symbol", sel.Symbol).Int("days", sel.Days).Int("points", series.Len()).Msg("Chart loaded")
	return nil
}

// Close tears the controller down: the chart is destroyed, pending timers
// are cancelled and further dispatches return ErrClosed. Safe to call more
// than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.chartToken++
	c.destroyChartLocked()
	if c.bannerTimer != nil {
		c.bannerTimer.Stop()
		c.bannerTimer = nil
	}
	if c.reloadTimer != nil {
		c.reloadTimer.Stop()
		c.reloadTimer = nil
	}
	c.cancel()
}

// Closed reports whether the controller has been torn down.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Stocks returns a copy of the current stock list.
func (c *Controller) Stocks() []models.Stock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stocks.All()
}

// Statistics returns the counts for the current list.
func (c *Controller) Statistics() models.Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Selection returns the current selection.
func (c *Controller) Selection() models.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Busy reports whether a control is disabled by an in-flight request.
func (c *Controller) Busy(ctl models.Control) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[ctl]
}

// Banner returns the visible status banner, or nil.
func (c *Controller) Banner() *models.Banner {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.banner == nil {
		return nil
	}
	b := *c.banner
	return &b
}

// ChartPNG encodes the current chart.
func (c *Controller) ChartPNG() ([]byte, error) {
	c.mu.Lock()
	ch := c.current
	c.mu.Unlock()
	if ch == nil {
		return nil, ErrNoChart
	}
	return ch.PNG()
}

// ChartSeries returns the series behind the current chart.
func (c *Controller) ChartSeries() (models.ChartSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return models.ChartSeries{}, false
	}
	return c.series, true
}

// Formatter returns the display formatter.
func (c *Controller) Formatter() *common.Formatter {
	return c.format
}

// Periods returns the selectable chart periods.
func (c *Controller) Periods() []int {
	return append([]int(nil), c.opts.Periods...)
}

// showLocked replaces the status banner and restarts its dismissal timer.
func (c *Controller) showLocked(kind models.StatusKind, text string) {
	b := &models.Banner{Text: text, Kind: kind, ShownAt: time.Now()}
	c.banner = b
	if c.bannerTimer != nil {
		c.bannerTimer.Stop()
	}
	c.bannerTimer = c.timer.AfterFunc(c.opts.StatusTTL, func() {
		c.mu.Lock()
		if c.banner == b {
			c.banner = nil
			c.bannerTimer = nil
		}
		c.mu.Unlock()
	})
}

// renderLocked re-renders the card grid, recomputes statistics and
// repopulates the selector from the current list.
func (c *Controller) renderLocked() {
	stocks := c.stocks.All()
	c.grid = view.StockGrid(stocks, c.format)
	c.stats = c.stocks.Statistics()
	c.populateSelectorLocked(stocks)
}

func (c *Controller) populateSelectorLocked(stocks []models.Stock) {
	opts := make([]models.SelectorOption, 0, len(stocks)+1)
	opts = append(opts, models.SelectorOption{Value: "", Label: view.SelectorPlaceholder})
	for _, s := range stocks {
		opts = append(opts, models.SelectorOption{Value: s.Symbol, Label: s.Label()})
	}
	c.options = opts

	if c.selection.Symbol != "" {
		if _, ok := c.stocks.Find(c.selection.Symbol); !ok {
			c.selection.Symbol = ""
		}
	}
}

func (c *Controller) destroyChartLocked() {
	if c.current != nil {
		c.current.Destroy()
		c.current = nil
		c.series = models.ChartSeries{}
	}
}

func (c *Controller) chartTitleLocked(sel models.Selection) string {
	label := sel.Symbol
	if s, ok := c.stocks.Find(sel.Symbol); ok {
		label = s.Label()
	}
	return label + " - " + view.PeriodLabel(sel.Days)
}

// failureText renders an error for the status banner. Transport failures
// read as network errors; backend failures carry the backend's message.
func failureText(prefix string, err error) string {
	var te *client.TransportError
	if errors.As(err, &te) {
		return msgNetworkError + te.Err.Error()
	}
	var be *client.BackendError
	if errors.As(err, &be) && be.Message != "" {
		return prefix + be.Message
	}
	return prefix + err.Error()
}
