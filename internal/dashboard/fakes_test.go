package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/stock-portal/internal/chart"
	"github.com/bobmcallan/stock-portal/internal/models"
)

// fakeTimer is a manually advanced clock for AfterFunc callbacks.
type fakeTimer struct {
	mu      sync.Mutex
	now     time.Duration
	entries []*fakeEntry
}

type fakeEntry struct {
	t       *fakeTimer
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (e *fakeEntry) Stop() bool {
	e.t.mu.Lock()
	defer e.t.mu.Unlock()
	wasPending := !e.stopped && !e.fired
	e.stopped = true
	return wasPending
}

func (t *fakeTimer) AfterFunc(d time.Duration, f func()) Stopper {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := &fakeEntry{t: t, at: t.now + d, f: f}
	t.entries = append(t.entries, e)
	return e
}

// Advance moves the clock forward and runs every callback that became due,
// in due order, outside the timer lock.
func (t *fakeTimer) Advance(d time.Duration) {
	t.mu.Lock()
	t.now += d
	var due []*fakeEntry
	for _, e := range t.entries {
		if !e.stopped && !e.fired && e.at <= t.now {
			e.fired = true
			due = append(due, e)
		}
	}
	t.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, e := range due {
		e.f()
	}
}

// Pending returns the number of callbacks not yet fired or stopped.
func (t *fakeTimer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.entries {
		if !e.stopped && !e.fired {
			n++
		}
	}
	return n
}

type chartCall struct {
	Symbol string
	Days   int
}

// fakeAPI records calls and returns canned responses.
type fakeAPI struct {
	mu sync.Mutex

	stocks      []models.Stock
	stocksErr   error
	listCalls   int
	listEntered chan struct{}
	listRelease chan struct{}

	updateMsg   string
	updateErr   error
	updateCalls int

	chartCalls []chartCall
	chartFn    func(symbol string, days int) (models.ChartSeries, error)
}

func (f *fakeAPI) ListStocks(ctx context.Context) ([]models.Stock, error) {
	f.mu.Lock()
	f.listCalls++
	entered, release := f.listEntered, f.listRelease
	stocks, err := f.stocks, f.stocksErr
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return append([]models.Stock(nil), stocks...), nil
}

func (f *fakeAPI) TriggerUpdate(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	return f.updateMsg, f.updateErr
}

func (f *fakeAPI) ChartData(ctx context.Context, symbol string, days int) (models.ChartSeries, error) {
	f.mu.Lock()
	f.chartCalls = append(f.chartCalls, chartCall{symbol, days})
	fn := f.chartFn
	f.mu.Unlock()

	if fn != nil {
		return fn(symbol, days)
	}
	return models.ChartSeries{Labels: []string{"2026-01-01", "2026-01-02"}, Prices: []float64{100, 110}}, nil
}

func (f *fakeAPI) setStocks(stocks []models.Stock, err error) {
	f.mu.Lock()
	f.stocks, f.stocksErr = stocks, err
	f.mu.Unlock()
}

func (f *fakeAPI) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeAPI) charts() []chartCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chartCall(nil), f.chartCalls...)
}

func sampleStocks() []models.Stock {
	p := func(v float64) *float64 { return &v }
	return []models.Stock{
		{Symbol: "AAA", Name: "Alpha", CurrentPrice: p(1000), YearReturn: 12.5},
		{Symbol: "BBB", Name: "Beta", CurrentPrice: p(2000), YearReturn: -4},
		{Symbol: "CCC", Name: "Gamma", CurrentPrice: nil, YearReturn: 0},
	}
}

func newTestController(api *fakeAPI) (*Controller, *fakeTimer) {
	timer := &fakeTimer{}
	c := New(Deps{
		API:    api,
		Charts: chart.NewFactory(64, 32),
		Timer:  timer,
	}, Options{})
	return c, timer
}
