package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/stock-portal/internal/chart"
	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/bobmcallan/stock-portal/internal/models"
)

var (
	// ErrBusy is returned when the triggering control is disabled because
	// its previous request is still in flight.
	ErrBusy = errors.New("dashboard: control is busy")
	// ErrClosed is returned after the controller has been torn down.
	ErrClosed = errors.New("dashboard: controller closed")
	// ErrUnknownEvent is returned by Dispatch for unregistered events.
	ErrUnknownEvent = errors.New("dashboard: unknown event")
	// ErrInvalidPeriod is returned for a non-numeric or non-positive period.
	ErrInvalidPeriod = errors.New("dashboard: period must be a positive number of days")
	// ErrNoChart is returned when no chart is currently drawn.
	ErrNoChart = errors.New("dashboard: no chart")
)

// StockAPI is the backend the controller reads from.
type StockAPI interface {
	ListStocks(ctx context.Context) ([]models.Stock, error)
	TriggerUpdate(ctx context.Context) (string, error)
	ChartData(ctx context.Context, symbol string, days int) (models.ChartSeries, error)
}

// ChartFactory draws charts.
type ChartFactory interface {
	New(title string, series models.ChartSeries) (*chart.Chart, error)
}

// Stopper cancels a pending timer. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Timer schedules delayed callbacks.
type Timer interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type realTimer struct{}

func (realTimer) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Deps are the controller's collaborators. API and Charts are required.
type Deps struct {
	API       StockAPI
	Charts    ChartFactory
	Timer     Timer
	Formatter *common.Formatter
	Logger    *common.Logger
}

// Options tune controller behaviour. Zero values take the defaults.
type Options struct {
	DefaultDays int
	Periods     []int
	StatusTTL   time.Duration
	ReloadDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.DefaultDays <= 0 {
		o.DefaultDays = 365
	}
	if len(o.Periods) == 0 {
		o.Periods = []int{30, 90, 180, 365}
	}
	if o.StatusTTL <= 0 {
		o.StatusTTL = 5 * time.Second
	}
	if o.ReloadDelay <= 0 {
		o.ReloadDelay = time.Second
	}
	return o
}
