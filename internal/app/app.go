package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/stock-portal/internal/cache"
	"github.com/bobmcallan/stock-portal/internal/chart"
	"github.com/bobmcallan/stock-portal/internal/client"
	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/bobmcallan/stock-portal/internal/config"
	"github.com/bobmcallan/stock-portal/internal/dashboard"
	"github.com/bobmcallan/stock-portal/internal/handlers"
	"github.com/bobmcallan/stock-portal/internal/mcp"
	"github.com/bobmcallan/stock-portal/internal/scheduler"
	"github.com/bobmcallan/stock-portal/internal/session"
)

// seriesCacheEntries bounds the chart-series cache.
const seriesCacheEntries = 256

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Client    *client.StockClient
	Charts    *chart.Factory
	Formatter *common.Formatter
	Sessions  *session.Manager
	Scheduler *scheduler.Scheduler

	// HTTP handlers
	HealthHandler       *handlers.HealthHandler
	VersionHandler      *handlers.VersionHandler
	ServerHealthHandler *handlers.ServerHealthHandler
	DashboardHandler    *handlers.DashboardHandler
	StaticHandler       *handlers.StaticHandler
	MCPHandler          *mcp.Handler

	ctx    context.Context
	cancel context.CancelFunc
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Config: cfg,
		Logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	// Validate environment setting
	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	a.initServices()

	a.Scheduler = scheduler.New(ctx, a.Client, a.Sessions, logger)
	if err := a.Scheduler.Register(cfg.Dashboard.UpdateCron); err != nil {
		cancel()
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	a.initHandlers()

	logger.Info().
		Str("api_url", cfg.API.URL).
		Str("currency", a.Formatter.Currency()).
		Msg("application initialization complete")

	return a, nil
}

// initServices builds the backend client, chart factory and session manager.
func (a *App) initServices() {
	cfg := a.Config

	a.Client = client.NewStockClient(cfg.API.URL,
		client.WithTimeout(cfg.API.GetTimeout()),
		client.WithUpdateTimeout(cfg.API.GetUpdateTimeout()),
		client.WithSeriesCache(cache.New(cfg.Dashboard.GetChartCacheTTL(), seriesCacheEntries)),
	)
	a.Charts = chart.NewFactory(cfg.Dashboard.ChartWidth, cfg.Dashboard.ChartHeight)
	a.Formatter = common.NewFormatter(cfg.Dashboard.Currency, cfg.Dashboard.Locale)
	a.Sessions = session.NewManager(a.NewController, cfg.Dashboard.GetSessionTTL(), a.Logger)

	a.Logger.Debug().Msg("services initialized")
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ServerHealthHandler = handlers.NewServerHealthHandler(a.Logger, a.Client)
	a.StaticHandler = handlers.NewStaticHandler(a.Logger)
	a.DashboardHandler = handlers.NewDashboardHandler(a.Logger, a.Sessions, handlers.LoadTemplates(), a.Config.IsDevMode())

	if a.Config.MCP.Enabled {
		a.MCPHandler = mcp.NewHandler(a.Client, a.NewController, a.Formatter, a.Logger)
	}

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// NewController builds an uninitialized dashboard controller wired to the
// shared backend client and chart factory.
func (a *App) NewController() *dashboard.Controller {
	return dashboard.New(dashboard.Deps{
		API:       a.Client,
		Charts:    a.Charts,
		Formatter: a.Formatter,
		Logger:    a.Logger,
	}, dashboard.Options{
		DefaultDays: a.Config.Dashboard.DefaultDays,
		Periods:     a.Config.Dashboard.Periods,
		StatusTTL:   a.Config.Dashboard.GetStatusTTL(),
		ReloadDelay: a.Config.Dashboard.GetReloadDelay(),
	})
}

// Start starts background jobs.
func (a *App) Start() {
	a.Scheduler.Start()
}

// Close closes all application resources.
func (a *App) Close() error {
	a.Scheduler.Stop()
	a.Sessions.Close()
	a.cancel()
	return nil
}
