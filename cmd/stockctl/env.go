package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/bobmcallan/stock-portal/internal/cache"
	"github.com/bobmcallan/stock-portal/internal/chart"
	"github.com/bobmcallan/stock-portal/internal/client"
	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/bobmcallan/stock-portal/internal/config"
	"github.com/bobmcallan/stock-portal/internal/dashboard"
)

// as a CLI application it has a short lifecycle, so global flags are fine.
var (
	configFile = flag.String("config", "", "Path to a stock-portal TOML or YAML config file")
	apiURL     = flag.String("api", "", "Stock backend URL (overrides config)")
	rawOutput  = flag.Bool("raw", false, "Print plain markdown instead of rendering it")
	logLevel   = flag.String("log-level", "warn", "Log level written to stderr")
)

// out is where command output goes; tests replace it.
var out io.Writer = os.Stdout

// env is the wiring shared by every command.
type env struct {
	cfg       *config.Config
	client    *client.StockClient
	charts    *chart.Factory
	formatter *common.Formatter
	logger    *common.Logger
}

func newEnv() (*env, error) {
	var paths []string
	if *configFile != "" {
		paths = append(paths, *configFile)
	}
	cfg, err := config.LoadFromFiles(paths...)
	if err != nil {
		return nil, err
	}
	if *apiURL != "" {
		cfg.API.URL = strings.TrimSpace(*apiURL)
	}

	return &env{
		cfg: cfg,
		client: client.NewStockClient(cfg.API.URL,
			client.WithTimeout(cfg.API.GetTimeout()),
			client.WithUpdateTimeout(cfg.API.GetUpdateTimeout()),
			client.WithSeriesCache(cache.New(cfg.Dashboard.GetChartCacheTTL(), 16)),
		),
		charts:    chart.NewFactory(cfg.Dashboard.ChartWidth, cfg.Dashboard.ChartHeight),
		formatter: common.NewFormatter(cfg.Dashboard.Currency, cfg.Dashboard.Locale),
		logger:    common.NewLoggerWithOutput(*logLevel, os.Stderr),
	}, nil
}

// newController builds an uninitialized headless controller.
func (e *env) newController() *dashboard.Controller {
	return dashboard.New(dashboard.Deps{
		API:       e.client,
		Charts:    e.charts,
		Formatter: e.formatter,
		Logger:    e.logger,
	}, dashboard.Options{
		DefaultDays: e.cfg.Dashboard.DefaultDays,
		Periods:     e.cfg.Dashboard.Periods,
		StatusTTL:   e.cfg.Dashboard.GetStatusTTL(),
		ReloadDelay: e.cfg.Dashboard.GetReloadDelay(),
	})
}

// printMarkdown renders md for the terminal, or prints it as-is with -raw.
func printMarkdown(md string) {
	if *rawOutput {
		fmt.Fprint(out, md)
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		fmt.Fprint(out, md)
		return
	}
	rendered, err := r.Render(md)
	if err != nil {
		fmt.Fprint(out, md)
		return
	}
	fmt.Fprint(out, rendered)
}
