package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/stock-portal/internal/client"
	"github.com/bobmcallan/stock-portal/internal/dashboard"
	"github.com/bobmcallan/stock-portal/internal/mcp"
	"github.com/bobmcallan/stock-portal/internal/models"
)

// session opens an env and an initialized controller, runs fn and reports
// failures through the controller's error banner when it has one.
func session(ctx context.Context, fn func(e *env, c *dashboard.Controller) error) subcommands.ExitStatus {
	e, err := newEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stockctl: %v\n", err)
		return subcommands.ExitFailure
	}
	c := e.newController()
	defer c.Close()

	err = c.Initialize(ctx)
	if err == nil {
		err = fn(e, c)
	}
	if err != nil {
		msg := err.Error()
		if b := c.Banner(); b != nil && b.Kind == models.StatusError {
			msg = b.Text
		}
		fmt.Fprintf(os.Stderr, "stockctl: %s\n", msg)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type stocksCmd struct{}

func (*stocksCmd) Name() string     { return "stocks" }
func (*stocksCmd) Synopsis() string { return "list tracked stocks with returns and statistics" }
func (*stocksCmd) Usage() string {
	return `stocks:
  Print every tracked stock with price, 1-year return and 1-year range.
`
}
func (*stocksCmd) SetFlags(f *flag.FlagSet) {}

func (*stocksCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return session(ctx, func(e *env, c *dashboard.Controller) error {
		printMarkdown(mcp.FormatStocks(c.Stocks(), c.Statistics(), e.formatter))
		return nil
	})
}

type statsCmd struct{}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "count stocks by the sign of their 1-year return" }
func (*statsCmd) Usage() string {
	return `stats:
  Print total, rising, falling and unchanged counts.
`
}
func (*statsCmd) SetFlags(f *flag.FlagSet) {}

func (*statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return session(ctx, func(e *env, c *dashboard.Controller) error {
		printMarkdown(mcp.FormatStatistics(c.Statistics()))
		return nil
	})
}

type chartCmd struct {
	symbol string
	days   int
	output string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "print a stock's price history and optionally save the chart" }
func (*chartCmd) Usage() string {
	return `chart -s SYMBOL [-d DAYS] [-o chart.png]:
  Load the close-price chart for SYMBOL over the last DAYS days.
`
}
func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "stock symbol (required)")
	f.IntVar(&c.days, "d", 0, "days of history (default from config)")
	f.StringVar(&c.output, "o", "", "write the chart as PNG to this file")
}

func (cmd *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if strings.TrimSpace(cmd.symbol) == "" {
		fmt.Fprintln(os.Stderr, "stockctl: -s is required")
		return subcommands.ExitUsageError
	}
	return session(ctx, func(e *env, c *dashboard.Controller) error {
		if cmd.days != 0 {
			if err := c.Dispatch(ctx, dashboard.EventSelectPeriod, strconv.Itoa(cmd.days)); err != nil {
				return err
			}
		}
		if err := c.Dispatch(ctx, dashboard.EventSelectStock, cmd.symbol); err != nil {
			return err
		}
		if cmd.output != "" {
			png, err := c.ChartPNG()
			if err != nil {
				return err
			}
			if err := os.WriteFile(cmd.output, png, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
		}
		series, _ := c.ChartSeries()
		printMarkdown(mcp.FormatChart(c.Selection(), series, e.formatter))
		return nil
	})
}

type updateCmd struct{}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "ask the backend to collect fresh prices" }
func (*updateCmd) Usage() string {
	return `update:
  Trigger a backend data update and print the stock list afterwards.
  Takes about 1-2 minutes.
`
}
func (*updateCmd) SetFlags(f *flag.FlagSet) {}

func (*updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return session(ctx, func(e *env, c *dashboard.Controller) error {
		fmt.Fprintln(os.Stderr, "Updating stock data... (takes about 1-2 minutes)")
		if err := c.Dispatch(ctx, dashboard.EventUpdate, ""); err != nil {
			return err
		}
		if err := c.Dispatch(ctx, dashboard.EventRefresh, ""); err != nil {
			return err
		}
		printMarkdown(mcp.FormatStocks(c.Stocks(), c.Statistics(), e.formatter))
		return nil
	})
}

type stockCmd struct {
	symbol string
}

func (*stockCmd) Name() string     { return "stock" }
func (*stockCmd) Synopsis() string { return "print the backend's analysis of one stock" }
func (*stockCmd) Usage() string {
	return `stock -s SYMBOL:
  Print price, 1-year return and range, sector and market cap for SYMBOL.
`
}
func (c *stockCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "stock symbol (required)")
}

func (cmd *stockCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbol := strings.TrimSpace(cmd.symbol)
	if symbol == "" {
		fmt.Fprintln(os.Stderr, "stockctl: -s is required")
		return subcommands.ExitUsageError
	}
	e, err := newEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stockctl: %v\n", err)
		return subcommands.ExitFailure
	}
	detail, err := e.client.StockDetail(ctx, symbol)
	if client.IsNotFound(err) {
		fmt.Fprintf(os.Stderr, "stockctl: stock %s not found\n", symbol)
		return subcommands.ExitFailure
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "stockctl: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(mcp.FormatStockDetail(detail, e.formatter))
	return subcommands.ExitSuccess
}

type companiesCmd struct{}

func (*companiesCmd) Name() string     { return "companies" }
func (*companiesCmd) Synopsis() string { return "list companies registered with the backend" }
func (*companiesCmd) Usage() string {
	return `companies:
  Print symbol, name, sector and market cap for every registered company.
`
}
func (*companiesCmd) SetFlags(f *flag.FlagSet) {}

func (*companiesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := newEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stockctl: %v\n", err)
		return subcommands.ExitFailure
	}
	companies, err := e.client.ListCompanies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stockctl: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(mcp.FormatCompanies(companies, e.formatter))
	return subcommands.ExitSuccess
}

type mcpCmd struct{}

func (*mcpCmd) Name() string     { return "mcp" }
func (*mcpCmd) Synopsis() string { return "serve the dashboard tools over MCP on stdio" }
func (*mcpCmd) Usage() string {
	return `mcp:
  Run an MCP server on stdin/stdout for desktop MCP clients.
`
}
func (*mcpCmd) SetFlags(f *flag.FlagSet) {}

func (*mcpCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := newEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stockctl: %v\n", err)
		return subcommands.ExitFailure
	}
	s := mcp.NewServer(e.client, e.newController, e.formatter)
	if err := mcpserver.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "stockctl: mcp: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
