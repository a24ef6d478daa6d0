package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/stock-portal/internal/client"
	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/bobmcallan/stock-portal/internal/dashboard"
	"github.com/bobmcallan/stock-portal/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolNames lists the registered tools in registration order.
var ToolNames = []string{
	"list_stocks",
	"get_statistics",
	"get_chart_data",
	"get_stock_detail",
	"list_companies",
	"update_stock_data",
	"get_version",
}

// Tools runs each tool call on its own headless controller, so tool calls
// share no selection or chart state with browser sessions or each other.
type Tools struct {
	Backend       Backend
	NewController ControllerFactory
	Formatter     *common.Formatter
}

// RegisterTools registers all MCP tools on the server.
func RegisterTools(s *server.MCPServer, t *Tools) {
	s.AddTool(listStocksTool(), t.handleListStocks)
	s.AddTool(statisticsTool(), t.handleStatistics)
	s.AddTool(chartDataTool(), t.handleChartData)
	s.AddTool(stockDetailTool(), t.handleStockDetail)
	s.AddTool(listCompaniesTool(), t.handleListCompanies)
	s.AddTool(updateTool(), t.handleUpdate)
	s.AddTool(VersionTool(), VersionToolHandler(t.Backend))
}

func listStocksTool() mcp.Tool {
	return mcp.NewTool("list_stocks",
		mcp.WithDescription("List every tracked stock with current price, 1-year return and 1-year high/low, followed by rising/falling/unchanged counts."),
	)
}

func statisticsTool() mcp.Tool {
	return mcp.NewTool("get_statistics",
		mcp.WithDescription("Count tracked stocks by the sign of their 1-year return: total, rising, falling and unchanged."),
	)
}

func chartDataTool() mcp.Tool {
	return mcp.NewTool("get_chart_data",
		mcp.WithDescription("Get the daily close-price history for one stock over the last N days."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Stock symbol (e.g., '005930')")),
		mcp.WithNumber("days", mcp.Description("Number of days of history (default 365)")),
	)
}

func stockDetailTool() mcp.Tool {
	return mcp.NewTool("get_stock_detail",
		mcp.WithDescription("Get the backend's analysis of one stock: price, 1-year return and range, sector and market cap."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Stock symbol (e.g., '005930')")),
	)
}

func listCompaniesTool() mcp.Tool {
	return mcp.NewTool("list_companies",
		mcp.WithDescription("List the companies registered with the stock backend, with sector and market cap."),
	)
}

func updateTool() mcp.Tool {
	return mcp.NewTool("update_stock_data",
		mcp.WithDescription("SLOW: Ask the stock backend to collect fresh prices and recompute returns. Takes about 1-2 minutes."),
	)
}

// withController runs fn on a fresh controller and tears it down afterwards.
func (t *Tools) withController(fn func(c *dashboard.Controller) error) (*dashboard.Controller, error) {
	c := t.NewController()
	defer c.Close()
	return c, fn(c)
}

// failureText prefers the user-facing banner over the raw error.
func failureText(c *dashboard.Controller, err error) string {
	if b := c.Banner(); b != nil && b.Kind == models.StatusError {
		return b.Text
	}
	return err.Error()
}

func (t *Tools) handleListStocks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stocks []models.Stock
	var stats models.Statistics
	c, err := t.withController(func(c *dashboard.Controller) error {
		if err := c.LoadStocks(ctx); err != nil {
			return err
		}
		stocks, stats = c.Stocks(), c.Statistics()
		return nil
	})
	if err != nil {
		return errorResult(failureText(c, err)), nil
	}
	return textResult(FormatStocks(stocks, stats, c.Formatter())), nil
}

func (t *Tools) handleStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats models.Statistics
	c, err := t.withController(func(c *dashboard.Controller) error {
		if err := c.LoadStocks(ctx); err != nil {
			return err
		}
		stats = c.Statistics()
		return nil
	})
	if err != nil {
		return errorResult(failureText(c, err)), nil
	}
	return textResult(FormatStatistics(stats)), nil
}

func (t *Tools) handleChartData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbol, err := request.RequireString("symbol")
	if err != nil || strings.TrimSpace(symbol) == "" {
		return errorResult("Error: symbol parameter is required"), nil
	}
	days := request.GetInt("days", 0)

	var series models.ChartSeries
	var sel models.Selection
	c, err := t.withController(func(c *dashboard.Controller) error {
		if days != 0 {
			if err := c.SelectPeriod(ctx, days); err != nil {
				return err
			}
		}
		if err := c.SelectStock(ctx, symbol); err != nil {
			return err
		}
		series, _ = c.ChartSeries()
		sel = c.Selection()
		return nil
	})
	if err != nil {
		return errorResult(failureText(c, err)), nil
	}
	return textResult(FormatChart(sel, series, c.Formatter())), nil
}

func (t *Tools) handleStockDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbol, err := request.RequireString("symbol")
	symbol = strings.TrimSpace(symbol)
	if err != nil || symbol == "" {
		return errorResult("Error: symbol parameter is required"), nil
	}
	detail, err := t.Backend.StockDetail(ctx, symbol)
	if client.IsNotFound(err) {
		return errorResult(fmt.Sprintf("Stock %s not found", symbol)), nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("Error: %v", err)), nil
	}
	return textResult(FormatStockDetail(detail, t.Formatter)), nil
}

func (t *Tools) handleListCompanies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	companies, err := t.Backend.ListCompanies(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: %v", err)), nil
	}
	return textResult(FormatCompanies(companies, t.Formatter)), nil
}

func (t *Tools) handleUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := t.withController(func(c *dashboard.Controller) error {
		return c.TriggerUpdate(ctx)
	})
	if err != nil {
		return errorResult(failureText(c, err)), nil
	}
	return textResult(c.Banner().Text), nil
}
