package mcp

import (
	"fmt"
	"strings"

	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/bobmcallan/stock-portal/internal/models"
	"github.com/bobmcallan/stock-portal/internal/view"
)

// chartTableRows caps the price table in FormatChart; the summary covers
// the whole series.
const chartTableRows = 20

// FormatStocks formats the stock list as a markdown table followed by the
// statistics.
func FormatStocks(stocks []models.Stock, stats models.Statistics, f *common.Formatter) string {
	if f == nil {
		f = common.NewFormatter("", "")
	}
	var sb strings.Builder

	sb.WriteString("# Stocks\n\n")
	if len(stocks) == 0 {
		sb.WriteString(view.EmptyGridMessage + "\n\n")
	} else {
		sb.WriteString("| Symbol | Name | Price | 1Y Return | 1Y High | 1Y Low |\n")
		sb.WriteString("|--------|------|-------|-----------|---------|--------|\n")
		for _, s := range stocks {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
				escapeCell(s.Symbol),
				escapeCell(s.Name),
				f.FormatPrice(s.CurrentPrice),
				common.FormatReturn(s.YearReturn),
				f.FormatPrice(s.YearHigh),
				f.FormatPrice(s.YearLow),
			))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(FormatStatistics(stats))
	return sb.String()
}

// FormatStatistics formats the sign-partition counts.
func FormatStatistics(stats models.Statistics) string {
	var sb strings.Builder
	sb.WriteString("## Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- **Total:** %d\n", stats.Total))
	sb.WriteString(fmt.Sprintf("- **Rising:** %d\n", stats.Positive))
	sb.WriteString(fmt.Sprintf("- **Falling:** %d\n", stats.Negative))
	sb.WriteString(fmt.Sprintf("- **Unchanged:** %d\n", stats.Neutral))
	return sb.String()
}

// FormatChart summarises a price series and lists its most recent points.
func FormatChart(sel models.Selection, series models.ChartSeries, f *common.Formatter) string {
	if f == nil {
		f = common.NewFormatter("", "")
	}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s - %s\n\n", escapeCell(sel.Symbol), view.PeriodLabel(sel.Days)))
	n := series.Len()
	if n == 0 {
		sb.WriteString("No price data.\n")
		return sb.String()
	}

	first, last := series.Prices[0], series.Prices[n-1]
	low, high := first, first
	for _, p := range series.Prices {
		low = min(low, p)
		high = max(high, p)
	}
	sb.WriteString(fmt.Sprintf("**Points:** %d (%s to %s)\n", n, series.Labels[0], series.Labels[n-1]))
	sb.WriteString(fmt.Sprintf("**First:** %s\n", f.FormatPrice(&first)))
	sb.WriteString(fmt.Sprintf("**Last:** %s\n", f.FormatPrice(&last)))
	sb.WriteString(fmt.Sprintf("**High:** %s\n", f.FormatPrice(&high)))
	sb.WriteString(fmt.Sprintf("**Low:** %s\n", f.FormatPrice(&low)))
	if first != 0 {
		sb.WriteString(fmt.Sprintf("**Change:** %s\n", common.FormatReturn((last-first)/first*100)))
	}
	sb.WriteString("\n")

	hasVolumes := len(series.Volumes) == n
	if hasVolumes {
		sb.WriteString("| Date | Close | Volume |\n")
		sb.WriteString("|------|-------|--------|\n")
	} else {
		sb.WriteString("| Date | Close |\n")
		sb.WriteString("|------|-------|\n")
	}
	start := max(0, n-chartTableRows)
	for i := start; i < n; i++ {
		price := series.Prices[i]
		if hasVolumes {
			vol := series.Volumes[i]
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", series.Labels[i], f.FormatPrice(&price), f.FormatNumber(&vol)))
		} else {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", series.Labels[i], f.FormatPrice(&price)))
		}
	}
	return sb.String()
}

// FormatStockDetail formats one stock's analysis as a markdown list.
func FormatStockDetail(d models.StockDetail, f *common.Formatter) string {
	if f == nil {
		f = common.NewFormatter("", "")
	}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeCell(d.Label())))
	sb.WriteString(fmt.Sprintf("- **Price:** %s\n", f.FormatPrice(d.CurrentPrice)))
	sb.WriteString(fmt.Sprintf("- **1Y Return:** %s\n", common.FormatReturn(d.YearReturn)))
	sb.WriteString(fmt.Sprintf("- **1Y High:** %s\n", f.FormatPrice(d.YearHigh)))
	sb.WriteString(fmt.Sprintf("- **1Y Low:** %s\n", f.FormatPrice(d.YearLow)))
	if d.Sector != "" {
		sb.WriteString(fmt.Sprintf("- **Sector:** %s\n", escapeCell(d.Sector)))
	}
	if d.MarketCap != nil && *d.MarketCap > 0 {
		sb.WriteString(fmt.Sprintf("- **Market Cap:** %s\n", f.FormatPrice(d.MarketCap)))
	}
	return sb.String()
}

// FormatCompanies formats the registered companies as a markdown table.
func FormatCompanies(companies []models.Company, f *common.Formatter) string {
	if f == nil {
		f = common.NewFormatter("", "")
	}
	var sb strings.Builder

	sb.WriteString("# Companies\n\n")
	if len(companies) == 0 {
		sb.WriteString("No companies registered.\n")
		return sb.String()
	}
	sb.WriteString("| Symbol | Name | Sector | Market Cap |\n")
	sb.WriteString("|--------|------|--------|------------|\n")
	for _, c := range companies {
		marketCap := common.Placeholder
		if c.MarketCap > 0 {
			mc := c.MarketCap
			marketCap = f.FormatPrice(&mc)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			escapeCell(c.Symbol), escapeCell(c.Name), escapeCell(c.Sector), marketCap))
	}
	return sb.String()
}

// escapeCell keeps user data from breaking a markdown table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
