package view

import (
	"fmt"
	"net/url"
	"strconv"

	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/bobmcallan/stock-portal/internal/models"
)

// Dashboard form actions.
const (
	ActionRefresh  = "/dashboard/refresh"
	ActionUpdate   = "/dashboard/update"
	ActionSelect   = "/dashboard/select"
	ActionPeriod   = "/dashboard/period"
	ActionTeardown = "/dashboard/teardown"
	ChartImagePath = "/dashboard/chart.png"
)

const (
	// EmptyGridMessage replaces the card grid when there are no stocks.
	EmptyGridMessage = "No stock data yet. Run a data update first."
	// SelectorPlaceholder labels the "none selected" option.
	SelectorPlaceholder = "Select a stock"
	// ChartPrompt is shown in place of the chart when nothing is selected.
	ChartPrompt = "Select a stock to see its price history."
)

// CardAction returns the form action for clicking a stock card.
func CardAction(symbol string) string {
	return "/dashboard/cards/" + url.PathEscape(symbol)
}

// ChartInfo describes the current chart, if any.
type ChartInfo struct {
	Title   string
	Version uint64
}

// Page is everything the full dashboard body needs.
type Page struct {
	Stocks      []models.Stock
	Grid        *Node // prebuilt card grid; built from Stocks when nil
	Statistics  models.Statistics
	Options     []models.SelectorOption
	Selection   models.Selection
	Periods     []int
	Banner      *models.Banner
	RefreshBusy bool
	UpdateBusy  bool
	Chart       *ChartInfo
	Formatter   *common.Formatter
}

// Dashboard builds the whole dashboard body.
func Dashboard(p Page) *Node {
	grid := p.Grid
	if grid == nil {
		grid = StockGrid(p.Stocks, p.Formatter)
	}
	return El("main", Attrs("class", "dashboard"),
		El("header", Attrs("class", "dashboard-header"),
			El("h1", nil, Text("Stock Dashboard")),
			Controls(p.RefreshBusy, p.UpdateBusy),
		),
		StatusBanner(p.Banner),
		StatisticsPanel(p.Statistics),
		El("section", Attrs("class", "chart-section"),
			El("div", Attrs("class", "chart-controls"),
				StockSelector(p.Options, p.Selection.Symbol),
				PeriodSelector(p.Periods, p.Selection.Days),
			),
			ChartPanel(p.Chart),
		),
		grid,
	)
}

// Controls builds the refresh and update buttons. A busy control is
// disabled and shows a loading indicator.
func Controls(refreshBusy, updateBusy bool) *Node {
	return El("div", Attrs("class", "controls"),
		actionButton(ActionRefresh, "refreshBtn", "Refresh", refreshBusy),
		actionButton(ActionUpdate, "updateBtn", "Update Data", updateBusy),
	)
}

func actionButton(action, id, label string, busy bool) *Node {
	attrs := Attrs("type", "submit", "id", id, "class", "btn")
	child := Text(label)
	if busy {
		attrs = append(attrs, Attr{Key: "disabled", Val: "disabled"}, Attr{Key: "aria-busy", Val: "true"})
		child = El("div", Attrs("class", "loading"))
	}
	return El("form", Attrs("method", "post", "action", action),
		El("button", attrs, child),
	)
}

// StatusBanner builds the status message area. A nil banner renders hidden.
// data-shown-at carries ShownAt in unix milliseconds so the page script
// hides the banner on the server's schedule rather than from page load.
func StatusBanner(b *models.Banner) *Node {
	if b == nil {
		return El("div", Attrs("id", "statusMessage", "class", "status-message", "hidden", "hidden"))
	}
	attrs := Attrs("id", "statusMessage", "class", "status-message "+string(b.Kind), "role", "status")
	if !b.ShownAt.IsZero() {
		attrs = append(attrs, Attr{Key: "data-shown-at", Val: strconv.FormatInt(b.ShownAt.UnixMilli(), 10)})
	}
	return El("div", attrs, Text(b.Text))
}

// StatisticsPanel builds the four counters.
func StatisticsPanel(st models.Statistics) *Node {
	return El("section", Attrs("id", "statistics", "class", "statistics"),
		statItem("totalStocks", "Total", st.Total),
		statItem("positiveStocks", "Rising", st.Positive),
		statItem("negativeStocks", "Falling", st.Negative),
		statItem("neutralStocks", "Unchanged", st.Neutral),
	)
}

func statItem(id, label string, n int) *Node {
	return El("div", Attrs("class", "stat-item"),
		El("span", Attrs("id", id, "class", "stat-value"), Text(strconv.Itoa(n))),
		El("span", Attrs("class", "stat-label"), Text(label)),
	)
}

// StockSelector builds the stock select. options is expected to start with
// the placeholder; the option whose value equals selected is marked.
func StockSelector(options []models.SelectorOption, selected string) *Node {
	sel := El("select", Attrs("id", "stockSelect", "name", "symbol", "onchange", "this.form.submit()"))
	for _, o := range options {
		attrs := Attrs("value", o.Value)
		if o.Value == selected {
			attrs = append(attrs, Attr{Key: "selected", Val: "selected"})
		}
		sel.Children = append(sel.Children, El("option", attrs, Text(o.Label)))
	}
	return El("form", Attrs("method", "post", "action", ActionSelect, "class", "selector"),
		El("label", Attrs("for", "stockSelect"), Text("Stock")),
		sel,
		El("noscript", nil, El("button", Attrs("type", "submit"), Text("Show"))),
	)
}

// PeriodLabel names a chart period.
func PeriodLabel(days int) string {
	switch days {
	case 30:
		return "1 month"
	case 90:
		return "3 months"
	case 180:
		return "6 months"
	case 365:
		return "1 year"
	}
	return fmt.Sprintf("%d days", days)
}

// PeriodSelector builds the period select.
func PeriodSelector(periods []int, selected int) *Node {
	sel := El("select", Attrs("id", "periodSelect", "name", "days", "onchange", "this.form.submit()"))
	for _, d := range periods {
		attrs := Attrs("value", strconv.Itoa(d))
		if d == selected {
			attrs = append(attrs, Attr{Key: "selected", Val: "selected"})
		}
		sel.Children = append(sel.Children, El("option", attrs, Text(PeriodLabel(d))))
	}
	return El("form", Attrs("method", "post", "action", ActionPeriod, "class", "selector"),
		El("label", Attrs("for", "periodSelect"), Text("Period")),
		sel,
		El("noscript", nil, El("button", Attrs("type", "submit"), Text("Show"))),
	)
}

// ChartPanel builds the chart area. Version busts the browser image cache
// whenever the chart is replaced.
func ChartPanel(c *ChartInfo) *Node {
	if c == nil {
		return El("div", Attrs("id", "chartPanel", "class", "chart-panel empty"),
			El("p", Attrs("class", "chart-prompt"), Text(ChartPrompt)),
		)
	}
	src := ChartImagePath + "?v=" + strconv.FormatUint(c.Version, 10)
	return El("div", Attrs("id", "chartPanel", "class", "chart-panel"),
		El("img", Attrs("id", "priceChart", "src", src, "alt", c.Title)),
	)
}

// StockGrid builds the card grid, or the empty-list prompt.
func StockGrid(stocks []models.Stock, f *common.Formatter) *Node {
	grid := El("section", Attrs("id", "stocksGrid", "class", "stocks-grid"))
	if len(stocks) == 0 {
		grid.Children = append(grid.Children, El("p", Attrs("class", "empty-message"), Text(EmptyGridMessage)))
		return grid
	}
	if f == nil {
		f = common.NewFormatter("", "")
	}
	for _, s := range stocks {
		grid.Children = append(grid.Children, StockCard(s, f))
	}
	return grid
}

// StockCard builds one click-activable card.
func StockCard(s models.Stock, f *common.Formatter) *Node {
	class := string(s.Classification())
	return El("form", Attrs("method", "post", "action", CardAction(s.Symbol),
		"class", "stock-card "+class, "data-symbol", s.Symbol),
		El("button", Attrs("type", "submit", "class", "card-button"),
			El("div", Attrs("class", "stock-name"), Text(s.Name)),
			El("div", Attrs("class", "stock-symbol"), Text(s.Symbol)),
			El("div", Attrs("class", "stock-price"), Text(f.FormatPrice(s.CurrentPrice))),
			El("div", Attrs("class", "stock-change "+class), Text(common.FormatReturn(s.YearReturn)+" (1Y)")),
			El("div", Attrs("class", "stock-range"),
				Text("High: "+f.FormatPrice(s.YearHigh)+" | Low: "+f.FormatPrice(s.YearLow))),
		),
	)
}
