// Command browser-check loads a portal page in headless Chrome and runs
// selector checks against it.
//
// Usage:
//
//	go run ./tests/browser-check -url http://localhost:4241/dashboard
//	go run ./tests/browser-check -url http://localhost:4241/dashboard -check '#stocksGrid .stock-card|count>=1'
//	go run ./tests/browser-check -url http://localhost:4241/dashboard -clicknav '.stock-card .card-button' -check '#priceChart|visible'
//	go run ./tests/browser-check -url http://localhost:4241/dashboard -viewport 375x812 -screenshot /tmp/dash.png
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	commontest "github.com/bobmcallan/stock-portal/tests/common"
)

// multiFlag allows repeated -check, -click, -clicknav or -eval flags.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ", ") }
func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	var (
		url        string
		viewport   string
		screenshot string
		waitMs     int
		checks     multiFlag
		clicks     multiFlag
		clickNavs  multiFlag
		evals      multiFlag
	)

	flag.StringVar(&url, "url", "", "URL to test (required)")
	flag.StringVar(&viewport, "viewport", "", "Viewport as WxH, e.g. 375x812")
	flag.StringVar(&screenshot, "screenshot", "", "Save screenshot to path")
	flag.IntVar(&waitMs, "wait", 1000, "Wait ms after load")
	flag.Var(&checks, "check", "selector|state  (state: visible, hidden, exists, gone, text=X, count>N)")
	flag.Var(&clicks, "click", "CSS selector to click (in order, before -check)")
	flag.Var(&clickNavs, "clicknav", "CSS selector to click that submits a form")
	flag.Var(&evals, "eval", "JS expression that must return truthy")
	flag.Parse()

	if url == "" {
		fmt.Fprintln(os.Stderr, "ERROR: -url is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := commontest.NewBrowserContext(&commontest.BrowserConfig{
		Headless: true,
		Timeout:  30 * time.Second,
	})
	defer cancel()

	jsErrors := commontest.NewJSErrorCollector(ctx)

	resp, err := commontest.RunChecks(ctx, commontest.CheckRequest{
		URL:        url,
		Viewport:   viewport,
		Screenshot: screenshot,
		WaitMs:     waitMs,
		Checks:     checks,
		Clicks:     clicks,
		ClickNavs:  clickNavs,
		Evals:      evals,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}

	results := append([]commontest.CheckResult{}, resp.Results...)
	if errs := jsErrors.Errors(); len(errs) > 0 {
		results = append([]commontest.CheckResult{{Name: "js-errors", Pass: false, Detail: strings.Join(errs, "; ")}}, results...)
		resp.Failed++
	} else {
		results = append([]commontest.CheckResult{{Name: "js-errors", Pass: true, Detail: "none"}}, results...)
		resp.Passed++
	}

	for _, r := range results {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Printf("%s  %s  %s\n", status, r.Name, commontest.Truncate(r.Detail, 100))
	}
	if screenshot != "" {
		fmt.Printf("screenshot: %s\n", screenshot)
	}
	fmt.Printf("\n%d passed, %d failed\n", resp.Passed, resp.Failed)

	if resp.Failed > 0 {
		os.Exit(1)
	}
}
