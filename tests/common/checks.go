package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/chromedp"
)

// CheckResult is the outcome of one step of a CheckRequest.
type CheckResult struct {
	Name   string
	Pass   bool
	Detail string
}

// CheckRequest describes a page check run. Checks are "selector|state"
// where state is hidden, visible, exists, gone, text=SUBSTRING or a count
// comparison such as count=4 or count>=1. Clicks run before ClickNavs,
// which run before Checks and Evals.
type CheckRequest struct {
	URL        string
	Viewport   string // WIDTHxHEIGHT
	Screenshot string
	WaitMs     int
	Checks     []string
	Clicks     []string
	ClickNavs  []string
	Evals      []string
}

// CheckResponse collects the results of a run.
type CheckResponse struct {
	Results []CheckResult
	Passed  int
	Failed  int
}

func (r *CheckResponse) add(res CheckResult) {
	r.Results = append(r.Results, res)
	if res.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// RunChecks loads req.URL and runs every step. A navigation failure aborts
// the run; step failures are recorded and the run continues.
func RunChecks(ctx context.Context, req CheckRequest) (*CheckResponse, error) {
	var actions []chromedp.Action
	if w, h, ok := parseViewport(req.Viewport); ok {
		actions = append(actions, chromedp.EmulateViewport(w, h))
	}
	waitMs := req.WaitMs
	if waitMs == 0 {
		waitMs = 1000
	}
	actions = append(actions,
		chromedp.Navigate(req.URL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		pauseMs(waitMs, 0),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", req.URL, err)
	}

	resp := &CheckResponse{}
	for _, sel := range req.Clicks {
		resp.add(stepResult("click("+sel+")", Click(ctx, sel, clickWaitMs)))
	}
	for _, sel := range req.ClickNavs {
		resp.add(stepResult("clicknav("+sel+")", ClickNav(ctx, sel, waitMs)))
	}
	for _, c := range req.Checks {
		sel, state, ok := strings.Cut(c, "|")
		if !ok {
			resp.add(CheckResult{Name: c, Detail: "bad format, need selector|state"})
			continue
		}
		resp.add(RunCheck(ctx, sel, state))
	}
	for _, expr := range req.Evals {
		resp.add(evalCheck(ctx, expr))
	}

	if req.Screenshot != "" {
		if err := Screenshot(ctx, req.Screenshot); err != nil {
			return resp, fmt.Errorf("screenshot failed: %w", err)
		}
	}
	return resp, nil
}

func stepResult(name string, err error) CheckResult {
	if err != nil {
		return CheckResult{Name: name, Detail: err.Error()}
	}
	return CheckResult{Name: name, Pass: true, Detail: "ok"}
}

// RunCheck evaluates one "selector|state" check.
func RunCheck(ctx context.Context, selector, state string) CheckResult {
	name := fmt.Sprintf("check(%s|%s)", selector, state)
	fail := func(err error) CheckResult { return CheckResult{Name: name, Detail: err.Error()} }

	switch {
	case state == "hidden" || state == "visible":
		hidden, err := IsHidden(ctx, selector)
		if err != nil {
			return fail(err)
		}
		pass := hidden == (state == "hidden")
		return CheckResult{Name: name, Pass: pass, Detail: fmt.Sprintf("hidden=%v", hidden)}

	case state == "exists" || state == "gone":
		exists, err := Exists(ctx, selector)
		if err != nil {
			return fail(err)
		}
		pass := exists == (state == "exists")
		return CheckResult{Name: name, Pass: pass, Detail: fmt.Sprintf("exists=%v", exists)}

	case strings.HasPrefix(state, "text="):
		pass, actual, err := TextContains(ctx, selector, strings.TrimPrefix(state, "text="))
		if err != nil {
			return fail(err)
		}
		return CheckResult{Name: name, Pass: pass, Detail: "got: " + Truncate(actual, 60)}

	case strings.HasPrefix(state, "count"):
		count, err := ElementCount(ctx, selector)
		if err != nil {
			return fail(err)
		}
		pass, err := compareCount(state, count)
		if err != nil {
			return fail(err)
		}
		return CheckResult{Name: name, Pass: pass, Detail: fmt.Sprintf("count=%d", count)}
	}
	return CheckResult{Name: name, Detail: "unknown state: " + state}
}

// countOps is ordered so two-character operators match first.
var countOps = []struct {
	op  string
	cmp func(a, b int) bool
}{
	{">=", func(a, b int) bool { return a >= b }},
	{"<=", func(a, b int) bool { return a <= b }},
	{">", func(a, b int) bool { return a > b }},
	{"<", func(a, b int) bool { return a < b }},
	{"=", func(a, b int) bool { return a == b }},
}

// compareCount evaluates expressions such as "count>=3" against actual.
func compareCount(expr string, actual int) (bool, error) {
	rest := strings.TrimPrefix(expr, "count")
	for _, o := range countOps {
		if num, ok := strings.CutPrefix(rest, o.op); ok {
			n, err := strconv.Atoi(strings.TrimSpace(num))
			if err != nil {
				return false, fmt.Errorf("bad count in %q", expr)
			}
			return o.cmp(actual, n), nil
		}
	}
	return false, fmt.Errorf("bad count operator in %q", expr)
}

func evalCheck(ctx context.Context, expr string) CheckResult {
	name := "eval(" + Truncate(expr, 50) + ")"
	var val interface{}
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &val)); err != nil {
		return CheckResult{Name: name, Detail: err.Error()}
	}
	return CheckResult{Name: name, Pass: truthy(val), Detail: fmt.Sprintf("returned: %v", val)}
}

// truthy follows JavaScript truthiness for JSON-decoded values.
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	}
	return true
}

func parseViewport(s string) (int64, int64, bool) {
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, false
	}
	w, err1 := strconv.ParseInt(ws, 10, 64)
	h, err2 := strconv.ParseInt(hs, 10, 64)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// Truncate shortens s to n bytes, marking the cut.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
