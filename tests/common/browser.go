package common

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Default pauses after page loads, in milliseconds. Dashboard actions are
// full form posts, so every navigation waits for the next document.
const (
	navigateWaitMs = 800
	clickWaitMs    = 300
)

// BrowserConfig controls the headless Chrome instance used by UI tests.
type BrowserConfig struct {
	Headless bool
	Timeout  time.Duration
}

// DefaultBrowserConfig reads the [browser] section of the test config.
func DefaultBrowserConfig() *BrowserConfig {
	cfg := LoadTestConfig()
	return &BrowserConfig{
		Headless: cfg.Browser.Headless,
		Timeout:  time.Duration(cfg.Browser.TimeoutSecs) * time.Second,
	}
}

// NewBrowserContext starts Chrome. Each context has its own profile and
// therefore its own dashboard session cookie.
func NewBrowserContext(cfg *BrowserConfig) (context.Context, context.CancelFunc) {
	if cfg == nil {
		cfg = DefaultBrowserConfig()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)
	ctx, timeoutCancel := context.WithTimeout(ctx, cfg.Timeout)

	return ctx, func() {
		timeoutCancel()
		ctxCancel()
		allocCancel()
	}
}

// JSErrorCollector records uncaught exceptions and console.error calls.
type JSErrorCollector struct {
	mu     sync.Mutex
	errors []string
}

// NewJSErrorCollector starts listening on ctx's target.
func NewJSErrorCollector(ctx context.Context) *JSErrorCollector {
	c := &JSErrorCollector{}
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if msg, ok := jsErrorMessage(ev); ok {
			c.mu.Lock()
			c.errors = append(c.errors, msg)
			c.mu.Unlock()
		}
	})
	return c
}

// Errors returns the messages collected so far.
func (c *JSErrorCollector) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.errors...)
}

// ignoredJSError filters browser noise that says nothing about the page.
func ignoredJSError(msg string) bool {
	return strings.Contains(msg, "favicon") || strings.Contains(msg, "Content Security Policy")
}

func jsErrorMessage(ev interface{}) (string, bool) {
	switch e := ev.(type) {
	case *runtime.EventExceptionThrown:
		desc := e.ExceptionDetails.Text
		if ex := e.ExceptionDetails.Exception; ex != nil && ex.Description != "" {
			desc = ex.Description
		}
		if ignoredJSError(desc) {
			return "", false
		}
		return "EXCEPTION: " + desc, true

	case *runtime.EventConsoleAPICalled:
		if e.Type != runtime.APITypeError {
			return "", false
		}
		var parts []string
		for _, arg := range e.Args {
			switch {
			case arg.Value != nil:
				parts = append(parts, string(arg.Value))
			case arg.Description != "":
				parts = append(parts, arg.Description)
			}
		}
		msg := strings.Join(parts, " ")
		if msg == "" || ignoredJSError(msg) {
			return "", false
		}
		return "console.error: " + msg, true
	}
	return "", false
}

// ServerURL returns the portal under test. STOCK_TEST_URL points it at an
// already running server.
func ServerURL() string {
	if url := os.Getenv("STOCK_TEST_URL"); url != "" {
		return url
	}
	return LoadTestConfig().Server.URL
}

func pauseMs(ms, def int) chromedp.Action {
	if ms == 0 {
		ms = def
	}
	return chromedp.Sleep(time.Duration(ms) * time.Millisecond)
}

// NavigateAndWait loads url and waits for the body to render.
func NavigateAndWait(ctx context.Context, url string, waitMs int) error {
	return chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		pauseMs(waitMs, navigateWaitMs),
	)
}

// SelectOption sets a select element's value and submits its form, the
// same as the page's onchange handler.
func SelectOption(ctx context.Context, selector, value string, waitMs int) error {
	return chromedp.Run(ctx,
		chromedp.SetValue(selector, value, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(`document.querySelector('%s').form.submit()`, escJS(selector)), nil),
		pauseMs(waitMs, navigateWaitMs),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Click clicks an element that does not navigate.
func Click(ctx context.Context, selector string, waitMs int) error {
	return chromedp.Run(ctx,
		chromedp.Click(selector, chromedp.ByQuery),
		pauseMs(waitMs, clickWaitMs),
	)
}

// ClickNav clicks a form button and waits for the resulting page.
func ClickNav(ctx context.Context, selector string, waitMs int) error {
	return chromedp.Run(ctx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
		pauseMs(waitMs, navigateWaitMs),
	)
}

// SetViewport emulates a device size.
func SetViewport(ctx context.Context, width, height int64) error {
	return chromedp.Run(ctx, chromedp.EmulateViewport(width, height))
}

// Screenshot writes a full-page PNG to path.
func Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// query evaluates body with el bound to the first element matching
// selector (null when absent).
func query[T any](ctx context.Context, selector, body string) (T, error) {
	var out T
	js := fmt.Sprintf(`(() => { const el = document.querySelector('%s'); %s })()`, escJS(selector), body)
	err := chromedp.Run(ctx, chromedp.Evaluate(js, &out))
	return out, err
}

// IsHidden reports whether selector is absent, has the hidden attribute, or
// is not displayed. The status banner uses the hidden attribute.
func IsHidden(ctx context.Context, selector string) (bool, error) {
	return query[bool](ctx, selector, `return !el || el.hidden || getComputedStyle(el).display === 'none';`)
}

// IsVisible is the complement of IsHidden.
func IsVisible(ctx context.Context, selector string) (bool, error) {
	hidden, err := IsHidden(ctx, selector)
	return !hidden, err
}

// Exists reports whether selector matches anything.
func Exists(ctx context.Context, selector string) (bool, error) {
	return query[bool](ctx, selector, `return el !== null;`)
}

// ElementCount counts the elements matching selector.
func ElementCount(ctx context.Context, selector string) (int, error) {
	var count int
	err := chromedp.Run(ctx,
		chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll('%s').length`, escJS(selector)), &count),
	)
	return count, err
}

// TextContains reports whether the trimmed text of selector contains
// expected, returning the actual text as well.
func TextContains(ctx context.Context, selector, expected string) (bool, string, error) {
	actual, err := query[string](ctx, selector, `return el ? el.textContent.trim() : '';`)
	if err != nil {
		return false, "", err
	}
	return strings.Contains(actual, expected), actual, nil
}

// EvalBool evaluates a boolean JS expression.
func EvalBool(ctx context.Context, expr string) (bool, error) {
	var result bool
	err := chromedp.Run(ctx, chromedp.Evaluate(expr, &result))
	return result, err
}

func escJS(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
