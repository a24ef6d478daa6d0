package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"testing"

	commontest "github.com/bobmcallan/stock-portal/tests/common"
)

// newClient starts (or reuses) the portal and returns its URL and a client
// with its own cookie jar, so each test holds its own dashboard session.
func newClient(t *testing.T) (string, *http.Client) {
	t.Helper()
	if os.Getenv("STOCK_API_TESTS") == "" && os.Getenv("STOCK_TEST_URL") == "" {
		t.Skip("set STOCK_API_TESTS=1 or STOCK_TEST_URL to run API integration tests")
	}
	base := commontest.ServerURL()
	if p := commontest.StartPortal(t); p != nil {
		base = p.URL()
	}
	jar, _ := cookiejar.New(nil)
	return base, &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postJSON(t *testing.T, c *http.Client, target string, form url.Values) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", target, err)
	}
	return resp, decode(t, resp)
}

func getJSON(t *testing.T, c *http.Client, target string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("decode %s: %v\n%s", resp.Request.URL, err, body)
	}
	return m
}

func TestAPIHealth(t *testing.T) {
	base, c := newClient(t)

	resp, body := getJSON(t, c, base+"/api/health")
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}

	resp, body = getJSON(t, c, base+"/api/server-health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("server-health = %d %v", resp.StatusCode, body)
	}
}

func TestAPIVersion(t *testing.T) {
	base, c := newClient(t)

	_, body := getJSON(t, c, base+"/api/version")
	for _, key := range []string{"version", "build", "git_commit"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing %s in version response", key)
		}
	}
}

func TestAPIDashboardSnapshot(t *testing.T) {
	base, c := newClient(t)

	resp, body := getJSON(t, c, base+"/dashboard/state")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state = %d %v", resp.StatusCode, body)
	}
	stocks, _ := body["stocks"].([]any)
	if len(stocks) != 3 {
		t.Errorf("stocks = %d, want 3", len(stocks))
	}
	stats, _ := body["statistics"].(map[string]any)
	if stats["total"] != float64(3) {
		t.Errorf("statistics = %v", stats)
	}
}

func TestAPISelectAndChart(t *testing.T) {
	base, c := newClient(t)

	getJSON(t, c, base+"/dashboard/state")
	resp, body := postJSON(t, c, base+"/dashboard/select", url.Values{"symbol": {"005930"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select = %d %v", resp.StatusCode, body)
	}

	img, err := c.Get(base + "/dashboard/chart.png")
	if err != nil {
		t.Fatal(err)
	}
	defer img.Body.Close()
	if img.StatusCode != http.StatusOK {
		t.Fatalf("chart = %d", img.StatusCode)
	}
	if ct := img.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
}

func TestAPIInvalidPeriod(t *testing.T) {
	base, c := newClient(t)

	getJSON(t, c, base+"/dashboard/state")
	resp, body := postJSON(t, c, base+"/dashboard/period", url.Values{"days": {"abc"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if body["status"] != "error" {
		t.Errorf("body = %v", body)
	}
}

func TestAPIUnknownSymbolChart(t *testing.T) {
	base, c := newClient(t)

	getJSON(t, c, base+"/dashboard/state")
	resp, body := postJSON(t, c, base+"/dashboard/cards/999999", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "unknown symbol") {
		t.Errorf("error = %q", msg)
	}
}

func TestAPITeardown(t *testing.T) {
	base, c := newClient(t)

	getJSON(t, c, base+"/dashboard/state")
	resp, body := postJSON(t, c, base+"/dashboard/teardown", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "closed" {
		t.Errorf("teardown = %d %v", resp.StatusCode, body)
	}

	img, err := c.Get(base + "/dashboard/chart.png")
	if err != nil {
		t.Fatal(err)
	}
	img.Body.Close()
	if img.StatusCode != http.StatusNotFound {
		t.Errorf("chart after teardown = %d, want 404", img.StatusCode)
	}
}

func TestAPIMCPToolsList(t *testing.T) {
	base, c := newClient(t)

	req, _ := http.NewRequest(http.MethodPost, base+"/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tools/list = %d: %s", resp.StatusCode, body)
	}
	for _, name := range []string{"list_stocks", "get_chart_data", "get_stock_detail", "update_stock_data"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("tools/list missing %s", name)
		}
	}
}
