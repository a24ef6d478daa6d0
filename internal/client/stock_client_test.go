package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobmcallan/stock-portal/internal/cache"
)

func TestListStocks_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stocks" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"symbol": "005930", "name": "Samsung Electronics", "current_price": 73000, "year_return": 12.5},
				{"symbol": "000660", "name": "SK hynix", "current_price": nil, "year_return": 0},
			},
		})
	}))
	defer srv.Close()

	c := NewStockClient(srv.URL)
	stocks, err := c.ListStocks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stocks) != 2 {
		t.Fatalf("expected 2 stocks, got %d", len(stocks))
	}
	if stocks[0].Symbol != "005930" || stocks[0].CurrentPrice == nil || *stocks[0].CurrentPrice != 73000 {
		t.Errorf("unexpected first stock: %+v", stocks[0])
	}
	if stocks[1].CurrentPrice != nil {
		t.Errorf("expected nil price for null current_price, got %v", *stocks[1].CurrentPrice)
	}
}

func TestListStocks_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer srv.Close()

	stocks, err := NewStockClient(srv.URL).ListStocks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stocks == nil || len(stocks) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", stocks)
	}
}

func TestListStocks_BackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":"database locked"}`))
	}))
	defer srv.Close()

	_, err := NewStockClient(srv.URL).ListStocks(context.Background())
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %T %v", err, err)
	}
	if be.Message != "database locked" {
		t.Errorf("expected backend message, got %q", be.Message)
	}
	if be.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", be.StatusCode)
	}
}

func TestListStocks_SuccessFalseWith200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"x"}`))
	}))
	defer srv.Close()

	_, err := NewStockClient(srv.URL).ListStocks(context.Background())
	var be *BackendError
	if !errors.As(err, &be) || be.Message != "x" {
		t.Fatalf("expected BackendError x, got %v", err)
	}
}

func TestListStocks_NonJSONIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := NewStockClient(srv.URL).ListStocks(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T %v", err, err)
	}
}

func TestListStocks_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewStockClient(url).ListStocks(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T %v", err, err)
	}
}

func TestListStocks_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	_, err := NewStockClient(srv.URL, WithTimeout(50*time.Millisecond)).ListStocks(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError on timeout, got %T %v", err, err)
	}
}

func TestTriggerUpdate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/update-data" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Write([]byte(`{"success":true,"message":"Stock data updated successfully"}`))
	}))
	defer srv.Close()

	sc := cache.New(time.Minute, 10)
	sc.Set(cache.MakeKey("AAA", 30), seriesFixture())

	msg, err := NewStockClient(srv.URL, WithSeriesCache(sc)).TriggerUpdate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != "Stock data updated successfully" {
		t.Errorf("unexpected message %q", msg)
	}
	if sc.Len() != 0 {
		t.Errorf("expected series cache to be cleared after update, len=%d", sc.Len())
	}
}

func TestTriggerUpdate_FailureKeepsCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":"collector offline"}`))
	}))
	defer srv.Close()

	sc := cache.New(time.Minute, 10)
	sc.Set(cache.MakeKey("AAA", 30), seriesFixture())

	_, err := NewStockClient(srv.URL, WithSeriesCache(sc)).TriggerUpdate(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if sc.Len() != 1 {
		t.Errorf("expected cache untouched on failure, len=%d", sc.Len())
	}
}

func TestChartData_RequestShape(t *testing.T) {
	var gotPath, gotDays string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotDays = r.URL.Query().Get("days")
		w.Write([]byte(`{"success":true,"data":{"labels":["2026-01-01","2026-01-02"],"prices":[100,101],"volumes":[10,20]}}`))
	}))
	defer srv.Close()

	series, err := NewStockClient(srv.URL).ChartData(context.Background(), "AAA", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/chart-data/AAA" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotDays != "30" {
		t.Errorf("expected days=30, got %s", gotDays)
	}
	if series.Len() != 2 || series.Prices[1] != 101 || len(series.Volumes) != 2 {
		t.Errorf("unexpected series: %+v", series)
	}
}

func TestChartData_SymbolIsEscaped(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"success":true,"data":{"labels":["d"],"prices":[1]}}`))
	}))
	defer srv.Close()

	if _, err := NewStockClient(srv.URL).ChartData(context.Background(), "A/B C", 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/chart-data/A%2FB%20C" {
		t.Errorf("expected escaped symbol, got %s", gotPath)
	}
}

func TestChartData_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"No data found"}`))
	}))
	defer srv.Close()

	_, err := NewStockClient(srv.URL).ChartData(context.Background(), "ZZZ", 30)
	var be *BackendError
	if !errors.As(err, &be) || be.Message != "No data found" {
		t.Fatalf("expected BackendError 'No data found', got %v", err)
	}
}

func TestChartData_MismatchedSeriesRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"labels":["a","b"],"prices":[1]}}`))
	}))
	defer srv.Close()

	_, err := NewStockClient(srv.URL).ChartData(context.Background(), "AAA", 30)
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError for mismatched series, got %v", err)
	}
}

func TestChartData_InvalidArguments(t *testing.T) {
	c := NewStockClient("http://127.0.0.1:1")
	if _, err := c.ChartData(context.Background(), "", 30); err == nil {
		t.Error("expected error for empty symbol")
	}
	if _, err := c.ChartData(context.Background(), "AAA", 0); err == nil {
		t.Error("expected error for zero days")
	}
}

func TestChartData_Cached(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"success":true,"data":{"labels":["d"],"prices":[1]}}`))
	}))
	defer srv.Close()

	c := NewStockClient(srv.URL, WithSeriesCache(cache.New(time.Minute, 10)))
	for i := 0; i < 3; i++ {
		if _, err := c.ChartData(context.Background(), "AAA", 30); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := c.ChartData(context.Background(), "AAA", 90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("expected 2 backend hits (one per period), got %d", n)
	}
}

func TestChartData_ZeroTTLCacheDisabled(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"success":true,"data":{"labels":["d"],"prices":[1]}}`))
	}))
	defer srv.Close()

	for _, sc := range []*cache.SeriesCache{nil, cache.New(0, 10)} {
		atomic.StoreInt32(&hits, 0)
		c := NewStockClient(srv.URL, WithSeriesCache(sc))
		for i := 0; i < 2; i++ {
			if _, err := c.ChartData(context.Background(), "AAA", 30); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if n := atomic.LoadInt32(&hits); n != 2 {
			t.Errorf("expected every call to reach the backend, got %d hits", n)
		}
	}
}

func TestStockDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stocks/005930" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"symbol":"005930","name":"Samsung","current_price":73000,"year_return":12.5,"sector":"IT","market_cap":4.3e14}}`))
	}))
	defer srv.Close()

	d, err := NewStockClient(srv.URL).StockDetail(context.Background(), "005930")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Symbol != "005930" || d.Sector != "IT" || d.CurrentPrice == nil || *d.CurrentPrice != 73000 {
		t.Errorf("unexpected detail: %+v", d)
	}
	if d.MarketCap == nil || *d.MarketCap != 4.3e14 {
		t.Errorf("unexpected market cap: %v", d.MarketCap)
	}
}

func TestStockDetail_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"Stock data not found"}`))
	}))
	defer srv.Close()

	_, err := NewStockClient(srv.URL).StockDetail(context.Background(), "ZZZ")
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %T: %v", err, err)
	}
	if be.StatusCode != http.StatusNotFound || be.Message != "Stock data not found" {
		t.Errorf("unexpected error: %+v", be)
	}
	if !IsNotFound(err) {
		t.Error("expected IsNotFound to match")
	}
}

func TestStockDetail_RequiresSymbol(t *testing.T) {
	if _, err := NewStockClient("http://127.0.0.1:1").StockDetail(context.Background(), ""); err == nil {
		t.Error("expected error for empty symbol")
	}
}

func TestListCompanies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/companies" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":[{"id":1,"symbol":"005930","name":"Samsung","market_cap":null,"sector":"IT"}]}`))
	}))
	defer srv.Close()

	companies, err := NewStockClient(srv.URL).ListCompanies(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(companies) != 1 || companies[0].Sector != "IT" || companies[0].MarketCap != 0 {
		t.Errorf("unexpected companies: %+v", companies)
	}
}

func TestHealth(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()
	if err := NewStockClient(up.URL).Health(context.Background()); err != nil {
		t.Errorf("expected healthy backend, got %v", err)
	}

	down := httptest.NewServer(http.NotFoundHandler())
	defer down.Close()
	if err := NewStockClient(down.URL).Health(context.Background()); err == nil {
		t.Error("expected error for backend without health endpoint")
	}
}

func TestNewStockClient_TrimsTrailingSlash(t *testing.T) {
	c := NewStockClient("http://backend:5000/")
	if c.BaseURL() != "http://backend:5000" {
		t.Errorf("unexpected base url %s", c.BaseURL())
	}
}
