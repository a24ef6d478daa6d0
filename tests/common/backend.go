package common

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// StockBackend is an in-process stand-in for the stock data API.
type StockBackend struct {
	*httptest.Server

	mu      sync.Mutex
	failing bool
	updates atomic.Int32
}

// NewStockBackend starts a backend serving three stocks: one rising, one
// falling and one unchanged.
func NewStockBackend() *StockBackend {
	b := &StockBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(w, http.StatusOK, `{"status":"ok"}`)
	})
	mux.HandleFunc("GET /api/stocks", b.handleStocks)
	mux.HandleFunc("GET /api/stocks/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("symbol") != "005930" {
			writeBackendJSON(w, http.StatusNotFound, `{"success":false,"error":"Stock data not found"}`)
			return
		}
		writeBackendJSON(w, http.StatusOK, `{"success":true,"data":{"symbol":"005930","name":"Samsung Electronics",
			"current_price":71000,"year_return":12.5,"year_high":78000,"year_low":58000,"sector":"Semiconductors"}}`)
	})
	mux.HandleFunc("GET /api/chart-data/{symbol}", b.handleChart)
	mux.HandleFunc("POST /api/update-data", func(w http.ResponseWriter, r *http.Request) {
		b.updates.Add(1)
		writeBackendJSON(w, http.StatusOK, `{"success":true,"message":"Data update complete"}`)
	})
	mux.HandleFunc("GET /api/companies", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(w, http.StatusOK, `{"success":true,"data":[
			{"symbol":"005930","name":"Samsung Electronics","sector":"Semiconductors","market_cap":420000000000000},
			{"symbol":"000660","name":"SK hynix","sector":"Semiconductors","market_cap":130000000000000},
			{"symbol":"035420","name":"NAVER","sector":"Internet","market_cap":30000000000000}]}`)
	})
	b.Server = httptest.NewServer(mux)
	return b
}

// SetFailing makes the stock list endpoint return a backend error.
func (b *StockBackend) SetFailing(failing bool) {
	b.mu.Lock()
	b.failing = failing
	b.mu.Unlock()
}

// Updates returns how many update requests the backend has received.
func (b *StockBackend) Updates() int {
	return int(b.updates.Load())
}

// Port returns the TCP port the backend listens on.
func (b *StockBackend) Port() int {
	i := strings.LastIndex(b.URL, ":")
	p, _ := strconv.Atoi(b.URL[i+1:])
	return p
}

func (b *StockBackend) handleStocks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	failing := b.failing
	b.mu.Unlock()
	if failing {
		writeBackendJSON(w, http.StatusInternalServerError, `{"success":false,"error":"database locked"}`)
		return
	}
	writeBackendJSON(w, http.StatusOK, `{"success":true,"data":[
		{"symbol":"005930","name":"Samsung Electronics","current_price":71000,"year_return":12.5,"year_high":78000,"year_low":58000},
		{"symbol":"000660","name":"SK hynix","current_price":180000,"year_return":-3.2,"year_high":210000,"year_low":150000},
		{"symbol":"035420","name":"NAVER","current_price":190000,"year_return":0}]}`)
}

func (b *StockBackend) handleChart(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol != "005930" && symbol != "000660" && symbol != "035420" {
		writeBackendJSON(w, http.StatusNotFound, `{"success":false,"error":"unknown symbol"}`)
		return
	}
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		writeBackendJSON(w, http.StatusBadRequest, `{"success":false,"error":"invalid days"}`)
		return
	}

	points := min(days, 60)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	labels := make([]string, points)
	prices := make([]string, points)
	volumes := make([]string, points)
	for i := range points {
		labels[i] = strconv.Quote(start.AddDate(0, 0, i).Format("2006-01-02"))
		prices[i] = strconv.Itoa(70000 + i*100)
		volumes[i] = strconv.Itoa(1000000 + i*1000)
	}
	writeBackendJSON(w, http.StatusOK, fmt.Sprintf(`{"success":true,"data":{"labels":[%s],"prices":[%s],"volumes":[%s]}}`,
		strings.Join(labels, ","), strings.Join(prices, ","), strings.Join(volumes, ",")))
}

func writeBackendJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
