package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	dash := s.app.DashboardHandler

	// UI page routes
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /dashboard", dash.ServeHTTP)
	mux.HandleFunc("GET /dashboard/state", dash.HandleState)
	mux.HandleFunc("GET /dashboard/chart.png", dash.HandleChart)

	// Dashboard actions (form posts)
	mux.HandleFunc("POST /dashboard/refresh", dash.HandleRefresh)
	mux.HandleFunc("POST /dashboard/update", dash.HandleUpdate)
	mux.HandleFunc("POST /dashboard/select", dash.HandleSelect)
	mux.HandleFunc("POST /dashboard/period", dash.HandlePeriod)
	mux.HandleFunc("POST /dashboard/cards/{symbol}", dash.HandleCard)
	mux.HandleFunc("POST /dashboard/teardown", dash.HandleTeardown)

	// Static files (CSS, JS, images)
	mux.Handle("/static/", s.app.StaticHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)
	mux.HandleFunc("/api/server-health", s.app.ServerHealthHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleRoot sends visitors to the dashboard.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
