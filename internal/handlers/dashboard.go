package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/bobmcallan/stock-portal/internal/chart"
	"github.com/bobmcallan/stock-portal/internal/client"
	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/bobmcallan/stock-portal/internal/dashboard"
	"github.com/bobmcallan/stock-portal/internal/models"
	"github.com/bobmcallan/stock-portal/internal/session"
	"github.com/bobmcallan/stock-portal/internal/view"
)

// DashboardHandler serves the dashboard page and its form actions. Each
// viewer gets their own controller, keyed by the session cookie.
type DashboardHandler struct {
	logger    *common.Logger
	templates *template.Template
	sessions  *session.Manager
	devMode   bool
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(logger *common.Logger, sessions *session.Manager, templates *template.Template, devMode bool) *DashboardHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &DashboardHandler{
		logger:    logger,
		templates: templates,
		sessions:  sessions,
		devMode:   devMode,
	}
}

// controller returns the viewer's controller, creating a session when the
// cookie is missing or stale. The cookie is re-issued on every request so
// its Max-Age slides with the server-side idle expiry.
func (h *DashboardHandler) controller(w http.ResponseWriter, r *http.Request) *dashboard.Controller {
	id, ctrl, created := h.sessions.GetOrCreate(r.Context(), session.FromRequest(r))
	session.SetCookie(w, id, h.sessions.TTL(), r.TLS != nil)
	if created {
		h.logger.Debug().Str("session", id).Msg("Dashboard session created")
	}
	return ctrl
}

// ServeHTTP renders the dashboard page.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctrl := h.controller(w, r)
	if WantsJSON(r) {
		WriteJSON(w, http.StatusOK, ctrl.Snapshot())
		return
	}

	body, err := view.RenderString(ctrl.Render())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to render dashboard body")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	snap := ctrl.Snapshot()
	data := map[string]interface{}{
		"Page":          "dashboard",
		"DevMode":       h.devMode,
		"Body":          template.HTML(body),
		"Busy":          snap.Busy[models.ControlRefresh] || snap.Busy[models.ControlUpdate],
		"PortalVersion": common.GetVersion(),
	}

	w.Header().Set("Cache-Control", "no-store")
	if err := h.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		h.logger.Error().Str("template", "dashboard.html").Str("error", err.Error()).Msg("failed to render dashboard")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleRefresh handles POST /dashboard/refresh.
func (h *DashboardHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, dashboard.EventRefresh, "")
}

// HandleUpdate handles POST /dashboard/update. The update outlives the
// request; form posts return immediately so the busy state is visible
// while the backend works.
func (h *DashboardHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	ctrl := h.controller(w, r)
	ctx := context.WithoutCancel(r.Context())

	if WantsJSON(r) {
		h.respond(w, r, ctrl, ctrl.Dispatch(ctx, dashboard.EventUpdate, ""))
		return
	}

	go func() {
		if err := ctrl.Dispatch(ctx, dashboard.EventUpdate, ""); err != nil {
			h.logger.Debug().Err(err).Msg("Dashboard update finished with error")
		}
	}()
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// HandleSelect handles POST /dashboard/select with form field "symbol".
func (h *DashboardHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, dashboard.EventSelectStock, r.FormValue("symbol"))
}

// HandlePeriod handles POST /dashboard/period with form field "days".
func (h *DashboardHandler) HandlePeriod(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, dashboard.EventSelectPeriod, r.FormValue("days"))
}

// HandleCard handles POST /dashboard/cards/{symbol}.
func (h *DashboardHandler) HandleCard(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, dashboard.EventCardClick, r.PathValue("symbol"))
}

// HandleTeardown handles POST /dashboard/teardown. The session is removed
// and its controller closed.
func (h *DashboardHandler) HandleTeardown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if id := session.FromRequest(r); id != "" {
		h.sessions.Delete(id)
	}
	session.ClearCookie(w)

	if WantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "closed"})
		return
	}
	data := map[string]interface{}{
		"Page":          "closed",
		"DevMode":       h.devMode,
		"PortalVersion": common.GetVersion(),
	}
	if err := h.templates.ExecuteTemplate(w, "closed.html", data); err != nil {
		h.logger.Error().Str("template", "closed.html").Str("error", err.Error()).Msg("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleState handles GET /dashboard/state.
func (h *DashboardHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, h.controller(w, r).Snapshot())
}

// HandleChart handles GET /dashboard/chart.png.
func (h *DashboardHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	ctrl, ok := h.sessions.Get(session.FromRequest(r))
	if !ok {
		http.NotFound(w, r)
		return
	}
	png, err := ctrl.ChartPNG()
	if err != nil {
		if !errors.Is(err, dashboard.ErrNoChart) {
			h.logger.Warn().Err(err).Msg("Chart encode failed")
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

func (h *DashboardHandler) dispatch(w http.ResponseWriter, r *http.Request, ev dashboard.Event, value string) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	ctrl := h.controller(w, r)
	err := ctrl.Dispatch(r.Context(), ev, strings.TrimSpace(value))
	h.respond(w, r, ctrl, err)
}

// respond answers a dashboard action. JSON clients get the snapshot or a
// status-coded error; form posts always go back to the page, where the
// status banner carries the outcome.
func (h *DashboardHandler) respond(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller, err error) {
	if !WantsJSON(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if err == nil {
		WriteJSON(w, http.StatusOK, ctrl.Snapshot())
		return
	}

	WriteJSON(w, statusFor(err), map[string]interface{}{
		"status": "error",
		"error":  err.Error(),
		"state":  ctrl.Snapshot(),
	})
}

func statusFor(err error) int {
	var backendErr *client.BackendError
	var transportErr *client.TransportError
	switch {
	case errors.Is(err, dashboard.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrInvalidPeriod), errors.Is(err, dashboard.ErrUnknownEvent):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrClosed):
		return http.StatusGone
	case errors.As(err, &backendErr), errors.As(err, &transportErr), errors.Is(err, chart.ErrEmptySeries):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
