package handlers

import (
	"encoding/json"
	"net/http"

	"paydesk/pkg/errors"
	"paydesk/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"error": errors.ToFrontendError(err)})
}

// SessionHandler returns the current session without its token.
func (h *Handlers) SessionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ConvertSession(h.sessions.Get()))
}

// NavigateHandler resolves ?path= against the route table and guard.
func (h *Handlers) NavigateHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}
	res := h.router.Resolve(path, h.sessions.Get())
	writeJSON(w, http.StatusOK, types.ConvertResolution(path, res))
}

// DashboardAPIHandler returns the dashboard summary as JSON.
func (h *Handlers) DashboardAPIHandler(w http.ResponseWriter, r *http.Request) {
	d, err := h.billing.Dashboard(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recent_invoices":      d.RecentInvoices,
		"open_invoices":        d.OpenInvoices,
		"overdue_invoices":     d.OverdueInvoices,
		"customers":            d.Customers,
		"active_subscriptions": d.ActiveSubscriptions,
	})
}

// RefreshAccountsAPIHandler refetches bank accounts and returns the new session.
func (h *Handlers) RefreshAccountsAPIHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.RefreshAccounts(r.Context()); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ConvertSession(h.sessions.Get()))
}

// HealthHandler reports liveness plus any installed readiness check.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
