// Package handlers serves the client's views and JSON endpoints. The same
// handler tree backs the desktop window and browser mode.
package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"paydesk/pkg/errors"
	"paydesk/pkg/invoices"
	"paydesk/pkg/metrics"
	"paydesk/pkg/middleware"
	"paydesk/pkg/router"
	"paydesk/pkg/services"
	"paydesk/pkg/session"
)

// Deps are the collaborators of the handler tree.
type Deps struct {
	Sessions *session.Store
	Auth     *services.AuthService
	Billing  *services.BillingService
	Router   *router.Router
	Drafts   *invoices.DraftStore
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

// Handlers holds the view and API handlers.
type Handlers struct {
	sessions *session.Store
	auth     *services.AuthService
	billing  *services.BillingService
	router   *router.Router
	drafts   *invoices.DraftStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	views  *renderer
	flash  *Flashes
	health func() error
}

// New builds handlers and parses the embedded templates.
func New(d Deps) (*Handlers, error) {
	views, err := newRenderer()
	if err != nil {
		return nil, err
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Drafts == nil {
		d.Drafts = invoices.NewDraftStore(0)
	}
	return &Handlers{
		sessions: d.Sessions,
		auth:     d.Auth,
		billing:  d.Billing,
		router:   d.Router,
		drafts:   d.Drafts,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      d.Now,
		views:    views,
		flash:    &Flashes{},
	}, nil
}

// SetHealthCheck installs an extra readiness check for /healthz.
func (h *Handlers) SetHealthCheck(fn func() error) {
	h.health = fn
}

// Views maps every routed view to its handler.
func (h *Handlers) Views() map[string]http.Handler {
	return map[string]http.Handler{
		router.ViewLogin:         http.HandlerFunc(h.LoginHandler),
		router.ViewDashboard:     http.HandlerFunc(h.DashboardHandler),
		router.ViewInvoices:      http.HandlerFunc(h.InvoicesHandler),
		router.ViewInvoiceNew:    http.HandlerFunc(h.NewInvoiceHandler),
		router.ViewInvoice:       http.HandlerFunc(h.InvoiceHandler),
		router.ViewCustomers:     http.HandlerFunc(h.CustomersHandler),
		router.ViewSubscriptions: http.HandlerFunc(h.SubscriptionsHandler),
		router.ViewTransactions:  http.HandlerFunc(h.TransactionsHandler),
		router.ViewBankAccounts:  http.HandlerFunc(h.BankAccountsHandler),
		router.ViewProfile:       http.HandlerFunc(h.ProfileHandler),
		router.ViewNotFound:      http.HandlerFunc(h.NotFoundHandler),
	}
}

// Routes builds the complete handler tree.
func (h *Handlers) Routes() (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(h.logger))
	if h.metrics != nil {
		r.Use(middleware.Metrics(h.metrics))
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SameOrigin)

	if err := h.router.Mount(r, h.Views(), h.sessions); err != nil {
		return nil, err
	}

	r.Post("/logout", h.LogoutHandler)
	r.Get("/healthz", h.HealthHandler)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.SessionHandler)
		r.Get("/navigate", h.NavigateHandler)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuthAPI(h.sessions))
			r.Get("/dashboard", h.DashboardAPIHandler)
			r.Post("/accounts/refresh", h.RefreshAccountsAPIHandler)
		})
	})
	return r, nil
}

func (h *Handlers) page(view, title string, data any) Page {
	return Page{
		Title:   title,
		View:    view,
		Session: h.sessions.Get(),
		Flashes: h.flash.Pop(),
		Data:    data,
	}
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, p Page) {
	if err := h.views.render(w, status, p); err != nil {
		h.logger.Error("render view", "view", p.View, "error", err, "request_id", chimiddleware.GetReqID(r.Context()))
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

// fail reports err as a flash. It returns true when it already answered the
// request (signed-out redirect or not-found page); otherwise the caller
// renders its view with empty data.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case stderrors.Is(err, errors.ErrNotAuthenticated), stderrors.Is(err, errors.ErrSessionExpired):
		h.flash.Add(FlashError, errors.UserMessage(err))
		http.Redirect(w, r, h.router.LoginPath(), http.StatusSeeOther)
		return true
	case stderrors.Is(err, errors.ErrNotFound):
		h.render(w, r, http.StatusNotFound, h.page(router.ViewNotFound, "Not found", nil))
		return true
	}
	h.logger.Warn("view data unavailable", "path", r.URL.Path, "error", err)
	h.flash.Add(FlashError, errors.UserMessage(err))
	return false
}

// statusFor maps an error to an HTTP status for JSON responses and re-rendered forms.
func statusFor(err error) int {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case errors.ErrTypeValidation:
		return http.StatusUnprocessableEntity
	case errors.ErrTypeAuth:
		return http.StatusUnauthorized
	case errors.ErrTypeNetwork:
		if stderrors.Is(err, errors.ErrNotFound) {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isValidation(err error) bool {
	var appErr *errors.AppError
	return stderrors.As(err, &appErr) && appErr.Type == errors.ErrTypeValidation
}
