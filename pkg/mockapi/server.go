// Package mockapi is an in-process implementation of the billing REST API
// for local development and tests.
package mockapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	DemoEmail    = "demo@paydesk.local"
	DemoPassword = "paydesk-demo"
)

// Config controls the mock's data and credentials. Zero values select the
// demo defaults.
type Config struct {
	Email      string
	Password   string
	Secret     string
	Seed       int64
	Size       int
	TokenTTL   time.Duration
	GatewayURL string
	Logger     *slog.Logger
	Now        func() time.Time
}

// Server serves the mock API.
type Server struct {
	mu       sync.RWMutex
	secret   []byte
	tokenTTL time.Duration
	creds    credentials
	data     *dataset
	now      func() time.Time
	gateway  string
	logger   *slog.Logger

	idempotent    map[string]string
	failures      []int
	lastRequestID string
	requests      int

	router chi.Router
}

// New builds a seeded server.
func New(cfg Config) (*Server, error) {
	if cfg.Email == "" {
		cfg.Email = DemoEmail
	}
	if cfg.Password == "" {
		cfg.Password = DemoPassword
	}
	if cfg.Secret == "" {
		cfg.Secret = "paydesk-mockapi-secret"
	}
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.Size == 0 {
		cfg.Size = 25
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	creds, err := newCredentials(cfg.Email, cfg.Password)
	if err != nil {
		return nil, err
	}
	data := seed(cfg.Seed, cfg.Size, cfg.Now().UTC())
	data.profile.Email = strings.ToLower(cfg.Email)

	s := &Server{
		secret:     []byte(cfg.Secret),
		tokenTTL:   cfg.TokenTTL,
		creds:      creds,
		data:       data,
		now:        cfg.Now,
		gateway:    strings.TrimRight(cfg.GatewayURL, "/"),
		logger:     cfg.Logger,
		idempotent: make(map[string]string),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.track)

	r.Post("/auth/login", s.handleLogin)
	r.Get("/gateway/checkout/{id}", s.handleGateway)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/me", s.handleMe)
		r.Patch("/me", s.handleUpdateMe)
		r.Put("/me/avatar", s.handleUpdateAvatar)
		r.Get("/bank-accounts", s.handleBankAccounts)
		r.Get("/invoices", s.handleListInvoices)
		r.Post("/invoices", s.handleCreateInvoice)
		r.Get("/invoices/{id}", s.handleGetInvoice)
		r.Post("/invoices/{id}/checkout", s.handleCheckout)
		r.Get("/customers", s.handleListCustomers)
		r.Get("/subscriptions", s.handleListSubscriptions)
		r.Get("/transactions", s.handleListTransactions)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// FailNext makes the next len(statuses) requests fail with the given
// statuses, in order.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// LastRequestID returns the X-Request-ID of the most recent request.
func (s *Server) LastRequestID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRequestID
}

// Requests returns how many requests have been received.
func (s *Server) Requests() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.lastRequestID = r.Header.Get("X-Request-ID")
		var fail int
		if len(s.failures) > 0 {
			fail = s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if fail != 0 {
			writeError(w, fail, http.StatusText(fail))
			return
		}
		s.logger.Debug("mockapi request", "method", r.Method, "path", r.URL.Path, "request_id", r.Header.Get("X-Request-ID"))
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
