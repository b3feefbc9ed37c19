package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"paydesk/pkg/models"
)

type staticSessions struct{ s models.Session }

func (f staticSessions) Get() models.Session { return f.s }

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRequireAuthAPI(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	RequireAuthAPI(staticSessions{})(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), "unauthorized") {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	signedIn := staticSessions{s: models.Session{Token: "t", IsAuthenticated: true}}
	rr = httptest.NewRecorder()
	RequireAuthAPI(signedIn)(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("signed in status=%d", rr.Code)
	}
}

func TestRequestLoggerUsesRoutePattern(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Get("/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/invoices/inv_1", nil))

	out := buf.String()
	for _, want := range []string{`"route":"/invoices/{id}"`, `"status":418`, `"path":"/invoices/inv_1"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line missing %s: %s", want, out)
		}
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, method+" "+route+" "+http.StatusText(status))
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	r := chi.NewRouter()
	r.Use(Metrics(obs))
	r.Get("/customers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/customers", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.calls) != 2 || obs.calls[0] != "GET /customers OK" || obs.calls[1] != "GET unmatched Not Found" {
		t.Fatalf("calls=%v", obs.calls)
	}
}

func TestSameOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		method  string
		origin  string
		fetch   string
		allowed bool
	}{
		{name: "no headers", method: http.MethodPost, allowed: true},
		{name: "same origin", method: http.MethodPost, origin: "http://example.com", fetch: "same-origin", allowed: true},
		{name: "cross-site fetch", method: http.MethodPost, fetch: "cross-site"},
		{name: "foreign origin", method: http.MethodPost, origin: "https://evil.example"},
		{name: "foreign port", method: http.MethodDelete, origin: "http://example.com:8080"},
		{name: "opaque origin", method: http.MethodPost, origin: "null"},
		{name: "cross-site read", method: http.MethodGet, origin: "https://evil.example", fetch: "cross-site", allowed: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/profile", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.fetch != "" {
				req.Header.Set("Sec-Fetch-Site", tt.fetch)
			}
			rr := httptest.NewRecorder()
			SameOrigin(ok).ServeHTTP(rr, req)

			want := http.StatusForbidden
			if tt.allowed {
				want = http.StatusNoContent
			}
			if rr.Code != want {
				t.Fatalf("status=%d want %d", rr.Code, want)
			}
		})
	}
}
