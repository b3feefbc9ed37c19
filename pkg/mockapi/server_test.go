package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paydesk/pkg/models"
)

func newServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return s
}

func do(t *testing.T, h http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func tokenFor(t *testing.T, s *Server) string {
	t.Helper()
	rr := do(t, s, http.MethodPost, "/auth/login", "", map[string]string{"email": DemoEmail, "password": DemoPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("bad login response: %s", rr.Body.String())
	}
	return resp.Token
}

func TestSeedIsDeterministic(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := seed(7, 5, now)
	b := seed(7, 5, now)

	if a.profile.FullName != b.profile.FullName || a.customers[0].Name != b.customers[0].Name {
		t.Fatal("same seed produced different data")
	}
	if len(a.customers) != 5 || len(a.invoices) != 10 || len(a.transactions) != 15 {
		t.Fatalf("unexpected sizes: %d %d %d", len(a.customers), len(a.invoices), len(a.transactions))
	}
	for _, inv := range a.invoices {
		if !inv.Total.Equal(sumItems(inv.Items)) {
			t.Fatalf("invoice %s total mismatch", inv.Number)
		}
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	t.Parallel()

	s := newServer(t, Config{Size: 3})
	for _, path := range []string{"/me", "/bank-accounts", "/invoices", "/customers", "/subscriptions", "/transactions"} {
		if rr := do(t, s, http.MethodGet, path, "", nil); rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: status=%d", path, rr.Code)
		}
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := func() time.Time { return now }
	s := newServer(t, Config{Size: 3, TokenTTL: time.Minute, Now: clock})
	token := tokenFor(t, s)

	now = now.Add(2 * time.Minute)
	if rr := do(t, s, http.MethodGet, "/me", token, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expired token accepted: %d", rr.Code)
	}
}

func TestRevokeAll(t *testing.T) {
	t.Parallel()

	s := newServer(t, Config{Size: 3})
	token := tokenFor(t, s)
	s.RevokeAll()
	if rr := do(t, s, http.MethodGet, "/me", token, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token accepted: %d", rr.Code)
	}
}

func TestInvoiceFilters(t *testing.T) {
	t.Parallel()

	s := newServer(t, Config{Size: 20})
	token := tokenFor(t, s)

	rr := do(t, s, http.MethodGet, "/invoices?status=paid&page_size=100", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var page models.Page[models.Invoice]
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != len(page.Items) {
		t.Fatalf("total=%d items=%d", page.Total, len(page.Items))
	}
	for _, inv := range page.Items {
		if inv.Status != models.InvoicePaid {
			t.Fatalf("filter leaked %s", inv.Status)
		}
		if len(inv.Items) != 0 {
			t.Fatal("list view should omit line items")
		}
	}
}

func TestGatewaySettlesInvoice(t *testing.T) {
	t.Parallel()

	s := newServer(t, Config{Size: 10, GatewayURL: "http://gateway.test"})
	token := tokenFor(t, s)

	var target models.Invoice
	s.mu.RLock()
	for _, inv := range s.data.invoices {
		if inv.Status == models.InvoiceOpen {
			target = inv
			break
		}
	}
	s.mu.RUnlock()
	if target.ID == "" {
		t.Skip("seed produced no open invoice")
	}

	rr := do(t, s, http.MethodPost, "/invoices/"+target.ID+"/checkout", token, map[string]string{"return_url": "http://app.test/invoices/" + target.ID})
	if rr.Code != http.StatusOK {
		t.Fatalf("checkout status=%d body=%s", rr.Code, rr.Body.String())
	}
	var checkout models.Checkout
	if err := json.Unmarshal(rr.Body.Bytes(), &checkout); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(checkout.CheckoutURL, "http://gateway.test/gateway/checkout/"+target.ID) {
		t.Fatalf("checkout url=%s", checkout.CheckoutURL)
	}

	path := strings.TrimPrefix(checkout.CheckoutURL, "http://gateway.test")
	rr = do(t, s, http.MethodGet, path, "", nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "http://app.test/invoices/"+target.ID {
		t.Fatalf("gateway status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}

	rr = do(t, s, http.MethodPost, "/invoices/"+target.ID+"/checkout", token, map[string]string{})
	if rr.Code != http.StatusConflict {
		t.Fatalf("paying a paid invoice: status=%d", rr.Code)
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	t.Parallel()

	s := newServer(t, Config{Size: 3})
	token := tokenFor(t, s)

	rr := do(t, s, http.MethodPost, "/invoices", token, models.NewInvoice{CustomerID: "cus_missing", Currency: "USD"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
}
