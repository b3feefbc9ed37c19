package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"paydesk/pkg/api"
	"paydesk/pkg/guard"
	"paydesk/pkg/metrics"
	"paydesk/pkg/mockapi"
	"paydesk/pkg/models"
	"paydesk/pkg/router"
	"paydesk/pkg/services"
	"paydesk/pkg/session"
	"paydesk/pkg/storage"
	"paydesk/pkg/types"
)

type env struct {
	t       *testing.T
	mock    *mockapi.Server
	disk    *storage.MemoryStorage
	store   *session.Store
	metrics *metrics.Metrics
	h       *Handlers
	handler http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mock, err := mockapi.New(mockapi.Config{Logger: logger, Size: 10, GatewayURL: "http://gateway.test"})
	if err != nil {
		t.Fatalf("mockapi: %v", err)
	}
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)

	m := metrics.New()
	client, err := api.New(srv.URL, api.WithRetry(1, 0), api.WithLogger(logger), api.WithObserver(m))
	if err != nil {
		t.Fatal(err)
	}
	disk := storage.NewMemoryStorage()
	store := session.NewStore(disk, session.WithLogger(logger))
	rt, err := router.New(router.DefaultRoutes(), guard.New(""), router.WithDecisionHook(func(res router.Resolution) {
		m.ObserveNavigation(res.Route.View, res.Decision.Kind.String())
	}))
	if err != nil {
		t.Fatal(err)
	}

	h, err := New(Deps{
		Sessions: store,
		Auth:     services.NewAuthService(client, store, logger),
		Billing:  services.NewBillingService(client, store, logger),
		Router:   rt,
		Metrics:  m,
		Logger:   logger,
		Now:      func() time.Time { return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("handlers: %v", err)
	}
	handler, err := h.Routes()
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	return &env{t: t, mock: mock, disk: disk, store: store, metrics: m, h: h, handler: handler}
}

func (e *env) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	e.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *env) login() {
	e.t.Helper()
	rr := e.do(http.MethodPost, "/login", url.Values{"email": {mockapi.DemoEmail}, "password": {mockapi.DemoPassword}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		e.t.Fatalf("login: status=%d location=%q body=%s", rr.Code, rr.Header().Get("Location"), rr.Body.String())
	}
}

func expectRedirect(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d want 303 body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != location {
		t.Fatalf("location=%q want %q", got, location)
	}
}

func TestProtectedViewsRedirectWhenSignedOut(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	for _, path := range []string{"/", "/invoices", "/invoices/new", "/invoices/inv_1", "/customers", "/subscriptions", "/transactions", "/bank-accounts", "/profile"} {
		expectRedirect(t, e.do(http.MethodGet, path, nil), "/login")
	}
	if got := testutil.ToFloat64(e.metrics.Navigations.WithLabelValues(router.ViewInvoices, "redirect")); got != 1 {
		t.Fatalf("redirect metric=%v", got)
	}
}

func TestLoginFlow(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	rr := e.do(http.MethodGet, "/login", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Sign in") {
		t.Fatalf("login page: %d", rr.Code)
	}

	rr = e.do(http.MethodPost, "/login", url.Values{"email": {mockapi.DemoEmail}, "password": {"wrong"}})
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), "role=\"alert\"") {
		t.Fatalf("bad password: status=%d", rr.Code)
	}
	if e.store.IsAuthenticated() {
		t.Fatal("failed login authenticated the store")
	}

	rr = e.do(http.MethodPost, "/login", url.Values{"email": {"not-an-email"}, "password": {"x"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid email: status=%d", rr.Code)
	}

	e.login()
	if !e.store.IsAuthenticated() {
		t.Fatal("expected authenticated store")
	}

	rr = e.do(http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Welcome back") || !strings.Contains(rr.Body.String(), "Recent invoices") {
		t.Fatalf("dashboard: status=%d body=%s", rr.Code, rr.Body.String())
	}

	expectRedirect(t, e.do(http.MethodGet, "/login", nil), "/")
}

func TestUnknownPathRendersNotFound(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rr := e.do(http.MethodGet, "/does/not/exist", nil)
	if rr.Code != http.StatusNotFound || !strings.Contains(rr.Body.String(), "Page not found") {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestInvoiceListPagingAndCSV(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login()

	rr := e.do(http.MethodGet, "/invoices?page=2&page_size=5&sort=number&order=asc", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Page 2 of 4") || !strings.Contains(body, "INV-00006") || strings.Contains(body, "INV-00001<") {
		t.Fatalf("unexpected page body: %s", body)
	}

	rr = e.do(http.MethodGet, "/invoices?format=csv&status=paid", nil)
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content-type=%q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "invoices-2026-06-01.csv") {
		t.Fatalf("content-disposition=%q", cd)
	}
	records, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	for _, rec := range records[1:] {
		if rec[2] != "paid" {
			t.Fatalf("filter not applied to export: %v", rec)
		}
	}
}

func TestOtherListsRender(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login()
	for path, marker := range map[string]string{
		"/customers":                "Customers",
		"/subscriptions":            "Subscriptions",
		"/transactions?type=refund": "Transactions",
		"/bank-accounts":            "****",
	} {
		rr := e.do(http.MethodGet, path, nil)
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), marker) {
			t.Fatalf("%s: status=%d", path, rr.Code)
		}
	}
	rr := e.do(http.MethodGet, "/transactions?format=csv", nil)
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("transactions csv: %q", rr.Header().Get("Content-Type"))
	}
}

func firstInvoice(t *testing.T, e *env, status models.InvoiceStatus) models.Invoice {
	t.Helper()
	page, err := e.h.billing.Invoices(context.Background(), url.Values{"status": {string(status)}, "page_size": {"1"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) == 0 {
		t.Skipf("seed has no %s invoice", status)
	}
	return page.Items[0]
}

func TestInvoiceDetailAndPay(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login()
	inv := firstInvoice(t, e, models.InvoiceOpen)

	rr := e.do(http.MethodGet, "/invoices/"+inv.ID, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), inv.Number) || !strings.Contains(rr.Body.String(), "Pay now") {
		t.Fatalf("detail: status=%d", rr.Code)
	}

	rr = e.do(http.MethodPost, "/invoices/"+inv.ID, url.Values{})
	if rr.Code != http.StatusSeeOther || !strings.HasPrefix(rr.Header().Get("Location"), "http://gateway.test/gateway/checkout/"+inv.ID) {
		t.Fatalf("pay: status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}

	rr = e.do(http.MethodGet, "/invoices/inv_missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing invoice: status=%d", rr.Code)
	}
}

var draftField = regexp.MustCompile(`name="draft" value="([^"]+)"`)

func TestInvoiceWizard(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login()

	rr := e.do(http.MethodGet, "/invoices/new", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `name="draft" value=""`) {
		t.Fatalf("wizard start: status=%d", rr.Code)
	}

	customers, err := e.h.billing.Customers(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	rr = e.do(http.MethodPost, "/invoices/new", url.Values{"draft": {""}, "step": {"1"}, "action": {"next"}, "issued_at": {"2026-06-01"}, "due_at": {"2026-05-01"}})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Please choose a customer") {
		t.Fatalf("step 1 invalid: status=%d", rr.Code)
	}
	m := draftField.FindStringSubmatch(rr.Body.String())
	if m == nil || e.h.drafts.Len() != 1 {
		t.Fatalf("first submit should store the draft, have %d", e.h.drafts.Len())
	}
	draft := m[1]

	rr = e.do(http.MethodPost, "/invoices/new", url.Values{"draft": {draft}, "step": {"1"}, "action": {"next"}, "customer_id": {customers.Items[0].ID}, "issued_at": {"2026-06-01"}, "due_at": {"2026-07-01"}})
	expectRedirect(t, rr, "/invoices/new?draft="+url.QueryEscape(draft)+"&step=2")

	rr = e.do(http.MethodGet, "/invoices/new?draft="+draft+"&step=3", nil)
	if !strings.Contains(rr.Body.String(), `name="step" value="2"`) {
		t.Fatal("jumping past an incomplete step should land on that step")
	}

	rr = e.do(http.MethodPost, "/invoices/new", url.Values{
		"draft": {draft}, "step": {"2"}, "action": {"next"},
		"description": {"Design", "Hosting", ""},
		"quantity":    {"2", "1", ""},
		"unit_price":  {"100.00", "9.50", ""},
	})
	expectRedirect(t, rr, "/invoices/new?draft="+url.QueryEscape(draft)+"&step=3")

	rr = e.do(http.MethodGet, "/invoices/new?draft="+draft+"&step=3", nil)
	if !strings.Contains(rr.Body.String(), "209.50") {
		t.Fatalf("review should show total: %s", rr.Body.String())
	}

	rr = e.do(http.MethodPost, "/invoices/new", url.Values{"draft": {draft}, "step": {"3"}, "action": {"submit"}, "currency": {"eur"}, "notes": {"Thanks"}})
	if rr.Code != http.StatusSeeOther || !strings.HasPrefix(rr.Header().Get("Location"), "/invoices/inv_") {
		t.Fatalf("submit: status=%d location=%q body=%s", rr.Code, rr.Header().Get("Location"), rr.Body.String())
	}
	if _, ok := e.h.drafts.Get(draft); ok {
		t.Fatal("draft should be discarded after submit")
	}

	rr = e.do(http.MethodGet, rr.Header().Get("Location"), nil)
	if !strings.Contains(rr.Body.String(), "created") || !strings.Contains(rr.Body.String(), "209.50 EUR") {
		t.Fatalf("created invoice view: %s", rr.Body.String())
	}
}

func TestInvoiceWizardPageLoadsStoreNoDraft(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login()

	for i := 0; i < 3; i++ {
		if rr := e.do(http.MethodGet, "/invoices/new", nil); rr.Code != http.StatusOK {
			t.Fatalf("load %d: status=%d", i, rr.Code)
		}
	}
	if n := e.h.drafts.Len(); n != 0 {
		t.Fatalf("drafts=%d after page loads", n)
	}

	expectRedirect(t, e.do(http.MethodPost, "/invoices/new", url.Values{"draft": {"expired"}, "step": {"2"}, "action": {"next"}}), "/invoices/new")
	if n := e.h.drafts.Len(); n != 0 {
		t.Fatalf("drafts=%d after expired submit", n)
	}
	if rr := e.do(http.MethodGet, "/invoices/new", nil); !strings.Contains(rr.Body.String(), "That draft has expired") {
		t.Fatal("expected expired flash")
	}
}

func TestCrossSiteWritesAreRejected(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login()
	before := e.store.Get().Profile

	crossSite := func(target string, form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Origin", "https://evil.example")
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		rr := httptest.NewRecorder()
		e.handler.ServeHTTP(rr, req)
		return rr
	}

	rr := crossSite("/profile", url.Values{"form": {"names"}, "first_name": {"Mallory"}, "last_name": {"X"}})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("profile: status=%d", rr.Code)
	}
	if got := e.store.Get().Profile; got != before {
		t.Fatalf("profile changed: %+v", got)
	}

	rr = crossSite("/logout", url.Values{"forget": {"1"}})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("logout: status=%d", rr.Code)
	}
	if !e.store.IsAuthenticated() || e.disk.Bytes() == nil {
		t.Fatal("cross-site logout should leave the session alone")
	}

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rr = httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("cross-site navigation: status=%d", rr.Code)
	}
}

func TestProfileUpdates(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login()
	email := e.store.Get().Profile.Email

	expectRedirect(t, e.do(http.MethodPost, "/profile", url.Values{"form": {"names"}, "first_name": {"Jane"}, "last_name": {"Doe"}}), "/profile")
	p := e.store.Get().Profile
	if p.FirstName != "Jane" || p.LastName != "Doe" || p.Email != email {
		t.Fatalf("profile=%+v", p)
	}

	expectRedirect(t, e.do(http.MethodPost, "/profile", url.Values{"form": {"avatar"}, "avatar_url": {"https://cdn.example.com/j.png"}}), "/profile")
	if e.store.Get().Profile.AvatarURL != "https://cdn.example.com/j.png" {
		t.Fatal("avatar not stored")
	}

	rr := e.do(http.MethodPost, "/profile", url.Values{"form": {"names"}, "first_name": {""}, "last_name": {"Doe"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid names: status=%d", rr.Code)
	}
}

func TestBankAccountRefresh(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login()
	saves := e.disk.SaveCount()

	expectRedirect(t, e.do(http.MethodPost, "/bank-accounts", url.Values{}), "/bank-accounts")
	if e.disk.SaveCount() != saves+1 {
		t.Fatal("refresh should re-save the session")
	}
	rr := e.do(http.MethodGet, "/bank-accounts", nil)
	if !strings.Contains(rr.Body.String(), "Bank accounts refreshed") {
		t.Fatal("expected refresh flash")
	}
}

func TestLogout(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login()

	expectRedirect(t, e.do(http.MethodPost, "/logout", url.Values{}), "/login")
	if e.store.IsAuthenticated() || e.store.Get().Profile.Email == "" {
		t.Fatal("plain logout should keep the profile")
	}

	e.login()
	expectRedirect(t, e.do(http.MethodPost, "/logout", url.Values{"forget": {"1"}}), "/login")
	if e.disk.Bytes() != nil {
		t.Fatal("forget should remove the stored session")
	}
}

func TestRevokedTokenSignsOut(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login()
	e.mock.RevokeAll()

	expectRedirect(t, e.do(http.MethodGet, "/invoices", nil), "/login")
	if e.store.IsAuthenticated() {
		t.Fatal("store should be signed out")
	}
	if rr := e.do(http.MethodGet, "/login", nil); !strings.Contains(rr.Body.String(), "flash-error") {
		t.Fatal("expected error flash on the login page")
	}
}

func TestUpstreamFailureShowsFlash(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login()
	e.mock.FailNext(http.StatusServiceUnavailable)

	rr := e.do(http.MethodGet, "/customers", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "flash-error") {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !e.store.IsAuthenticated() {
		t.Fatal("upstream failure must not sign out")
	}
}

func TestSessionAndNavigateAPI(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	rr := e.do(http.MethodGet, "/api/navigate?path=/invoices/abc", nil)
	var nav types.NavigationView
	if err := json.Unmarshal(rr.Body.Bytes(), &nav); err != nil {
		t.Fatal(err)
	}
	if nav.Allowed || nav.Redirect != "/login" {
		t.Fatalf("signed-out navigate: %+v", nav)
	}

	e.login()
	rr = e.do(http.MethodGet, "/api/navigate?path=/invoices/abc", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &nav); err != nil {
		t.Fatal(err)
	}
	if !nav.Allowed || nav.View != router.ViewInvoice || nav.Params["id"] != "abc" {
		t.Fatalf("signed-in navigate: %+v", nav)
	}

	rr = e.do(http.MethodGet, "/api/session", nil)
	if strings.Contains(rr.Body.String(), e.store.Get().Token) {
		t.Fatal("session endpoint leaked the token")
	}
	var view types.SessionView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if !view.IsAuthenticated || len(view.Accounts) == 0 || view.DefaultAccountID == "" {
		t.Fatalf("session view: %+v", view)
	}
}

func TestProtectedAPI(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	if rr := e.do(http.MethodGet, "/api/dashboard", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("signed out: %d", rr.Code)
	}

	e.login()
	rr := e.do(http.MethodGet, "/api/dashboard", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "open_invoices") {
		t.Fatalf("dashboard api: %d %s", rr.Code, rr.Body.String())
	}

	e.mock.FailNext(http.StatusBadGateway)
	rr = e.do(http.MethodPost, "/api/accounts/refresh", nil)
	if rr.Code != http.StatusBadGateway || !strings.Contains(rr.Body.String(), `"retryable":true`) {
		t.Fatalf("refresh failure: %d %s", rr.Code, rr.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	if rr := e.do(http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz=%d", rr.Code)
	}
	e.h.SetHealthCheck(func() error { return io.ErrUnexpectedEOF })
	if rr := e.do(http.MethodGet, "/healthz", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded healthz=%d", rr.Code)
	}

	rr := e.do(http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "paydesk_http_requests_total") {
		t.Fatalf("metrics: %d", rr.Code)
	}
}
