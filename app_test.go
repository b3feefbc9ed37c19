package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"paydesk/internal/app"
	"paydesk/pkg/config"
	"paydesk/pkg/errors"
	"paydesk/pkg/mockapi"
	"paydesk/pkg/router"
	"paydesk/pkg/types"
)

type recorder struct {
	mu     sync.Mutex
	events []types.SessionView
}

func (r *recorder) emit(_ context.Context, event string, data ...interface{}) {
	if event != SessionChangedEvent || len(data) != 1 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data[0].(types.SessionView))
}

func (r *recorder) last() (types.SessionView, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return types.SessionView{}, 0
	}
	return r.events[len(r.events)-1], len(r.events)
}

func newTestApp(t *testing.T) (*App, *recorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mock, err := mockapi.New(mockapi.Config{Logger: logger, Size: 4})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIBaseURL = srv.URL
	cfg.SessionStorage = config.StorageMemory
	rt, err := app.New(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	a := NewApp(rt)
	a.emit = rec.emit
	a.startup(context.Background())
	t.Cleanup(func() { a.shutdown(context.Background()) })
	return a, rec
}

func TestAppLoginEmitsSession(t *testing.T) {
	a, rec := newTestApp(t)

	view, err := a.Login(mockapi.DemoEmail, mockapi.DemoPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !view.IsAuthenticated || view.DefaultAccountID == "" {
		t.Fatalf("unexpected view %+v", view)
	}
	if got, n := rec.last(); n != 1 || !got.IsAuthenticated {
		t.Fatalf("events=%d last=%+v", n, got)
	}

	if _, err := a.UpdateProfile("Grace", "Hopper"); err != nil {
		t.Fatal(err)
	}
	if got, _ := rec.last(); got.Initials != "GH" {
		t.Fatalf("initials=%q", got.Initials)
	}

	if err := a.Logout(false); err != nil {
		t.Fatal(err)
	}
	if got, n := rec.last(); n != 3 || got.IsAuthenticated {
		t.Fatalf("events=%d last=%+v", n, got)
	}
}

func TestAppBridgesErrors(t *testing.T) {
	a, rec := newTestApp(t)

	_, err := a.Login(mockapi.DemoEmail, "nope")
	if err == nil {
		t.Fatal("expected error")
	}
	var fe errors.FrontendError
	if jerr := json.Unmarshal([]byte(err.Error()), &fe); jerr != nil {
		t.Fatalf("error is not JSON: %q", err.Error())
	}
	if fe.Code != errors.ErrInvalidCredentials.Code {
		t.Fatalf("code=%q", fe.Code)
	}
	if _, n := rec.last(); n != 0 {
		t.Fatal("failed login must not emit")
	}

	if _, err := a.RefreshAccounts(); err == nil {
		t.Fatal("refresh while signed out should fail")
	}
}

func TestAppNavigate(t *testing.T) {
	a, _ := newTestApp(t)

	if nav := a.Navigate("/invoices"); nav.Allowed || nav.Redirect != "/login" {
		t.Fatalf("signed out: %+v", nav)
	}
	if _, err := a.Login(mockapi.DemoEmail, mockapi.DemoPassword); err != nil {
		t.Fatal(err)
	}
	if nav := a.Navigate("/invoices"); !nav.Allowed || nav.View != router.ViewInvoices {
		t.Fatalf("signed in: %+v", nav)
	}
	if nav := a.Navigate(""); nav.View != router.ViewDashboard {
		t.Fatalf("empty path: %+v", nav)
	}
}
