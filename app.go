package main

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"paydesk/internal/app"
	"paydesk/pkg/errors"
	"paydesk/pkg/session"
	"paydesk/pkg/types"
)

// SessionChangedEvent is emitted to the window after every session mutation.
const SessionChangedEvent = "session:changed"

type emitFunc func(ctx context.Context, event string, data ...interface{})

// App struct
type App struct {
	ctx         context.Context
	rt          *app.Runtime
	emit        emitFunc
	unsubscribe func()
}

// NewApp creates a new App bound to an assembled runtime
func NewApp(rt *app.Runtime) *App {
	return &App{ctx: context.Background(), rt: rt, emit: runtime.EventsEmit}
}

// startup is called when the window is ready. Session changes are pushed to
// the window from here on.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.unsubscribe = a.rt.Store.Subscribe(func(c session.Change) {
		a.emit(a.ctx, SessionChangedEvent, types.ConvertSession(c.Session))
	})
	a.rt.Logger.Info("desktop shell started",
		"api", a.rt.Client.BaseURL(),
		"storage", a.rt.Config.SessionStorage,
		"authenticated", a.rt.Store.IsAuthenticated(),
	)
}

func (a *App) shutdown(ctx context.Context) {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if err := a.rt.Close(); err != nil {
		a.rt.Logger.Warn("close runtime", "error", err)
	}
}

// GetSession returns the current session without its token
func (a *App) GetSession() types.SessionView {
	return types.ConvertSession(a.rt.Store.Get())
}

// Login signs in and returns the new session
func (a *App) Login(email, password string) (types.SessionView, error) {
	s, err := a.rt.Auth.Login(a.ctx, email, password)
	if err != nil {
		return types.SessionView{}, a.bridge(err)
	}
	return types.ConvertSession(s), nil
}

// Logout signs out. forget also removes the saved profile from disk.
func (a *App) Logout(forget bool) error {
	return a.bridge(a.rt.Auth.Logout(forget))
}

// UpdateProfile changes the user's first and last name
func (a *App) UpdateProfile(firstName, lastName string) (types.SessionView, error) {
	if _, err := a.rt.Auth.UpdateProfile(a.ctx, firstName, lastName); err != nil {
		return types.SessionView{}, a.bridge(err)
	}
	return a.GetSession(), nil
}

// UpdateAvatar changes the user's avatar
func (a *App) UpdateAvatar(avatarURL string) (types.SessionView, error) {
	if _, err := a.rt.Auth.UpdateAvatar(a.ctx, avatarURL); err != nil {
		return types.SessionView{}, a.bridge(err)
	}
	return a.GetSession(), nil
}

// RefreshAccounts refetches the bank accounts into the session
func (a *App) RefreshAccounts() (types.SessionView, error) {
	if _, err := a.rt.Auth.RefreshAccounts(a.ctx); err != nil {
		return types.SessionView{}, a.bridge(err)
	}
	return a.GetSession(), nil
}

// Navigate resolves path for the current session
func (a *App) Navigate(path string) types.NavigationView {
	if path == "" {
		path = "/"
	}
	return types.ConvertResolution(path, a.rt.Router.Resolve(path, a.rt.Store.Get()))
}

// HandleError converts application errors to frontend-friendly format
func (a *App) HandleError(err error) map[string]interface{} {
	return map[string]interface{}{"error": errors.ToFrontendError(err)}
}

// bridge turns err into an error whose message is the JSON FrontendError,
// since Wails only passes the message string to the webview.
func (a *App) bridge(err error) error {
	if err == nil {
		return nil
	}
	fe := errors.ToFrontendError(err)
	if fe.Type == string(errors.ErrTypeApp) {
		a.rt.Logger.Error("binding failed", "error", err)
	}
	data, mErr := json.Marshal(fe)
	if mErr != nil {
		return err
	}
	return stderrors.New(string(data))
}
