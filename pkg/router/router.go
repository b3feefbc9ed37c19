// Package router maps URL paths to views through a static table and the
// route guard.
package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"paydesk/pkg/guard"
	"paydesk/pkg/models"
)

// SessionSource provides the current session.
type SessionSource interface {
	Get() models.Session
}

// Resolution is the result of resolving a path against the table.
type Resolution struct {
	Route    Route             `json:"route"`
	Params   map[string]string `json:"params,omitempty"`
	Decision guard.Decision    `json:"decision"`
	NotFound bool              `json:"not_found"`
}

// DecisionHook observes every navigation decision.
type DecisionHook func(res Resolution)

// Router resolves navigations. The table is fixed at construction.
type Router struct {
	routes    []Route
	byPattern map[string]Route
	matcher   *chi.Mux
	guard     guard.Guard
	onDecide  DecisionHook
}

// Option configures a Router.
type Option func(*Router)

// WithDecisionHook installs a hook called for every resolved navigation.
func WithDecisionHook(h DecisionHook) Option {
	return func(r *Router) { r.onDecide = h }
}

// New builds a router over routes. Duplicate paths are rejected.
func New(routes []Route, g guard.Guard, opts ...Option) (*Router, error) {
	r := &Router{
		routes:    append([]Route(nil), routes...),
		byPattern: make(map[string]Route, len(routes)),
		matcher:   chi.NewRouter(),
		guard:     g,
	}
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	for _, rt := range routes {
		if _, dup := r.byPattern[rt.Path]; dup {
			return nil, fmt.Errorf("router: duplicate path %q", rt.Path)
		}
		r.byPattern[rt.Path] = rt
		r.matcher.Get(rt.Path, noop)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Routes returns a copy of the table.
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}

// LoginPath returns where the guard redirects.
func (r *Router) LoginPath() string {
	return r.guard.LoginPath
}

func (r *Router) match(path string) (Route, map[string]string, bool) {
	if path == "" {
		path = "/"
	}
	path, _, _ = strings.Cut(path, "?")
	rctx := chi.NewRouteContext()
	if !r.matcher.Match(rctx, http.MethodGet, path) {
		return Route{}, nil, false
	}
	rt, ok := r.byPattern[rctx.RoutePattern()]
	if !ok {
		return Route{}, nil, false
	}
	var params map[string]string
	if n := len(rctx.URLParams.Keys); n > 0 {
		params = make(map[string]string, n)
		for i, key := range rctx.URLParams.Keys {
			params[key] = rctx.URLParams.Values[i]
		}
	}
	return rt, params, true
}

// Resolve decides what a navigation to path renders for session s.
// Unknown paths resolve to the not-found view.
func (r *Router) Resolve(path string, s models.Session) Resolution {
	rt, params, ok := r.match(path)
	if !ok {
		res := Resolution{
			Route:    Route{Path: path, View: ViewNotFound},
			Decision: guard.Decision{Kind: guard.Allow, View: ViewNotFound},
			NotFound: true,
		}
		r.observe(res)
		return res
	}
	res := Resolution{
		Route:    rt,
		Params:   params,
		Decision: r.guard.Decide(s, guard.Target{View: rt.View, RequiredAuth: rt.RequiredAuth}),
	}
	r.observe(res)
	return res
}

func (r *Router) observe(res Resolution) {
	if r.onDecide != nil {
		r.onDecide(res)
	}
}

// Mount registers every table entry on mux. Each view must be present in
// views, plus ViewNotFound for unknown paths.
func (r *Router) Mount(mux chi.Router, views map[string]http.Handler, sessions SessionSource) error {
	for _, rt := range r.routes {
		if _, ok := views[rt.View]; !ok {
			return fmt.Errorf("router: no handler for view %q", rt.View)
		}
	}
	notFound, ok := views[ViewNotFound]
	if !ok {
		return fmt.Errorf("router: no handler for view %q", ViewNotFound)
	}

	for _, rt := range r.routes {
		mux.Handle(rt.Path, r.gate(rt, views[rt.View], sessions))
	}
	mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		r.observe(Resolution{
			Route:    Route{Path: req.URL.Path, View: ViewNotFound},
			Decision: guard.Decision{Kind: guard.Allow, View: ViewNotFound},
			NotFound: true,
		})
		notFound.ServeHTTP(w, req)
	})
	return nil
}

func (r *Router) gate(rt Route, view http.Handler, sessions SessionSource) http.Handler {
	target := guard.Target{View: rt.View, RequiredAuth: rt.RequiredAuth}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		res := Resolution{Route: rt, Decision: r.guard.Decide(sessions.Get(), target)}
		r.observe(res)
		if !res.Decision.Allowed() {
			http.Redirect(w, req, res.Decision.Location, http.StatusSeeOther)
			return
		}
		view.ServeHTTP(w, req)
	})
}
