// Package guard decides whether a navigation may render its view.
package guard

import "paydesk/pkg/models"

// DefaultLoginPath is where unauthenticated navigations are sent.
const DefaultLoginPath = "/login"

// State is the authentication state the guard reasons about.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// StateOf derives the guard state from a session.
func StateOf(s models.Session) State {
	if s.IsAuthenticated {
		return Authenticated
	}
	return Unauthenticated
}

// Kind distinguishes the two possible decisions.
type Kind int

const (
	Allow Kind = iota
	Redirect
)

func (k Kind) String() string {
	if k == Redirect {
		return "redirect"
	}
	return "allow"
}

// Target is what a navigation asks for.
type Target struct {
	View         string
	RequiredAuth bool
}

// Decision is the outcome of a navigation check.
type Decision struct {
	Kind     Kind
	View     string
	Location string
}

// Allowed reports whether the requested view may render.
func (d Decision) Allowed() bool {
	return d.Kind == Allow
}

// Guard gates protected targets behind the session's authentication flag.
type Guard struct {
	LoginPath string
}

// New returns a guard redirecting to loginPath, or DefaultLoginPath when empty.
func New(loginPath string) Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return Guard{LoginPath: loginPath}
}

// Decide returns Allow(view) for public targets and for protected targets of
// an authenticated session, and Redirect(login) otherwise.
func (g Guard) Decide(s models.Session, t Target) Decision {
	if !t.RequiredAuth || StateOf(s) == Authenticated {
		return Decision{Kind: Allow, View: t.View}
	}
	login := g.LoginPath
	if login == "" {
		login = DefaultLoginPath
	}
	return Decision{Kind: Redirect, Location: login}
}

// Decide uses a guard with the default login path.
func Decide(s models.Session, t Target) Decision {
	return New("").Decide(s, t)
}
