package handlers

import (
	"net/http"

	"paydesk/pkg/errors"
	"paydesk/pkg/router"
)

type loginData struct {
	Email string
	Error string
}

// LoginHandler serves the login form (GET) and signs in (POST).
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		if h.sessions.IsAuthenticated() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		h.render(w, r, http.StatusOK, h.page(router.ViewLogin, "Sign in", loginData{}))
	case http.MethodPost:
		h.submitLogin(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) submitLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	sess, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		h.render(w, r, statusFor(err), h.page(router.ViewLogin, "Sign in", loginData{
			Email: email,
			Error: errors.UserMessage(err),
		}))
		return
	}

	h.flash.Add(FlashInfo, "Welcome back, "+sess.Profile.FirstName)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogoutHandler signs out. forget=1 also wipes the saved profile.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	forget := r.FormValue("forget") == "1"
	if err := h.auth.Logout(forget); err != nil {
		h.flash.Add(FlashError, errors.UserMessage(err))
	} else {
		h.flash.Add(FlashInfo, "You have been signed out")
	}
	http.Redirect(w, r, h.router.LoginPath(), http.StatusSeeOther)
}
