package types

import (
	"paydesk/pkg/models"
	"paydesk/pkg/router"
	"paydesk/pkg/utils"
)

// SessionView is the session as exposed to the webview. The token never
// leaves the Go side.
type SessionView struct {
	IsAuthenticated  bool               `json:"is_authenticated"`
	DisplayName      string             `json:"display_name"`
	Initials         string             `json:"initials"`
	Profile          models.Profile     `json:"profile"`
	Accounts         []WailsBankAccount `json:"accounts"`
	DefaultAccountID string             `json:"default_account_id,omitempty"`
}

// WailsBankAccount is a bank account with the number masked.
type WailsBankAccount struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	Currency      string `json:"currency"`
	Country       string `json:"country"`
	IsDefault     bool   `json:"is_default"`
}

// NavigationView is a router decision in a Wails-friendly shape.
type NavigationView struct {
	Path     string            `json:"path"`
	View     string            `json:"view"`
	Allowed  bool              `json:"allowed"`
	Redirect string            `json:"redirect,omitempty"`
	NotFound bool              `json:"not_found"`
	Params   map[string]string `json:"params,omitempty"`
}

// ConvertSession builds the webview projection of s.
func ConvertSession(s models.Session) SessionView {
	view := SessionView{
		IsAuthenticated: s.IsAuthenticated,
		DisplayName:     utils.DisplayName(s.Profile.FullName, s.Profile.FirstName, s.Profile.LastName),
		Initials:        utils.Initials(s.Profile.FirstName, s.Profile.LastName),
		Profile:         s.Profile,
		Accounts:        make([]WailsBankAccount, 0, len(s.Accounts)),
	}
	for _, acc := range s.Accounts {
		view.Accounts = append(view.Accounts, WailsBankAccount{
			ID:            acc.ID,
			Name:          acc.Name,
			AccountNumber: utils.MaskAccountNumber(acc.AccountNumber),
			Currency:      acc.Currency,
			Country:       acc.Country,
			IsDefault:     acc.IsDefault,
		})
	}
	if acc, ok := s.DefaultAccount(); ok {
		view.DefaultAccountID = acc.ID
	}
	return view
}

// ConvertResolution flattens a router resolution.
func ConvertResolution(path string, res router.Resolution) NavigationView {
	view := NavigationView{
		Path:     path,
		View:     res.Decision.View,
		Allowed:  res.Decision.Allowed(),
		NotFound: res.NotFound,
		Params:   res.Params,
	}
	if !view.Allowed {
		view.View = ""
		view.Redirect = res.Decision.Location
	}
	return view
}
