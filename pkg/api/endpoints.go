package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"strings"

	apperrors "paydesk/pkg/errors"
	"paydesk/pkg/models"
)

// LoginResponse is the payload of a successful POST /auth/login.
type LoginResponse struct {
	Token    string               `json:"token"`
	Profile  models.Profile       `json:"profile"`
	Accounts []models.BankAccount `json:"accounts"`
}

// Login exchanges credentials for a session token. A 2xx response without a
// token yields ErrInvalidLoginResponse.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp LoginResponse
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/login",
		endpoint: "POST /auth/login",
		body:     body,
		out:      &resp,
	})
	if err != nil {
		if stderrors.Is(err, apperrors.ErrSessionExpired) {
			return LoginResponse{}, apperrors.ErrInvalidCredentials.WithCause(err)
		}
		return LoginResponse{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return LoginResponse{}, apperrors.ErrInvalidLoginResponse
	}
	return resp, nil
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context, token string) (models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, call{method: http.MethodGet, path: "/me", endpoint: "GET /me", token: token, out: &profile})
	return profile, err
}

// UpdateProfile changes the user's first and last name.
func (c *Client) UpdateProfile(ctx context.Context, token, firstName, lastName string) (models.Profile, error) {
	body := map[string]string{
		"first_name": firstName,
		"last_name":  lastName,
	}
	var profile models.Profile
	err := c.do(ctx, call{method: http.MethodPatch, path: "/me", endpoint: "PATCH /me", body: body, token: token, out: &profile})
	return profile, err
}

// UpdateAvatar points the user's avatar at avatarURL.
func (c *Client) UpdateAvatar(ctx context.Context, token, avatarURL string) (models.Profile, error) {
	body := map[string]string{"avatar_url": avatarURL}
	var profile models.Profile
	err := c.do(ctx, call{method: http.MethodPut, path: "/me/avatar", endpoint: "PUT /me/avatar", body: body, token: token, out: &profile})
	return profile, err
}

// BankAccounts lists the user's linked payout accounts.
func (c *Client) BankAccounts(ctx context.Context, token string) ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	err := c.do(ctx, call{method: http.MethodGet, path: "/bank-accounts", endpoint: "GET /bank-accounts", token: token, out: &accounts})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListInvoices returns one page of invoices. q carries paging, sorting and filters.
func (c *Client) ListInvoices(ctx context.Context, token string, q url.Values) (models.Page[models.Invoice], error) {
	var page models.Page[models.Invoice]
	err := c.do(ctx, call{method: http.MethodGet, path: withQuery("/invoices", q), endpoint: "GET /invoices", token: token, out: &page})
	return page, err
}

// GetInvoice returns a single invoice with its line items.
func (c *Client) GetInvoice(ctx context.Context, token, id string) (models.Invoice, error) {
	var inv models.Invoice
	err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/invoices/" + url.PathEscape(id),
		endpoint: "GET /invoices/{id}",
		token:    token,
		out:      &inv,
	})
	return inv, err
}

// CreateInvoice submits a new invoice. idempotencyKey deduplicates resubmits.
func (c *Client) CreateInvoice(ctx context.Context, token string, in models.NewInvoice, idempotencyKey string) (models.Invoice, error) {
	var inv models.Invoice
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/invoices",
		endpoint: "POST /invoices",
		body:     in,
		token:    token,
		out:      &inv,
		header:   idempotency(idempotencyKey),
	})
	return inv, err
}

// Checkout asks the API for a payment gateway session for invoice id.
func (c *Client) Checkout(ctx context.Context, token, id, returnURL, idempotencyKey string) (models.Checkout, error) {
	body := map[string]string{"return_url": returnURL}
	var out models.Checkout
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/invoices/" + url.PathEscape(id) + "/checkout",
		endpoint: "POST /invoices/{id}/checkout",
		body:     body,
		token:    token,
		out:      &out,
		header:   idempotency(idempotencyKey),
	})
	if err != nil {
		return models.Checkout{}, err
	}
	if out.CheckoutURL == "" {
		return models.Checkout{}, apperrors.New(apperrors.ErrTypeNetwork, "INVALID_CHECKOUT_RESPONSE", "checkout response carried no url").
			WithUserMessage("The payment gateway is unavailable. Please try again later")
	}
	return out, nil
}

// ListCustomers returns one page of customers.
func (c *Client) ListCustomers(ctx context.Context, token string, q url.Values) (models.Page[models.Customer], error) {
	var page models.Page[models.Customer]
	err := c.do(ctx, call{method: http.MethodGet, path: withQuery("/customers", q), endpoint: "GET /customers", token: token, out: &page})
	return page, err
}

// ListSubscriptions returns one page of subscriptions.
func (c *Client) ListSubscriptions(ctx context.Context, token string, q url.Values) (models.Page[models.Subscription], error) {
	var page models.Page[models.Subscription]
	err := c.do(ctx, call{method: http.MethodGet, path: withQuery("/subscriptions", q), endpoint: "GET /subscriptions", token: token, out: &page})
	return page, err
}

// ListTransactions returns one page of transactions.
func (c *Client) ListTransactions(ctx context.Context, token string, q url.Values) (models.Page[models.Transaction], error) {
	var page models.Page[models.Transaction]
	err := c.do(ctx, call{method: http.MethodGet, path: withQuery("/transactions", q), endpoint: "GET /transactions", token: token, out: &page})
	return page, err
}

func idempotency(key string) http.Header {
	if key == "" {
		return nil
	}
	return http.Header{"Idempotency-Key": []string{key}}
}
