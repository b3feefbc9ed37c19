package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"paydesk/pkg/errors"
	"paydesk/pkg/export"
	"paydesk/pkg/listing"
	"paydesk/pkg/models"
	"paydesk/pkg/router"
)

// exportLimit caps CSV downloads.
const exportLimit = 1000

// listData is what the table templates render.
type listData[T any] struct {
	Items   []T
	Query   listing.Query
	Pager   listing.Pager
	Options map[string][]string
}

func newList[T any](q listing.Query, page models.Page[T], options map[string][]string) listData[T] {
	return listData[T]{
		Items:   page.Items,
		Query:   q,
		Pager:   listing.NewPager(q, page.Total),
		Options: options,
	}
}

// collect walks pages of up to MaxPageSize rows until limit rows are read.
func collect[T any](ctx context.Context, q listing.Query, limit int, fetch func(context.Context, url.Values) (models.Page[T], error)) ([]T, error) {
	q.PageSize = listing.MaxPageSize
	var out []T
	for page := 1; len(out) < limit; page++ {
		res, err := fetch(ctx, q.AtPage(page).Values())
		if err != nil {
			return nil, err
		}
		out = append(out, res.Items...)
		if len(res.Items) == 0 || len(out) >= res.Total {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *Handlers) sendCSV(w http.ResponseWriter, r *http.Request, kind string, write func(w http.ResponseWriter) error) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(kind, h.now())+`"`)
	if err := write(w); err != nil {
		h.logger.Error("write csv", "kind", kind, "error", err)
	}
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

// DashboardHandler serves the landing view.
func (h *Handlers) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	d, err := h.billing.Dashboard(r.Context())
	if err != nil && h.fail(w, r, err) {
		return
	}
	h.render(w, r, http.StatusOK, h.page(router.ViewDashboard, "Dashboard", d))
}

// InvoicesHandler lists invoices, or downloads them with format=csv.
func (h *Handlers) InvoicesHandler(w http.ResponseWriter, r *http.Request) {
	q := listing.ParseQuery(r.URL.Query(), listing.Invoices)

	if wantsCSV(r) {
		rows, err := collect(r.Context(), q, exportLimit, h.billing.Invoices)
		if err != nil {
			if !h.fail(w, r, err) {
				http.Redirect(w, r, "/invoices?"+q.Encode(), http.StatusSeeOther)
			}
			return
		}
		h.sendCSV(w, r, "invoices", func(w http.ResponseWriter) error { return export.WriteInvoices(w, rows) })
		return
	}

	page, err := h.billing.Invoices(r.Context(), q.Values())
	if err != nil && h.fail(w, r, err) {
		return
	}
	h.render(w, r, http.StatusOK, h.page(router.ViewInvoices, "Invoices", newList(q, page, map[string][]string{
		"status": {"draft", "open", "paid", "overdue", "void"},
	})))
}

// CustomersHandler lists customers.
func (h *Handlers) CustomersHandler(w http.ResponseWriter, r *http.Request) {
	q := listing.ParseQuery(r.URL.Query(), listing.Customers)

	if wantsCSV(r) {
		rows, err := collect(r.Context(), q, exportLimit, h.billing.Customers)
		if err != nil {
			if !h.fail(w, r, err) {
				http.Redirect(w, r, "/customers?"+q.Encode(), http.StatusSeeOther)
			}
			return
		}
		h.sendCSV(w, r, "customers", func(w http.ResponseWriter) error { return export.WriteCustomers(w, rows) })
		return
	}

	page, err := h.billing.Customers(r.Context(), q.Values())
	if err != nil && h.fail(w, r, err) {
		return
	}
	h.render(w, r, http.StatusOK, h.page(router.ViewCustomers, "Customers", newList(q, page, nil)))
}

// SubscriptionsHandler lists subscriptions.
func (h *Handlers) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	q := listing.ParseQuery(r.URL.Query(), listing.Subscriptions)

	if wantsCSV(r) {
		rows, err := collect(r.Context(), q, exportLimit, h.billing.Subscriptions)
		if err != nil {
			if !h.fail(w, r, err) {
				http.Redirect(w, r, "/subscriptions?"+q.Encode(), http.StatusSeeOther)
			}
			return
		}
		h.sendCSV(w, r, "subscriptions", func(w http.ResponseWriter) error { return export.WriteSubscriptions(w, rows) })
		return
	}

	page, err := h.billing.Subscriptions(r.Context(), q.Values())
	if err != nil && h.fail(w, r, err) {
		return
	}
	h.render(w, r, http.StatusOK, h.page(router.ViewSubscriptions, "Subscriptions", newList(q, page, map[string][]string{
		"status": {"active", "trialing", "past_due", "canceled"},
		"plan":   {"starter", "growth", "scale"},
	})))
}

// TransactionsHandler lists transactions.
func (h *Handlers) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	q := listing.ParseQuery(r.URL.Query(), listing.Transactions)

	if wantsCSV(r) {
		rows, err := collect(r.Context(), q, exportLimit, h.billing.Transactions)
		if err != nil {
			if !h.fail(w, r, err) {
				http.Redirect(w, r, "/transactions?"+q.Encode(), http.StatusSeeOther)
			}
			return
		}
		h.sendCSV(w, r, "transactions", func(w http.ResponseWriter) error { return export.WriteTransactions(w, rows) })
		return
	}

	page, err := h.billing.Transactions(r.Context(), q.Values())
	if err != nil && h.fail(w, r, err) {
		return
	}
	h.render(w, r, http.StatusOK, h.page(router.ViewTransactions, "Transactions", newList(q, page, map[string][]string{
		"status": {"succeeded", "pending", "failed"},
		"type":   {"charge", "refund", "payout"},
	})))
}

// BankAccountsHandler shows the session's accounts (GET) or refetches them (POST).
func (h *Handlers) BankAccountsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		accounts, err := h.auth.RefreshAccounts(r.Context())
		if err != nil {
			if h.fail(w, r, err) {
				return
			}
		} else {
			h.flash.Add(FlashInfo, refreshedMessage(len(accounts)))
		}
		http.Redirect(w, r, "/bank-accounts", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, h.page(router.ViewBankAccounts, "Bank accounts", nil))
}

func refreshedMessage(n int) string {
	if n == 1 {
		return "Bank accounts refreshed: 1 account"
	}
	return "Bank accounts refreshed: " + strconv.Itoa(n) + " accounts"
}

type profileData struct {
	Errors []string
}

// ProfileHandler shows the profile (GET) and applies name or avatar changes (POST).
func (h *Handlers) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.render(w, r, http.StatusOK, h.page(router.ViewProfile, "Profile", profileData{}))
		return
	}

	var err error
	switch r.FormValue("form") {
	case "avatar":
		_, err = h.auth.UpdateAvatar(r.Context(), r.FormValue("avatar_url"))
	default:
		_, err = h.auth.UpdateProfile(r.Context(), r.FormValue("first_name"), r.FormValue("last_name"))
	}
	if err != nil {
		if isValidation(err) {
			h.render(w, r, http.StatusUnprocessableEntity, h.page(router.ViewProfile, "Profile", profileData{
				Errors: []string{errors.UserMessage(err)},
			}))
			return
		}
		if h.fail(w, r, err) {
			return
		}
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	h.flash.Add(FlashInfo, "Profile updated")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// NotFoundHandler renders the not-found view.
func (h *Handlers) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, h.page(router.ViewNotFound, "Not found", nil))
}
