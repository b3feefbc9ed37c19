package mockapi

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"paydesk/pkg/listing"
	"paydesk/pkg/models"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.creds.check(body.Email, body.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	token, err := s.issueToken(s.creds.email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}

	s.mu.RLock()
	resp := map[string]any{
		"token":    token,
		"profile":  s.data.profile,
		"accounts": slices.Clone(s.data.accounts),
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.data.profile)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	first, last := strings.TrimSpace(body.FirstName), strings.TrimSpace(body.LastName)
	if first == "" || last == "" {
		writeError(w, http.StatusUnprocessableEntity, "first_name and last_name are required")
		return
	}

	s.mu.Lock()
	s.data.profile.FirstName = first
	s.data.profile.LastName = last
	s.data.profile.FullName = first + " " + last
	profile := s.data.profile
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := url.Parse(strings.TrimSpace(body.AvatarURL))
	if err != nil || u.Host == "" {
		writeError(w, http.StatusUnprocessableEntity, "avatar_url must be an absolute url")
		return
	}

	s.mu.Lock()
	s.data.profile.AvatarURL = u.String()
	profile := s.data.profile
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleBankAccounts(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.data.accounts)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	q := listing.ParseQuery(r.URL.Query(), listing.Invoices)
	status, customer := q.Filter("status"), q.Filter("customer_id")
	term := strings.ToLower(q.Filter("q"))

	s.mu.RLock()
	rows := slices.Clone(s.data.invoices)
	s.mu.RUnlock()

	page := pageOf(rows, q, func(inv models.Invoice) bool {
		if status != "" && string(inv.Status) != status {
			return false
		}
		if customer != "" && inv.CustomerID != customer {
			return false
		}
		if term != "" && !strings.Contains(strings.ToLower(inv.Number+" "+inv.CustomerName), term) {
			return false
		}
		return true
	}, map[string]func(a, b models.Invoice) int{
		"issued_at": func(a, b models.Invoice) int { return a.IssuedAt.Compare(b.IssuedAt) },
		"due_at":    func(a, b models.Invoice) int { return a.DueAt.Compare(b.DueAt) },
		"total":     func(a, b models.Invoice) int { return a.Total.Cmp(b.Total) },
		"number":    func(a, b models.Invoice) int { return strings.Compare(a.Number, b.Number) },
		"customer":  func(a, b models.Invoice) int { return strings.Compare(a.CustomerName, b.CustomerName) },
	})
	for i := range page.Items {
		page.Items[i].Items = nil
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) findInvoice(id string) (models.Invoice, int) {
	for i, inv := range s.data.invoices {
		if inv.ID == id {
			return inv, i
		}
	}
	return models.Invoice{}, -1
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	inv, idx := s.findInvoice(chi.URLParam(r, "id"))
	s.mu.RUnlock()
	if idx < 0 {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var body models.NewInvoice
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	key := r.Header.Get("Idempotency-Key")

	s.mu.Lock()
	defer s.mu.Unlock()

	if key != "" {
		if id, ok := s.idempotent["invoice:"+key]; ok {
			inv, _ := s.findInvoice(id)
			writeJSON(w, http.StatusOK, inv)
			return
		}
	}

	var customer *models.Customer
	for i := range s.data.customers {
		if s.data.customers[i].ID == body.CustomerID {
			customer = &s.data.customers[i]
			break
		}
	}
	switch {
	case customer == nil:
		writeError(w, http.StatusUnprocessableEntity, "unknown customer_id")
		return
	case len(body.Items) == 0:
		writeError(w, http.StatusUnprocessableEntity, "at least one line item is required")
		return
	case len(body.Currency) != 3:
		writeError(w, http.StatusUnprocessableEntity, "currency must be a 3-letter code")
		return
	case body.DueAt.Before(body.IssuedAt):
		writeError(w, http.StatusUnprocessableEntity, "due_at must not precede issued_at")
		return
	}
	for _, it := range body.Items {
		if it.Quantity <= 0 || it.UnitPrice.IsNegative() {
			writeError(w, http.StatusUnprocessableEntity, "line items need a positive quantity and non-negative price")
			return
		}
	}

	inv := models.Invoice{
		ID:           newID("inv"),
		Number:       fmt.Sprintf("INV-%05d", len(s.data.invoices)+1),
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Status:       models.InvoiceOpen,
		Currency:     strings.ToUpper(body.Currency),
		Total:        sumItems(body.Items),
		Items:        body.Items,
		Notes:        body.Notes,
		IssuedAt:     body.IssuedAt,
		DueAt:        body.DueAt,
	}
	s.data.invoices = append(s.data.invoices, inv)
	if key != "" {
		s.idempotent["invoice:"+key] = inv.ID
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReturnURL string `json:"return_url"`
	}
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	inv, idx := s.findInvoice(id)
	s.mu.RUnlock()
	if idx < 0 {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}
	if inv.Status != models.InvoiceOpen && inv.Status != models.InvoiceOverdue {
		writeError(w, http.StatusConflict, fmt.Sprintf("invoice is %s", inv.Status))
		return
	}

	base := s.gateway
	if base == "" {
		base = "http://" + r.Host
	}
	q := url.Values{"session": {ulid.Make().String()}}
	if body.ReturnURL != "" {
		q.Set("return", body.ReturnURL)
	}
	writeJSON(w, http.StatusOK, models.Checkout{
		InvoiceID:   inv.ID,
		CheckoutURL: base + "/gateway/checkout/" + url.PathEscape(inv.ID) + "?" + q.Encode(),
	})
}

// handleGateway stands in for the hosted payment page: it settles the invoice
// and sends the browser back.
func (s *Server) handleGateway(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	inv, idx := s.findInvoice(id)
	if idx >= 0 && inv.Status != models.InvoicePaid {
		s.data.invoices[idx].Status = models.InvoicePaid
		s.data.transactions = append(s.data.transactions, models.Transaction{
			ID:        newID("txn"),
			Reference: inv.Number,
			Type:      "charge",
			Status:    "succeeded",
			Amount:    inv.Total,
			Currency:  inv.Currency,
			CreatedAt: s.now().UTC(),
		})
	}
	s.mu.Unlock()

	if idx < 0 {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}
	if ret := r.URL.Query().Get("return"); ret != "" {
		http.Redirect(w, r, ret, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "invoice %s paid\n", inv.Number)
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	q := listing.ParseQuery(r.URL.Query(), listing.Customers)
	country, term := q.Filter("country"), strings.ToLower(q.Filter("q"))

	s.mu.RLock()
	rows := slices.Clone(s.data.customers)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, pageOf(rows, q, func(c models.Customer) bool {
		if country != "" && !strings.EqualFold(c.Country, country) {
			return false
		}
		return term == "" || strings.Contains(strings.ToLower(c.Name+" "+c.Email), term)
	}, map[string]func(a, b models.Customer) int{
		"name":       func(a, b models.Customer) int { return strings.Compare(a.Name, b.Name) },
		"created_at": func(a, b models.Customer) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"country":    func(a, b models.Customer) int { return strings.Compare(a.Country, b.Country) },
	}))
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	q := listing.ParseQuery(r.URL.Query(), listing.Subscriptions)
	status, plan, customer := q.Filter("status"), q.Filter("plan"), q.Filter("customer_id")

	s.mu.RLock()
	rows := slices.Clone(s.data.subscriptions)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, pageOf(rows, q, func(sub models.Subscription) bool {
		return (status == "" || sub.Status == status) &&
			(plan == "" || sub.Plan == plan) &&
			(customer == "" || sub.CustomerID == customer)
	}, map[string]func(a, b models.Subscription) int{
		"renews_at": func(a, b models.Subscription) int { return a.RenewsAt.Compare(b.RenewsAt) },
		"amount":    func(a, b models.Subscription) int { return a.Amount.Cmp(b.Amount) },
		"plan":      func(a, b models.Subscription) int { return strings.Compare(a.Plan, b.Plan) },
	}))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := listing.ParseQuery(r.URL.Query(), listing.Transactions)
	status, kind := q.Filter("status"), q.Filter("type")

	s.mu.RLock()
	rows := slices.Clone(s.data.transactions)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, pageOf(rows, q, func(tx models.Transaction) bool {
		return (status == "" || tx.Status == status) && (kind == "" || tx.Type == kind)
	}, map[string]func(a, b models.Transaction) int{
		"created_at": func(a, b models.Transaction) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"amount":     func(a, b models.Transaction) int { return a.Amount.Cmp(b.Amount) },
	}))
}

// pageOf filters, sorts and slices rows according to q. Ties keep seed order.
func pageOf[T any](rows []T, q listing.Query, keep func(T) bool, sorts map[string]func(a, b T) int) models.Page[T] {
	filtered := rows[:0]
	for _, row := range rows {
		if keep(row) {
			filtered = append(filtered, row)
		}
	}
	if less, ok := sorts[q.Sort]; ok {
		slices.SortStableFunc(filtered, func(a, b T) int {
			if q.Order == listing.Desc {
				return less(b, a)
			}
			return less(a, b)
		})
	}

	start := min(q.Offset(), len(filtered))
	end := min(start+q.PageSize, len(filtered))
	items := make([]T, end-start)
	copy(items, filtered[start:end])
	return models.Page[T]{
		Items:    items,
		Total:    len(filtered),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
}
