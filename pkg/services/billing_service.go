package services

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"paydesk/pkg/errors"
	"paydesk/pkg/models"
	"paydesk/pkg/session"
)

// BillingAPI is the read/write surface of the REST API behind the views.
type BillingAPI interface {
	ListInvoices(ctx context.Context, token string, q url.Values) (models.Page[models.Invoice], error)
	GetInvoice(ctx context.Context, token, id string) (models.Invoice, error)
	CreateInvoice(ctx context.Context, token string, in models.NewInvoice, idempotencyKey string) (models.Invoice, error)
	Checkout(ctx context.Context, token, id, returnURL, idempotencyKey string) (models.Checkout, error)
	ListCustomers(ctx context.Context, token string, q url.Values) (models.Page[models.Customer], error)
	ListSubscriptions(ctx context.Context, token string, q url.Values) (models.Page[models.Subscription], error)
	ListTransactions(ctx context.Context, token string, q url.Values) (models.Page[models.Transaction], error)
}

// BillingService fetches server-owned resources with the session's token.
// Nothing is cached; every call goes to the API.
type BillingService struct {
	api    BillingAPI
	store  *session.Store
	logger *slog.Logger
}

// NewBillingService creates a billing service.
func NewBillingService(client BillingAPI, store *session.Store, logger *slog.Logger) *BillingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingService{api: client, store: store, logger: logger}
}

// Dashboard is the summary shown on the landing view.
type Dashboard struct {
	RecentInvoices      []models.Invoice
	OpenInvoices        int
	OverdueInvoices     int
	Customers           int
	ActiveSubscriptions int
}

func (s *BillingService) token() (string, error) {
	sess := s.store.Get()
	if !sess.IsAuthenticated {
		return "", errors.ErrNotAuthenticated
	}
	return sess.Token, nil
}

func (s *BillingService) check(err error) error {
	if err != nil {
		expireSession(s.store, s.logger, err)
	}
	return err
}

func countOnly(filters map[string]string) url.Values {
	v := url.Values{"page": {"1"}, "page_size": {"1"}}
	for k, val := range filters {
		v.Set(k, val)
	}
	return v
}

// Dashboard gathers counts and the latest invoices.
func (s *BillingService) Dashboard(ctx context.Context) (Dashboard, error) {
	token, err := s.token()
	if err != nil {
		return Dashboard{}, err
	}

	var d Dashboard
	recent, err := s.api.ListInvoices(ctx, token, url.Values{"page_size": {"5"}, "sort": {"issued_at"}, "order": {"desc"}})
	if err != nil {
		return Dashboard{}, s.check(err)
	}
	d.RecentInvoices = recent.Items

	open, err := s.api.ListInvoices(ctx, token, countOnly(map[string]string{"status": string(models.InvoiceOpen)}))
	if err != nil {
		return Dashboard{}, s.check(err)
	}
	d.OpenInvoices = open.Total

	overdue, err := s.api.ListInvoices(ctx, token, countOnly(map[string]string{"status": string(models.InvoiceOverdue)}))
	if err != nil {
		return Dashboard{}, s.check(err)
	}
	d.OverdueInvoices = overdue.Total

	customers, err := s.api.ListCustomers(ctx, token, countOnly(nil))
	if err != nil {
		return Dashboard{}, s.check(err)
	}
	d.Customers = customers.Total

	subs, err := s.api.ListSubscriptions(ctx, token, countOnly(map[string]string{"status": "active"}))
	if err != nil {
		return Dashboard{}, s.check(err)
	}
	d.ActiveSubscriptions = subs.Total
	return d, nil
}

// Invoices returns one page of invoices.
func (s *BillingService) Invoices(ctx context.Context, q url.Values) (models.Page[models.Invoice], error) {
	token, err := s.token()
	if err != nil {
		return models.Page[models.Invoice]{}, err
	}
	page, err := s.api.ListInvoices(ctx, token, q)
	return page, s.check(err)
}

// Invoice returns one invoice with line items.
func (s *BillingService) Invoice(ctx context.Context, id string) (models.Invoice, error) {
	token, err := s.token()
	if err != nil {
		return models.Invoice{}, err
	}
	inv, err := s.api.GetInvoice(ctx, token, id)
	return inv, s.check(err)
}

// CreateInvoice submits a draft. key identifies the draft so a double submit
// creates one invoice.
func (s *BillingService) CreateInvoice(ctx context.Context, in models.NewInvoice, key string) (models.Invoice, error) {
	token, err := s.token()
	if err != nil {
		return models.Invoice{}, err
	}
	if key == "" {
		key = uuid.NewString()
	}
	inv, err := s.api.CreateInvoice(ctx, token, in, key)
	if err == nil {
		s.logger.Info("invoice created", "invoice_id", inv.ID, "number", inv.Number)
	}
	return inv, s.check(err)
}

// Checkout opens a payment gateway session for an invoice.
func (s *BillingService) Checkout(ctx context.Context, id, returnURL string) (models.Checkout, error) {
	token, err := s.token()
	if err != nil {
		return models.Checkout{}, err
	}
	out, err := s.api.Checkout(ctx, token, id, returnURL, uuid.NewString())
	if err == nil {
		s.logger.Info("checkout started", "invoice_id", id)
	}
	return out, s.check(err)
}

// Customers returns one page of customers.
func (s *BillingService) Customers(ctx context.Context, q url.Values) (models.Page[models.Customer], error) {
	token, err := s.token()
	if err != nil {
		return models.Page[models.Customer]{}, err
	}
	page, err := s.api.ListCustomers(ctx, token, q)
	return page, s.check(err)
}

// Subscriptions returns one page of subscriptions.
func (s *BillingService) Subscriptions(ctx context.Context, q url.Values) (models.Page[models.Subscription], error) {
	token, err := s.token()
	if err != nil {
		return models.Page[models.Subscription]{}, err
	}
	page, err := s.api.ListSubscriptions(ctx, token, q)
	return page, s.check(err)
}

// Transactions returns one page of transactions.
func (s *BillingService) Transactions(ctx context.Context, q url.Values) (models.Page[models.Transaction], error) {
	token, err := s.token()
	if err != nil {
		return models.Page[models.Transaction]{}, err
	}
	page, err := s.api.ListTransactions(ctx, token, q)
	return page, s.check(err)
}
