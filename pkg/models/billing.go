package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice on the server.
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceOpen    InvoiceStatus = "open"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
	InvoiceVoid    InvoiceStatus = "void"
)

// LineItem is a single billable row on an invoice.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Amount returns quantity times unit price.
func (l LineItem) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Invoice is a server-owned invoice.
type Invoice struct {
	ID           string          `json:"id"`
	Number       string          `json:"number"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Status       InvoiceStatus   `json:"status"`
	Currency     string          `json:"currency"`
	Total        decimal.Decimal `json:"total"`
	Items        []LineItem      `json:"items,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	IssuedAt     time.Time       `json:"issued_at"`
	DueAt        time.Time       `json:"due_at"`
}

// NewInvoice is the payload for creating an invoice.
type NewInvoice struct {
	CustomerID string     `json:"customer_id"`
	Currency   string     `json:"currency"`
	Items      []LineItem `json:"items"`
	Notes      string     `json:"notes,omitempty"`
	IssuedAt   time.Time  `json:"issued_at"`
	DueAt      time.Time  `json:"due_at"`
}

// Customer is a billed party.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscription is a recurring billing plan attached to a customer.
type Subscription struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Plan         string          `json:"plan"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Interval     string          `json:"interval"`
	RenewsAt     time.Time       `json:"renews_at"`
}

// Transaction is a settled or pending money movement.
type Transaction struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

// Checkout is the gateway handoff for paying an invoice.
type Checkout struct {
	InvoiceID   string `json:"invoice_id"`
	CheckoutURL string `json:"checkout_url"`
}

// Page is the list envelope used by every paginated endpoint.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
