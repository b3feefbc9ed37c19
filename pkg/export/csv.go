// Package export writes list views as CSV.
package export

import (
	"encoding/csv"
	"io"
	"time"

	"paydesk/pkg/models"
)

const dateLayout = "2006-01-02"

func write(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// WriteInvoices writes one row per invoice.
func WriteInvoices(w io.Writer, invoices []models.Invoice) error {
	rows := make([][]string, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, []string{
			inv.Number, inv.CustomerName, string(inv.Status), inv.Currency,
			inv.Total.StringFixed(2), date(inv.IssuedAt), date(inv.DueAt),
		})
	}
	return write(w, []string{"number", "customer", "status", "currency", "total", "issued_at", "due_at"}, rows)
}

// WriteCustomers writes one row per customer.
func WriteCustomers(w io.Writer, customers []models.Customer) error {
	rows := make([][]string, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []string{c.ID, c.Name, c.Email, c.Country, date(c.CreatedAt)})
	}
	return write(w, []string{"id", "name", "email", "country", "created_at"}, rows)
}

// WriteSubscriptions writes one row per subscription.
func WriteSubscriptions(w io.Writer, subs []models.Subscription) error {
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, []string{
			s.ID, s.CustomerName, s.Plan, s.Status, s.Amount.StringFixed(2), s.Currency, s.Interval, date(s.RenewsAt),
		})
	}
	return write(w, []string{"id", "customer", "plan", "status", "amount", "currency", "interval", "renews_at"}, rows)
}

// WriteTransactions writes one row per transaction.
func WriteTransactions(w io.Writer, txs []models.Transaction) error {
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []string{
			tx.Reference, tx.Type, tx.Status, tx.Amount.StringFixed(2), tx.Currency, tx.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return write(w, []string{"reference", "type", "status", "amount", "currency", "created_at"}, rows)
}

// Filename builds a download name such as invoices-2026-01-31.csv.
func Filename(kind string, now time.Time) string {
	return kind + "-" + now.UTC().Format(dateLayout) + ".csv"
}
