package mockapi

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jaswdr/faker"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"paydesk/pkg/models"
)

var (
	currencies = []string{"USD", "EUR", "GBP"}
	countries  = []string{"US", "DE", "GB", "FR", "NL"}
	plans      = []string{"starter", "growth", "scale"}
	intervals  = []string{"month", "year"}
	subStates  = []string{"active", "trialing", "past_due", "canceled"}
	txTypes    = []string{"charge", "refund", "payout"}
	txStates   = []string{"succeeded", "pending", "failed"}
)

// dataset is the in-memory content served by the mock.
type dataset struct {
	profile       models.Profile
	accounts      []models.BankAccount
	customers     []models.Customer
	invoices      []models.Invoice
	subscriptions []models.Subscription
	transactions  []models.Transaction
}

func newID(prefix string) string {
	return prefix + "_" + ulid.Make().String()
}

// seed fills a dataset deterministically for a given seed value.
func seed(seedValue int64, size int, now time.Time) *dataset {
	fake := faker.NewWithSeed(rand.NewSource(seedValue))
	if size < 1 {
		size = 1
	}

	first, last := fake.Person().FirstName(), fake.Person().LastName()
	d := &dataset{
		profile: models.Profile{
			FirstName: first,
			LastName:  last,
			FullName:  first + " " + last,
		},
	}

	for i := 0; i < 3; i++ {
		d.accounts = append(d.accounts, models.BankAccount{
			ID:            newID("ba"),
			Name:          fake.Company().Name(),
			AccountNumber: fmt.Sprintf("****%04d", fake.IntBetween(0, 9999)),
			Currency:      currencies[i%len(currencies)],
			Country:       fake.RandomStringElement(countries),
			IsDefault:     i == 0,
		})
	}

	for i := 0; i < size; i++ {
		d.customers = append(d.customers, models.Customer{
			ID:        newID("cus"),
			Name:      fake.Company().Name(),
			Email:     fake.Internet().Email(),
			Country:   fake.RandomStringElement(countries),
			CreatedAt: now.Add(-time.Duration(fake.IntBetween(30, 720)) * time.Hour * 24),
		})
	}

	statuses := []models.InvoiceStatus{models.InvoiceDraft, models.InvoiceOpen, models.InvoicePaid, models.InvoiceOverdue, models.InvoiceVoid}
	for i := 0; i < size*2; i++ {
		cust := d.customers[fake.IntBetween(0, len(d.customers)-1)]
		items := make([]models.LineItem, 0, 3)
		for j := fake.IntBetween(1, 3); j > 0; j-- {
			items = append(items, models.LineItem{
				Description: fake.Lorem().Sentence(3),
				Quantity:    int64(fake.IntBetween(1, 10)),
				UnitPrice:   decimal.New(int64(fake.IntBetween(500, 50000)), -2),
			})
		}
		issued := now.Add(-time.Duration(fake.IntBetween(1, 120)) * time.Hour * 24).Truncate(time.Hour)
		d.invoices = append(d.invoices, models.Invoice{
			ID:           newID("inv"),
			Number:       fmt.Sprintf("INV-%05d", i+1),
			CustomerID:   cust.ID,
			CustomerName: cust.Name,
			Status:       statuses[fake.IntBetween(0, len(statuses)-1)],
			Currency:     fake.RandomStringElement(currencies),
			Total:        sumItems(items),
			Items:        items,
			IssuedAt:     issued,
			DueAt:        issued.Add(30 * 24 * time.Hour),
		})
	}

	for i := 0; i < size; i++ {
		cust := d.customers[i%len(d.customers)]
		d.subscriptions = append(d.subscriptions, models.Subscription{
			ID:           newID("sub"),
			CustomerID:   cust.ID,
			CustomerName: cust.Name,
			Plan:         fake.RandomStringElement(plans),
			Status:       fake.RandomStringElement(subStates),
			Amount:       decimal.New(int64(fake.IntBetween(900, 99900)), -2),
			Currency:     fake.RandomStringElement(currencies),
			Interval:     fake.RandomStringElement(intervals),
			RenewsAt:     now.Add(time.Duration(fake.IntBetween(1, 60)) * time.Hour * 24).Truncate(time.Hour),
		})
	}

	for i := 0; i < size*3; i++ {
		d.transactions = append(d.transactions, models.Transaction{
			ID:        newID("txn"),
			Reference: fmt.Sprintf("TX-%06d", fake.IntBetween(0, 999999)),
			Type:      fake.RandomStringElement(txTypes),
			Status:    fake.RandomStringElement(txStates),
			Amount:    decimal.New(int64(fake.IntBetween(100, 250000)), -2),
			Currency:  fake.RandomStringElement(currencies),
			CreatedAt: now.Add(-time.Duration(fake.IntBetween(1, 2000)) * time.Hour).Truncate(time.Minute),
		})
	}
	return d
}

func sumItems(items []models.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount())
	}
	return total
}
