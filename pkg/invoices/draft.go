// Package invoices holds the client-side state of the invoice creation
// wizard.
package invoices

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paydesk/pkg/errors"
	"paydesk/pkg/models"
)

// Step is a page of the creation wizard.
type Step int

const (
	StepCustomer Step = iota + 1
	StepItems
	StepReview
)

// LastStep is the final wizard step.
const LastStep = StepReview

const (
	maxNotes = 1000
	maxItems = 50
)

func (s Step) String() string {
	switch s {
	case StepCustomer:
		return "customer"
	case StepItems:
		return "items"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Valid reports whether s is a wizard step.
func (s Step) Valid() bool {
	return s >= StepCustomer && s <= LastStep
}

// ParseStep reads a step number from a form value; anything invalid is the
// first step.
func ParseStep(raw string) Step {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !Step(n).Valid() {
		return StepCustomer
	}
	return Step(n)
}

// Draft is an invoice being assembled over several steps.
type Draft struct {
	ID         string
	CustomerID string
	IssuedAt   time.Time
	DueAt      time.Time
	Items      []models.LineItem
	Currency   string
	Notes      string
}

// NewDraft starts a draft issued today and due in 30 days.
func NewDraft(now time.Time) *Draft {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return &Draft{
		ID:       uuid.NewString(),
		IssuedAt: today,
		DueAt:    today.AddDate(0, 0, 30),
		Currency: "USD",
	}
}

// Total sums the line amounts.
func (d *Draft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range d.Items {
		total = total.Add(it.Amount())
	}
	return total
}

// ValidateStep checks the fields owned by one step.
func (d *Draft) ValidateStep(step Step) *errors.ValidationResult {
	result := errors.NewValidationResult()
	switch step {
	case StepCustomer:
		if strings.TrimSpace(d.CustomerID) == "" {
			result.AddError(errors.Field("customer_id", "CUSTOMER_REQUIRED", "Please choose a customer"))
		}
		if d.IssuedAt.IsZero() {
			result.AddError(errors.Field("issued_at", "ISSUE_DATE_REQUIRED", "Please enter an issue date"))
		}
		if d.DueAt.IsZero() {
			result.AddError(errors.Field("due_at", "DUE_DATE_REQUIRED", "Please enter a due date"))
		} else if !d.IssuedAt.IsZero() && d.DueAt.Before(d.IssuedAt) {
			result.AddError(errors.Field("due_at", "DUE_BEFORE_ISSUE", "The due date cannot be before the issue date"))
		}
	case StepItems:
		if len(d.Items) == 0 {
			result.AddError(errors.Field("items", "ITEMS_REQUIRED", "Add at least one line item"))
		}
		if len(d.Items) > maxItems {
			result.AddError(errors.Field("items", "TOO_MANY_ITEMS", fmt.Sprintf("An invoice can have at most %d line items", maxItems)))
		}
		for i, it := range d.Items {
			row := fmt.Sprintf("items[%d]", i)
			if strings.TrimSpace(it.Description) == "" {
				result.AddError(errors.Field(row+".description", "DESCRIPTION_REQUIRED", fmt.Sprintf("Line %d needs a description", i+1)))
			}
			if it.Quantity <= 0 {
				result.AddError(errors.Field(row+".quantity", "QUANTITY_INVALID", fmt.Sprintf("Line %d needs a quantity of at least 1", i+1)))
			}
			if it.UnitPrice.IsNegative() {
				result.AddError(errors.Field(row+".unit_price", "PRICE_NEGATIVE", fmt.Sprintf("Line %d has a negative price", i+1)))
			}
		}
	case StepReview:
		if !validCurrency(d.Currency) {
			result.AddError(errors.Field("currency", "CURRENCY_INVALID", "Currency must be a three-letter ISO code"))
		}
		if len([]rune(d.Notes)) > maxNotes {
			result.AddError(errors.Field("notes", "NOTES_TOO_LONG", fmt.Sprintf("Notes must be at most %d characters", maxNotes)))
		}
	default:
		result.AddError(errors.Field("step", "STEP_INVALID", "Unknown step"))
	}
	return result
}

// ValidateThrough validates every step up to and including step.
func (d *Draft) ValidateThrough(step Step) *errors.ValidationResult {
	result := errors.NewValidationResult()
	for s := StepCustomer; s <= step && s <= LastStep; s++ {
		result.Merge(d.ValidateStep(s))
	}
	return result
}

// ToNewInvoice converts a complete draft to the API payload.
func (d *Draft) ToNewInvoice() models.NewInvoice {
	items := make([]models.LineItem, len(d.Items))
	copy(items, d.Items)
	return models.NewInvoice{
		CustomerID: d.CustomerID,
		Currency:   strings.ToUpper(d.Currency),
		Items:      items,
		Notes:      strings.TrimSpace(d.Notes),
		IssuedAt:   d.IssuedAt,
		DueAt:      d.DueAt,
	}
}

func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
