package invoices

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"paydesk/pkg/errors"
	"paydesk/pkg/models"
)

// DateLayout is the form encoding of issue and due dates.
const DateLayout = "2006-01-02"

// ParseDate reads a form date. Empty input is the zero time.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, raw)
}

// ParseItems builds line items from parallel form columns. Rows that are
// entirely blank are skipped; unparsable numbers are reported per row.
func ParseItems(descriptions, quantities, prices []string) ([]models.LineItem, *errors.ValidationResult) {
	result := errors.NewValidationResult()
	rows := max(len(descriptions), len(quantities), len(prices))
	items := make([]models.LineItem, 0, rows)

	at := func(col []string, i int) string {
		if i < len(col) {
			return strings.TrimSpace(col[i])
		}
		return ""
	}

	for i := 0; i < rows; i++ {
		desc, qty, price := at(descriptions, i), at(quantities, i), at(prices, i)
		if desc == "" && qty == "" && price == "" {
			continue
		}
		line := len(items) + 1
		item := models.LineItem{Description: desc}

		if qty == "" {
			qty = "1"
		}
		n, err := strconv.ParseInt(qty, 10, 64)
		if err != nil {
			result.AddError(errors.Field(fmt.Sprintf("items[%d].quantity", line-1), "QUANTITY_INVALID",
				fmt.Sprintf("Line %d has an invalid quantity", line)))
		}
		item.Quantity = n

		if price == "" {
			price = "0"
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			result.AddError(errors.Field(fmt.Sprintf("items[%d].unit_price", line-1), "PRICE_INVALID",
				fmt.Sprintf("Line %d has an invalid price", line)))
		}
		item.UnitPrice = d
		items = append(items, item)
	}
	return items, result
}
