package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"paydesk/pkg/errors"
	"paydesk/pkg/invoices"
	"paydesk/pkg/models"
	"paydesk/pkg/router"
)

// minLineRows is how many item rows the items step always offers.
const minLineRows = 3

type invoiceData struct {
	Invoice models.Invoice
	CanPay  bool
}

// InvoiceHandler shows one invoice (GET) or hands it to the payment gateway (POST).
func (h *Handlers) InvoiceHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if r.Method == http.MethodPost {
		checkout, err := h.billing.Checkout(r.Context(), id, absoluteURL(r, "/invoices/"+url.PathEscape(id)))
		if err != nil {
			if !h.fail(w, r, err) {
				http.Redirect(w, r, "/invoices/"+url.PathEscape(id), http.StatusSeeOther)
			}
			return
		}
		http.Redirect(w, r, checkout.CheckoutURL, http.StatusSeeOther)
		return
	}

	inv, err := h.billing.Invoice(r.Context(), id)
	if err != nil && h.fail(w, r, err) {
		return
	}
	payable := inv.Status == models.InvoiceOpen || inv.Status == models.InvoiceOverdue
	h.render(w, r, http.StatusOK, h.page(router.ViewInvoice, "Invoice "+inv.Number, invoiceData{Invoice: inv, CanPay: payable}))
}

func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}

type lineRow struct {
	Description string
	Quantity    string
	UnitPrice   string
}

type wizardData struct {
	Draft     *invoices.Draft
	Step      invoices.Step
	Steps     []invoices.Step
	Errors    []string
	Customers []models.Customer
	Customer  models.Customer
	Lines     []lineRow
	Total     decimal.Decimal
	IssuedAt  string
	DueAt     string
}

// NewInvoiceHandler drives the three-step creation wizard.
func (h *Handlers) NewInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	id := r.FormValue("draft")
	draft, ok := h.drafts.Get(id)
	if !ok && id != "" {
		h.flash.Add(FlashError, "That draft has expired, please start again")
		if r.Method == http.MethodPost {
			http.Redirect(w, r, "/invoices/new", http.StatusSeeOther)
			return
		}
	}
	step := invoices.ParseStep(r.FormValue("step"))

	if !ok {
		// A draft is stored on its first submit so page loads never
		// accumulate empty drafts.
		draft = invoices.NewDraft(h.now())
		step = invoices.StepCustomer
		if r.Method != http.MethodPost {
			unsaved := *draft
			unsaved.ID = ""
			h.renderWizard(w, r, http.StatusOK, &unsaved, step, nil)
			return
		}
	}

	if r.Method != http.MethodPost {
		// Jumping ahead is only allowed once earlier steps are complete.
		for s := invoices.StepCustomer; s < step; s++ {
			if !draft.ValidateStep(s).IsValid {
				step = s
				break
			}
		}
		h.renderWizard(w, r, http.StatusOK, draft, step, nil)
		return
	}

	parsed := applyStep(draft, step, r)
	h.drafts.Put(draft)

	switch r.FormValue("action") {
	case "back":
		prev := step - 1
		if prev < invoices.StepCustomer {
			prev = invoices.StepCustomer
		}
		http.Redirect(w, r, wizardURL(draft.ID, prev), http.StatusSeeOther)
		return
	case "cancel":
		h.drafts.Delete(draft.ID)
		http.Redirect(w, r, "/invoices", http.StatusSeeOther)
		return
	}

	result := errors.NewValidationResult()
	result.Merge(parsed)
	if parsed.IsValid {
		result.Merge(draft.ValidateStep(step))
	}
	if !result.IsValid {
		h.renderWizard(w, r, http.StatusUnprocessableEntity, draft, step, result.Messages())
		return
	}

	if step < invoices.LastStep {
		http.Redirect(w, r, wizardURL(draft.ID, step+1), http.StatusSeeOther)
		return
	}

	for s := invoices.StepCustomer; s <= invoices.LastStep; s++ {
		if res := draft.ValidateStep(s); !res.IsValid {
			h.renderWizard(w, r, http.StatusUnprocessableEntity, draft, s, res.Messages())
			return
		}
	}

	inv, err := h.billing.CreateInvoice(r.Context(), draft.ToNewInvoice(), draft.ID)
	if err != nil {
		if isValidation(err) || statusFor(err) == http.StatusUnprocessableEntity {
			h.renderWizard(w, r, http.StatusUnprocessableEntity, draft, step, []string{errors.UserMessage(err)})
			return
		}
		if h.fail(w, r, err) {
			return
		}
		h.renderWizard(w, r, http.StatusBadGateway, draft, step, nil)
		return
	}

	h.drafts.Delete(draft.ID)
	h.flash.Add(FlashInfo, "Invoice "+inv.Number+" created")
	http.Redirect(w, r, "/invoices/"+url.PathEscape(inv.ID), http.StatusSeeOther)
}

func wizardURL(draftID string, step invoices.Step) string {
	v := url.Values{"draft": {draftID}, "step": {strconv.Itoa(int(step))}}
	return "/invoices/new?" + v.Encode()
}

// applyStep copies the submitted fields of step into d. Parse failures are
// returned; rule checks are left to Draft.ValidateStep.
func applyStep(d *invoices.Draft, step invoices.Step, r *http.Request) *errors.ValidationResult {
	result := errors.NewValidationResult()
	switch step {
	case invoices.StepCustomer:
		d.CustomerID = strings.TrimSpace(r.FormValue("customer_id"))
		issued, err := invoices.ParseDate(r.FormValue("issued_at"))
		if err != nil {
			result.AddError(errors.Field("issued_at", "ISSUE_DATE_INVALID", "Issue date must look like 2006-01-02"))
		} else {
			d.IssuedAt = issued
		}
		due, err := invoices.ParseDate(r.FormValue("due_at"))
		if err != nil {
			result.AddError(errors.Field("due_at", "DUE_DATE_INVALID", "Due date must look like 2006-01-02"))
		} else {
			d.DueAt = due
		}
	case invoices.StepItems:
		items, res := invoices.ParseItems(r.Form["description"], r.Form["quantity"], r.Form["unit_price"])
		d.Items = items
		result.Merge(res)
	case invoices.StepReview:
		d.Currency = strings.ToUpper(strings.TrimSpace(r.FormValue("currency")))
		d.Notes = r.FormValue("notes")
	}
	return result
}

func (h *Handlers) renderWizard(w http.ResponseWriter, r *http.Request, status int, d *invoices.Draft, step invoices.Step, errs []string) {
	data := wizardData{
		Draft:    d,
		Step:     step,
		Steps:    []invoices.Step{invoices.StepCustomer, invoices.StepItems, invoices.StepReview},
		Errors:   errs,
		Total:    d.Total(),
		IssuedAt: formDate(d.IssuedAt),
		DueAt:    formDate(d.DueAt),
	}

	for _, it := range d.Items {
		data.Lines = append(data.Lines, lineRow{
			Description: it.Description,
			Quantity:    strconv.FormatInt(it.Quantity, 10),
			UnitPrice:   it.UnitPrice.String(),
		})
	}
	for len(data.Lines) < minLineRows || len(data.Lines) < len(d.Items)+1 {
		data.Lines = append(data.Lines, lineRow{})
	}

	if step == invoices.StepCustomer || step == invoices.StepReview {
		customers, err := h.billing.Customers(r.Context(), url.Values{"page_size": {"100"}, "sort": {"name"}})
		if err != nil {
			if h.fail(w, r, err) {
				return
			}
		}
		data.Customers = customers.Items
		for _, c := range customers.Items {
			if c.ID == d.CustomerID {
				data.Customer = c
			}
		}
	}

	h.render(w, r, status, h.page(router.ViewInvoiceNew, "New invoice", data))
}

func formDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(invoices.DateLayout)
}
