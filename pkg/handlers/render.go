package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paydesk/pkg/listing"
	"paydesk/pkg/models"
	"paydesk/pkg/performance"
	"paydesk/pkg/router"
	"paydesk/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template file per view. Every view shares layout.html and partials.html.
var viewTemplates = map[string]string{
	router.ViewLogin:         "login.html",
	router.ViewDashboard:     "dashboard.html",
	router.ViewInvoices:      "invoices.html",
	router.ViewInvoiceNew:    "invoice_new.html",
	router.ViewInvoice:       "invoice.html",
	router.ViewCustomers:     "customers.html",
	router.ViewSubscriptions: "subscriptions.html",
	router.ViewTransactions:  "transactions.html",
	router.ViewBankAccounts:  "bank_accounts.html",
	router.ViewProfile:       "profile.html",
	router.ViewNotFound:      "not_found.html",
}

// FlashKind styles a flash message.
type FlashKind string

const (
	FlashInfo  FlashKind = "info"
	FlashError FlashKind = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    FlashKind
	Message string
}

// Flashes is the pending message queue. The client is single-user, so one
// queue serves the process.
type Flashes struct {
	mu    sync.Mutex
	queue []Flash
}

// Add queues a message.
func (f *Flashes) Add(kind FlashKind, msg string) {
	if msg == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, Flash{Kind: kind, Message: msg})
}

// Pop returns and clears the queue.
func (f *Flashes) Pop() []Flash {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.queue
	f.queue = nil
	return out
}

// Page is the data every template receives.
type Page struct {
	Title   string
	View    string
	Session models.Session
	Flashes []Flash
	Data    any
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal, currency string) string {
		return d.StringFixed(2) + " " + currency
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"pageLink": func(q listing.Query, n int) string {
		return "?" + q.AtPage(n).Encode()
	},
	"sortLink": func(q listing.Query, key string) string {
		return "?" + q.SortBy(key).Encode()
	},
	"sortMark": func(q listing.Query, key string) string {
		if q.Sort != key {
			return ""
		}
		if q.Order == listing.Desc {
			return "↓"
		}
		return "↑"
	},
	"csvLink": func(q listing.Query) string {
		v := q.Values()
		v.Del("page")
		v.Set("format", "csv")
		return "?" + v.Encode()
	},
	"mask":     utils.MaskAccountNumber,
	"initials": utils.Initials,
	"dict": func(kv ...any) (map[string]any, error) {
		if len(kv)%2 != 0 {
			return nil, fmt.Errorf("dict: odd number of arguments")
		}
		m := make(map[string]any, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
			}
			m[key] = kv[i+1]
		}
		return m, nil
	},
}

type renderer struct {
	pages   map[string]*template.Template
	buffers *performance.BufferPool
}

func newRenderer() (*renderer, error) {
	r := &renderer{
		pages:   make(map[string]*template.Template, len(viewTemplates)),
		buffers: performance.NewBufferPool(16 << 10),
	}
	for view, file := range viewTemplates {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/partials.html", "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[view] = t
	}
	return r, nil
}

// render executes into a buffer first so a template error never leaves a
// half-written page.
func (r *renderer) render(w http.ResponseWriter, status int, p Page) error {
	t, ok := r.pages[p.View]
	if !ok {
		return fmt.Errorf("no template for view %q", p.View)
	}
	buf := r.buffers.Get()
	defer r.buffers.Put(buf)
	if err := t.Execute(buf, p); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
