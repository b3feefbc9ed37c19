// Package listing parses and re-encodes the paging, sorting and filter state
// of list views.
package listing

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Flip returns the opposite direction.
func (o Order) Flip() Order {
	if o == Desc {
		return Asc
	}
	return Desc
}

// Spec lists what a view accepts. The first entry of Sorts is the default
// sort key.
type Spec struct {
	Sorts        []string
	DefaultOrder Order
	Filters      []string
}

// Query is the normalised list state.
type Query struct {
	Page     int
	PageSize int
	Sort     string
	Order    Order
	Filters  map[string]string
}

// ParseQuery reads v against spec. Unknown sort keys fall back to the
// default, unknown filters are dropped, and page and page_size are clamped.
func ParseQuery(v url.Values, spec Spec) Query {
	q := Query{
		Page:     positive(v.Get("page"), 1),
		PageSize: positive(v.Get("page_size"), DefaultPageSize),
		Order:    spec.DefaultOrder,
		Filters:  make(map[string]string),
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Order != Desc {
		q.Order = Asc
	}

	if len(spec.Sorts) > 0 {
		q.Sort = spec.Sorts[0]
		if s := strings.TrimSpace(v.Get("sort")); slices.Contains(spec.Sorts, s) {
			q.Sort = s
		}
	}
	switch Order(strings.ToLower(strings.TrimSpace(v.Get("order")))) {
	case Asc:
		q.Order = Asc
	case Desc:
		q.Order = Desc
	}

	for _, key := range spec.Filters {
		if val := strings.TrimSpace(v.Get(key)); val != "" {
			q.Filters[key] = val
		}
	}
	return q
}

func positive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Offset is the zero-based index of the first row on the page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Filter returns the value of a filter, or "".
func (q Query) Filter(key string) string {
	return q.Filters[key]
}

// Values re-encodes the query for the API or for links.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	if q.Sort != "" {
		v.Set("sort", q.Sort)
		v.Set("order", string(q.Order))
	}
	for k, val := range q.Filters {
		v.Set(k, val)
	}
	return v
}

// Encode is Values().Encode().
func (q Query) Encode() string {
	return q.Values().Encode()
}

func (q Query) clone() Query {
	out := q
	out.Filters = make(map[string]string, len(q.Filters))
	for k, v := range q.Filters {
		out.Filters[k] = v
	}
	return out
}

// AtPage returns a copy positioned on page n.
func (q Query) AtPage(n int) Query {
	out := q.clone()
	if n < 1 {
		n = 1
	}
	out.Page = n
	return out
}

// SortBy returns a copy sorted by key. Sorting by the current key flips the
// order; the page resets to 1.
func (q Query) SortBy(key string) Query {
	out := q.clone()
	if out.Sort == key {
		out.Order = out.Order.Flip()
	} else {
		out.Sort = key
		out.Order = Asc
	}
	out.Page = 1
	return out
}

// WithFilter returns a copy with key set (or removed when value is empty),
// back on page 1.
func (q Query) WithFilter(key, value string) Query {
	out := q.clone()
	if value == "" {
		delete(out.Filters, key)
	} else {
		out.Filters[key] = value
	}
	out.Page = 1
	return out
}
