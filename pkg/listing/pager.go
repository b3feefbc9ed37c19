package listing

// Pager describes the navigation controls of a paged list.
type Pager struct {
	Page     int
	PageSize int
	Total    int
	Last     int
	Prev     int
	Next     int
	HasPrev  bool
	HasNext  bool
	From     int
	To       int
}

// NewPager computes controls for q given the server's total row count.
func NewPager(q Query, total int) Pager {
	size := q.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	if total < 0 {
		total = 0
	}
	last := (total + size - 1) / size
	if last < 1 {
		last = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	p := Pager{
		Page:     page,
		PageSize: size,
		Total:    total,
		Last:     last,
		HasPrev:  page > 1,
		HasNext:  page < last,
	}
	if p.HasPrev {
		p.Prev = page - 1
	}
	if p.HasNext {
		p.Next = page + 1
	}
	if total > 0 && page <= last {
		p.From = (page-1)*size + 1
		p.To = min(page*size, total)
	}
	return p
}
