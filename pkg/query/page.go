package query

const (
	// DefaultLimit is used when a list request does not specify a limit
	DefaultLimit = 20
	// MaxLimit caps the page size of any list request
	MaxLimit = 100
)

// Page describes a 1-based pagination window
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewPage normalizes raw page/limit values
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

// Offset returns the number of items to skip
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Window applies the page to a slice length and returns the [start, end) bounds
func (p Page) Window(n int) (int, int) {
	p = NewPage(p.Page, p.Limit)
	start := p.Offset()
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

// Result is a page of items plus the total matching count
type Result[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}
