package shared

import "math"

// windowRadius is how many neighbouring page numbers are offered on each side.
const windowRadius = 3

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata. Page numbers are 1-based and
// values below 1 are treated as the first page. Page is capped so Offset
// never overflows.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	page = min(page, (math.MaxInt-windowRadius)/perPage)
	if total < 0 {
		total = 0
	}
	totalPages := (total + perPage - 1) / perPage
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the number of rows skipped before the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Window returns the inclusive page number range offered for navigation:
// [max(1, page-3), min(totalPages, page+3)]. The range is empty when the
// lower bound exceeds the upper one.
func (p Pagination) Window() (first, last int) {
	first = max(1, p.Page-windowRadius)
	last = min(p.TotalPages, p.Page+windowRadius)
	return first, last
}

// Pages lists the page numbers of Window.
func (p Pagination) Pages() []int {
	first, last := p.Window()
	if first > last {
		return nil
	}
	pages := make([]int, 0, last-first+1)
	for n := first; n <= last; n++ {
		pages = append(pages, n)
	}
	return pages
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

// Beyond reports whether the page lies past the last one.
func (p Pagination) Beyond() bool {
	return p.Page > p.TotalPages
}

// HasNext reports whether a following page exists.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}
