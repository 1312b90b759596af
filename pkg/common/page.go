package common

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is one page of a paginated listing.
//
// Pages is the total number of pages for the current Size, Count the total
// number of items across all pages.
type Page[T any] struct {
	Items []T `json:"items"`
	Pages int `json:"pages"`
	Size  int `json:"size"`
	Count int `json:"count"`
}

// PageRequest is a 1-based page number and a page size.
type PageRequest struct {
	Page int
	Size int
}

// Normalize fills in defaults and clamps the size to MaxPageSize.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the number of rows to skip.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Size
}

// NewPage builds a Page from the items of one page and the total count.
func NewPage[T any](items []T, req PageRequest, count int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = (count + req.Size - 1) / req.Size
	}
	return Page[T]{
		Items: items,
		Pages: pages,
		Size:  req.Size,
		Count: count,
	}
}
