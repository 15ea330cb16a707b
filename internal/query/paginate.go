package query

import (
	"folio/internal/domain/content"
)

const DefaultPageSize = 9

// Page is one slice of a larger result.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Paginate cuts items into pages of size. page is 1-based and clamped to at
// least 1; a page past the end is empty rather than an error.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	total := len(items)
	totalPages := max(1, (total+size-1)/size)

	out := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
	// Compare pages before multiplying so a huge page number cannot overflow.
	if page > totalPages || total == 0 {
		return out
	}
	start := (page - 1) * size
	end := min(start+size, total)
	out.Items = append(out.Items, items[start:end]...)
	return out
}

// Summaries projects records to their listing form.
func Summaries(posts []content.PostRecord) []content.PostSummary {
	out := make([]content.PostSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Summary())
	}
	return out
}
