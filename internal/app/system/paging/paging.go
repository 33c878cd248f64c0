// internal/app/system/paging/paging.go
package paging

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultPageSize is used when the page size is missing or not a number.
const DefaultPageSize = 20

// RecentLimit is how many recently modified items an overview shows.
const RecentLimit = 5

// ParsePage extracts the 1-based "page" query parameter.
// Returns 1 if not present or invalid.
func ParsePage(r *http.Request) int {
	return NormalizePage(query.Get(r, "page"))
}

// ParsePageSize extracts the "pp" query parameter. Missing or non-numeric
// values yield def. There is no upper bound.
func ParsePageSize(r *http.Request, def int) int {
	return NormalizePageSize(query.Get(r, "pp"), def)
}

// NormalizePage turns a raw page value into a page number >= 1.
func NormalizePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// NormalizePageSize turns a raw page size into a positive size, using def
// (or DefaultPageSize when def <= 0) for anything unusable.
func NormalizePageSize(s string, def int) int {
	if def <= 0 {
		def = DefaultPageSize
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Offset returns the number of rows to skip for a 1-based page. Page
// sizes have no upper bound, so the product saturates at math.MaxInt64
// instead of wrapping negative.
func Offset(page, pageSize int) int64 {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return 0
	}
	n, size := int64(page-1), int64(pageSize)
	if n > math.MaxInt64/size {
		return math.MaxInt64
	}
	return n * size
}

// Page describes one page of an offset-paged list.
type Page struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	Pages    int   `json:"pages"`
	HasPrev  bool  `json:"has_prev"`
	HasNext  bool  `json:"has_next"`
}

// NewPage computes the paging indicators for page/pageSize over total rows.
func NewPage(page, pageSize int, total int64) Page {
	pages := 0
	if pageSize > 0 && total > 0 {
		size := int64(pageSize)
		n := total / size
		if total%size != 0 {
			n++
		}
		pages = int(n)
	}
	return Page{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Pages:    pages,
		HasPrev:  page > 1,
		HasNext:  page < pages,
	}
}

// Range holds computed display range values for a paginated list.
type Range struct {
	Start int64 `json:"start"` // 1-based start index (0 if no results)
	End   int64 `json:"end"`   // 1-based end index (0 if no results)
}

// ComputeRange calculates the 1-based display range for a page showing
// shown rows.
func ComputeRange(page, pageSize, shown int) Range {
	if shown == 0 {
		return Range{}
	}
	start := Offset(page, pageSize) + 1
	return Range{Start: start, End: start + int64(shown) - 1}
}
