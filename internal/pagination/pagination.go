// Package pagination splits ordered result sets into fixed-size numbered pages.
package pagination

import (
	"errors"
	"strconv"
	"strings"
)

// PageSize is the number of items shown on every paginated page.
const PageSize = 10

// Page describes one page of a result set. Numbers are 1-based.
type Page struct {
	Number   int
	NumPages int
	Total    int64
	Size     int
}

// Result is one page of items together with its page metadata.
type Result[T any] struct {
	Items []T
	Page  Page
}

// New resolves the raw "page" query value against a result set of total items.
// Missing or non-numeric values select the first page, numbers below 1 select the
// first page and numbers past the end select the last page, including numbers too
// large for an int. An empty result set still has one (empty) page.
func New(total int64, raw string) Page {
	if total < 0 {
		total = 0
	}
	numPages := int((total + PageSize - 1) / PageSize)
	if numPages < 1 {
		numPages = 1
	}

	raw = strings.TrimSpace(raw)
	number, err := strconv.Atoi(raw)
	switch {
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-"):
		number = numPages
	case err != nil, number < 1:
		number = 1
	case number > numPages:
		number = numPages
	}

	return Page{Number: number, NumPages: numPages, Total: total, Size: PageSize}
}

// Offset is the number of items preceding this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Limit is the maximum number of items on this page.
func (p Page) Limit() int {
	return p.Size
}

func (p Page) HasNext() bool {
	return p.Number < p.NumPages
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}

func (p Page) HasOtherPages() bool {
	return p.NumPages > 1
}

func (p Page) NextNumber() int {
	if p.HasNext() {
		return p.Number + 1
	}
	return p.Number
}

func (p Page) PreviousNumber() int {
	if p.HasPrevious() {
		return p.Number - 1
	}
	return p.Number
}

// PageRange lists every page number, for rendering page links.
func (p Page) PageRange() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
