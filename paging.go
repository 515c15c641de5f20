package sqlpager

import (
	"fmt"
	"slices"
	"time"
)

// Paginator is a fetched page together with what is known about the pages
// around it.
type Paginator[T any] struct {
	Items    []T
	EachSide int
	PageSize int
	Page     int
	// Total is set only when the pager asked for it.
	Total *int64
	// NextPageCount is the number of pages known to exist after Page. Without
	// Total it is a lower bound.
	NextPageCount int
}

// HasNextPage reports whether at least one page follows the current one.
func (p *Paginator[T]) HasNextPage() bool {
	return p != nil && p.NextPageCount > 0
}

// HasPrevPage reports whether the current page is not the first one.
func (p *Paginator[T]) HasPrevPage() bool {
	return p != nil && p.Page > FirstPage
}

// LastPage returns the last page number when Total is known, otherwise the
// last page known from NextPageCount.
func (p *Paginator[T]) LastPage() int {
	if p == nil {
		return FirstPage
	}

	if p.Total != nil && p.PageSize > 0 {
		return max(ceilDiv(int(*p.Total), p.PageSize), FirstPage)
	}

	return p.Page + p.NextPageCount
}

// Pages returns the page numbers to render as links: up to EachSide pages on
// either side of the current one, moving the links which do not fit on the
// left to the right.
func (p *Paginator[T]) Pages() []int {
	if p == nil {
		return nil
	}

	first := max(p.Page-p.EachSide, FirstPage)
	last := min(p.Page+p.EachSide+(p.EachSide-(p.Page-first)), p.LastPage())
	last = max(last, p.Page)

	ret := make([]int, 0, last-first+1)
	for page := first; page <= last; page++ {
		ret = append(ret, page)
	}

	return ret
}

// Getters read ordering column values of a row, keyed by column name.
type Getters[T any] map[string]func(T) any

// Row is a scanned result row keyed by column name.
type Row = map[string]any

// RowGetters returns getters reading every ordering column from a Row.
func RowGetters(orderings Orderings) Getters[Row] {
	ret := make(Getters[Row], len(orderings))
	for _, column := range orderings.Columns() {
		ret[column] = func(row Row) any {
			return row[column]
		}
	}

	return ret
}

// Paging reduces rows fetched with plan into a Paginator. When the pager uses
// cursors and at least one row was fetched, it also returns the cursor the
// next request should continue from. total is the result of the count query,
// it is ignored unless the pager needs it.
func Paging[T any](plan *Plan, rows []T, getters Getters[T], total *int64) (*Paginator[T], *Cursor, error) {
	if plan == nil {
		return nil, nil, fmt.Errorf("cannot paginate: no plan")
	}

	if plan.Pager == nil {
		return &Paginator[T]{
			Items:    rows,
			Page:     FirstPage,
			PageSize: len(rows),
			Total:    total,
		}, nil, nil
	}

	pager := *plan.Pager
	size := pager.Size()
	page := pager.Page()

	rows = slices.Clone(rows)
	if plan.Mode == FetchBackward {
		slices.Reverse(rows)
	}

	items := rows[:min(size, len(rows))]
	rest := len(rows) - len(items)

	nextPageCount := 0
	switch {
	case pager.NeedTotal() && total != nil:
		nextPageCount = max(ceilDiv(int(*total), size)-page, 0)
	case plan.Mode == FetchBackward:
		nextPageCount = plan.Cursor.Lookahead(page)
	case rest == 0:
		nextPageCount = 0
	default:
		nextPageCount = ceilDiv(rest, size)
		if plan.Cursor != nil {
			nextPageCount = max(nextPageCount, plan.Cursor.Lookahead(page))
		}
	}

	ret := &Paginator[T]{
		Items:         items,
		EachSide:      pager.EachSide(),
		PageSize:      size,
		Page:          page,
		Total:         nil,
		NextPageCount: max(nextPageCount, 0),
	}
	if pager.NeedTotal() {
		ret.Total = total
	}

	if !pager.UseCursor() || len(plan.Orderings) == 0 || len(rows) == 0 {
		return ret, nil, nil
	}

	// Move the cursor to the next page when it was fetched, requests usually
	// go forward.
	delta := 0
	if plan.Mode != FetchBackward && rest > 0 {
		delta = 1
	}

	boundary, err := readBoundary(plan.Orderings, rows[delta*size], getters)
	if err != nil {
		return nil, nil, err
	}

	expiresAt := time.Time{}
	if plan.cursorTTL > 0 {
		expiresAt = plan.createdAt.Add(plan.cursorTTL)
	}

	cursor := NewCursor(
		plan.Orderings,
		pager.Next(delta),
		boundary,
		ret.NextPageCount-delta,
		plan.createdAt,
		expiresAt,
	)

	return ret, cursor, nil
}

func readBoundary[T any](orderings Orderings, row T, getters Getters[T]) ([]BoundaryElement, error) {
	ret := make([]BoundaryElement, 0, len(orderings))
	for _, ordering := range orderings {
		getter, ok := getters[ordering.Column]
		if !ok || getter == nil {
			return nil, fmt.Errorf("cannot build cursor: no getter for column '%s'", ordering.Column)
		}

		ret = append(ret, BoundaryElement{Column: ordering.Column, Value: normalizeBoundaryValue(getter(row))})
	}

	return ret, nil
}

// normalizeBoundaryValue turns driver byte slices into strings so that the
// value survives the JSON token unchanged.
func normalizeBoundaryValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}

	return v
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}

	return (a + b - 1) / b
}
