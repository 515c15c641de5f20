package sqlpager

import (
	"fmt"
)

// RawPager is intended for API payloads. For proper code generation, inline it:
//
//	type MyFilter struct {
//	    Paging RawPager `json:",inline"`
//	}
type RawPager struct {
	// Page - requested page number, starting from 1.
	Page int `json:"page"`
	// Size - maximum number of records on a page.
	Size int `json:"size"`
	// EachSide - number of sibling page links rendered on either side.
	EachSide int `json:"eachSide"`
	// NeedTotal - count the whole dataset.
	NeedTotal bool `json:"needTotal"`
	// Token - optional cursor token obtained via Cursor.String().
	// If set, keyset pagination is enabled for the request.
	Token string `json:"token"`
}

// Decode converts RawPager into a normalized Pager and decodes Token.
// The returned cursor is nil when Token is empty.
func (p RawPager) Decode() (Pager, *Cursor, error) {
	cursor, err := DecodeCursor(p.Token)
	if err != nil {
		return Pager{}, nil, err
	}

	pager := NewPager(p.Page, p.Size).WithEachSide(p.EachSide)
	if p.NeedTotal {
		pager = pager.WithTotal()
	}
	if cursor != nil {
		pager = pager.WithCursor()
	}

	return pager, cursor, nil
}

// Pager describes a requested page. The zero value is not usable, build one
// with NewPager.
//
// Sizes above MaxSize are clamped to it and non-positive sizes become
// DefaultSize, so Size may differ from the requested one, e.g. 200 gives 100.
type Pager struct {
	page      int
	size      int
	eachSide  int
	needTotal bool
	useCursor bool
}

// NewPager returns a Pager for page with size records per page. Both values
// are normalized: page starts from FirstPage, size is clamped by NormalizeSize.
func NewPager(page int, size int) Pager {
	return Pager{
		page: NormalizePage(page),
		size: NormalizeSize(size),
	}
}

// WithPage returns a copy pointing to another page.
func (p Pager) WithPage(page int) Pager {
	p.page = NormalizePage(page)
	return p
}

// WithEachSide sets how many sibling pages are rendered on either side of the
// current one. Negative values are treated as zero.
func (p Pager) WithEachSide(eachSide int) Pager {
	p.eachSide = max(eachSide, 0)
	return p
}

// WithTotal requests an exact total count of the dataset.
func (p Pager) WithTotal() Pager {
	p.needTotal = true
	return p
}

// WithCursor enables keyset pagination through stored cursors.
func (p Pager) WithCursor() Pager {
	p.useCursor = true
	return p
}

func (p Pager) Page() int { return p.page }
func (p Pager) Size() int { return p.size }
func (p Pager) EachSide() int { return p.eachSide }
func (p Pager) NeedTotal() bool { return p.needTotal }
func (p Pager) UseCursor() bool { return p.useCursor }

// Next returns the pager shifted by delta pages.
func (p Pager) Next(delta int) Pager {
	return p.WithPage(p.page + delta)
}

// Verify reports whether other has the same shape as p regardless of the page
// number. A cursor produced under one shape cannot serve another.
func (p Pager) Verify(other Pager) bool {
	return p.size == other.size &&
		p.eachSide == other.eachSide &&
		p.needTotal == other.needTotal
}

// Offset returns the classic OFFSET for the page.
func (p Pager) Offset() int {
	return p.size * (p.page - 1)
}

func (p Pager) validate() error {
	if p.page < FirstPage {
		return fmt.Errorf("invalid page number %d", p.page)
	}

	if p.size < 1 {
		return fmt.Errorf("invalid page size %d", p.size)
	}

	if p.eachSide < 0 {
		return fmt.Errorf("invalid each side count %d", p.eachSide)
	}

	return nil
}
