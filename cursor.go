package sqlpager

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
)

var _encoder = base64.RawURLEncoding

var (
	errCursorExpired          = errors.New("cursor expired")
	errCursorPagerMismatch    = errors.New("cursor pager shape mismatch")
	errCursorOrderingMismatch = errors.New("cursor ordering mismatch")
	errCursorBoundaryMismatch = errors.New("cursor boundary does not match ordering")
)

// BoundaryElement is the last seen value of an ordering column.
type BoundaryElement struct {
	Column string `json:"c"`
	Value  any    `json:"v"`
}

// Cursor is a keyset boundary produced by a successful page fetch. It holds
// the first row of the page it points to, so that a request for that page (or
// any page after it) continues from the boundary instead of skipping rows.
//
// IMPORTANT:
// Orderings ALWAYS have to contain a uniquely identifying column, otherwise
// rows sharing boundary values may be skipped or repeated.
//
// A Cursor is never modified after creation. An expired or incompatible cursor
// is dropped and a new one supersedes it.
type Cursor struct {
	orderings     Orderings
	pager         Pager
	boundary      []BoundaryElement
	nextPageCount int
	createdAt     time.Time
	expiresAt     time.Time
}

// NewCursor builds a cursor pointing at pager.Page(). A zero expiresAt means
// the cursor never expires.
func NewCursor(
	orderings Orderings,
	pager Pager,
	boundary []BoundaryElement,
	nextPageCount int,
	createdAt time.Time,
	expiresAt time.Time,
) *Cursor {
	return &Cursor{
		orderings:     orderings,
		pager:         pager,
		boundary:      boundary,
		nextPageCount: max(nextPageCount, 0),
		createdAt:     createdAt,
		expiresAt:     expiresAt,
	}
}

// DecodeCursor attempts to parse a base64 encoded token into *Cursor. An
// empty token yields a nil cursor.
func DecodeCursor(b64String string) (*Cursor, error) {
	if len(b64String) == 0 {
		return nil, nil
	}

	jsonData, err := _encoder.DecodeString(b64String)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 encoded cursor: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()

	var tok cursorToken
	if err = dec.Decode(&tok); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json encoded cursor: %w", err)
	}

	ret := tok.toCursor()
	if err = ret.validate(); err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}

	return ret, nil
}

// Encode returns the opaque token representation of the cursor.
func (c *Cursor) Encode() (string, error) {
	if c == nil {
		return "", nil
	}

	jTok, err := json.Marshal(newCursorToken(c))
	if err != nil {
		return "", fmt.Errorf("cannot marshal cursor value: %w", err)
	}

	return _encoder.EncodeToString(jTok), nil
}

// String - implements fmt.Stringer.
func (c *Cursor) String() string {
	ret, err := c.Encode()
	if err != nil {
		panic(err)
	}

	return ret
}

func (c *Cursor) Orderings() Orderings {
	if c == nil {
		return nil
	}

	return c.orderings
}

// Pager returns the pager snapshot the cursor was created for. Its page is the
// page whose first row is the boundary.
func (c *Cursor) Pager() Pager {
	if c == nil {
		return Pager{}
	}

	return c.pager
}

func (c *Cursor) Page() int {
	return c.Pager().Page()
}

func (c *Cursor) Boundary() []BoundaryElement {
	if c == nil {
		return nil
	}

	return c.boundary
}

// NextPageCount returns how many pages after the cursor page were known to
// exist when the cursor was created.
func (c *Cursor) NextPageCount() int {
	if c == nil {
		return 0
	}

	return c.nextPageCount
}

func (c *Cursor) CreatedAt() time.Time {
	if c == nil {
		return time.Time{}
	}

	return c.createdAt
}

func (c *Cursor) ExpiresAt() time.Time {
	if c == nil {
		return time.Time{}
	}

	return c.expiresAt
}

// Expired reports whether the cursor is no longer usable at now.
func (c *Cursor) Expired(now time.Time) bool {
	if c == nil {
		return true
	}

	return !c.expiresAt.IsZero() && !now.Before(c.expiresAt)
}

// Lookahead returns how many pages after page are known to exist according
// to the cursor.
func (c *Cursor) Lookahead(page int) int {
	return c.Page() - page + c.NextPageCount()
}

// VerifyCursor returns cursor if it is still usable for pager at now,
// otherwise nil. A nil result means the request falls back to plain offset
// pagination.
func VerifyCursor(pager Pager, cursor *Cursor, now time.Time) *Cursor {
	if cursor.check(pager, nil, now) != nil {
		return nil
	}

	return cursor
}

// check returns the reason why the cursor cannot serve the request. Orderings
// are compared only when given.
func (c *Cursor) check(pager Pager, orderings Orderings, now time.Time) error {
	if c == nil {
		return errors.New("no cursor")
	}

	if !c.pager.Verify(pager) {
		return errCursorPagerMismatch
	}

	if c.Expired(now) {
		return errCursorExpired
	}

	if orderings != nil && !c.orderings.Equal(orderings) {
		return errCursorOrderingMismatch
	}

	return nil
}

func (c *Cursor) validate() error {
	if err := c.pager.validate(); err != nil {
		return err
	}

	if err := c.orderings.validate(); err != nil {
		return err
	}

	if len(c.boundary) != len(c.orderings) {
		return errCursorBoundaryMismatch
	}

	for i, elem := range c.boundary {
		if elem.Column != c.orderings[i].Column {
			return fmt.Errorf("%w: unexpected column '%s'", errCursorBoundaryMismatch, elem.Column)
		}
	}

	return nil
}

var _ fmt.Stringer = (*Cursor)(nil)

type (
	cursorToken struct {
		Orderings     Orderings         `json:"o"`
		Pager         tokenPager        `json:"p"`
		Boundary      []BoundaryElement `json:"b"`
		NextPageCount int               `json:"n"`
		CreatedAt     time.Time         `json:"t"`
		ExpiresAt     time.Time         `json:"e,omitempty"`
	}

	tokenPager struct {
		Page      int  `json:"pg"`
		Size      int  `json:"sz"`
		EachSide  int  `json:"es"`
		NeedTotal bool `json:"nt,omitempty"`
		UseCursor bool `json:"uc,omitempty"`
	}
)

func newCursorToken(c *Cursor) cursorToken {
	return cursorToken{
		Orderings: c.orderings,
		Pager: tokenPager{
			Page:      c.pager.page,
			Size:      c.pager.size,
			EachSide:  c.pager.eachSide,
			NeedTotal: c.pager.needTotal,
			UseCursor: c.pager.useCursor,
		},
		Boundary:      c.boundary,
		NextPageCount: c.nextPageCount,
		CreatedAt:     c.createdAt,
		ExpiresAt:     c.expiresAt,
	}
}

func (t cursorToken) toCursor() *Cursor {
	return &Cursor{
		orderings: t.Orderings,
		pager: Pager{
			page:      t.Pager.Page,
			size:      t.Pager.Size,
			eachSide:  t.Pager.EachSide,
			needTotal: t.Pager.NeedTotal,
			useCursor: t.Pager.UseCursor,
		},
		boundary: lo.Map(t.Boundary, func(item BoundaryElement, _ int) BoundaryElement {
			return BoundaryElement{Column: item.Column, Value: parseAnyValue(item.Value)}
		}),
		nextPageCount: t.NextPageCount,
		createdAt:     t.CreatedAt,
		expiresAt:     t.ExpiresAt,
	}
}

// parseAnyValue restores the Go type of a boundary value decoded from JSON.
// Integers become int64, other numbers float64, and strings holding a
// timestamp become time.Time.
func parseAnyValue(v any) any {
	// Try parsing a value as time.Time. If it succeeds, return time.Time.
	// Otherwise return the original value.
	fnParseBytesToTimeOrValue := func(vBytes []byte) any {
		dst := time.Time{}
		err := dst.UnmarshalText(vBytes)
		if err == nil {
			return dst
		}

		return v
	}

	switch vt := v.(type) {
	case json.Number:
		if i, err := vt.Int64(); err == nil {
			return i
		}
		if f, err := vt.Float64(); err == nil {
			return f
		}
		return vt.String()
	case string:
		return fnParseBytesToTimeOrValue([]byte(vt))
	case []byte:
		return fnParseBytesToTimeOrValue(vt)
	default:
		return v
	}
}
