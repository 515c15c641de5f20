package sqlpager

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCursor(pager Pager, expiresAt time.Time) *Cursor {
	createdAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	return NewCursor(
		Orderings{Desc("created_at"), Asc("id")},
		pager,
		[]BoundaryElement{
			{Column: "created_at", Value: time.Date(2024, 4, 30, 8, 15, 0, 0, time.UTC)},
			{Column: "id", Value: 42},
		},
		4,
		createdAt,
		expiresAt,
	)
}

func Test_Cursor_EncodeDecode(t *testing.T) {
	pager := NewPager(3, 10).WithEachSide(2).WithCursor()
	expiresAt := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	cursor := newTestCursor(pager, expiresAt)

	token := cursor.String()
	require.NotEmpty(t, token)
	require.NotContains(t, token, "=", "token must be unpadded")

	got, err := DecodeCursor(token)
	require.NoError(t, err)

	assert.Equal(t, cursor.Orderings(), got.Orderings())
	assert.Equal(t, pager, got.Pager())
	assert.Equal(t, 3, got.Page())
	assert.Equal(t, 4, got.NextPageCount())
	assert.True(t, cursor.CreatedAt().Equal(got.CreatedAt()))
	assert.True(t, expiresAt.Equal(got.ExpiresAt()))

	boundary := got.Boundary()
	require.Len(t, boundary, 2)
	assert.Equal(t, "created_at", boundary[0].Column)
	ts, ok := boundary[0].Value.(time.Time)
	require.True(t, ok, "timestamp has to be restored, got %T", boundary[0].Value)
	assert.True(t, ts.Equal(time.Date(2024, 4, 30, 8, 15, 0, 0, time.UTC)))
	assert.Equal(t, BoundaryElement{Column: "id", Value: int64(42)}, boundary[1])
}

func Test_DecodeCursor(t *testing.T) {
	mismatch := newTestCursor(NewPager(1, 10), time.Time{})
	mismatch.boundary = mismatch.boundary[:1]
	mismatchToken, err := mismatch.Encode()
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantNil bool
		wantErr bool
	}{
		{"empty token", "", true, false},
		{"not base64", "!!!", true, true},
		{"not json", _encoder.EncodeToString([]byte("lol")), true, true},
		{"boundary does not match ordering", mismatchToken, true, true},
		{"valid", newTestCursor(NewPager(2, 5), time.Time{}).String(), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCursor(tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("%s: got error = %v, want error = %v", tt.name, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantNil, got == nil)
		})
	}
}

func Test_Cursor_Expired(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"zero expiry never expires", time.Time{}, false},
		{"future expiry", now.Add(time.Second), false},
		{"expires exactly now", now, true},
		{"past expiry", now.Add(-time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCursor(NewPager(1, 10), tt.expiresAt)
			assert.Equal(t, tt.want, c.Expired(now))
		})
	}

	assert.True(t, (*Cursor)(nil).Expired(now))
}

func Test_VerifyCursor(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	base := NewPager(3, 10).WithEachSide(2).WithCursor()
	cursor := newTestCursor(base, now.Add(time.Minute))

	tests := []struct {
		name   string
		pager  Pager
		cursor *Cursor
		now    time.Time
		want   bool
	}{
		{"same shape", base, cursor, now, true},
		{"another page", base.WithPage(7), cursor, now, true},
		{"size differs", NewPager(3, 20).WithEachSide(2), cursor, now, false},
		{"each side differs", base.WithEachSide(1), cursor, now, false},
		{"total differs", base.WithTotal(), cursor, now, false},
		{"expired", base, cursor, now.Add(time.Hour), false},
		{"nil cursor", base, nil, now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyCursor(tt.pager, tt.cursor, tt.now)
			assert.Equal(t, tt.want, got != nil)
		})
	}
}

func Test_Cursor_check(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pager := NewPager(2, 10)
	cursor := newTestCursor(pager, now.Add(-time.Minute))

	// Shape is checked before expiry, an expired cursor of another shape
	// reports the mismatch.
	assert.ErrorIs(t, cursor.check(NewPager(2, 50), nil, now), errCursorPagerMismatch)
	assert.ErrorIs(t, cursor.check(pager, nil, now), errCursorExpired)

	fresh := newTestCursor(pager, time.Time{})
	assert.NoError(t, fresh.check(pager, Orderings{Desc("created_at"), Asc("id")}, now))
	assert.ErrorIs(t, fresh.check(pager, Orderings{Asc("created_at"), Asc("id")}, now), errCursorOrderingMismatch)
}

func Test_Cursor_Lookahead(t *testing.T) {
	c := newTestCursor(NewPager(3, 10), time.Time{})

	assert.Equal(t, 6, c.Lookahead(1))
	assert.Equal(t, 4, c.Lookahead(3))
	assert.Equal(t, 0, c.Lookahead(7))
}

func Test_Cursor_Nil(t *testing.T) {
	var c *Cursor

	assert.Nil(t, c.Orderings())
	assert.Nil(t, c.Boundary())
	assert.Equal(t, Pager{}, c.Pager())
	assert.Equal(t, 0, c.NextPageCount())
	assert.True(t, c.CreatedAt().IsZero())
	assert.Equal(t, "", c.String())
}

func Test_NewCursor_NegativeNextPageCount(t *testing.T) {
	c := NewCursor(Orderings{Asc("id")}, NewPager(1, 10), []BoundaryElement{{Column: "id", Value: 1}}, -3, time.Time{}, time.Time{})
	assert.Equal(t, 0, c.NextPageCount())
}

func Test_parseAnyValue(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tsText, _ := ts.MarshalText()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"integer number", json.Number("12"), int64(12)},
		{"float number", json.Number("1.5"), 1.5},
		{"plain string", "hello", "hello"},
		{"timestamp string", string(tsText), ts},
		{"timestamp bytes", tsText, ts},
		{"bool", true, true},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAnyValue(tt.in)
			if want, ok := tt.want.(time.Time); ok {
				gotTime, ok := got.(time.Time)
				require.True(t, ok)
				assert.True(t, want.Equal(gotTime))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
