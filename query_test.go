package sqlpager

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Query_GORM(t *testing.T) {
	q := Query{
		SQL: "SELECT * FROM t WHERE a = :a AND b = :b__0 AND note = ':a' AND c::int = 1 AND d = :unbound",
		Bindings: Bindings{
			{Name: "a", Value: int64(1)},
			{Name: "b__0", Value: "x"},
		},
	}

	gotSQL, gotArgs := q.GORM()
	assert.Equal(t, "SELECT * FROM t WHERE a = @a AND b = @b__0 AND note = ':a' AND c::int = 1 AND d = :unbound", gotSQL)
	assert.Equal(t, map[string]any{"a": int64(1), "b__0": "x"}, gotArgs)
}

func Test_Query_Args(t *testing.T) {
	q := Query{
		SQL:      "SELECT * FROM t WHERE a = :a AND b = :b",
		Bindings: Bindings{{Name: "a", Value: int64(1)}, {Name: "b", Value: "x"}},
	}

	require.Equal(t, []any{sql.Named("a", int64(1)), sql.Named("b", "x")}, q.Args())
	require.Equal(t, q.SQL, q.String())
}

func Test_Bindings(t *testing.T) {
	b := Bindings{{Name: "a", Value: 1}, {Name: "b", Value: nil}}

	assert.Equal(t, []string{"a", "b"}, b.Names())
	assert.Equal(t, map[string]any{"a": 1, "b": nil}, b.Map())

	v, ok := b.Get("b")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = b.Get("c")
	assert.False(t, ok)
}

func Test_scanPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{"plain", "a = :a AND b = :b_1", []string{"a", "b_1"}},
		{"double colon cast", "a::text = :a", []string{"a"}},
		{"single quotes", "a = ':x' AND b = :b", []string{"b"}},
		{"escaped quote", "a = 'it''s :x' AND b = :b", []string{"b"}},
		{"double quotes", `":x" = :b`, []string{"b"}},
		{"backticks", "`:x` = :b", []string{"b"}},
		{"bare colon", "a = : AND b = :b", []string{"b"}},
		{"none", "SELECT 1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, ph := range scanPlaceholders(tt.sql) {
				got = append(got, ph.name)
				assert.Equal(t, ":"+ph.name, tt.sql[ph.start:ph.end])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
