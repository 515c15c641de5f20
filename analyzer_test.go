package sqlpager

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_KeywordAnalyzer_Analyze(t *testing.T) {
	tests := []struct {
		name       string
		sql        string
		hasWhere   bool
		hasHaving  bool
		hasGroupBy bool
		isUnion    bool
	}{
		{
			name: "plain select",
			sql:  "SELECT id, name FROM users",
		},
		{
			name:     "where",
			sql:      "SELECT id FROM users WHERE active = 1",
			hasWhere: true,
		},
		{
			name:       "group by with having",
			sql:        "SELECT user_id, COUNT(*) AS cnt FROM orders WHERE paid GROUP BY user_id HAVING COUNT(*) > 1",
			hasWhere:   true,
			hasHaving:  true,
			hasGroupBy: true,
		},
		{
			name:    "union",
			sql:     "SELECT id FROM a UNION ALL SELECT id FROM b",
			isUnion: true,
		},
		{
			name: "keywords in subquery are ignored",
			sql:  "SELECT id FROM (SELECT id FROM users WHERE active GROUP BY id UNION SELECT 1) AS T",
		},
		{
			name: "keywords in literals are ignored",
			sql:  "SELECT 'where' AS w, \"group\" FROM t",
		},
		{
			name:     "lowercase keywords",
			sql:      "select id from users where id > 1",
			hasWhere: true,
		},
		{
			name: "placeholder named like a keyword",
			sql:  "SELECT id FROM users LEFT JOIN x ON x.id = :where",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := KeywordAnalyzer{}.Analyze(tt.sql)
			require.NoError(t, err)

			assert.Equal(t, tt.hasWhere, analysis.HasWhere(), "HasWhere")
			assert.Equal(t, tt.hasHaving, analysis.HasHaving(), "HasHaving")
			assert.Equal(t, tt.hasGroupBy, analysis.HasGroupBy(), "HasGroupBy")
			assert.Equal(t, tt.isUnion, analysis.IsUnion(), "IsUnion")
		})
	}
}

func Test_keywordAnalysis_ExtractAliasSelectColumn(t *testing.T) {
	sql := "SELECT DISTINCT u.id, u.name AS user_name, COALESCE(o.total, 0) total, " +
		"CAST(o.created_at AS DATE) AS created, o.status IS NOT NULL, " +
		"(SELECT MAX(x) FROM y WHERE y.a = u.id) AS max_x " +
		"FROM users u JOIN orders o ON o.user_id = u.id WHERE u.active"

	tests := []struct {
		alias string
		want  string
	}{
		{"id", "u.id"},
		{"user_name", "u.name"},
		{"USER_NAME", "u.name"},
		{"total", "COALESCE(o.total, 0)"},
		{"created", "CAST(o.created_at AS DATE)"},
		{"max_x", "(SELECT MAX(x) FROM y WHERE y.a = u.id)"},
		{"unknown", "unknown"},
		{"NULL", "NULL"},
	}

	analysis, err := KeywordAnalyzer{}.Analyze(sql)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			got, err := analysis.ExtractAliasSelectColumn(tt.alias)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_splitTopLevel(t *testing.T) {
	got := splitTopLevel("a, f(b, c), 'x,y', d", ',')
	assert.Equal(t, []string{"a", "f(b, c)", "'x,y'", "d"}, got)
}

func Test_AnalyzerFunc(t *testing.T) {
	want := errors.New("cannot parse")
	analyzer := AnalyzerFunc(func(string) (Analysis, error) {
		return nil, want
	})

	_, err := analyzer.Analyze("SELECT 1")
	assert.ErrorIs(t, err, want)
}

func Test_KeywordAnalysis_KeywordEnd(t *testing.T) {
	sql := "SELECT id FROM users WHERE (a OR b) GROUP BY id having c"
	analysis, err := KeywordAnalyzer{}.Analyze(sql)
	require.NoError(t, err)

	end, ok := analysis.KeywordEnd("WHERE")
	require.True(t, ok)
	assert.Equal(t, " (a OR b) GROUP BY id having c", sql[end:])

	end, ok = analysis.KeywordEnd("having")
	require.True(t, ok)
	assert.Equal(t, " c", sql[end:])

	_, ok = analysis.KeywordEnd("UNION")
	assert.False(t, ok)
}
