package sqlpager

import (
	"regexp"
	"strings"
)

// Analyzer inspects a SQL template before pagination clauses are added to it.
type Analyzer interface {
	Analyze(sql string) (Analysis, error)
}

// Analysis describes the top level structure of one SQL template.
type Analysis interface {
	HasWhere() bool
	HasHaving() bool
	HasGroupBy() bool
	IsUnion() bool
	// KeywordEnd returns the offset right after the top-level keyword, false
	// when the statement does not have it.
	KeywordEnd(keyword string) (int, bool)
	// ExtractAliasSelectColumn returns the SELECT expression aliased as alias.
	// WHERE cannot reference SELECT aliases, so cursor predicates use it.
	ExtractAliasSelectColumn(alias string) (string, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(sql string) (Analysis, error)

func (f AnalyzerFunc) Analyze(sql string) (Analysis, error) {
	return f(sql)
}

// KeywordAnalyzer is a lightweight Analyzer which looks at keywords placed
// outside parentheses, quoted literals and identifiers. It does not validate
// the statement.
type KeywordAnalyzer struct{}

var _ Analyzer = KeywordAnalyzer{}

func (KeywordAnalyzer) Analyze(sql string) (Analysis, error) {
	return newKeywordAnalysis(sql), nil
}

type keywordAnalysis struct {
	sql      string
	keywords map[string]int // keyword -> first top-level position
}

var _topLevelKeywords = []string{"SELECT", "FROM", "WHERE", "GROUP", "HAVING", "UNION", "ORDER", "LIMIT"}

func newKeywordAnalysis(sql string) *keywordAnalysis {
	ret := &keywordAnalysis{sql: sql, keywords: make(map[string]int)}

	for _, word := range topLevelWords(sql) {
		upper := strings.ToUpper(word.text)
		for _, kw := range _topLevelKeywords {
			if upper != kw {
				continue
			}
			if _, ok := ret.keywords[kw]; !ok {
				ret.keywords[kw] = word.pos
			}
		}
	}

	return ret
}

func (a *keywordAnalysis) has(kw string) bool {
	_, ok := a.keywords[kw]
	return ok
}

func (a *keywordAnalysis) HasWhere() bool   { return a.has("WHERE") }
func (a *keywordAnalysis) HasHaving() bool  { return a.has("HAVING") }
func (a *keywordAnalysis) HasGroupBy() bool { return a.has("GROUP") }
func (a *keywordAnalysis) IsUnion() bool    { return a.has("UNION") }

func (a *keywordAnalysis) KeywordEnd(keyword string) (int, bool) {
	kw := strings.ToUpper(keyword)
	pos, ok := a.keywords[kw]
	if !ok {
		return 0, false
	}

	return pos + len(kw), true
}

var (
	_aliasAsPattern   = regexp.MustCompile(`(?is)^(.+?)\s+AS\s+([A-Za-z0-9_"` + "`" + `]+)$`)
	_aliasBarePattern = regexp.MustCompile(`(?is)^(.*[A-Za-z0-9_)'"` + "`" + `])\s+([A-Za-z_][A-Za-z0-9_]*)$`)
)

// ExtractAliasSelectColumn resolves alias among the select list items: "expr
// AS alias", "expr alias" and "table.alias". An alias which is not found is
// returned as is, it is then a plain column reference.
func (a *keywordAnalysis) ExtractAliasSelectColumn(alias string) (string, error) {
	for _, item := range a.selectItems() {
		expr, itemAlias := splitSelectItem(item)
		if strings.EqualFold(unquoteIdentifier(itemAlias), unquoteIdentifier(alias)) {
			return expr, nil
		}
	}

	return alias, nil
}

func (a *keywordAnalysis) selectItems() []string {
	start, ok := a.keywords["SELECT"]
	if !ok {
		return nil
	}
	start += len("SELECT")

	end := len(a.sql)
	if from, ok := a.keywords["FROM"]; ok && from > start {
		end = from
	}

	list := strings.TrimSpace(a.sql[start:end])
	if fields := strings.Fields(list); len(fields) > 0 && strings.EqualFold(fields[0], "DISTINCT") {
		list = strings.TrimSpace(list[len(fields[0]):])
	}

	return splitTopLevel(list, ',')
}

func splitSelectItem(item string) (expr string, alias string) {
	item = strings.TrimSpace(item)

	if m := _aliasAsPattern.FindStringSubmatch(item); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}

	if m := _aliasBarePattern.FindStringSubmatch(item); m != nil && !isSQLOperatorTail(m[1]) {
		return strings.TrimSpace(m[1]), m[2]
	}

	if idx := strings.LastIndex(item, "."); idx != -1 {
		return item, item[idx+1:]
	}

	return item, item
}

// isSQLOperatorTail rejects "x IS NOT NULL"-like items the bare alias
// pattern could take for "expr alias".
func isSQLOperatorTail(expr string) bool {
	fields := strings.Fields(expr)
	if len(fields) == 0 {
		return true
	}

	switch strings.ToUpper(fields[len(fields)-1]) {
	case "AND", "OR", "NOT", "IS", "DISTINCT", "CASE", "WHEN", "THEN", "ELSE":
		return true
	}

	return false
}

func unquoteIdentifier(s string) string {
	return strings.Trim(s, "\"`")
}

type sqlWord struct {
	text string
	pos  int
}

// topLevelWords returns identifier-like words at parenthesis depth zero and
// outside quoted sections.
func topLevelWords(sql string) []sqlWord {
	var (
		ret   []sqlWord
		depth int
		quote byte
	)

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}

		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case isPlaceholderSymbol(ch) && (i == 0 || !isPlaceholderSymbol(sql[i-1]) && sql[i-1] != ':'):
			j := i
			for j < len(sql) && isPlaceholderSymbol(sql[j]) {
				j++
			}
			if depth == 0 {
				ret = append(ret, sqlWord{text: sql[i:j], pos: i})
			}
			i = j - 1
		}
	}

	return ret
}

// splitTopLevel splits s by sep placed outside parentheses and quotes.
func splitTopLevel(s string, sep byte) []string {
	var (
		ret   []string
		depth int
		quote byte
		last  int
	)

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}

		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				ret = append(ret, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
	}

	if tail := strings.TrimSpace(s[last:]); tail != "" {
		ret = append(ret, tail)
	}

	return ret
}
