package sqlpager

import (
	"database/sql"
	"strings"

	"github.com/samber/lo"
)

// Binding is a placeholder name without the leading colon and its driver value.
type Binding struct {
	Name  string
	Value any
}

// Bindings keeps placeholders in the order they appear in the statement.
type Bindings []Binding

// Map returns the bindings keyed by placeholder name.
func (b Bindings) Map() map[string]any {
	return lo.SliceToMap(b, func(item Binding) (string, any) {
		return item.Name, item.Value
	})
}

// Get returns the value bound to name.
func (b Bindings) Get(name string) (any, bool) {
	binding, ok := lo.Find(b, func(item Binding) bool {
		return item.Name == name
	})

	return binding.Value, ok
}

// Names returns placeholder names in statement order.
func (b Bindings) Names() []string {
	return lo.Map(b, func(item Binding, _ int) string {
		return item.Name
	})
}

// NamedArgs converts bindings into database/sql named arguments.
func (b Bindings) NamedArgs() []any {
	return lo.Map(b, func(item Binding, _ int) any {
		return sql.Named(item.Name, item.Value)
	})
}

// Query is a driver-ready statement. Placeholders use the ":name" syntax and
// every name is referenced exactly once.
type Query struct {
	SQL      string
	Bindings Bindings
}

// Args returns the bindings as database/sql named arguments.
func (q Query) Args() []any {
	return q.Bindings.NamedArgs()
}

// GORM rewrites ":name" placeholders into the "@name" syntax understood by
// gorm.DB.Raw and returns the matching named argument map.
func (q Query) GORM() (string, map[string]any) {
	bound := q.Bindings.Map()

	rewritten := rewritePlaceholders(q.SQL, func(name string) (string, bool) {
		if _, ok := bound[name]; !ok {
			return "", false
		}

		return "@" + name, true
	})

	return rewritten, bound
}

func (q Query) String() string {
	return q.SQL
}

type placeholder struct {
	start int // index of ':'
	end   int // index after the last name symbol
	name  string
}

func isPlaceholderSymbol(r byte) bool {
	return r == '_' ||
		('a' <= r && r <= 'z') ||
		('A' <= r && r <= 'Z') ||
		('0' <= r && r <= '9')
}

// scanPlaceholders finds ":name" placeholders outside of quoted literals and
// identifiers. PostgreSQL casts ("::type") are skipped.
func scanPlaceholders(text string) []placeholder {
	var (
		ret   []placeholder
		quote byte
	)

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if quote != 0 {
			if ch == quote {
				// Doubled quote is an escaped quote inside the literal.
				if i+1 < len(text) && text[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}

		switch ch {
		case '\'', '"', '`':
			quote = ch
			continue
		case ':':
		default:
			continue
		}

		if i+1 < len(text) && text[i+1] == ':' {
			i++
			continue
		}
		if i > 0 && text[i-1] == ':' {
			continue
		}

		j := i + 1
		for j < len(text) && isPlaceholderSymbol(text[j]) {
			j++
		}
		if j == i+1 {
			continue
		}

		ret = append(ret, placeholder{start: i, end: j, name: text[i+1 : j]})
		i = j - 1
	}

	return ret
}

// rewritePlaceholders replaces every placeholder for which fn returns true.
func rewritePlaceholders(text string, fn func(name string) (string, bool)) string {
	found := scanPlaceholders(text)
	if len(found) == 0 {
		return text
	}

	var (
		sb   strings.Builder
		last int
	)
	for _, ph := range found {
		replacement, ok := fn(ph.name)
		if !ok {
			continue
		}

		sb.WriteString(text[last:ph.start])
		sb.WriteString(replacement)
		last = ph.end
	}
	sb.WriteString(text[last:])

	return sb.String()
}
