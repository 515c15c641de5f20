package sqlpager

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// ExprValueToken is substituted with the placeholder of the wrapped value.
const ExprValueToken = "{val}"

// keySeparator joins a parameter key with its generated suffixes. User keys
// cannot contain it, which keeps generated names collision free.
const keySeparator = "__"

var _paramKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Expr wraps a raw SQL fragment used in place of a placeholder. The fragment
// may contain ExprValueToken, which is replaced with a placeholder bound to
// the wrapped value.
//
// Example:
//
//	params := map[string]any{
//		"created": sqlpager.RawValue("DATE({val})", "2024-01-01"),
//		"now":     sqlpager.Raw("CURRENT_TIMESTAMP"),
//	}
type Expr struct {
	sql   string
	value any
	bound bool
}

// Raw returns an expression which needs no bound value.
func Raw(sql string) Expr {
	return Expr{sql: sql}
}

// RawValue returns an expression whose ExprValueToken is bound to value.
func RawValue(sql string, value any) Expr {
	return Expr{sql: sql, value: value, bound: true}
}

func (e Expr) SQL() string { return e.sql }
func (e Expr) Value() any { return e.value }
func (e Expr) HasValue() bool { return e.bound }

// binder normalizes named parameters for drivers that reject a name
// referenced more than once and cannot bind lists.
type binder struct {
	converter driver.ValueConverter
}

func newBinder(converter driver.ValueConverter) *binder {
	if converter == nil {
		converter = driver.DefaultParameterConverter
	}

	return &binder{converter: converter}
}

// ValidateParamKey checks that key can be used as a named parameter.
func ValidateParamKey(key string) error {
	if !_paramKeyPattern.MatchString(key) {
		return &ParameterFormatError{Key: key, Reason: "only [a-zA-Z0-9_] symbols are allowed"}
	}

	if strings.Contains(key, keySeparator) {
		return &ParameterFormatError{Key: key, Reason: "double underscore is reserved"}
	}

	if strings.EqualFold(key, cursorParamKey) {
		return &ParameterFormatError{Key: key, Reason: "reserved for cursor boundary values"}
	}

	return nil
}

// Bind rewrites ":key" placeholders of text for every key in params and
// returns the bindings in statement order.
//
//   - A key met k > 1 times becomes key__0 ... key__(k-1), all bound to the
//     same value.
//   - A list becomes a comma separated list of key__i placeholders.
//   - An Expr replaces the placeholder with its fragment.
//
// Placeholders without a matching key are left as is. Params absent from
// text are not bound.
func (b *binder) Bind(text string, params map[string]any) (string, Bindings, error) {
	keys := lo.Keys(params)
	slices.Sort(keys)

	for _, key := range keys {
		if err := ValidateParamKey(key); err != nil {
			return "", nil, err
		}
	}

	found := scanPlaceholders(text)
	counts := lo.CountValuesBy(found, func(item placeholder) string {
		return item.name
	})

	var (
		sb          strings.Builder
		bindings    Bindings
		occurrences = make(map[string]int, len(counts))
		last        int
	)
	for _, ph := range found {
		value, ok := params[ph.name]
		if !ok {
			continue
		}

		key := ph.name
		if counts[ph.name] > 1 {
			key = suffixKey(ph.name, occurrences[ph.name])
		}
		occurrences[ph.name]++

		fragment, fragmentBindings, err := b.bindValue(key, value)
		if err != nil {
			return "", nil, fmt.Errorf("cannot bind parameter '%s': %w", ph.name, err)
		}

		sb.WriteString(text[last:ph.start])
		sb.WriteString(fragment)
		last = ph.end
		bindings = append(bindings, fragmentBindings...)
	}
	sb.WriteString(text[last:])

	return sb.String(), bindings, nil
}

// bindValue returns the SQL fragment standing for value under key.
func (b *binder) bindValue(key string, value any) (string, Bindings, error) {
	switch vt := value.(type) {
	case Expr:
		return b.bindExpr(key, vt)
	case driver.Valuer, []byte, string, nil:
		return b.bindScalar(key, value)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return b.bindScalar(key, value)
	}

	// IN (NULL) matches nothing, same as an empty list would.
	if rv.Len() == 0 {
		return "NULL", nil, nil
	}

	fragments := make([]string, 0, rv.Len())
	var bindings Bindings
	for i := 0; i < rv.Len(); i++ {
		elemKey := suffixKey(key, i)

		var (
			fragment     string
			elemBindings Bindings
			err          error
		)
		if expr, ok := rv.Index(i).Interface().(Expr); ok {
			fragment, elemBindings, err = b.bindExpr(elemKey, expr)
		} else {
			fragment, elemBindings, err = b.bindScalar(elemKey, rv.Index(i).Interface())
		}
		if err != nil {
			return "", nil, err
		}

		fragments = append(fragments, fragment)
		bindings = append(bindings, elemBindings...)
	}

	return strings.Join(fragments, ", "), bindings, nil
}

func (b *binder) bindExpr(key string, expr Expr) (string, Bindings, error) {
	if !strings.Contains(expr.sql, ExprValueToken) {
		return expr.sql, nil, nil
	}

	fragment := strings.Replace(expr.sql, ExprValueToken, ":"+key, 1)
	_, bindings, err := b.bindScalar(key, expr.value)
	if err != nil {
		return "", nil, err
	}

	return fragment, bindings, nil
}

func (b *binder) bindScalar(key string, value any) (string, Bindings, error) {
	converted, err := b.converter.ConvertValue(value)
	if err != nil {
		return "", nil, fmt.Errorf("cannot convert value of '%s': %w", key, err)
	}

	return ":" + key, Bindings{{Name: key, Value: converted}}, nil
}

func suffixKey(key string, i int) string {
	return fmt.Sprintf("%s%s%d", key, keySeparator, i)
}
