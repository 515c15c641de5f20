package sqlpager

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Direction defines the sort direction for the requested dataset.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

func (o Direction) Valid() bool {
	return o == DirectionASC || o == DirectionDESC
}

// Reverse returns the opposite direction.
func (o Direction) Reverse() Direction {
	switch o {
	case DirectionASC:
		return DirectionDESC
	case DirectionDESC:
		return DirectionASC
	default:
		panic(fmt.Errorf("cannot reverse direction '%s'", o))
	}
}

// ForOperator returns the strict comparison operator which selects rows
// placed after a boundary value in this direction.
func (o Direction) ForOperator() Operator {
	switch o {
	case DirectionASC:
		return OperatorGT
	case DirectionDESC:
		return OperatorLT
	default:
		panic(fmt.Errorf("cannot map direction '%s' to operator", o))
	}
}

type (
	// Orderings is an ordered column list. Position is the sort precedence.
	// Values are never modified in place: Reverse and WithSort return copies.
	Orderings []OrderBy
	OrderBy   struct {
		Column    string    `json:"c"`
		Direction Direction `json:"d"`
	}

	ColumnAlias = string

	// ColumnMapping maps external column aliases to fully qualified column names.
	// Use it when bare column names could cause an "ambiguous column name" error.
	// Key is an external alias, value is an internal column name.
	ColumnMapping = map[ColumnAlias]string
)

var _availableColumnNameSymbols = append([]rune("_.'`\""), lo.AlphanumericCharset...)

// Asc is a shortcut for OrderBy{Column: column, Direction: DirectionASC}.
func Asc(column string) OrderBy {
	return OrderBy{Column: column, Direction: DirectionASC}
}

// Desc is a shortcut for OrderBy{Column: column, Direction: DirectionDESC}.
func Desc(column string) OrderBy {
	return OrderBy{Column: column, Direction: DirectionDESC}
}

// NewOrderings builds validated Orderings. A column met twice keeps only its
// last occurrence, as if calling OrderBy(o1).ThenBy(o2)...
func NewOrderings(orderBy ...OrderBy) (Orderings, error) {
	ret := Orderings(nil).WithSort(orderBy...)

	if err := ret.validate(); err != nil {
		return nil, err
	}

	return ret, nil
}

func (o OrderBy) validate() error {
	if !o.Direction.Valid() {
		return fmt.Errorf("invalid ordering direction '%s'", o.Direction)
	}

	if o.Column == "" {
		return fmt.Errorf("empty ordering column name")
	}

	// Guard against SQL injection by restricting allowed characters in column names.
	if !lo.Every(_availableColumnNameSymbols, []rune(o.Column)) {
		return fmt.Errorf("ordering column name contains forbidden symbols '%s'", o.Column)
	}

	return nil
}

// WithSort returns a copy of o with orderBy appended. Previous occurrences of
// the same column are removed.
func (o Orderings) WithSort(orderBy ...OrderBy) Orderings {
	ret := slices.Clone(o)

	for _, ob := range orderBy {
		idx := slices.IndexFunc(ret, func(processed OrderBy) bool {
			return processed.Column == ob.Column
		})

		if idx != -1 {
			ret = slices.Delete(ret, idx, idx+1)
		}

		ret = append(ret, ob)
	}

	return ret
}

// Reverse returns a new Orderings with every direction flipped.
// Reverse(Reverse(o)) equals o.
func (o Orderings) Reverse() Orderings {
	if o == nil {
		return nil
	}

	return lo.Map(o, func(item OrderBy, _ int) OrderBy {
		return OrderBy{Column: item.Column, Direction: item.Direction.Reverse()}
	})
}

// Equal reports whether both orderings list the same columns in the same
// order with the same directions.
func (o Orderings) Equal(other Orderings) bool {
	return slices.Equal(o, other)
}

// Columns returns the ordering column names in precedence order.
func (o Orderings) Columns() []string {
	return lo.Map(o, func(item OrderBy, _ int) string {
		return item.Column
	})
}

// ToSQLSlice converts Orderings to a slice of strings in the form
// "<order_column> <order_direction>" suitable for SQL query builders.
//
// Example: for Orderings: [{"a", "ASC"}, {"b", "DESC"}] returns ["a ASC", "b DESC"].
func (o Orderings) ToSQLSlice() []string {
	ret := make([]string, 0, len(o))
	for _, ordering := range o {
		ret = append(ret, fmt.Sprintf("%s %s", ordering.Column, ordering.Direction))
	}

	return ret
}

// ToSQL converts Orderings to a single string
// "<order_column_1> <order_direction_1>, <order_column_2> <order_direction_2>"
// suitable for embedding into an SQL query.
// Example: for [{"a", "ASC"}, {"b", "DESC"}] returns "a ASC, b DESC".
func (o Orderings) ToSQL() string {
	return strings.Join(o.ToSQLSlice(), ", ")
}

func (o Orderings) validate() error {
	if len(o) == 0 {
		return fmt.Errorf("empty ordering list")
	}

	seen := make(map[string]struct{}, len(o))
	for _, ordering := range o {
		if err := ordering.validate(); err != nil {
			return err
		}

		if _, ok := seen[ordering.Column]; ok {
			return fmt.Errorf("duplicate ordering column '%s'", ordering.Column)
		}
		seen[ordering.Column] = struct{}{}
	}

	return nil
}

// ParseSort builds Orderings from a list of strings in the format
// "column asc|desc". Column aliases are resolved via ColumnMapping.
// Returns an error if an alias is not found in the mapping.
func ParseSort(stringsOrderings []string, columnMapping ColumnMapping) (Orderings, error) {
	ret := make([]OrderBy, 0, len(stringsOrderings))
	aliases := lo.Keys(columnMapping)

	for _, stringOrdering := range stringsOrderings {
		cutStringOrdering := strings.Fields(stringOrdering)
		if len(cutStringOrdering) != 2 {
			return nil, fmt.Errorf("invalid ordering string format '%s'", stringOrdering)
		}

		columnAlias := cutStringOrdering[0]
		direction := Direction(strings.ToUpper(cutStringOrdering[1]))
		columnName := columnMapping[columnAlias]
		if columnName == "" {
			return nil, fmt.Errorf("invalid column alias. closest: '%s'", closestAlias(columnAlias, aliases))
		}

		ret = append(ret, OrderBy{
			Column:    columnName,
			Direction: direction,
		})
	}

	return NewOrderings(ret...)
}

func closestAlias(input ColumnAlias, dataSet []ColumnAlias) ColumnAlias {
	minDist := math.MaxInt
	closest := ""

	// Keys come from a map; sort them so ties resolve the same way every time.
	slices.Sort(dataSet)
	for _, dataSetAlias := range dataSet {
		dist := levenshtein([]rune(dataSetAlias), []rune(input))
		if dist < minDist {
			minDist = dist
			closest = dataSetAlias
		}
	}

	return closest
}
