package sqlpager

import (
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
)

// cursorParamKey prefixes placeholders generated for cursor boundary values.
const cursorParamKey = "cursor"

type (
	tConjunct struct {
		// Index is the position of the boundary column in the ordering.
		Index    int
		Column   string
		Value    any
		Operator Operator
	}

	tDisjunct []tConjunct

	// tDNF represents the disjunctive normal form (DNF) of a logical expression.
	// Each disjunct is joined by OR, and each disjunct consists of a list of
	// conjuncts which are joined by AND. A conjunct is the value of
	// Operator(Column, Value).
	//
	// Thus:
	//
	//	DNF = X1 OR X2 ... OR Xn, where Xi = Ai1 AND Ai2 ... AND Aim.
	//	DNF = (A11 AND A12 AND A13) OR (A21 AND A22 AND A23), for n=2, m=3.
	//
	//  Where (A11 AND A12 AND A13), (A21 AND A22 AND A23) are disjuncts and
	//  A11, A12, A13, A21, A22, A23 are conjuncts.
	tDNF []tDisjunct
)

// keysetColumn is a boundary column as it has to be referenced in SQL.
type keysetColumn struct {
	Ref       string
	Direction Direction
	Value     any
}

// newKeysetDNF builds the keyset condition for columns [(C1, D1, V1)... (Cn, Dn, Vn)]:
//
//	(C1 O1 V1) OR (C1 = V1 AND C2 O2 V2) OR ... OR (C1 = V1 AND ... AND Cn On Vn)
//
// where Oi is the strict operator of Di. With inclusiveFirst the first
// disjunct uses the non-strict operator, which keeps the boundary row itself.
//
// IMPORTANT:
// For n > 1 an inclusive first disjunct covers (C1 = V1 AND ...) entirely, so
// rows sharing V1 and placed before the boundary are selected too. Put a
// unique column first when relying on it.
func newKeysetDNF(columns []keysetColumn, inclusiveFirst bool) tDNF {
	dnf := make(tDNF, 0, len(columns))
	for i := range columns {
		disjunct := make(tDisjunct, 0, i+1)
		for j := 0; j < i; j++ {
			disjunct = append(disjunct, tConjunct{
				Index:    j,
				Column:   columns[j].Ref,
				Value:    columns[j].Value,
				Operator: operatorEq,
			})
		}

		operator := columns[i].Direction.ForOperator()
		if i == 0 && inclusiveFirst {
			operator = operator.Inclusive()
		}

		disjunct = append(disjunct, tConjunct{
			Index:    i,
			Column:   columns[i].Ref,
			Value:    columns[i].Value,
			Operator: operator,
		})

		dnf = append(dnf, disjunct)
	}

	return dnf
}

// dnfRenderer numbers placeholders as cursor__<column>__<occurrence>: one
// bound value per boundary column, fanned out to unique names.
type dnfRenderer struct {
	binder      *binder
	occurrences map[int]int
	bindings    Bindings
}

func newDNFRenderer(b *binder) *dnfRenderer {
	return &dnfRenderer{binder: b, occurrences: make(map[int]int)}
}

// conjunct converts a conjunct of the form Operator(Column, Value) to
// an SQL condition of the form "Column Operator :placeholder".
//
// Example:
//
//	tConjunct = { Index: 0, Column: "id", Operator: ">", Value: 123}
//
// Result:
//
//	"id > :cursor__0__0"
func (r *dnfRenderer) conjunct(c tConjunct) (string, error) {
	key := suffixKey(suffixKey(cursorParamKey, c.Index), r.occurrences[c.Index])
	r.occurrences[c.Index]++

	placeholder, bindings, err := r.binder.bindScalar(key, c.Value)
	if err != nil {
		return "", fmt.Errorf("cannot bind cursor value of '%s': %w", c.Column, err)
	}
	r.bindings = append(r.bindings, bindings...)

	return fmt.Sprintf("%s %s %s", c.Column, c.Operator, placeholder), nil
}

// disjunct converts (K1, K2, K3) into "(K1 AND K2 AND K3)".
func (r *dnfRenderer) disjunct(d tDisjunct) (string, error) {
	andClauses := make([]string, 0, len(d))
	for _, c := range d {
		andClause, err := r.conjunct(c)
		if err != nil {
			return "", err
		}
		andClauses = append(andClauses, andClause)
	}

	if len(andClauses) == 0 {
		return "", nil
	}

	return fmt.Sprintf("(%s)", strings.Join(andClauses, " AND ")), nil
}

// toSQLClause converts a DNF into "(X1) OR (X2) ...". Empty disjuncts are
// skipped. The second value tells if the clause has more than one disjunct
// and has to be parenthesized before combining it with AND.
//
// Example:
//
//	tDNF = {
//		{{Index: 0, Column: "id", Operator: "<", Value: 10}},
//		{{Index: 0, Column: "id", Operator: "=", Value: 10}, {Index: 1, Column: "name", Operator: "<", Value: "abc"}},
//	}
//
// Result:
//
//	"(id < :cursor__0__0) OR (id = :cursor__0__1 AND name < :cursor__1__0)"
func (d tDNF) toSQLClause(b *binder) (string, Bindings, bool, error) {
	r := newDNFRenderer(b)
	orClauses := make([]string, 0, len(d))

	for _, disjunct := range d {
		orClause, err := r.disjunct(disjunct)
		if err != nil {
			return "", nil, false, err
		}
		if orClause == "" {
			continue
		}

		orClauses = append(orClauses, orClause)
	}

	if len(orClauses) == 0 {
		return "", nil, false, nil
	}

	return strings.Join(orClauses, " OR "), r.bindings, len(orClauses) > 1, nil
}

// toGORMExpression converts a conjunct into "Column Operator ?".
func (c tConjunct) toGORMExpression() clause.Expression {
	return clause.Expr{
		SQL:  fmt.Sprintf("%s %s ?", c.Column, c.Operator),
		Vars: []any{c.Value},
	}
}

// toGORMExpression converts a disjunct (K1, K2, K3) into "K1 AND K2 AND K3".
func (d tDisjunct) toGORMExpression() clause.Expression {
	andExpressions := make([]clause.Expression, 0, len(d))
	for _, conjunct := range d {
		andExpressions = append(andExpressions, conjunct.toGORMExpression())
	}

	if len(andExpressions) == 1 {
		return andExpressions[0]
	} else if len(andExpressions) > 1 {
		return clause.And(andExpressions...)
	}

	return nil
}

// toGORMExpression converts a DNF into "X1 OR X2 ...". Returns nil when
// every disjunct is empty.
func (d tDNF) toGORMExpression() clause.Expression {
	orExpressions := make([]clause.Expression, 0, len(d))
	for _, disjunct := range d {
		if expr := disjunct.toGORMExpression(); expr != nil {
			orExpressions = append(orExpressions, expr)
		}
	}

	if len(orExpressions) == 1 {
		return orExpressions[0]
	} else if len(orExpressions) > 1 {
		return clause.Or(orExpressions...)
	}

	return nil
}
