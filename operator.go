package sqlpager

import "fmt"

// Operator defines a comparison operator used by cursor predicates.
type Operator string

func (o Operator) Valid() bool {
	switch o {
	case OperatorGT, OperatorLT, OperatorGTE, OperatorLTE:
		return true
	default:
		return false
	}
}

// Inclusive returns the non-strict form of a strict operator.
func (o Operator) Inclusive() Operator {
	switch o {
	case OperatorGT, OperatorGTE:
		return OperatorGTE
	case OperatorLT, OperatorLTE:
		return OperatorLTE
	default:
		panic(fmt.Errorf("cannot make operator '%s' inclusive", o))
	}
}

const (
	OperatorGT  Operator = ">"
	OperatorLT  Operator = "<"
	OperatorGTE Operator = ">="
	OperatorLTE Operator = "<="

	// operatorEq is the equality operator. It is private because we use it
	// ONLY while building filtering conditions.
	operatorEq Operator = "="
)
