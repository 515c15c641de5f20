package sqlpager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Operator_Valid_And_Inclusive(t *testing.T) {
	tests := []struct {
		name      string
		in        Operator
		valid     bool
		inclusive Operator
		panicExp  bool
	}{
		{"GT valid maps to GTE", OperatorGT, true, OperatorGTE, false},
		{"LT valid maps to LTE", OperatorLT, true, OperatorLTE, false},
		{"GTE stays GTE", OperatorGTE, true, OperatorGTE, false},
		{"LTE stays LTE", OperatorLTE, true, OperatorLTE, false},
		{"equality is private", operatorEq, false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Valid(); got != tt.valid {
				t.Errorf("%s: Valid=%v want %v", tt.name, got, tt.valid)
			}
			if !tt.panicExp {
				if got := tt.in.Inclusive(); got != tt.inclusive {
					t.Errorf("%s: Inclusive=%v want %v", tt.name, got, tt.inclusive)
				}
			} else {
				assert.Panics(t, func() { tt.in.Inclusive() })
			}
		})
	}
}
