// internal/types/types_test.go
package types

import "testing"

func TestOperator_CompatibleWith(t *testing.T) {
	tests := []struct {
		op   Operator
		dt   DataType
		want bool
	}{
		{OpGreaterThan, TypeNumber, true},
		{OpGreaterThan, TypeDate, true},
		{OpGreaterThan, TypeString, false},
		{OpBetween, TypeNumber, true},
		{OpBetween, TypeBoolean, false},
		{OpContains, TypeString, true},
		{OpContains, TypeNumber, false},
		{OpMatchesRegex, TypeString, true},
		{OpMatchesRegex, TypeDate, false},
		{OpEquals, TypeBoolean, true},
		{OpIsNull, TypeNumber, true},
		{OpIn, TypeString, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.op)+"/"+string(tt.dt), func(t *testing.T) {
			if got := tt.op.CompatibleWith(tt.dt); got != tt.want {
				t.Errorf("CompatibleWith() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOperator_ValueShapePredicates(t *testing.T) {
	for _, op := range Operators() {
		if !op.IsValid() {
			t.Errorf("Operators() returned invalid operator %q", op)
		}
	}

	if !OpBetween.RequiresArray() || !OpIn.RequiresArray() || !OpNotIn.RequiresArray() {
		t.Error("between/in/not_in should require array values")
	}
	if OpEquals.RequiresArray() {
		t.Error("equals should not require an array value")
	}
	if !OpIsNull.IgnoresValue() || !OpIsNotNull.IgnoresValue() {
		t.Error("null checks should ignore the comparison value")
	}
	if Operator("resembles").IsValid() {
		t.Error("unknown operator should not validate")
	}
}
