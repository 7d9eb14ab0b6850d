package refine

import "fmt"

// StateValue pairs a value expression with the condition under which the
// value is not poison.
type StateValue struct {
	Value     Expr
	NonPoison Expr
}

// NewStateValue returns a new instance of StateValue.
func NewStateValue(value, nonPoison Expr) StateValue {
	assert(ExprWidth(nonPoison) == WidthBool, "non-poison condition must be 1-bit")
	return StateValue{Value: value, NonPoison: nonPoison}
}

// Both returns the conjunction of the value and its non-poison condition.
// Panics unless both are 1-bit.
func (v StateValue) Both() Expr {
	assert(ExprWidth(v.Value) == WidthBool, "value must be 1-bit")
	return NewAndExpr(v.Value, v.NonPoison)
}

// String returns the string representation of the value.
func (v StateValue) String() string {
	return fmt.Sprintf("%s / %s", v.Value, v.NonPoison)
}

// Type describes how a value of a source-language type is laid out as a
// bit vector in memory.
type Type interface {
	// Bits returns the bit width of the in-memory representation.
	Bits() uint

	// ToBV converts a register value to its in-memory bit vector.
	ToBV(v StateValue) StateValue

	// FromBV converts an in-memory bit vector back to a register value.
	FromBV(v StateValue) StateValue

	String() string
}

// IntType is an integer type. Register and memory representations are
// identical.
type IntType struct {
	Width uint
}

// NewIntType returns a new instance of IntType.
func NewIntType(width uint) IntType {
	assert(width >= 1 && width <= 64, "invalid integer width: %d", width)
	return IntType{Width: width}
}

// Bits returns the bit width of the type.
func (t IntType) Bits() uint { return t.Width }

// ToBV returns v unchanged.
func (t IntType) ToBV(v StateValue) StateValue {
	assert(ExprWidth(v.Value) == t.Width, "value width mismatch: %d != %d", ExprWidth(v.Value), t.Width)
	return v
}

// FromBV returns v unchanged.
func (t IntType) FromBV(v StateValue) StateValue {
	assert(ExprWidth(v.Value) == t.Width, "value width mismatch: %d != %d", ExprWidth(v.Value), t.Width)
	return v
}

// String returns the string representation of the type.
func (t IntType) String() string { return fmt.Sprintf("i%d", t.Width) }
