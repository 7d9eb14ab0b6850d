package refine

import "fmt"

// Constant represents a node of the constant-expression sub-language.
// Evaluation produces a value term and a term that is true when evaluation
// exhibits undefined behavior, in the same algebra as runtime operations.
type Constant interface {
	// Eval returns the value term and a 1-bit term that is true when
	// evaluation exhibits undefined behavior. The only failure is a
	// recoverable *ConstantFoldError from a pseudo-function that cannot be
	// folded (a non-ground operand, or log2 of zero).
	Eval() (value, ub Expr, err error)

	String() string
}

// ConstantFoldError is returned when a constant folder cannot evaluate a
// pseudo-function. The enclosing translator may recover by leaving the
// expression symbolic or aborting the function.
type ConstantFoldError struct {
	Msg string
}

// Error returns the diagnostic string.
func (e *ConstantFoldError) Error() string { return e.Msg }

// ConstantInt is a leaf integer constant.
type ConstantInt struct {
	Value uint64
	Width uint
}

// NewConstantInt returns a new instance of ConstantInt.
func NewConstantInt(value uint64, width uint) *ConstantInt {
	return &ConstantInt{Value: value & bitmask(width), Width: width}
}

// Eval returns the constant's value. Leaf constants never exhibit UB.
func (c *ConstantInt) Eval() (Expr, Expr, error) {
	return NewConstantExpr(c.Value, c.Width), NewBoolConstantExpr(false), nil
}

// String returns the string representation of the constant.
func (c *ConstantInt) String() string { return fmt.Sprintf("%d", c.Value) }

// ConstantBinOpKind enumerates the binary constant operators.
type ConstantBinOpKind int

// Binary constant operators.
const (
	ConstantAdd ConstantBinOpKind = iota
	ConstantSub
	ConstantSDiv
	ConstantUDiv
)

// String returns the string representation of the operator.
func (op ConstantBinOpKind) String() string {
	switch op {
	case ConstantAdd:
		return "+"
	case ConstantSub:
		return "-"
	case ConstantSDiv:
		return "/s"
	case ConstantUDiv:
		return "/u"
	default:
		return fmt.Sprintf("ConstantBinOpKind<%d>", op)
	}
}

// ConstantBinOp applies a binary operator to two constants.
type ConstantBinOp struct {
	Op  ConstantBinOpKind
	LHS Constant
	RHS Constant
}

// NewConstantBinOp returns a new instance of ConstantBinOp.
func NewConstantBinOp(op ConstantBinOpKind, lhs, rhs Constant) *ConstantBinOp {
	return &ConstantBinOp{Op: op, LHS: lhs, RHS: rhs}
}

// Eval returns the operation applied to the operand values. The UB term
// is the disjunction of the operands' UB and, for divisions, division by
// zero and signed division overflow.
func (c *ConstantBinOp) Eval() (Expr, Expr, error) {
	lv, lub, err := c.LHS.Eval()
	if err != nil {
		return nil, nil, err
	}
	rv, rub, err := c.RHS.Eval()
	if err != nil {
		return nil, nil, err
	}
	assert(ExprWidth(lv) == ExprWidth(rv), "constant operand width mismatch: %d != %d", ExprWidth(lv), ExprWidth(rv))

	ub := NewOrExpr(lub, rub)

	var value Expr
	switch c.Op {
	case ConstantAdd:
		value = NewBinaryExpr(ADD, lv, rv)
	case ConstantSub:
		value = NewBinaryExpr(SUB, lv, rv)
	case ConstantUDiv:
		value = NewBinaryExpr(UDIV, lv, rv)
		ub = NewOrExpr(ub, NewIsZeroExpr(rv))
	case ConstantSDiv:
		value = NewBinaryExpr(SDIV, lv, rv)
		w := ExprWidth(lv)
		overflow := NewAndExpr(
			NewEqExpr(lv, NewConstantExpr(1<<(w-1), w)),
			NewEqExpr(rv, NewConstantExpr(bitmask(w), w)))
		ub = NewOrExpr(ub, NewOrExpr(NewIsZeroExpr(rv), overflow))
	default:
		panic(fmt.Sprintf("unexpected constant binary op: %d", c.Op))
	}
	return value, ub, nil
}

// String returns the string representation of the constant.
func (c *ConstantBinOp) String() string {
	return fmt.Sprintf("(%s %s %s)", c.LHS, c.Op, c.RHS)
}

// ConstantFnKind enumerates the pseudo-functions.
type ConstantFnKind int

// Pseudo-functions.
const (
	ConstantLog2 ConstantFnKind = iota
	ConstantWidth
)

// String returns the string representation of the function.
func (fn ConstantFnKind) String() string {
	switch fn {
	case ConstantLog2:
		return "log2"
	case ConstantWidth:
		return "width"
	default:
		return fmt.Sprintf("ConstantFnKind<%d>", fn)
	}
}

// ConstantFn applies a pseudo-function. Arg is the operand of log2; Typ
// is the operand of width. The result has the given width.
type ConstantFn struct {
	Fn    ConstantFnKind
	Arg   Constant
	Typ   Type
	Width uint
}

// NewLog2Fn returns the log2 pseudo-function over a constant operand.
func NewLog2Fn(arg Constant, width uint) *ConstantFn {
	return &ConstantFn{Fn: ConstantLog2, Arg: arg, Width: width}
}

// NewWidthFn returns the width pseudo-function over a type operand.
func NewWidthFn(typ Type, width uint) *ConstantFn {
	return &ConstantFn{Fn: ConstantWidth, Typ: typ, Width: width}
}

// Eval folds the pseudo-function. A non-ground operand returns a
// *ConstantFoldError.
func (c *ConstantFn) Eval() (Expr, Expr, error) {
	switch c.Fn {
	case ConstantLog2:
		v, _, err := c.Arg.Eval()
		if err != nil {
			return nil, nil, err
		}
		ground, ok := v.(*ConstantExpr)
		if !ok {
			return nil, nil, &ConstantFoldError{Msg: fmt.Sprintf("log2 of non-constant: %s", v)}
		}
		if ground.Value == 0 {
			return nil, nil, &ConstantFoldError{Msg: "log2 of zero"}
		}
		var bits uint64
		for n := ground.Value; n > 1; n >>= 1 {
			bits++
		}
		return NewConstantExpr(bits, c.Width), NewBoolConstantExpr(false), nil

	case ConstantWidth:
		return NewConstantExpr(uint64(c.Typ.Bits()), c.Width), NewBoolConstantExpr(false), nil

	default:
		panic(fmt.Sprintf("unexpected constant fn: %d", c.Fn))
	}
}

// String returns the string representation of the constant.
func (c *ConstantFn) String() string {
	if c.Fn == ConstantWidth {
		return fmt.Sprintf("width(%s)", c.Typ)
	}
	return fmt.Sprintf("log2(%s)", c.Arg)
}

// Predicate represents a boolean predicate over constants.
type Predicate interface {
	// Eval lowers the predicate to a 1-bit term.
	Eval() (Expr, error)

	String() string
}

// BoolPredKind enumerates the boolean connectives.
type BoolPredKind int

// Boolean connectives.
const (
	BoolAnd BoolPredKind = iota
	BoolOr
)

// BoolPred combines two predicates with a boolean connective.
type BoolPred struct {
	Pred BoolPredKind
	LHS  Predicate
	RHS  Predicate
}

// NewBoolPred returns a new instance of BoolPred.
func NewBoolPred(pred BoolPredKind, lhs, rhs Predicate) *BoolPred {
	return &BoolPred{Pred: pred, LHS: lhs, RHS: rhs}
}

// Eval lowers the connective over the lowered operands.
func (p *BoolPred) Eval() (Expr, error) {
	lhs, err := p.LHS.Eval()
	if err != nil {
		return nil, err
	}
	rhs, err := p.RHS.Eval()
	if err != nil {
		return nil, err
	}
	if p.Pred == BoolAnd {
		return NewAndExpr(lhs, rhs), nil
	}
	return NewOrExpr(lhs, rhs), nil
}

// String returns the string representation of the predicate.
func (p *BoolPred) String() string {
	if p.Pred == BoolAnd {
		return fmt.Sprintf("(%s && %s)", p.LHS, p.RHS)
	}
	return fmt.Sprintf("(%s || %s)", p.LHS, p.RHS)
}

// CmpPredKind enumerates the leaf comparison predicates.
type CmpPredKind int

// Comparison predicates. Signedness is determined by the tag.
const (
	CmpEQ CmpPredKind = iota
	CmpNE
	CmpSLE
	CmpSLT
	CmpSGE
	CmpSGT
	CmpULE
	CmpULT
	CmpUGE
	CmpUGT
)

// String returns the string representation of the predicate kind.
func (pred CmpPredKind) String() string {
	switch pred {
	case CmpEQ:
		return "=="
	case CmpNE:
		return "!="
	case CmpSLE:
		return "<=s"
	case CmpSLT:
		return "<s"
	case CmpSGE:
		return ">=s"
	case CmpSGT:
		return ">s"
	case CmpULE:
		return "<=u"
	case CmpULT:
		return "<u"
	case CmpUGE:
		return ">=u"
	case CmpUGT:
		return ">u"
	default:
		return fmt.Sprintf("CmpPredKind<%d>", pred)
	}
}

// binaryOp returns the term-algebra operator of the predicate kind.
func (pred CmpPredKind) binaryOp() BinaryOp {
	switch pred {
	case CmpEQ:
		return EQ
	case CmpNE:
		return NE
	case CmpSLE:
		return SLE
	case CmpSLT:
		return SLT
	case CmpSGE:
		return SGE
	case CmpSGT:
		return SGT
	case CmpULE:
		return ULE
	case CmpULT:
		return ULT
	case CmpUGE:
		return UGE
	case CmpUGT:
		return UGT
	default:
		panic(fmt.Sprintf("unexpected comparison predicate: %d", pred))
	}
}

// CmpPred compares two constants.
type CmpPred struct {
	Pred CmpPredKind
	LHS  Constant
	RHS  Constant
}

// NewCmpPred returns a new instance of CmpPred.
func NewCmpPred(pred CmpPredKind, lhs, rhs Constant) *CmpPred {
	return &CmpPred{Pred: pred, LHS: lhs, RHS: rhs}
}

// Eval lowers the comparison over the operand values.
func (p *CmpPred) Eval() (Expr, error) {
	lhs, _, err := p.LHS.Eval()
	if err != nil {
		return nil, err
	}
	rhs, _, err := p.RHS.Eval()
	if err != nil {
		return nil, err
	}
	return NewBinaryExpr(p.Pred.binaryOp(), lhs, rhs), nil
}

// String returns the string representation of the predicate.
func (p *CmpPred) String() string {
	return fmt.Sprintf("(%s %s %s)", p.LHS, p.Pred, p.RHS)
}
