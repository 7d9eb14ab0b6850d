package refine

// TransformState carries the verification conditions accumulated while
// symbolically executing one function of a transformation pair.
type TransformState struct {
	src     bool
	pres    []Expr
	ubs     []Expr
	returns []StateValue
}

// NewTransformState returns a new state. src indicates whether the state
// executes the source function of the pair.
func NewTransformState(src bool) *TransformState {
	return &TransformState{src: src}
}

// IsSource returns true if the state executes the source function.
func (s *TransformState) IsSource() bool { return s.src }

// AddPre adds a precondition. Conjunctions are split into separate
// conditions. A constant false precondition is a programming error.
func (s *TransformState) AddPre(expr Expr) {
	assert(ExprWidth(expr) == WidthBool, "precondition must be 1-bit")
	assert(!IsConstantFalse(expr), "constant false precondition")
	s.pres = appendCondition(s.pres, expr)
}

// AddUB adds a condition under which execution is free of undefined
// behavior. Constant false conditions are legal.
func (s *TransformState) AddUB(expr Expr) {
	assert(ExprWidth(expr) == WidthBool, "UB condition must be 1-bit")
	s.ubs = appendCondition(s.ubs, expr)
}

// AddReturn adds a function return value.
func (s *TransformState) AddReturn(v StateValue) {
	s.returns = append(s.returns, v)
}

// Pres returns the accumulated preconditions in insertion order.
func (s *TransformState) Pres() []Expr { return s.pres }

// UBs returns the accumulated UB conditions in insertion order.
func (s *TransformState) UBs() []Expr { return s.ubs }

// Returns returns the accumulated return values in insertion order.
func (s *TransformState) Returns() []StateValue { return s.returns }

// appendCondition appends expr to conditions, splitting conjunctions into
// their operands. Constant true conditions are dropped.
func appendCondition(conditions []Expr, expr Expr) []Expr {
	if expr, ok := expr.(*BinaryExpr); ok && expr.Op == AND {
		conditions = appendCondition(conditions, expr.LHS)
		return appendCondition(conditions, expr.RHS)
	}
	if IsConstantTrue(expr) {
		return conditions
	}
	return append(conditions, expr)
}
