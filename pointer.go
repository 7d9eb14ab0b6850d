package refine

import (
	"bytes"
)

// Pointer represents a symbolic pointer into a memory. The term encodes
// the fields (offset, local bid, non-local bid) from most to least
// significant. Pointers have immutable value semantics; a copy shares the
// memory back-reference and the term.
type Pointer struct {
	m *Memory
	p Expr
}

// NewPointer returns a pointer wrapping an existing pointer term.
func NewPointer(m *Memory, p Expr) Pointer {
	assert(ExprWidth(p) == m.ptrBits(), "pointer width mismatch: %d != %d", ExprWidth(p), m.ptrBits())
	return Pointer{m: m, p: p}
}

// NewVarPointer returns a pointer whose term is a fresh variable of the
// full pointer width.
func NewVarPointer(m *Memory, name string) Pointer {
	return Pointer{m: m, p: NewVarExpr(name, m.ptrBits())}
}

// NewBlockPointer returns a pointer to the start of the given block.
func NewBlockPointer(m *Memory, bid uint64, local bool) Pointer {
	var bidExpr Expr
	if local {
		bidExpr = NewConstantExpr(bid<<m.config.NonLocalBidBits, m.bidBits())
	} else {
		bidExpr = NewConstantExpr(bid, m.bidBits())
	}
	offset := NewConstantExpr(0, m.config.OffsetBits)
	return Pointer{m: m, p: NewConcatExpr(offset, bidExpr)}
}

// NewFieldPointer returns a pointer built from its field terms.
func NewFieldPointer(m *Memory, offset, localBid, nonLocalBid Expr) Pointer {
	assert(ExprWidth(offset) == m.config.OffsetBits, "offset width mismatch: %d != %d", ExprWidth(offset), m.config.OffsetBits)
	assert(ExprWidth(localBid) == m.config.LocalBidBits, "local bid width mismatch: %d != %d", ExprWidth(localBid), m.config.LocalBidBits)
	assert(ExprWidth(nonLocalBid) == m.config.NonLocalBidBits, "non-local bid width mismatch: %d != %d", ExprWidth(nonLocalBid), m.config.NonLocalBidBits)
	return Pointer{m: m, p: NewConcatExpr(offset, NewConcatExpr(localBid, nonLocalBid))}
}

// Term returns the pointer's underlying term.
func (p Pointer) Term() Expr { return p.p }

// Offset returns the intra-block offset field.
func (p Pointer) Offset() Expr {
	return NewExtractExpr(p.p, p.m.bidBits(), p.m.config.OffsetBits)
}

// LocalBid returns the local block id field.
func (p Pointer) LocalBid() Expr {
	return NewExtractExpr(p.p, p.m.config.NonLocalBidBits, p.m.config.LocalBidBits)
}

// NonLocalBid returns the non-local block id field.
func (p Pointer) NonLocalBid() Expr {
	return NewExtractExpr(p.p, 0, p.m.config.NonLocalBidBits)
}

// Bid returns the combined local and non-local block id fields.
func (p Pointer) Bid() Expr {
	return NewExtractExpr(p.p, 0, p.m.bidBits())
}

// IsLocal returns a 1-bit term of whether the pointer refers to a locally
// allocated block. Both fields must be checked because symbolic pointers
// may have both nonzero.
func (p Pointer) IsLocal() Expr {
	return NewAndExpr(
		NewIsNotZeroExpr(p.LocalBid()),
		NewIsZeroExpr(p.NonLocalBid()),
	)
}

// Add returns a pointer displaced by the given byte count. The offset
// wraps silently; dereference sites emit their own overflow conditions.
func (p Pointer) Add(bytes Expr) Pointer {
	off := NewTruncExpr(
		NewBinaryExpr(ADD,
			NewSExtExpr(p.Offset(), p.m.config.SizeTBits),
			NewZExtExpr(bytes, p.m.config.SizeTBits)),
		p.m.config.OffsetBits)
	return Pointer{m: p.m, p: NewConcatExpr(off, p.Bid())}
}

// AddUint returns a pointer displaced by a concrete byte count.
func (p Pointer) AddUint(bytes uint64) Pointer {
	return p.Add(NewConstantExpr(bytes, p.m.config.OffsetBits))
}

// AddNoOverflow returns a 1-bit term of whether displacing the offset by
// the given byte count does not overflow signed arithmetic.
func (p Pointer) AddNoOverflow(offset Expr) Expr {
	return NewAddNoSOverflowExpr(p.Offset(), offset)
}

// Eq returns a 1-bit term of whether both the bid and offset fields are
// equal. Pointers are never compared through their computed addresses
// since aliasing of the address functions would merge distinct blocks.
func (p Pointer) Eq(rhs Pointer) Expr {
	return NewAndExpr(
		NewEqExpr(p.Bid(), rhs.Bid()),
		NewEqExpr(p.Offset(), rhs.Offset()),
	)
}

// Ne returns a 1-bit term of whether the pointers differ.
func (p Pointer) Ne(rhs Pointer) Expr {
	return NewNotExpr(p.Eq(rhs))
}

// cmp returns the offset comparison as the value and the same-block
// condition as the non-poison flag. Comparing pointers into different
// blocks yields a poisoned boolean, not undefined behavior.
func (p Pointer) cmp(op BinaryOp, rhs Pointer) StateValue {
	return NewStateValue(
		NewBinaryExpr(op, p.Offset(), rhs.Offset()),
		NewEqExpr(p.Bid(), rhs.Bid()),
	)
}

// Sle returns the signed less-or-equal comparison of the offsets.
func (p Pointer) Sle(rhs Pointer) StateValue { return p.cmp(SLE, rhs) }

// Slt returns the signed less-than comparison of the offsets.
func (p Pointer) Slt(rhs Pointer) StateValue { return p.cmp(SLT, rhs) }

// Sge returns the signed greater-or-equal comparison of the offsets.
func (p Pointer) Sge(rhs Pointer) StateValue { return p.cmp(SGE, rhs) }

// Sgt returns the signed greater-than comparison of the offsets.
func (p Pointer) Sgt(rhs Pointer) StateValue { return p.cmp(SGT, rhs) }

// Ule returns the unsigned less-or-equal comparison of the offsets.
func (p Pointer) Ule(rhs Pointer) StateValue { return p.cmp(ULE, rhs) }

// Ult returns the unsigned less-than comparison of the offsets.
func (p Pointer) Ult(rhs Pointer) StateValue { return p.cmp(ULT, rhs) }

// Uge returns the unsigned greater-or-equal comparison of the offsets.
func (p Pointer) Uge(rhs Pointer) StateValue { return p.cmp(UGE, rhs) }

// Ugt returns the unsigned greater-than comparison of the offsets.
func (p Pointer) Ugt(rhs Pointer) StateValue { return p.cmp(UGT, rhs) }

// Address returns the numeric address of the pointer: the block's base
// address plus the sign-extended offset. This is the only operation that
// injects a numeric address into the model.
func (p Pointer) Address() Expr {
	offset := NewSExtExpr(p.Offset(), p.m.config.SizeTBits)
	localName := p.m.mkName("blks_addr")
	return NewBinaryExpr(ADD, offset,
		NewIteExpr(p.IsLocal(),
			NewUFExpr(localName, []Expr{p.LocalBid()}, p.m.config.SizeTBits),
			NewUFExpr("blks_addr", []Expr{p.NonLocalBid()}, p.m.config.SizeTBits)))
}

// BlockSize returns the declared size of the pointer's block. Sizes are
// represented one bit narrower than size_t and extended with a leading
// zero so the top address bit is never reachable by a legal offset; this
// keeps negative offsets well-defined.
func (p Pointer) BlockSize() Expr {
	localName := p.m.mkName("blks_size")
	return NewConcatExpr(NewConstantExpr(0, 1),
		NewIteExpr(p.IsLocal(),
			NewUFExpr(localName, []Expr{p.LocalBid()}, p.m.config.SizeTBits-1),
			NewUFExpr("blks_size", []Expr{p.NonLocalBid()}, p.m.config.SizeTBits-1)))
}

// Inbounds returns a 1-bit term of whether the offset lies within the
// block. The unsigned test also rejects negative offsets because block
// sizes never set the top bit.
func (p Pointer) Inbounds() Expr {
	return NewBinaryExpr(ULE, NewSExtExpr(p.Offset(), p.m.config.SizeTBits), p.BlockSize())
}

// IsAligned returns a 1-bit term of whether the pointer's address is a
// multiple of align. Alignments that are not a power of two greater than
// one are trivially satisfied.
func (p Pointer) IsAligned(align uint) Expr {
	if bits := ilog2(align); bits > 0 {
		return NewIsZeroExpr(NewExtractExpr(p.Address(), 0, bits))
	}
	return NewBoolConstantExpr(true)
}

// IsDereferenceable emits an undefined-behavior condition that the range
// [p, p+bytes) lies within the block, does not overflow, and that the
// pointer is aligned. A zero byte count is always dereferenceable.
func (p Pointer) IsDereferenceable(bytes Expr, align uint) {
	blockSize := p.BlockSize()
	offset := NewSExtExpr(p.Offset(), p.m.config.SizeTBits)
	n := NewZExtExpr(bytes, p.m.config.SizeTBits)

	cond := NewBinaryExpr(ULE, NewBinaryExpr(ADD, offset, n), blockSize)
	cond = NewAndExpr(cond, NewAddNoUOverflowExpr(offset, n))
	cond = NewAndExpr(cond, p.IsAligned(align))

	// Block liveness is not tracked; free has no effect.

	p.m.state.AddUB(NewImpliesExpr(NewBinaryExpr(UGT, n, NewConstantExpr(0, p.m.config.SizeTBits)), cond))
}

// IsDereferenceableUint emits the dereferenceability condition for a
// concrete byte count.
func (p Pointer) IsDereferenceableUint(bytes uint64, align uint) {
	p.IsDereferenceable(NewConstantExpr(bytes, p.m.config.OffsetBits), align)
}

// disjoint returns a 1-bit term of whether [begin1, begin1+len1) and
// [begin2, begin2+len2) do not overlap. Callers must guarantee the
// endpoints do not overflow.
func disjoint(begin1, len1, begin2, len2 Expr) Expr {
	return NewOrExpr(
		NewBinaryExpr(UGE, begin1, NewBinaryExpr(ADD, begin2, len2)),
		NewBinaryExpr(UGE, begin2, NewBinaryExpr(ADD, begin1, len1)))
}

// IsDisjoint emits an undefined-behavior condition that the byte ranges
// [p, p+len1) and [other, other+len2) do not overlap when both pointers
// refer to the same block.
func (p Pointer) IsDisjoint(len1 Expr, other Pointer, len2 Expr) {
	w := p.m.config.SizeTBits
	p.m.state.AddUB(NewOrExpr(
		NewNotExpr(NewEqExpr(p.Bid(), other.Bid())),
		disjoint(
			NewSExtExpr(p.Offset(), w), NewZExtExpr(len1, w),
			NewSExtExpr(other.Offset(), w), NewZExtExpr(len2, w))))
}

// String returns the string representation of the pointer.
func (p Pointer) String() string {
	var buf bytes.Buffer
	buf.WriteString("pointer(")
	if IsConstantTrue(p.IsLocal()) {
		buf.WriteString("local")
	} else {
		buf.WriteString("non-local")
	}
	buf.WriteString(", block_id=")
	buf.WriteString(p.Bid().String())
	buf.WriteString(", offset=")
	if offset, ok := p.Offset().(*ConstantExpr); ok {
		buf.WriteString(offset.SignedString())
	} else {
		buf.WriteString(p.Offset().String())
	}
	buf.WriteString(")")
	return buf.String()
}

// ilog2 returns log2(v) if v is a power of two greater than one and zero
// otherwise.
func ilog2(v uint) uint {
	if v < 2 || v&(v-1) != 0 {
		return 0
	}
	var bits uint
	for v > 1 {
		v >>= 1
		bits++
	}
	return bits
}
