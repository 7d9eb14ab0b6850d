package refine

import (
	"bytes"
	"fmt"

	"github.com/benbjohnson/immutable"
)

// Config holds the pointer field widths of a memory, fixed per run.
type Config struct {
	OffsetBits      uint // intra-block offset
	LocalBidBits    uint // local block id
	NonLocalBidBits uint // non-local block id
	SizeTBits       uint // absolute addresses and byte counts
}

// validate panics if the configuration is malformed.
func (c Config) validate() {
	assert(c.OffsetBits > 0, "offset width must be positive")
	assert(c.LocalBidBits > 0, "local bid width must be positive")
	assert(c.NonLocalBidBits > 0, "non-local bid width must be positive")
	assert(c.SizeTBits > 0, "size_t width must be positive")
	assert(c.OffsetBits <= c.SizeTBits, "offset width exceeds size_t width: %d > %d", c.OffsetBits, c.SizeTBits)
}

// Block describes a locally allocated block. The registry of blocks is
// bookkeeping for diagnostics; no semantic constraint depends on it.
type Block struct {
	Bid   uint64
	Size  Expr
	Align uint
}

// Memory represents the symbolic heap of one run: a single array term
// mapping encoded pointer bits to a 9-bit value whose top bit flags the
// byte as non-poison.
type Memory struct {
	config Config
	state  *TransformState // non-owning; outlives every memory

	blocksVal  ArrayExpr
	lastBid    uint64
	lastIdxPtr uint64

	// Locally allocated blocks, keyed by bid.
	blocks *immutable.SortedMap
}

// NewMemory returns an empty memory for the given state. Every local
// block address initially loads the all-zeros 9-bit value (poison).
func NewMemory(state *TransformState, config Config) *Memory {
	config.validate()
	assert(state != nil, "state required")

	m := &Memory{
		config: config,
		state:  state,
		blocks: immutable.NewSortedMap(&uint64Comparer{}),
	}
	m.blocksVal = NewArrayVarExpr("blks_val", m.ptrBits(), 9)

	idx := NewVarPointer(m, "#idx0")
	poison := NewConstantExpr(0, 9)
	val := NewIteExpr(idx.IsLocal(), poison, NewSelectExpr(m.blocksVal, idx.Term()))
	m.blocksVal = NewLambdaExpr(idx.Term().(*VarExpr), val)

	return m
}

// Clone returns a copy of the memory. The copy shares the state and the
// current array term; subsequent mutations of either memory are
// independent.
func (m *Memory) Clone() *Memory {
	other := *m
	return &other
}

// Config returns the memory's width configuration.
func (m *Memory) Config() Config { return m.config }

// State returns the enclosing verification state.
func (m *Memory) State() *TransformState { return m.state }

// BlocksVal returns the current heap array term.
func (m *Memory) BlocksVal() ArrayExpr { return m.blocksVal }

// ptrBits returns the full encoded pointer width.
func (m *Memory) ptrBits() uint {
	return m.config.OffsetBits + m.bidBits()
}

// bidBits returns the combined block id width.
func (m *Memory) bidBits() uint {
	return m.config.LocalBidBits + m.config.NonLocalBidBits
}

// mkName qualifies a name with the run suffix. Refinement checking
// depends on this exact naming.
func (m *Memory) mkName(name string) string {
	if m.state.IsSource() {
		return name + "_src"
	}
	return name + "_tgt"
}

// mkIdxName mints a fresh index variable name.
func (m *Memory) mkIdxName() string {
	name := fmt.Sprintf("#idx_%d", m.lastIdxPtr)
	m.lastIdxPtr++
	return name
}

// MkInput builds a symbolic non-local pointer from a fresh variable split
// into offset (high) and non-local bid (low), with the local bid forced
// to zero. Returns the pointer term and the fresh variables introduced.
func (m *Memory) MkInput(name string) (Expr, []Expr) {
	bits := m.config.NonLocalBidBits + m.config.OffsetBits
	v := NewVarExpr(name, bits)
	offset := NewExtractExpr(v, m.config.NonLocalBidBits, m.config.OffsetBits)
	bid := NewExtractExpr(v, 0, m.config.NonLocalBidBits)
	localBid := NewConstantExpr(0, m.config.LocalBidBits)
	return NewFieldPointer(m, offset, localBid, bid).Term(), []Expr{v}
}

// Alloc mints a new block of the given size and returns a pointer to its
// start. Alignment and the declared block size are emitted as
// preconditions, not undefined behavior.
func (m *Memory) Alloc(bytes Expr, align uint, local bool) Expr {
	m.lastBid++
	p := NewBlockPointer(m, m.lastBid, local)
	m.state.AddPre(p.IsAligned(align))

	size := NewZExtExpr(bytes, m.config.SizeTBits)
	m.state.AddPre(NewEqExpr(p.BlockSize(), size))

	if local {
		m.blocks = m.blocks.Set(m.lastBid, &Block{Bid: m.lastBid, Size: bytes, Align: align})
	}
	return p.Term()
}

// Free releases the block pointed to. Deallocation is not modeled; block
// liveness is not tracked.
func (m *Memory) Free(ptr Expr) {
}

// Store writes a typed value at ptr in little-endian byte order. Each
// written byte carries the value's non-poison flag.
func (m *Memory) Store(p Expr, v StateValue, typ Type, align uint) {
	val := typ.ToBV(v)
	bits := ExprWidth(val.Value)
	n := minBytes(bits)

	value := NewZExtExpr(val.Value, n*8)

	ptr := NewPointer(m, p)
	ptr.IsDereferenceableUint(uint64(n), align)

	for i := uint(0); i < n; i++ {
		data := NewExtractExpr(value, i*8, 8)
		m.blocksVal = NewArrayStoreExpr(m.blocksVal, ptr.AddUint(uint64(i)).Term(), NewConcatExpr(val.NonPoison, data))
	}
}

// Load reads a typed value at ptr. Bytes are assembled little-endian and
// the result is non-poison if any participating byte is non-poison.
func (m *Memory) Load(p Expr, typ Type, align uint) StateValue {
	bits := typ.Bits()
	n := minBytes(bits)

	ptr := NewPointer(m, p)
	ptr.IsDereferenceableUint(uint64(n), align)

	var value, nonPoison Expr
	for i := uint(0); i < n; i++ {
		pair := NewSelectExpr(m.blocksVal, ptr.AddUint(uint64(i)).Term())
		v := NewExtractExpr(pair, 0, 8)
		np := NewExtractExpr(pair, 8, 1)

		if i == 0 {
			value, nonPoison = v, np
		} else {
			value = NewConcatExpr(v, value)
			nonPoison = NewOrExpr(np, nonPoison)
		}
	}

	value = NewTruncExpr(value, bits)
	return typ.FromBV(NewStateValue(value, nonPoison))
}

// Memset writes a single 8-bit value across [ptr, ptr+bytes). Small
// constant lengths unroll into byte stores; the general form rewrites the
// heap through a lambda over a fresh index pointer.
func (m *Memory) Memset(p Expr, val StateValue, bytes Expr, align uint) {
	assert(ExprWidth(val.Value) == Width8, "memset value must be 8-bit")

	ptr := NewPointer(m, p)
	ptr.IsDereferenceable(bytes, align)
	storeVal := NewConcatExpr(val.NonPoison, val.Value)

	if n, ok := bytes.(*ConstantExpr); ok && n.Value <= 4 {
		for i := uint64(0); i < n.Value; i++ {
			m.blocksVal = NewArrayStoreExpr(m.blocksVal, ptr.AddUint(i).Term(), storeVal)
		}
		return
	}

	idx := NewVarPointer(m, m.mkIdxName())
	cond := NewAndExpr(idx.Uge(ptr).Both(), idx.Ult(ptr.Add(bytes)).Both())
	v := NewIteExpr(cond, storeVal, NewSelectExpr(m.blocksVal, idx.Term()))
	m.blocksVal = NewLambdaExpr(idx.Term().(*VarExpr), v)
}

// Memcpy copies bytes from src to dst. Unless move semantics are
// requested the ranges must be disjoint, emitted as undefined behavior.
// The general form reads through the pre-update heap so overlapping moves
// are well-defined.
func (m *Memory) Memcpy(d, s, bytes Expr, alignDst, alignSrc uint, move bool) {
	dst, src := NewPointer(m, d), NewPointer(m, s)
	dst.IsDereferenceable(bytes, alignDst)
	src.IsDereferenceable(bytes, alignSrc)
	if !move {
		src.IsDisjoint(bytes, dst, bytes)
	}

	if n, ok := bytes.(*ConstantExpr); ok && n.Value <= 4 {
		oldVal := m.blocksVal
		for i := uint64(0); i < n.Value; i++ {
			srcVal := NewSelectExpr(oldVal, src.AddUint(i).Term())
			m.blocksVal = NewArrayStoreExpr(m.blocksVal, dst.AddUint(i).Term(), srcVal)
		}
		return
	}

	dstIdx := NewVarPointer(m, m.mkIdxName())
	srcIdx := src.Add(NewBinaryExpr(SUB, dstIdx.Offset(), dst.Offset()))

	cond := NewAndExpr(dstIdx.Uge(dst).Both(), dstIdx.Ult(dst.Add(bytes)).Both())
	v := NewIteExpr(cond, NewSelectExpr(m.blocksVal, srcIdx.Term()), NewSelectExpr(m.blocksVal, dstIdx.Term()))
	m.blocksVal = NewLambdaExpr(dstIdx.Term().(*VarExpr), v)
}

// Ptr2Int returns the numeric address of the pointer.
func (m *Memory) Ptr2Int(ptr Expr) Expr {
	return NewPointer(m, ptr).Address()
}

// Int2Ptr converts an integer to a pointer. Block identity cannot be
// recovered; the conversion returns the null pointer.
func (m *Memory) Int2Ptr(val Expr) Expr {
	return NewConstantExpr(0, m.ptrBits())
}

// NewMergedMemory merges two memories at a control-flow join. Both inputs
// must share the same enclosing state. Counters merge by max, which
// requires each branch to allocate a disjoint prefix of fresh ids.
func NewMergedMemory(cond Expr, then, els *Memory) *Memory {
	assert(then.state == els.state, "merged memories must share a state")
	assert(then.config == els.config, "merged memories must share a config")

	ret := &Memory{
		config:     then.config,
		state:      then.state,
		blocksVal:  NewArrayIteExpr(cond, then.blocksVal, els.blocksVal),
		lastBid:    maxUint64(then.lastBid, els.lastBid),
		lastIdxPtr: maxUint64(then.lastIdxPtr, els.lastIdxPtr),
		blocks:     then.blocks,
	}

	itr := els.blocks.Iterator()
	for {
		k, v := itr.Next()
		if k == nil {
			break
		}
		if _, ok := ret.blocks.Get(k); !ok {
			ret.blocks = ret.blocks.Set(k, v)
		}
	}
	return ret
}

// Dump returns a human-readable rendering of the memory.
func (m *Memory) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "MEMORY")
	fmt.Fprintln(&buf, "======")
	fmt.Fprintf(&buf, "last_bid=%d\n", m.lastBid)
	fmt.Fprintf(&buf, "last_idx_ptr=%d\n", m.lastIdxPtr)
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== BLOCKS")
	itr := m.blocks.Iterator()
	for {
		k, v := itr.Next()
		if k == nil {
			break
		}
		blk := v.(*Block)
		fmt.Fprintf(&buf, "%08d size=%s align=%d\n", k.(uint64), blk.Size, blk.Align)
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== VALUES")
	fmt.Fprintln(&buf, m.blocksVal.String())
	return buf.String()
}

// maxUint64 returns the larger of a and b.
func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// uint64Comparer compares two 64-bit unsigned integers. Implements
// immutable.Comparer.
type uint64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than
// b, and returns 0 if a is equal to b. Panic if a or b is not a uint64.
func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
