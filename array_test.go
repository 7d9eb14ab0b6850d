package refine_test

import (
	"testing"

	"github.com/benbjohnson/refine"
	"github.com/google/go-cmp/cmp"
)

func TestNewSelectExpr(t *testing.T) {
	t.Run("ReadOverWrite", func(t *testing.T) {
		t.Run("SameGroundIndex", func(t *testing.T) {
			a := refine.NewArrayVarExpr("blks_val", 24, 9)
			s := refine.NewArrayStoreExpr(a, refine.NewConstantExpr(0x10, 24), refine.NewConstantExpr(0x1AB, 9))
			if diff := cmp.Diff(
				refine.NewSelectExpr(s, refine.NewConstantExpr(0x10, 24)),
				refine.NewConstantExpr(0x1AB, 9),
			); diff != "" {
				t.Fatal(diff)
			}
		})
		t.Run("DistinctGroundIndexSkips", func(t *testing.T) {
			a := refine.NewArrayVarExpr("blks_val", 24, 9)
			s0 := refine.NewArrayStoreExpr(a, refine.NewConstantExpr(0x10, 24), refine.NewConstantExpr(0x1AA, 9))
			s1 := refine.NewArrayStoreExpr(s0, refine.NewConstantExpr(0x11, 24), refine.NewConstantExpr(0x1BB, 9))
			if diff := cmp.Diff(
				refine.NewSelectExpr(s1, refine.NewConstantExpr(0x10, 24)),
				refine.NewConstantExpr(0x1AA, 9),
			); diff != "" {
				t.Fatal(diff)
			}
		})
		t.Run("SymbolicIndexStops", func(t *testing.T) {
			a := refine.NewArrayVarExpr("blks_val", 24, 9)
			s := refine.NewArrayStoreExpr(a, refine.NewVarExpr("i", 24), refine.NewConstantExpr(0x1AA, 9))
			got := refine.NewSelectExpr(s, refine.NewConstantExpr(0x10, 24))
			if _, ok := got.(*refine.SelectExpr); !ok {
				t.Fatalf("expected unresolved select, got %T", got)
			}
		})
		t.Run("SymbolicIndexSameTerm", func(t *testing.T) {
			a := refine.NewArrayVarExpr("blks_val", 24, 9)
			i := refine.NewVarExpr("i", 24)
			s := refine.NewArrayStoreExpr(a, i, refine.NewConstantExpr(0x1AA, 9))
			if diff := cmp.Diff(
				refine.NewSelectExpr(s, i),
				refine.NewConstantExpr(0x1AA, 9),
			); diff != "" {
				t.Fatal(diff)
			}
		})
		t.Run("BaseArrayVar", func(t *testing.T) {
			a := refine.NewArrayVarExpr("blks_val", 24, 9)
			s := refine.NewArrayStoreExpr(a, refine.NewConstantExpr(0x10, 24), refine.NewConstantExpr(0x1AA, 9))
			got := refine.NewSelectExpr(s, refine.NewConstantExpr(0x20, 24))
			sel, ok := got.(*refine.SelectExpr)
			if !ok {
				t.Fatalf("expected select, got %T", got)
			} else if diff := cmp.Diff(sel.Array, refine.ArrayExpr(a)); diff != "" {
				t.Fatal(diff)
			}
		})
	})

	t.Run("BetaReduction", func(t *testing.T) {
		idx := refine.NewVarExpr("#idx0", 24)
		body := refine.NewBinaryExpr(refine.ADD, refine.NewConstantExpr(1, 9), refine.NewZExtExpr(refine.NewExtractExpr(idx, 0, 8), 9))
		lambda := refine.NewLambdaExpr(idx, body)
		if diff := cmp.Diff(
			refine.NewSelectExpr(lambda, refine.NewConstantExpr(0x41, 24)),
			refine.NewConstantExpr(0x42, 9),
		); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("IteDistribution", func(t *testing.T) {
		cond := refine.NewVarExpr("c", 1)
		a := refine.NewArrayVarExpr("a", 24, 9)
		b := refine.NewArrayVarExpr("b", 24, 9)
		ite := refine.NewArrayIteExpr(cond, a, b)
		i := refine.NewConstantExpr(0x10, 24)
		if diff := cmp.Diff(
			refine.NewSelectExpr(ite, i),
			refine.NewIteExpr(cond, refine.NewSelectExpr(a, i), refine.NewSelectExpr(b, i)),
		); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestNewArrayIteExpr(t *testing.T) {
	a := refine.NewArrayVarExpr("a", 24, 9)
	b := refine.NewArrayVarExpr("b", 24, 9)

	t.Run("ConstantTrue", func(t *testing.T) {
		if diff := cmp.Diff(refine.NewArrayIteExpr(refine.NewConstantExpr(1, 1), a, b), refine.ArrayExpr(a)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ConstantFalse", func(t *testing.T) {
		if diff := cmp.Diff(refine.NewArrayIteExpr(refine.NewConstantExpr(0, 1), a, b), refine.ArrayExpr(b)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("EqualBranches", func(t *testing.T) {
		cond := refine.NewVarExpr("c", 1)
		if diff := cmp.Diff(refine.NewArrayIteExpr(cond, a, a), refine.ArrayExpr(a)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("NegatedCondSwaps", func(t *testing.T) {
		cond := refine.NewVarExpr("c", 1)
		if diff := cmp.Diff(
			refine.NewArrayIteExpr(refine.NewNotExpr(cond), a, b),
			refine.NewArrayIteExpr(cond, b, a),
		); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestCompareArrayExpr(t *testing.T) {
	t.Run("EqualVars", func(t *testing.T) {
		a := refine.NewArrayVarExpr("blks_val", 24, 9)
		b := refine.NewArrayVarExpr("blks_val", 24, 9)
		if v := refine.CompareArrayExpr(a, b); v != 0 {
			t.Fatalf("unexpected comparison: %d", v)
		}
	})
	t.Run("DifferentNames", func(t *testing.T) {
		a := refine.NewArrayVarExpr("a", 24, 9)
		b := refine.NewArrayVarExpr("b", 24, 9)
		if v := refine.CompareArrayExpr(a, b); v >= 0 {
			t.Fatalf("unexpected comparison: %d", v)
		}
	})
	t.Run("StoreChains", func(t *testing.T) {
		a := refine.NewArrayVarExpr("blks_val", 24, 9)
		s0 := refine.NewArrayStoreExpr(a, refine.NewConstantExpr(1, 24), refine.NewConstantExpr(2, 9))
		s1 := refine.NewArrayStoreExpr(a, refine.NewConstantExpr(1, 24), refine.NewConstantExpr(2, 9))
		if v := refine.CompareArrayExpr(s0, s1); v != 0 {
			t.Fatalf("unexpected comparison: %d", v)
		}
	})
}

func TestLambdaExpr_Substitution(t *testing.T) {
	t.Run("BoundIndexShadows", func(t *testing.T) {
		idx := refine.NewVarExpr("i", 24)
		lambda := refine.NewLambdaExpr(idx, refine.NewZExtExpr(idx, 24))
		sel := refine.NewSelectExpr(refine.NewArrayStoreExpr(lambda, refine.NewVarExpr("j", 24), refine.NewConstantExpr(0, 24)), refine.NewVarExpr("k", 24))
		got := refine.SubstituteExpr(sel, "i", refine.NewConstantExpr(5, 24))
		if diff := cmp.Diff(got, refine.Expr(sel)); diff != "" {
			t.Fatal(diff)
		}
	})
}
