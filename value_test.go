package refine_test

import (
	"testing"

	"github.com/benbjohnson/refine"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestStateValue_Both(t *testing.T) {
	v := refine.NewVarExpr("v", 1)
	np := refine.NewVarExpr("np", 1)
	got := refine.NewStateValue(v, np).Both()
	if diff := cmp.Diff(got, refine.NewAndExpr(v, np)); diff != "" {
		t.Fatal(diff)
	}
}

func TestStateValue_String(t *testing.T) {
	v := refine.NewStateValue(refine.NewConstantExpr(4, 8), refine.NewVarExpr("np", 1))
	require.Equal(t, "4 / np", v.String())
}

func TestIntType(t *testing.T) {
	typ := refine.NewIntType(32)
	require.Equal(t, uint(32), typ.Bits())
	require.Equal(t, "i32", typ.String())

	v := refine.NewStateValue(refine.NewVarExpr("x", 32), refine.NewVarExpr("np", 1))
	if diff := cmp.Diff(typ.ToBV(v), v); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(typ.FromBV(v), v); diff != "" {
		t.Fatal(diff)
	}
}
