package trans

import (
	"testing"

	"github.com/vhavlena/veritla/pkg/ir"
)

// The tests in this file need a Z3 installation.

func TestExtractKeepsCoveredDisjuncts(t *testing.T) {
	g := ir.NewIdGen()
	// or( x' ∈ {1}, 1 = 1 ): the second disjunct assigns nothing and is
	// rejected.
	covered := ir.NewOper(g, ir.OpIn,
		ir.NewPrime(g, "x"),
		ir.NewOper(g, ir.OpEnumSet, ir.NewInt(g, 1)))
	next := ir.NewOper(g, ir.OpOr, covered, ir.NewOper(g, ir.OpEq, ir.NewInt(g, 1), ir.NewInt(g, 1)))

	ts, err := Extract("Next", next, []string{"x"}, g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ts) != 1 {
		t.Fatalf("expected one accepted transition, got %d", len(ts))
	}
	if ts[0].Name != "Next_0" {
		t.Errorf("transitions are keyed by prefix and index, got %s", ts[0].Name)
	}
	if len(ts[0].Strategy) != 1 || ts[0].Strategy[0].Var != "x" {
		t.Errorf("unexpected strategy %+v", ts[0].Strategy)
	}
}

func TestExtractDistributesConjunction(t *testing.T) {
	g := ir.NewIdGen()
	// x' ∈ {1} ∧ (y' ∈ {1} ∨ y' ∈ {2}) yields two transitions.
	cx := ir.NewOper(g, ir.OpIn, ir.NewPrime(g, "x"),
		ir.NewOper(g, ir.OpEnumSet, ir.NewInt(g, 1)))
	cy1 := ir.NewOper(g, ir.OpIn, ir.NewPrime(g, "y"),
		ir.NewOper(g, ir.OpEnumSet, ir.NewInt(g, 1)))
	cy2 := ir.NewOper(g, ir.OpIn, ir.NewPrime(g, "y"),
		ir.NewOper(g, ir.OpEnumSet, ir.NewInt(g, 2)))
	next := ir.NewOper(g, ir.OpAnd, cx, ir.NewOper(g, ir.OpOr, cy1, cy2))

	ts, err := Extract("Next", next, []string{"x", "y"}, g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ts) != 2 {
		t.Fatalf("expected two transitions after distribution, got %d", len(ts))
	}
	for i, tr := range ts {
		if len(tr.Strategy) != 2 {
			t.Errorf("transition %d must assign both variables, got %+v", i, tr.Strategy)
		}
	}
}
