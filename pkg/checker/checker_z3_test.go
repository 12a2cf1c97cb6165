package checker

import (
	"testing"

	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/smt"
	"github.com/vhavlena/veritla/pkg/types"
)

// The tests in this file need a Z3 installation; they run the full bounded
// pipeline: extraction, strategy search, rewriting, and model decoding.

func newCounterSystem(t *testing.T) (*Checker, *smt.Z3Gateway, *ir.IdGen, *ir.Expr, *ir.Expr) {
	t.Helper()
	gw := smt.NewZ3Gateway()
	ids := ir.NewIdGen()
	varTypes := map[string]types.CellType{"x": types.NewIntType()}
	chk, err := New(gw, ids, varTypes, []string{"x"})
	if err != nil {
		gw.Close()
		t.Fatalf("failed to build checker: %v", err)
	}
	// Init: x' ∈ {0}; Next: x' ∈ {x + 1}.
	initEx := ir.NewOper(ids, ir.OpIn,
		ir.NewPrime(ids, "x"),
		ir.NewOper(ids, ir.OpEnumSet, ir.NewInt(ids, 0)))
	nextEx := ir.NewOper(ids, ir.OpIn,
		ir.NewPrime(ids, "x"),
		ir.NewOper(ids, ir.OpEnumSet,
			ir.NewOper(ids, ir.OpPlus, ir.NewName(ids, "x"), ir.NewInt(ids, 1))))
	return chk, gw, ids, initEx, nextEx
}

func TestCounterViolatesBound(t *testing.T) {
	chk, gw, ids, initEx, nextEx := newCounterSystem(t)
	defer gw.Close()

	// Invariant x < 2 breaks after two steps.
	inv := ir.NewOper(ids, ir.OpLt, ir.NewName(ids, "x"), ir.NewInt(ids, 2))
	outcome, trace, err := chk.Run(initEx, nextEx, inv, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeViolation {
		t.Fatalf("expected a violation, got %v", outcome)
	}
	if len(trace) == 0 {
		t.Fatalf("a violation must come with a decoded state")
	}
	x, ok := trace[0]["x"]
	if !ok {
		t.Fatalf("the decoded state must contain x, got %v", trace[0])
	}
	if v, _ := x.Int64(); v != 2 {
		t.Errorf("the counter must be 2 at the violation, got %s", x.Render())
	}
}

func TestCounterHoldsWithinBound(t *testing.T) {
	chk, gw, ids, initEx, nextEx := newCounterSystem(t)
	defer gw.Close()

	// Invariant x < 10 cannot break within 3 steps.
	inv := ir.NewOper(ids, ir.OpLt, ir.NewName(ids, "x"), ir.NewInt(ids, 10))
	outcome, trace, err := chk.Run(initEx, nextEx, inv, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeNoViolation {
		t.Errorf("expected no violation, got %v (%v)", outcome, trace)
	}
}

func TestRunWithoutInvariant(t *testing.T) {
	chk, gw, _, initEx, nextEx := newCounterSystem(t)
	defer gw.Close()

	outcome, _, err := chk.Run(initEx, nextEx, nil, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeNoViolation {
		t.Errorf("a run without an invariant reports no violation, got %v", outcome)
	}
}
