package smt

import (
	"reflect"
	"testing"

	"github.com/vhavlena/veritla/pkg/arena"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

func TestRenderGround(t *testing.T) {
	t.Parallel()
	g := ir.NewIdGen()
	tests := []struct {
		name string
		ex   *ir.Expr
		want string
	}{
		{"true", ir.NewBool(g, true), "true"},
		{"negative", ir.NewInt(g, -3), "(- 3)"},
		{"cell", ir.NewCellRef(g, 7), "c_7"},
		{"eq", ir.NewOper(g, ir.OpEq, ir.NewCellRef(g, 1), ir.NewCellRef(g, 2)), "(= c_1 c_2)"},
		{"in", ir.NewOper(g, ir.OpIn, ir.NewCellRef(g, 3), ir.NewCellRef(g, 4)), "in_3_4"},
		{"impl", ir.NewOper(g, ir.OpImplies, ir.NewBool(g, true), ir.NewBool(g, false)), "(=> true false)"},
		{"arith", ir.NewOper(g, ir.OpLt, ir.NewOper(g, ir.OpPlus, ir.NewCellRef(g, 1), ir.NewInt(g, 1)), ir.NewCellRef(g, 2)), "(< (+ c_1 1) c_2)"},
		{"empty-and", ir.NewOper(g, ir.OpAnd), "true"},
		{"unary-or", ir.NewOper(g, ir.OpOr, ir.NewCellRef(g, 5)), "c_5"},
	}
	for _, tc := range tests {
		got, err := Render(tc.ex)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: Render = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRenderRejectsNames(t *testing.T) {
	t.Parallel()
	g := ir.NewIdGen()
	if _, err := Render(ir.NewName(g, "x")); err == nil {
		t.Errorf("names are not ground and must be rejected")
	}
}

func TestRecorderScopes(t *testing.T) {
	t.Parallel()
	g := ir.NewIdGen()
	a := arena.New()
	gw := NewRecordingGateway()

	c := a.AllocCell(types.NewBoolType())
	gw.DeclareCell(c)
	if err := gw.AssertGround(ir.NewCellRef(g, int(c.ID()))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base := gw.Assertions()

	gw.Push()
	d := a.AllocCell(types.NewIntType())
	gw.DeclareCell(d)
	gw.DeclareInPred(c.ID(), d.ID())
	if err := gw.AssertGround(ir.NewOper(g, ir.OpNot, ir.NewCellRef(g, int(c.ID())))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.NumAssertions() != len(base)+1 {
		t.Fatalf("assertion inside the scope missing")
	}
	gw.Pop()

	if !reflect.DeepEqual(gw.Assertions(), base) {
		t.Errorf("pop must restore the assertion set: got %v, want %v", gw.Assertions(), base)
	}
	if gw.Declared(CellName(d.ID())) {
		t.Errorf("pop must drop the declarations of the scope")
	}
	if gw.Level() != 0 {
		t.Errorf("expected level 0, got %d", gw.Level())
	}
}

func TestRecorderDump(t *testing.T) {
	t.Parallel()
	g := ir.NewIdGen()
	a := arena.New()
	gw := NewRecordingGateway()
	c := a.AllocCell(types.NewIntType())
	gw.DeclareCell(c)
	if err := gw.AssertGround(ir.NewOper(g, ir.OpEq, ir.NewCellRef(g, int(c.ID())), ir.NewInt(g, 5))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dump := gw.Dump()
	wantDecl := "(declare-fun " + CellName(c.ID()) + " () Int)"
	if !containsLine(dump, wantDecl) {
		t.Errorf("dump misses declaration %q:\n%s", wantDecl, dump)
	}
	if !containsLine(dump, "(check-sat)") {
		t.Errorf("dump misses (check-sat):\n%s", dump)
	}
}

func containsLine(doc, line string) bool {
	for start := 0; start < len(doc); {
		end := start
		for end < len(doc) && doc[end] != '\n' {
			end++
		}
		if doc[start:end] == line {
			return true
		}
		start = end + 1
	}
	return false
}
