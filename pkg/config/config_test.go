package config

import (
	"testing"

	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

const sampleConfig = `
variables:
  x: int
  flags: set(bool)
bound: 4
dumpSmt: out.smt2
init:
  op: in
  args:
    - prime: x
    - op: enumSet
      args:
        - int: 0
next:
  op: in
  args:
    - prime: x
    - op: enumSet
      args:
        - op: plus
          args:
            - name: x
            - int: 1
invariant:
  op: lt
  args:
    - name: x
    - int: 10
`

func TestProcessYAMLInput(t *testing.T) {
	t.Parallel()
	cfg, err := ProcessYAMLInput([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bound != 4 || cfg.DumpSmt != "out.smt2" {
		t.Errorf("scalar fields lost: %+v", cfg)
	}

	vt, err := cfg.VarTypes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp := vt["x"]; tp.Kind != types.KindInt {
		t.Errorf("x must be int, got %s", tp.PrettyPrint())
	}
	if tp := vt["flags"]; tp.Kind != types.KindFinSet || tp.Elem.Kind != types.KindBool {
		t.Errorf("flags must be set(bool), got %s", tp.PrettyPrint())
	}

	names := cfg.VarNames()
	if len(names) != 2 || names[0] != "flags" || names[1] != "x" {
		t.Errorf("variable names must be sorted, got %v", names)
	}
}

func TestConfigExprs(t *testing.T) {
	t.Parallel()
	cfg, err := ProcessYAMLInput([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := ir.NewIdGen()
	initEx, err := cfg.InitExpr(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !initEx.IsOper(ir.OpIn) {
		t.Errorf("init must decode to a membership, got %s", initEx.String())
	}
	name, ok := initEx.Args[0].PrimedName()
	if !ok || name != "x" {
		t.Errorf("init must assign x', got %s", initEx.String())
	}
	inv, err := cfg.InvariantExpr(g)
	if err != nil || inv == nil || !inv.IsOper(ir.OpLt) {
		t.Errorf("invariant must decode to a comparison, got %v %v", inv, err)
	}
}

func TestMissingFormulas(t *testing.T) {
	t.Parallel()
	cfg, err := ProcessYAMLInput([]byte("variables:\n  x: int\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := ir.NewIdGen()
	if _, err := cfg.InitExpr(g); err == nil {
		t.Errorf("a missing init must be an error")
	}
	if inv, err := cfg.InvariantExpr(g); err != nil || inv != nil {
		t.Errorf("a missing invariant is no error, got %v %v", inv, err)
	}
}

func TestBadTypeString(t *testing.T) {
	t.Parallel()
	cfg, err := ProcessYAMLInput([]byte("variables:\n  x: frob\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cfg.VarTypes(); err == nil {
		t.Errorf("an unknown type string must be an error")
	}
}
