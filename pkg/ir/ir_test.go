package ir

import (
	"testing"
)

func TestIdGenUnique(t *testing.T) {
	t.Parallel()
	g := NewIdGen()
	seen := make(map[int]bool)
	for i := 0; i < 100; i++ {
		id := g.Next()
		if seen[id] {
			t.Fatalf("id %d issued twice", id)
		}
		seen[id] = true
	}
}

func TestPrimedName(t *testing.T) {
	t.Parallel()
	g := NewIdGen()
	p := NewPrime(g, "x")
	name, ok := p.PrimedName()
	if !ok || name != "x" {
		t.Errorf("expected primed name x, got %q (%v)", name, ok)
	}
	if _, ok := NewName(g, "x").PrimedName(); ok {
		t.Errorf("plain name must not report a primed name")
	}
}

func TestFreeAndPrimedNames(t *testing.T) {
	t.Parallel()
	g := NewIdGen()
	// w' ∈ {v' + u}
	ex := NewOper(g, OpIn,
		NewPrime(g, "w"),
		NewOper(g, OpEnumSet,
			NewOper(g, OpPlus, NewPrime(g, "v"), NewName(g, "u"))))

	primed := PrimedNames(ex)
	if _, ok := primed["v"]; !ok {
		t.Errorf("expected v among primed names, got %v", primed)
	}
	if _, ok := primed["u"]; ok {
		t.Errorf("u is not primed, got %v", primed)
	}
	free := FreeNames(ex)
	if _, ok := free["u"]; !ok {
		t.Errorf("expected u among free names, got %v", free)
	}
	if _, ok := free["v"]; ok {
		t.Errorf("primed v must not appear among free names, got %v", free)
	}
}

func TestFromMap(t *testing.T) {
	t.Parallel()
	g := NewIdGen()
	m := map[string]interface{}{
		"op": "and",
		"args": []interface{}{
			map[string]interface{}{"op": "in", "args": []interface{}{
				map[string]interface{}{"prime": "x"},
				map[string]interface{}{"op": "enumSet", "args": []interface{}{
					map[string]interface{}{"int": float64(1)},
				}, "type": "set(int)"},
			}},
			map[string]interface{}{"bool": true},
		},
	}
	ex, err := FromMap(m, g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ex.IsOper(OpAnd) || len(ex.Args) != 2 {
		t.Fatalf("expected binary and, got %s", ex.String())
	}
	name, ok := ex.Args[0].Args[0].PrimedName()
	if !ok || name != "x" {
		t.Errorf("expected primed x, got %s", ex.Args[0].String())
	}
	set := ex.Args[0].Args[1]
	if set.Tp == nil || set.Tp.Signature() != "Set_Int" {
		t.Errorf("expected set(int) annotation, got %v", set.Tp)
	}
}

func TestFromMapRejectsGarbage(t *testing.T) {
	t.Parallel()
	g := NewIdGen()
	if _, err := FromMap(map[string]interface{}{"frob": 1}, g); err == nil {
		t.Errorf("expected error for unknown node shape")
	}
}
