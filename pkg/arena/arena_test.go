package arena

import (
	"testing"

	"github.com/vhavlena/veritla/pkg/types"
)

func TestDistinguishedCells(t *testing.T) {
	t.Parallel()
	a := New()
	if a.NumCells() != 2 {
		t.Fatalf("expected exactly the two boolean cells, got %d", a.NumCells())
	}
	ct := a.CellTrue()
	cf := a.CellFalse()
	if ct.ID() == cf.ID() {
		t.Errorf("true and false cells must differ")
	}
	if tp := ct.Type(); tp.Kind != types.KindBool {
		t.Errorf("cellTrue must be boolean, got %s", tp.PrettyPrint())
	}
}

func TestAllocMonotonic(t *testing.T) {
	t.Parallel()
	a := New()
	prev := CellID(-1)
	for i := 0; i < 10; i++ {
		c := a.AllocCell(types.NewIntType())
		if c.ID() <= prev {
			t.Fatalf("cell ids must increase, got %d after %d", c.ID(), prev)
		}
		prev = c.ID()
	}
}

func TestEdges(t *testing.T) {
	t.Parallel()
	a := New()
	e1 := a.AllocCell(types.NewIntType())
	e2 := a.AllocCell(types.NewIntType())
	set := a.AllocCell(types.NewFinSetType(types.NewIntType()))

	if len(a.Has(set.ID())) != 0 {
		t.Errorf("fresh cell must have no has edges")
	}
	a.AppendHas(set.ID(), e1.ID())
	a.AppendHas(set.ID(), e2.ID())
	has := a.Has(set.ID())
	if len(has) != 2 || has[0] != e1.ID() || has[1] != e2.ID() {
		t.Errorf("has edges must keep insertion order, got %v", has)
	}

	if _, ok := a.Dom(set.ID()); ok {
		t.Errorf("dom must be unset for a fresh cell")
	}
	a.SetDom(set.ID(), e1.ID())
	a.SetCdm(set.ID(), e2.ID())
	if d, ok := a.Dom(set.ID()); !ok || d != e1.ID() {
		t.Errorf("dom edge lost, got %v %v", d, ok)
	}
	if r, ok := a.Cdm(set.ID()); !ok || r != e2.ID() {
		t.Errorf("cdm edge lost, got %v %v", r, ok)
	}
}

func TestSnapshotRestore(t *testing.T) {
	t.Parallel()
	a := New()
	base := a.AllocCell(types.NewFinSetType(types.NewIntType()))
	e0 := a.AllocCell(types.NewIntType())
	a.AppendHas(base.ID(), e0.ID())

	snap := a.TakeSnapshot()
	cellsBefore := a.NumCells()
	hasBefore := len(a.Has(base.ID()))

	e1 := a.AllocCell(types.NewIntType())
	a.AppendHas(base.ID(), e1.ID())
	a.SetDom(base.ID(), e1.ID())
	a.SetCdm(base.ID(), e1.ID())

	a.Restore(snap)
	if a.NumCells() != cellsBefore {
		t.Errorf("restore must truncate cells: got %d, want %d", a.NumCells(), cellsBefore)
	}
	if got := len(a.Has(base.ID())); got != hasBefore {
		t.Errorf("restore must truncate later has edges: got %d, want %d", got, hasBefore)
	}
	if _, ok := a.Dom(base.ID()); ok {
		t.Errorf("restore must drop later dom edges")
	}
	if _, ok := a.Cdm(base.ID()); ok {
		t.Errorf("restore must drop later cdm edges")
	}

	// Restoring the same handle again is a no-op.
	a.Restore(snap)
	if a.NumCells() != cellsBefore {
		t.Errorf("second restore must be idempotent")
	}
}

func TestRestoreKeepsEarlierEdges(t *testing.T) {
	t.Parallel()
	a := New()
	set := a.AllocCell(types.NewFinSetType(types.NewIntType()))
	e0 := a.AllocCell(types.NewIntType())
	a.AppendHas(set.ID(), e0.ID())
	snap := a.TakeSnapshot()

	e1 := a.AllocCell(types.NewIntType())
	a.AppendHas(set.ID(), e1.ID())
	a.Restore(snap)

	has := a.Has(set.ID())
	if len(has) != 1 || has[0] != e0.ID() {
		t.Errorf("edges recorded before the snapshot must survive, got %v", has)
	}
}
