package eq

import (
	"errors"
	"strings"
	"testing"

	"github.com/vhavlena/veritla/pkg/arena"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/smt"
	"github.com/vhavlena/veritla/pkg/types"
)

type engineFixture struct {
	eng   *LazyEquality
	gw    *smt.RecordingGateway
	arena *arena.Arena
	ids   *ir.IdGen
}

func newEngineFixture() *engineFixture {
	a := arena.New()
	gw := smt.NewRecordingGateway()
	ids := ir.NewIdGen()
	return &engineFixture{
		eng:   NewLazyEquality(a, gw, NewCache(), ids),
		gw:    gw,
		arena: a,
		ids:   ids,
	}
}

// newCell allocates and declares a cell.
func (f *engineFixture) newCell(tp types.CellType) arena.Cell {
	c := f.arena.AllocCell(tp)
	f.gw.DeclareCell(c)
	return c
}

// newIntSet builds a finite integer set with the given member cells.
func (f *engineFixture) newIntSet(members ...arena.Cell) arena.Cell {
	set := f.newCell(types.NewFinSetType(types.NewIntType()))
	for _, m := range members {
		f.arena.AppendHas(set.ID(), m.ID())
	}
	return set
}

func TestSafeEqIdentity(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	c := f.newCell(types.NewIntType())

	sizeBefore := f.eng.Cache().Size()
	ex, err := f.eng.SafeEq(c, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ex.IsBoolLit(true) {
		t.Errorf("identity equality must be the true literal, got %s", ex.String())
	}
	if f.eng.Cache().Size() != sizeBefore {
		t.Errorf("identity equality must not consult or grow the cache")
	}
}

func TestSafeEqUncached(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	a := f.newCell(types.NewIntType())
	b := f.newCell(types.NewIntType())
	if _, err := f.eng.SafeEq(a, b); !errors.Is(err, verr.ErrUncachedEquality) {
		t.Errorf("expected the uncached-equality failure, got %v", err)
	}
}

func TestSafeEqIncomparable(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	a := f.newCell(types.NewIntType())
	b := f.newCell(types.NewBoolType())
	if _, err := f.eng.SafeEq(a, b); !errors.Is(err, verr.ErrIncomparableTypes) {
		t.Errorf("expected the incomparable-types failure, got %v", err)
	}
}

func TestCachedEqIncomparable(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	a := f.newCell(types.NewIntType())
	b := f.newCell(types.NewBoolType())

	asserts := f.gw.NumAssertions()
	size := f.eng.Cache().Size()
	ex, err := f.eng.CachedEq(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ex.IsBoolLit(false) {
		t.Errorf("incomparable cells must compare to the false literal, got %s", ex.String())
	}
	if f.gw.NumAssertions() != asserts {
		t.Errorf("incomparable equality must not assert anything")
	}
	if f.eng.Cache().Size() != size {
		t.Errorf("incomparable equality must not install a cache entry")
	}
}

func TestCacheEqScalars(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	a := f.newCell(types.NewIntType())
	b := f.newCell(types.NewIntType())

	if err := f.eng.CacheEq(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, ok := f.eng.Cache().Get(a.ID(), b.ID())
	if !ok || entry.Kind != EntryNative {
		t.Fatalf("scalar pair must cache natively, got %v %v", entry, ok)
	}

	asserts := f.gw.NumAssertions()
	ex, err := f.eng.SafeEq(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.gw.NumAssertions() != asserts {
		t.Errorf("SafeEq after caching must not add assertions")
	}
	rendered, err := smt.Render(ex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "(= " + smt.CellName(a.ID()) + " " + smt.CellName(b.ID()) + ")"
	if rendered != want {
		t.Errorf("expected native equality %q, got %q", want, rendered)
	}
}

func TestCacheEqIdempotent(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	one := f.newCell(types.NewIntType())
	a := f.newIntSet(one)
	b := f.newIntSet(one)

	if err := f.eng.CacheEq(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	asserts := f.gw.NumAssertions()
	if err := f.eng.CacheEq(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.gw.NumAssertions() != asserts {
		t.Errorf("repeated caching must not re-assert constraints")
	}
}

// TestEmptySetEquality is the empty-set round trip: equality of the
// statically empty set to {c1, c2} becomes the predicate cell equivalent to
// c1 ∉ b ∧ c2 ∉ b.
func TestEmptySetEquality(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	empty := f.newCell(types.NewFinSetType(types.NewUnknownType()))
	c1 := f.newCell(types.NewIntType())
	c2 := f.newCell(types.NewIntType())
	b := f.newIntSet(c1, c2)

	if err := f.eng.CacheEq(empty, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, ok := f.eng.Cache().Get(empty.ID(), b.ID())
	if !ok || entry.Kind != EntryExpr {
		t.Fatalf("empty-set equality must install an Expr entry, got %v %v", entry, ok)
	}

	ex, err := f.eng.SafeEq(empty, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Kind != ir.KindCell || arena.CellID(ex.Cell) != entry.Pred {
		t.Errorf("SafeEq must return the predicate cell, got %s", ex.String())
	}

	// The defining assertion ties the predicate to the non-membership of
	// both elements.
	found := false
	notIn1 := "(not " + smt.InPredName(b.ID(), c1.ID()) + ")"
	notIn2 := "(not " + smt.InPredName(b.ID(), c2.ID()) + ")"
	for _, a := range f.gw.Assertions() {
		if strings.Contains(a, smt.CellName(entry.Pred)) &&
			strings.Contains(a, notIn1) && strings.Contains(a, notIn2) {
			found = true
		}
	}
	if !found {
		t.Errorf("missing defining assertion for the empty-set predicate:\n%v", f.gw.Assertions())
	}
}

func TestBothEmptySetsEqual(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	a := f.newCell(types.NewFinSetType(types.NewUnknownType()))
	b := f.newCell(types.NewFinSetType(types.NewUnknownType()))
	if err := f.eng.CacheEq(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ex, err := f.eng.SafeEq(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ex.IsBoolLit(true) {
		t.Errorf("two statically empty sets are equal, got %s", ex.String())
	}
}

func TestSetEqualityNative(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	x := f.newCell(types.NewIntType())
	y := f.newCell(types.NewIntType())
	a := f.newIntSet(x)
	b := f.newIntSet(y)

	if err := f.eng.CacheEq(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, ok := f.eng.Cache().Get(a.ID(), b.ID())
	if !ok || entry.Kind != EntryNative {
		t.Fatalf("set equality must end in a native entry, got %v %v", entry, ok)
	}
	// The element pair must have been cached on the way.
	if _, ok := f.eng.Cache().Get(x.ID(), y.ID()); !ok {
		t.Errorf("cross pairs must be cached before subset constraints")
	}
	if f.gw.NumAssertions() == 0 {
		t.Errorf("set equality must assert its defining equivalence")
	}
}

func TestSubsetEqEmptyLeft(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	left := f.newIntSet()
	right := f.newIntSet(f.newCell(types.NewIntType()))
	ex, err := f.eng.SubsetEq(left, right)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ex.IsBoolLit(true) {
		t.Errorf("the empty set is a subset of everything, got %s", ex.String())
	}
}

func TestSubsetEqMaterializes(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	x := f.newCell(types.NewIntType())
	y := f.newCell(types.NewIntType())
	z := f.newCell(types.NewIntType())
	left := f.newIntSet(x, y)
	right := f.newIntSet(z)

	cellsBefore := f.arena.NumCells()
	ex, err := f.eng.SubsetEq(left, right)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.arena.NumCells() <= cellsBefore {
		t.Errorf("subset constraints must materialise intermediate predicates as cells")
	}
	// The result is a conjunction of cell references, not a deep formula.
	if ex.Kind != ir.KindOper || ex.Op != ir.OpAnd {
		t.Fatalf("expected a conjunction, got %s", ex.String())
	}
	for _, arg := range ex.Args {
		if arg.Kind != ir.KindCell {
			t.Errorf("conjunct must be a materialised cell, got %s", arg.String())
		}
	}
}

func TestTupleEquality(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	tupType := types.NewTupleType([]types.CellType{types.NewIntType(), types.NewBoolType()})
	a := f.newCell(tupType)
	f.arena.AppendHas(a.ID(), f.newCell(types.NewIntType()).ID())
	f.arena.AppendHas(a.ID(), f.newCell(types.NewBoolType()).ID())
	b := f.newCell(tupType)
	f.arena.AppendHas(b.ID(), f.newCell(types.NewIntType()).ID())
	f.arena.AppendHas(b.ID(), f.newCell(types.NewBoolType()).ID())

	if err := f.eng.CacheEq(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, ok := f.eng.Cache().Get(a.ID(), b.ID())
	if !ok || entry.Kind != EntryNative {
		t.Errorf("tuple equality must end in a native entry, got %v %v", entry, ok)
	}
}

// buildRecord allocates a record instance with its domain set.
func (f *engineFixture) buildRecord(tp types.CellType, fieldCells map[string]arena.Cell) arena.Cell {
	dom := f.newCell(types.NewFinSetType(types.NewStrType()))
	rec := f.newCell(tp)
	for _, name := range tp.FieldOrder {
		key := f.newCell(types.NewStrType())
		f.arena.AppendHas(dom.ID(), key.ID())
		f.arena.AppendHas(rec.ID(), fieldCells[name].ID())
	}
	f.arena.SetDom(rec.ID(), dom.ID())
	return rec
}

// TestRecordFieldMismatch checks that a field present in only one schema
// forces record inequality when the instance carries it.
func TestRecordFieldMismatch(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	tpA := types.NewRecordType(map[string]types.CellType{"foo": types.NewBoolType()})
	tpB := types.NewRecordType(map[string]types.CellType{"foo": types.NewBoolType(), "bar": types.NewIntType()})

	a := f.buildRecord(tpA, map[string]arena.Cell{"foo": f.newCell(types.NewBoolType())})
	b := f.buildRecord(tpB, map[string]arena.Cell{
		"bar": f.newCell(types.NewIntType()),
		"foo": f.newCell(types.NewBoolType()),
	})

	if err := f.eng.CacheEq(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Some assertion must force ¬(a = b) under the presence of bar.
	neg := "(not (= " + smt.CellName(b.ID()) + " " + smt.CellName(a.ID()) + "))"
	negRev := "(not (= " + smt.CellName(a.ID()) + " " + smt.CellName(b.ID()) + "))"
	found := false
	for _, s := range f.gw.Assertions() {
		if strings.Contains(s, neg) || strings.Contains(s, negRev) {
			found = true
		}
	}
	if !found {
		t.Errorf("one-sided field must force inequality:\n%v", f.gw.Assertions())
	}
}

func TestMarkEqualUnchecked(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	a := f.newIntSet(f.newCell(types.NewIntType()))
	b := f.newIntSet(f.newCell(types.NewIntType()))

	asserts := f.gw.NumAssertions()
	f.eng.MarkEqualUnchecked(a, b)
	if f.gw.NumAssertions() != asserts {
		t.Errorf("the back-door must not perform structural work")
	}
	entry, ok := f.eng.Cache().Get(a.ID(), b.ID())
	if !ok || entry.Kind != EntryNative {
		t.Errorf("the back-door must install a native entry, got %v %v", entry, ok)
	}
}

func TestFunEqualityReducesToRelation(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	pairType := types.NewTupleType([]types.CellType{types.NewIntType(), types.NewIntType()})
	relType := types.NewFinSetType(pairType)

	mkFun := func() arena.Cell {
		dom := f.newIntSet()
		rel := f.newCell(relType)
		fun := f.newCell(types.NewFunType(types.NewIntType(), types.NewIntType()))
		f.arena.SetDom(fun.ID(), dom.ID())
		f.arena.SetCdm(fun.ID(), rel.ID())
		return fun
	}
	fa := mkFun()
	fb := mkFun()

	if err := f.eng.CacheEq(fa, fb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	relA, _ := f.arena.Cdm(fa.ID())
	relB, _ := f.arena.Cdm(fb.ID())
	if _, ok := f.eng.Cache().Get(relA, relB); !ok {
		t.Errorf("function equality must cache the relation pair")
	}
}

func TestSeqEqualityAssertsWindow(t *testing.T) {
	t.Parallel()
	f := newEngineFixture()
	mkSeq := func(n int) arena.Cell {
		seq := f.newCell(types.NewSeqType(types.NewIntType()))
		start := f.newCell(types.NewIntType())
		end := f.newCell(types.NewIntType())
		f.arena.AppendHas(seq.ID(), start.ID())
		f.arena.AppendHas(seq.ID(), end.ID())
		for i := 0; i < n; i++ {
			f.arena.AppendHas(seq.ID(), f.newCell(types.NewIntType()).ID())
		}
		return seq
	}
	a := mkSeq(2)
	b := mkSeq(1)
	if err := f.eng.CacheEq(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, ok := f.eng.Cache().Get(a.ID(), b.ID())
	if !ok || entry.Kind != EntryNative {
		t.Errorf("sequence equality must end in a native entry, got %v %v", entry, ok)
	}
	hasA, hasB := f.arena.Has(a.ID()), f.arena.Has(b.ID())
	window := "(= (- " + smt.CellName(hasA[1]) + " " + smt.CellName(hasA[0]) + ") (- " +
		smt.CellName(hasB[1]) + " " + smt.CellName(hasB[0]) + "))"
	found := false
	for _, s := range f.gw.Assertions() {
		if strings.Contains(s, window) {
			found = true
		}
	}
	if !found {
		t.Errorf("sequence equality must equate the window lengths %s:\n%v", window, f.gw.Assertions())
	}
}
