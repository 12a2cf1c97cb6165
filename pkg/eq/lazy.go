package eq

import (
	"github.com/vhavlena/veritla/pkg/arena"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/smt"
	"github.com/vhavlena/veritla/pkg/types"
)

// LazyEquality generates and caches structural equality constraints between
// cells on demand. Constraints are asserted through the gateway exactly once
// per pair; afterwards native SMT equality (or a dedicated predicate cell)
// stands for the pair.
type LazyEquality struct {
	arena *arena.Arena
	gw    smt.Gateway
	cache *Cache
	ids   *ir.IdGen
}

// NewLazyEquality creates an engine over the given arena, gateway, and
// cache.
func NewLazyEquality(a *arena.Arena, gw smt.Gateway, cache *Cache, ids *ir.IdGen) *LazyEquality {
	return &LazyEquality{arena: a, gw: gw, cache: cache, ids: ids}
}

// Cache exposes the underlying constraint cache.
func (l *LazyEquality) Cache() *Cache {
	return l.cache
}

// SafeEq returns a boolean IR term asserting a = b. The types of a and b
// must be comparable and the structural constraints must already be cached;
// violating either precondition is a programmer error.
//
// Parameters:
//
//	a arena.Cell: The left cell.
//	b arena.Cell: The right cell.
//
// Returns:
//
//	*ir.Expr: The boolean term standing for a = b.
//	error: A fatal error on incomparable types or an uncached pair.
func (l *LazyEquality) SafeEq(a, b arena.Cell) (*ir.Expr, error) {
	if a.ID() == b.ID() {
		return ir.NewBool(l.ids, true), nil
	}
	atp, btp := a.Type(), b.Type()
	if !types.Comparable(&atp, &btp) {
		return nil, verr.ErrEqIncomparable(int(a.ID()), int(b.ID()))
	}
	entry, ok := l.cache.Get(a.ID(), b.ID())
	if !ok {
		return nil, verr.ErrEqUncached(int(a.ID()), int(b.ID()))
	}
	return l.entryExpr(a, b, entry), nil
}

// CachedEq behaves like SafeEq but returns the literal false when the types
// are incomparable; the comparable case still requires caching.
func (l *LazyEquality) CachedEq(a, b arena.Cell) (*ir.Expr, error) {
	atp, btp := a.Type(), b.Type()
	if a.ID() != b.ID() && !types.Comparable(&atp, &btp) {
		return ir.NewBool(l.ids, false), nil
	}
	return l.SafeEq(a, b)
}

// CacheEq generates the structural equality constraints for a pair of
// comparable cells and installs the corresponding cache entry. Cached pairs
// and identical cells are no-ops.
//
// Parameters:
//
//	a arena.Cell: The left cell.
//	b arena.Cell: The right cell.
//
// Returns:
//
//	error: A fatal error on incomparable types or malformed cell structure.
func (l *LazyEquality) CacheEq(a, b arena.Cell) error {
	if a.ID() == b.ID() {
		return nil
	}
	atp, btp := a.Type(), b.Type()
	if !types.Comparable(&atp, &btp) {
		return verr.ErrEqIncomparable(int(a.ID()), int(b.ID()))
	}
	if _, ok := l.cache.Get(a.ID(), b.ID()); ok {
		return nil
	}

	switch {
	case atp.IsScalar() && btp.IsScalar():
		l.cache.Put(a.ID(), b.ID(), EntryNative, 0)
		return nil
	case atp.Kind == types.KindFinSet || btp.Kind == types.KindFinSet:
		return l.cacheSetEq(a, b)
	case atp.Kind == types.KindFun:
		return l.cacheFunEq(a, b)
	case atp.Kind == types.KindFinFunSet:
		return l.cacheFunSetEq(a, b)
	case atp.Kind == types.KindRecord:
		return l.cacheRecordEq(a, b)
	case atp.Kind == types.KindTuple:
		return l.cacheTupleEq(a, b)
	case atp.Kind == types.KindSeq:
		return l.cacheSeqEq(a, b)
	}
	return verr.ErrCellShape(int(a.ID()), "no equality constructor for type "+atp.PrettyPrint())
}

// CacheEqAll caches the constraints for every pair in the list.
func (l *LazyEquality) CacheEqAll(pairs [][2]arena.Cell) error {
	for _, p := range pairs {
		if err := l.CacheEq(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// MarkEqualUnchecked declares a pair equal under native SMT equality
// WITHOUT generating any structural constraints. It is reserved for call
// sites that can prove the equality by construction, such as picking a cell
// from a common pool; anywhere else it produces unsound results.
func (l *LazyEquality) MarkEqualUnchecked(a, b arena.Cell) {
	if a.ID() == b.ID() {
		return
	}
	l.cache.Put(a.ID(), b.ID(), EntryNative, 0)
}

// SubsetEq generates a boolean IR expression equivalent to left ⊆ right.
// Every non-constant sub-expression is materialised as a fresh boolean cell
// with an equivalence assertion rather than inlined into the enclosing
// conjunction; inlining blows formulas up on large sets.
//
// Parameters:
//
//	left arena.Cell: The candidate subset.
//	right arena.Cell: The candidate superset.
//
// Returns:
//
//	*ir.Expr: The subset predicate.
//	error: A fatal error from recursive constraint caching.
func (l *LazyEquality) SubsetEq(left, right arena.Cell) (*ir.Expr, error) {
	lHas := l.arena.Has(left.ID())
	rHas := l.arena.Has(right.ID())

	if len(lHas) == 0 {
		return ir.NewBool(l.ids, true), nil
	}
	if len(rHas) == 0 {
		clauses := make([]*ir.Expr, 0, len(lHas))
		for _, e := range lHas {
			clauses = append(clauses, ir.NewOper(l.ids, ir.OpNot, l.inExpr(left.ID(), e)))
		}
		return ir.NewOper(l.ids, ir.OpAnd, clauses...), nil
	}

	if err := l.cacheCrossPairs(lHas, rHas); err != nil {
		return nil, err
	}

	perElem := make([]*ir.Expr, 0, len(lHas))
	for _, le := range lHas {
		leCell := l.mustCell(le)
		terms := make([]*ir.Expr, 0, len(rHas))
		for _, re := range rHas {
			eqEx, err := l.CachedEq(leCell, l.mustCell(re))
			if err != nil {
				return nil, err
			}
			if eqEx.IsBoolLit(false) {
				continue
			}
			terms = append(terms, ir.NewOper(l.ids, ir.OpAnd, l.inExpr(right.ID(), re), eqEx))
		}
		found, err := l.materialize(ir.NewOper(l.ids, ir.OpOr, terms...))
		if err != nil {
			return nil, err
		}
		clause, err := l.materialize(ir.NewOper(l.ids, ir.OpOr,
			ir.NewOper(l.ids, ir.OpNot, l.inExpr(left.ID(), le)), found))
		if err != nil {
			return nil, err
		}
		perElem = append(perElem, clause)
	}
	return ir.NewOper(l.ids, ir.OpAnd, perElem...), nil
}

// cacheSetEq handles equality of two finite sets, including the statically
// empty set constant with the unknown element type.
func (l *LazyEquality) cacheSetEq(a, b arena.Cell) error {
	aHas := l.arena.Has(a.ID())
	bHas := l.arena.Has(b.ID())
	aEmpty := l.staticallyEmpty(a)
	bEmpty := l.staticallyEmpty(b)

	if aEmpty && bEmpty {
		l.cache.Put(a.ID(), b.ID(), EntryTrue, 0)
		return nil
	}
	if aEmpty || bEmpty {
		// Equality to the empty-set constant: every element of the other set
		// must stay outside it. Native equality is not applicable across the
		// unknown signature, so the predicate lives in its own boolean cell.
		other := a
		otherHas := aHas
		if aEmpty {
			other = b
			otherHas = bHas
		}
		clauses := make([]*ir.Expr, 0, len(otherHas))
		for _, e := range otherHas {
			clauses = append(clauses, ir.NewOper(l.ids, ir.OpNot, l.inExpr(other.ID(), e)))
		}
		pred, err := l.materializeForce(ir.NewOper(l.ids, ir.OpAnd, clauses...))
		if err != nil {
			return err
		}
		l.cache.Put(a.ID(), b.ID(), EntryExpr, pred)
		return nil
	}

	if err := l.cacheCrossPairs(aHas, bHas); err != nil {
		return err
	}
	subAB, err := l.SubsetEq(a, b)
	if err != nil {
		return err
	}
	subBA, err := l.SubsetEq(b, a)
	if err != nil {
		return err
	}
	iff := ir.NewOper(l.ids, ir.OpIff,
		l.nativeEq(a, b),
		ir.NewOper(l.ids, ir.OpAnd, subAB, subBA))
	if err := l.gw.AssertGround(iff); err != nil {
		return err
	}
	// Native SMT equality is sound for the pair from here on.
	l.cache.Put(a.ID(), b.ID(), EntryNative, 0)
	return nil
}

// cacheFunEq reduces function equality to equality of the underlying
// relations.
func (l *LazyEquality) cacheFunEq(a, b arena.Cell) error {
	relA, okA := l.arena.Cdm(a.ID())
	relB, okB := l.arena.Cdm(b.ID())
	if !okA {
		return verr.ErrCellShape(int(a.ID()), "function cell has no relation edge")
	}
	if !okB {
		return verr.ErrCellShape(int(b.ID()), "function cell has no relation edge")
	}
	if err := l.CacheEq(l.mustCell(relA), l.mustCell(relB)); err != nil {
		return err
	}
	relEq, err := l.SafeEq(l.mustCell(relA), l.mustCell(relB))
	if err != nil {
		return err
	}
	iff := ir.NewOper(l.ids, ir.OpIff, l.nativeEq(a, b), relEq)
	if err := l.gw.AssertGround(iff); err != nil {
		return err
	}
	l.cache.Put(a.ID(), b.ID(), EntryNative, 0)
	return nil
}

// cacheFunSetEq recurses on the domain and codomain set equalities.
func (l *LazyEquality) cacheFunSetEq(a, b arena.Cell) error {
	domA, okA := l.arena.Dom(a.ID())
	domB, okB := l.arena.Dom(b.ID())
	cdmA, okC := l.arena.Cdm(a.ID())
	cdmB, okD := l.arena.Cdm(b.ID())
	if !okA || !okC {
		return verr.ErrCellShape(int(a.ID()), "function-set cell misses a domain or codomain edge")
	}
	if !okB || !okD {
		return verr.ErrCellShape(int(b.ID()), "function-set cell misses a domain or codomain edge")
	}
	if err := l.CacheEq(l.mustCell(domA), l.mustCell(domB)); err != nil {
		return err
	}
	if err := l.CacheEq(l.mustCell(cdmA), l.mustCell(cdmB)); err != nil {
		return err
	}
	domEq, err := l.SafeEq(l.mustCell(domA), l.mustCell(domB))
	if err != nil {
		return err
	}
	cdmEq, err := l.SafeEq(l.mustCell(cdmA), l.mustCell(cdmB))
	if err != nil {
		return err
	}
	iff := ir.NewOper(l.ids, ir.OpIff, l.nativeEq(a, b),
		ir.NewOper(l.ids, ir.OpAnd, domEq, cdmEq))
	if err := l.gw.AssertGround(iff); err != nil {
		return err
	}
	l.cache.Put(a.ID(), b.ID(), EntryNative, 0)
	return nil
}

// cacheRecordEq relates records field-wise over the common schema; a field
// present in only one schema forces inequality whenever the instance
// carries it.
func (l *LazyEquality) cacheRecordEq(a, b arena.Cell) error {
	domA, okA := l.arena.Dom(a.ID())
	domB, okB := l.arena.Dom(b.ID())
	if !okA {
		return verr.ErrCellShape(int(a.ID()), "record cell has no domain edge")
	}
	if !okB {
		return verr.ErrCellShape(int(b.ID()), "record cell has no domain edge")
	}
	if err := l.CacheEq(l.mustCell(domA), l.mustCell(domB)); err != nil {
		return err
	}
	domEq, err := l.SafeEq(l.mustCell(domA), l.mustCell(domB))
	if err != nil {
		return err
	}

	atp := a.Type()
	btp := b.Type()
	parts := []*ir.Expr{domEq}
	for idxA, name := range atp.FieldOrder {
		idxB := fieldIndex(&btp, name)
		if idxB < 0 {
			continue
		}
		fa, ka, err := l.recordField(a, domA, idxA)
		if err != nil {
			return err
		}
		fb, _, err := l.recordField(b, domB, idxB)
		if err != nil {
			return err
		}
		if err := l.CacheEq(fa, fb); err != nil {
			return err
		}
		fieldEq, err := l.SafeEq(fa, fb)
		if err != nil {
			return err
		}
		parts = append(parts, ir.NewOper(l.ids, ir.OpImplies,
			l.inExpr(domA, ka.ID()), fieldEq))
	}
	iff := ir.NewOper(l.ids, ir.OpIff, l.nativeEq(a, b),
		ir.NewOper(l.ids, ir.OpAnd, parts...))
	if err := l.gw.AssertGround(iff); err != nil {
		return err
	}

	// One-sided fields: a present witness rules the equality out.
	if err := l.assertOneSidedFields(a, b, domA, &atp, &btp); err != nil {
		return err
	}
	if err := l.assertOneSidedFields(b, a, domB, &btp, &atp); err != nil {
		return err
	}

	l.cache.Put(a.ID(), b.ID(), EntryNative, 0)
	return nil
}

// assertOneSidedFields asserts, for every field of rec's schema missing from
// the other schema, that its presence in the instance contradicts equality.
func (l *LazyEquality) assertOneSidedFields(rec, other arena.Cell, dom arena.CellID, tp, otherTp *types.CellType) error {
	for idx, name := range tp.FieldOrder {
		if fieldIndex(otherTp, name) >= 0 {
			continue
		}
		_, key, err := l.recordField(rec, dom, idx)
		if err != nil {
			return err
		}
		impl := ir.NewOper(l.ids, ir.OpImplies,
			l.inExpr(dom, key.ID()),
			ir.NewOper(l.ids, ir.OpNot, l.nativeEq(rec, other)))
		if err := l.gw.AssertGround(impl); err != nil {
			return err
		}
	}
	return nil
}

// cacheTupleEq conjoins the pairwise component equalities. Tuples of
// different arity never reach this point: their types are incomparable.
func (l *LazyEquality) cacheTupleEq(a, b arena.Cell) error {
	aHas := l.arena.Has(a.ID())
	bHas := l.arena.Has(b.ID())
	if len(aHas) != len(bHas) {
		return verr.ErrCellShape(int(a.ID()), "tuple instances disagree with their common arity")
	}
	parts := make([]*ir.Expr, 0, len(aHas))
	for i := range aHas {
		ca := l.mustCell(aHas[i])
		cb := l.mustCell(bHas[i])
		if err := l.CacheEq(ca, cb); err != nil {
			return err
		}
		compEq, err := l.SafeEq(ca, cb)
		if err != nil {
			return err
		}
		parts = append(parts, compEq)
	}
	iff := ir.NewOper(l.ids, ir.OpIff, l.nativeEq(a, b),
		ir.NewOper(l.ids, ir.OpAnd, parts...))
	if err := l.gw.AssertGround(iff); err != nil {
		return err
	}
	l.cache.Put(a.ID(), b.ID(), EntryNative, 0)
	return nil
}

// cacheSeqEq relates two sequences laid out as [start, end, x_0, x_1, ...]
// with the half-open logical window [start, end). Equal windows and
// pairwise-equal aligned elements define the equality.
func (l *LazyEquality) cacheSeqEq(a, b arena.Cell) error {
	aHas := l.arena.Has(a.ID())
	bHas := l.arena.Has(b.ID())
	if len(aHas) < 2 {
		return verr.ErrCellShape(int(a.ID()), "sequence cell misses its start/end markers")
	}
	if len(bHas) < 2 {
		return verr.ErrCellShape(int(b.ID()), "sequence cell misses its start/end markers")
	}
	startA, endA, elemsA := aHas[0], aHas[1], aHas[2:]
	startB, endB, elemsB := bHas[0], bHas[1], bHas[2:]

	lenA := ir.NewOper(l.ids, ir.OpMinus, l.cellRef(endA), l.cellRef(startA))
	lenB := ir.NewOper(l.ids, ir.OpMinus, l.cellRef(endB), l.cellRef(startB))
	parts := []*ir.Expr{ir.NewOper(l.ids, ir.OpEq, lenA, lenB)}

	for p := range elemsA {
		for q := range elemsB {
			ca := l.mustCell(elemsA[p])
			cb := l.mustCell(elemsB[q])
			if err := l.CacheEq(ca, cb); err != nil {
				return err
			}
			elemEq, err := l.SafeEq(ca, cb)
			if err != nil {
				return err
			}
			offA := ir.NewOper(l.ids, ir.OpMinus, ir.NewInt(l.ids, int64(p)), l.cellRef(startA))
			offB := ir.NewOper(l.ids, ir.OpMinus, ir.NewInt(l.ids, int64(q)), l.cellRef(startB))
			aligned := ir.NewOper(l.ids, ir.OpAnd,
				ir.NewOper(l.ids, ir.OpEq, offA, offB),
				ir.NewOper(l.ids, ir.OpGe, ir.NewInt(l.ids, int64(p)), l.cellRef(startA)),
				ir.NewOper(l.ids, ir.OpLt, ir.NewInt(l.ids, int64(p)), l.cellRef(endA)))
			guarded, err := l.materialize(ir.NewOper(l.ids, ir.OpImplies, aligned, elemEq))
			if err != nil {
				return err
			}
			parts = append(parts, guarded)
		}
	}

	iff := ir.NewOper(l.ids, ir.OpIff, l.nativeEq(a, b),
		ir.NewOper(l.ids, ir.OpAnd, parts...))
	if err := l.gw.AssertGround(iff); err != nil {
		return err
	}
	l.cache.Put(a.ID(), b.ID(), EntryNative, 0)
	return nil
}

// cacheCrossPairs caches equalities for all comparable cross pairs of two
// element lists.
func (l *LazyEquality) cacheCrossPairs(left, right []arena.CellID) error {
	for _, le := range left {
		for _, re := range right {
			ca := l.mustCell(le)
			cb := l.mustCell(re)
			atp := ca.Type()
			btp := cb.Type()
			if !types.Comparable(&atp, &btp) {
				continue
			}
			if err := l.CacheEq(ca, cb); err != nil {
				return err
			}
		}
	}
	return nil
}

// materialize allocates a fresh boolean cell equivalent to the expression,
// unless the expression is already a literal or a cell reference.
func (l *LazyEquality) materialize(ex *ir.Expr) (*ir.Expr, error) {
	if ex.Kind == ir.KindBool || ex.Kind == ir.KindCell {
		return ex, nil
	}
	if ex.Kind == ir.KindOper && len(ex.Args) == 0 {
		switch ex.Op {
		case ir.OpAnd:
			return ir.NewBool(l.ids, true), nil
		case ir.OpOr:
			return ir.NewBool(l.ids, false), nil
		}
	}
	pred, err := l.materializeForce(ex)
	if err != nil {
		return nil, err
	}
	return l.cellRef(pred), nil
}

// materializeForce always allocates the boolean cell, even for constant
// expressions, and returns its id.
func (l *LazyEquality) materializeForce(ex *ir.Expr) (arena.CellID, error) {
	pred := l.arena.AllocCell(types.NewBoolType())
	l.gw.DeclareCell(pred)
	iff := ir.NewOper(l.ids, ir.OpIff, l.cellRef(pred.ID()), ex)
	if err := l.gw.AssertGround(iff); err != nil {
		return 0, err
	}
	return pred.ID(), nil
}

// entryExpr turns a cache entry into the boolean term for the pair.
func (l *LazyEquality) entryExpr(a, b arena.Cell, entry Entry) *ir.Expr {
	switch entry.Kind {
	case EntryTrue:
		return ir.NewBool(l.ids, true)
	case EntryFalse:
		return ir.NewBool(l.ids, false)
	case EntryExpr:
		return l.cellRef(entry.Pred)
	default:
		return l.nativeEq(a, b)
	}
}

// nativeEq builds the native SMT equality term over the cell constants.
func (l *LazyEquality) nativeEq(a, b arena.Cell) *ir.Expr {
	return ir.NewOper(l.ids, ir.OpEq, l.cellRef(a.ID()), l.cellRef(b.ID()))
}

// inExpr builds the membership term for a has edge, declaring the predicate
// constant on first use.
func (l *LazyEquality) inExpr(set, elem arena.CellID) *ir.Expr {
	l.gw.DeclareInPred(set, elem)
	return ir.NewOper(l.ids, ir.OpIn, l.cellRef(elem), l.cellRef(set))
}

func (l *LazyEquality) cellRef(id arena.CellID) *ir.Expr {
	return ir.NewCellRef(l.ids, int(id))
}

func (l *LazyEquality) mustCell(id arena.CellID) arena.Cell {
	c, _ := l.arena.CellOf(id)
	return c
}

// staticallyEmpty reports whether the cell is the statically empty set
// constant: a finite set with the unknown element type and no has edges.
func (l *LazyEquality) staticallyEmpty(c arena.Cell) bool {
	tp := c.Type()
	return tp.Kind == types.KindFinSet && tp.Elem.IsUnknown() && len(l.arena.Has(c.ID())) == 0
}

// fieldIndex returns the position of a field in a record schema, or -1.
func fieldIndex(tp *types.CellType, name string) int {
	for i, fn := range tp.FieldOrder {
		if fn == name {
			return i
		}
	}
	return -1
}

// recordField returns the value cell at a schema index together with the
// corresponding key cell in the record's domain.
func (l *LazyEquality) recordField(rec arena.Cell, dom arena.CellID, idx int) (arena.Cell, arena.Cell, error) {
	values := l.arena.Has(rec.ID())
	keys := l.arena.Has(dom)
	if idx >= len(values) || idx >= len(keys) {
		return arena.Cell{}, arena.Cell{}, verr.ErrCellShape(int(rec.ID()), "record instance is shorter than its schema")
	}
	return l.mustCell(values[idx]), l.mustCell(keys[idx]), nil
}
