package rewriter

import (
	"github.com/vhavlena/veritla/pkg/arena"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

// enumSetRule rewrites a set enumeration {e_1, ..., e_n}: the elements are
// rewritten, a set cell is allocated with one has edge per element, and the
// membership predicates are asserted true.
type enumSetRule struct{ rw *Rewriter }

func (r *enumSetRule) Name() string { return "EnumSet" }

func (r *enumSetRule) Applicable(s *SymbState) bool {
	return s.Ex.IsOper(ir.OpEnumSet)
}

func (r *enumSetRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	state := s
	elems := make([]arena.Cell, 0, len(s.Ex.Args))
	for _, arg := range s.Ex.Args {
		var cell arena.Cell
		var err error
		state, cell, err = rw.RewriteToCell(state, arg)
		if err != nil {
			return nil, err
		}
		elems = append(elems, cell)
	}

	setType := enumSetType(s.Ex, elems)
	set := rw.NewCell(setType)
	for _, e := range elems {
		rw.Arena.AppendHas(set.ID(), e.ID())
		if err := rw.Gw.AssertGround(rw.InExpr(set.ID(), e.ID())); err != nil {
			return nil, err
		}
	}
	return state.WithEx(rw.CellRef(set.ID())), nil
}

// enumSetType picks the set type: the annotation wins, then the first
// element's type; the empty enumeration without an annotation is the
// statically empty set constant.
func enumSetType(ex *ir.Expr, elems []arena.Cell) types.CellType {
	if ex.Tp != nil && ex.Tp.Kind == types.KindFinSet {
		return *ex.Tp
	}
	if len(elems) == 0 {
		return types.NewFinSetType(types.NewUnknownType())
	}
	return types.NewFinSetType(elems[0].Type())
}

// inRule rewrites a membership test e ∈ S over a finite set into the
// disjunction of per-element witnesses. Assignment leaves are handled by
// the assignment rule instead.
type inRule struct{ rw *Rewriter }

func (r *inRule) Name() string { return "SetIn" }

func (r *inRule) Applicable(s *SymbState) bool {
	if !s.Ex.IsOper(ir.OpIn) || len(s.Ex.Args) != 2 {
		return false
	}
	// An assignment candidate chosen by the strategy with its variable still
	// unbound belongs to the assignment rule.
	if name, ok := s.Ex.Args[0].PrimedName(); ok && r.rw.assignIDs[s.Ex.ID()] {
		if _, bound := s.Binding[PrimedKey(name)]; !bound {
			return false
		}
	}
	return true
}

func (r *inRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	state, elem, err := rw.RewriteToCell(s, s.Ex.Args[0])
	if err != nil {
		return nil, err
	}
	state, set, err := rw.RewriteToCell(state, s.Ex.Args[1])
	if err != nil {
		return nil, err
	}
	stp := set.Type()
	if stp.Kind != types.KindFinSet {
		return nil, verr.ErrBadIR(s.Ex.ID(), "membership requires a finite set, got "+stp.PrettyPrint())
	}

	p, err := rw.membershipPred(elem, set)
	if err != nil {
		return nil, err
	}
	return state.WithEx(rw.CellRef(p.ID())), nil
}

// membershipPred builds the predicate cell for elem ∈ set.
func (r *Rewriter) membershipPred(elem, set arena.Cell) (arena.Cell, error) {
	has := r.Arena.Has(set.ID())
	if len(has) == 0 {
		return r.Arena.CellFalse(), nil
	}
	terms := make([]*ir.Expr, 0, len(has))
	for _, x := range has {
		xc, _ := r.Arena.CellOf(x)
		xt := xc.Type()
		et := elem.Type()
		if elem.ID() != xc.ID() && !types.Comparable(&et, &xt) {
			continue
		}
		if err := r.Eq.CacheEq(elem, xc); err != nil {
			return arena.Cell{}, err
		}
		eqEx, err := r.Eq.CachedEq(elem, xc)
		if err != nil {
			return arena.Cell{}, err
		}
		terms = append(terms, ir.NewOper(r.ids, ir.OpAnd, r.InExpr(set.ID(), x), eqEx))
	}
	if len(terms) == 0 {
		return r.Arena.CellFalse(), nil
	}
	return r.predOf(ir.NewOper(r.ids, ir.OpOr, terms...))
}
