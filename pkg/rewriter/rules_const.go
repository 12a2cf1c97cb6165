package rewriter

import (
	"github.com/vhavlena/veritla/pkg/arena"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

// predOf turns a boolean IR expression into a boolean cell: literals map to
// the distinguished cells, cell references pass through, and everything
// else is materialised as a fresh cell with an equivalence assertion.
func (r *Rewriter) predOf(ex *ir.Expr) (arena.Cell, error) {
	switch ex.Kind {
	case ir.KindBool:
		if ex.BoolVal {
			return r.Arena.CellTrue(), nil
		}
		return r.Arena.CellFalse(), nil
	case ir.KindCell:
		c, ok := r.Arena.CellOf(arena.CellID(ex.Cell))
		if !ok {
			return arena.Cell{}, verr.ErrBadIR(ex.ID(), "dangling cell reference")
		}
		return c, nil
	}
	p := r.NewCell(types.NewBoolType())
	iff := ir.NewOper(r.ids, ir.OpIff, r.CellRef(p.ID()), ex)
	if err := r.Gw.AssertGround(iff); err != nil {
		return arena.Cell{}, err
	}
	return p, nil
}

// boolConstRule rewrites boolean literals to the distinguished cells.
type boolConstRule struct{ rw *Rewriter }

func (r *boolConstRule) Name() string { return "BoolConst" }

func (r *boolConstRule) Applicable(s *SymbState) bool {
	return s.Ex.Kind == ir.KindBool
}

func (r *boolConstRule) Apply(s *SymbState) (*SymbState, error) {
	c := r.rw.Arena.CellFalse()
	if s.Ex.BoolVal {
		c = r.rw.Arena.CellTrue()
	}
	return s.WithEx(r.rw.CellRef(c.ID())), nil
}

// intConstRule rewrites integer literals to interned constant cells.
type intConstRule struct{ rw *Rewriter }

func (r *intConstRule) Name() string { return "IntConst" }

func (r *intConstRule) Applicable(s *SymbState) bool {
	return s.Ex.Kind == ir.KindInt
}

func (r *intConstRule) Apply(s *SymbState) (*SymbState, error) {
	c := r.rw.intConst(s.Ex.IntVal)
	return s.WithEx(r.rw.CellRef(c.ID())), nil
}

// strConstRule rewrites string literals to interned constant cells of the
// uninterpreted string sort.
type strConstRule struct{ rw *Rewriter }

func (r *strConstRule) Name() string { return "StrConst" }

func (r *strConstRule) Applicable(s *SymbState) bool {
	return s.Ex.Kind == ir.KindStr
}

func (r *strConstRule) Apply(s *SymbState) (*SymbState, error) {
	c := r.rw.strConst(s.Ex.StrVal)
	return s.WithEx(r.rw.CellRef(c.ID())), nil
}

// nameRule substitutes a bound name with its cell.
type nameRule struct{ rw *Rewriter }

func (r *nameRule) Name() string { return "Subst" }

func (r *nameRule) Applicable(s *SymbState) bool {
	return s.Ex.Kind == ir.KindName
}

func (r *nameRule) Apply(s *SymbState) (*SymbState, error) {
	id, ok := s.Binding[s.Ex.Name]
	if !ok {
		return nil, verr.ErrName(s.Ex.Name)
	}
	return s.WithEx(r.rw.CellRef(id)), nil
}

// primeRule substitutes a primed variable with the cell bound for its
// next-state value.
type primeRule struct{ rw *Rewriter }

func (r *primeRule) Name() string { return "SubstPrime" }

func (r *primeRule) Applicable(s *SymbState) bool {
	_, ok := s.Ex.PrimedName()
	return ok
}

func (r *primeRule) Apply(s *SymbState) (*SymbState, error) {
	name, _ := s.Ex.PrimedName()
	id, ok := s.Binding[PrimedKey(name)]
	if !ok {
		return nil, verr.ErrName(PrimedKey(name))
	}
	return s.WithEx(r.rw.CellRef(id)), nil
}
