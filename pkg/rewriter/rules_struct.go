package rewriter

import (
	"github.com/vhavlena/veritla/pkg/arena"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

// tupleRule rewrites a tuple constructor ⟨e_1, ..., e_n⟩ into a tuple cell
// with one has edge per component.
type tupleRule struct{ rw *Rewriter }

func (r *tupleRule) Name() string { return "TupleCtor" }

func (r *tupleRule) Applicable(s *SymbState) bool {
	return s.Ex.IsOper(ir.OpTuple)
}

func (r *tupleRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	state := s
	comps := make([]arena.Cell, 0, len(s.Ex.Args))
	compTypes := make([]types.CellType, 0, len(s.Ex.Args))
	for _, arg := range s.Ex.Args {
		var cell arena.Cell
		var err error
		state, cell, err = rw.RewriteToCell(state, arg)
		if err != nil {
			return nil, err
		}
		comps = append(comps, cell)
		compTypes = append(compTypes, cell.Type())
	}

	tp := types.NewTupleType(compTypes)
	if s.Ex.Tp != nil && s.Ex.Tp.Kind == types.KindTuple {
		tp = *s.Ex.Tp
	}
	tuple := rw.NewCell(tp)
	for _, c := range comps {
		rw.Arena.AppendHas(tuple.ID(), c.ID())
	}
	return state.WithEx(rw.CellRef(tuple.ID())), nil
}

// recordRule rewrites a record constructor [f_1 ↦ e_1, ...]. The argument
// list alternates string-literal keys and value expressions. The key cells
// form the record's domain set; the value cells are the record's has edges
// in schema field order.
type recordRule struct{ rw *Rewriter }

func (r *recordRule) Name() string { return "RecordCtor" }

func (r *recordRule) Applicable(s *SymbState) bool {
	return s.Ex.IsOper(ir.OpRecord)
}

func (r *recordRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	if len(s.Ex.Args)%2 != 0 {
		return nil, verr.ErrBadIR(s.Ex.ID(), "record constructor requires alternating keys and values")
	}

	state := s
	valueOf := make(map[string]arena.Cell, len(s.Ex.Args)/2)
	fieldTypes := make(map[string]types.CellType, len(s.Ex.Args)/2)
	for i := 0; i < len(s.Ex.Args); i += 2 {
		keyEx := s.Ex.Args[i]
		if keyEx.Kind != ir.KindStr {
			return nil, verr.ErrBadIR(keyEx.ID(), "record field name must be a string literal")
		}
		var cell arena.Cell
		var err error
		state, cell, err = rw.RewriteToCell(state, s.Ex.Args[i+1])
		if err != nil {
			return nil, err
		}
		valueOf[keyEx.StrVal] = cell
		fieldTypes[keyEx.StrVal] = cell.Type()
	}

	tp := types.NewRecordType(fieldTypes)
	if s.Ex.Tp != nil && s.Ex.Tp.Kind == types.KindRecord {
		tp = *s.Ex.Tp
	}

	dom := rw.NewCell(types.NewFinSetType(types.NewStrType()))
	rec := rw.NewCell(tp)
	for _, name := range tp.FieldOrder {
		value, ok := valueOf[name]
		if !ok {
			return nil, verr.ErrBadIR(s.Ex.ID(), "record constructor misses field "+name)
		}
		key := rw.strConst(name)
		rw.Arena.AppendHas(dom.ID(), key.ID())
		if err := rw.Gw.AssertGround(rw.InExpr(dom.ID(), key.ID())); err != nil {
			return nil, err
		}
		rw.Arena.AppendHas(rec.ID(), value.ID())
	}
	rw.Arena.SetDom(rec.ID(), dom.ID())
	return state.WithEx(rw.CellRef(rec.ID())), nil
}

// seqRule rewrites a sequence constructor ⟨⟨e_1, ..., e_n⟩⟩ into the
// [start, end, x_0, ..., x_{n-1}] layout with the half-open window [0, n).
type seqRule struct{ rw *Rewriter }

func (r *seqRule) Name() string { return "SeqCtor" }

func (r *seqRule) Applicable(s *SymbState) bool {
	return s.Ex.IsOper(ir.OpSeq)
}

func (r *seqRule) Apply(s *SymbState) (*SymbState, error) {
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

	elemType := types.NewUnknownType()
	if s.Ex.Tp != nil && s.Ex.Tp.Kind == types.KindSeq {
		elemType = *s.Ex.Tp.Elem
	} else if len(elems) > 0 {
		elemType = elems[0].Type()
	}

	seq := rw.NewCell(types.NewSeqType(elemType))
	start := rw.intConst(0)
	end := rw.intConst(int64(len(elems)))
	rw.Arena.AppendHas(seq.ID(), start.ID())
	rw.Arena.AppendHas(seq.ID(), end.ID())
	for _, e := range elems {
		rw.Arena.AppendHas(seq.ID(), e.ID())
	}
	return state.WithEx(rw.CellRef(seq.ID())), nil
}

// funCtorRule rewrites a function constructor [x ∈ S ↦ e]: the relation
// set pairs every domain element with the rewritten body, and the function
// cell links the domain and the relation.
type funCtorRule struct{ rw *Rewriter }

func (r *funCtorRule) Name() string { return "FunCtor" }

func (r *funCtorRule) Applicable(s *SymbState) bool {
	return s.Ex.IsOper(ir.OpFunCtor)
}

func (r *funCtorRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	if len(s.Ex.Args) != 3 || s.Ex.Args[0].Kind != ir.KindName {
		return nil, verr.ErrBadIR(s.Ex.ID(), "function constructor requires a bound name, a set, and a body")
	}
	bound := s.Ex.Args[0].Name

	state, set, err := rw.RewriteToCell(s, s.Ex.Args[1])
	if err != nil {
		return nil, err
	}
	stp := set.Type()
	if stp.Kind != types.KindFinSet {
		return nil, verr.ErrBadIR(s.Ex.ID(), "function constructor requires a finite domain set")
	}

	argType := *stp.Elem
	resType := types.NewUnknownType()
	pairs := make([]arena.Cell, 0, len(rw.Arena.Has(set.ID())))
	for _, x := range rw.Arena.Has(set.ID()) {
		inner := &SymbState{Ex: s.Ex.Args[2], Arena: state.Arena, Binding: state.Binding.Copy()}
		inner.Binding[bound] = x
		done, err := rw.Rewrite(inner)
		if err != nil {
			return nil, err
		}
		y, ok := done.AsCell()
		if !ok {
			return nil, verr.ErrBadIR(s.Ex.Args[2].ID(), "function body did not rewrite to a cell")
		}
		if resType.IsUnknown() {
			resType = y.Type()
		}
		pair := rw.NewCell(types.NewTupleType([]types.CellType{argType, y.Type()}))
		rw.Arena.AppendHas(pair.ID(), x)
		rw.Arena.AppendHas(pair.ID(), y.ID())
		pairs = append(pairs, pair)
	}

	rel := rw.NewCell(types.NewFinSetType(types.NewTupleType([]types.CellType{argType, resType})))
	for _, pair := range pairs {
		rw.Arena.AppendHas(rel.ID(), pair.ID())
		if err := rw.Gw.AssertGround(rw.InExpr(rel.ID(), pair.ID())); err != nil {
			return nil, err
		}
	}

	fun := rw.NewCell(types.NewFunType(argType, resType))
	rw.Arena.SetDom(fun.ID(), set.ID())
	rw.Arena.SetCdm(fun.ID(), rel.ID())
	return state.WithEx(rw.CellRef(fun.ID())), nil
}

// domainRule rewrites DOMAIN f to the function's domain cell.
type domainRule struct{ rw *Rewriter }

func (r *domainRule) Name() string { return "Domain" }

func (r *domainRule) Applicable(s *SymbState) bool {
	return s.Ex.IsOper(ir.OpDomain)
}

func (r *domainRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	state, fun, err := rw.RewriteToCell(s, s.Ex.Args[0])
	if err != nil {
		return nil, err
	}
	dom, ok := rw.Arena.Dom(fun.ID())
	if !ok {
		return nil, verr.ErrCellShape(int(fun.ID()), "cell has no domain edge")
	}
	return state.WithEx(rw.CellRef(dom)), nil
}
