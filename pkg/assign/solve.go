package assign

import (
	"fmt"
	"sort"

	"github.com/go-air/gini"
	giniz "github.com/go-air/gini/z"
	log "github.com/sirupsen/logrus"
	z3 "github.com/vhavlena/z3-go/z3"

	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
)

// Precheck decides the propositional fragment of the problem — coverage and
// uniqueness — with a SAT solver. A negative answer already rejects the
// transition and saves the SMT call; a positive answer says nothing about
// the ordering constraints.
//
// Returns:
//
//	bool: False when the propositional fragment is unsatisfiable.
func (p *Problem) Precheck() bool {
	if _, bad := p.Uncoverable(); bad {
		return false
	}

	g := gini.New()
	enc := &cnfEncoder{g: g, next: giniz.Var(len(p.Cands) + 1)}
	indexOf := make(map[int]int, len(p.Cands))
	for i, c := range p.Cands {
		indexOf[c.ID] = i
	}

	for _, v := range p.Vars {
		top := enc.encode(p.delta[v], indexOf)
		g.Add(top)
		g.Add(giniz.LitNull)
	}
	for _, dep := range p.deps {
		ci, cj := p.Cands[dep[0]], p.Cands[dep[1]]
		if ci.Var != cj.Var {
			continue
		}
		g.Add(candLit(dep[0]).Not())
		g.Add(candLit(dep[1]).Not())
		g.Add(giniz.LitNull)
	}
	return g.Solve() != -1
}

// cnfEncoder performs a positive-polarity Tseitin encoding of the monotone
// coverage formulas.
type cnfEncoder struct {
	g        *gini.Gini
	next     giniz.Var
	falseLit giniz.Lit
}

func candLit(index int) giniz.Lit {
	return giniz.Var(index + 1).Pos()
}

func (e *cnfEncoder) fresh() giniz.Lit {
	lit := e.next.Pos()
	e.next++
	return lit
}

func (e *cnfEncoder) constFalse() giniz.Lit {
	if e.falseLit == 0 {
		e.falseLit = e.fresh()
		e.g.Add(e.falseLit.Not())
		e.g.Add(giniz.LitNull)
	}
	return e.falseLit
}

func (e *cnfEncoder) encode(f *deltaForm, indexOf map[int]int) giniz.Lit {
	switch f.kind {
	case deltaVar:
		return candLit(indexOf[f.cand])
	case deltaFalse:
		return e.constFalse()
	case deltaAnd:
		if len(f.kids) == 0 {
			return e.constFalse().Not()
		}
		v := e.fresh()
		for _, k := range f.kids {
			e.g.Add(v.Not())
			e.g.Add(e.encode(k, indexOf))
			e.g.Add(giniz.LitNull)
		}
		return v
	default:
		if len(f.kids) == 0 {
			return e.constFalse()
		}
		v := e.fresh()
		e.g.Add(v.Not())
		for _, k := range f.kids {
			e.g.Add(e.encode(k, indexOf))
		}
		e.g.Add(giniz.LitNull)
		return v
	}
}

// Solve decides the full assignment problem. The SMT-LIB text emitted by
// SmtProblem declares the ranking as an uninterpreted function R over the
// candidate ids; for native solving the applications R(i), which occur only
// at distinct literals, are mirrored by integer constants so the model can
// be read back by name.
//
// Returns:
//
//	Strategy: The chosen candidates ordered by increasing rank, when found.
//	bool: True when a strategy exists; false reports a rejection.
//	error: An indeterminate solver outcome or a binding failure.
func (p *Problem) Solve() (Strategy, bool, error) {
	if _, bad := p.Uncoverable(); bad {
		return nil, false, nil
	}
	if !p.Precheck() {
		log.Debugf("assign: propositional pre-check rejected the transition")
		return nil, false, nil
	}

	ctx := z3.NewContext(nil)
	defer ctx.Close()
	solver := ctx.NewSolver()
	defer solver.Close()

	aConsts := make(map[int]z3.AST, len(p.Cands))
	rConsts := make(map[int]z3.AST, len(p.Cands))
	for _, c := range p.Cands {
		aConsts[c.ID] = ctx.Const(candName(c.ID), ctx.BoolSort())
		rConsts[c.ID] = ctx.Const(fmt.Sprintf("R_%d", c.ID), ctx.IntSort())
	}

	// Coverage.
	for _, v := range p.Vars {
		solver.Assert(deltaAST(ctx, aConsts, p.delta[v]))
	}
	// Ordering respects data dependency, unconditionally: dependent leaves
	// are rewritten along the same branch whether chosen or not.
	for _, dep := range p.deps {
		for _, ord := range [][2]int{dep, {dep[1], dep[0]}} {
			ci, cj := p.Cands[ord[0]], p.Cands[ord[1]]
			if _, uses := ir.PrimedNames(cj.Rhs)[ci.Var]; !uses {
				continue
			}
			solver.Assert(z3.Lt(rConsts[ci.ID], rConsts[cj.ID]))
		}
	}
	// Injectivity of the ranking.
	if len(p.Cands) >= 2 {
		ranks := make([]z3.AST, 0, len(p.Cands))
		for _, c := range p.Cands {
			ranks = append(ranks, rConsts[c.ID])
		}
		solver.Assert(z3.Distinct(ranks...))
	}
	// Uniqueness per variable within a dependent path.
	for _, dep := range p.deps {
		ci, cj := p.Cands[dep[0]], p.Cands[dep[1]]
		if ci.Var != cj.Var {
			continue
		}
		solver.Assert(z3.And(aConsts[ci.ID], aConsts[cj.ID]).Not())
	}

	res, err := solver.Check()
	switch res {
	case z3.Unsat:
		return nil, false, nil
	case z3.Unknown:
		return nil, false, fmt.Errorf("%w: %v", verr.ErrSolverUnknown, err)
	}

	model := solver.Model()
	defer model.Close()

	type ranked struct {
		cand Candidate
		rank int64
	}
	chosen := make([]ranked, 0, len(p.Cands))
	for _, c := range p.Cands {
		av := model.Eval(aConsts[c.ID], true)
		taken, ok := av.BoolValue()
		if !ok || !taken {
			continue
		}
		rv := model.Eval(rConsts[c.ID], true)
		rank, ok := rv.AsInt64()
		if !ok {
			return nil, false, fmt.Errorf("%w: rank of candidate %d", verr.ErrNoModel, c.ID)
		}
		chosen = append(chosen, ranked{cand: c, rank: rank})
	}
	sort.Slice(chosen, func(i, j int) bool { return chosen[i].rank < chosen[j].rank })

	strategy := make(Strategy, 0, len(chosen))
	for _, r := range chosen {
		strategy = append(strategy, r.cand)
	}
	log.Debugf("assign: strategy of %d assignments found", len(strategy))
	return strategy, true, nil
}

// deltaAST builds the native AST of a coverage formula.
func deltaAST(ctx *z3.Context, aConsts map[int]z3.AST, f *deltaForm) z3.AST {
	switch f.kind {
	case deltaVar:
		return aConsts[f.cand]
	case deltaFalse:
		return ctx.BoolVal(false)
	case deltaAnd:
		if len(f.kids) == 0 {
			return ctx.BoolVal(true)
		}
		kids := make([]z3.AST, 0, len(f.kids))
		for _, k := range f.kids {
			kids = append(kids, deltaAST(ctx, aConsts, k))
		}
		return z3.And(kids...)
	default:
		if len(f.kids) == 0 {
			return ctx.BoolVal(false)
		}
		kids := make([]z3.AST, 0, len(f.kids))
		for _, k := range f.kids {
			kids = append(kids, deltaAST(ctx, aConsts, k))
		}
		return z3.Or(kids...)
	}
}
