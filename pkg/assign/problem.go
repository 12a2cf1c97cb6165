// Package assign implements the assignment-strategy solver: it analyses the
// next-state formula, identifies the candidate assignments v' ∈ B, and uses
// an SMT instance to select an ordering that makes the remaining expression
// evaluable by symbolic rewriting.
package assign

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/vhavlena/veritla/pkg/ir"
)

// Candidate is an assignment candidate: an IR leaf of the form v' ∈ B,
// identified by its unique node id.
type Candidate struct {
	// ID is the unique id of the membership node.
	ID int
	// Var is the assigned variable (the left-hand side without the prime).
	Var string
	// Rhs is the right-hand side set expression.
	Rhs *ir.Expr
	// Node is the whole membership leaf.
	Node *ir.Expr
}

// Strategy is an ordered subset of candidates covering every state variable
// once, consistent with the data dependencies.
type Strategy []Candidate

// AssignmentIDs returns the IR node ids of the chosen candidates, in
// strategy order.
func (s Strategy) AssignmentIDs() []int {
	out := make([]int, len(s))
	for i, c := range s {
		out[i] = c.ID
	}
	return out
}

// deltaKind discriminates nodes of the coverage formula δ_v.
type deltaKind int

const (
	deltaFalse deltaKind = iota
	deltaVar
	deltaAnd
	deltaOr
)

// deltaForm is the eagerly simplified boolean formula over the candidate
// booleans A_i that expresses "variable v is assigned along every branch".
type deltaForm struct {
	kind deltaKind
	cand int // candidate id for deltaVar
	kids []*deltaForm
}

func deltaFalseForm() *deltaForm {
	return &deltaForm{kind: deltaFalse}
}

func deltaVarForm(cand int) *deltaForm {
	return &deltaForm{kind: deltaVar, cand: cand}
}

// deltaConj builds the conjunction; a false child collapses the whole node.
func deltaConj(kids []*deltaForm) *deltaForm {
	flat := make([]*deltaForm, 0, len(kids))
	for _, k := range kids {
		if k.kind == deltaFalse {
			return deltaFalseForm()
		}
		if k.kind == deltaAnd {
			flat = append(flat, k.kids...)
			continue
		}
		flat = append(flat, k)
	}
	switch len(flat) {
	case 0:
		// Conjunction over no branches holds vacuously; the caller treats it
		// as no obligation.
		return &deltaForm{kind: deltaAnd}
	case 1:
		return flat[0]
	}
	return &deltaForm{kind: deltaAnd, kids: flat}
}

// deltaDisj builds the disjunction, dropping false children.
func deltaDisj(kids []*deltaForm) *deltaForm {
	flat := make([]*deltaForm, 0, len(kids))
	for _, k := range kids {
		if k.kind == deltaFalse {
			continue
		}
		if k.kind == deltaOr {
			flat = append(flat, k.kids...)
			continue
		}
		flat = append(flat, k)
	}
	switch len(flat) {
	case 0:
		return deltaFalseForm()
	case 1:
		return flat[0]
	}
	return &deltaForm{kind: deltaOr, kids: flat}
}

// isFalse reports whether the formula is the constant false.
func (f *deltaForm) isFalse() bool {
	return f.kind == deltaFalse
}

// Problem is the encoded assignment problem of one transition candidate.
type Problem struct {
	// Vars lists the state variables, each of which must be assigned.
	Vars []string
	// Cands lists the candidates in formula order.
	Cands []Candidate

	delta map[string]*deltaForm
	// deps lists the dependent unordered candidate pairs as indices into
	// Cands: pairs whose nearest common ancestor in the formula is not a
	// disjunction.
	deps [][2]int
}

// BuildProblem analyses the next-state formula in one pass: it collects the
// candidates, computes the coverage formula δ_v for every state variable
// (conjunction and disjunction switch roles: along every disjunctive branch
// the assignment must appear, while any conjunctive branch suffices), and
// derives the dependent candidate pairs.
//
// Parameters:
//
//	next *ir.Expr: The next-state formula of one transition candidate.
//	vars []string: The state variables to cover.
//
// Returns:
//
//	*Problem: The encoded assignment problem.
func BuildProblem(next *ir.Expr, vars []string) *Problem {
	p := &Problem{
		Vars:  vars,
		delta: make(map[string]*deltaForm, len(vars)),
	}
	p.collect(next)

	for _, v := range vars {
		p.delta[v] = p.deltaOf(next, v)
	}
	p.dependencies(next)
	return p
}

// collect gathers the candidates under the ∧/∨ skeleton in formula order.
func (p *Problem) collect(ex *ir.Expr) {
	if ex.IsOper(ir.OpAnd) || ex.IsOper(ir.OpOr) {
		for _, a := range ex.Args {
			p.collect(a)
		}
		return
	}
	if name, rhs, ok := candidateLeaf(ex); ok {
		p.Cands = append(p.Cands, Candidate{ID: ex.ID(), Var: name, Rhs: rhs, Node: ex})
	}
}

// candidateLeaf matches the shape v' ∈ B.
func candidateLeaf(ex *ir.Expr) (string, *ir.Expr, bool) {
	if !ex.IsOper(ir.OpIn) || len(ex.Args) != 2 {
		return "", nil, false
	}
	name, ok := ex.Args[0].PrimedName()
	if !ok {
		return "", nil, false
	}
	return name, ex.Args[1], true
}

// deltaOf computes δ_v by structural recursion with eager simplification.
func (p *Problem) deltaOf(ex *ir.Expr, v string) *deltaForm {
	if ex.IsOper(ir.OpAnd) {
		kids := make([]*deltaForm, 0, len(ex.Args))
		for _, a := range ex.Args {
			kids = append(kids, p.deltaOf(a, v))
		}
		return deltaDisj(kids)
	}
	if ex.IsOper(ir.OpOr) {
		kids := make([]*deltaForm, 0, len(ex.Args))
		for _, a := range ex.Args {
			kids = append(kids, p.deltaOf(a, v))
		}
		return deltaConj(kids)
	}
	if name, _, ok := candidateLeaf(ex); ok && name == v {
		return deltaVarForm(ex.ID())
	}
	return deltaFalseForm()
}

// dependencies annotates the formula bottom-up with candidate index sets
// and records the cross pairs whose nearest common ancestor is a
// conjunction; pairs meeting at a disjunction are independent.
func (p *Problem) dependencies(ex *ir.Expr) *bitset.BitSet {
	indexOf := make(map[int]uint, len(p.Cands))
	for i, c := range p.Cands {
		indexOf[c.ID] = uint(i)
	}
	return p.depRec(ex, indexOf)
}

func (p *Problem) depRec(ex *ir.Expr, indexOf map[int]uint) *bitset.BitSet {
	set := bitset.New(uint(len(p.Cands)))
	if ex.IsOper(ir.OpAnd) || ex.IsOper(ir.OpOr) {
		childSets := make([]*bitset.BitSet, 0, len(ex.Args))
		for _, a := range ex.Args {
			childSets = append(childSets, p.depRec(a, indexOf))
		}
		dependent := ex.IsOper(ir.OpAnd)
		for i := 0; i < len(childSets); i++ {
			for j := i + 1; j < len(childSets); j++ {
				if dependent {
					p.crossPairs(childSets[i], childSets[j])
				}
			}
			set.InPlaceUnion(childSets[i])
		}
		return set
	}
	if idx, ok := indexOf[ex.ID()]; ok {
		set.Set(idx)
	}
	return set
}

// crossPairs records every pair between two candidate index sets as
// dependent.
func (p *Problem) crossPairs(left, right *bitset.BitSet) {
	for i, ok := left.NextSet(0); ok; i, ok = left.NextSet(i + 1) {
		for j, ok2 := right.NextSet(0); ok2; j, ok2 = right.NextSet(j + 1) {
			a, b := int(i), int(j)
			if a > b {
				a, b = b, a
			}
			p.deps = append(p.deps, [2]int{a, b})
		}
	}
}

// Dependent returns the dependent unordered candidate index pairs.
func (p *Problem) Dependent() [][2]int {
	return p.deps
}

// Uncoverable reports whether some state variable has the constant-false
// coverage formula, which makes the whole problem unsatisfiable without
// consulting any solver.
func (p *Problem) Uncoverable() (string, bool) {
	for _, v := range p.Vars {
		if p.delta[v].isFalse() {
			return v, true
		}
	}
	return "", false
}
