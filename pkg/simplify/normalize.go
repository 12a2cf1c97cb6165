// Package simplify normalizes IR formulas before transition extraction.
package simplify

import (
	"github.com/vhavlena/veritla/pkg/ir"
)

// Normalizer rebuilds conjunction/disjunction skeletons: nested connectives
// are flattened, neutral literals dropped, and dominating literals collapse
// their node. Leaves are shared, never copied, so candidate node ids
// survive normalization.
type Normalizer struct {
	ids *ir.IdGen
}

// NewNormalizer creates a normalizer allocating rebuilt nodes from the
// given generator.
func NewNormalizer(ids *ir.IdGen) *Normalizer {
	return &Normalizer{ids: ids}
}

// Normalize flattens the ∧/∨ skeleton of the formula.
//
// Parameters:
//
//	ex *ir.Expr: The formula to normalize.
//
// Returns:
//
//	*ir.Expr: The normalized formula; sub-expressions outside the skeleton
//	are shared with the input.
func (n *Normalizer) Normalize(ex *ir.Expr) *ir.Expr {
	if !ex.IsOper(ir.OpAnd) && !ex.IsOper(ir.OpOr) {
		return ex
	}
	conj := ex.IsOper(ir.OpAnd)
	flat := make([]*ir.Expr, 0, len(ex.Args))
	for _, a := range ex.Args {
		na := n.Normalize(a)
		switch {
		case na.IsBoolLit(conj):
			continue
		case na.IsBoolLit(!conj):
			return ir.NewBool(n.ids, !conj)
		case na.IsOper(ex.Op):
			flat = append(flat, na.Args...)
		default:
			flat = append(flat, na)
		}
	}
	switch len(flat) {
	case 0:
		return ir.NewBool(n.ids, conj)
	case 1:
		return flat[0]
	}
	return ir.NewOper(n.ids, ex.Op, flat...)
}

// Disjuncts pushes disjunctions outward where they dominate conjunctions
// and returns the resulting top-level disjuncts. A formula without a
// disjunctive top is its own single disjunct.
//
// Parameters:
//
//	ex *ir.Expr: The next-state formula.
//
// Returns:
//
//	[]*ir.Expr: The maximal disjuncts.
func (n *Normalizer) Disjuncts(ex *ir.Expr) []*ir.Expr {
	pushed := n.pushOut(n.Normalize(ex))
	if pushed.IsOper(ir.OpOr) {
		return pushed.Args
	}
	return []*ir.Expr{pushed}
}

// pushOut distributes one conjunction over its first disjunctive child and
// recurses until the top is disjunction-free or a disjunction of such
// formulas.
func (n *Normalizer) pushOut(ex *ir.Expr) *ir.Expr {
	if ex.IsOper(ir.OpOr) {
		kids := make([]*ir.Expr, 0, len(ex.Args))
		for _, a := range ex.Args {
			kids = append(kids, n.pushOut(a))
		}
		return n.Normalize(ir.NewOper(n.ids, ir.OpOr, kids...))
	}
	if !ex.IsOper(ir.OpAnd) {
		return ex
	}
	orIdx := -1
	for i, a := range ex.Args {
		if a.IsOper(ir.OpOr) {
			orIdx = i
			break
		}
	}
	if orIdx < 0 {
		return ex
	}
	rest := make([]*ir.Expr, 0, len(ex.Args)-1)
	rest = append(rest, ex.Args[:orIdx]...)
	rest = append(rest, ex.Args[orIdx+1:]...)
	branches := make([]*ir.Expr, 0, len(ex.Args[orIdx].Args))
	for _, o := range ex.Args[orIdx].Args {
		conj := make([]*ir.Expr, 0, len(rest)+1)
		conj = append(conj, rest...)
		conj = append(conj, o)
		branches = append(branches, n.pushOut(n.Normalize(ir.NewOper(n.ids, ir.OpAnd, conj...))))
	}
	return n.Normalize(ir.NewOper(n.ids, ir.OpOr, branches...))
}
