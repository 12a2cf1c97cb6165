// Package trans splits the next-state relation into the ordered symbolic
// transitions that the rewriter executes.
package trans

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/vhavlena/veritla/pkg/assign"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/simplify"
)

// Transition is one maximal disjunct of the next-state relation paired with
// its assignment strategy.
type Transition struct {
	Name     string
	Ex       *ir.Expr
	Strategy assign.Strategy
}

// Extract enumerates the candidate transitions of the next-state formula,
// solves the assignment problem of each, and keeps those with a strategy.
// Transitions are sorted by the IR node id of their disjunct for
// determinism and named by the prefix and an index.
//
// Parameters:
//
//	prefix string: The definition-name prefix of the produced transitions.
//	next *ir.Expr: The next-state relation.
//	vars []string: The state variables every transition must assign.
//	ids *ir.IdGen: The unique-id generator capability.
//
// Returns:
//
//	[]Transition: The accepted transitions in deterministic order.
//	error: An indeterminate solver outcome.
func Extract(prefix string, next *ir.Expr, vars []string, ids *ir.IdGen) ([]Transition, error) {
	norm := simplify.NewNormalizer(ids)
	disjuncts := norm.Disjuncts(next)

	accepted := make([]Transition, 0, len(disjuncts))
	for _, d := range disjuncts {
		problem := assign.BuildProblem(d, vars)
		strategy, found, err := problem.Solve()
		if err != nil {
			return nil, err
		}
		if !found {
			log.Debugf("trans: disjunct %d has no assignment strategy, rejected", d.ID())
			continue
		}
		accepted = append(accepted, Transition{Ex: d, Strategy: strategy})
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Ex.ID() < accepted[j].Ex.ID()
	})
	for i := range accepted {
		accepted[i].Name = fmt.Sprintf("%s_%d", prefix, i)
	}
	return accepted, nil
}
