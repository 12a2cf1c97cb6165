// Package checker runs bounded verification: it unrolls the transition
// system up to a step bound, checking the invariant in every reached
// symbolic state.
package checker

import (
	log "github.com/sirupsen/logrus"

	"github.com/vhavlena/veritla/pkg/arena"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/model"
	"github.com/vhavlena/veritla/pkg/rewriter"
	"github.com/vhavlena/veritla/pkg/smt"
	"github.com/vhavlena/veritla/pkg/trans"
	"github.com/vhavlena/veritla/pkg/types"
)

// Outcome classifies the result of a bounded run.
type Outcome int

const (
	// OutcomeNoViolation means the invariant held in every state explored
	// within the bound.
	OutcomeNoViolation Outcome = iota
	// OutcomeViolation means a counterexample trace was found.
	OutcomeViolation
	// OutcomeIndeterminate means the solver answered unknown somewhere and
	// the result is not conclusive.
	OutcomeIndeterminate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeViolation:
		return "violation"
	case OutcomeIndeterminate:
		return "indeterminate"
	}
	return "no violation"
}

// Trace holds decoded states of a counterexample, keyed by state variable.
// Only the state in which the invariant is violated is decoded, so a trace
// returned by Run has exactly one entry.
type Trace []map[string]model.Value

// Checker drives the depth-first bounded exploration. The three stacks of
// the context (gateway, cache, arena) back the exploration's backtracking.
type Checker struct {
	rw       *rewriter.Rewriter
	varTypes map[string]types.CellType
	varNames []string
	ids      *ir.IdGen

	indeterminate bool
}

// New creates a checker over the gateway.
//
// Parameters:
//
//	gw smt.Gateway: The solver gateway; owned by the checker's rewriter.
//	ids *ir.IdGen: The unique-id generator capability.
//	varTypes map[string]types.CellType: The declared state variables.
//	varNames []string: The variable order used in reports.
//
// Returns:
//
//	*Checker: The configured checker.
//	error: An error from rewriter initialisation.
func New(gw smt.Gateway, ids *ir.IdGen, varTypes map[string]types.CellType, varNames []string) (*Checker, error) {
	rw, err := rewriter.New(gw, arena.New(), ids, varTypes)
	if err != nil {
		return nil, err
	}
	return &Checker{rw: rw, varTypes: varTypes, varNames: varNames, ids: ids}, nil
}

// Rewriter exposes the underlying rewriter, mainly for tests.
func (c *Checker) Rewriter() *rewriter.Rewriter {
	return c.rw
}

// Run explores the system up to the bound and reports the outcome, with a
// decoded counterexample trace on violation.
//
// Parameters:
//
//	init *ir.Expr: The initial-state formula (assigns every variable).
//	next *ir.Expr: The next-state relation.
//	inv *ir.Expr: The invariant to check; nil checks nothing.
//	bound int: The number of next-state steps to unroll.
//
// Returns:
//
//	Outcome: The verification outcome.
//	Trace: The counterexample trace when the outcome is a violation.
//	error: A fatal error from any layer.
func (c *Checker) Run(init, next, inv *ir.Expr, bound int) (Outcome, Trace, error) {
	initTrans, err := trans.Extract("Init", init, c.varNames, c.ids)
	if err != nil {
		return OutcomeIndeterminate, nil, err
	}
	if len(initTrans) == 0 {
		log.Warn("checker: no feasible initial transition, nothing to explore")
		return OutcomeNoViolation, nil, nil
	}
	nextTrans, err := trans.Extract("Next", next, c.varNames, c.ids)
	if err != nil {
		return OutcomeIndeterminate, nil, err
	}

	c.indeterminate = false
	trace, err := c.explore(initTrans, nextTrans, inv, rewriter.Binding{}, 0, bound)
	if err != nil {
		return OutcomeIndeterminate, nil, err
	}
	if trace != nil {
		return OutcomeViolation, trace, nil
	}
	if c.indeterminate {
		return OutcomeIndeterminate, nil, nil
	}
	return OutcomeNoViolation, nil, nil
}

// explore tries every transition of the current step inside its own
// context scope and recurses on the successor binding.
func (c *Checker) explore(current []trans.Transition, nextTrans []trans.Transition, inv *ir.Expr, binding rewriter.Binding, step, bound int) (Trace, error) {
	for _, t := range current {
		c.rw.ContextPush()
		trace, err := c.fireTransition(t, nextTrans, inv, binding, step, bound)
		if err != nil {
			c.rw.ContextPop()
			return nil, err
		}
		c.rw.ContextPop()
		if trace != nil {
			return trace, nil
		}
	}
	return nil, nil
}

// fireTransition rewrites one transition, checks the invariant in the
// successor state, and recurses while the bound allows.
func (c *Checker) fireTransition(t trans.Transition, nextTrans []trans.Transition, inv *ir.Expr, binding rewriter.Binding, step, bound int) (Trace, error) {
	log.Debugf("checker: step %d, firing %s", step, t.Name)
	c.rw.SetAssignments(t.Strategy.AssignmentIDs())

	state := &rewriter.SymbState{Ex: t.Ex, Arena: c.rw.Arena, Binding: binding.Copy()}
	done, err := c.rw.Rewrite(state)
	if err != nil {
		return nil, err
	}
	result, ok := done.AsCell()
	if !ok {
		return nil, verr.ErrBadIR(t.Ex.ID(), "transition did not rewrite to a cell")
	}
	if err := c.rw.Gw.AssertGround(c.rw.CellRef(result.ID())); err != nil {
		return nil, err
	}

	successor, err := c.successorBinding(done.Binding)
	if err != nil {
		return nil, err
	}

	if inv != nil {
		trace, err := c.checkInvariant(inv, successor, step)
		if err != nil {
			return nil, err
		}
		if trace != nil {
			return trace, nil
		}
	}

	if step < bound {
		return c.explore(nextTrans, nextTrans, inv, successor, step+1, bound)
	}
	return nil, nil
}

// successorBinding rolls the primed bindings of a fired transition into the
// unprimed variables of the successor state.
func (c *Checker) successorBinding(b rewriter.Binding) (rewriter.Binding, error) {
	successor := make(rewriter.Binding, len(c.varNames))
	for _, v := range c.varNames {
		cell, ok := b[rewriter.PrimedKey(v)]
		if !ok {
			return nil, verr.ErrVarUnassigned(v)
		}
		successor[v] = cell
	}
	return successor, nil
}

// checkInvariant asserts the negated invariant in its own scope and asks
// the solver for a witness.
func (c *Checker) checkInvariant(inv *ir.Expr, binding rewriter.Binding, step int) (Trace, error) {
	c.rw.ContextPush()
	defer c.rw.ContextPop()

	state := &rewriter.SymbState{Ex: inv, Arena: c.rw.Arena, Binding: binding.Copy()}
	done, err := c.rw.Rewrite(state)
	if err != nil {
		return nil, err
	}
	invCell, ok := done.AsCell()
	if !ok {
		return nil, verr.ErrBadIR(inv.ID(), "invariant did not rewrite to a cell")
	}
	neg := ir.NewOper(c.ids, ir.OpNot, c.rw.CellRef(invCell.ID()))
	if err := c.rw.Gw.AssertGround(neg); err != nil {
		return nil, err
	}

	res, err := c.rw.Gw.Sat()
	if err != nil {
		return nil, err
	}
	switch res {
	case smt.Unsat:
		return nil, nil
	case smt.Unknown:
		log.Warnf("checker: solver unknown at step %d", step)
		c.indeterminate = true
		return nil, nil
	}

	log.Infof("checker: invariant violated at step %d", step)
	return c.decodeState(binding)
}

// decodeState reads the concrete values of all state variables in the
// current model.
func (c *Checker) decodeState(binding rewriter.Binding) (Trace, error) {
	dec := model.NewDecoder(c.rw.Gw, c.rw.Arena, c.rw.StringOfCell)
	state := make(map[string]model.Value, len(c.varNames))
	for _, v := range c.varNames {
		id, ok := binding[v]
		if !ok {
			continue
		}
		cell, ok := c.rw.Arena.CellOf(id)
		if !ok {
			continue
		}
		val, err := dec.DecodeCell(cell)
		if err != nil {
			return nil, verr.ErrDecodeCell(int(id), err)
		}
		state[v] = val
	}
	return Trace{state}, nil
}
