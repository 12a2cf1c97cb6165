// Package smt provides the gateway to the SMT solver: cell and membership
// predicate declarations, assertion of ground IR expressions, the push/pop
// scope stack, satisfiability checks, and model access.
package smt

import (
	"fmt"

	"github.com/vhavlena/veritla/pkg/arena"
	"github.com/vhavlena/veritla/pkg/ir"
)

// Result is the outcome of a satisfiability check.
type Result int

const (
	Unknown Result = iota
	Sat
	Unsat
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	}
	return "unknown"
}

// Gateway hides the underlying solver. Push and pop on the gateway must be
// paired with identical operations on the arena and the equality cache;
// assertions inside a pushed scope are invisible after the matching pop.
type Gateway interface {
	// DeclareCell introduces the constant standing for a cell. Declaring the
	// same cell twice is a no-op.
	DeclareCell(c arena.Cell)
	// DeclareInPred introduces (on first use) the boolean constant standing
	// for the membership of elem in set and returns its name.
	DeclareInPred(set, elem arena.CellID) string
	// AssertGround asserts a ground expression: literals, cell references,
	// and operator applications over them.
	AssertGround(ex *ir.Expr) error
	// AssertSmtLib parses an SMT-LIB2 command sequence and asserts the
	// resulting assertions.
	AssertSmtLib(text string) error
	// Push opens a new assertion scope.
	Push()
	// Pop discards the most recent scope.
	Pop()
	// PopN discards the n most recent scopes.
	PopN(n int)
	// Level returns the current scope depth.
	Level() int
	// Sat checks satisfiability of the asserted constraints. An unknown
	// outcome is a value, not an error; it is never retried or masked here.
	Sat() (Result, error)
	// EvalBool reads the boolean interpretation of a declared constant from
	// the model of the last successful Sat call.
	EvalBool(name string) (bool, error)
	// EvalInt reads the integer interpretation of a declared constant from
	// the model of the last successful Sat call.
	EvalInt(name string) (int64, error)
	// Log writes a free-form message into the solver log.
	Log(message string)
}

// CellName returns the solver-level constant name of a cell.
func CellName(id arena.CellID) string {
	return fmt.Sprintf("c_%d", id)
}

// InPredName returns the name of the boolean membership predicate constant
// for an element cell and a set cell.
func InPredName(set, elem arena.CellID) string {
	return fmt.Sprintf("in_%d_%d", elem, set)
}
