// Package err defines common errors for the VeriTLA project.
package err

import (
	"errors"
	"fmt"
)

var (
	ErrIncomparableTypes = errors.New("equality over incomparable cell types")
	ErrUncachedEquality  = errors.New("equality queried before constraints were cached")
	ErrNoApplicableRule  = errors.New("no applicable rewriting rule")
	ErrMalformedIR       = errors.New("malformed IR expression")
	ErrUnboundName       = errors.New("name is not bound in the symbolic state")
	ErrSolverUnknown     = errors.New("solver returned unknown")
	ErrNoModel           = errors.New("no model is available")
	ErrUnsupportedGround = errors.New("unsupported ground expression")
)

// ErrEqIncomparable returns a fatal error for an equality request over cells
// whose types the lazy equality engine must not relate.
//
// Parameters:
//
//	left int: Id of the left cell.
//	right int: Id of the right cell.
//
// Returns:
//
//	error: The formatted error.
func ErrEqIncomparable(left, right int) error {
	return fmt.Errorf("%w: cells %d and %d", ErrIncomparableTypes, left, right)
}

// ErrEqUncached returns a fatal error for a safe equality query on a pair
// that was never passed through constraint caching.
//
// Parameters:
//
//	left int: Id of the left cell.
//	right int: Id of the right cell.
//
// Returns:
//
//	error: The formatted error.
func ErrEqUncached(left, right int) error {
	return fmt.Errorf("%w: cells %d and %d", ErrUncachedEquality, left, right)
}

// ErrRewriteStuck returns a fatal error raised by the rewriting driver when
// no rule accepts the focused expression.
//
// Parameters:
//
//	nodeID int: Unique id of the focused IR node.
//	desc string: Short description of the focused expression.
//
// Returns:
//
//	error: The formatted error.
func ErrRewriteStuck(nodeID int, desc string) error {
	return fmt.Errorf("%w: node %d (%s)", ErrNoApplicableRule, nodeID, desc)
}

// ErrBadIR returns a fatal error for an IR node whose structural shape does
// not match what the raising component expected.
//
// Parameters:
//
//	nodeID int: Unique id of the offending IR node.
//	detail string: What was expected.
//
// Returns:
//
//	error: The formatted error.
func ErrBadIR(nodeID int, detail string) error {
	return fmt.Errorf("%w: node %d: %s", ErrMalformedIR, nodeID, detail)
}

// ErrName reports a reference to a name that the binding environment does
// not know.
func ErrName(name string) error {
	return fmt.Errorf("%w: %s", ErrUnboundName, name)
}

// ErrCellShape returns a fatal error for a cell whose arena structure does
// not match what its type requires (for example a record without a domain
// edge).
//
// Parameters:
//
//	cell int: Id of the offending cell.
//	detail string: What was expected.
//
// Returns:
//
//	error: The formatted error.
func ErrCellShape(cell int, detail string) error {
	return fmt.Errorf("%w: cell %d: %s", ErrMalformedIR, cell, detail)
}
