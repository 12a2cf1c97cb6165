package err

import (
	"errors"
	"fmt"
)

// Strategy search, transition execution, and model decoding errors.
var (
	ErrNoStrategy      = errors.New("assign: transition admits no assignment strategy")
	ErrUnassignedVar   = errors.New("checker: state variable left unassigned by transition")
	ErrUndecodableCell = errors.New("model: cell cannot be decoded")
)

// ErrVarUnassigned reports that a transition finished rewriting without
// binding the primed occurrence of a state variable.
//
// Parameters:
//
//	varName string: The unassigned variable.
//
// Returns:
//
//	error: The formatted error.
func ErrVarUnassigned(varName string) error {
	return fmt.Errorf("%w: %s", ErrUnassignedVar, varName)
}

// ErrDecodeCell reports a cell whose model value could not be read back.
func ErrDecodeCell(cell int, cause error) error {
	return fmt.Errorf("%w: cell %d: %v", ErrUndecodableCell, cell, cause)
}
