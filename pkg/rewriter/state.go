// Package rewriter translates specification expressions into arena cells and
// SMT constraints by driving a fixed set of rewriting rules.
package rewriter

import (
	"github.com/vhavlena/veritla/pkg/arena"
	"github.com/vhavlena/veritla/pkg/ir"
)

// Binding is the per-level environment mapping names to cells. Primed
// variables are stored under the key name + "'".
type Binding map[string]arena.CellID

// Copy returns an independent copy of the binding.
func (b Binding) Copy() Binding {
	cp := make(Binding, len(b))
	for k, v := range b {
		cp[k] = v
	}
	return cp
}

// PrimedKey returns the binding key of the primed occurrence of a variable.
func PrimedKey(name string) string {
	return name + "'"
}

// SymbState bundles the focused expression, the shared arena, and the
// binding environment. Rewriting returns a new state; the previous one is
// not mutated and keeps sharing all cell storage through the append-only
// arena.
type SymbState struct {
	Ex      *ir.Expr
	Arena   *arena.Arena
	Binding Binding
}

// NewSymbState creates a state focused on the given expression.
func NewSymbState(ex *ir.Expr, a *arena.Arena) *SymbState {
	return &SymbState{Ex: ex, Arena: a, Binding: make(Binding)}
}

// WithEx returns a copy of the state focused on another expression.
func (s *SymbState) WithEx(ex *ir.Expr) *SymbState {
	return &SymbState{Ex: ex, Arena: s.Arena, Binding: s.Binding}
}

// AsCell returns the cell the focus refers to; ok is false when the state is
// not fully rewritten yet.
func (s *SymbState) AsCell() (arena.Cell, bool) {
	if s.Ex.Kind != ir.KindCell {
		return arena.Cell{}, false
	}
	return s.Arena.CellOf(arena.CellID(s.Ex.Cell))
}
