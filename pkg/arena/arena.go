// Package arena implements the append-only heap of typed symbolic cells and
// the has/dom/cdm edge tables that connect them.
package arena

import (
	"github.com/vhavlena/veritla/pkg/types"
)

// CellID identifies a cell; ids are issued monotonically from zero.
type CellID int

// Cell is a symbolic value: an id plus a cell type. Cells are immutable;
// their structure lives in the arena's edge tables.
type Cell struct {
	id CellID
	tp types.CellType
}

// ID returns the cell id.
func (c Cell) ID() CellID {
	return c.id
}

// Type returns the cell type.
func (c Cell) Type() types.CellType {
	return c.tp
}

// Snapshot is a truncation handle: the arena can be rolled back to the point
// the snapshot was taken. Snapshots taken before a push remain valid across
// the matching pop.
type Snapshot struct {
	cells  int
	hasLog int
	domLog int
	cdmLog int
}

// Arena is the append-only store of all cells ever allocated together with
// their edges. Cells and edges are never deleted or mutated except through
// Restore, which truncates back to a snapshot.
type Arena struct {
	cells []Cell

	has    map[CellID][]CellID
	hasLog []CellID

	dom    map[CellID]CellID
	domLog []CellID

	cdm    map[CellID]CellID
	cdmLog []CellID

	cellTrue  CellID
	cellFalse CellID
}

// New creates an arena with the two distinguished boolean cells already
// allocated.
func New() *Arena {
	a := &Arena{
		has: make(map[CellID][]CellID),
		dom: make(map[CellID]CellID),
		cdm: make(map[CellID]CellID),
	}
	a.cellFalse = a.AllocCell(types.NewBoolType()).ID()
	a.cellTrue = a.AllocCell(types.NewBoolType()).ID()
	return a
}

// AllocCell appends a new cell of the given type and returns it.
func (a *Arena) AllocCell(tp types.CellType) Cell {
	c := Cell{id: CellID(len(a.cells)), tp: tp}
	a.cells = append(a.cells, c)
	return c
}

// NumCells returns the number of cells allocated so far.
func (a *Arena) NumCells() int {
	return len(a.cells)
}

// CellOf returns the cell with the given id; ok is false when the id was
// never allocated (or was truncated away by Restore).
func (a *Arena) CellOf(id CellID) (Cell, bool) {
	if id < 0 || int(id) >= len(a.cells) {
		return Cell{}, false
	}
	return a.cells[id], true
}

// CellTrue returns the distinguished cell standing for the literal true.
func (a *Arena) CellTrue() Cell {
	return a.cells[a.cellTrue]
}

// CellFalse returns the distinguished cell standing for the literal false.
func (a *Arena) CellFalse() Cell {
	return a.cells[a.cellFalse]
}

// AppendHas records a membership edge from c to e. For sets the has list is
// the element list; for sequences the first two slots are the start and end
// integer markers and the remainder are the contents.
func (a *Arena) AppendHas(c, e CellID) {
	a.has[c] = append(a.has[c], e)
	a.hasLog = append(a.hasLog, c)
}

// SetDom records the domain edge of a function, function set, or record.
func (a *Arena) SetDom(c, d CellID) {
	if _, ok := a.dom[c]; !ok {
		a.domLog = append(a.domLog, c)
	}
	a.dom[c] = d
}

// SetCdm records the codomain (relation) edge of a function or function set.
func (a *Arena) SetCdm(c, r CellID) {
	if _, ok := a.cdm[c]; !ok {
		a.cdmLog = append(a.cdmLog, c)
	}
	a.cdm[c] = r
}

// Has returns the ordered has list of a cell; empty when the cell has no
// membership edges. The returned slice is owned by the arena and must not be
// modified.
func (a *Arena) Has(c CellID) []CellID {
	return a.has[c]
}

// Dom returns the domain edge of a cell; ok is false when the edge was never
// set.
func (a *Arena) Dom(c CellID) (CellID, bool) {
	d, ok := a.dom[c]
	return d, ok
}

// Cdm returns the codomain edge of a cell; ok is false when the edge was
// never set.
func (a *Arena) Cdm(c CellID) (CellID, bool) {
	r, ok := a.cdm[c]
	return r, ok
}

// TakeSnapshot records the current length of the cell sequence and of each
// edge table.
func (a *Arena) TakeSnapshot() Snapshot {
	return Snapshot{
		cells:  len(a.cells),
		hasLog: len(a.hasLog),
		domLog: len(a.domLog),
		cdmLog: len(a.cdmLog),
	}
}

// Restore truncates the arena back to the given snapshot. Applying the same
// handle twice is a no-op the second time.
func (a *Arena) Restore(s Snapshot) {
	for i := len(a.hasLog) - 1; i >= s.hasLog; i-- {
		from := a.hasLog[i]
		lst := a.has[from]
		if len(lst) <= 1 {
			delete(a.has, from)
		} else {
			a.has[from] = lst[:len(lst)-1]
		}
	}
	a.hasLog = a.hasLog[:s.hasLog]

	for i := len(a.domLog) - 1; i >= s.domLog; i-- {
		delete(a.dom, a.domLog[i])
	}
	a.domLog = a.domLog[:s.domLog]

	for i := len(a.cdmLog) - 1; i >= s.cdmLog; i-- {
		delete(a.cdm, a.cdmLog[i])
	}
	a.cdmLog = a.cdmLog[:s.cdmLog]

	a.cells = a.cells[:s.cells]
}
