// Package eq implements the scoped equality-constraint cache and the lazy
// equality engine that fills it on demand.
package eq

import (
	"github.com/vhavlena/veritla/pkg/arena"
)

// EntryKind classifies a cached equality fact.
type EntryKind int

const (
	// EntryTrue records that the two cells are proven equal.
	EntryTrue EntryKind = iota
	// EntryFalse records that the two cells cannot be equal.
	EntryFalse
	// EntryNative records that native SMT equality is sound for the pair:
	// the structural constraints have been asserted.
	EntryNative
	// EntryExpr records that the equality is equivalent to the boolean cell
	// stored in Pred.
	EntryExpr
)

// Entry is a cached equality fact together with the scope level at which it
// was installed.
type Entry struct {
	Kind  EntryKind
	Pred  arena.CellID
	Level int
}

// pairKey is the normalized unordered cell pair.
type pairKey struct {
	lo arena.CellID
	hi arena.CellID
}

func keyOf(a, b arena.CellID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Cache is the scoped mapping from unordered cell pairs to equality
// entries. Each push records the insertion-log length; each pop discards
// the entries inserted after the most recent push, mirroring the SMT
// solver's scope stack.
type Cache struct {
	entries map[pairKey]Entry
	log     []pairKey
	marks   []int
}

// CacheSnapshot captures a point in the cache history. It is recoverable
// across cache instances of the same structural shape, enabling speculative
// exploration of search branches.
type CacheSnapshot struct {
	entries map[pairKey]Entry
	log     []pairKey
	marks   []int
}

// NewCache creates an empty cache at context level 0.
func NewCache() *Cache {
	return &Cache{entries: make(map[pairKey]Entry)}
}

// Get looks up the entry for an unordered pair.
func (c *Cache) Get(a, b arena.CellID) (Entry, bool) {
	e, ok := c.entries[keyOf(a, b)]
	return e, ok
}

// Put installs an entry for an unordered pair, tagged with the current
// context level. A pair that already has an entry keeps it.
func (c *Cache) Put(a, b arena.CellID, kind EntryKind, pred arena.CellID) {
	k := keyOf(a, b)
	if _, ok := c.entries[k]; ok {
		return
	}
	c.entries[k] = Entry{Kind: kind, Pred: pred, Level: c.Level()}
	c.log = append(c.log, k)
}

// Push opens a new cache scope.
func (c *Cache) Push() {
	c.marks = append(c.marks, len(c.log))
}

// Pop discards the entries inserted since the most recent push.
func (c *Cache) Pop() {
	if len(c.marks) == 0 {
		return
	}
	mark := c.marks[len(c.marks)-1]
	c.marks = c.marks[:len(c.marks)-1]
	for i := len(c.log) - 1; i >= mark; i-- {
		delete(c.entries, c.log[i])
	}
	c.log = c.log[:mark]
}

// PopN discards the n most recent scopes.
func (c *Cache) PopN(n int) {
	for i := 0; i < n; i++ {
		c.Pop()
	}
}

// Level returns the current context level.
func (c *Cache) Level() int {
	return len(c.marks)
}

// Size returns the number of currently visible entries.
func (c *Cache) Size() int {
	return len(c.entries)
}

// TakeSnapshot captures the full cache history at this point.
func (c *Cache) TakeSnapshot() *CacheSnapshot {
	entries := make(map[pairKey]Entry, len(c.entries))
	for k, v := range c.entries {
		entries[k] = v
	}
	log := make([]pairKey, len(c.log))
	copy(log, c.log)
	marks := make([]int, len(c.marks))
	copy(marks, c.marks)
	return &CacheSnapshot{entries: entries, log: log, marks: marks}
}

// Recover restores the cache to a previously captured snapshot. The
// receiver may be a different instance than the one the snapshot was taken
// from.
func (c *Cache) Recover(s *CacheSnapshot) {
	c.entries = make(map[pairKey]Entry, len(s.entries))
	for k, v := range s.entries {
		c.entries[k] = v
	}
	c.log = make([]pairKey, len(s.log))
	copy(c.log, s.log)
	c.marks = make([]int, len(s.marks))
	copy(c.marks, s.marks)
}
