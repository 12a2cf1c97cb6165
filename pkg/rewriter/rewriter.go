package rewriter

import (
	log "github.com/sirupsen/logrus"

	"github.com/vhavlena/veritla/pkg/arena"
	"github.com/vhavlena/veritla/pkg/eq"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/smt"
	"github.com/vhavlena/veritla/pkg/types"
)

// Rule is one rewriting rule: an applicability test over the focused
// expression and the transformation itself. Rules may extend the arena,
// insert cache entries, and assert SMT constraints, and nothing else; in
// particular they never remove or rewrite previously asserted constraints.
type Rule interface {
	// Name identifies the rule in diagnostics.
	Name() string
	// Applicable reports whether the rule accepts the focused expression.
	Applicable(s *SymbState) bool
	// Apply rewrites the focused expression and returns the next state.
	Apply(s *SymbState) (*SymbState, error)
}

// scopeFrame records what a context push must roll back besides the gateway
// and cache scopes: the arena watermark and the constants interned since.
type scopeFrame struct {
	arena   arena.Snapshot
	newInts []int64
	newStrs []string
}

// Rewriter owns the gateway for its lifetime and drives rule application.
// The three stacks (gateway scopes, cache scopes, arena snapshots) are
// maintained in lock-step by ContextPush and ContextPop.
type Rewriter struct {
	Gw    smt.Gateway
	Arena *arena.Arena
	Eq    *eq.LazyEquality

	ids      *ir.IdGen
	varTypes map[string]types.CellType

	// assignIDs holds the IR node ids that the current transition's strategy
	// designates as assignments; every other membership leaf is a condition.
	assignIDs map[int]bool

	rules []Rule

	intCells map[int64]arena.CellID
	strIndex map[string]arena.CellID
	strCells map[arena.CellID]string

	frames []scopeFrame
}

// New creates a rewriter over a fresh cache and equality engine. The two
// distinguished boolean cells are declared and constrained immediately, at
// scope depth 0.
//
// Parameters:
//
//	gw smt.Gateway: The solver gateway, owned by the rewriter from now on.
//	a *arena.Arena: The shared arena.
//	ids *ir.IdGen: The unique-id generator capability.
//	varTypes map[string]types.CellType: Cell types of the state variables.
//
// Returns:
//
//	*Rewriter: The configured rewriter.
//	error: An error if the initial constraints cannot be asserted.
func New(gw smt.Gateway, a *arena.Arena, ids *ir.IdGen, varTypes map[string]types.CellType) (*Rewriter, error) {
	r := &Rewriter{
		Gw:        gw,
		Arena:     a,
		ids:       ids,
		varTypes:  varTypes,
		assignIDs: make(map[int]bool),
		intCells:  make(map[int64]arena.CellID),
		strIndex:  make(map[string]arena.CellID),
		strCells:  make(map[arena.CellID]string),
	}
	r.Eq = eq.NewLazyEquality(a, gw, eq.NewCache(), ids)

	gw.DeclareCell(a.CellTrue())
	gw.DeclareCell(a.CellFalse())
	if err := gw.AssertGround(r.CellRef(a.CellTrue().ID())); err != nil {
		return nil, err
	}
	if err := gw.AssertGround(ir.NewOper(ids, ir.OpNot, r.CellRef(a.CellFalse().ID()))); err != nil {
		return nil, err
	}

	r.rules = []Rule{
		&boolConstRule{rw: r},
		&intConstRule{rw: r},
		&strConstRule{rw: r},
		&nameRule{rw: r},
		&assignRule{rw: r},
		&primeRule{rw: r},
		&boolOpRule{rw: r},
		&intOpRule{rw: r},
		&eqRule{rw: r},
		&neRule{rw: r},
		&iteRule{rw: r},
		&enumSetRule{rw: r},
		&inRule{rw: r},
		&quantRule{rw: r},
		&tupleRule{rw: r},
		&recordRule{rw: r},
		&seqRule{rw: r},
		&funCtorRule{rw: r},
		&domainRule{rw: r},
	}
	return r, nil
}

// IdGen returns the unique-id generator capability.
func (r *Rewriter) IdGen() *ir.IdGen {
	return r.ids
}

// StringOfCell returns the interned string a string-constant cell stands
// for; used when decoding models.
func (r *Rewriter) StringOfCell(id arena.CellID) (string, bool) {
	s, ok := r.strCells[id]
	return s, ok
}

// SetAssignments designates which membership leaves of the current
// transition are assignments, by IR node id.
func (r *Rewriter) SetAssignments(ids []int) {
	r.assignIDs = make(map[int]bool, len(ids))
	for _, id := range ids {
		r.assignIDs[id] = true
	}
}

// Rewrite applies the unique applicable rule to the focused expression
// until the focus is a cell reference. Failing to find an applicable rule
// is fatal.
//
// Parameters:
//
//	state *SymbState: The state to rewrite.
//
// Returns:
//
//	*SymbState: The fully rewritten state; its focus is a cell reference.
//	error: A fatal error from a rule or the driver.
func (r *Rewriter) Rewrite(state *SymbState) (*SymbState, error) {
	for {
		if state.Ex.Kind == ir.KindCell {
			return state, nil
		}
		rule := r.findRule(state)
		if rule == nil {
			return nil, verr.ErrRewriteStuck(state.Ex.ID(), state.Ex.String())
		}
		log.Tracef("rewriter: %s on node %d", rule.Name(), state.Ex.ID())
		next, err := rule.Apply(state)
		if err != nil {
			return nil, err
		}
		state = next
	}
}

// RewriteToCell rewrites an expression under the state's binding and
// returns the resulting cell.
func (r *Rewriter) RewriteToCell(state *SymbState, ex *ir.Expr) (*SymbState, arena.Cell, error) {
	next, err := r.Rewrite(state.WithEx(ex))
	if err != nil {
		return nil, arena.Cell{}, err
	}
	c, ok := next.AsCell()
	if !ok {
		return nil, arena.Cell{}, verr.ErrBadIR(ex.ID(), "rewriting did not produce a cell")
	}
	return next, c, nil
}

func (r *Rewriter) findRule(state *SymbState) Rule {
	for _, rule := range r.rules {
		if rule.Applicable(state) {
			return rule
		}
	}
	return nil
}

// ContextPush pushes the gateway, the equality cache, and the arena (as a
// snapshot) in lock-step.
func (r *Rewriter) ContextPush() {
	r.Gw.Push()
	r.Eq.Cache().Push()
	r.frames = append(r.frames, scopeFrame{arena: r.Arena.TakeSnapshot()})
}

// ContextPop restores the three stacks: the cache first, then the arena,
// and the gateway last, so the cache never outlives the
// assertions it depends on.
func (r *Rewriter) ContextPop() {
	if len(r.frames) == 0 {
		return
	}
	frame := r.frames[len(r.frames)-1]
	r.frames = r.frames[:len(r.frames)-1]

	r.Eq.Cache().Pop()
	for _, k := range frame.newInts {
		delete(r.intCells, k)
	}
	for _, s := range frame.newStrs {
		delete(r.strCells, r.strIndex[s])
		delete(r.strIndex, s)
	}
	r.Arena.Restore(frame.arena)
	r.Gw.Pop()
}

// ContextPopN pops n contexts.
func (r *Rewriter) ContextPopN(n int) {
	for i := 0; i < n; i++ {
		r.ContextPop()
	}
}

// ContextLevel returns the current lock-step scope depth.
func (r *Rewriter) ContextLevel() int {
	return len(r.frames)
}

// NewCell allocates an arena cell and declares its solver constant.
func (r *Rewriter) NewCell(tp types.CellType) arena.Cell {
	c := r.Arena.AllocCell(tp)
	r.Gw.DeclareCell(c)
	return c
}

// CellRef builds an IR reference to a cell.
func (r *Rewriter) CellRef(id arena.CellID) *ir.Expr {
	return ir.NewCellRef(r.ids, int(id))
}

// InExpr builds the membership term for a has edge, declaring its predicate
// constant.
func (r *Rewriter) InExpr(set, elem arena.CellID) *ir.Expr {
	r.Gw.DeclareInPred(set, elem)
	return ir.NewOper(r.ids, ir.OpIn, r.CellRef(elem), r.CellRef(set))
}

// intConst returns the interned cell of an integer literal, allocating and
// constraining it on first use.
func (r *Rewriter) intConst(v int64) arena.Cell {
	if id, ok := r.intCells[v]; ok {
		c, _ := r.Arena.CellOf(id)
		return c
	}
	c := r.NewCell(types.NewIntType())
	// The constant is pinned at the current scope; it is re-interned after a
	// pop that truncates it away.
	if err := r.Gw.AssertGround(ir.NewOper(r.ids, ir.OpEq, r.CellRef(c.ID()), ir.NewInt(r.ids, v))); err == nil {
		r.intCells[v] = c.ID()
		if len(r.frames) > 0 {
			top := &r.frames[len(r.frames)-1]
			top.newInts = append(top.newInts, v)
		}
	}
	return c
}

// strConst returns the interned cell of a string literal. Distinct strings
// map to distinct cells; their pairwise disequality is recorded directly in
// the equality cache.
func (r *Rewriter) strConst(s string) arena.Cell {
	if id, ok := r.strIndex[s]; ok {
		c, _ := r.Arena.CellOf(id)
		return c
	}
	c := r.NewCell(types.NewStrType())
	for _, otherID := range r.strIndex {
		r.Eq.Cache().Put(c.ID(), otherID, eq.EntryFalse, 0)
	}
	r.strIndex[s] = c.ID()
	r.strCells[c.ID()] = s
	if len(r.frames) > 0 {
		top := &r.frames[len(r.frames)-1]
		top.newStrs = append(top.newStrs, s)
	}
	return c
}
