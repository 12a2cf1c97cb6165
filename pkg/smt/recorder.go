package smt

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vhavlena/veritla/pkg/arena"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

// scopeMark records the lengths of the recorder's logs at a push.
type scopeMark struct {
	decls   int
	asserts int
}

// RecordingGateway is a pure-Go gateway implementation that records
// declarations and assertion texts per scope. It backs the unit tests and
// produces SMT-LIB dumps; it cannot decide satisfiability.
type RecordingGateway struct {
	declared map[string]bool
	declLog  []string
	declSort []string
	asserts  []string
	marks    []scopeMark
	messages []string
}

// NewRecordingGateway creates an empty recording gateway at scope depth 0.
func NewRecordingGateway() *RecordingGateway {
	return &RecordingGateway{declared: make(map[string]bool)}
}

// DeclareCell records the constant declaration for a cell.
func (g *RecordingGateway) DeclareCell(c arena.Cell) {
	g.declare(CellName(c.ID()), sortName(c.Type()))
}

// DeclareInPred records the membership predicate constant for a has edge and
// returns its name.
func (g *RecordingGateway) DeclareInPred(set, elem arena.CellID) string {
	name := InPredName(set, elem)
	g.declare(name, "Bool")
	return name
}

func (g *RecordingGateway) declare(name, sort string) {
	if g.declared[name] {
		return
	}
	g.declared[name] = true
	g.declLog = append(g.declLog, name)
	g.declSort = append(g.declSort, sort)
}

// AssertGround renders the ground expression and records the assertion.
func (g *RecordingGateway) AssertGround(ex *ir.Expr) error {
	s, err := Render(ex)
	if err != nil {
		return err
	}
	g.asserts = append(g.asserts, s)
	log.Debugf("smt: (assert %s)", s)
	return nil
}

// AssertSmtLib records a raw SMT-LIB assertion text as-is.
func (g *RecordingGateway) AssertSmtLib(text string) error {
	g.asserts = append(g.asserts, text)
	log.Debugf("smt: raw %s", text)
	return nil
}

// Push opens a new scope.
func (g *RecordingGateway) Push() {
	g.marks = append(g.marks, scopeMark{decls: len(g.declLog), asserts: len(g.asserts)})
}

// Pop discards everything recorded since the matching Push.
func (g *RecordingGateway) Pop() {
	if len(g.marks) == 0 {
		return
	}
	m := g.marks[len(g.marks)-1]
	g.marks = g.marks[:len(g.marks)-1]
	for _, name := range g.declLog[m.decls:] {
		delete(g.declared, name)
	}
	g.declLog = g.declLog[:m.decls]
	g.declSort = g.declSort[:m.decls]
	g.asserts = g.asserts[:m.asserts]
}

// PopN discards the n most recent scopes.
func (g *RecordingGateway) PopN(n int) {
	for i := 0; i < n; i++ {
		g.Pop()
	}
}

// Level returns the current scope depth.
func (g *RecordingGateway) Level() int {
	return len(g.marks)
}

// Sat cannot be decided without a solver; the recording gateway reports an
// indeterminate outcome.
func (g *RecordingGateway) Sat() (Result, error) {
	log.Debug("smt: recording gateway cannot decide satisfiability")
	return Unknown, nil
}

// EvalBool always fails: the recorder holds no model.
func (g *RecordingGateway) EvalBool(name string) (bool, error) {
	return false, verr.ErrNoModel
}

// EvalInt always fails: the recorder holds no model.
func (g *RecordingGateway) EvalInt(name string) (int64, error) {
	return 0, verr.ErrNoModel
}

// Log records a free-form message.
func (g *RecordingGateway) Log(message string) {
	g.messages = append(g.messages, message)
	log.Debugf("smt: %s", message)
}

// Assertions returns the currently visible assertion texts, oldest first.
func (g *RecordingGateway) Assertions() []string {
	out := make([]string, len(g.asserts))
	copy(out, g.asserts)
	return out
}

// NumAssertions returns the number of currently visible assertions.
func (g *RecordingGateway) NumAssertions() int {
	return len(g.asserts)
}

// Declared reports whether a constant with the given name is currently
// declared.
func (g *RecordingGateway) Declared(name string) bool {
	return g.declared[name]
}

// Dump renders the visible declarations and assertions as an SMT-LIB2
// document, suitable for feeding to an external solver.
//
// Returns:
//
//	string: The SMT-LIB2 document.
func (g *RecordingGateway) Dump() string {
	var sb strings.Builder
	for i, name := range g.declLog {
		sb.WriteString("(declare-fun " + name + " () " + g.declSort[i] + ")\n")
	}
	for _, a := range g.asserts {
		sb.WriteString("(assert " + a + ")\n")
	}
	sb.WriteString("(check-sat)\n")
	return sb.String()
}

// sortName maps a cell type to the name of its carrier sort. Non-basic
// types ride on Int: the core only ever relates their cells with native
// equality and the dedicated membership booleans, so an integer carrier is a
// sound stand-in for an uninterpreted sort.
func sortName(tp types.CellType) string {
	switch tp.Kind {
	case types.KindBool:
		return "Bool"
	case types.KindInt:
		return "Int"
	default:
		return "Int"
	}
}
