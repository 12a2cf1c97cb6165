package assign

import (
	"fmt"
	"os"
	"strings"

	"github.com/vhavlena/veritla/pkg/ir"
)

// candName returns the SMT constant name of a candidate boolean.
func candName(id int) string {
	return fmt.Sprintf("A_%d", id)
}

// SmtDecls returns the SMT-LIB declarations of the problem: one boolean
// constant per candidate id and the uninterpreted ranking function
// R : Int → Int.
//
// Returns:
//
//	[]string: A slice of SMT-LIB declaration strings.
func (p *Problem) SmtDecls() []string {
	decls := make([]string, 0, len(p.Cands)+1)
	for _, c := range p.Cands {
		decls = append(decls, fmt.Sprintf("(declare-fun %s () Bool)", candName(c.ID)))
	}
	decls = append(decls, "(declare-fun R (Int) Int)")
	return decls
}

// SmtAsserts returns the SMT-LIB assertions of the problem in the order
// coverage, ordering, injectivity, uniqueness.
//
// Returns:
//
//	[]string: A slice of SMT-LIB (assert ...) strings.
func (p *Problem) SmtAsserts() []string {
	asserts := make([]string, 0, 64)

	// Coverage: at least one assignment per variable, along every branch.
	for _, v := range p.Vars {
		asserts = append(asserts, fmt.Sprintf("(assert %s)", renderDelta(p.delta[v])))
	}

	// Ordering respects data dependency. Every dependent leaf is rewritten
	// along the same branch whether or not it is the chosen assignment, so
	// the ordering holds unconditionally.
	for _, dep := range p.deps {
		for _, ord := range [][2]int{dep, {dep[1], dep[0]}} {
			ci, cj := p.Cands[ord[0]], p.Cands[ord[1]]
			if _, uses := ir.PrimedNames(cj.Rhs)[ci.Var]; !uses {
				continue
			}
			asserts = append(asserts, fmt.Sprintf(
				"(assert (< (R %d) (R %d)))", ci.ID, cj.ID))
		}
	}

	// Injectivity of the ranking function over the candidate ids.
	for i := 0; i < len(p.Cands); i++ {
		for j := i + 1; j < len(p.Cands); j++ {
			asserts = append(asserts, fmt.Sprintf(
				"(assert (not (= (R %d) (R %d))))", p.Cands[i].ID, p.Cands[j].ID))
		}
	}

	// Uniqueness of the chosen assignment per variable within a dependent
	// path.
	for _, dep := range p.deps {
		ci, cj := p.Cands[dep[0]], p.Cands[dep[1]]
		if ci.Var != cj.Var {
			continue
		}
		asserts = append(asserts, fmt.Sprintf(
			"(assert (not (and %s %s)))", candName(ci.ID), candName(cj.ID)))
	}
	return asserts
}

// SmtProblem returns the full problem as SMT-LIB2 text without the logic
// and check-sat wrappers.
//
// Returns:
//
//	string: The SMT-LIB2 text.
func (p *Problem) SmtProblem() string {
	lines := make([]string, 0, 64)
	lines = append(lines, p.SmtDecls()...)
	lines = append(lines, p.SmtAsserts()...)
	return strings.Join(lines, "\n")
}

// WriteFile writes the problem as a self-contained SMT-LIB2 document in
// logic QF_UFLIA.
//
// Parameters:
//
//	path string: The output file path.
//
// Returns:
//
//	error: An error if the file cannot be written.
func (p *Problem) WriteFile(path string) error {
	var sb strings.Builder
	sb.WriteString("(set-logic QF_UFLIA)\n")
	sb.WriteString(p.SmtProblem())
	sb.WriteString("\n(check-sat)\n(get-model)\n(exit)\n")
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// renderDelta renders a coverage formula in SMT-LIB syntax.
func renderDelta(f *deltaForm) string {
	switch f.kind {
	case deltaFalse:
		return "false"
	case deltaVar:
		return candName(f.cand)
	case deltaAnd:
		if len(f.kids) == 0 {
			return "true"
		}
		return renderDeltaNary("and", f.kids)
	default:
		if len(f.kids) == 0 {
			return "false"
		}
		return renderDeltaNary("or", f.kids)
	}
}

func renderDeltaNary(op string, kids []*deltaForm) string {
	parts := make([]string, 0, len(kids)+1)
	parts = append(parts, op)
	for _, k := range kids {
		parts = append(parts, renderDelta(k))
	}
	return "(" + strings.Join(parts, " ") + ")"
}
