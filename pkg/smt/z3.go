package smt

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	z3 "github.com/vhavlena/z3-go/z3"

	"github.com/vhavlena/veritla/pkg/arena"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

// Z3Gateway implements the gateway over the z3-go bindings. Boolean and
// integer cells use their native sorts; every other cell type is carried by
// an integer constant acting as an uninterpreted sort, which is sound
// because such cells are only ever related by native equality and the
// dedicated membership booleans.
type Z3Gateway struct {
	ctx    *z3.Context
	solver *z3.Solver

	decls map[string]z3.AST
	level int
	model *z3.Model
}

// NewZ3Gateway creates a gateway with a fresh Z3 context and solver.
func NewZ3Gateway() *Z3Gateway {
	ctx := z3.NewContext(nil)
	return &Z3Gateway{
		ctx:    ctx,
		solver: ctx.NewSolver(),
		decls:  make(map[string]z3.AST),
	}
}

// Close releases the underlying Z3 objects.
func (g *Z3Gateway) Close() {
	if g.model != nil {
		g.model.Close()
		g.model = nil
	}
	g.solver.Close()
	g.ctx.Close()
}

// DeclareCell introduces the constant for a cell; repeated declarations are
// no-ops.
func (g *Z3Gateway) DeclareCell(c arena.Cell) {
	name := CellName(c.ID())
	if _, ok := g.decls[name]; ok {
		return
	}
	g.decls[name] = g.ctx.Const(name, g.sortOf(c.Type()))
}

// DeclareInPred introduces (on first use) the membership boolean for a has
// edge and returns its name.
func (g *Z3Gateway) DeclareInPred(set, elem arena.CellID) string {
	name := InPredName(set, elem)
	if _, ok := g.decls[name]; !ok {
		g.decls[name] = g.ctx.Const(name, g.ctx.BoolSort())
	}
	return name
}

// AssertGround builds the native AST of a ground expression and asserts it.
func (g *Z3Gateway) AssertGround(ex *ir.Expr) error {
	ast, err := g.toAST(ex)
	if err != nil {
		return err
	}
	g.solver.Assert(ast)
	if log.IsLevelEnabled(log.DebugLevel) {
		if s, rerr := Render(ex); rerr == nil {
			log.Debugf("smt: (assert %s)", s)
		}
	}
	return nil
}

// AssertSmtLib parses the SMT-LIB2 text with Z3's parser and asserts the
// resulting assertions.
func (g *Z3Gateway) AssertSmtLib(text string) error {
	return g.solver.AssertSMTLIB2String(text)
}

// Push opens a new solver scope.
func (g *Z3Gateway) Push() {
	g.solver.Push()
	g.level++
}

// Pop discards the most recent solver scope.
func (g *Z3Gateway) Pop() {
	g.PopN(1)
}

// PopN discards the n most recent solver scopes.
func (g *Z3Gateway) PopN(n int) {
	if n <= 0 {
		return
	}
	if n > g.level {
		n = g.level
	}
	g.solver.Pop(uint(n))
	g.level -= n
	g.dropModel()
}

// Level returns the current scope depth.
func (g *Z3Gateway) Level() int {
	return g.level
}

// Sat checks the asserted constraints. On sat the model is retained for
// EvalBool/EvalInt until the next Sat or pop.
func (g *Z3Gateway) Sat() (Result, error) {
	g.dropModel()
	res, err := g.solver.Check()
	switch res {
	case z3.Sat:
		g.model = g.solver.Model()
		return Sat, nil
	case z3.Unsat:
		return Unsat, nil
	default:
		if err != nil {
			log.Debugf("smt: solver unknown: %v", err)
		}
		return Unknown, nil
	}
}

// EvalBool reads a boolean constant from the current model.
func (g *Z3Gateway) EvalBool(name string) (bool, error) {
	ast, err := g.evalDecl(name)
	if err != nil {
		return false, err
	}
	v, ok := ast.BoolValue()
	if !ok {
		return false, fmt.Errorf("%w: %s is not boolean in the model", verr.ErrNoModel, name)
	}
	return v, nil
}

// EvalInt reads an integer constant from the current model.
func (g *Z3Gateway) EvalInt(name string) (int64, error) {
	ast, err := g.evalDecl(name)
	if err != nil {
		return 0, err
	}
	v, ok := ast.AsInt64()
	if !ok {
		return 0, fmt.Errorf("%w: %s is not an integer in the model", verr.ErrNoModel, name)
	}
	return v, nil
}

// Log writes a message to the debug log.
func (g *Z3Gateway) Log(message string) {
	log.Debugf("smt: %s", message)
}

func (g *Z3Gateway) evalDecl(name string) (z3.AST, error) {
	if g.model == nil {
		return z3.AST{}, verr.ErrNoModel
	}
	decl, ok := g.decls[name]
	if !ok {
		return z3.AST{}, fmt.Errorf("%w: %s was never declared", verr.ErrNoModel, name)
	}
	return g.model.Eval(decl, true), nil
}

func (g *Z3Gateway) dropModel() {
	if g.model != nil {
		g.model.Close()
		g.model = nil
	}
}

func (g *Z3Gateway) sortOf(tp types.CellType) z3.Sort {
	switch tp.Kind {
	case types.KindBool:
		return g.ctx.BoolSort()
	case types.KindInt:
		return g.ctx.IntSort()
	default:
		return g.ctx.IntSort()
	}
}

// toAST builds the native Z3 AST of a ground expression.
func (g *Z3Gateway) toAST(ex *ir.Expr) (z3.AST, error) {
	switch ex.Kind {
	case ir.KindBool:
		return g.ctx.BoolVal(ex.BoolVal), nil
	case ir.KindInt:
		return g.ctx.IntVal(ex.IntVal), nil
	case ir.KindCell:
		name := CellName(arena.CellID(ex.Cell))
		ast, ok := g.decls[name]
		if !ok {
			return z3.AST{}, verr.ErrBadIR(ex.ID(), "cell "+name+" was never declared")
		}
		return ast, nil
	case ir.KindOper:
		return g.operToAST(ex)
	}
	return z3.AST{}, verr.ErrBadIR(ex.ID(), fmt.Sprintf("non-ground %s expression at the gateway", ex.Kind))
}

func (g *Z3Gateway) operToAST(ex *ir.Expr) (z3.AST, error) {
	if ex.Op == ir.OpIn {
		if len(ex.Args) != 2 || ex.Args[0].Kind != ir.KindCell || ex.Args[1].Kind != ir.KindCell {
			return z3.AST{}, verr.ErrBadIR(ex.ID(), "membership at the gateway requires two cell references")
		}
		name := g.DeclareInPred(arena.CellID(ex.Args[1].Cell), arena.CellID(ex.Args[0].Cell))
		return g.decls[name], nil
	}

	args := make([]z3.AST, 0, len(ex.Args))
	for _, a := range ex.Args {
		ast, err := g.toAST(a)
		if err != nil {
			return z3.AST{}, err
		}
		args = append(args, ast)
	}

	switch ex.Op {
	case ir.OpAnd:
		if len(args) == 0 {
			return g.ctx.BoolVal(true), nil
		}
		return z3.And(args...), nil
	case ir.OpOr:
		if len(args) == 0 {
			return g.ctx.BoolVal(false), nil
		}
		return z3.Or(args...), nil
	case ir.OpNot:
		return args[0].Not(), nil
	case ir.OpImplies:
		return z3.Implies(args[0], args[1]), nil
	case ir.OpIff, ir.OpEq:
		return z3.Eq(args[0], args[1]), nil
	case ir.OpNe:
		return z3.Eq(args[0], args[1]).Not(), nil
	case ir.OpLt:
		return z3.Lt(args[0], args[1]), nil
	case ir.OpLe:
		return z3.Le(args[0], args[1]), nil
	case ir.OpGt:
		return z3.Gt(args[0], args[1]), nil
	case ir.OpGe:
		return z3.Ge(args[0], args[1]), nil
	case ir.OpPlus:
		return z3.Add(args...), nil
	case ir.OpMinus:
		return z3.Sub(args...), nil
	case ir.OpMult:
		return z3.Mul(args...), nil
	case ir.OpUminus:
		return z3.Sub(g.ctx.IntVal(0), args[0]), nil
	case ir.OpIte:
		return z3.Ite(args[0], args[1], args[2]), nil
	}
	return z3.AST{}, fmt.Errorf("%w: operator %s (node %d)", verr.ErrUnsupportedGround, ex.Op, ex.ID())
}
