package smt

import (
	"fmt"
	"strings"

	"github.com/vhavlena/veritla/pkg/arena"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
)

// Render converts a ground IR expression to its SMT-LIB string
// representation. Ground expressions contain only literals, cell references,
// and operator applications; names are a rewriting-time concept and must not
// reach the gateway.
//
// Parameters:
//
//	ex *ir.Expr: The ground expression to render.
//
// Returns:
//
//	string: The SMT-LIB string representation.
//	error: An error if the expression is not ground or uses an operator the
//	gateway does not know.
func Render(ex *ir.Expr) (string, error) {
	switch ex.Kind {
	case ir.KindBool:
		if ex.BoolVal {
			return "true", nil
		}
		return "false", nil
	case ir.KindInt:
		if ex.IntVal < 0 {
			return fmt.Sprintf("(- %d)", -ex.IntVal), nil
		}
		return fmt.Sprintf("%d", ex.IntVal), nil
	case ir.KindCell:
		return CellName(cellID(ex)), nil
	case ir.KindOper:
		return renderOper(ex)
	}
	return "", verr.ErrBadIR(ex.ID(), fmt.Sprintf("non-ground %s expression at the gateway", ex.Kind))
}

// renderOper renders an operator application.
func renderOper(ex *ir.Expr) (string, error) {
	if ex.Op == ir.OpIn {
		if len(ex.Args) != 2 || ex.Args[0].Kind != ir.KindCell || ex.Args[1].Kind != ir.KindCell {
			return "", verr.ErrBadIR(ex.ID(), "membership at the gateway requires two cell references")
		}
		return InPredName(cellID(ex.Args[1]), cellID(ex.Args[0])), nil
	}

	args := make([]string, 0, len(ex.Args))
	for _, a := range ex.Args {
		s, err := Render(a)
		if err != nil {
			return "", err
		}
		args = append(args, s)
	}
	joined := strings.Join(args, " ")

	switch ex.Op {
	case ir.OpAnd:
		return nary("and", args), nil
	case ir.OpOr:
		return nary("or", args), nil
	case ir.OpNot:
		return "(not " + joined + ")", nil
	case ir.OpImplies:
		return "(=> " + joined + ")", nil
	case ir.OpIff, ir.OpEq:
		return "(= " + joined + ")", nil
	case ir.OpNe:
		return "(not (= " + joined + "))", nil
	case ir.OpLt:
		return "(< " + joined + ")", nil
	case ir.OpLe:
		return "(<= " + joined + ")", nil
	case ir.OpGt:
		return "(> " + joined + ")", nil
	case ir.OpGe:
		return "(>= " + joined + ")", nil
	case ir.OpPlus:
		return "(+ " + joined + ")", nil
	case ir.OpMinus:
		return "(- " + joined + ")", nil
	case ir.OpMult:
		return "(* " + joined + ")", nil
	case ir.OpUminus:
		return "(- " + joined + ")", nil
	case ir.OpIte:
		return "(ite " + joined + ")", nil
	}
	return "", fmt.Errorf("%w: operator %s (node %d)", verr.ErrUnsupportedGround, ex.Op, ex.ID())
}

// nary renders an n-ary boolean connective, collapsing the degenerate
// arities the SMT-LIB grammar rejects.
func nary(op string, args []string) string {
	switch len(args) {
	case 0:
		if op == "and" {
			return "true"
		}
		return "false"
	case 1:
		return args[0]
	}
	return "(" + op + " " + strings.Join(args, " ") + ")"
}

func cellID(ex *ir.Expr) arena.CellID {
	return arena.CellID(ex.Cell)
}
