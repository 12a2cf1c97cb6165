package ir

import (
	"fmt"

	"github.com/vhavlena/veritla/pkg/types"
)

// FromMap decodes an expression from the generic map shape produced by YAML
// or JSON unmarshalling. The shape uses one discriminating key per node:
//
//	{bool: true} {int: 3} {str: "a"} {name: "v"} {prime: "v"}
//	{op: "and", args: [...], type: "set(int)"}
//
// The optional type key attaches a cell type annotation.
//
// Parameters:
//
//	m map[string]interface{}: The generic node representation.
//	g *IdGen: The unique-id generator capability.
//
// Returns:
//
//	*Expr: The decoded expression.
//	error: An error if the shape is not recognized.
func FromMap(m map[string]interface{}, g *IdGen) (*Expr, error) {
	var ex *Expr
	switch {
	case m["bool"] != nil:
		v, ok := m["bool"].(bool)
		if !ok {
			return nil, fmt.Errorf("bool node requires a boolean payload, got %T", m["bool"])
		}
		ex = NewBool(g, v)
	case m["int"] != nil:
		switch v := m["int"].(type) {
		case float64:
			ex = NewInt(g, int64(v))
		case int:
			ex = NewInt(g, int64(v))
		case int64:
			ex = NewInt(g, v)
		default:
			return nil, fmt.Errorf("int node requires a numeric payload, got %T", m["int"])
		}
	case m["str"] != nil:
		v, ok := m["str"].(string)
		if !ok {
			return nil, fmt.Errorf("str node requires a string payload, got %T", m["str"])
		}
		ex = NewStr(g, v)
	case m["name"] != nil:
		v, ok := m["name"].(string)
		if !ok {
			return nil, fmt.Errorf("name node requires a string payload, got %T", m["name"])
		}
		ex = NewName(g, v)
	case m["prime"] != nil:
		v, ok := m["prime"].(string)
		if !ok {
			return nil, fmt.Errorf("prime node requires a string payload, got %T", m["prime"])
		}
		ex = NewPrime(g, v)
	case m["op"] != nil:
		opName, ok := m["op"].(string)
		if !ok {
			return nil, fmt.Errorf("op node requires a string operator, got %T", m["op"])
		}
		var args []*Expr
		if raw, present := m["args"]; present {
			list, ok := raw.([]interface{})
			if !ok {
				return nil, fmt.Errorf("args of %s must be a list, got %T", opName, raw)
			}
			args = make([]*Expr, 0, len(list))
			for _, item := range list {
				child, ok := item.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("argument of %s must be a node, got %T", opName, item)
				}
				arg, err := FromMap(child, g)
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
		}
		ex = NewOper(g, Oper(opName), args...)
	default:
		return nil, fmt.Errorf("unrecognized IR node shape %v", m)
	}

	if raw, present := m["type"]; present {
		ts, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("type annotation must be a string, got %T", raw)
		}
		tp, err := types.ParseType(ts)
		if err != nil {
			return nil, err
		}
		ex = ex.WithType(tp)
	}
	return ex, nil
}
