package model

import (
	"fmt"

	"github.com/vhavlena/veritla/pkg/arena"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/smt"
	"github.com/vhavlena/veritla/pkg/types"
)

// StringLookup resolves an interned string-constant cell back to its
// string; the rewriter provides it.
type StringLookup func(id arena.CellID) (string, bool)

// Decoder reads concrete values for arena cells out of the model held by
// the gateway after a successful satisfiability check.
type Decoder struct {
	gw      smt.Gateway
	arena   *arena.Arena
	strings StringLookup
}

// NewDecoder creates a decoder over the gateway's current model.
//
// Parameters:
//
//	gw smt.Gateway: The gateway holding the model.
//	a *arena.Arena: The arena the cells live in.
//	strings StringLookup: Resolver for interned string cells; may be nil.
//
// Returns:
//
//	*Decoder: The decoder.
func NewDecoder(gw smt.Gateway, a *arena.Arena, strings StringLookup) *Decoder {
	return &Decoder{gw: gw, arena: a, strings: strings}
}

// DecodeCell decodes one cell into a concrete Value by evaluating its
// constant and, for structured types, the membership predicates of its
// edges.
//
// Parameters:
//
//	c arena.Cell: The cell to decode.
//
// Returns:
//
//	Value: The decoded value.
//	error: Failure when no model is available or the type is unsupported.
func (d *Decoder) DecodeCell(c arena.Cell) (Value, error) {
	tp := c.Type()
	switch tp.Kind {
	case types.KindBool:
		v, err := d.gw.EvalBool(smt.CellName(c.ID()))
		if err != nil {
			return Value{}, err
		}
		return NewBoolValue(v), nil
	case types.KindInt:
		v, err := d.gw.EvalInt(smt.CellName(c.ID()))
		if err != nil {
			return Value{}, err
		}
		return NewIntValue(v), nil
	case types.KindStr:
		if d.strings != nil {
			if s, ok := d.strings(c.ID()); ok {
				return NewStringValue(s), nil
			}
		}
		return NewStringValue(smt.CellName(c.ID())), nil
	case types.KindConst:
		v, err := d.gw.EvalInt(smt.CellName(c.ID()))
		if err != nil {
			return Value{}, err
		}
		return NewStringValue(fmt.Sprintf("%s!%d", tp.Sort, v)), nil
	case types.KindFinSet:
		return d.decodeSet(c)
	case types.KindTuple:
		return d.decodeTuple(c)
	case types.KindRecord:
		return d.decodeRecord(c)
	case types.KindSeq:
		return d.decodeSeq(c)
	case types.KindFun:
		return d.decodeFun(c)
	}
	return Value{}, fmt.Errorf("%w: cannot decode type %s", verr.ErrNoModel, tp.PrettyPrint())
}

// decodeSet keeps the elements whose membership predicate holds in the
// model.
func (d *Decoder) decodeSet(c arena.Cell) (Value, error) {
	items := make([]Value, 0, len(d.arena.Has(c.ID())))
	for _, e := range d.arena.Has(c.ID()) {
		member, err := d.gw.EvalBool(smt.InPredName(c.ID(), e))
		if err != nil {
			return Value{}, err
		}
		if !member {
			continue
		}
		ec, _ := d.arena.CellOf(e)
		item, err := d.DecodeCell(ec)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return NewSetValue(items), nil
}

func (d *Decoder) decodeTuple(c arena.Cell) (Value, error) {
	items := make([]Value, 0, len(d.arena.Has(c.ID())))
	for _, e := range d.arena.Has(c.ID()) {
		ec, _ := d.arena.CellOf(e)
		item, err := d.DecodeCell(ec)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return NewArrayValue(items), nil
}

// decodeRecord reports the fields whose keys belong to the record's domain
// in the model.
func (d *Decoder) decodeRecord(c arena.Cell) (Value, error) {
	dom, ok := d.arena.Dom(c.ID())
	if !ok {
		return Value{}, verr.ErrCellShape(int(c.ID()), "record cell has no domain edge")
	}
	tp := c.Type()
	values := d.arena.Has(c.ID())
	keys := d.arena.Has(dom)
	fields := make(map[string]Value, len(tp.FieldOrder))
	for i, name := range tp.FieldOrder {
		if i >= len(values) || i >= len(keys) {
			return Value{}, verr.ErrCellShape(int(c.ID()), "record instance is shorter than its schema")
		}
		present, err := d.gw.EvalBool(smt.InPredName(dom, keys[i]))
		if err != nil {
			return Value{}, err
		}
		if !present {
			continue
		}
		vc, _ := d.arena.CellOf(values[i])
		fv, err := d.DecodeCell(vc)
		if err != nil {
			return Value{}, err
		}
		fields[name] = fv
	}
	return NewMapValue(fields), nil
}

// decodeSeq evaluates the start and end markers and decodes the logical
// window.
func (d *Decoder) decodeSeq(c arena.Cell) (Value, error) {
	has := d.arena.Has(c.ID())
	if len(has) < 2 {
		return Value{}, verr.ErrCellShape(int(c.ID()), "sequence cell misses its start/end markers")
	}
	start, err := d.gw.EvalInt(smt.CellName(has[0]))
	if err != nil {
		return Value{}, err
	}
	end, err := d.gw.EvalInt(smt.CellName(has[1]))
	if err != nil {
		return Value{}, err
	}
	elems := has[2:]
	items := make([]Value, 0, len(elems))
	for i := start; i < end; i++ {
		if i < 0 || int(i) >= len(elems) {
			break
		}
		ec, _ := d.arena.CellOf(elems[i])
		item, err := d.DecodeCell(ec)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return NewArrayValue(items), nil
}

// decodeFun decodes the relation of a function into a map from rendered
// arguments to result values.
func (d *Decoder) decodeFun(c arena.Cell) (Value, error) {
	rel, ok := d.arena.Cdm(c.ID())
	if !ok {
		return Value{}, verr.ErrCellShape(int(c.ID()), "function cell has no relation edge")
	}
	entries := make(map[string]Value)
	for _, pair := range d.arena.Has(rel) {
		member, err := d.gw.EvalBool(smt.InPredName(rel, pair))
		if err != nil {
			return Value{}, err
		}
		if !member {
			continue
		}
		pc, _ := d.arena.CellOf(pair)
		pv, err := d.decodeTuple(pc)
		if err != nil {
			return Value{}, err
		}
		comps, _ := pv.Slice()
		if len(comps) != 2 {
			return Value{}, verr.ErrCellShape(int(pair), "relation pair is not binary")
		}
		entries[comps[0].Render()] = comps[1]
	}
	return NewMapValue(entries), nil
}
