// Package types describes the cell type lattice of the symbolic engine.
package types

import (
	"sort"
	"strings"
)

// CellKind represents the kind of a cell type
type CellKind string

const (
	KindUnknown   CellKind = "unknown"
	KindBool      CellKind = "bool"
	KindInt       CellKind = "int"
	KindStr       CellKind = "str"
	KindConst     CellKind = "const"
	KindFinSet    CellKind = "finset"
	KindFun       CellKind = "fun"
	KindFinFunSet CellKind = "funset"
	KindRecord    CellKind = "record"
	KindTuple     CellKind = "tuple"
	KindSeq       CellKind = "seq"
)

// CellType represents a full cell type of the symbolic engine
type CellType struct {
	Kind CellKind

	// Sort is the uninterpreted sort name when Kind is const.
	Sort string
	// Elem is the element type for finite sets and sequences.
	Elem *CellType
	// Arg and Res are the argument and result types of a function.
	Arg *CellType
	Res *CellType
	// DomElem and CdmElem are the element types of the domain and codomain
	// sets of a function set.
	DomElem *CellType
	CdmElem *CellType
	// Fields and FieldOrder describe a record schema; FieldOrder fixes the
	// layout of the record's value cells in the arena.
	Fields     map[string]CellType
	FieldOrder []string
	// Types lists the component types of a tuple.
	Types []CellType
}

// NewUnknownType creates the placeholder type used only by the statically
// empty set constant.
func NewUnknownType() CellType {
	return CellType{Kind: KindUnknown}
}

// NewBoolType creates the boolean cell type.
func NewBoolType() CellType {
	return CellType{Kind: KindBool}
}

// NewIntType creates the integer cell type.
func NewIntType() CellType {
	return CellType{Kind: KindInt}
}

// NewStrType creates the string cell type.
func NewStrType() CellType {
	return CellType{Kind: KindStr}
}

// NewConstType creates an uninterpreted-constant cell type over the given
// sort name.
func NewConstType(sort string) CellType {
	return CellType{Kind: KindConst, Sort: sort}
}

// NewFinSetType creates a finite set type over the given element type.
func NewFinSetType(elem CellType) CellType {
	return CellType{Kind: KindFinSet, Elem: &elem}
}

// NewSeqType creates a sequence type over the given element type.
func NewSeqType(elem CellType) CellType {
	return CellType{Kind: KindSeq, Elem: &elem}
}

// NewFunType creates a function type with the given argument and result
// element types.
func NewFunType(arg, res CellType) CellType {
	return CellType{Kind: KindFun, Arg: &arg, Res: &res}
}

// NewFinFunSetType creates the type of the set of all functions between two
// given sets, identified by their element types.
func NewFinFunSetType(domElem, cdmElem CellType) CellType {
	return CellType{Kind: KindFinFunSet, DomElem: &domElem, CdmElem: &cdmElem}
}

// NewRecordType creates a record type. The field order is the sorted field
// name sequence, which fixes the arena layout of record instances.
func NewRecordType(fields map[string]CellType) CellType {
	order := make([]string, 0, len(fields))
	for name := range fields {
		order = append(order, name)
	}
	sort.Strings(order)
	return CellType{Kind: KindRecord, Fields: fields, FieldOrder: order}
}

// NewTupleType creates a tuple type over the given component types.
func NewTupleType(componentTypes []CellType) CellType {
	cp := make([]CellType, len(componentTypes))
	copy(cp, componentTypes)
	return CellType{Kind: KindTuple, Types: cp}
}

// IsUnknown returns true if the type is the unknown placeholder
func (t *CellType) IsUnknown() bool {
	return t.Kind == KindUnknown
}

// IsScalar returns true if the type is a scalar (bool, int, str, or an
// uninterpreted constant)
func (t *CellType) IsScalar() bool {
	switch t.Kind {
	case KindBool, KindInt, KindStr, KindConst:
		return true
	}
	return false
}

// IsFinSet returns true if the type is a finite set
func (t *CellType) IsFinSet() bool {
	return t.Kind == KindFinSet
}

// IsFun returns true if the type is a function
func (t *CellType) IsFun() bool {
	return t.Kind == KindFun
}

// IsEqual checks if this type is exactly equal to another type
func (t *CellType) IsEqual(other *CellType) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindUnknown, KindBool, KindInt, KindStr:
		return true
	case KindConst:
		return t.Sort == other.Sort
	case KindFinSet, KindSeq:
		return t.Elem.IsEqual(other.Elem)
	case KindFun:
		return t.Arg.IsEqual(other.Arg) && t.Res.IsEqual(other.Res)
	case KindFinFunSet:
		return t.DomElem.IsEqual(other.DomElem) && t.CdmElem.IsEqual(other.CdmElem)
	case KindRecord:
		if len(t.Fields) != len(other.Fields) {
			return false
		}
		for name, ft := range t.Fields {
			ot, ok := other.Fields[name]
			if !ok || !ft.IsEqual(&ot) {
				return false
			}
		}
		return true
	case KindTuple:
		if len(t.Types) != len(other.Types) {
			return false
		}
		for i := range t.Types {
			if !t.Types[i].IsEqual(&other.Types[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Comparable reports whether the lazy equality engine is permitted to relate
// two cell types. The relation is symmetric and reflexive: it holds for the
// same scalar kind, for structural containers of the same shape whose
// component types are pairwise comparable, and whenever either side is the
// unknown placeholder.
//
// Parameters:
//
//	a *CellType: The first type.
//	b *CellType: The second type.
//
// Returns:
//
//	bool: True if the types may be related by equality.
func Comparable(a, b *CellType) bool {
	if a.IsUnknown() || b.IsUnknown() {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool, KindInt, KindStr:
		return true
	case KindConst:
		return a.Sort == b.Sort
	case KindFinSet, KindSeq:
		return Comparable(a.Elem, b.Elem)
	case KindFun:
		return Comparable(a.Arg, b.Arg) && Comparable(a.Res, b.Res)
	case KindFinFunSet:
		return Comparable(a.DomElem, b.DomElem) && Comparable(a.CdmElem, b.CdmElem)
	case KindRecord:
		// Records with different schemas stay comparable on their common
		// fields; equality constraints handle one-sided fields.
		for name, at := range a.Fields {
			if bt, ok := b.Fields[name]; ok {
				if !Comparable(&at, &bt) {
					return false
				}
			}
		}
		return true
	case KindTuple:
		if len(a.Types) != len(b.Types) {
			return false
		}
		for i := range a.Types {
			if !Comparable(&a.Types[i], &b.Types[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Signature returns the canonical SMT sort signature of the type. Comparable
// types share signatures up to occurrences of the unknown placeholder, which
// prints as a wildcard, except records: a record's signature lists its own
// fields, so comparable records with different schemas have different
// signatures.
//
// Returns:
//
//	string: The signature string.
func (t *CellType) Signature() string {
	switch t.Kind {
	case KindUnknown:
		return "*"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindStr:
		return "Str"
	case KindConst:
		return "U_" + t.Sort
	case KindFinSet:
		return "Set_" + t.Elem.Signature()
	case KindSeq:
		return "Seq_" + t.Elem.Signature()
	case KindFun:
		return "Fun_" + t.Arg.Signature() + "_" + t.Res.Signature()
	case KindFinFunSet:
		return "FunSet_" + t.DomElem.Signature() + "_" + t.CdmElem.Signature()
	case KindRecord:
		parts := make([]string, 0, len(t.FieldOrder))
		for _, name := range t.FieldOrder {
			ft := t.Fields[name]
			parts = append(parts, name+":"+ft.Signature())
		}
		return "Rec_" + strings.Join(parts, "_")
	case KindTuple:
		parts := make([]string, 0, len(t.Types))
		for i := range t.Types {
			parts = append(parts, t.Types[i].Signature())
		}
		return "Tup_" + strings.Join(parts, "_")
	}
	return "invalid"
}

// PrettyPrint returns a human-readable string representation of the type.
//
// Returns:
//
//	string: The pretty-printed type.
func (t *CellType) PrettyPrint() string {
	switch t.Kind {
	case KindUnknown:
		return "unknown"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindStr:
		return "str"
	case KindConst:
		return "const<" + t.Sort + ">"
	case KindFinSet:
		return "set<" + t.Elem.PrettyPrint() + ">"
	case KindSeq:
		return "seq<" + t.Elem.PrettyPrint() + ">"
	case KindFun:
		return "fun<" + t.Arg.PrettyPrint() + ", " + t.Res.PrettyPrint() + ">"
	case KindFinFunSet:
		return "funset<" + t.DomElem.PrettyPrint() + ", " + t.CdmElem.PrettyPrint() + ">"
	case KindRecord:
		parts := make([]string, 0, len(t.FieldOrder))
		for _, name := range t.FieldOrder {
			ft := t.Fields[name]
			parts = append(parts, name+": "+ft.PrettyPrint())
		}
		return "record{" + strings.Join(parts, ", ") + "}"
	case KindTuple:
		parts := make([]string, 0, len(t.Types))
		for i := range t.Types {
			parts = append(parts, t.Types[i].PrettyPrint())
		}
		return "tuple<" + strings.Join(parts, ", ") + ">"
	}
	return "invalid"
}
