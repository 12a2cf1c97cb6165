// Package model decodes satisfying solver models into concrete values for
// the cells of the arena.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// ValueKind enumerates the value categories a cell can decode to.
//
// Values:
//
//	ValueInvalid | ValueBool | ValueInt | ValueString | ValueSet | ValueArray | ValueMap
type ValueKind string

const (
	ValueInvalid ValueKind = "invalid"
	ValueBool    ValueKind = "bool"
	ValueInt     ValueKind = "int"
	ValueString  ValueKind = "string"
	ValueSet     ValueKind = "set"
	ValueArray   ValueKind = "array"
	ValueMap     ValueKind = "map"
)

// Value is a tagged union over the decoded payloads. Sets and sequences use
// the slice payload (sets with ValueSet, sequences and tuples with
// ValueArray); records and functions use the map payload.
type Value struct {
	kind      ValueKind
	boolVal   bool
	intVal    int64
	stringVal string
	sliceVal  []Value
	mapVal    map[string]Value
}

// NewBoolValue creates a Value that stores a boolean.
func NewBoolValue(v bool) Value {
	return Value{kind: ValueBool, boolVal: v}
}

// NewIntValue creates a Value that stores a signed integer.
func NewIntValue(v int64) Value {
	return Value{kind: ValueInt, intVal: v}
}

// NewStringValue creates a Value that stores a string.
func NewStringValue(v string) Value {
	return Value{kind: ValueString, stringVal: v}
}

// NewSetValue creates a Value that stores an unordered collection.
//
// Parameters:
//
//	items []Value: Elements of the resulting set.
//
// Returns:
//
//	Value: A Value tagged as ValueSet with a defensive copy of items.
func NewSetValue(items []Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: ValueSet, sliceVal: cp}
}

// NewArrayValue creates a Value that stores an ordered collection.
func NewArrayValue(items []Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: ValueArray, sliceVal: cp}
}

// NewMapValue creates a Value that stores a string-keyed map.
func NewMapValue(entries map[string]Value) Value {
	cp := make(map[string]Value, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return Value{kind: ValueMap, mapVal: cp}
}

// Kind returns the discriminator for the stored data.
func (v Value) Kind() ValueKind {
	if v.kind == "" {
		return ValueInvalid
	}
	return v.kind
}

// Bool returns the boolean payload when the Value represents a bool.
func (v Value) Bool() (bool, bool) {
	if v.kind != ValueBool {
		return false, false
	}
	return v.boolVal, true
}

// Int64 returns the integer payload when the Value represents an int.
func (v Value) Int64() (int64, bool) {
	if v.kind != ValueInt {
		return 0, false
	}
	return v.intVal, true
}

// Str returns the string payload when the Value represents a string.
func (v Value) Str() (string, bool) {
	if v.kind != ValueString {
		return "", false
	}
	return v.stringVal, true
}

// Slice returns the collection payload when the Value represents a set, an
// array, or a tuple.
//
// Returns:
//
//	[]Value: Defensive copy of the stored slice.
//	bool: True when the Value actually contains a collection.
func (v Value) Slice() ([]Value, bool) {
	if v.kind != ValueSet && v.kind != ValueArray {
		return nil, false
	}
	cp := make([]Value, len(v.sliceVal))
	copy(cp, v.sliceVal)
	return cp, true
}

// Map returns the map payload when the Value represents a record or a
// function.
//
// Returns:
//
//	map[string]Value: Defensive copy of the stored map.
//	bool: True when the Value actually contains a map.
func (v Value) Map() (map[string]Value, bool) {
	if v.kind != ValueMap {
		return nil, false
	}
	cp := make(map[string]Value, len(v.mapVal))
	for k, val := range v.mapVal {
		cp[k] = val
	}
	return cp, true
}

// Render produces a deterministic human-readable form of the value,
// suitable for counterexample printing.
//
// Returns:
//
//	string: The rendered value.
func (v Value) Render() string {
	switch v.kind {
	case ValueBool:
		return fmt.Sprintf("%v", v.boolVal)
	case ValueInt:
		return fmt.Sprintf("%d", v.intVal)
	case ValueString:
		return fmt.Sprintf("%q", v.stringVal)
	case ValueSet, ValueArray:
		parts := make([]string, 0, len(v.sliceVal))
		for _, item := range v.sliceVal {
			parts = append(parts, item.Render())
		}
		if v.kind == ValueSet {
			sort.Strings(parts)
			return "{" + strings.Join(parts, ", ") + "}"
		}
		return "<" + strings.Join(parts, ", ") + ">"
	case ValueMap:
		keys := make([]string, 0, len(v.mapVal))
		for k := range v.mapVal {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+" |-> "+v.mapVal[k].Render())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "<invalid>"
}
