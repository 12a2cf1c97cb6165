package types

import (
	"fmt"
	"strings"
)

// ParseType parses a compact textual type such as "int", "set(int)",
// "seq(str)", "fun(int, bool)", "funset(int, int)", "const(PROC)",
// "tuple(int, bool)", or "record(name: str, age: int)". Used by the YAML
// configuration to declare state-variable types.
//
// Parameters:
//
//	s string: The textual type.
//
// Returns:
//
//	CellType: The parsed cell type.
//	error: An error if the text is not a valid type.
func ParseType(s string) (CellType, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "bool":
		return NewBoolType(), nil
	case "int":
		return NewIntType(), nil
	case "str":
		return NewStrType(), nil
	case "unknown":
		return NewUnknownType(), nil
	}

	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return CellType{}, fmt.Errorf("unknown type %q", s)
	}
	head := strings.TrimSpace(s[:open])
	body := s[open+1 : len(s)-1]

	switch head {
	case "const":
		sort := strings.TrimSpace(body)
		if sort == "" {
			return CellType{}, fmt.Errorf("const type requires a sort name in %q", s)
		}
		return NewConstType(sort), nil
	case "set", "seq":
		elem, err := ParseType(body)
		if err != nil {
			return CellType{}, err
		}
		if head == "set" {
			return NewFinSetType(elem), nil
		}
		return NewSeqType(elem), nil
	case "fun", "funset":
		parts, err := splitTop(body)
		if err != nil || len(parts) != 2 {
			return CellType{}, fmt.Errorf("%s type requires two components in %q", head, s)
		}
		left, err := ParseType(parts[0])
		if err != nil {
			return CellType{}, err
		}
		right, err := ParseType(parts[1])
		if err != nil {
			return CellType{}, err
		}
		if head == "fun" {
			return NewFunType(left, right), nil
		}
		return NewFinFunSetType(left, right), nil
	case "tuple":
		parts, err := splitTop(body)
		if err != nil {
			return CellType{}, err
		}
		components := make([]CellType, 0, len(parts))
		for _, p := range parts {
			ct, err := ParseType(p)
			if err != nil {
				return CellType{}, err
			}
			components = append(components, ct)
		}
		return NewTupleType(components), nil
	case "record":
		parts, err := splitTop(body)
		if err != nil {
			return CellType{}, err
		}
		fields := make(map[string]CellType, len(parts))
		for _, p := range parts {
			colon := strings.IndexByte(p, ':')
			if colon < 0 {
				return CellType{}, fmt.Errorf("record field %q misses a type", p)
			}
			name := strings.TrimSpace(p[:colon])
			ft, err := ParseType(p[colon+1:])
			if err != nil {
				return CellType{}, err
			}
			fields[name] = ft
		}
		return NewRecordType(fields), nil
	}
	return CellType{}, fmt.Errorf("unknown type %q", s)
}

// splitTop splits a comma-separated list at the top parenthesis level.
func splitTop(s string) ([]string, error) {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", s)
	}
	parts = append(parts, s[start:])
	return parts, nil
}
