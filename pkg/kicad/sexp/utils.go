package sexp

import (
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/sexp/kicadsexp"
)

// S-expression navigation helpers

// Items returns the elements of a list node, or nil for atoms
func Items(s kicadsexp.Sexp) []kicadsexp.Sexp {
	if l, ok := s.(*kicadsexp.List); ok {
		return l.Items()
	}
	return nil
}

// FindNode searches for a child list whose first symbol is key
// Example: FindNode(comp, "value") finds (value "10k") in a list
func FindNode(s kicadsexp.Sexp, key string) (kicadsexp.Sexp, bool) {
	for _, item := range Items(s) {
		if name, err := GetNodeName(item); err == nil && !item.IsLeaf() && name == key {
			return item, true
		}
	}
	return nil, false
}

// FindAllNodes finds all child lists with the given key
func FindAllNodes(s kicadsexp.Sexp, key string) []kicadsexp.Sexp {
	var results []kicadsexp.Sexp
	for _, item := range Items(s) {
		if item.IsLeaf() {
			continue
		}
		if name, err := GetNodeName(item); err == nil && name == key {
			results = append(results, item)
		}
	}
	return results
}

// GetListItems returns all items in a list (excluding the first symbol/key)
// Example: GetListItems((fp "R_*" "C_*")) returns ["R_*", "C_*"]
func GetListItems(s kicadsexp.Sexp) []kicadsexp.Sexp {
	items := Items(s)
	if len(items) <= 1 {
		return nil
	}
	return items[1:]
}

// GetString extracts an atom at the given index in a list.
// Index 0 is the key, 1 is first value, etc.
func GetString(s kicadsexp.Sexp, index int) (string, error) {
	if s == nil || s.IsLeaf() {
		return "", fmt.Errorf("expected list, got leaf")
	}

	items := Items(s)
	if index < 0 || index >= len(items) {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, len(items))
	}

	if sym, ok := items[index].(kicadsexp.Symbol); ok {
		return string(sym), nil
	}

	return "", fmt.Errorf("expected symbol at index %d, got %T", index, items[index])
}

// GetInt extracts an int value at the given index
func GetInt(s kicadsexp.Sexp, index int) (int, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}

	return val, nil
}

// ChildString returns the first value of the child node named key,
// e.g. ChildString(comp, "ref") for (comp (ref "R1") ...). Missing
// nodes and empty nodes yield "".
func ChildString(s kicadsexp.Sexp, key string) string {
	node, ok := FindNode(s, key)
	if !ok {
		return ""
	}
	str, _ := GetString(node, 1)
	return str
}

// HasSymbol checks if a list contains a specific bare symbol
func HasSymbol(s kicadsexp.Sexp, symbol string) bool {
	for _, item := range Items(s) {
		if sym, ok := item.(kicadsexp.Symbol); ok && string(sym) == symbol {
			return true
		}
	}
	return false
}

// GetYesNo reads a (key yes|no) flag node. Absent nodes report def.
// A bare (key) is treated as yes.
func GetYesNo(s kicadsexp.Sexp, key string, def bool) bool {
	node, ok := FindNode(s, key)
	if !ok {
		return def
	}
	val, err := GetString(node, 1)
	if err != nil {
		return true
	}
	return val == "yes" || val == "true"
}

// GetNodeName returns the first symbol of a list (the node type/name)
func GetNodeName(s kicadsexp.Sexp) (string, error) {
	if s == nil {
		return "", fmt.Errorf("nil node")
	}
	if sym, ok := s.(kicadsexp.Symbol); ok {
		return string(sym), nil
	}

	head := s.Head()
	if sym, ok := head.(kicadsexp.Symbol); ok {
		return string(sym), nil
	}

	return "", fmt.Errorf("expected symbol at head of list")
}

// GetUUID extracts a UUID from a (uuid "...") node
func GetUUID(s kicadsexp.Sexp) (UUID, error) {
	key, err := GetString(s, 0)
	if err != nil || key != "uuid" {
		return "", fmt.Errorf("expected 'uuid' node")
	}

	str, err := GetString(s, 1)
	if err != nil {
		return "", err
	}
	return UUID(str), nil
}

// GetProperty extracts a property from a (property "key" "value" ...) node
func GetProperty(s kicadsexp.Sexp) (Property, error) {
	prop := Property{}

	key, err := GetString(s, 0)
	if err != nil || key != "property" {
		return prop, fmt.Errorf("expected (property ...) list")
	}

	prop.Key, err = GetString(s, 1)
	if err != nil {
		return prop, fmt.Errorf("failed to parse property key: %w", err)
	}

	// Value can be missing
	prop.Value, _ = GetString(s, 2)

	// KiCad 8 uses (hide yes) on the property, older files put a bare
	// hide inside (effects ...)
	if GetYesNo(s, "hide", false) {
		prop.Hide = true
	} else if effects, ok := FindNode(s, "effects"); ok {
		prop.Hide = HasSymbol(effects, "hide") || GetYesNo(effects, "hide", false)
	}

	return prop, nil
}

// GetField extracts a netlist field from a (field (name "X") "value") node.
// A field with no value atom has an empty value.
func GetField(s kicadsexp.Sexp) (Field, error) {
	key, err := GetString(s, 0)
	if err != nil || key != "field" {
		return Field{}, fmt.Errorf("expected (field ...) list")
	}

	f := Field{Name: ChildString(s, "name")}
	for _, item := range GetListItems(s) {
		if sym, ok := item.(kicadsexp.Symbol); ok {
			f.Value = string(sym)
			break
		}
	}
	return f, nil
}
