// Package sexp provides shared S-expression navigation for KiCad files.
// It holds the node helpers used by both the netlist and schematic readers.
package sexp

// UUID represents a unique identifier (used in KiCad v6+ files)
type UUID string

// Property represents a key-value property (used in symbols and lib symbols)
type Property struct {
	Key   string
	Value string
	Hide  bool // (hide yes) or bare hide flag in effects
}

// Field is a named value, as found in (field (name "X") "value") nodes
type Field struct {
	Name  string
	Value string
}
