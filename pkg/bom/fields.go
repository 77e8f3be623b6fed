package bom

import (
	"sort"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/netlist"
)

// Fixed column names. Every row starts with these three cells.
const (
	ColumnValue      = "Value"
	ColumnReferences = "Reference(s)"
	ColumnFootprint  = "Footprint"
)

// FixedColumns is the hard-coded column prefix
var FixedColumns = []string{ColumnValue, ColumnReferences, ColumnFootprint}

// ReservedLibPartFields are library-part fields that never become columns,
// since the fixed columns or the component itself already carry them.
var ReservedLibPartFields = map[string]bool{
	"Reference": true,
	"Value":     true,
	"Datasheet": true,
	"Footprint": true,
}

// ComputeColumns returns the full column list for a set of components:
// the fixed prefix followed by the sorted union of their field names and
// the field names of the given library parts.
func ComputeColumns(components []*netlist.Component, libParts []*netlist.LibPart) []string {
	return Assemble(FixedColumns, ExtraColumns(components, libParts))
}

// ExtraColumns returns the sorted union of component field names and
// non-reserved library-part field names. Names matching a fixed column
// are dropped so the final list never repeats a column.
func ExtraColumns(components []*netlist.Component, libParts []*netlist.LibPart) []string {
	set := make(map[string]bool)

	for _, c := range components {
		for _, f := range c.Fields {
			set[f.Name] = true
		}
	}

	for _, p := range libParts {
		for _, f := range p.Fields {
			if ReservedLibPartFields[f.Name] {
				continue
			}
			set[f.Name] = true
		}
	}

	for _, name := range FixedColumns {
		delete(set, name)
	}

	extra := make([]string, 0, len(set))
	for name := range set {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	return extra
}
