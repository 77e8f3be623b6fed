// Package schematic provides parsing for KiCad schematic files (.kicad_sch).
// Only the parts that describe placed parts are read: library symbols,
// symbol instances with their properties, and hierarchical sheet references.
package schematic

import (
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/sexp"
)

// Re-export shared types from sexp package for convenience
type UUID = sexp.UUID
type Property = sexp.Property

// Schematic represents a complete KiCad schematic file
type Schematic struct {
	Version      int         // File format version
	Generator    string      // Generator info (e.g., "eeschema")
	GeneratorVer string      // Generator version
	UUID         UUID        // Schematic UUID
	Paper        string      // Paper size (e.g., "A4")
	TitleBlock   TitleBlock  // Title block information
	LibSymbols   []LibSymbol // Embedded library symbols
	Symbols      []Symbol    // Symbol instances on the schematic
	Sheets       []Sheet     // Hierarchical sheet references

	// SymbolInstances is the KiCad 6 root-level (symbol_instances ...)
	// table. Paths there end in the symbol UUID and omit the root sheet.
	SymbolInstances []Instance
}

// TitleBlock contains schematic title block information
type TitleBlock struct {
	Title    string
	Date     string
	Revision string
	Company  string
}

// LibSymbol represents an embedded library symbol definition
type LibSymbol struct {
	Name       string     // Symbol name (e.g., "Device:R")
	Power      bool       // Power symbol (#PWR, #FLG)
	InBom      bool       // Include in BOM
	OnBoard    bool       // Place on board
	Properties []Property // Symbol properties
}

// Symbol represents a symbol instance placed on the schematic
type Symbol struct {
	LibID      string     // Library identifier (e.g., "Device:R")
	Unit       int        // Unit number (for multi-unit symbols)
	InBom      bool       // Include in BOM
	OnBoard    bool       // Place on board
	DNP        bool       // Do not populate
	UUID       UUID       // Instance UUID
	Properties []Property // Instance properties (Reference, Value, etc.)
	Instances  []Instance // Per-sheet-instance annotation (KiCad 7+)
}

// Instance is the annotation of a symbol in one placement of its sheet.
// In a symbol's (instances ...) block Path is the sheet path, e.g.
// "/<root uuid>/<sheet uuid>".
type Instance struct {
	Project   string
	Path      string
	Reference string
	Unit      int
}

// Sheet represents a hierarchical sheet reference
type Sheet struct {
	UUID     UUID
	Name     string // Sheetname property
	FileName string // Sheetfile property, relative to the parent file
}

// Property returns the value of the named property, or "" when absent
func (s *Symbol) Property(key string) string {
	return propertyValue(s.Properties, key)
}

// Reference returns the Reference property as stored in the file. For a
// sheet placed more than once this is only the annotation KiCad last wrote;
// use InstanceAt for the designator of a particular placement.
func (s *Symbol) Reference() string {
	return s.Property("Reference")
}

// InstanceAt returns the annotation recorded for the sheet instance at
// path, if any.
func (s *Symbol) InstanceAt(path string) (Instance, bool) {
	for _, inst := range s.Instances {
		if inst.Path == path {
			return inst, true
		}
	}
	return Instance{}, false
}

// RootPath returns the sheet path of the root sheet, "/<uuid>"
func (s *Schematic) RootPath() string {
	return "/" + string(s.UUID)
}

// LegacyInstance looks up the KiCad 6 symbol_instances entry for the
// symbol with the given UUID. sheetPath excludes the root sheet and is ""
// for symbols on the root sheet itself.
func (s *Schematic) LegacyInstance(sheetPath string, symbol UUID) (Instance, bool) {
	want := sheetPath + "/" + string(symbol)
	for _, inst := range s.SymbolInstances {
		if inst.Path == want {
			return inst, true
		}
	}
	return Instance{}, false
}

// Property returns the value of the named property, or "" when absent
func (l *LibSymbol) Property(key string) string {
	return propertyValue(l.Properties, key)
}

// GetSymbol returns a symbol by reference designator
func (s *Schematic) GetSymbol(ref string) *Symbol {
	for i := range s.Symbols {
		if s.Symbols[i].Reference() == ref {
			return &s.Symbols[i]
		}
	}
	return nil
}

// GetLibSymbol returns the embedded library symbol with the given name
func (s *Schematic) GetLibSymbol(name string) *LibSymbol {
	for i := range s.LibSymbols {
		if s.LibSymbols[i].Name == name {
			return &s.LibSymbols[i]
		}
	}
	return nil
}

// GetAllReferences returns all reference designators
func (s *Schematic) GetAllReferences() []string {
	var refs []string
	for _, sym := range s.Symbols {
		if ref := sym.Reference(); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

func propertyValue(props []Property, key string) string {
	for _, p := range props {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}
