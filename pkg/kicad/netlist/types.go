// Package netlist reads KiCad design exports into a flat component model
// suitable for BOM generation. Three inputs are understood: the generic XML
// netlist, the s-expression netlist, and .kicad_sch schematics, which are
// converted into the same model.
package netlist

import (
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/sexp"
)

// Field is a named component or library-part attribute
type Field = sexp.Field

// Format identifies the kind of file a Netlist was read from
type Format string

const (
	FormatXML       Format = "xml"
	FormatSexpr     Format = "sexpr"
	FormatSchematic Format = "kicad_sch"
)

// Netlist is the in-memory form of one design export
type Netlist struct {
	Version    string     // Export format version ("E" for current KiCad)
	Format     Format     // Input format the netlist was read from
	Design     Design     // Export metadata
	Components []*Component
	LibParts   []*LibPart
}

// Design carries the export header
type Design struct {
	Source string // Root schematic path
	Date   string
	Tool   string // Generating tool, e.g. "Eeschema 8.0.4"
	Sheets []string
}

// LibSource links a component to its library part
type LibSource struct {
	Lib         string
	Part        string
	Description string
}

// ID returns the "lib:part" identity of the linked library part
func (s LibSource) ID() string {
	if s.Lib == "" {
		return s.Part
	}
	return s.Lib + ":" + s.Part
}

// Component is one placed part
type Component struct {
	Ref         string
	Value       string
	Footprint   string
	Datasheet   string
	Description string
	Fields      []Field // Component-level user fields, in file order
	LibSource   LibSource
	Properties  map[string]string

	DNP              bool
	ExcludeFromBOM   bool
	ExcludeFromBoard bool

	libPart *LibPart
}

// Field returns the named component field, or "" when absent
func (c *Component) Field(name string) string {
	for _, f := range c.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// HasField reports whether the component carries the named field at all
func (c *Component) HasField(name string) bool {
	for _, f := range c.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FieldNames returns the names of the component fields in file order
func (c *Component) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		names = append(names, f.Name)
	}
	return names
}

// LibPart returns the library part the component was linked to when the
// netlist was loaded, or nil if none matched.
func (c *Component) LibPart() *LibPart {
	return c.libPart
}

// LinkLibPart sets the library part linkage. Loaders call this; it is
// exported so callers can build netlists by hand.
func (c *Component) LinkLibPart(p *LibPart) {
	c.libPart = p
}

// setProperty records a <property> and maps the well-known flags
func (c *Component) setProperty(name, value string) {
	if c.Properties == nil {
		c.Properties = make(map[string]string)
	}
	c.Properties[name] = value

	switch name {
	case "dnp":
		c.DNP = true
	case "exclude_from_bom":
		c.ExcludeFromBOM = true
	case "exclude_from_board":
		c.ExcludeFromBoard = true
	}
}

// LibPart is a library template shared by components
type LibPart struct {
	Lib         string
	Part        string
	Aliases     []string
	Description string
	Docs        string
	Footprints  []string // Footprint filters
	Fields      []Field
}

// ID returns the "lib:part" identity of the library part
func (p *LibPart) ID() string {
	return LibSource{Lib: p.Lib, Part: p.Part}.ID()
}

// Field returns the named library-part field, or "" when absent
func (p *LibPart) Field(name string) string {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// FieldNames returns the names of the library-part fields in file order
func (p *LibPart) FieldNames() []string {
	names := make([]string, 0, len(p.Fields))
	for _, f := range p.Fields {
		names = append(names, f.Name)
	}
	return names
}

// FindLibPart looks a library part up by lib and part name, falling back
// to aliases within the same library.
func (n *Netlist) FindLibPart(lib, part string) *LibPart {
	for _, p := range n.LibParts {
		if p.Lib == lib && p.Part == part {
			return p
		}
	}
	for _, p := range n.LibParts {
		if p.Lib != lib {
			continue
		}
		for _, alias := range p.Aliases {
			if alias == part {
				return p
			}
		}
	}
	return nil
}

// Link resolves every component's library part
func (n *Netlist) Link() {
	for _, c := range n.Components {
		c.libPart = n.FindLibPart(c.LibSource.Lib, c.LibSource.Part)
	}
}

// GetComponent returns a component by reference designator
func (n *Netlist) GetComponent(ref string) *Component {
	for _, c := range n.Components {
		if c.Ref == ref {
			return c
		}
	}
	return nil
}

// ReferencedLibParts returns the distinct library parts linked from the
// given components, in first-reference order.
func ReferencedLibParts(components []*Component) []*LibPart {
	seen := make(map[*LibPart]bool)
	var parts []*LibPart
	for _, c := range components {
		p := c.LibPart()
		if p == nil || seen[p] {
			continue
		}
		seen[p] = true
		parts = append(parts, p)
	}
	return parts
}
