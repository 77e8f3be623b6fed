package netlist

import (
	"strings"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/schematic"
)

// Properties that map onto dedicated Component members rather than fields
var schematicBuiltinProps = map[string]bool{
	"Reference":   true,
	"Value":       true,
	"Footprint":   true,
	"Datasheet":   true,
	"Description": true,
}

// SheetInstance is one placement of a schematic in the sheet hierarchy
type SheetInstance struct {
	Path      string // Sheet path, "/<root uuid>/<sheet uuid>..."
	Name      string // Sheet name, "" for the root
	Schematic *schematic.Schematic
}

// FromSchematic converts a single schematic without following sub-sheets.
// The sub-sheet names are still listed in the design header.
func FromSchematic(sch *schematic.Schematic) *Netlist {
	nl := FromHierarchy([]SheetInstance{{Path: sch.RootPath(), Schematic: sch}})
	for _, sheet := range sch.Sheets {
		nl.Design.Sheets = append(nl.Design.Sheets, sheet.Name)
	}
	return nl
}

// FromHierarchy converts a walked sheet hierarchy into a Netlist. The first
// instance is the root. Every symbol yields one component per sheet
// instance, designated by that instance's annotation. Symbols sharing a
// reference (units of a multi-unit part) collapse onto the first one seen.
func FromHierarchy(instances []SheetInstance) *Netlist {
	nl := &Netlist{Format: FormatSchematic}
	if len(instances) == 0 {
		return nl
	}

	root := instances[0]
	nl.Version = "kicad_sch"
	nl.Design.Date = root.Schematic.TitleBlock.Date
	nl.Design.Tool = strings.TrimSpace(root.Schematic.Generator + " " + root.Schematic.GeneratorVer)

	seenRefs := make(map[string]bool)
	seenParts := make(map[string]bool)

	for _, inst := range instances {
		sch := inst.Schematic
		if inst.Name != "" {
			nl.Design.Sheets = append(nl.Design.Sheets, inst.Name)
		}

		for i := range sch.LibSymbols {
			lib := &sch.LibSymbols[i]
			if seenParts[lib.Name] {
				continue
			}
			seenParts[lib.Name] = true
			nl.LibParts = append(nl.LibParts, libPartFromSymbol(lib))
		}

		legacyPath := strings.TrimPrefix(inst.Path, root.Path)
		for i := range sch.Symbols {
			sym := &sch.Symbols[i]
			ref := instanceReference(root.Schematic, inst.Path, legacyPath, sym)
			if ref == "" || seenRefs[ref] {
				continue
			}
			seenRefs[ref] = true
			nl.Components = append(nl.Components, componentFromSymbol(sym, ref))
		}
	}

	nl.Link()
	return nl
}

// instanceReference resolves the designator of sym in the sheet instance
// at path. KiCad 7+ annotates each symbol per instance; KiCad 6 keeps a
// table on the root sheet. Files with neither fall back to the Reference
// property.
func instanceReference(root *schematic.Schematic, path, legacyPath string, sym *schematic.Symbol) string {
	if inst, ok := sym.InstanceAt(path); ok && inst.Reference != "" {
		return inst.Reference
	}
	if inst, ok := root.LegacyInstance(legacyPath, sym.UUID); ok && inst.Reference != "" {
		return inst.Reference
	}
	return sym.Reference()
}

func componentFromSymbol(sym *schematic.Symbol, ref string) *Component {
	lib, part := splitLibID(sym.LibID)
	c := &Component{
		Ref:              ref,
		Value:            sym.Property("Value"),
		Footprint:        sym.Property("Footprint"),
		Datasheet:        sym.Property("Datasheet"),
		Description:      sym.Property("Description"),
		LibSource:        LibSource{Lib: lib, Part: part},
		DNP:              sym.DNP,
		ExcludeFromBOM:   !sym.InBom,
		ExcludeFromBoard: !sym.OnBoard,
	}

	for _, prop := range sym.Properties {
		if schematicBuiltinProps[prop.Key] || strings.HasPrefix(prop.Key, "ki_") {
			continue
		}
		c.Fields = append(c.Fields, Field{Name: prop.Key, Value: prop.Value})
	}

	return c
}

func libPartFromSymbol(lib *schematic.LibSymbol) *LibPart {
	libName, part := splitLibID(lib.Name)
	p := &LibPart{
		Lib:         libName,
		Part:        part,
		Description: lib.Property("Description"),
		Docs:        lib.Property("Datasheet"),
	}
	if p.Description == "" {
		p.Description = lib.Property("ki_description")
	}
	if filters := lib.Property("ki_fp_filters"); filters != "" {
		p.Footprints = strings.Fields(filters)
	}

	for _, prop := range lib.Properties {
		if strings.HasPrefix(prop.Key, "ki_") {
			continue
		}
		p.Fields = append(p.Fields, Field{Name: prop.Key, Value: prop.Value})
	}

	return p
}

// splitLibID splits "Device:R" into its library and part names
func splitLibID(id string) (lib, part string) {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}
