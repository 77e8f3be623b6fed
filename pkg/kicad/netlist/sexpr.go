package netlist

import (
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/sexp/kicadsexp"
)

// fromExport converts an (export ...) s-expression netlist
func fromExport(root kicadsexp.Sexp) (*Netlist, error) {
	nl := &Netlist{
		Version: sexp.ChildString(root, "version"),
		Format:  FormatSexpr,
	}

	if design, found := sexp.FindNode(root, "design"); found {
		nl.Design = Design{
			Source: sexp.ChildString(design, "source"),
			Date:   sexp.ChildString(design, "date"),
			Tool:   sexp.ChildString(design, "tool"),
		}
		for _, sheet := range sexp.FindAllNodes(design, "sheet") {
			nl.Design.Sheets = append(nl.Design.Sheets, sexp.ChildString(sheet, "name"))
		}
	}

	if comps, found := sexp.FindNode(root, "components"); found {
		for _, node := range sexp.FindAllNodes(comps, "comp") {
			nl.Components = append(nl.Components, parseComp(node))
		}
	}

	if parts, found := sexp.FindNode(root, "libparts"); found {
		for _, node := range sexp.FindAllNodes(parts, "libpart") {
			nl.LibParts = append(nl.LibParts, parseLibPart(node))
		}
	}

	nl.Link()
	return nl, nil
}

func parseComp(node kicadsexp.Sexp) *Component {
	c := &Component{
		Ref:         sexp.ChildString(node, "ref"),
		Value:       sexp.ChildString(node, "value"),
		Footprint:   sexp.ChildString(node, "footprint"),
		Datasheet:   sexp.ChildString(node, "datasheet"),
		Description: sexp.ChildString(node, "description"),
		Fields:      parseFields(node),
	}

	if src, found := sexp.FindNode(node, "libsource"); found {
		c.LibSource = LibSource{
			Lib:         sexp.ChildString(src, "lib"),
			Part:        sexp.ChildString(src, "part"),
			Description: sexp.ChildString(src, "description"),
		}
	}

	// (property (name "dnp")) or (property (name "Sheetname") (value "Root"))
	for _, prop := range sexp.FindAllNodes(node, "property") {
		c.setProperty(sexp.ChildString(prop, "name"), sexp.ChildString(prop, "value"))
	}

	return c
}

func parseLibPart(node kicadsexp.Sexp) *LibPart {
	p := &LibPart{
		Lib:         sexp.ChildString(node, "lib"),
		Part:        sexp.ChildString(node, "part"),
		Description: sexp.ChildString(node, "description"),
		Docs:        sexp.ChildString(node, "docs"),
		Fields:      parseFields(node),
	}

	if aliases, found := sexp.FindNode(node, "aliases"); found {
		for _, a := range sexp.FindAllNodes(aliases, "alias") {
			if s, err := sexp.GetString(a, 1); err == nil {
				p.Aliases = append(p.Aliases, s)
			}
		}
	}

	if fps, found := sexp.FindNode(node, "footprints"); found {
		for _, fp := range sexp.FindAllNodes(fps, "fp") {
			if s, err := sexp.GetString(fp, 1); err == nil {
				p.Footprints = append(p.Footprints, s)
			}
		}
	}

	return p
}

func parseFields(node kicadsexp.Sexp) []Field {
	fieldsNode, found := sexp.FindNode(node, "fields")
	if !found {
		return nil
	}

	var fields []Field
	for _, fn := range sexp.FindAllNodes(fieldsNode, "field") {
		if f, err := sexp.GetField(fn); err == nil {
			fields = append(fields, f)
		}
	}
	return fields
}
