package netlist

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// XML netlist layout as written by Eeschema's generic netlist exporter

type xmlExport struct {
	XMLName    xml.Name     `xml:"export"`
	Version    string       `xml:"version,attr"`
	Design     xmlDesign    `xml:"design"`
	Components []xmlComp    `xml:"components>comp"`
	LibParts   []xmlLibPart `xml:"libparts>libpart"`
}

type xmlDesign struct {
	Source string     `xml:"source"`
	Date   string     `xml:"date"`
	Tool   string     `xml:"tool"`
	Sheets []xmlSheet `xml:"sheet"`
}

type xmlSheet struct {
	Name string `xml:"name,attr"`
}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlLibSource struct {
	Lib         string `xml:"lib,attr"`
	Part        string `xml:"part,attr"`
	Description string `xml:"description,attr"`
}

type xmlComp struct {
	Ref         string        `xml:"ref,attr"`
	Value       string        `xml:"value"`
	Footprint   string        `xml:"footprint"`
	Datasheet   string        `xml:"datasheet"`
	Description string        `xml:"description"`
	Fields      []xmlField    `xml:"fields>field"`
	LibSource   xmlLibSource  `xml:"libsource"`
	Properties  []xmlProperty `xml:"property"`
}

type xmlLibPart struct {
	Lib         string     `xml:"lib,attr"`
	Part        string     `xml:"part,attr"`
	Description string     `xml:"description"`
	Docs        string     `xml:"docs"`
	Aliases     []string   `xml:"aliases>alias"`
	Footprints  []string   `xml:"footprints>fp"`
	Fields      []xmlField `xml:"fields>field"`
}

func parseXML(r io.Reader) (*Netlist, error) {
	var doc xmlExport
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse XML netlist: %w", err)
	}

	nl := &Netlist{
		Version: doc.Version,
		Format:  FormatXML,
		Design: Design{
			Source: strings.TrimSpace(doc.Design.Source),
			Date:   strings.TrimSpace(doc.Design.Date),
			Tool:   strings.TrimSpace(doc.Design.Tool),
		},
	}
	for _, s := range doc.Design.Sheets {
		nl.Design.Sheets = append(nl.Design.Sheets, s.Name)
	}

	for _, xc := range doc.Components {
		c := &Component{
			Ref:         xc.Ref,
			Value:       xc.Value,
			Footprint:   xc.Footprint,
			Datasheet:   xc.Datasheet,
			Description: xc.Description,
			Fields:      convertXMLFields(xc.Fields),
			LibSource: LibSource{
				Lib:         xc.LibSource.Lib,
				Part:        xc.LibSource.Part,
				Description: xc.LibSource.Description,
			},
		}
		for _, p := range xc.Properties {
			c.setProperty(p.Name, p.Value)
		}
		nl.Components = append(nl.Components, c)
	}

	for _, xp := range doc.LibParts {
		nl.LibParts = append(nl.LibParts, &LibPart{
			Lib:         xp.Lib,
			Part:        xp.Part,
			Aliases:     xp.Aliases,
			Description: xp.Description,
			Docs:        xp.Docs,
			Footprints:  xp.Footprints,
			Fields:      convertXMLFields(xp.Fields),
		})
	}

	nl.Link()
	return nl, nil
}

func convertXMLFields(in []xmlField) []Field {
	if len(in) == 0 {
		return nil
	}
	out := make([]Field, 0, len(in))
	for _, f := range in {
		out = append(out, Field{Name: f.Name, Value: f.Value})
	}
	return out
}
