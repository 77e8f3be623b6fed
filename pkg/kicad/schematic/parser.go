package schematic

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/sexp/kicadsexp"
)

// Minimum supported KiCad version for schematics (6.0 = 20211014)
const MinSupportedVersion = 20211014

// ParseFile reads and parses a KiCad schematic file
func ParseFile(filename string) (*Schematic, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a KiCad schematic from an io.Reader
func Parse(r io.Reader) (*Schematic, error) {
	sexps, err := kicadsexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}

	if len(sexps) == 0 {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	return FromSexp(sexps[0])
}

// FromSexp builds a Schematic from an already parsed (kicad_sch ...) root
func FromSexp(root kicadsexp.Sexp) (*Schematic, error) {
	rootName, err := sexp.GetNodeName(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get root node name: %w", err)
	}

	if rootName != "kicad_sch" {
		return nil, fmt.Errorf("not a KiCad schematic file: expected 'kicad_sch', got '%s'", rootName)
	}

	sch := &Schematic{}

	if err := parseHeader(root, sch); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if uuidNode, found := sexp.FindNode(root, "uuid"); found {
		if uuid, err := sexp.GetUUID(uuidNode); err == nil {
			sch.UUID = uuid
		}
	}

	sch.Paper = sexp.ChildString(root, "paper")

	if titleBlockNode, found := sexp.FindNode(root, "title_block"); found {
		sch.TitleBlock = parseTitleBlock(titleBlockNode)
	}

	if libSymbolsNode, found := sexp.FindNode(root, "lib_symbols"); found {
		sch.LibSymbols = parseLibSymbols(libSymbolsNode)
	}

	sch.Symbols = parseSymbols(root)
	sch.Sheets = parseSheets(root)

	if node, found := sexp.FindNode(root, "symbol_instances"); found {
		for _, pn := range sexp.FindAllNodes(node, "path") {
			sch.SymbolInstances = append(sch.SymbolInstances, parseInstancePath(pn, ""))
		}
	}

	return sch, nil
}

// parseHeader extracts version and generator information
func parseHeader(root kicadsexp.Sexp, sch *Schematic) error {
	versionNode, found := sexp.FindNode(root, "version")
	if !found {
		return fmt.Errorf("missing required 'version' field")
	}

	ver, err := sexp.GetInt(versionNode, 1)
	if err != nil {
		return fmt.Errorf("failed to parse version: %w", err)
	}

	if ver < MinSupportedVersion {
		return fmt.Errorf("unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", ver, MinSupportedVersion)
	}
	sch.Version = ver

	sch.Generator = sexp.ChildString(root, "generator")
	sch.GeneratorVer = sexp.ChildString(root, "generator_version")

	return nil
}

func parseTitleBlock(node kicadsexp.Sexp) TitleBlock {
	return TitleBlock{
		Title:    sexp.ChildString(node, "title"),
		Date:     sexp.ChildString(node, "date"),
		Revision: sexp.ChildString(node, "rev"),
		Company:  sexp.ChildString(node, "company"),
	}
}

// parseLibSymbols parses embedded library symbols. Nested (symbol ...)
// unit definitions carry graphics and pins only and are skipped.
func parseLibSymbols(node kicadsexp.Sexp) []LibSymbol {
	symbolNodes := sexp.FindAllNodes(node, "symbol")
	symbols := make([]LibSymbol, 0, len(symbolNodes))

	for _, symNode := range symbolNodes {
		sym := LibSymbol{
			InBom:   sexp.GetYesNo(symNode, "in_bom", true),
			OnBoard: sexp.GetYesNo(symNode, "on_board", true),
		}
		sym.Name, _ = sexp.GetString(symNode, 1)
		_, sym.Power = sexp.FindNode(symNode, "power")
		sym.Properties = parseProperties(symNode)

		symbols = append(symbols, sym)
	}

	return symbols
}

// parseSymbols parses symbol instances
func parseSymbols(root kicadsexp.Sexp) []Symbol {
	symbolNodes := sexp.FindAllNodes(root, "symbol")
	symbols := make([]Symbol, 0, len(symbolNodes))

	for _, node := range symbolNodes {
		sym := Symbol{
			LibID:   sexp.ChildString(node, "lib_id"),
			Unit:    1,
			InBom:   sexp.GetYesNo(node, "in_bom", true),
			OnBoard: sexp.GetYesNo(node, "on_board", true),
			DNP:     sexp.GetYesNo(node, "dnp", false),
		}

		if unitNode, found := sexp.FindNode(node, "unit"); found {
			if unit, err := sexp.GetInt(unitNode, 1); err == nil {
				sym.Unit = unit
			}
		}

		if uuidNode, found := sexp.FindNode(node, "uuid"); found {
			sym.UUID, _ = sexp.GetUUID(uuidNode)
		}

		sym.Properties = parseProperties(node)
		sym.Instances = parseInstances(node)
		symbols = append(symbols, sym)
	}

	return symbols
}

// parseInstances reads
// (instances (project "name" (path "/a/b" (reference "R1") (unit 1))))
func parseInstances(node kicadsexp.Sexp) []Instance {
	instancesNode, found := sexp.FindNode(node, "instances")
	if !found {
		return nil
	}

	var instances []Instance
	for _, project := range sexp.FindAllNodes(instancesNode, "project") {
		name, _ := sexp.GetString(project, 1)
		for _, pn := range sexp.FindAllNodes(project, "path") {
			instances = append(instances, parseInstancePath(pn, name))
		}
	}
	return instances
}

func parseInstancePath(node kicadsexp.Sexp, project string) Instance {
	inst := Instance{
		Project:   project,
		Reference: sexp.ChildString(node, "reference"),
		Unit:      1,
	}
	inst.Path, _ = sexp.GetString(node, 1)
	if unitNode, found := sexp.FindNode(node, "unit"); found {
		if unit, err := sexp.GetInt(unitNode, 1); err == nil {
			inst.Unit = unit
		}
	}
	return inst
}

// parseSheets parses hierarchical sheet references.
// KiCad 6 spells the properties "Sheet name" and "Sheet file".
func parseSheets(root kicadsexp.Sexp) []Sheet {
	sheetNodes := sexp.FindAllNodes(root, "sheet")
	sheets := make([]Sheet, 0, len(sheetNodes))

	for _, sn := range sheetNodes {
		sheet := Sheet{}

		if uuidNode, found := sexp.FindNode(sn, "uuid"); found {
			sheet.UUID, _ = sexp.GetUUID(uuidNode)
		}

		for _, prop := range parseProperties(sn) {
			switch prop.Key {
			case "Sheetname", "Sheet name":
				sheet.Name = prop.Value
			case "Sheetfile", "Sheet file":
				sheet.FileName = prop.Value
			}
		}

		sheets = append(sheets, sheet)
	}

	return sheets
}

func parseProperties(node kicadsexp.Sexp) []Property {
	propNodes := sexp.FindAllNodes(node, "property")
	props := make([]Property, 0, len(propNodes))
	for _, pn := range propNodes {
		if prop, err := sexp.GetProperty(pn); err == nil {
			props = append(props, prop)
		}
	}
	return props
}
