package netlist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/schematic"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/sexp/kicadsexp"
)

// ErrUnknownFormat is returned when the input is neither an XML netlist,
// an s-expression netlist nor a schematic.
var ErrUnknownFormat = errors.New("unrecognised design file format")

// LoadFile reads a design file from disk. Schematics are followed into
// their hierarchical sub-sheets, resolved relative to the parent file.
func LoadFile(filename string) (*Netlist, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	nl, err := parse(data, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}

	if nl.Design.Source == "" {
		nl.Design.Source = filename
	}
	return nl, nil
}

// Parse reads a design export from r. Sub-sheets of schematics are not
// followed since there is no base directory to resolve them against.
func Parse(r io.Reader) (*Netlist, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return parse(data, "")
}

func parse(data []byte, filename string) (*Netlist, error) {
	// Strip a UTF-8 byte order mark and leading whitespace before sniffing
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnknownFormat)
	}

	switch trimmed[0] {
	case '<':
		return parseXML(bytes.NewReader(trimmed))
	case '(':
		return parseSexpr(trimmed, filename)
	}

	return nil, ErrUnknownFormat
}

func parseSexpr(data []byte, filename string) (*Netlist, error) {
	sexps, err := kicadsexp.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}
	if len(sexps) == 0 {
		return nil, fmt.Errorf("%w: no s-expressions found", ErrUnknownFormat)
	}

	root := sexps[0]
	name, err := sexp.GetNodeName(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get root node name: %w", err)
	}

	switch name {
	case "export":
		return fromExport(root)
	case "kicad_sch":
		sch, err := schematic.FromSexp(root)
		if err != nil {
			return nil, err
		}
		if filename == "" {
			return FromSchematic(sch), nil
		}
		return loadHierarchy(sch, filename)
	}

	return nil, fmt.Errorf("%w: root node %q", ErrUnknownFormat, name)
}

// loadHierarchy walks a root schematic and all of its sub-sheets by
// sheet instance path. A file placed more than once is read once but
// contributes one SheetInstance per placement.
func loadHierarchy(root *schematic.Schematic, filename string) (*Netlist, error) {
	rootFile := filepath.Clean(filename)
	cache := map[string]*schematic.Schematic{rootFile: root}
	instances := []SheetInstance{{Path: root.RootPath(), Schematic: root}}
	ancestors := map[string]bool{rootFile: true}

	var walk func(sch *schematic.Schematic, file, path string) error
	walk = func(sch *schematic.Schematic, file, path string) error {
		for _, sheet := range sch.Sheets {
			if sheet.FileName == "" {
				continue
			}
			childFile := filepath.Clean(filepath.Join(filepath.Dir(file), sheet.FileName))
			if ancestors[childFile] {
				return fmt.Errorf("sheet %q: recursive reference to %s", sheet.Name, sheet.FileName)
			}

			child, ok := cache[childFile]
			if !ok {
				var err error
				if child, err = schematic.ParseFile(childFile); err != nil {
					return fmt.Errorf("sheet %q: %w", sheet.Name, err)
				}
				cache[childFile] = child
			}

			childPath := path + "/" + string(sheet.UUID)
			instances = append(instances, SheetInstance{Path: childPath, Name: sheet.Name, Schematic: child})

			ancestors[childFile] = true
			err := walk(child, childFile, childPath)
			delete(ancestors, childFile)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, rootFile, root.RootPath()); err != nil {
		return nil, err
	}

	return FromHierarchy(instances), nil
}
