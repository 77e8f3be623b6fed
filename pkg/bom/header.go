package bom

import (
	"errors"
	"fmt"
	"strings"
)

// HeaderMode selects how the header row is written
type HeaderMode string

const (
	// HeaderJLCPCB writes the four-cell header JLCPCB's importer expects
	HeaderJLCPCB HeaderMode = "jlcpcb"
	// HeaderColumns writes one cell per column
	HeaderColumns HeaderMode = "columns"
)

// ErrUnknownHeaderMode is returned by ParseHeaderMode
var ErrUnknownHeaderMode = errors.New("unknown header mode")

// JLCPCBHeader is the literal header of HeaderJLCPCB
var JLCPCBHeader = []string{"Comment", "Designator", "Footprint", "LCSC"}

// Display names of the fixed columns as JLCPCB labels them
var jlcpcbNames = map[string]string{
	ColumnValue:      "Comment",
	ColumnReferences: "Designator",
}

// ParseHeaderMode parses a header mode name. The empty string selects
// HeaderJLCPCB.
func ParseHeaderMode(s string) (HeaderMode, error) {
	switch HeaderMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", HeaderJLCPCB:
		return HeaderJLCPCB, nil
	case HeaderColumns:
		return HeaderColumns, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownHeaderMode, s)
}

// Header returns the header row for the given columns
func Header(mode HeaderMode, columns []string) []string {
	if mode != HeaderColumns {
		return append([]string(nil), JLCPCBHeader...)
	}

	row := make([]string, len(columns))
	for i, col := range columns {
		if name, ok := jlcpcbNames[col]; ok && i < len(FixedColumns) {
			col = name
		}
		row[i] = col
	}
	return row
}
