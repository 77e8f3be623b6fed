package bom

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/textnorm"
)

// Sink receives finished rows. The row slice is not retained by the caller
// and may be reused once WriteRow returns.
type Sink interface {
	WriteRow(row []string) error
}

// Emitter turns groups into rows and hands them to a Sink
type Emitter struct {
	sink      Sink
	normalize textnorm.Func
	row       []string
}

// NewEmitter creates an emitter writing to sink. A nil normalize applies
// textnorm.Identity.
func NewEmitter(sink Sink, normalize textnorm.Func) *Emitter {
	if normalize == nil {
		normalize = textnorm.Identity
	}
	return &Emitter{sink: sink, normalize: normalize}
}

// WriteHeader normalizes and writes a header row
func (e *Emitter) WriteHeader(cells []string) error {
	e.row = e.row[:0]
	for _, cell := range cells {
		e.row = append(e.row, e.normalize(cell))
	}
	if err := e.sink.WriteRow(e.row); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// Emit builds the row of g for columns and writes it. The first three
// cells are always value, references and footprint; the remaining cells
// resolve columns beyond the fixed prefix through Group.Field.
func (e *Emitter) Emit(g *Group, columns []string) error {
	e.row = e.row[:0]
	e.row = append(e.row,
		e.normalize(g.Value()),
		e.normalize(g.References()),
		e.normalize(g.Footprint()),
	)

	if len(columns) > len(FixedColumns) {
		for _, name := range columns[len(FixedColumns):] {
			e.row = append(e.row, e.normalize(g.Field(name)))
		}
	}

	if err := e.sink.WriteRow(e.row); err != nil {
		return fmt.Errorf("failed to write row %s: %w", g.References(), err)
	}
	return nil
}
