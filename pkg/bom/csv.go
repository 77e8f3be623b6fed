package bom

import (
	"bufio"
	"io"
	"strings"
)

// CSVWriter is a Sink writing comma-separated rows with every field
// quoted, embedded quotes doubled and "\n" line endings.
type CSVWriter struct {
	w *bufio.Writer
}

// NewCSVWriter creates a CSVWriter on w. Call Flush when done.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: bufio.NewWriter(w)}
}

// WriteRow writes one record
func (cw *CSVWriter) WriteRow(row []string) error {
	for i, field := range row {
		if i > 0 {
			if err := cw.w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := cw.w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := cw.w.WriteString(strings.ReplaceAll(field, `"`, `""`)); err != nil {
			return err
		}
		if err := cw.w.WriteByte('"'); err != nil {
			return err
		}
	}
	return cw.w.WriteByte('\n')
}

// Flush writes any buffered data to the underlying writer
func (cw *CSVWriter) Flush() error {
	return cw.w.Flush()
}
