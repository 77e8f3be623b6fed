package bom

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/netlist"
)

// recordingSink keeps copies of every row it receives
type recordingSink struct {
	rows [][]string
	err  error
}

func (s *recordingSink) WriteRow(row []string) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, append([]string(nil), row...))
	return nil
}

func TestCSVWriter(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want string
	}{
		{"simple", [][]string{{"a", "b"}}, "\"a\",\"b\"\n"},
		{"empty cells", [][]string{{"", ""}}, "\"\",\"\"\n"},
		{"quotes doubled", [][]string{{`say "hi"`}}, "\"say \"\"hi\"\"\"\n"},
		{"comma and newline", [][]string{{"R1, R2", "a\nb"}}, "\"R1, R2\",\"a\nb\"\n"},
		{"two rows", [][]string{{"x"}, {"y"}}, "\"x\"\n\"y\"\n"},
		{"no cells", [][]string{{}}, "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewCSVWriter(&buf)
			for _, row := range tt.rows {
				if err := w.WriteRow(row); err != nil {
					t.Fatalf("WriteRow failed: %v", err)
				}
			}
			if err := w.Flush(); err != nil {
				t.Fatalf("Flush failed: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestHeader(t *testing.T) {
	columns := []string{"Value", "Reference(s)", "Footprint", "LCSC", "MPN"}

	if got := Header(HeaderJLCPCB, columns); !reflect.DeepEqual(got, JLCPCBHeader) {
		t.Errorf("jlcpcb header = %v", got)
	}

	want := []string{"Comment", "Designator", "Footprint", "LCSC", "MPN"}
	if got := Header(HeaderColumns, columns); !reflect.DeepEqual(got, want) {
		t.Errorf("columns header = %v, want %v", got, want)
	}

	got := Header(HeaderJLCPCB, columns)
	got[0] = "changed"
	if JLCPCBHeader[0] != "Comment" {
		t.Error("Header aliased JLCPCBHeader")
	}
}

func TestParseHeaderMode(t *testing.T) {
	tests := []struct {
		in      string
		want    HeaderMode
		wantErr bool
	}{
		{"", HeaderJLCPCB, false},
		{"jlcpcb", HeaderJLCPCB, false},
		{"JLCPCB", HeaderJLCPCB, false},
		{"columns", HeaderColumns, false},
		{"markdown", "", true},
	}

	for _, tt := range tests {
		got, err := ParseHeaderMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownHeaderMode) {
				t.Errorf("ParseHeaderMode(%q): expected ErrUnknownHeaderMode, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseHeaderMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestEmitterRow(t *testing.T) {
	part := libPart("Device", "R", "Manufacturer", "Yageo")
	r1 := comp("R1", "10k", "R_0603", "LCSC", "C25804")
	r2 := comp("R2", "10k", "R_0603", "LCSC", "C25804")
	r1.LinkLibPart(part)
	r2.LinkLibPart(part)
	g := Grouper{}.Group([]*netlist.Component{r1, r2})[0]

	sink := &recordingSink{}
	columns := []string{"Value", "Reference(s)", "Footprint", "LCSC", "Manufacturer", "Missing"}
	if err := NewEmitter(sink, nil).Emit(g, columns); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	want := []string{"10k", "R1, R2", "R_0603", "C25804", "Yageo", ""}
	if len(sink.rows) != 1 || !reflect.DeepEqual(sink.rows[0], want) {
		t.Errorf("got %v, want %v", sink.rows, want)
	}
}

func TestEmitterNormalizesEveryCell(t *testing.T) {
	g := Grouper{}.Group([]*netlist.Component{comp("R1", "10k", "R_0603", "LCSC", "C1")})[0]

	sink := &recordingSink{}
	em := NewEmitter(sink, strings.ToUpper)
	if err := em.WriteHeader([]string{"comment"}); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	if err := em.Emit(g, []string{"Value", "Reference(s)", "Footprint", "LCSC"}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	want := [][]string{{"COMMENT"}, {"10K", "R1", "R_0603", "C1"}}
	if !reflect.DeepEqual(sink.rows, want) {
		t.Errorf("got %v, want %v", sink.rows, want)
	}
}

func TestEmitterSinkError(t *testing.T) {
	g := Grouper{}.Group([]*netlist.Component{comp("R1", "10k", "")})[0]
	boom := errors.New("disk full")

	err := NewEmitter(&recordingSink{err: boom}, nil).Emit(g, FixedColumns)
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped sink error, got %v", err)
	}
}
