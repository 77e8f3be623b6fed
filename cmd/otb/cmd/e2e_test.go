package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/bom"
)

const testdata = "../../../testdata"

const sensorBOM = `"Comment","Designator","Footprint","LCSC"
"100nF","C1, C2","Capacitor_SMD:C_0603_1608Metric","~","Unpolarized capacitor","C14663","",""
"10k","R1, R2","Resistor_SMD:R_0603_1608Metric","~","Resistor","C25804","",""
"10k","R3","Resistor_SMD:R_0603_1608Metric","~","Resistor","C25804","",""
"1k","R10","Resistor_SMD:R_0603_1608Metric","~","Resistor","C21190","",""
"STM32F030F4Px","U1","Package_SO:TSSOP-20_4.4x6.5mm_P0.65mm","https://www.st.com/resource/en/datasheet/stm32f030f4.pdf","ARM Cortex-M0 MCU, 16KB flash, 4KB RAM","C89040","STM32F030F4P6TR","STMicroelectronics"
`

// resetFlags restores flag defaults between runs of the shared root command
func resetFlags() {
	verbose = false
	configFile = ""
	groupBy = bom.DefaultKeyPolicy
	headerMode = string(bom.HeaderJLCPCB)
	normalize = "none"
	excludeRefs = []string{"^#"}
	excludeValues = nil
	excludeFootprints = nil
	excludeDNP = false
	metricsFile = ""
	logLevel = ""
	logFormat = ""
	outputJSON = false

	unset := func(f *pflag.Flag) { f.Changed = false }
	rootCmd.PersistentFlags().VisitAll(unset)
	infoCmd.Flags().VisitAll(unset)
}

// run executes the root command with args and returns what it printed
// to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Read in background to prevent pipe buffer from blocking on Windows
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	resetFlags()
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	// Restore stdout and wait for reader
	w.Close()
	os.Stdout = old
	<-done

	return buf.String(), err
}

// TestBOME2E tests BOM generation end-to-end
func TestBOME2E(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name      string
		args      []string
		want      string
		wantLines int
		contain   []string
		absent    []string
	}{
		{
			name: "xml netlist",
			args: []string{filepath.Join(testdata, "sensor.xml")},
			want: sensorBOM,
		},
		{
			name: "sexpr netlist",
			args: []string{filepath.Join(testdata, "sensor.net")},
			want: sensorBOM,
		},
		{
			name:      "one row per component",
			args:      []string{filepath.Join(testdata, "sensor.xml"), "--group-by", "ref"},
			wantLines: 8,
			contain:   []string{`"R1",`, `"R2",`},
		},
		{
			name:    "named columns",
			args:    []string{filepath.Join(testdata, "sensor.xml"), "--header", "columns"},
			contain: []string{`"Comment","Designator","Footprint","Datasheet","Description","LCSC","MPN","Manufacturer"` + "\n"},
		},
		{
			name:      "exclude dnp",
			args:      []string{filepath.Join(testdata, "sensor.xml"), "--exclude-dnp"},
			wantLines: 5,
			absent:    []string{`"R3"`},
		},
		{
			name:    "exclude footprint",
			args:    []string{filepath.Join(testdata, "sensor.xml"), "--exclude-footprint", "^Capacitor_SMD:"},
			absent:  []string{"C1, C2"},
			contain: []string{`"R1, R2"`},
		},
		{
			name:    "schematic hierarchy",
			args:    []string{filepath.Join(testdata, "hier", "board.kicad_sch")},
			contain: []string{`"LM358","U1",`, `"100nF","C1",`, `"100nF","C2",`},
			absent:  []string{"#PWR01"},
		},
		{
			name:      "reused sheet",
			args:      []string{filepath.Join(testdata, "hier", "stereo.kicad_sch")},
			wantLines: 3,
			contain:   []string{`"1uF","C1, C101",`, `"47k","R1, R101",`},
		},
		{
			name:    "ascii normalization",
			args:    []string{filepath.Join(testdata, "sensor.xml"), "--normalize", "ascii", "-v"},
			contain: []string{"STMicroelectronics"},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(dir, fmt.Sprintf("bom%d.csv", i))
			args := append([]string{tt.args[0], out}, tt.args[1:]...)
			stdout, err := run(t, args...)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if stdout != "" {
				t.Errorf("Expected nothing on stdout, got %q", stdout)
			}

			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatalf("Output not written: %v", err)
			}
			got := string(data)

			if tt.want != "" && got != tt.want {
				t.Errorf("Unexpected BOM:\n%s\nwant:\n%s", got, tt.want)
			}
			if tt.wantLines > 0 {
				if n := strings.Count(got, "\n"); n != tt.wantLines {
					t.Errorf("Expected %d lines, got %d:\n%s", tt.wantLines, n, got)
				}
			}
			for _, want := range tt.contain {
				if !strings.Contains(got, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(got, unwanted) {
					t.Errorf("Output contains %q\nGot:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestBOMStdoutFallback(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing", "bom.csv")

	stdout, err := run(t, filepath.Join(testdata, "sensor.xml"), out)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stdout != sensorBOM {
		t.Errorf("Expected BOM on stdout, got:\n%s", stdout)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("Expected no output file, got %v", err)
	}
}

func TestBOMErrors(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "bom.csv")

	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"one argument", []string{filepath.Join(testdata, "sensor.xml")}},
		{"three arguments", []string{filepath.Join(testdata, "sensor.xml"), out, "extra"}},
		{"missing input", []string{filepath.Join(testdata, "nonexistent.xml"), out}},
		{"unknown format", []string{filepath.Join(testdata, "garbage.txt"), out}},
		{"bad group-by", []string{filepath.Join(testdata, "sensor.xml"), out, "--group-by", "colour"}},
		{"bad header", []string{filepath.Join(testdata, "sensor.xml"), out, "--header", "markdown"}},
		{"bad regex", []string{filepath.Join(testdata, "sensor.xml"), out, "--exclude-ref", "("}},
		{"missing config", []string{filepath.Join(testdata, "sensor.xml"), out, "--config", filepath.Join(dir, "none.json")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("Expected error but got none")
			}
		})
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("Failed runs left an output file behind")
	}
}

func TestBOMConfigAndMetrics(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "otb.json")
	promPath := filepath.Join(dir, "otb.prom")
	out := filepath.Join(dir, "bom.csv")

	cfg := `{"exclude_dnp": true, "header": "columns", "metrics_file": "` + filepath.ToSlash(promPath) + `"}`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	// Flags override the config file
	if _, err := run(t, filepath.Join(testdata, "sensor.xml"), out, "--config", cfgPath, "--header", "jlcpcb"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Output not written: %v", err)
	}
	if !strings.HasPrefix(string(data), `"Comment","Designator","Footprint","LCSC"`+"\n") {
		t.Errorf("Expected flag to override header mode, got:\n%s", data)
	}
	if strings.Contains(string(data), `"R3"`) {
		t.Errorf("Expected R3 excluded by config file")
	}

	prom, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatalf("Metrics not written: %v", err)
	}
	for _, want := range []string{
		"otb_components_loaded_total 8",
		"otb_components_selected_total 6",
		`otb_components_excluded_total{reason="dnp"} 1`,
		`otb_components_excluded_total{reason="exclude_from_bom"} 1`,
		"otb_groups_total 4",
		"otb_rows_emitted_total 4",
		"otb_run_duration_seconds",
	} {
		if !strings.Contains(string(prom), want) {
			t.Errorf("Metrics missing %q:\n%s", want, prom)
		}
	}
}

// TestInfoE2E tests the info command end-to-end
func TestInfoE2E(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name: "xml summary",
			args: []string{"info", filepath.Join(testdata, "sensor.xml")},
			wantContain: []string{
				"Format: xml",
				"Tool: Eeschema 8.0.4",
				"Components: 8",
				"Library parts: 4",
				"Selected: 7",
				"BOM lines: 5",
				"exclude_from_bom: TP1",
				"Group by: value, footprint, dnp, libpart, fields",
				"Columns: Value, Reference(s), Footprint, Datasheet, Description, LCSC, MPN, Manufacturer",
				"C1, C2",
			},
		},
		{
			name: "schematic summary",
			args: []string{"info", filepath.Join(testdata, "hier", "board.kicad_sch"), "--exclude-dnp"},
			wantContain: []string{
				"Format: kicad_sch",
				"Sheets: Power",
				"dnp: C2",
				"ref: #PWR01",
			},
		},
		{
			name:    "missing file",
			args:    []string{"info", "/nonexistent/board.xml"},
			wantErr: true,
		},
		{
			name:    "missing argument",
			args:    []string{"info"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := run(t, tt.args...)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}

			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

func TestInfoJSON(t *testing.T) {
	output, err := run(t, "info", "--json", filepath.Join(testdata, "sensor.net"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var info DesignInfo
	if err := json.Unmarshal([]byte(output), &info); err != nil {
		t.Fatalf("Invalid JSON: %v\n%s", err, output)
	}

	if info.Format != "sexpr" || info.Selected != 7 || len(info.Groups) != 5 {
		t.Errorf("Unexpected info %+v", info)
	}
	if info.Groups[0].References != "C1, C2" || info.Groups[0].Quantity != 2 {
		t.Errorf("Unexpected first group %+v", info.Groups[0])
	}
}
