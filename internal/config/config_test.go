package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/bom"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/textnorm"
)

func TestDefaultValidates(t *testing.T) {
	r, err := Default().Validate()
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if r.Header != bom.HeaderJLCPCB {
		t.Errorf("Expected jlcpcb header, got %s", r.Header)
	}
	if r.KeyPolicy.String() != bom.DefaultKeyPolicy {
		t.Errorf("Unexpected key policy %s", r.KeyPolicy)
	}
	if len(r.Filter.ExcludeRefs) != 1 || !r.Filter.ExcludeRefs[0].MatchString("#PWR01") {
		t.Errorf("Expected power symbols excluded by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otb.json")
	data := `{"group_by": "value, footprint", "exclude_dnp": true, "log": {"level": "debug"}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.GroupBy != "value, footprint" || !cfg.ExcludeDNP || cfg.Log.Level != "debug" {
		t.Errorf("File values not applied: %+v", cfg)
	}
	// Untouched keys keep their defaults
	if cfg.Header != "jlcpcb" || cfg.Log.Format != "console" || !reflect.DeepEqual(cfg.ExcludeRefs, []string{"^#"}) {
		t.Errorf("Defaults lost: %+v", cfg)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := LoadFile(filepath.Join(dir, "missing.json"), &cfg); err == nil {
		t.Error("Expected error for missing file")
	}
	if err := LoadFile(bad, &cfg); err == nil {
		t.Error("Expected error for malformed file")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(NewEnv(map[string]string{
		EnvGroupBy:           "ref",
		EnvHeader:            "columns",
		EnvExcludeRefs:       "",
		EnvExcludeFootprints: "^MountingHole:, ^TestPoint:",
		EnvExcludeDNP:        "true",
		EnvLogFormat:         "json",
		EnvMetricsFile:       "/tmp/otb.prom",
	}))

	if cfg.GroupBy != "ref" || cfg.Header != "columns" || cfg.Log.Format != "json" || cfg.MetricsFile != "/tmp/otb.prom" {
		t.Errorf("Env strings not applied: %+v", cfg)
	}
	if len(cfg.ExcludeRefs) != 0 {
		t.Errorf("Expected empty value to clear ref exclusions, got %v", cfg.ExcludeRefs)
	}
	if !reflect.DeepEqual(cfg.ExcludeFootprints, []string{"^MountingHole:", "^TestPoint:"}) {
		t.Errorf("Unexpected footprint exclusions %v", cfg.ExcludeFootprints)
	}
	if !cfg.ExcludeDNP {
		t.Error("Expected exclude_dnp from env")
	}
	if cfg.Normalize != "none" || cfg.Log.Level != "warn" {
		t.Errorf("Unset variables changed config: %+v", cfg)
	}
}

func TestEnvGetBoolFallback(t *testing.T) {
	env := NewEnv(map[string]string{EnvExcludeDNP: "maybe"})
	if !env.GetBool(EnvExcludeDNP, true) {
		t.Error("Expected default for unparsable bool")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv(EnvNormalize, "nfkc")
	t.Setenv(EnvExcludeValues, "")

	env := LoadEnv()
	if env.GetString(EnvNormalize, "none") != "nfkc" {
		t.Error("Expected OTB_NORMALIZE from process environment")
	}
	if got := env.GetList(EnvExcludeValues, []string{"x"}); len(got) != 0 {
		t.Errorf("Expected set-but-empty list, got %v", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, ".env")); err != nil {
		t.Errorf("Missing .env should be ignored, got %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("OTB_LOG_LEVEL=debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvLogLevel, "")
	os.Unsetenv(EnvLogLevel)

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv(EnvLogLevel); got != "debug" {
		t.Errorf("Expected OTB_LOG_LEVEL=debug, got %q", got)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		target error
	}{
		{"bad regex", func(c *Config) { c.ExcludeValues = []string{"("} }, nil},
		{"bad group-by", func(c *Config) { c.GroupBy = "colour" }, bom.ErrUnknownKeyTerm},
		{"bad header", func(c *Config) { c.Header = "markdown" }, bom.ErrUnknownHeaderMode},
		{"bad normalizer", func(c *Config) { c.Normalize = "rot13" }, textnorm.ErrUnknownNormalizer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			_, err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	if got := SplitList(" a, ,b ,"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
	if got := SplitList(""); len(got) != 0 {
		t.Errorf("got %v", got)
	}
}
