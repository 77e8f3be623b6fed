// Package config assembles the otb run configuration from defaults, an
// optional JSON file, the environment and command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/OpenTraceLab/OpenTraceBOM/internal/logging"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/bom"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/netlist"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/textnorm"
)

// Environment variable names
const (
	EnvGroupBy           = "OTB_GROUP_BY"
	EnvHeader            = "OTB_HEADER"
	EnvNormalize         = "OTB_NORMALIZE"
	EnvExcludeRefs       = "OTB_EXCLUDE_REFS"
	EnvExcludeValues     = "OTB_EXCLUDE_VALUES"
	EnvExcludeFootprints = "OTB_EXCLUDE_FOOTPRINTS"
	EnvExcludeDNP        = "OTB_EXCLUDE_DNP"
	EnvLogLevel          = "OTB_LOG_LEVEL"
	EnvLogFormat         = "OTB_LOG_FORMAT"
	EnvMetricsFile       = "OTB_METRICS_FILE"
)

var envVars = []string{
	EnvGroupBy,
	EnvHeader,
	EnvNormalize,
	EnvExcludeRefs,
	EnvExcludeValues,
	EnvExcludeFootprints,
	EnvExcludeDNP,
	EnvLogLevel,
	EnvLogFormat,
	EnvMetricsFile,
}

// Config is the full run configuration
type Config struct {
	GroupBy           string         `json:"group_by"`
	Header            string         `json:"header"`    // jlcpcb or columns
	Normalize         string         `json:"normalize"` // none, nfc, nfkc or ascii
	ExcludeRefs       []string       `json:"exclude_refs"`
	ExcludeValues     []string       `json:"exclude_values"`
	ExcludeFootprints []string       `json:"exclude_footprints"`
	ExcludeDNP        bool           `json:"exclude_dnp"`
	MetricsFile       string         `json:"metrics_file"`
	Log               logging.Config `json:"log"`
}

// Default returns the built-in configuration. Power and flag symbols,
// whose references start with '#', are excluded.
func Default() Config {
	return Config{
		GroupBy:     bom.DefaultKeyPolicy,
		Header:      string(bom.HeaderJLCPCB),
		Normalize:   "none",
		ExcludeRefs: []string{"^#"},
		Log:         logging.DefaultConfig(),
	}
}

// LoadFile overlays the JSON file at path onto cfg. Keys missing from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads variables from a .env file into the process
// environment. A missing file is not an error, and variables already set
// in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Env is a snapshot of the OTB_* environment
type Env struct {
	values map[string]string
}

// LoadEnv captures the OTB_* variables that are set, including ones set
// to the empty string.
func LoadEnv() *Env {
	env := &Env{values: make(map[string]string)}
	for _, key := range envVars {
		if value, ok := os.LookupEnv(key); ok {
			env.values[key] = value
		}
	}
	return env
}

// NewEnv builds an Env from explicit values
func NewEnv(values map[string]string) *Env {
	env := &Env{values: make(map[string]string)}
	for k, v := range values {
		env.values[k] = v
	}
	return env
}

func (e *Env) GetString(key, defaultValue string) string {
	if value, exists := e.values[key]; exists {
		return value
	}
	return defaultValue
}

func (e *Env) GetBool(key string, defaultValue bool) bool {
	if value, exists := e.values[key]; exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetList splits a comma-separated value. An empty value yields an empty
// list, which clears the default.
func (e *Env) GetList(key string, defaultValue []string) []string {
	value, exists := e.values[key]
	if !exists {
		return defaultValue
	}
	return SplitList(value)
}

// SplitList splits a comma-separated list, dropping blank entries
func SplitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ApplyEnv overlays environment values onto c
func (c *Config) ApplyEnv(env *Env) {
	c.GroupBy = env.GetString(EnvGroupBy, c.GroupBy)
	c.Header = env.GetString(EnvHeader, c.Header)
	c.Normalize = env.GetString(EnvNormalize, c.Normalize)
	c.ExcludeRefs = env.GetList(EnvExcludeRefs, c.ExcludeRefs)
	c.ExcludeValues = env.GetList(EnvExcludeValues, c.ExcludeValues)
	c.ExcludeFootprints = env.GetList(EnvExcludeFootprints, c.ExcludeFootprints)
	c.ExcludeDNP = env.GetBool(EnvExcludeDNP, c.ExcludeDNP)
	c.Log.Level = env.GetString(EnvLogLevel, c.Log.Level)
	c.Log.Format = env.GetString(EnvLogFormat, c.Log.Format)
	c.MetricsFile = env.GetString(EnvMetricsFile, c.MetricsFile)
}

// Resolved holds the compiled form of a validated Config
type Resolved struct {
	Filter    *netlist.Filter
	KeyPolicy *bom.KeyPolicy
	Header    bom.HeaderMode
	Normalize textnorm.Func
}

// Options returns the BOM options for the resolved configuration
func (r *Resolved) Options() bom.Options {
	return bom.Options{
		Filter:    r.Filter,
		Key:       r.KeyPolicy.Key,
		Header:    r.Header,
		Normalize: r.Normalize,
	}
}

// Validate compiles the exclusion patterns, the group-by expression and
// the normalizer.
func (c Config) Validate() (*Resolved, error) {
	filter, err := netlist.NewFilter(c.ExcludeRefs, c.ExcludeValues, c.ExcludeFootprints, c.ExcludeDNP)
	if err != nil {
		return nil, err
	}

	policy, err := bom.ParseKeyPolicy(c.GroupBy)
	if err != nil {
		return nil, err
	}

	header, err := bom.ParseHeaderMode(c.Header)
	if err != nil {
		return nil, err
	}

	normalize, err := textnorm.ByName(c.Normalize)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		Filter:    filter,
		KeyPolicy: policy,
		Header:    header,
		Normalize: normalize,
	}, nil
}
