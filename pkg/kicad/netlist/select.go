package netlist

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Exclusion reasons reported by Filter.Select
const (
	ReasonExcludeFromBOM = "exclude_from_bom"
	ReasonDNP            = "dnp"
	ReasonRef            = "ref"
	ReasonValue          = "value"
	ReasonFootprint      = "footprint"
)

// Filter decides which components are eligible for the BOM
type Filter struct {
	ExcludeRefs       []*regexp.Regexp
	ExcludeValues     []*regexp.Regexp
	ExcludeFootprints []*regexp.Regexp
	ExcludeDNP        bool // Drop do-not-populate parts instead of listing them
}

// Exclusion records a component that was filtered out and why
type Exclusion struct {
	Component *Component
	Reason    string
}

// Selection is the result of filtering a component list
type Selection struct {
	Components []*Component // Eligible components, sorted by reference
	Excluded   []Exclusion
}

// NewFilter compiles the exclusion patterns into a Filter
func NewFilter(refs, values, footprints []string, excludeDNP bool) (*Filter, error) {
	f := &Filter{ExcludeDNP: excludeDNP}

	var err error
	if f.ExcludeRefs, err = compileAll(refs); err != nil {
		return nil, fmt.Errorf("invalid ref exclusion: %w", err)
	}
	if f.ExcludeValues, err = compileAll(values); err != nil {
		return nil, fmt.Errorf("invalid value exclusion: %w", err)
	}
	if f.ExcludeFootprints, err = compileAll(footprints); err != nil {
		return nil, fmt.Errorf("invalid footprint exclusion: %w", err)
	}

	return f, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Select returns the BOM-eligible components sorted by reference.
// A nil Filter only honours the exclude_from_bom flag.
func (f *Filter) Select(components []*Component) Selection {
	var sel Selection

	for _, c := range components {
		if reason := f.exclusionReason(c); reason != "" {
			sel.Excluded = append(sel.Excluded, Exclusion{Component: c, Reason: reason})
			continue
		}
		sel.Components = append(sel.Components, c)
	}

	SortByRef(sel.Components)
	return sel
}

func (f *Filter) exclusionReason(c *Component) string {
	if c.ExcludeFromBOM {
		return ReasonExcludeFromBOM
	}
	if f == nil {
		return ""
	}
	if f.ExcludeDNP && c.DNP {
		return ReasonDNP
	}
	if matchAny(f.ExcludeRefs, c.Ref) {
		return ReasonRef
	}
	if matchAny(f.ExcludeValues, c.Value) {
		return ReasonValue
	}
	if matchAny(f.ExcludeFootprints, c.Footprint) {
		return ReasonFootprint
	}
	return ""
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// SortByRef sorts components by reference designator in natural order,
// so R2 sorts before R10.
func SortByRef(components []*Component) {
	sort.SliceStable(components, func(i, j int) bool {
		return CompareRefs(components[i].Ref, components[j].Ref) < 0
	})
}

// CompareRefs compares two reference designators, treating runs of digits
// as numbers. It returns -1, 0 or 1.
func CompareRefs(a, b string) int {
	for a != "" && b != "" {
		ca, restA := nextChunk(a)
		cb, restB := nextChunk(b)

		if c := compareChunk(ca, cb); c != 0 {
			return c
		}
		a, b = restA, restB
	}

	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// nextChunk splits off the leading run of digits or non-digits
func nextChunk(s string) (chunk, rest string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func compareChunk(a, b string) int {
	if isDigit(a[0]) && isDigit(b[0]) {
		ta := strings.TrimLeft(a, "0")
		tb := strings.TrimLeft(b, "0")
		if len(ta) != len(tb) {
			if len(ta) < len(tb) {
				return -1
			}
			return 1
		}
		if c := strings.Compare(ta, tb); c != 0 {
			return c
		}
		// Equal numbers: fewer leading zeros first
		return compareInt(len(a), len(b))
	}
	return strings.Compare(a, b)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
