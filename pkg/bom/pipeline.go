// Package bom turns a component list into a grouped bill of materials.
//
// A run selects the BOM-eligible components, computes the column list from
// the union of their fields, groups them by a configurable key and emits
// one row per group to a Sink:
//
//	w := bom.NewCSVWriter(out)
//	stats, err := bom.Generate(nl, w, bom.Options{Filter: filter})
//	w.Flush()
package bom

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/netlist"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/textnorm"
)

// Options configures a BOM run. The zero value selects every component not
// flagged exclude_from_bom, groups by DefaultKey and writes the JLCPCB
// header without normalization.
type Options struct {
	Filter    *netlist.Filter
	Key       KeyFunc
	Header    HeaderMode
	Normalize textnorm.Func
	Logger    *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Plan is a fully resolved BOM before any row is written
type Plan struct {
	Loaded    int
	Selection netlist.Selection
	LibParts  []*netlist.LibPart // Library parts referenced by the selection
	Columns   []string
	Groups    []*Group
}

// NewPlan selects, groups and computes columns for nl
func NewPlan(nl *netlist.Netlist, opts Options) *Plan {
	log := opts.logger()

	sel := opts.Filter.Select(nl.Components)
	log.Debug("Selected components",
		zap.Int("loaded", len(nl.Components)),
		zap.Int("selected", len(sel.Components)),
		zap.Int("excluded", len(sel.Excluded)))
	for _, ex := range sel.Excluded {
		log.Debug("Excluded component", zap.String("ref", ex.Component.Ref), zap.String("reason", ex.Reason))
	}

	parts := netlist.ReferencedLibParts(sel.Components)
	columns := ComputeColumns(sel.Components, parts)
	log.Debug("Computed columns", zap.Strings("columns", columns), zap.Int("lib_parts", len(parts)))

	groups := Grouper{Key: opts.Key}.Group(sel.Components)
	log.Debug("Grouped components", zap.Int("groups", len(groups)))

	return &Plan{
		Loaded:    len(nl.Components),
		Selection: sel,
		LibParts:  parts,
		Columns:   columns,
		Groups:    groups,
	}
}

// Stats summarizes a finished run
type Stats struct {
	Loaded   int
	Selected int
	Excluded map[string]int // Count per exclusion reason
	Groups   int
	Rows     int // Data rows written, not counting the header
}

// Run writes the header and one row per group of plan to sink. Rows
// already handed to the sink stay written if a later row fails.
func Run(plan *Plan, sink Sink, opts Options) (Stats, error) {
	log := opts.logger()

	stats := Stats{
		Loaded:   plan.Loaded,
		Selected: len(plan.Selection.Components),
		Excluded: make(map[string]int),
		Groups:   len(plan.Groups),
	}
	for _, ex := range plan.Selection.Excluded {
		stats.Excluded[ex.Reason]++
	}

	em := NewEmitter(sink, opts.Normalize)
	if err := em.WriteHeader(Header(opts.Header, plan.Columns)); err != nil {
		return stats, err
	}

	for _, g := range plan.Groups {
		if err := em.Emit(g, plan.Columns); err != nil {
			return stats, err
		}
		stats.Rows++
	}

	log.Debug("Wrote BOM", zap.Int("rows", stats.Rows))
	return stats, nil
}

// Generate builds the plan for nl and runs it in one step
func Generate(nl *netlist.Netlist, sink Sink, opts Options) (Stats, error) {
	if nl == nil {
		return Stats{}, fmt.Errorf("no netlist")
	}
	return Run(NewPlan(nl, opts), sink, opts)
}
