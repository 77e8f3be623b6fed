package bom

import (
	"strings"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/netlist"
)

// KeyFunc derives the grouping key of a component. Components with equal
// keys share a BOM line.
type KeyFunc func(c *netlist.Component) string

// Group is one BOM line: the components sharing a grouping key, in the
// order they were encountered.
type Group struct {
	key     string
	members []*netlist.Component
}

// Key returns the grouping key shared by all members
func (g *Group) Key() string {
	return g.key
}

// Len returns the number of members
func (g *Group) Len() int {
	return len(g.members)
}

// Members returns a copy of the member list
func (g *Group) Members() []*netlist.Component {
	out := make([]*netlist.Component, len(g.members))
	copy(out, g.members)
	return out
}

// Value returns the representative value of the group
func (g *Group) Value() string {
	if len(g.members) == 0 {
		return ""
	}
	return g.members[0].Value
}

// References returns the member references joined by ", " in
// encounter order.
func (g *Group) References() string {
	refs := make([]string, len(g.members))
	for i, c := range g.members {
		refs[i] = c.Ref
	}
	return strings.Join(refs, ", ")
}

// Footprint returns the first non-empty member footprint
func (g *Group) Footprint() string {
	for _, c := range g.members {
		if c.Footprint != "" {
			return c.Footprint
		}
	}
	return ""
}

// Field resolves an extra column for the group. Component fields win,
// taking the first non-empty value among members; otherwise the linked
// library part is consulted. A field nobody carries resolves to "".
func (g *Group) Field(name string) string {
	for _, c := range g.members {
		if v := c.Field(name); v != "" {
			return v
		}
	}
	for _, c := range g.members {
		if p := c.LibPart(); p != nil {
			if v := p.Field(name); v != "" {
				return v
			}
		}
	}
	return ""
}

// Grouper partitions components into groups by key
type Grouper struct {
	Key KeyFunc // nil selects DefaultKey
}

// Group partitions components in a single pass. Groups are returned in
// the order their first member appears in components.
func (gr Grouper) Group(components []*netlist.Component) []*Group {
	keyFn := gr.Key
	if keyFn == nil {
		keyFn = DefaultKey
	}

	var groups []*Group
	index := make(map[string]int)

	for _, c := range components {
		key := keyFn(c)
		if i, ok := index[key]; ok {
			groups[i].members = append(groups[i].members, c)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, &Group{key: key, members: []*netlist.Component{c}})
	}

	return groups
}
