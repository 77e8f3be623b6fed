package bom

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/netlist"
)

// DefaultKeyPolicy groups parts that would be bought as the same item:
// same value, footprint, DNP state, library part and user fields. The
// designator class is not part of it; add refprefix to keep R and RN
// parts apart.
const DefaultKeyPolicy = "value, footprint, dnp, libpart, fields"

// ErrUnknownKeyTerm is returned for group-by terms that are not recognised
var ErrUnknownKeyTerm = errors.New("unknown group-by term")

// keyLexer tokenizes group-by expressions such as
// `value, footprint, field("Manufacturer Part")`
var keyLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_\-]*`},
	{Name: "Punct", Pattern: `[(),]`},
})

// keyExpr is the AST of a group-by expression
type keyExpr struct {
	Terms []*keyTerm `parser:"@@ ( ',' @@ )*"`
}

type keyTerm struct {
	Pos  lexer.Position
	Name string  `parser:"@Ident"`
	Arg  *string `parser:"( '(' @(String | Ident) ')' )?"`
}

var keyParser = participle.MustBuild[keyExpr](
	participle.Lexer(keyLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// keyExtractors maps argument-less terms to the attribute they read
var keyExtractors = map[string]func(c *netlist.Component) string{
	"value":       func(c *netlist.Component) string { return c.Value },
	"footprint":   func(c *netlist.Component) string { return c.Footprint },
	"dnp":         func(c *netlist.Component) string { return strconv.FormatBool(c.DNP) },
	"ref":         func(c *netlist.Component) string { return c.Ref },
	"refprefix":   refPrefix,
	"lib":         func(c *netlist.Component) string { return c.LibSource.Lib },
	"part":        func(c *netlist.Component) string { return c.LibSource.Part },
	"libpart":     linkedLibPart,
	"datasheet":   func(c *netlist.Component) string { return c.Datasheet },
	"description": func(c *netlist.Component) string { return c.Description },
	"fields":      allFields,
}

// KeyPolicy is a parsed group-by expression
type KeyPolicy struct {
	names      []string
	extractors []func(c *netlist.Component) string
}

// ParseKeyPolicy parses a comma-separated list of group-by terms.
// Term names are case-insensitive; field(NAME) takes a field name, quoted
// when it contains spaces or punctuation.
func ParseKeyPolicy(groupBy string) (*KeyPolicy, error) {
	expr, err := keyParser.ParseString("", groupBy)
	if err != nil {
		return nil, fmt.Errorf("invalid group-by %q: %w", groupBy, err)
	}

	p := &KeyPolicy{}
	for _, term := range expr.Terms {
		name := strings.ToLower(term.Name)

		if name == "field" {
			if term.Arg == nil || *term.Arg == "" {
				return nil, fmt.Errorf("group-by term field at column %d needs a field name", term.Pos.Column)
			}
			field := *term.Arg
			p.names = append(p.names, "field("+strconv.Quote(field)+")")
			p.extractors = append(p.extractors, func(c *netlist.Component) string { return c.Field(field) })
			continue
		}

		fn, ok := keyExtractors[name]
		if !ok {
			return nil, fmt.Errorf("%w %q at column %d", ErrUnknownKeyTerm, term.Name, term.Pos.Column)
		}
		if term.Arg != nil {
			return nil, fmt.Errorf("group-by term %s at column %d takes no argument", name, term.Pos.Column)
		}
		p.names = append(p.names, name)
		p.extractors = append(p.extractors, fn)
	}

	return p, nil
}

// MustParseKeyPolicy is like ParseKeyPolicy but panics on error
func MustParseKeyPolicy(groupBy string) *KeyPolicy {
	p, err := ParseKeyPolicy(groupBy)
	if err != nil {
		panic(err)
	}
	return p
}

// Terms returns the normalized term names
func (p *KeyPolicy) Terms() []string {
	return append([]string(nil), p.names...)
}

// String returns the normalized expression
func (p *KeyPolicy) String() string {
	return strings.Join(p.names, ", ")
}

// Key derives the grouping key of c. Each term value is quoted so that
// separators inside values cannot make two different tuples collide.
func (p *KeyPolicy) Key(c *netlist.Component) string {
	parts := make([]string, len(p.extractors))
	for i, fn := range p.extractors {
		parts[i] = strconv.Quote(fn(c))
	}
	return strings.Join(parts, ",")
}

// DefaultKey groups by DefaultKeyPolicy
var DefaultKey KeyFunc = MustParseKeyPolicy(DefaultKeyPolicy).Key

// refPrefix returns the designator class, "R" for "R12"
func refPrefix(c *netlist.Component) string {
	i := strings.IndexAny(c.Ref, "0123456789")
	if i < 0 {
		return c.Ref
	}
	return c.Ref[:i]
}

func linkedLibPart(c *netlist.Component) string {
	if p := c.LibPart(); p != nil {
		return p.ID()
	}
	return c.LibSource.ID()
}

// allFields renders every component field as sorted name=value pairs
func allFields(c *netlist.Component) string {
	pairs := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		pairs = append(pairs, strconv.Quote(f.Name)+"="+strconv.Quote(f.Value))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ";")
}
