package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/bom"
	"github.com/OpenTraceLab/OpenTraceBOM/pkg/kicad/netlist"
)

var (
	outputJSON bool
)

// DesignInfo is the structured summary printed by the info command
type DesignInfo struct {
	File       string              `json:"file"`
	Format     string              `json:"format"`
	Source     string              `json:"source,omitempty"`
	Tool       string              `json:"tool,omitempty"`
	Date       string              `json:"date,omitempty"`
	Sheets     []string            `json:"sheets,omitempty"`
	Components int                 `json:"components"`
	LibParts   int                 `json:"lib_parts"`
	Selected   int                 `json:"selected"`
	Excluded   map[string][]string `json:"excluded,omitempty"` // References per reason
	GroupBy    string              `json:"group_by"`
	Columns    []string            `json:"columns"`
	Groups     []GroupInfo         `json:"groups"`
}

// GroupInfo describes one BOM line
type GroupInfo struct {
	Value      string `json:"value"`
	Quantity   int    `json:"quantity"`
	References string `json:"references"`
	Footprint  string `json:"footprint,omitempty"`
}

var infoCmd = &cobra.Command{
	Use:   "info <netlist>",
	Short: "Show design and BOM summary",
	Long: `Display what otb would write for a design file: design metadata,
component counts, the exclusions applied, the column list and the groups.

Examples:
  otb info board.xml
  otb info board.kicad_sch --exclude-dnp
  otb info --json board.net`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolVar(&outputJSON, "json", false,
		"output as JSON (for programmatic access)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	_, resolved, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	filename := args[0]
	nl, err := netlist.LoadFile(filename)
	if err != nil {
		return err
	}

	opts := resolved.Options()
	opts.Logger = logger
	plan := bom.NewPlan(nl, opts)
	logger.Debug("Planned BOM", zap.String("file", filename), zap.Int("groups", len(plan.Groups)))

	info := buildDesignInfo(filename, nl, plan, resolved.KeyPolicy.String())

	if outputJSON {
		return outputJSONFormat(info)
	}

	outputHumanFormat(info)
	return nil
}

func buildDesignInfo(filename string, nl *netlist.Netlist, plan *bom.Plan, groupBy string) *DesignInfo {
	info := &DesignInfo{
		File:       filename,
		Format:     string(nl.Format),
		Source:     nl.Design.Source,
		Tool:       nl.Design.Tool,
		Date:       nl.Design.Date,
		Sheets:     nl.Design.Sheets,
		Components: len(nl.Components),
		LibParts:   len(nl.LibParts),
		Selected:   len(plan.Selection.Components),
		GroupBy:    groupBy,
		Columns:    plan.Columns,
		Groups:     make([]GroupInfo, 0, len(plan.Groups)),
	}

	if len(plan.Selection.Excluded) > 0 {
		info.Excluded = make(map[string][]string)
		for _, ex := range plan.Selection.Excluded {
			info.Excluded[ex.Reason] = append(info.Excluded[ex.Reason], ex.Component.Ref)
		}
	}

	for _, g := range plan.Groups {
		info.Groups = append(info.Groups, GroupInfo{
			Value:      g.Value(),
			Quantity:   g.Len(),
			References: g.References(),
			Footprint:  g.Footprint(),
		})
	}

	return info
}

func outputJSONFormat(info *DesignInfo) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func outputHumanFormat(info *DesignInfo) {
	fmt.Printf("Design: %s\n", info.File)
	fmt.Printf("Format: %s\n", info.Format)
	if info.Source != "" && info.Source != info.File {
		fmt.Printf("Source: %s\n", info.Source)
	}
	if info.Tool != "" {
		fmt.Printf("Tool: %s\n", info.Tool)
	}
	if info.Date != "" {
		fmt.Printf("Date: %s\n", info.Date)
	}
	if len(info.Sheets) > 0 {
		fmt.Printf("Sheets: %s\n", strings.Join(info.Sheets, ", "))
	}
	fmt.Println()

	// Statistics
	fmt.Println("Statistics:")
	fmt.Printf("  Components: %d\n", info.Components)
	fmt.Printf("  Library parts: %d\n", info.LibParts)
	fmt.Printf("  Selected: %d\n", info.Selected)
	fmt.Printf("  BOM lines: %d\n", len(info.Groups))
	fmt.Println()

	if len(info.Excluded) > 0 {
		fmt.Println("Excluded:")
		var reasons []string
		for r := range info.Excluded {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Printf("  %s: %s\n", r, strings.Join(info.Excluded[r], ", "))
		}
		fmt.Println()
	}

	fmt.Printf("Group by: %s\n", info.GroupBy)
	fmt.Printf("Columns: %s\n", strings.Join(info.Columns, ", "))
	fmt.Println()

	if len(info.Groups) > 0 {
		fmt.Println("Groups:")
		for i, g := range info.Groups {
			fmt.Printf("  %3d. %-16s x%-3d %s", i+1, g.Value, g.Quantity, g.References)
			if g.Footprint != "" {
				fmt.Printf("  [%s]", g.Footprint)
			}
			fmt.Println()
		}
	}
}
