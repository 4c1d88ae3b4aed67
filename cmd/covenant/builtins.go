package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/mcl/builtins"
)

var builtinsFlags struct {
	reserved bool
	format   string
}

var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "List the MCL builtin functions",
	Long: `List the builtin functions of MCL with their signatures.

With --reserved, print the reserved names instead: every builtin name and
keyword, which schema field names must not use.

Examples:
  covenant builtins
  covenant builtins --format csv
  covenant builtins --reserved`,
	RunE: listBuiltins,
}

func init() {
	rootCmd.AddCommand(builtinsCmd)

	builtinsCmd.Flags().BoolVar(&builtinsFlags.reserved, "reserved", false, "list reserved names")
	builtinsCmd.Flags().StringVar(&builtinsFlags.format, "format", "text", "output format: text, json, csv")
}

// BuiltinInfo is the output form of one builtin.
type BuiltinInfo struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	MinArgs     int      `json:"min_args"`
	MaxArgs     int      `json:"max_args"`
	Params      []string `json:"params"`
	Returns     string   `json:"returns"`
	Description string   `json:"description"`
}

// Signature renders the builtin as name(param, [optional]) -> result.
func (b BuiltinInfo) Signature() string {
	params := make([]string, len(b.Params))
	for i, p := range b.Params {
		if i >= b.MinArgs {
			p = "[" + p + "]"
		}
		params[i] = p
	}
	return fmt.Sprintf("%s(%s) -> %s", b.Name, strings.Join(params, ", "), b.Returns)
}

type builtinTable []BuiltinInfo

func (t builtinTable) Header() []string {
	return []string{"name", "category", "min_args", "max_args", "params", "returns", "description"}
}

func (t builtinTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, b := range t {
		rows[i] = []string{
			b.Name, b.Category,
			fmt.Sprint(b.MinArgs), fmt.Sprint(b.MaxArgs),
			strings.Join(b.Params, " "), b.Returns, b.Description,
		}
	}
	return rows
}

func builtinInfos() builtinTable {
	all := builtins.All()
	out := make(builtinTable, len(all))
	for i, b := range all {
		params := make([]string, len(b.Params))
		for j, p := range b.Params {
			params[j] = string(p)
		}
		out[i] = BuiltinInfo{
			Name:        b.Name,
			Category:    string(b.Category),
			MinArgs:     b.MinArgs,
			MaxArgs:     b.MaxArgs,
			Params:      params,
			Returns:     string(b.Returns),
			Description: b.Description,
		}
	}
	return out
}

type reservedTable []string

func (t reservedTable) Header() []string { return []string{"name"} }

func (t reservedTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, n := range t {
		rows[i] = []string{n}
	}
	return rows
}

func listBuiltins(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(builtinsFlags.format, cli.FormatText, cli.FormatJSON, cli.FormatCSV)
	if err != nil {
		return err
	}
	out := outWriter(cmd)

	if builtinsFlags.reserved {
		names := reservedTable(builtins.ReservedNames())
		if format == cli.FormatText {
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			return nil
		}
		return cli.NewFormatter(format).FormatTo(out, names)
	}

	infos := builtinInfos()
	if format != cli.FormatText {
		return cli.NewFormatter(format).FormatTo(out, infos)
	}

	category := ""
	for _, b := range infos {
		if b.Category != category {
			if category != "" {
				fmt.Fprintln(out)
			}
			category = b.Category
			fmt.Fprintf(out, "%s:\n", strings.ToUpper(category[:1])+category[1:])
		}
		fmt.Fprintf(out, "  %-48s %s\n", b.Signature(), b.Description)
	}
	return nil
}
