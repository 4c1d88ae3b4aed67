package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/mcl"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
)

var evalFlags struct {
	expr     string
	data     string
	at       string
	previous string
	format   string
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate one expression against a document",
	Long: `Evaluate a single MCL expression against a JSON document.

Prints true or false. Exits 1 when the expression is false and 2 when it
cannot be evaluated (parse error, type error, unreadable document).

Examples:
  # Evaluate against a file
  covenant eval --expr 'saga.steps.length > 0' --data saga.json

  # Read the document from stdin with a frozen clock
  cat saga.json | covenant eval --expr 'is_before(now(), saga.deadline)' --data - --at 2026-03-01T12:00:00Z

  # Compare against a previous state
  covenant eval --expr 'changed("saga.status")' --data now.json --previous before.json`,
	RunE: evaluateExpression,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalFlags.expr, "expr", "e", "", "expression to evaluate")
	evalCmd.Flags().StringVarP(&evalFlags.data, "data", "d", "", "JSON document path, or - for stdin")
	evalCmd.Flags().StringVar(&evalFlags.at, "at", "", "freeze now() at this RFC 3339 timestamp")
	evalCmd.Flags().StringVar(&evalFlags.previous, "previous", "", "JSON document holding the previous state")
	evalCmd.Flags().StringVar(&evalFlags.format, "format", "text", "output format: text, json")
}

// EvalResult is the JSON output of eval.
type EvalResult struct {
	Expression string `json:"expression"`
	Result     bool   `json:"result"`
	Timestamp  string `json:"evaluation_timestamp"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

func evaluateExpression(cmd *cobra.Command, args []string) error {
	if evalFlags.expr == "" {
		return fmt.Errorf("--expr is required")
	}
	if evalFlags.data == "" {
		return fmt.Errorf("--data is required")
	}
	format, err := cli.ParseFormat(evalFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	doc, err := readDocument(cmd, evalFlags.data)
	if err != nil {
		return err
	}
	ctx, err := evalContext(cmd, evalFlags.at, evalFlags.previous)
	if err != nil {
		return err
	}
	ctx.EvaluationTimestamp = ctx.Now()

	passed, evalErr := mcl.NewCompiler(1).Evaluate(doc, evalFlags.expr, ctx)

	out := outWriter(cmd)
	if format == cli.FormatJSON {
		res := EvalResult{Expression: evalFlags.expr, Result: passed, Timestamp: ctx.EvaluationTimestamp}
		if evalErr != nil {
			res.ErrorKind = string(mclErrors.KindOf(evalErr))
			res.Error = evalErr.Error()
		}
		if err := cli.NewFormatter(format).FormatTo(out, res); err != nil {
			return err
		}
	} else if evalErr == nil {
		fmt.Fprintln(out, passed)
	}

	if evalErr != nil {
		return cli.NewCommandError("eval", evalErr)
	}
	if !passed {
		return cli.NewViolationError("expression", 0)
	}
	return nil
}
