package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/constraint"
	"mercator-hq/covenant/pkg/constraint/engine"
	"mercator-hq/covenant/pkg/constraint/source"
	"mercator-hq/covenant/pkg/evidence"
)

var runFlags struct {
	file     string
	dir      string
	schema   string
	data     string
	at       string
	previous string
	format   string
	record   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate constraint files against a document",
	Long: `Evaluate every constraint of one or more constraint files against a JSON
document and print a report per file.

All constraints of one run see the same now(). The exit code is 1 when a
report is invalid: an error-severity constraint was violated or, in
fail-closed mode, failed to evaluate.

Examples:
  # Evaluate one file
  covenant run --file constraints/saga.yaml --data saga.json

  # Evaluate the file declaring a schema out of a directory
  covenant run --dir constraints/ --schema payment-saga --data saga.json

  # Record evidence for later replay
  covenant run --file constraints/saga.yaml --data saga.json --record`,
	RunE: runConstraints,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.file, "file", "f", "", "constraint file")
	runCmd.Flags().StringVar(&runFlags.dir, "dir", "", "directory of constraint files")
	runCmd.Flags().StringVar(&runFlags.schema, "schema", "", "only evaluate the file with this schema_id")
	runCmd.Flags().StringVarP(&runFlags.data, "data", "d", "", "JSON document path, or - for stdin")
	runCmd.Flags().StringVar(&runFlags.at, "at", "", "freeze now() at this RFC 3339 timestamp")
	runCmd.Flags().StringVar(&runFlags.previous, "previous", "", "JSON document holding the previous state")
	runCmd.Flags().StringVar(&runFlags.format, "format", "text", "output format: text, json")
	runCmd.Flags().BoolVar(&runFlags.record, "record", false, "store evidence records")
}

func runConstraints(cmd *cobra.Command, args []string) error {
	if runFlags.file == "" && runFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}
	if runFlags.data == "" {
		return fmt.Errorf("--data is required")
	}
	format, err := cli.ParseFormat(runFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := commandContext(cmd)

	files, err := selectFiles(cmd, runFlags.file, runFlags.dir, runFlags.schema)
	if err != nil {
		return err
	}
	doc, err := readDocument(cmd, runFlags.data)
	if err != nil {
		return err
	}

	var opts []engine.Option
	if runFlags.record {
		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		rec := a.newRecorder(store)
		defer rec.Close()
		opts = append(opts, engine.WithRecorder(rec))
	}
	eng, err := a.newEngine(opts...)
	if err != nil {
		return err
	}

	reports := make([]*engine.Report, 0, len(files))
	for _, file := range files {
		if err := eng.Prepare(file); err != nil {
			return cli.NewCommandError("run", err)
		}
		evalCtx, err := evalContext(cmd, runFlags.at, runFlags.previous)
		if err != nil {
			return err
		}
		report, err := eng.Evaluate(ctx, file, doc, evalCtx)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		reports = append(reports, report)
	}

	out := outWriter(cmd)
	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(out, reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			printReport(out, r)
		}
	}

	return reportsError(reports)
}

// selectFiles loads the constraint files named by the flags. With a
// schema, only the file declaring it is returned.
func selectFiles(cmd *cobra.Command, file, dir, schema string) ([]*constraint.File, error) {
	var paths []string
	for _, p := range []string{file, dir} {
		if p != "" {
			paths = append(paths, p)
		}
	}

	loaded, err := source.NewFileSource(paths, nil).Load(commandContext(cmd))
	if err != nil {
		return nil, cli.NewCommandError("load", err)
	}
	set, err := source.NewSet(loaded)
	if err != nil {
		return nil, cli.NewCommandError("load", err)
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("no constraint files found")
	}
	if schema == "" {
		return set.Files(), nil
	}
	f, ok := set.Get(schema)
	if !ok {
		return nil, fmt.Errorf("no constraint file declares schema %q (loaded: %v)", schema, set.SchemaIDs())
	}
	return []*constraint.File{f}, nil
}

func printReport(out io.Writer, r *engine.Report) {
	fmt.Fprintf(out, "%s (contract %s)\n", r.SchemaID, r.ContractVersion)
	fmt.Fprintf(out, "  evaluated at %s, fail mode %s\n", r.EvaluationTimestamp, r.FailMode)

	for _, res := range r.Results {
		switch res.Outcome {
		case evidence.ResultPass:
			fmt.Fprintf(out, "  ✓ %s\n", res.ConstraintID)
		case evidence.ResultViolated:
			fmt.Fprintf(out, "  ✗ %s [%s]", res.ConstraintID, res.Severity)
			if res.Message != "" {
				fmt.Fprintf(out, ": %s", res.Message)
			}
			fmt.Fprintln(out)
		case evidence.ResultError:
			fmt.Fprintf(out, "  ! %s [%s]: %s: %s\n", res.ConstraintID, res.Severity, res.ErrorKind, res.ErrorMessage)
		}
	}

	passed, violated, errored := r.Counts()
	verdict := "VALID"
	if !r.Valid() {
		verdict = "INVALID"
	}
	fmt.Fprintf(out, "  %s: %d passed, %d violated, %d errored\n\n", verdict, passed, violated, errored)
}

// reportsError returns a ViolationError naming the first invalid report.
func reportsError(reports []*engine.Report) error {
	for _, r := range reports {
		if r.Valid() {
			continue
		}
		_, violated, errored := r.Counts()
		return cli.NewViolationError(r.SchemaID, violated+errored)
	}
	return nil
}
