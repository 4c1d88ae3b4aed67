package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/constraint"
	"mercator-hq/covenant/pkg/constraint/engine"
	"mercator-hq/covenant/pkg/constraint/source"
	"mercator-hq/covenant/pkg/mcl/value"
)

var watchFlags struct {
	paths  []string
	data   string
	schema string
	format string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-evaluate a document whenever constraint files change",
	Long: `Load constraint files, evaluate a document against them and evaluate again
every time a file is written, created or removed. Runs until interrupted.
Without --dir, a configured constraints.git repository is polled instead.

A reload that fails (bad YAML, unknown builtin, duplicate schema) is
reported and the last good set of files stays in use.

Examples:
  covenant watch --dir constraints/ --data saga.json
  covenant watch --dir constraints/ --schema payment-saga --data saga.json`,
	RunE: watchConstraints,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSliceVar(&watchFlags.paths, "dir", nil, "constraint file or directory (repeatable; default: constraints.paths)")
	watchCmd.Flags().StringVarP(&watchFlags.data, "data", "d", "", "JSON document path")
	watchCmd.Flags().StringVar(&watchFlags.schema, "schema", "", "only evaluate the file with this schema_id")
	watchCmd.Flags().StringVar(&watchFlags.format, "format", "text", "output format: text, json")
}

func watchConstraints(cmd *cobra.Command, args []string) error {
	if watchFlags.data == "" {
		return fmt.Errorf("--data is required")
	}
	format, err := cli.ParseFormat(watchFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}
	doc, err := readDocument(cmd, watchFlags.data)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	eng, err := a.newEngine()
	if err != nil {
		return err
	}

	ctx, cancel := cli.SetupSignalHandler(commandContext(cmd))
	defer cancel()

	src, err := a.constraintSource(watchFlags.paths)
	if err != nil {
		return err
	}
	runner := &setRunner{
		engine: eng,
		doc:    doc,
		schema: watchFlags.schema,
		out:    outWriter(cmd),
		format: format,
	}
	reloader := source.NewReloader(src, a.logger,
		source.WithValidator(eng.Prepare),
		source.WithReloadMetrics(a.tel.Metrics()),
		source.OnReload(func(set *source.Set) { runner.run(ctx, set) }),
	)

	if _, err := reloader.Load(ctx); err != nil {
		// Keep watching: fixing the files triggers the next load.
		fmt.Fprintf(errWriter(cmd), "initial load failed: %v\n", err)
	}
	fmt.Fprintf(errWriter(cmd), "Watching %s for changes (Ctrl-C to stop)\n", src.Name())

	if err := a.follow(ctx, reloader, src); err != nil {
		return cli.NewCommandError("watch", err)
	}
	return nil
}

// setRunner evaluates one document against every file of a Set.
type setRunner struct {
	engine *engine.Engine
	doc    value.Value
	schema string
	out    io.Writer
	format cli.OutputFormat

	mu sync.Mutex
}

func (r *setRunner) run(ctx context.Context, set *source.Set) []*engine.Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	files := set.Files()
	if r.schema != "" {
		f, ok := set.Get(r.schema)
		if !ok {
			fmt.Fprintf(r.out, "no constraint file declares schema %q\n", r.schema)
			return nil
		}
		files = []*constraint.File{f}
	}

	reports := make([]*engine.Report, 0, len(files))
	for _, f := range files {
		report, err := r.engine.Evaluate(ctx, f, r.doc, nil)
		if err != nil {
			fmt.Fprintf(r.out, "%s: %v\n", f.Name(), err)
			continue
		}
		reports = append(reports, report)
	}

	if r.format == cli.FormatJSON {
		_ = cli.NewFormatter(r.format).FormatTo(r.out, reports)
		return reports
	}
	fmt.Fprintf(r.out, "--- constraint set %s ---\n", set.Version())
	for _, report := range reports {
		printReport(r.out, report)
	}
	return reports
}
