package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/export"
	"mercator-hq/covenant/pkg/evidence/query"
	"mercator-hq/covenant/pkg/evidence/retention"
)

// queryFlags are the record filters shared by evidence query, export and
// replay.
type queryFlags struct {
	schema     string
	constraint string
	evaluation string
	result     string
	since      string
	until      string
	limit      int
	offset     int
	order      string
}

func (f *queryFlags) register(cmd *cobra.Command, limit int) {
	cmd.Flags().StringVar(&f.schema, "schema", "", "filter by schema_id")
	cmd.Flags().StringVar(&f.constraint, "constraint", "", "filter by constraint id")
	cmd.Flags().StringVar(&f.evaluation, "evaluation", "", "filter by evaluation id")
	cmd.Flags().StringVar(&f.result, "result", "", "filter by result: pass, violated, error")
	cmd.Flags().StringVar(&f.since, "since", "", "records at or after: RFC 3339, YYYY-MM-DD or a duration like 24h, 7d")
	cmd.Flags().StringVar(&f.until, "until", "", "records at or before, same forms as --since")
	cmd.Flags().IntVar(&f.limit, "limit", limit, "max records (0 for the default)")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "pagination offset")
	cmd.Flags().StringVar(&f.order, "order", "desc", "sort order by recorded time: asc, desc")
}

// build converts the flags to a validated query.
func (f *queryFlags) build(now time.Time) (*evidence.Query, error) {
	q := &evidence.Query{
		SchemaID:     f.schema,
		ConstraintID: f.constraint,
		EvaluationID: f.evaluation,
		Result:       evidence.Result(f.result),
		Limit:        f.limit,
		Offset:       f.offset,
		SortOrder:    f.order,
	}
	if f.since != "" {
		t, err := query.ParseTime(f.since, now)
		if err != nil {
			return nil, fmt.Errorf("--since: %w", err)
		}
		q.StartTime = &t
	}
	if f.until != "" {
		t, err := query.ParseTime(f.until, now)
		if err != nil {
			return nil, fmt.Errorf("--until: %w", err)
		}
		q.EndTime = &t
	}
	query.ApplyDefaults(q)
	if err := query.Validate(q); err != nil {
		return nil, err
	}
	return q, nil
}

var (
	evidenceQueryFlags  queryFlags
	evidenceExportFlags queryFlags

	evidenceFlags struct {
		queryFormat  string
		exportFormat string
		output       string
		pretty       bool
		dryRun       bool
	}
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Query, export and prune evidence records",
	Long: `Access the evidence store written by "covenant run --record".

Every record holds one constraint evaluated against one document: the
expression, the document hash, the frozen evaluation timestamp and the
outcome.

Subcommands:
  query   - List records matching filters
  export  - Stream records as JSON or CSV
  prune   - Apply the retention policy now

Examples:
  # Violations of the last day
  covenant evidence query --result violated --since 24h

  # Export one schema to CSV
  covenant evidence export --schema payment-saga --format csv -o saga.csv`,
}

var evidenceQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query evidence records",
	RunE:  queryEvidence,
}

var evidenceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export evidence records",
	Long: `Stream the records matching the filters to a file or stdout.

Records are read from the store as a stream, so large exports do not need
to fit in memory.`,
	RunE: exportEvidence,
}

var evidencePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records outside the retention policy",
	Long: `Delete records older than evidence.retention.days and, when
evidence.retention.max_records is set, the oldest records beyond it.
Records are archived to evidence.retention.archive_path first when set.`,
	RunE: pruneEvidence,
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceQueryCmd, evidenceExportCmd, evidencePruneCmd)

	evidenceQueryFlags.register(evidenceQueryCmd, query.DefaultLimit)
	evidenceQueryCmd.Flags().StringVar(&evidenceFlags.queryFormat, "format", "text", "output format: text, json")

	evidenceExportFlags.register(evidenceExportCmd, query.MaxLimit)
	evidenceExportCmd.Flags().StringVar(&evidenceFlags.exportFormat, "format", "json", "export format: json, csv")
	evidenceExportCmd.Flags().StringVarP(&evidenceFlags.output, "output", "o", "", "output file (default: stdout)")
	evidenceExportCmd.Flags().BoolVar(&evidenceFlags.pretty, "pretty", false, "indent JSON output")

	evidencePruneCmd.Flags().BoolVar(&evidenceFlags.dryRun, "dry-run", false, "report what would be pruned")
}

// withStore runs fn against the configured evidence store.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, a *app, store evidence.Storage) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(commandContext(cmd), a, store)
}

func queryEvidence(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evidenceFlags.queryFormat, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}
	q, err := evidenceQueryFlags.build(time.Now())
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, a *app, store evidence.Storage) error {
		records, err := store.Query(ctx, q)
		if err != nil {
			return cli.NewCommandError("evidence", fmt.Errorf("query failed: %w", err))
		}
		total, err := store.Count(ctx, q)
		if err != nil {
			return cli.NewCommandError("evidence", fmt.Errorf("count failed: %w", err))
		}

		out := outWriter(cmd)
		if format == cli.FormatJSON {
			return cli.NewFormatter(format).FormatTo(out, map[string]interface{}{
				"total_records": total,
				"records":       records,
			})
		}
		printRecords(out, records, total, q)
		return nil
	})
}

func printRecords(out io.Writer, records []*evidence.Record, total int64, q *evidence.Query) {
	if q.StartTime != nil || q.EndTime != nil {
		from, to := "-", "-"
		if q.StartTime != nil {
			from = q.StartTime.Format(time.RFC3339)
		}
		if q.EndTime != nil {
			to = q.EndTime.Format(time.RFC3339)
		}
		fmt.Fprintf(out, "Time range: %s to %s\n", from, to)
	}
	fmt.Fprintf(out, "Matching records: %d (showing %d)\n", total, len(records))
	fmt.Fprintln(out)

	if len(records) == 0 {
		fmt.Fprintln(out, "No records found.")
		return
	}

	for i, r := range records {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Record ID: %s\n", r.ID)
		fmt.Fprintf(out, "Recorded: %s\n", r.RecordedAt.Format(time.RFC3339))
		fmt.Fprintf(out, "Constraint: %s/%s [%s]\n", r.SchemaID, r.ConstraintID, r.Severity)
		fmt.Fprintf(out, "Result: %s\n", r.Result)
		if r.ErrorKind != "" {
			fmt.Fprintf(out, "Error: %s: %s\n", r.ErrorKind, r.ErrorMessage)
		}
		fmt.Fprintf(out, "Evaluated at: %s\n", r.EvaluationTimestamp)
		fmt.Fprintf(out, "Document: %s", r.DocumentHash)
		if !r.Replayable() {
			fmt.Fprint(out, " (not stored)")
		}
		fmt.Fprintln(out)
	}

	if int64(q.Offset+len(records)) < total {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Use --limit and --offset for pagination.\n")
	}
}

func exportEvidence(cmd *cobra.Command, args []string) error {
	exporter, err := export.New(evidenceFlags.exportFormat, evidenceFlags.pretty)
	if err != nil {
		return err
	}
	q, err := evidenceExportFlags.build(time.Now())
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, a *app, store evidence.Storage) error {
		out := outWriter(cmd)
		if evidenceFlags.output != "" {
			f, err := os.Create(evidenceFlags.output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		total, err := store.Count(ctx, q)
		if err != nil {
			return cli.NewCommandError("evidence", err)
		}
		recordsCh, errCh, err := store.QueryStream(ctx, q)
		if err != nil {
			return cli.NewCommandError("evidence", err)
		}

		var progress *cli.Progress
		if evidenceFlags.output != "" {
			progress = cli.NewProgress(errWriter(cmd), "records")
		}
		counted := countRecords(ctx, recordsCh, progress, total)

		if err := exporter.ExportStream(ctx, counted, out); err != nil {
			if progress != nil {
				progress.Fail(err)
			}
			return cli.NewCommandError("export", err)
		}
		if err := <-errCh; err != nil {
			return cli.NewCommandError("export", err)
		}
		if progress != nil {
			progress.Done()
		}
		a.logger.Info("evidence exported", "format", evidenceFlags.exportFormat, "records", total)
		return nil
	})
}

// countRecords forwards records, advancing progress when it is set.
func countRecords(ctx context.Context, in <-chan *evidence.Record, progress *cli.Progress, total int64) <-chan *evidence.Record {
	if progress == nil {
		return in
	}
	if limit := int64(evidenceExportFlags.limit); limit > 0 && limit < total {
		total = limit
	}
	progress.Start(total)

	out := make(chan *evidence.Record)
	go func() {
		defer close(out)
		for r := range in {
			select {
			case out <- r:
				progress.Add(1)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func pruneEvidence(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, a *app, store evidence.Storage) error {
		pruner := retention.NewPruner(store, retention.ConfigFrom(&a.cfg.Evidence.Retention), a.logger,
			retention.WithMetrics(a.tel.Metrics()))
		out := outWriter(cmd)

		if evidenceFlags.dryRun {
			cutoff := pruner.Cutoff()
			if cutoff.IsZero() {
				fmt.Fprintln(out, "Retention disabled: no records are older than the policy.")
				return nil
			}
			n, err := store.Count(ctx, &evidence.Query{EndTime: &cutoff})
			if err != nil {
				return cli.NewCommandError("prune", err)
			}
			fmt.Fprintf(out, "Would prune %d record(s) recorded before %s\n", n, cutoff.Format(time.RFC3339))
			return nil
		}

		n, err := pruner.Prune(ctx)
		if err != nil {
			return cli.NewCommandError("prune", err)
		}
		fmt.Fprintf(out, "Pruned %d record(s)\n", n)
		return nil
	})
}
