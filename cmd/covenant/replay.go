package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/query"
	"mercator-hq/covenant/pkg/evidence/replay"
)

var (
	replayQueryFlags queryFlags
	replayFlags      struct {
		format  string
		verbose bool
	}
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-evaluate recorded evidence",
	Long: `Re-evaluate evidence records and compare each result with the recorded one.

A record matches when its stored document still hashes to the recorded
document hash and the expression, evaluated at the recorded timestamp,
reaches the recorded result. Records stored without their document are
skipped. The exit code is 1 when any record mismatches.

Examples:
  # Replay the last week of one schema
  covenant replay --schema payment-saga --since 7d

  # Replay one evaluation
  covenant replay --evaluation 6f1c... --format json`,
	RunE: replayEvidence,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayQueryFlags.register(replayCmd, query.MaxLimit)
	replayCmd.Flags().StringVar(&replayFlags.format, "format", "text", "output format: text, json")
	replayCmd.Flags().BoolVarP(&replayFlags.verbose, "verbose", "v", false, "list matching records too")
}

func replayEvidence(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(replayFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}
	q, err := replayQueryFlags.build(time.Now())
	if err != nil {
		return err
	}

	var report *replay.Report
	err = withStore(cmd, func(ctx context.Context, a *app, store evidence.Storage) error {
		replayer := replay.New(a.logger,
			replay.WithMetrics(a.tel.Metrics()),
			replay.WithTracer(a.tel.Tracer()),
		)
		var err error
		report, err = replayer.ReplayQuery(ctx, store, q)
		if err != nil {
			return cli.NewCommandError("replay", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	out := outWriter(cmd)
	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(out, report); err != nil {
			return err
		}
	} else {
		printReplay(out, report, replayFlags.verbose)
	}

	if !report.OK() {
		return cli.NewViolationError("replay", report.Mismatched)
	}
	return nil
}

func printReplay(out io.Writer, report *replay.Report, verbose bool) {
	for _, res := range report.Results {
		switch res.Status {
		case replay.StatusMatch:
			if verbose {
				fmt.Fprintf(out, "✓ %s %s/%s: %s\n", res.RecordID, res.SchemaID, res.ConstraintID, res.Recorded)
			}
		case replay.StatusSkipped:
			if verbose {
				fmt.Fprintf(out, "- %s %s/%s: skipped: %s\n", res.RecordID, res.SchemaID, res.ConstraintID, res.Reason)
			}
		case replay.StatusMismatch:
			fmt.Fprintf(out, "✗ %s %s/%s: recorded %s", res.RecordID, res.SchemaID, res.ConstraintID, res.Recorded)
			if res.Replayed != "" {
				fmt.Fprintf(out, ", replayed %s", res.Replayed)
			}
			if res.Reason != "" {
				fmt.Fprintf(out, " (%s)", res.Reason)
			}
			fmt.Fprintln(out)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  %d matched, %d mismatched, %d skipped\n", report.Matched, report.Mismatched, report.Skipped)
}
