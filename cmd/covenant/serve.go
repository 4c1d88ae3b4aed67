package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/constraint/source"
	"mercator-hq/covenant/pkg/evidence/retention"
	"mercator-hq/covenant/pkg/server"
	"mercator-hq/covenant/pkg/telemetry/health"
)

var serveFlags struct {
	listen string
	paths  []string
	data   string
	watch  bool
}

var serveCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve metrics and health probes while watching constraint files",
	Long: `Run until interrupted, serving:
  - Prometheus metrics at telemetry.metrics.path (default /metrics)
  - liveness and readiness probes (default /health and /ready)
  - build information at /version

Constraint files are loaded from --dir, else from constraints.git when a
repository is configured, else from constraints.paths. With --watch or
constraints.watch they are reloaded on change (a repository is pulled
every constraints.git.poll_interval); /ready fails until a load succeeds.
With --data, the document is evaluated against every file after each
reload, which feeds the evaluation metrics. When evidence is enabled, the retention pruner runs
on its cron schedule.

Examples:
  covenant serve-metrics --listen :9090 --dir constraints/ --watch
  covenant serve-metrics -c covenant.yaml --data saga.json`,
	RunE: serveMetrics,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.listen, "listen", "", "listen address (default: telemetry.metrics.listen_address)")
	serveCmd.Flags().StringSliceVar(&serveFlags.paths, "dir", nil, "constraint file or directory (repeatable; default: constraints.paths)")
	serveCmd.Flags().StringVarP(&serveFlags.data, "data", "d", "", "JSON document to evaluate after each reload")
	serveCmd.Flags().BoolVar(&serveFlags.watch, "watch", false, "reload constraint files on change (default: constraints.watch)")
}

func serveMetrics(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cli.SetupSignalHandler(commandContext(cmd))
	defer cancel()

	eng, err := a.newEngine()
	if err != nil {
		return err
	}

	opts := []source.ReloaderOption{
		source.WithValidator(eng.Prepare),
		source.WithReloadMetrics(a.tel.Metrics()),
	}
	if serveFlags.data != "" {
		doc, err := readDocument(cmd, serveFlags.data)
		if err != nil {
			return err
		}
		runner := &setRunner{engine: eng, doc: doc, out: outWriter(cmd), format: cli.FormatText}
		opts = append(opts, source.OnReload(func(set *source.Set) { runner.run(ctx, set) }))
	}

	src, err := a.constraintSource(serveFlags.paths)
	if err != nil {
		return err
	}
	reloader := source.NewReloader(src, a.logger, opts...)

	checker := health.New(a.cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("constraints", reloader.Check)

	var pruner *retention.Pruner
	if a.cfg.Evidence.Enabled {
		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		checker.RegisterCheck("evidence", func(ctx context.Context) error {
			_, err := store.Count(ctx, nil)
			return err
		})
		pruner = retention.NewPruner(store, retention.ConfigFrom(&a.cfg.Evidence.Retention), a.logger,
			retention.WithMetrics(a.tel.Metrics()))
	}

	mux := http.NewServeMux()
	mux.Handle(a.cfg.Telemetry.Metrics.Path, a.tel.Metrics().Handler())
	health.Mount(mux, checker, &a.cfg.Telemetry.Health, Version, GitCommit, BuildDate)

	listen := serveFlags.listen
	if listen == "" {
		listen = a.cfg.Telemetry.Metrics.ListenAddress
	}
	srv := server.New(server.DefaultConfig(listen), mux, a.logger)

	if _, err := reloader.Load(ctx); err != nil {
		a.logger.Warn("initial constraint load failed; not ready until fixed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	if serveFlags.watch || a.cfg.Constraints.Watch {
		g.Go(func() error { return a.follow(gctx, reloader, src) })
	}
	if pruner != nil {
		if err := pruner.Start(gctx); err != nil {
			return cli.NewConfigError("evidence.retention", err.Error())
		}
		defer pruner.Stop()
		if next := pruner.NextPruning(); next != nil {
			a.logger.Info("evidence pruning scheduled", "next", next.String())
		}
	}

	fmt.Fprintf(errWriter(cmd), "Serving metrics on %s%s\n", listen, a.cfg.Telemetry.Metrics.Path)
	if err := g.Wait(); err != nil {
		return cli.NewCommandError("serve-metrics", err)
	}
	return nil
}
