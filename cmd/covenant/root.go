package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/constraint/engine"
	"mercator-hq/covenant/pkg/constraint/source"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/recorder"
	"mercator-hq/covenant/pkg/evidence/storage"
	"mercator-hq/covenant/pkg/telemetry"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "covenant",
	Short: "Covenant - constraint evaluation for JSON documents",
	Long: `Covenant evaluates constraint files written in MCL, a small expression
language, against JSON documents.

Every constraint reports pass, violated or error. Evaluations can be
recorded as evidence (document hash, frozen timestamp, outcome) and replayed
later to prove that a decision is reproducible.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the
// outcome.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig reads the configuration file, or the defaults when none is
// given, with COVENANT_* environment overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	return cfg, nil
}

// app is the wiring shared by the commands.
type app struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	logger *slog.Logger
}

// newApp loads the configuration and builds telemetry. Logs go to stderr so
// that command output stays machine-readable.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	tel, err := telemetry.New(&cfg.Telemetry, errWriter(cmd), Version)
	if err != nil {
		return nil, cli.NewConfigError("telemetry", err.Error())
	}
	return &app{cfg: cfg, tel: tel, logger: tel.Logger().Slog()}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Telemetry.Tracing.OTLP.Timeout)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}
}

// openStore opens the configured evidence backend.
func (a *app) openStore() (evidence.Storage, error) {
	store, err := storage.New(&a.cfg.Evidence, a.logger)
	if err != nil {
		return nil, cli.NewConfigError("evidence", err.Error())
	}
	return store, nil
}

// newRecorder writes synchronously: a CLI run must not exit with records
// still buffered.
func (a *app) newRecorder(store evidence.Storage) *recorder.Recorder {
	cfg := recorder.ConfigFrom(&a.cfg.Evidence)
	cfg.AsyncBuffer = 0
	return recorder.New(store, cfg, a.logger, recorder.WithMetrics(a.tel.Metrics()))
}

func (a *app) newEngine(opts ...engine.Option) (*engine.Engine, error) {
	opts = append([]engine.Option{
		engine.WithMetrics(a.tel.Metrics()),
		engine.WithTracer(a.tel.Tracer()),
	}, opts...)
	eng, err := engine.New(engine.ConfigFrom(&a.cfg.Constraints), a.logger, opts...)
	if err != nil {
		return nil, cli.NewConfigError("constraints", err.Error())
	}
	return eng, nil
}

// constraintSource returns a file source over paths. Without paths it
// follows constraints.git when a repository is configured, and
// constraints.paths otherwise.
func (a *app) constraintSource(paths []string) (source.Source, error) {
	if len(paths) > 0 {
		return source.NewFileSource(paths, nil), nil
	}
	if a.cfg.Constraints.Git.Repository != "" {
		src, err := source.NewGitSource(a.cfg.Constraints.Git, nil, a.logger)
		if err != nil {
			return nil, cli.NewConfigError("constraints.git", err.Error())
		}
		return src, nil
	}
	return source.NewFileSource(a.cfg.Constraints.Paths, nil), nil
}

// follow keeps reloader current until ctx is done: git sources are
// polled, file sources watched.
func (a *app) follow(ctx context.Context, reloader *source.Reloader, src source.Source) error {
	if _, ok := src.(*source.GitSource); ok {
		return reloader.Poll(ctx, a.cfg.Constraints.Git.PollInterval)
	}
	return reloader.Watch(ctx, &source.WatcherConfig{Debounce: a.cfg.Constraints.Debounce})
}

func outWriter(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}

func errWriter(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stderr
	}
	return cmd.ErrOrStderr()
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
