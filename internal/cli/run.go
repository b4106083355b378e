package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"

	"rageval/internal/backend"
	"rageval/internal/bdd"
	"rageval/internal/config"
	"rageval/internal/eval"
	"rageval/internal/judge"
	"rageval/internal/runner"
	"rageval/internal/spec"
	"rageval/internal/store"
	"rageval/internal/telemetry"
	"rageval/internal/ui/live"
	"rageval/internal/warehouse"
)

// newScorer builds the metric scorer; tests swap in a scripted one.
var newScorer = func(cfg spec.Config, env config.Env) (eval.Scorer, error) {
	j, err := judge.FromSettings(cfg, env)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// runFlags are the options accepted by the run command.
type runFlags struct {
	configPath  string
	tags        string
	uiMode      string
	format      string
	metricsFile string
	verbose     bool
	strict      bool
}

func runRun(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		var opts runFlags
		fs.StringVar(&opts.configPath, "config", "", "Path to config file (default: search for .rageval/config.yml)")
		fs.StringVar(&opts.tags, "tags", "", "Godog tag expression filtering scenarios (default: features.tags)")
		fs.StringVar(&opts.uiMode, "ui", uiAuto, "Progress display: auto|live|plain")
		fs.StringVar(&opts.format, "format", "pretty", "Godog formatter for plain output")
		fs.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
		fs.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
		fs.BoolVar(&opts.strict, "strict", true, "Fail on undefined or pending steps")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}

		decision, err := resolveUIMode(opts.uiMode, opts.verbose, stdout)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return ExitUsage
		}
		if decision.warning != "" {
			fmt.Fprintln(stderr, decision.warning)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return executeRun(ctx, opts, fs.Args(), decision, stdout, stderr)
	}
}

func executeRun(ctx context.Context, opts runFlags, featurePaths []string, decision uiModeDecision, stdout, stderr io.Writer) int {
	logger := newLogger(stderr, opts.verbose)
	cfg, baseDir, env, err := loadSettings(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config:\n%v\n", err)
		return ExitError
	}
	scorer, err := newScorer(cfg, env)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to configure judge: %v\n", err)
		return ExitError
	}

	metrics := telemetry.NewMetrics()
	st, err := store.Open(cfg.Reporting.ResultsDir, uuid.NewString(), store.Options{Logger: logger, Metrics: metrics})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open results store: %v\n", err)
		return ExitError
	}
	// Runs that match no scenario never start the session; the index is still
	// cleared so it never shows a previous session's runs.
	if err := st.Reset(); err != nil {
		fmt.Fprintf(stderr, "Failed to reset current-session index: %v\n", err)
		return ExitError
	}
	var wh *warehouse.Warehouse
	if cfg.Reporting.WarehousePath != "" {
		wh, err = warehouse.Open(ctx, cfg.Reporting.WarehousePath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open warehouse: %v\n", err)
			return ExitError
		}
		defer func() {
			if err := wh.Close(); err != nil {
				logger.Warn("close warehouse", "error", err)
			}
		}()
	}

	var controller *live.Controller
	var uiObserver runner.RunObserver
	godogOutput := stdout
	if decision.useLive {
		controller = live.Start(stdout, live.Options{NoColor: decision.noColor})
		uiObserver = controller
		godogOutput = io.Discard
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	observer := runner.Observers(runner.LogObserver{Logger: logger}, uiObserver)

	client := backend.NewClient(cfg.Backend, backend.ClientOptions{Metrics: metrics, Logger: logger})
	session, err := runner.NewSession(cfg, runner.Options{
		Backend:   client,
		Scorer:    scorer,
		Store:     st,
		Warehouse: wh,
		Observer:  observer,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		controller.Close()
		_ = controller.Wait()
		fmt.Fprintf(stderr, "Failed to start session: %v\n", err)
		return ExitError
	}

	paths := featurePaths
	if len(paths) == 0 {
		paths = cfg.Features.Paths
	}
	tags := opts.tags
	if strings.TrimSpace(tags) == "" {
		tags = cfg.Features.Tags
	}
	suite := bdd.NewSuite(session, bdd.Paths{
		Root:      baseDir,
		Datasets:  cfg.Features.DatasetsDir,
		Documents: cfg.Features.DocumentsDir,
	}, logger)
	status := suite.Run(ctx, bdd.RunOptions{
		Paths:  paths,
		Tags:   tags,
		Format: opts.format,
		Output: godogOutput,
		Strict: opts.strict,
	})

	controller.Close()
	if err := controller.Wait(); err != nil {
		fmt.Fprintf(stderr, "Live UI failed: %v\n", err)
	}

	reports := suite.Reports()
	printRunSummary(stdout, reports, decision.noColor)
	if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
		fmt.Fprintf(stderr, "Failed to write metrics file: %v\n", err)
		return ExitError
	}
	if status != 0 {
		return ExitError
	}
	return ExitOK
}
