package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"rageval/internal/metric"
	"rageval/internal/store"
	"rageval/internal/trend"
	"rageval/internal/warehouse"
)

// runReport recomputes trends/trend.json from history.jsonl without running anything.
func runReport(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .rageval/config.yml)")
		metricName := fs.String("metric", "", "Also print the warehouse history of this metric")
		questionText := fs.String("question", "", "Also print per-metric pass rates of this question across runs")
		expected := fs.String("expected", "", "Expected answer identifying --question when texts repeat")
		limit := fs.Int("limit", 0, "Rows of warehouse history to print (default: keep_last_n_runs)")
		verbose := fs.Bool("verbose", false, "Enable debug logging")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		if fs.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		logger := newLogger(stderr, *verbose)
		cfg, _, _, err := loadSettings(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config:\n%v\n", err)
			return ExitError
		}
		decision, _ := resolveUIMode(uiPlain, *verbose, stdout)

		st, err := store.Open(cfg.Reporting.ResultsDir, uuid.NewString(), store.Options{Logger: logger})
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open results store: %v\n", err)
			return ExitError
		}
		history, err := st.History()
		if err != nil {
			fmt.Fprintf(stderr, "Failed to read history: %v\n", err)
			return ExitError
		}
		rule, err := trend.RuleFor(cfg)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid trend rule: %v\n", err)
			return ExitError
		}
		summary := trend.NewEngine(rule, cfg.Reporting.KeepLastNRuns).Compute(history)
		path, err := st.WriteTrend(summary)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to write trend: %v\n", err)
			return ExitError
		}
		printTrend(stdout, summary, decision.noColor)
		fmt.Fprintf(stdout, "Trend: %s\n", path)

		if *metricName == "" && *questionText == "" {
			return ExitOK
		}
		if cfg.Reporting.WarehousePath == "" {
			fmt.Fprintln(stderr, "--metric and --question require reporting.warehouse_path")
			return ExitUsage
		}
		ctx := context.Background()
		wh, err := warehouse.Open(ctx, cfg.Reporting.WarehousePath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open warehouse: %v\n", err)
			return ExitError
		}
		defer wh.Close()
		// Backfill the warehouse from artifacts; ingest is idempotent.
		for _, entry := range history {
			run, err := st.LoadRun(entry.RunID)
			if err != nil {
				logger.Warn("skip run missing artifact", "run_id", entry.RunID, "error", err)
				continue
			}
			if err := wh.Ingest(ctx, run); err != nil {
				fmt.Fprintf(stderr, "Failed to ingest %s: %v\n", entry.RunID, err)
				return ExitError
			}
		}

		if *metricName != "" {
			rows := *limit
			if rows <= 0 {
				rows = cfg.Reporting.KeepLastNRuns
			}
			name := metric.Normalize(*metricName)
			points, err := wh.MetricHistory(ctx, name, rows)
			if err != nil {
				fmt.Fprintf(stderr, "Failed to query metric history: %v\n", err)
				return ExitError
			}
			fmt.Fprintf(stdout, "History of %s:\n", name)
			for _, point := range points {
				fmt.Fprintf(stdout, "  %s %s avg=%s pass_rate=%.2f\n",
					point.RunID, point.StartedAt.UTC().Format("2006-01-02T15:04:05Z"), score(point.AvgScore), point.PassRate)
			}
		}

		if *questionText != "" {
			rates, err := wh.QuestionPassRate(ctx, *questionText, *expected)
			if err != nil {
				fmt.Fprintf(stderr, "Failed to query question pass rate: %v\n", err)
				return ExitError
			}
			fmt.Fprintf(stdout, "Pass rate of %q:\n", *questionText)
			if len(rates) == 0 {
				fmt.Fprintln(stdout, "  no outcomes recorded")
			}
			names := make([]string, 0, len(rates))
			for name := range rates {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(stdout, "  %s pass_rate=%.2f\n", name, rates[name])
			}
		}
		return ExitOK
	}
}
