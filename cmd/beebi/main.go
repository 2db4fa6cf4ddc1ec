// beebi runs the activity analyzers from the command line.
//
//	beebi [flags] list
//	beebi [flags] <analyzer>
//	beebi [flags] report <feed|sleep|diaper>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"beebi/backend/internal/analytics"
	"beebi/backend/internal/config"
	"beebi/backend/internal/report"
	"beebi/backend/internal/service"
	"beebi/backend/internal/stats"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	source           string
	sqlitePath       string
	csvPath          string
	databaseURL      string
	policyFile       string
	timezone         string
	lookback         int
	days             int
	subject          string
	bySubject        bool
	bins             int
	maxIntervalHours float64
	bigPooThreshold  int
	format           string
	logLevel         string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.Load()
	opts := options{
		source:     cfg.DataSource,
		sqlitePath: cfg.SQLitePath,
		csvPath:    cfg.CSVPath,
		lookback:   cfg.DefaultLookbackDays,
		timezone:   cfg.Timezone,
		format:     "json",
		logLevel:   "warn",
	}

	flagSet := pflag.NewFlagSet("beebi", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.source, "source", opts.source, "data source: sqlite, csv or postgres")
	flagSet.StringVar(&opts.sqlitePath, "sqlite-path", opts.sqlitePath, "SQLite database file")
	flagSet.StringVar(&opts.csvPath, "csv-path", opts.csvPath, "CSV activity export")
	flagSet.StringVar(&opts.databaseURL, "database-url", "", "Postgres connection URL (default: DATABASE_URL)")
	flagSet.StringVar(&opts.policyFile, "policy", cfg.PolicyFile, "YAML file overriding analyzer thresholds")
	flagSet.StringVar(&opts.timezone, "timezone", opts.timezone, "IANA zone used for hour-of-day and calendar-day bucketing")
	flagSet.IntVar(&opts.lookback, "lookback", opts.lookback, "days of history to load; 0 loads everything")
	flagSet.IntVarP(&opts.days, "days", "d", 0, "trailing analysis window in days (default: all loaded history)")
	flagSet.StringVarP(&opts.subject, "subject", "s", "", "subject id (default: DEFAULT_SUBJECT_ID)")
	flagSet.BoolVar(&opts.bySubject, "by-subject", false, "group diaper frequency and interval results per subject")
	flagSet.IntVar(&opts.bins, "bins", 0, "number of day slices for diaper_timing")
	flagSet.Float64Var(&opts.maxIntervalHours, "max-interval-hours", 0, "long_interval alert threshold for diaper_alert")
	flagSet.IntVar(&opts.bigPooThreshold, "big-poo-threshold", 0, "minimum big poo run for diaper_alert")
	flagSet.StringVarP(&opts.format, "format", "f", opts.format, "output format: json or text")
	flagSet.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level written to stderr")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: beebi [flags] list | <analyzer> | report <feed|sleep|diaper>\n\nFlags:\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if opts.format != "json" && opts.format != "text" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return errors.New("missing command")
	}

	if rest[0] == "list" {
		for _, name := range analytics.Names() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	cfg.DataSource = strings.ToLower(opts.source)
	cfg.SQLitePath = opts.sqlitePath
	cfg.CSVPath = opts.csvPath
	if opts.databaseURL != "" {
		cfg.DatabaseURL = opts.databaseURL
	}
	cfg.PolicyFile = opts.policyFile
	cfg.Timezone = opts.timezone
	cfg.DefaultLookbackDays = opts.lookback
	cfg.LogLevel = opts.logLevel
	if err := cfg.Validate(); err != nil {
		return err
	}

	q := analytics.Query{
		SubjectID:        opts.subject,
		BySubject:        opts.bySubject,
		Bins:             opts.bins,
		MaxIntervalHours: opts.maxIntervalHours,
		BigPooThreshold:  opts.bigPooThreshold,
	}
	if flagSet.Changed("days") {
		q.Days = &opts.days
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	engine, closeSource, err := service.NewEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	if rest[0] == "report" {
		if len(rest) < 2 {
			return errors.New("report needs a domain: feed, sleep or diaper")
		}
		domain, ok := report.ParseDomain(rest[1])
		if !ok {
			return fmt.Errorf("unknown report domain %q", rest[1])
		}
		result, err := report.Build(ctx, engine, domain, q)
		if err != nil {
			return err
		}
		if opts.format == "text" {
			_, err := fmt.Fprintln(stdout, result.Text)
			return err
		}
		return writeJSON(stdout, result)
	}

	result, ok := engine.Run(ctx, rest[0], q)
	if !ok {
		return fmt.Errorf("unknown analyzer %q (run \"beebi list\")", rest[0])
	}
	if opts.format == "text" {
		return writeText(stdout, result)
	}
	return writeJSON(stdout, result)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeText(w io.Writer, r analytics.Report) error {
	fmt.Fprintf(w, "%s [%s]\n", r.Analyzer, r.Status)
	fmt.Fprintln(w, r.Summary)
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
	for _, key := range stats.SortedKeys(r.Metrics) {
		encoded, err := json.Marshal(r.Metrics[key])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s: %s\n", key, encoded)
	}
	if r.Recommendation != "" {
		fmt.Fprintf(w, "Suggestion: %s\n", r.Recommendation)
	}
	return nil
}
