package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/config"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/exporter"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/infrastructure"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/ingest"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/services"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "intel-report:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	configPath string
	input      string
	reviews    string
	sheet      string
	asOf       string
	outputDir  string
	formats    string
	cohortKey  string
	archive    bool
	quiet      bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("intel-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "path to config.yaml")
	fs.StringVar(&o.input, "in", "", "establishments file (.csv or .xlsx), overrides input.establishments_file")
	fs.StringVar(&o.reviews, "reviews", "", "review-level file used to enrich the establishments")
	fs.StringVar(&o.sheet, "sheet", "", "worksheet name for .xlsx input")
	fs.StringVar(&o.asOf, "as-of", "", "reference date YYYY-MM-DD (defaults to today)")
	fs.StringVar(&o.outputDir, "out", "", "output directory for reports")
	fs.StringVar(&o.formats, "formats", "", "comma-separated report formats: csv,json,xlsx,summary")
	fs.StringVar(&o.cohortKey, "cohort", "", "cohort key: district or none")
	fs.BoolVar(&o.archive, "archive", false, "store the run in the configured Postgres archive")
	fs.BoolVar(&o.quiet, "quiet", false, "do not print the summary to stdout")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return o, nil
}

// apply overlays the command line onto the loaded configuration
func (o options) apply(cfg *config.Config) {
	if o.input != "" {
		cfg.Input.EstablishmentsFile = o.input
	}
	if o.reviews != "" {
		cfg.Input.ReviewsFile = o.reviews
	}
	if o.sheet != "" {
		cfg.Input.Sheet = o.sheet
	}
	if o.outputDir != "" {
		cfg.Output.Dir = o.outputDir
	}
	if o.formats != "" {
		cfg.Output.Formats = nil
		for _, f := range strings.Split(o.formats, ",") {
			if f = strings.TrimSpace(f); f != "" {
				cfg.Output.Formats = append(cfg.Output.Formats, strings.ToLower(f))
			}
		}
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	opts.apply(cfg)

	logger := infrastructure.NewLogger(cfg.Logging.Level, stderr)

	var archive services.ResultArchive
	if opts.archive {
		if !cfg.Storage.Enabled {
			return errors.New("-archive needs storage.enabled and a DSN")
		}
		store, err := storage.Open(ctx, cfg.Storage, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		archive = store
	}

	svc := services.NewIntelService(cfg, ingest.NewLoader(logger), exporter.New(cfg.Output, logger, nil), archive, nil, logger)
	info, err := svc.Run(ctx, services.RunOptions{
		Trigger:   services.TriggerManual,
		AsOf:      opts.asOf,
		CohortKey: opts.cohortKey,
	})
	if err != nil {
		return err
	}
	if opts.archive && !info.Archived {
		return errors.New("run finished but could not be archived")
	}

	logger.Info("Report generated",
		slog.String("run_id", info.RunID),
		slog.Int("establishments", info.Establishments),
		slog.Int("opportunities", info.Opportunities),
		slog.Any("reports", info.Reports))

	if opts.quiet {
		return nil
	}
	result, err := svc.Result()
	if err != nil {
		return err
	}
	return exporter.WriteSummary(stdout, result)
}
