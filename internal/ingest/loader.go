package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/config"
	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

// Loader reads the configured input files.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader; a nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "ingest"))}
}

// Load reads the establishments file and, when configured, enriches it from
// the reviews file. File and format problems are returned as parsing errors.
func (l *Loader) Load(ctx context.Context, in config.InputConfig, asOf time.Time) ([]intel.RawRecord, error) {
	if in.EstablishmentsFile == "" {
		return nil, apierrors.NewConfigError("no establishments file configured", nil)
	}

	establishmentsFile, err := ResolveInput(in.EstablishmentsFile)
	if err != nil {
		return nil, apierrors.NewParsingError("establishments input not found", err).
			WithContext("file", in.EstablishmentsFile)
	}
	table, err := ReadTable(establishmentsFile, in.Sheet)
	if err != nil {
		return nil, apierrors.NewParsingError("failed to read establishments", err).
			WithContext("file", establishmentsFile)
	}
	establishments := Establishments(table)
	l.logger.InfoContext(ctx, "establishments loaded",
		slog.String("file", establishmentsFile),
		slog.Int("rows", len(establishments)),
		slog.Int("columns", len(table.Header)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if in.ReviewsFile != "" {
		reviewsFile, err := ResolveInput(in.ReviewsFile)
		if err != nil {
			return nil, apierrors.NewParsingError("reviews input not found", err).
				WithContext("file", in.ReviewsFile)
		}
		reviewTable, err := ReadTable(reviewsFile, "")
		if err != nil {
			return nil, apierrors.NewParsingError("failed to read reviews", err).
				WithContext("file", reviewsFile)
		}
		set, err := Reviews(reviewTable)
		if err != nil {
			return nil, apierrors.NewParsingError("invalid reviews file", err).
				WithContext("file", reviewsFile)
		}

		stats := Enrich(establishments, set, asOf)
		l.logger.InfoContext(ctx, "reviews joined",
			slog.String("file", reviewsFile),
			slog.Int("reviews", len(set.Reviews)),
			slog.Int("matched_establishments", stats.Matched),
			slog.Int("unmatched_reviews", stats.Unmatched),
			slog.Int("undated_reviews", stats.Undated),
			slog.Int("fields_added", stats.FieldsAdded))
		if !set.HasResponse {
			l.logger.WarnContext(ctx, "reviews file has no owner response column, response rates not derived")
		}
	}

	return Records(establishments), nil
}
