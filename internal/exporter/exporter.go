package exporter

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/config"
	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/infrastructure"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

// Supported report formats
const (
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatXLSX    = "xlsx"
	FormatSummary = "summary"
)

// Exporter writes a run's reports in the configured formats
type Exporter struct {
	dir       string
	formats   []string
	csvWriter *CSVWriter
	logger    *slog.Logger
	metrics   *infrastructure.BusinessMetrics
}

// New creates an exporter. metrics may be nil.
func New(cfg config.OutputConfig, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "exporter"))
	return &Exporter{
		dir:       cfg.Dir,
		formats:   cfg.Formats,
		csvWriter: NewCSVWriter(cfg.Dir, logger),
		logger:    logger,
		metrics:   metrics,
	}
}

// FileName returns the report file name for a format. Names carry the as-of
// date so reruns of the same snapshot replace their reports.
func FileName(format string, result *intel.BatchResult) string {
	stamp := result.AsOf.Format("20060102")
	switch format {
	case FormatCSV:
		return fmt.Sprintf("intel_results_%s.csv", stamp)
	case FormatJSON:
		return fmt.Sprintf("intel_results_%s.json", stamp)
	case FormatXLSX:
		return fmt.Sprintf("intel_report_%s.xlsx", stamp)
	case FormatSummary:
		return fmt.Sprintf("intel_summary_%s.txt", stamp)
	default:
		return ""
	}
}

// Export writes every configured format and returns the written paths.
// It stops at the first failure.
func (e *Exporter) Export(ctx context.Context, result *intel.BatchResult) ([]string, error) {
	var written []string
	for _, format := range e.formats {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		name := FileName(format, result)
		if name == "" {
			return written, apierrors.NewExportError(fmt.Sprintf("unsupported format %q", format), nil)
		}
		path := filepath.Join(e.dir, name)

		paths, err := e.write(format, name, result)
		if err != nil {
			return written, apierrors.NewExportError("failed to write "+format+" report", err).
				WithContext("path", path)
		}
		written = append(written, paths...)

		if e.metrics != nil {
			e.metrics.ReportsWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
		}
		e.logger.InfoContext(ctx, "report written",
			slog.String("format", format),
			slog.String("path", path))
	}
	return written, nil
}

// write produces one format. CSV output is two files: results and cohorts.
func (e *Exporter) write(format, name string, result *intel.BatchResult) ([]string, error) {
	path := filepath.Join(e.dir, name)
	var err error
	switch format {
	case FormatCSV:
		if err = e.writeResultsCSV(name, result); err != nil {
			return nil, err
		}
		cohortName := fmt.Sprintf("intel_cohorts_%s.csv", result.AsOf.Format("20060102"))
		table := CohortsTable(result)
		if err = e.csvWriter.WriteSimpleCSV(cohortName, table.Headers, table.Rows); err != nil {
			return nil, err
		}
		return []string{path, filepath.Join(e.dir, cohortName)}, nil
	case FormatXLSX:
		err = WriteWorkbook(path, result)
	case FormatJSON:
		err = writeFile(path, func(w *bufio.Writer) error { return WriteJSON(w, result) })
	case FormatSummary:
		err = writeFile(path, func(w *bufio.Writer) error { return WriteSummary(w, result) })
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (e *Exporter) writeResultsCSV(name string, result *intel.BatchResult) error {
	table := ResultsTable(result)
	sw, err := e.csvWriter.CreateStreamWriter(name, table.Headers)
	if err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := sw.WriteRecord(row); err != nil {
			sw.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	return sw.Close()
}

func writeFile(path string, fill func(w *bufio.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
