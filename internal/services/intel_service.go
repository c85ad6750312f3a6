package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/config"
	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/infrastructure"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/storage"
)

// Run triggers
const (
	TriggerManual  = "manual"
	TriggerStartup = "startup"
	TriggerAPI     = "api"
	TriggerRestore = "restore"
)

// RecordLoader produces raw records for a run
type RecordLoader interface {
	Load(ctx context.Context, in config.InputConfig, asOf time.Time) ([]intel.RawRecord, error)
}

// ReportWriter writes the report files of a finished run
type ReportWriter interface {
	Export(ctx context.Context, result *intel.BatchResult) ([]string, error)
}

// ResultArchive persists finished runs
type ResultArchive interface {
	SaveRun(ctx context.Context, runID string, result *intel.BatchResult, createdAt time.Time) error
	LatestResult(ctx context.Context) (string, *intel.BatchResult, error)
	ListRuns(ctx context.Context, limit int) ([]storage.RunSummary, error)
}

// RunOptions override the configured run settings for one run
type RunOptions struct {
	Trigger   string
	AsOf      string
	CohortKey string
	Weights   []float64
}

// RunInfo describes a finished run
type RunInfo struct {
	RunID          string        `json:"run_id"`
	Trigger        string        `json:"trigger"`
	AsOf           string        `json:"as_of"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration_ns"`
	Establishments int           `json:"establishments"`
	Opportunities  int           `json:"opportunities"`
	Reports        []string      `json:"reports,omitempty"`
	Archived       bool          `json:"archived"`
}

// EstablishmentFilter narrows an establishment listing. Empty fields match
// everything.
type EstablishmentFilter struct {
	District  string
	Trend     intel.Trend
	Status    intel.OpportunityStatus
	MinHealth intel.Opt[float64]
	Limit     int
}

// IntelService runs the pipeline and serves its latest result
type IntelService struct {
	cfg     *config.Config
	loader  RecordLoader
	reports ReportWriter
	archive ResultArchive
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
	now     func() time.Time

	running atomic.Bool

	mu      sync.RWMutex
	result  *intel.BatchResult
	lastRun *RunInfo
}

// NewIntelService creates the service. reports, archive and metrics may be nil.
func NewIntelService(cfg *config.Config, loader RecordLoader, reports ReportWriter, archive ResultArchive,
	metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *IntelService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntelService{
		cfg:     cfg,
		loader:  loader,
		reports: reports,
		archive: archive,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "intel_service")),
		now:     time.Now,
	}
}

// Restore publishes the newest archived run, if any
func (s *IntelService) Restore(ctx context.Context) error {
	if s.archive == nil {
		return nil
	}

	runID, result, err := s.archive.LatestResult(ctx)
	if err != nil {
		var appErr *apierrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apierrors.ErrTypeNotFound {
			s.logger.InfoContext(ctx, "archive is empty, nothing to restore")
			return nil
		}
		return fmt.Errorf("restore latest run: %w", err)
	}

	s.publish(result, &RunInfo{
		RunID:          runID,
		Trigger:        TriggerRestore,
		AsOf:           result.AsOf.Format(time.DateOnly),
		Establishments: len(result.Bundles),
		Opportunities:  len(result.Opportunities()),
		Archived:       true,
	})
	s.logger.InfoContext(ctx, "restored archived run",
		slog.String("run_id", runID),
		slog.Int("establishments", len(result.Bundles)))
	return nil
}

// Run executes one full run. Only one run executes at a time; a concurrent
// call returns ErrRunInProgress.
func (s *IntelService) Run(ctx context.Context, opts RunOptions) (info *RunInfo, err error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	trigger := opts.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}
	runID := infrastructure.NewRunID()
	ctx = infrastructure.WithRunID(ctx, runID)
	started := s.now()

	if s.metrics != nil {
		s.metrics.RunsActive.Add(ctx, 1)
		defer s.metrics.RunsActive.Add(ctx, -1)
	}
	defer func() {
		infrastructure.RecordRun(ctx, s.metrics, trigger, time.Since(started), err)
		if err != nil {
			s.logger.ErrorContext(ctx, "run failed",
				slog.String("trigger", trigger),
				slog.String("error", err.Error()))
		}
	}()

	engineCfg, err := s.engineConfig(opts, started)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "run started",
		slog.String("trigger", trigger),
		slog.String("as_of", engineCfg.AsOf.Format(time.DateOnly)),
		slog.String("cohort_key", engineCfg.CohortKey),
		slog.String("weights", engineCfg.Weights.String()))

	records, err := s.loader.Load(ctx, s.cfg.Input, engineCfg.AsOf)
	if err != nil {
		return nil, err
	}

	pipeline, err := intel.NewPipeline(engineCfg, s.logger)
	if err != nil {
		return nil, err
	}
	result, err := pipeline.Run(ctx, records)
	if err != nil {
		return nil, err
	}

	info = &RunInfo{
		RunID:          runID,
		Trigger:        trigger,
		AsOf:           result.AsOf.Format(time.DateOnly),
		StartedAt:      started,
		Establishments: len(result.Bundles),
		Opportunities:  len(result.Opportunities()),
	}

	if s.reports != nil {
		if info.Reports, err = s.reports.Export(ctx, result); err != nil {
			return nil, err
		}
	}

	info.Archived = s.archiveRun(ctx, runID, result, started)
	info.Duration = time.Since(started)
	s.publish(result, info)

	s.logger.InfoContext(ctx, "run completed",
		slog.String("trigger", trigger),
		slog.Int("establishments", info.Establishments),
		slog.Int("opportunities", info.Opportunities),
		slog.Int("reports", len(info.Reports)),
		slog.Bool("archived", info.Archived),
		slog.Duration("duration", info.Duration))
	return info, nil
}

// archiveRun stores the run when an archive is configured. Archive failures
// are logged and do not fail the run.
func (s *IntelService) archiveRun(ctx context.Context, runID string, result *intel.BatchResult, started time.Time) bool {
	if s.archive == nil {
		return false
	}

	err := s.archive.SaveRun(ctx, runID, result, started)
	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.StoreWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to archive run", slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *IntelService) engineConfig(opts RunOptions, now time.Time) (intel.Config, error) {
	cfg := *s.cfg
	if opts.AsOf != "" {
		cfg.Run.AsOf = opts.AsOf
	}
	if opts.CohortKey != "" {
		cfg.Run.CohortKey = opts.CohortKey
	}
	if len(opts.Weights) > 0 {
		cfg.Run.Weights = opts.Weights
	}
	return cfg.EngineConfig(now)
}

func (s *IntelService) publish(result *intel.BatchResult, info *RunInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	s.lastRun = info
}

// Running reports whether a run is executing
func (s *IntelService) Running() bool {
	return s.running.Load()
}

// LastRun returns the most recently published run
func (s *IntelService) LastRun() (RunInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return RunInfo{}, false
	}
	return *s.lastRun, true
}

// Result returns the latest published result
func (s *IntelService) Result() (*intel.BatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil, ErrNoResult
	}
	return s.result, nil
}

// Establishments lists bundles in ID order, filtered
func (s *IntelService) Establishments(filter EstablishmentFilter) ([]intel.ResultBundle, error) {
	result, err := s.Result()
	if err != nil {
		return nil, err
	}

	out := make([]intel.ResultBundle, 0, len(result.Bundles))
	for _, b := range result.Bundles {
		if !filter.matches(b) {
			continue
		}
		out = append(out, b)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f EstablishmentFilter) matches(b intel.ResultBundle) bool {
	if f.District != "" && !strings.EqualFold(f.District, b.Record.District) {
		return false
	}
	if f.Trend != "" && f.Trend != b.Momentum.Trend {
		return false
	}
	if f.Status != "" && f.Status != b.Opportunity.Status {
		return false
	}
	if minHealth, ok := f.MinHealth.Get(); ok && b.Health.Value < minHealth {
		return false
	}
	return true
}

// Establishment returns one bundle by ID
func (s *IntelService) Establishment(id string) (intel.ResultBundle, error) {
	result, err := s.Result()
	if err != nil {
		return intel.ResultBundle{}, err
	}
	bundle, ok := result.Find(strings.TrimSpace(id))
	if !ok {
		return intel.ResultBundle{}, ErrEstablishmentNotFound
	}
	return bundle, nil
}

// Cohorts returns every cohort summary
func (s *IntelService) Cohorts() ([]intel.CohortSummary, error) {
	result, err := s.Result()
	if err != nil {
		return nil, err
	}
	return result.Cohorts, nil
}

// Cohort returns one cohort summary and its members
func (s *IntelService) Cohort(name string) (intel.CohortSummary, []intel.ResultBundle, error) {
	result, err := s.Result()
	if err != nil {
		return intel.CohortSummary{}, nil, err
	}
	summary, members, ok := result.Cohort(name)
	if !ok {
		return intel.CohortSummary{}, nil, ErrCohortNotFound
	}
	return summary, members, nil
}

// Opportunities returns flagged establishments, strongest health first
func (s *IntelService) Opportunities() ([]intel.ResultBundle, error) {
	result, err := s.Result()
	if err != nil {
		return nil, err
	}
	out := result.Opportunities()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Health.Value > out[j].Health.Value
	})
	return out, nil
}

// History lists archived runs, newest first
func (s *IntelService) History(ctx context.Context, limit int) ([]storage.RunSummary, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.ListRuns(ctx, limit)
}

// ArchiveEnabled reports whether runs are archived
func (s *IntelService) ArchiveEnabled() bool {
	return s.archive != nil
}
