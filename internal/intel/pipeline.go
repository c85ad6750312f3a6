package intel

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"

// Pipeline runs one deterministic batch over a market snapshot.
type Pipeline struct {
	cfg        Config
	normalizer *Normalizer
	scorer     *DimensionScorer
	aggregator *CompositeAggregator
	detector   *OpportunityDetector
	tracker    *MomentumTracker
	benchmark  *BenchmarkEngine
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *pipelineMetrics
}

type pipelineMetrics struct {
	records       metric.Int64Counter
	issues        metric.Int64Counter
	opportunities metric.Int64Counter
	health        metric.Float64Histogram
	duration      metric.Float64Histogram
}

func newPipelineMetrics(meter metric.Meter) (*pipelineMetrics, error) {
	records, err := meter.Int64Counter(
		"intel_records_processed_total",
		metric.WithDescription("Total number of establishment records processed"),
	)
	if err != nil {
		return nil, err
	}
	issues, err := meter.Int64Counter(
		"intel_issues_total",
		metric.WithDescription("Total number of recoverable issues by code"),
	)
	if err != nil {
		return nil, err
	}
	opportunities, err := meter.Int64Counter(
		"intel_opportunities_total",
		metric.WithDescription("Total number of triggered opportunity rules"),
	)
	if err != nil {
		return nil, err
	}
	health, err := meter.Float64Histogram(
		"intel_health_score",
		metric.WithDescription("Distribution of digital health scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"intel_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &pipelineMetrics{
		records:       records,
		issues:        issues,
		opportunities: opportunities,
		health:        health,
		duration:      duration,
	}, nil
}

// NewPipeline validates cfg and builds every stage. A nil logger falls back
// to slog.Default().
func NewPipeline(cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	aggregator, err := NewCompositeAggregator(cfg.Weights)
	if err != nil {
		return nil, err
	}
	detector, err := NewOpportunityDetector(cfg.Opportunity.Rules)
	if err != nil {
		return nil, err
	}
	metrics, err := newPipelineMetrics(otel.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("create pipeline metrics: %w", err)
	}
	cfg.Opportunity.Rules = detector.Rules()

	return &Pipeline{
		cfg:        cfg,
		normalizer: NewNormalizer(cfg.AsOf),
		scorer:     NewDimensionScorer(cfg.Scoring, cfg.AsOf),
		aggregator: aggregator,
		detector:   detector,
		tracker:    NewMomentumTracker(cfg.Momentum, cfg.AsOf),
		benchmark:  NewBenchmarkEngine(cfg.Benchmark, cfg.CohortKey),
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		metrics:    metrics,
	}, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run processes raw records. Fatal validation errors abort before any work;
// per-record problems are attached to the bundles as issues.
func (p *Pipeline) Run(ctx context.Context, raw []RawRecord) (*BatchResult, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "intel.run",
		trace.WithAttributes(
			attribute.Int("records", len(raw)),
			attribute.String("as_of", p.cfg.AsOf.Format(time.DateOnly)),
		),
	)
	defer span.End()

	p.logger.InfoContext(ctx, "starting intelligence run",
		"records", len(raw),
		"as_of", p.cfg.AsOf.Format(time.DateOnly),
		"workers", p.cfg.Workers,
	)

	if err := p.normalizer.ValidateIDs(raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed input")
		p.logger.ErrorContext(ctx, "input validation failed", "error", err)
		return nil, fmt.Errorf("validate records: %w", err)
	}

	bundles, err := p.processRecords(ctx, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record processing aborted")
		return nil, err
	}

	cohorts, err := p.benchmarkCohorts(ctx, bundles)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "benchmarking aborted")
		return nil, err
	}

	result := &BatchResult{
		AsOf:    truncateDay(p.cfg.AsOf),
		Bundles: bundles,
		Cohorts: cohorts,
		Market:  p.benchmark.Market(bundles),
	}

	p.record(ctx, result, time.Since(start))
	p.logger.InfoContext(ctx, "intelligence run completed",
		"records", len(result.Bundles),
		"cohorts", len(result.Cohorts),
		"opportunities", len(result.Opportunities()),
		"duration", time.Since(start),
	)
	return result, nil
}

// processRecords runs the per-record stages on a bounded worker pool. Slots
// are pre-ordered by ID, and each worker writes only its own slot.
func (p *Pipeline) processRecords(ctx context.Context, raw []RawRecord) ([]ResultBundle, error) {
	ctx, span := p.tracer.Start(ctx, "intel.process_records")
	defer span.End()

	order := make([]int, len(raw))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return strings.TrimSpace(raw[order[a]].ID) < strings.TrimSpace(raw[order[b]].ID)
	})

	bundles := make([]ResultBundle, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for slot, idx := range order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bundles[slot] = p.process(raw[idx])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("process records: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("process records: %w", err)
	}
	return bundles, nil
}

// process runs normalization, scoring, aggregation, opportunity detection and
// momentum for one record.
func (p *Pipeline) process(raw RawRecord) ResultBundle {
	rec := p.normalizer.NormalizeRecord(raw)
	scores, scoreIssues := p.scorer.Score(rec)
	health := p.aggregator.Aggregate(scores)
	flag := p.detector.Evaluate(Observation{Record: rec, Pillars: scores, Health: health})

	issues := make([]Issue, 0, len(rec.Issues)+len(scoreIssues)+1)
	issues = append(issues, rec.Issues...)
	issues = append(issues, scoreIssues...)

	series, err := p.tracker.Track(rec.MonthlyReviews)
	if err != nil {
		issues = append(issues, issueFromError(err))
	}

	return ResultBundle{
		Record:      rec,
		Pillars:     scores,
		Health:      health,
		Opportunity: flag,
		Momentum:    series,
		Issues:      issues,
	}
}

// benchmarkCohorts starts after every record is scored and ranks cohorts in
// parallel.
func (p *Pipeline) benchmarkCohorts(ctx context.Context, bundles []ResultBundle) ([]CohortSummary, error) {
	ctx, span := p.tracer.Start(ctx, "intel.benchmark")
	defer span.End()

	groups := p.benchmark.Group(bundles)
	span.SetAttributes(attribute.Int("cohorts", len(groups)))
	summaries := make([]CohortSummary, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, group := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summaries[i] = p.benchmark.BenchmarkCohort(group, bundles)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("benchmark cohorts: %w", err)
	}
	for _, s := range summaries {
		if s.InsufficientCohort {
			p.logger.WarnContext(ctx, "cohort below minimum size", "cohort", s.Cohort, "size", s.Size)
		}
	}
	return summaries, nil
}

func (p *Pipeline) record(ctx context.Context, result *BatchResult, elapsed time.Duration) {
	p.metrics.records.Add(ctx, int64(len(result.Bundles)))
	p.metrics.duration.Record(ctx, elapsed.Seconds())
	for i := range result.Bundles {
		bundle := &result.Bundles[i]
		p.metrics.health.Record(ctx, bundle.Health.Value)
		for _, issue := range bundle.Issues {
			p.metrics.issues.Add(ctx, 1, metric.WithAttributes(attribute.String("code", issue.Code)))
		}
		for _, rule := range bundle.Opportunity.Rules {
			if rule.Outcome == OutcomeTriggered {
				p.metrics.opportunities.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule.Rule)))
			}
		}
	}
}
