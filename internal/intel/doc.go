// Package intel implements the establishment intelligence pipeline for
// hospitality markets.
//
// A batch of raw establishment snapshots (ratings, review counts, response
// behaviour, digital-presence indicators and monthly review counts) is turned
// into one read-only ResultBundle per establishment.
//
// # Stages
//
//  1. Normalizer: coerces German-formatted text into validated values. Missing
//     or unparseable values become explicit unknowns (Opt) plus an Issue.
//  2. DimensionScorer: five pillar scores in [0,100] with coverage.
//  3. CompositeAggregator: the weighted Digital Health Score.
//  4. OpportunityDetector: ordered rules evaluated with three-valued logic;
//     the default rule flags the "Silent Winner".
//  5. MomentumTracker: a 13-month trailing review series and its trend.
//  6. BenchmarkEngine: cohort percentiles, top-quartile reference lines and
//     gap analysis. It runs after all per-record work has finished.
//
// # Determinism
//
// The package never reads the wall clock. Every relative date resolves
// against Config.AsOf, bundles are ordered by establishment ID and percentile
// ranks do not depend on input order, so two runs over the same input encode
// to identical JSON.
//
// # Usage
//
//	cfg := intel.DefaultConfig()
//	cfg.AsOf = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
//	p, err := intel.NewPipeline(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	result, err := p.Run(ctx, records)
package intel
