package intel

import (
	"math"
	"sort"
)

// CohortGroup lists the bundle indexes that belong to one cohort.
type CohortGroup struct {
	Name    string
	Indexes []int
}

// BenchmarkEngine ranks establishments inside their cohort and derives the
// cohort reference lines and gap analysis.
type BenchmarkEngine struct {
	cfg       BenchmarkConfig
	cohortKey string
}

// NewBenchmarkEngine creates an engine grouping by cohortKey.
func NewBenchmarkEngine(cfg BenchmarkConfig, cohortKey string) *BenchmarkEngine {
	return &BenchmarkEngine{cfg: cfg, cohortKey: cohortKey}
}

// CohortOf returns the cohort name of a record.
func (b *BenchmarkEngine) CohortOf(rec NormalizedRecord) string {
	if b.cohortKey == CohortNone {
		return AllCohort
	}
	if rec.District == "" {
		return UnknownCohort
	}
	return rec.District
}

// Group partitions bundles into cohorts, ordered by cohort name.
func (b *BenchmarkEngine) Group(bundles []ResultBundle) []CohortGroup {
	byName := make(map[string][]int)
	for i := range bundles {
		name := b.CohortOf(bundles[i].Record)
		byName[name] = append(byName[name], i)
	}
	groups := make([]CohortGroup, 0, len(byName))
	for name, idx := range byName {
		groups = append(groups, CohortGroup{Name: name, Indexes: idx})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Name < groups[j].Name
	})
	return groups
}

// arena is an ascending slice used for rank lookups.
type arena []float64

func newArena(values []float64) arena {
	a := make(arena, len(values))
	copy(a, values)
	sort.Float64s(a)
	return a
}

// percentile returns 100*(L+0.5E)/n where L counts strictly lower values and
// E counts equal values, the probe itself included.
func (a arena) percentile(v float64) float64 {
	n := len(a)
	if n == 0 {
		return 0
	}
	lower := sort.SearchFloat64s(a, v)
	upper := sort.Search(n, func(i int) bool { return a[i] > v })
	return 100 * (float64(lower) + 0.5*float64(upper-lower)) / float64(n)
}

// quantile interpolates linearly between the closest ranks.
func (a arena) quantile(q float64) float64 {
	n := len(a)
	if n == 0 {
		return 0
	}
	if q <= 0 {
		return a[0]
	}
	if q >= 1 {
		return a[n-1]
	}
	index := q * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return a[lower]
	}
	weight := index - float64(lower)
	return a[lower]*(1-weight) + a[upper]*weight
}

func (a arena) mean() float64 {
	if len(a) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range a {
		sum += v
	}
	return sum / float64(len(a))
}

// BenchmarkCohort fills the Benchmark of every bundle listed in group and
// returns the cohort summary. It writes only to those indexes, so disjoint
// cohorts may be processed concurrently.
func (b *BenchmarkEngine) BenchmarkCohort(group CohortGroup, bundles []ResultBundle) CohortSummary {
	size := len(group.Indexes)
	health := make([]float64, size)
	pillarValues := make(map[Pillar][]float64, len(Pillars))
	var ratings, reviews []float64
	silent := 0
	for k, i := range group.Indexes {
		bundle := &bundles[i]
		health[k] = bundle.Health.Value
		for _, p := range Pillars {
			pillarValues[p] = append(pillarValues[p], bundle.Pillars.Get(p).Value)
		}
		if r, ok := bundle.Record.Rating.Get(); ok {
			ratings = append(ratings, r)
		}
		if n, ok := bundle.Record.ReviewCount.Get(); ok {
			reviews = append(reviews, float64(n))
		}
		if bundle.Opportunity.SilentWinner {
			silent++
		}
	}

	q := b.cfg.ReferencePercentile
	healthArena := newArena(health)
	pillarArenas := make(map[Pillar]arena, len(Pillars))
	var pillarRef PillarValues
	for _, p := range Pillars {
		pillarArenas[p] = newArena(pillarValues[p])
		pillarRef = pillarRef.With(p, pillarArenas[p].quantile(q))
	}

	summary := CohortSummary{
		Cohort:             group.Name,
		Size:               size,
		HealthMean:         healthArena.mean(),
		HealthMedian:       healthArena.quantile(0.5),
		HealthTopQuartile:  healthArena.quantile(q),
		PillarTopQuartile:  pillarRef,
		RatingTopQuartile:  quantileOpt(ratings, q),
		ReviewsTopQuartile: quantileOpt(reviews, q),
		SilentWinners:      silent,
		InsufficientCohort: size < b.cfg.MinCohortSize,
	}
	if size > 0 {
		summary.HealthMin = healthArena[0]
		summary.HealthMax = healthArena[size-1]
	}

	standards := b.standards(summary)
	for _, i := range group.Indexes {
		bundle := &bundles[i]
		var percentiles PillarValues
		for _, p := range Pillars {
			percentiles = percentiles.With(p, pillarArenas[p].percentile(bundle.Pillars.Get(p).Value))
		}
		bundle.Benchmark = CohortBenchmark{
			Cohort:             group.Name,
			Size:               size,
			HealthPercentile:   healthArena.percentile(bundle.Health.Value),
			PillarPercentiles:  percentiles,
			HealthTopQuartile:  summary.HealthTopQuartile,
			PillarTopQuartile:  pillarRef,
			InsufficientCohort: summary.InsufficientCohort,
			Gaps:               GapAnalysis(bundle.Pillars, standards),
		}
		if summary.InsufficientCohort {
			bundle.Issues = append(bundle.Issues, issueFromError(&InsufficientCohortSizeWarning{Cohort: group.Name, Size: size}))
		}
	}
	return summary
}

// standards resolves the gap targets for a cohort. Without a configured
// reputation target, the cohort's top-quartile rating scaled to 100 is used.
func (b *BenchmarkEngine) standards(summary CohortSummary) PillarValues {
	gs := b.cfg.GapStandards
	reputation := gs.Reputation
	if reputation == 0 {
		if r, ok := summary.RatingTopQuartile.Get(); ok {
			reputation = r * 20
		} else {
			reputation = summary.PillarTopQuartile.Reputation
		}
	}
	return PillarValues{
		Reputation:      clamp(reputation, 0, 100),
		Responsiveness:  gs.Responsiveness,
		DigitalPresence: gs.DigitalPresence,
		Intelligence:    gs.Intelligence,
		Visibility:      gs.Visibility,
	}
}

// GapAnalysis returns standard minus score per pillar, largest gap first.
// Ties keep the canonical pillar order.
func GapAnalysis(scores PillarScores, standards PillarValues) []PillarGap {
	gaps := make([]PillarGap, 0, len(Pillars))
	for _, p := range Pillars {
		score := scores.Get(p).Value
		standard := standards.Get(p)
		gaps = append(gaps, PillarGap{
			Pillar:   p,
			Standard: standard,
			Score:    score,
			Gap:      standard - score,
		})
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Gap > gaps[j].Gap
	})
	return gaps
}

// Market summarises rating and review volume across the whole batch.
func (b *BenchmarkEngine) Market(bundles []ResultBundle) MarketSummary {
	var ratings, reviews []float64
	for i := range bundles {
		if r, ok := bundles[i].Record.Rating.Get(); ok {
			ratings = append(ratings, r)
		}
		if n, ok := bundles[i].Record.ReviewCount.Get(); ok {
			reviews = append(reviews, float64(n))
		}
	}
	q := b.cfg.ReferencePercentile
	summary := MarketSummary{
		Establishments:     len(bundles),
		RatingTopQuartile:  quantileOpt(ratings, q),
		ReviewsTopQuartile: quantileOpt(reviews, q),
		MedianReviews:      quantileOpt(reviews, 0.5),
	}
	if len(ratings) > 0 {
		a := newArena(ratings)
		summary.TopRating = Known(a[len(a)-1])
		summary.MeanRating = Known(a.mean())
	}
	return summary
}

func quantileOpt(values []float64, q float64) Opt[float64] {
	if len(values) == 0 {
		return Unknown[float64]()
	}
	return Known(newArena(values).quantile(q))
}
