package intel

import (
	"encoding/json"
	"fmt"
	"time"
)

// MonthLayout is the canonical month key used in series and reports.
const MonthLayout = "2006-01"

// RawMonthCount is one monthly review-count entry exactly as ingested.
type RawMonthCount struct {
	Month string `json:"month"`
	Count string `json:"count"`
}

// RawRecord is one establishment snapshot before cleaning.
// Every field is kept as text so the Normalizer owns all coercion.
type RawRecord struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	District          string          `json:"district"`
	Rating            string          `json:"rating"`
	ReviewCount       string          `json:"review_count"`
	ResponseRate      string          `json:"response_rate"`
	ResponseTimeHours string          `json:"response_time_hours"`
	Website           string          `json:"website"`
	Phone             string          `json:"phone"`
	BookingPlatform   string          `json:"booking_platform"`
	SocialMedia       string          `json:"social_media"`
	PriceRange        string          `json:"price_range"`
	AvgReviewRating   string          `json:"avg_review_rating"`
	RecentShare90     string          `json:"recent_share_90"`
	RecentShare180    string          `json:"recent_share_180"`
	LastReviewDate    string          `json:"last_review_date"`
	MonthlyReviews    []RawMonthCount `json:"monthly_reviews"`
}

// MonthCount is a parsed monthly review count. Month is the first day of the
// month in UTC.
type MonthCount struct {
	Month time.Time `json:"month"`
	Count int       `json:"count"`
}

// NormalizedRecord is a RawRecord with every field either validated or
// explicitly unknown.
type NormalizedRecord struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	District          string         `json:"district"`
	Rating            Opt[float64]   `json:"rating"`
	ReviewCount       Opt[int]       `json:"review_count"`
	ResponseRate      Opt[float64]   `json:"response_rate"`
	ResponseTimeHours Opt[float64]   `json:"response_time_hours"`
	Website           Opt[bool]      `json:"website"`
	Phone             Opt[bool]      `json:"phone"`
	BookingPlatform   Opt[bool]      `json:"booking_platform"`
	SocialMedia       Opt[bool]      `json:"social_media"`
	PriceRange        string         `json:"price_range,omitempty"`
	AvgReviewRating   Opt[float64]   `json:"avg_review_rating"`
	RecentShare90     Opt[float64]   `json:"recent_share_90"`
	RecentShare180    Opt[float64]   `json:"recent_share_180"`
	LastReviewDate    Opt[time.Time] `json:"last_review_date"`
	MonthlyReviews    []MonthCount   `json:"monthly_reviews"`
	Issues            []Issue        `json:"-"`
}

// Pillar names one of the five scoring dimensions.
type Pillar string

const (
	PillarReputation      Pillar = "reputation"
	PillarResponsiveness  Pillar = "responsiveness"
	PillarDigitalPresence Pillar = "digital_presence"
	PillarIntelligence    Pillar = "intelligence"
	PillarVisibility      Pillar = "visibility"
)

// Pillars lists every pillar in canonical order.
var Pillars = []Pillar{
	PillarReputation,
	PillarResponsiveness,
	PillarDigitalPresence,
	PillarIntelligence,
	PillarVisibility,
}

// PillarScore is a sub-score in [0,100] plus the share of its input weight
// that was backed by known fields.
type PillarScore struct {
	Value    float64 `json:"value"`
	Coverage float64 `json:"coverage"`
}

// Known reports whether at least one input of the pillar was present.
func (p PillarScore) Known() bool {
	return p.Coverage > 0
}

// PillarScores holds the five sub-scores of one establishment.
type PillarScores struct {
	Reputation      PillarScore `json:"reputation"`
	Responsiveness  PillarScore `json:"responsiveness"`
	DigitalPresence PillarScore `json:"digital_presence"`
	Intelligence    PillarScore `json:"intelligence"`
	Visibility      PillarScore `json:"visibility"`
}

// Get returns the score of the named pillar.
func (ps PillarScores) Get(p Pillar) PillarScore {
	switch p {
	case PillarReputation:
		return ps.Reputation
	case PillarResponsiveness:
		return ps.Responsiveness
	case PillarDigitalPresence:
		return ps.DigitalPresence
	case PillarIntelligence:
		return ps.Intelligence
	case PillarVisibility:
		return ps.Visibility
	default:
		return PillarScore{}
	}
}

// PillarValues is a plain number per pillar, used for percentiles and
// reference lines.
type PillarValues struct {
	Reputation      float64 `json:"reputation"`
	Responsiveness  float64 `json:"responsiveness"`
	DigitalPresence float64 `json:"digital_presence"`
	Intelligence    float64 `json:"intelligence"`
	Visibility      float64 `json:"visibility"`
}

// Get returns the value for the named pillar.
func (pv PillarValues) Get(p Pillar) float64 {
	switch p {
	case PillarReputation:
		return pv.Reputation
	case PillarResponsiveness:
		return pv.Responsiveness
	case PillarDigitalPresence:
		return pv.DigitalPresence
	case PillarIntelligence:
		return pv.Intelligence
	case PillarVisibility:
		return pv.Visibility
	default:
		return 0
	}
}

// With returns a copy with the named pillar set to v.
func (pv PillarValues) With(p Pillar, v float64) PillarValues {
	switch p {
	case PillarReputation:
		pv.Reputation = v
	case PillarResponsiveness:
		pv.Responsiveness = v
	case PillarDigitalPresence:
		pv.DigitalPresence = v
	case PillarIntelligence:
		pv.Intelligence = v
	case PillarVisibility:
		pv.Visibility = v
	}
	return pv
}

// DigitalHealthScore is the weighted composite of the five pillars.
type DigitalHealthScore struct {
	Value    float64 `json:"value"`
	Coverage float64 `json:"coverage"`
}

// PillarGap is the distance between a pillar score and its standard.
type PillarGap struct {
	Pillar   Pillar  `json:"pillar"`
	Standard float64 `json:"standard"`
	Score    float64 `json:"score"`
	Gap      float64 `json:"gap"`
}

// CohortBenchmark positions one establishment inside its cohort.
type CohortBenchmark struct {
	Cohort             string       `json:"cohort"`
	Size               int          `json:"size"`
	HealthPercentile   float64      `json:"health_percentile"`
	PillarPercentiles  PillarValues `json:"pillar_percentiles"`
	HealthTopQuartile  float64      `json:"health_top_quartile"`
	PillarTopQuartile  PillarValues `json:"pillar_top_quartile"`
	InsufficientCohort bool         `json:"insufficient_cohort"`
	Gaps               []PillarGap  `json:"gaps"`
}

// CohortSummary describes one cohort as a whole.
type CohortSummary struct {
	Cohort             string       `json:"cohort"`
	Size               int          `json:"size"`
	HealthMean         float64      `json:"health_mean"`
	HealthMedian       float64      `json:"health_median"`
	HealthMin          float64      `json:"health_min"`
	HealthMax          float64      `json:"health_max"`
	HealthTopQuartile  float64      `json:"health_top_quartile"`
	PillarTopQuartile  PillarValues `json:"pillar_top_quartile"`
	RatingTopQuartile  Opt[float64] `json:"rating_top_quartile"`
	ReviewsTopQuartile Opt[float64] `json:"reviews_top_quartile"`
	SilentWinners      int          `json:"silent_winners"`
	InsufficientCohort bool         `json:"insufficient_cohort"`
}

// MarketSummary aggregates rating and review volume over the whole batch.
type MarketSummary struct {
	Establishments     int          `json:"establishments"`
	RatingTopQuartile  Opt[float64] `json:"rating_top_quartile"`
	ReviewsTopQuartile Opt[float64] `json:"reviews_top_quartile"`
	TopRating          Opt[float64] `json:"top_rating"`
	MeanRating         Opt[float64] `json:"mean_rating"`
	MedianReviews      Opt[float64] `json:"median_reviews"`
}

// OpportunityStatus is the overall detector verdict for one establishment.
type OpportunityStatus string

const (
	StatusOpportunity      OpportunityStatus = "opportunity"
	StatusNoOpportunity    OpportunityStatus = "no_opportunity"
	StatusInsufficientData OpportunityStatus = "insufficient_data"
)

// RuleOutcome is the three-valued result of one rule.
type RuleOutcome string

const (
	OutcomeTriggered        RuleOutcome = "triggered"
	OutcomeNotTriggered     RuleOutcome = "not_triggered"
	OutcomeInsufficientData RuleOutcome = "insufficient_data"
)

// Evidence records how one condition evaluated.
type Evidence struct {
	Field     Field        `json:"field"`
	Op        Op           `json:"op"`
	Threshold float64      `json:"threshold"`
	Observed  Opt[float64] `json:"observed"`
	Satisfied Opt[bool]    `json:"satisfied"`
}

// RuleResult is the outcome of one rule with its evidence.
type RuleResult struct {
	Rule     string      `json:"rule"`
	Outcome  RuleOutcome `json:"outcome"`
	Evidence []Evidence  `json:"evidence"`
}

// OpportunityFlag is the detector output for one establishment.
type OpportunityFlag struct {
	Status       OpportunityStatus `json:"status"`
	SilentWinner bool              `json:"silent_winner"`
	Rules        []RuleResult      `json:"rules"`
}

// Flagged reports whether any rule triggered.
func (f OpportunityFlag) Flagged() bool {
	return f.Status == StatusOpportunity
}

// Trend classifies review momentum.
type Trend string

const (
	TrendAccelerating        Trend = "accelerating"
	TrendStable              Trend = "stable"
	TrendDeclining           Trend = "declining"
	TrendInsufficientHistory Trend = "insufficient_history"
)

// MonthPoint is one month of the trailing window. Count is unknown for gaps.
type MonthPoint struct {
	Month time.Time
	Count Opt[int]
}

type monthPointJSON struct {
	Month string   `json:"month"`
	Count Opt[int] `json:"count"`
}

// MarshalJSON renders the month as YYYY-MM.
func (m MonthPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(monthPointJSON{Month: m.Month.Format(MonthLayout), Count: m.Count})
}

// UnmarshalJSON parses the YYYY-MM month key.
func (m *MonthPoint) UnmarshalJSON(data []byte) error {
	var aux monthPointJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	month, err := time.Parse(MonthLayout, aux.Month)
	if err != nil {
		return fmt.Errorf("parse month %q: %w", aux.Month, err)
	}
	m.Month = month
	m.Count = aux.Count
	return nil
}

// MomentumSeries is the trailing monthly window and its derived trend.
type MomentumSeries struct {
	Points         []MonthPoint `json:"points"`
	Populated      int          `json:"populated"`
	ShortAverage   float64      `json:"short_average"`
	LongAverage    float64      `json:"long_average"`
	Velocity       float64      `json:"velocity"`
	RelativeChange float64      `json:"relative_change"`
	Slope          float64      `json:"slope"`
	Trend          Trend        `json:"trend"`
}

// ResultBundle is the read-only output for one establishment.
type ResultBundle struct {
	Record      NormalizedRecord   `json:"record"`
	Pillars     PillarScores       `json:"pillars"`
	Health      DigitalHealthScore `json:"health"`
	Benchmark   CohortBenchmark    `json:"benchmark"`
	Opportunity OpportunityFlag    `json:"opportunity"`
	Momentum    MomentumSeries     `json:"momentum"`
	Issues      []Issue            `json:"issues"`
}

// BatchResult is the output of one pipeline run, ordered by establishment ID.
type BatchResult struct {
	AsOf    time.Time       `json:"as_of"`
	Bundles []ResultBundle  `json:"bundles"`
	Cohorts []CohortSummary `json:"cohorts"`
	Market  MarketSummary   `json:"market"`
}

// Find returns the bundle with the given establishment ID.
func (b *BatchResult) Find(id string) (ResultBundle, bool) {
	for _, bundle := range b.Bundles {
		if bundle.Record.ID == id {
			return bundle, true
		}
	}
	return ResultBundle{}, false
}

// Cohort returns the summary and member bundles of the named cohort.
func (b *BatchResult) Cohort(name string) (CohortSummary, []ResultBundle, bool) {
	for _, summary := range b.Cohorts {
		if summary.Cohort != name {
			continue
		}
		var members []ResultBundle
		for _, bundle := range b.Bundles {
			if bundle.Benchmark.Cohort == name {
				members = append(members, bundle)
			}
		}
		return summary, members, true
	}
	return CohortSummary{}, nil, false
}

// Opportunities returns the bundles flagged by at least one rule.
func (b *BatchResult) Opportunities() []ResultBundle {
	var out []ResultBundle
	for _, bundle := range b.Bundles {
		if bundle.Opportunity.Flagged() {
			out = append(out, bundle)
		}
	}
	return out
}
