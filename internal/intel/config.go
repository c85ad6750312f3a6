package intel

import (
	"fmt"
	"math"
	"time"
)

// WeightTolerance is the allowed deviation of the weight sum from 1.
const WeightTolerance = 1e-6

// Cohort keys.
const (
	CohortByDistrict = "district"
	CohortNone       = "none"
)

// Cohort names used when no district applies.
const (
	UnknownCohort = "unknown"
	AllCohort     = "all"
)

// Weights is the composite weight vector over the five pillars.
type Weights struct {
	Reputation      float64 `yaml:"reputation" json:"reputation"`
	Responsiveness  float64 `yaml:"responsiveness" json:"responsiveness"`
	DigitalPresence float64 `yaml:"digital_presence" json:"digital_presence"`
	Intelligence    float64 `yaml:"intelligence" json:"intelligence"`
	Visibility      float64 `yaml:"visibility" json:"visibility"`
}

// DefaultWeights returns the standard composite weighting.
func DefaultWeights() Weights {
	return Weights{
		Reputation:      0.30,
		Responsiveness:  0.25,
		DigitalPresence: 0.20,
		Intelligence:    0.15,
		Visibility:      0.10,
	}
}

// Get returns the weight of the named pillar.
func (w Weights) Get(p Pillar) float64 {
	switch p {
	case PillarReputation:
		return w.Reputation
	case PillarResponsiveness:
		return w.Responsiveness
	case PillarDigitalPresence:
		return w.DigitalPresence
	case PillarIntelligence:
		return w.Intelligence
	case PillarVisibility:
		return w.Visibility
	default:
		return 0
	}
}

// Sum adds all five weights.
func (w Weights) Sum() float64 {
	return w.Reputation + w.Responsiveness + w.DigitalPresence + w.Intelligence + w.Visibility
}

func (w Weights) String() string {
	return fmt.Sprintf("reputation=%.4f responsiveness=%.4f digital_presence=%.4f intelligence=%.4f visibility=%.4f",
		w.Reputation, w.Responsiveness, w.DigitalPresence, w.Intelligence, w.Visibility)
}

// Validate checks non-negativity and the unit sum.
func (w Weights) Validate() error {
	sum := w.Sum()
	for _, p := range Pillars {
		if v := w.Get(p); v < 0 || math.IsNaN(v) {
			return &InvalidWeightConfigError{Sum: sum, Weights: w}
		}
	}
	if math.IsNaN(sum) || math.Abs(sum-1) > WeightTolerance {
		return &InvalidWeightConfigError{Sum: sum, Weights: w}
	}
	return nil
}

// ScoringConfig holds the pillar constants and component weights.
type ScoringConfig struct {
	ReviewSaturation     int     `yaml:"review_saturation"`
	MaxResponseHours     float64 `yaml:"max_response_hours"`
	FreshnessHorizonDays int     `yaml:"freshness_horizon_days"`

	StarQualityWeight  float64 `yaml:"star_quality_weight"`
	ReviewVolumeWeight float64 `yaml:"review_volume_weight"`

	ResponseRateWeight float64 `yaml:"response_rate_weight"`
	ResponseTimeWeight float64 `yaml:"response_time_weight"`

	WebsiteWeight float64 `yaml:"website_weight"`
	BookingWeight float64 `yaml:"booking_weight"`
	PhoneWeight   float64 `yaml:"phone_weight"`
	SocialWeight  float64 `yaml:"social_weight"`

	SentimentWeight float64 `yaml:"sentiment_weight"`
	AlignmentWeight float64 `yaml:"alignment_weight"`

	Recent90Share   float64 `yaml:"recent_90_share"`
	Recent180Share  float64 `yaml:"recent_180_share"`
	RecencyWeight   float64 `yaml:"recency_weight"`
	FreshnessWeight float64 `yaml:"freshness_weight"`
}

// DefaultScoringConfig returns the standard pillar constants.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ReviewSaturation:     500,
		MaxResponseHours:     72,
		FreshnessHorizonDays: 180,

		StarQualityWeight:  0.70,
		ReviewVolumeWeight: 0.30,

		ResponseRateWeight: 0.75,
		ResponseTimeWeight: 0.25,

		WebsiteWeight: 40,
		BookingWeight: 25,
		PhoneWeight:   20,
		SocialWeight:  15,

		SentimentWeight: 0.75,
		AlignmentWeight: 0.25,

		Recent90Share:   0.70,
		Recent180Share:  0.30,
		RecencyWeight:   0.60,
		FreshnessWeight: 0.40,
	}
}

func (sc ScoringConfig) validate() []error {
	var errs []error
	if sc.ReviewSaturation < 1 {
		errs = append(errs, &ValidationError{Field: "scoring.review_saturation", Message: "must be at least 1", Value: sc.ReviewSaturation})
	}
	if sc.MaxResponseHours <= 0 {
		errs = append(errs, &ValidationError{Field: "scoring.max_response_hours", Message: "must be positive", Value: sc.MaxResponseHours})
	}
	if sc.FreshnessHorizonDays < 1 {
		errs = append(errs, &ValidationError{Field: "scoring.freshness_horizon_days", Message: "must be at least 1", Value: sc.FreshnessHorizonDays})
	}
	groups := []struct {
		name    string
		weights []float64
	}{
		{"reputation", []float64{sc.StarQualityWeight, sc.ReviewVolumeWeight}},
		{"responsiveness", []float64{sc.ResponseRateWeight, sc.ResponseTimeWeight}},
		{"digital_presence", []float64{sc.WebsiteWeight, sc.BookingWeight, sc.PhoneWeight, sc.SocialWeight}},
		{"intelligence", []float64{sc.SentimentWeight, sc.AlignmentWeight}},
		{"visibility", []float64{sc.RecencyWeight, sc.FreshnessWeight}},
		{"recency", []float64{sc.Recent90Share, sc.Recent180Share}},
	}
	for _, g := range groups {
		total := 0.0
		for _, w := range g.weights {
			if w < 0 {
				errs = append(errs, &ValidationError{Field: "scoring." + g.name, Message: "component weights must be non-negative", Value: g.weights})
				total = math.NaN()
				break
			}
			total += w
		}
		if total == 0 {
			errs = append(errs, &ValidationError{Field: "scoring." + g.name, Message: "component weights must not all be zero", Value: g.weights})
		}
	}
	return errs
}

// OpportunityConfig is the ordered rule list of the OpportunityDetector.
type OpportunityConfig struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultOpportunityConfig contains only the silent_winner rule.
func DefaultOpportunityConfig() OpportunityConfig {
	return OpportunityConfig{Rules: []Rule{SilentWinnerRule()}}
}

// MomentumConfig controls the trailing window and trend classification.
type MomentumConfig struct {
	Window             int     `yaml:"window"`
	ShortWindow        int     `yaml:"short_window"`
	MinPopulatedMonths int     `yaml:"min_populated_months"`
	TrendThreshold     float64 `yaml:"trend_threshold"`
}

// DefaultMomentumConfig returns the 13-month window with a 3-month short window.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		Window:             13,
		ShortWindow:        3,
		MinPopulatedMonths: 6,
		TrendThreshold:     0.10,
	}
}

func (mc MomentumConfig) validate() []error {
	var errs []error
	if mc.Window < 2 {
		errs = append(errs, &ValidationError{Field: "momentum.window", Message: "must be at least 2", Value: mc.Window})
	}
	if mc.ShortWindow < 1 || mc.ShortWindow >= mc.Window {
		errs = append(errs, &ValidationError{Field: "momentum.short_window", Message: "must be between 1 and window-1", Value: mc.ShortWindow})
	}
	if mc.MinPopulatedMonths < 1 || mc.MinPopulatedMonths > mc.Window {
		errs = append(errs, &ValidationError{Field: "momentum.min_populated_months", Message: "must be between 1 and window", Value: mc.MinPopulatedMonths})
	}
	if mc.TrendThreshold < 0 {
		errs = append(errs, &ValidationError{Field: "momentum.trend_threshold", Message: "must be non-negative", Value: mc.TrendThreshold})
	}
	return errs
}

// GapStandards are the target scores of the gap analysis. A zero Reputation
// standard is derived from the cohort's top-quartile rating.
type GapStandards struct {
	Reputation      float64 `yaml:"reputation"`
	Responsiveness  float64 `yaml:"responsiveness"`
	DigitalPresence float64 `yaml:"digital_presence"`
	Intelligence    float64 `yaml:"intelligence"`
	Visibility      float64 `yaml:"visibility"`
}

// BenchmarkConfig controls cohort ranking and gap analysis.
type BenchmarkConfig struct {
	ReferencePercentile float64      `yaml:"reference_percentile"`
	MinCohortSize       int          `yaml:"min_cohort_size"`
	GapStandards        GapStandards `yaml:"gap_standards"`
}

// DefaultBenchmarkConfig uses the 75th percentile as reference line.
func DefaultBenchmarkConfig() BenchmarkConfig {
	return BenchmarkConfig{
		ReferencePercentile: 0.75,
		MinCohortSize:       2,
		GapStandards: GapStandards{
			Responsiveness:  90,
			DigitalPresence: 85,
			Intelligence:    75,
			Visibility:      70,
		},
	}
}

func (bc BenchmarkConfig) validate() []error {
	var errs []error
	if bc.ReferencePercentile <= 0 || bc.ReferencePercentile >= 1 {
		errs = append(errs, &ValidationError{Field: "benchmark.reference_percentile", Message: "must be in (0,1)", Value: bc.ReferencePercentile})
	}
	if bc.MinCohortSize < 1 {
		errs = append(errs, &ValidationError{Field: "benchmark.min_cohort_size", Message: "must be at least 1", Value: bc.MinCohortSize})
	}
	for name, v := range map[string]float64{
		"reputation":       bc.GapStandards.Reputation,
		"responsiveness":   bc.GapStandards.Responsiveness,
		"digital_presence": bc.GapStandards.DigitalPresence,
		"intelligence":     bc.GapStandards.Intelligence,
		"visibility":       bc.GapStandards.Visibility,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, &ValidationError{Field: "benchmark.gap_standards." + name, Message: "must be in [0,100]", Value: v})
		}
	}
	return errs
}

// Config is the immutable configuration of one pipeline.
type Config struct {
	AsOf        time.Time         `yaml:"-"`
	Workers     int               `yaml:"workers"`
	CohortKey   string            `yaml:"cohort_key"`
	Weights     Weights           `yaml:"weights"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Opportunity OpportunityConfig `yaml:"opportunity"`
	Momentum    MomentumConfig    `yaml:"momentum"`
	Benchmark   BenchmarkConfig   `yaml:"benchmark"`
}

// DefaultConfig returns a complete configuration. AsOf is left zero and must
// be set by the caller.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		CohortKey:   CohortByDistrict,
		Weights:     DefaultWeights(),
		Scoring:     DefaultScoringConfig(),
		Opportunity: DefaultOpportunityConfig(),
		Momentum:    DefaultMomentumConfig(),
		Benchmark:   DefaultBenchmarkConfig(),
	}
}

// Validate returns an InvalidWeightConfigError for bad weights, otherwise a
// ConfigErrors listing every other problem.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}

	var errs ConfigErrors
	if c.AsOf.IsZero() {
		errs = append(errs, &ValidationError{Field: "as_of", Message: "as-of date is required"})
	}
	if c.Workers < 1 {
		errs = append(errs, &ValidationError{Field: "workers", Message: "must be at least 1", Value: c.Workers})
	}
	if c.CohortKey != CohortByDistrict && c.CohortKey != CohortNone {
		errs = append(errs, &ValidationError{Field: "cohort_key", Message: "must be district or none", Value: c.CohortKey})
	}
	errs = append(errs, c.Scoring.validate()...)
	errs = append(errs, c.Momentum.validate()...)
	errs = append(errs, c.Benchmark.validate()...)
	if _, err := NewOpportunityDetector(c.Opportunity.Rules); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
