package intel

import (
	"fmt"
	"math"
	"time"
)

// DimensionScorer computes the five pillar scores of a normalized record.
type DimensionScorer struct {
	cfg  ScoringConfig
	asOf time.Time
}

// NewDimensionScorer creates a scorer. asOf anchors review freshness.
func NewDimensionScorer(cfg ScoringConfig, asOf time.Time) *DimensionScorer {
	return &DimensionScorer{cfg: cfg, asOf: truncateDay(asOf)}
}

type component struct {
	weight float64
	value  Opt[float64]
}

// combine is the weighted mean over known components. Coverage is the known
// share of the total weight.
func combine(components ...component) PillarScore {
	var total, known, sum float64
	for _, c := range components {
		total += c.weight
		if v, ok := c.value.Get(); ok {
			known += c.weight
			sum += c.weight * clamp(v, 0, 100)
		}
	}
	if total <= 0 || known <= 0 {
		return PillarScore{}
	}
	return PillarScore{
		Value:    clamp(sum/known, 0, 100),
		Coverage: clamp(known/total, 0, 1),
	}
}

// Score returns the pillar scores and a low_confidence issue for every pillar
// not fully backed by data.
func (s *DimensionScorer) Score(rec NormalizedRecord) (PillarScores, []Issue) {
	scores := PillarScores{
		Reputation:      s.reputation(rec),
		Responsiveness:  s.responsiveness(rec),
		DigitalPresence: s.digitalPresence(rec),
		Intelligence:    s.intelligence(rec),
		Visibility:      s.visibility(rec),
	}

	var issues []Issue
	for _, p := range Pillars {
		ps := scores.Get(p)
		if ps.Coverage < 1 {
			issues = append(issues, Issue{
				Severity: SeverityInfo,
				Code:     CodeLowConfidence,
				Field:    string(p),
				Message:  fmt.Sprintf("%s backed by %.0f%% of its inputs", p, ps.Coverage*100),
			})
		}
	}
	return scores, issues
}

func (s *DimensionScorer) reputation(rec NormalizedRecord) PillarScore {
	star := Unknown[float64]()
	if r, ok := rec.Rating.Get(); ok {
		star = Known(r / 5 * 100)
	}
	volume := Unknown[float64]()
	if n, ok := rec.ReviewCount.Get(); ok {
		volume = Known(100 * math.Min(1, math.Log1p(float64(n))/math.Log1p(float64(s.cfg.ReviewSaturation))))
	}
	return combine(
		component{s.cfg.StarQualityWeight, star},
		component{s.cfg.ReviewVolumeWeight, volume},
	)
}

func (s *DimensionScorer) responsiveness(rec NormalizedRecord) PillarScore {
	rate := Unknown[float64]()
	if r, ok := rec.ResponseRate.Get(); ok {
		rate = Known(r * 100)
	}
	speed := Unknown[float64]()
	if h, ok := rec.ResponseTimeHours.Get(); ok {
		speed = Known(100 * clamp(1-h/s.cfg.MaxResponseHours, 0, 1))
	}
	return combine(
		component{s.cfg.ResponseRateWeight, rate},
		component{s.cfg.ResponseTimeWeight, speed},
	)
}

func (s *DimensionScorer) digitalPresence(rec NormalizedRecord) PillarScore {
	channel := func(o Opt[bool]) Opt[float64] {
		present, ok := o.Get()
		if !ok {
			return Unknown[float64]()
		}
		if present {
			return Known(100.0)
		}
		return Known(0.0)
	}
	return combine(
		component{s.cfg.WebsiteWeight, channel(rec.Website)},
		component{s.cfg.BookingWeight, channel(rec.BookingPlatform)},
		component{s.cfg.PhoneWeight, channel(rec.Phone)},
		component{s.cfg.SocialWeight, channel(rec.SocialMedia)},
	)
}

func (s *DimensionScorer) intelligence(rec NormalizedRecord) PillarScore {
	sentiment := Unknown[float64]()
	alignment := Unknown[float64]()
	if avg, ok := rec.AvgReviewRating.Get(); ok {
		sentiment = Known((avg - 1) / 4 * 100)
		if r, ok := rec.Rating.Get(); ok {
			alignment = Known(100 * (1 - math.Abs(avg-r)/4))
		}
	}
	return combine(
		component{s.cfg.SentimentWeight, sentiment},
		component{s.cfg.AlignmentWeight, alignment},
	)
}

func (s *DimensionScorer) visibility(rec NormalizedRecord) PillarScore {
	recency := Unknown[float64]()
	s90, ok90 := rec.RecentShare90.Get()
	s180, ok180 := rec.RecentShare180.Get()
	if ok90 && ok180 {
		recency = Known(100 * math.Min(1, s.cfg.Recent90Share*s90+s.cfg.Recent180Share*s180))
	}
	freshness := Unknown[float64]()
	if last, ok := rec.LastReviewDate.Get(); ok {
		days := math.Max(0, s.asOf.Sub(last).Hours()/24)
		freshness = Known(100 * clamp(1-days/float64(s.cfg.FreshnessHorizonDays), 0, 1))
	}
	return combine(
		component{s.cfg.RecencyWeight, recency},
		component{s.cfg.FreshnessWeight, freshness},
	)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
