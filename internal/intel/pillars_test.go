package intel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensionScorerFormulas(t *testing.T) {
	scorer := NewDimensionScorer(DefaultScoringConfig(), testAsOf)

	rec := NormalizedRecord{
		ID:                "r-1",
		Rating:            Known(4.6),
		ReviewCount:       Known(500),
		ResponseRate:      Known(0.5),
		ResponseTimeHours: Known(36.0),
		Website:           Known(true),
		BookingPlatform:   Known(false),
		Phone:             Unknown[bool](),
		SocialMedia:       Known(true),
		AvgReviewRating:   Known(4.2),
		RecentShare90:     Known(0.5),
		RecentShare180:    Known(0.5),
		LastReviewDate:    Known(testAsOf.AddDate(0, 0, -90)),
	}

	scores, issues := scorer.Score(rec)

	// 0.7*92 + 0.3*100
	assert.InDelta(t, 94.4, scores.Reputation.Value, 1e-9)
	assert.Equal(t, 1.0, scores.Reputation.Coverage)

	assert.InDelta(t, 50.0, scores.Responsiveness.Value, 1e-9)
	assert.Equal(t, 1.0, scores.Responsiveness.Coverage)

	assert.InDelta(t, 68.75, scores.DigitalPresence.Value, 1e-9)
	assert.InDelta(t, 0.8, scores.DigitalPresence.Coverage, 1e-9)

	// sentiment 80, alignment 90
	assert.InDelta(t, 82.5, scores.Intelligence.Value, 1e-9)

	// recency 50, freshness 50
	assert.InDelta(t, 50.0, scores.Visibility.Value, 1e-9)

	require.Len(t, issues, 1)
	assert.Equal(t, CodeLowConfidence, issues[0].Code)
	assert.Equal(t, string(PillarDigitalPresence), issues[0].Field)
}

func TestDimensionScorerPartialCoverage(t *testing.T) {
	scorer := NewDimensionScorer(DefaultScoringConfig(), testAsOf)

	scores, _ := scorer.Score(NormalizedRecord{ID: "r-1", Rating: Known(4.0)})
	assert.InDelta(t, 80.0, scores.Reputation.Value, 1e-9)
	assert.InDelta(t, 0.7, scores.Reputation.Coverage, 1e-9)

	scores, _ = scorer.Score(NormalizedRecord{ID: "r-2", AvgReviewRating: Known(3.0)})
	assert.InDelta(t, 50.0, scores.Intelligence.Value, 1e-9)
	assert.InDelta(t, 0.75, scores.Intelligence.Coverage, 1e-9)

	scores, _ = scorer.Score(NormalizedRecord{ID: "r-3", RecentShare90: Known(0.9)})
	assert.False(t, scores.Visibility.Known(), "recency needs both shares")
}

func TestDimensionScorerNoData(t *testing.T) {
	scorer := NewDimensionScorer(DefaultScoringConfig(), testAsOf)

	scores, issues := scorer.Score(NormalizedRecord{ID: "empty"})
	for _, p := range Pillars {
		ps := scores.Get(p)
		assert.Equal(t, PillarScore{}, ps, p)
		assert.False(t, ps.Known())
	}
	assert.Len(t, issues, len(Pillars))
}

func TestDimensionScorerBounds(t *testing.T) {
	scorer := NewDimensionScorer(DefaultScoringConfig(), testAsOf)

	ratings := []Opt[float64]{Unknown[float64](), Known(0.0), Known(1.0), Known(5.0)}
	counts := []Opt[int]{Unknown[int](), Known(0), Known(1), Known(1_000_000)}
	rates := []Opt[float64]{Unknown[float64](), Known(0.0), Known(1.0)}
	hours := []Opt[float64]{Unknown[float64](), Known(0.0), Known(10_000.0)}
	dates := []Opt[time.Time]{Unknown[time.Time](), Known(testAsOf.AddDate(5, 0, 0)), Known(testAsOf.AddDate(-20, 0, 0))}

	for _, rating := range ratings {
		for _, count := range counts {
			for _, rate := range rates {
				for _, h := range hours {
					for _, d := range dates {
						rec := NormalizedRecord{
							Rating:            rating,
							ReviewCount:       count,
							ResponseRate:      rate,
							ResponseTimeHours: h,
							AvgReviewRating:   rating,
							RecentShare90:     rate,
							RecentShare180:    rate,
							LastReviewDate:    d,
						}
						scores, _ := scorer.Score(rec)
						for _, p := range Pillars {
							ps := scores.Get(p)
							assert.GreaterOrEqual(t, ps.Value, 0.0)
							assert.LessOrEqual(t, ps.Value, 100.0)
							assert.GreaterOrEqual(t, ps.Coverage, 0.0)
							assert.LessOrEqual(t, ps.Coverage, 1.0)
						}
					}
				}
			}
		}
	}
}
