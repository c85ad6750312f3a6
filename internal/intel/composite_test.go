package intel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompositeAggregatorWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"defaults", DefaultWeights(), false},
		{"equal split", Weights{0.2, 0.2, 0.2, 0.2, 0.2}, false},
		{"within tolerance", Weights{0.3, 0.25, 0.2, 0.15, 0.1000005}, false},
		{"sum below one", Weights{0.3, 0.25, 0.2, 0.1, 0.1}, true},
		{"sum above one", Weights{0.4, 0.25, 0.2, 0.15, 0.1}, true},
		{"negative weight", Weights{0.5, 0.25, 0.2, 0.15, -0.1}, true},
		{"all zero", Weights{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := NewCompositeAggregator(tt.weights)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.weights, agg.Weights())
				return
			}
			require.Error(t, err)
			var wce *InvalidWeightConfigError
			require.True(t, errors.As(err, &wce))
			assert.InDelta(t, tt.weights.Sum(), wce.Sum, 1e-12)
			assert.Nil(t, agg)
		})
	}
}

func uniformPillars(v, coverage float64) PillarScores {
	ps := PillarScore{Value: v, Coverage: coverage}
	return PillarScores{ps, ps, ps, ps, ps}
}

func TestCompositeAggregate(t *testing.T) {
	agg, err := NewCompositeAggregator(DefaultWeights())
	require.NoError(t, err)

	t.Run("uniform", func(t *testing.T) {
		h := agg.Aggregate(uniformPillars(100, 1))
		assert.InDelta(t, 100, h.Value, 1e-9)
		assert.InDelta(t, 1, h.Coverage, 1e-9)

		h = agg.Aggregate(uniformPillars(0, 0))
		assert.Equal(t, DigitalHealthScore{}, h)
	})

	t.Run("weighted", func(t *testing.T) {
		h := agg.Aggregate(PillarScores{
			Reputation:      PillarScore{Value: 90, Coverage: 1},
			Responsiveness:  PillarScore{Value: 20, Coverage: 1},
			DigitalPresence: PillarScore{Value: 60, Coverage: 1},
			Intelligence:    PillarScore{Value: 80, Coverage: 1},
			Visibility:      PillarScore{},
		})
		// 27 + 5 + 12 + 12 + 0
		assert.InDelta(t, 56, h.Value, 1e-9)
		assert.InDelta(t, 0.9, h.Coverage, 1e-9)
	})

	t.Run("monotone in every pillar", func(t *testing.T) {
		base := uniformPillars(50, 1)
		baseHealth := agg.Aggregate(base).Value
		for _, p := range Pillars {
			raised := base
			switch p {
			case PillarReputation:
				raised.Reputation.Value = 60
			case PillarResponsiveness:
				raised.Responsiveness.Value = 60
			case PillarDigitalPresence:
				raised.DigitalPresence.Value = 60
			case PillarIntelligence:
				raised.Intelligence.Value = 60
			case PillarVisibility:
				raised.Visibility.Value = 60
			}
			assert.Greater(t, agg.Aggregate(raised).Value, baseHealth, p)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.AsOf = testAsOf
	require.NoError(t, valid.Validate())

	t.Run("weights are reported first", func(t *testing.T) {
		cfg := valid
		cfg.Weights = Weights{0.3, 0.25, 0.2, 0.1, 0.1}
		cfg.Workers = 0
		var wce *InvalidWeightConfigError
		assert.True(t, errors.As(cfg.Validate(), &wce))
	})

	t.Run("collects every problem", func(t *testing.T) {
		cfg := valid
		cfg.AsOf = time.Time{}
		cfg.Workers = 0
		cfg.CohortKey = "city"
		cfg.Momentum.ShortWindow = 13
		err := cfg.Validate()
		require.Error(t, err)

		var ce ConfigErrors
		require.True(t, errors.As(err, &ce))
		fields := make([]string, 0, len(ce))
		for _, e := range ce {
			var ve *ValidationError
			if errors.As(e, &ve) {
				fields = append(fields, ve.Field)
			}
		}
		assert.ElementsMatch(t, []string{"as_of", "workers", "cohort_key", "momentum.short_window"}, fields)
	})

	t.Run("invalid rule", func(t *testing.T) {
		cfg := valid
		cfg.Opportunity.Rules = []Rule{{Name: "broken", Conditions: []Condition{{Field: "stars", Op: OpGT, Threshold: 1}}}}
		var rce *RuleConfigError
		assert.True(t, errors.As(cfg.Validate(), &rce))
	})
}
