package intel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func observe(rating, rate Opt[float64]) Observation {
	return Observation{Record: NormalizedRecord{ID: "r", Rating: rating, ResponseRate: rate}}
}

func TestSilentWinner(t *testing.T) {
	detector, err := NewOpportunityDetector([]Rule{SilentWinnerRule()})
	require.NoError(t, err)

	tests := []struct {
		name       string
		obs        Observation
		wantStatus OpportunityStatus
		wantRule   RuleOutcome
		silent     bool
	}{
		{"high rating rarely answering", observe(Known(4.8), Known(0.15)), StatusOpportunity, OutcomeTriggered, true},
		{"high rating answering often", observe(Known(4.8), Known(0.45)), StatusNoOpportunity, OutcomeNotTriggered, false},
		{"threshold rating is inclusive", observe(Known(4.5), Known(0.29)), StatusOpportunity, OutcomeTriggered, true},
		{"threshold rate is exclusive", observe(Known(4.9), Known(0.30)), StatusNoOpportunity, OutcomeNotTriggered, false},
		{"unknown rate", observe(Known(4.8), Unknown[float64]()), StatusInsufficientData, OutcomeInsufficientData, false},
		{"unknown rate but low rating", observe(Known(4.0), Unknown[float64]()), StatusNoOpportunity, OutcomeNotTriggered, false},
		{"nothing known", observe(Unknown[float64](), Unknown[float64]()), StatusInsufficientData, OutcomeInsufficientData, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := detector.Evaluate(tt.obs)
			assert.Equal(t, tt.wantStatus, flag.Status)
			assert.Equal(t, tt.silent, flag.SilentWinner)
			require.Len(t, flag.Rules, 1)
			assert.Equal(t, SilentWinnerRuleName, flag.Rules[0].Rule)
			assert.Equal(t, tt.wantRule, flag.Rules[0].Outcome)
			assert.Len(t, flag.Rules[0].Evidence, 2)
		})
	}
}

func TestUnknownRateDecidedByRating(t *testing.T) {
	detector, err := NewOpportunityDetector([]Rule{SilentWinnerRule()})
	require.NoError(t, err)

	flag := detector.Evaluate(observe(Known(4.0), Unknown[float64]()))
	assert.Equal(t, StatusNoOpportunity, flag.Status)
	require.Len(t, flag.Rules, 1)

	evidence := flag.Rules[0].Evidence
	require.Len(t, evidence, 2)
	assert.Equal(t, FieldRating, evidence[0].Field)
	assert.Equal(t, Known(false), evidence[0].Satisfied)
	assert.Equal(t, FieldResponseRate, evidence[1].Field)
	assert.False(t, evidence[1].Observed.IsKnown())
	assert.False(t, evidence[1].Satisfied.IsKnown())

	flag = detector.Evaluate(observe(Known(4.6), Unknown[float64]()))
	assert.Equal(t, StatusInsufficientData, flag.Status)
}

func TestRuleEvidence(t *testing.T) {
	detector, err := NewOpportunityDetector([]Rule{SilentWinnerRule()})
	require.NoError(t, err)

	flag := detector.Evaluate(observe(Known(4.8), Unknown[float64]()))
	ev := flag.Rules[0].Evidence

	assert.Equal(t, Evidence{
		Field:     FieldRating,
		Op:        OpGTE,
		Threshold: 4.5,
		Observed:  Known(4.8),
		Satisfied: Known(true),
	}, ev[0])
	assert.Equal(t, FieldResponseRate, ev[1].Field)
	assert.False(t, ev[1].Observed.IsKnown())
	assert.False(t, ev[1].Satisfied.IsKnown())
}

func TestOpportunityMultipleRules(t *testing.T) {
	rules := []Rule{
		SilentWinnerRule(),
		{
			Name: "hidden_gem",
			Conditions: []Condition{
				{Field: FieldHealthScore, Op: OpGTE, Threshold: 70},
				{Field: FieldReviewCount, Op: OpLT, Threshold: 50},
			},
		},
		{
			Name:       "slow_responder",
			Conditions: []Condition{{Field: FieldResponseTimeHours, Op: OpGT, Threshold: 48}},
		},
	}
	detector, err := NewOpportunityDetector(rules)
	require.NoError(t, err)

	obs := Observation{
		Record: NormalizedRecord{
			ID:                "r",
			Rating:            Known(4.2),
			ResponseRate:      Known(0.8),
			ReviewCount:       Known(20),
			ResponseTimeHours: Unknown[float64](),
		},
		Health: DigitalHealthScore{Value: 75, Coverage: 0.8},
	}
	flag := detector.Evaluate(obs)

	require.Len(t, flag.Rules, 3)
	assert.Equal(t, OutcomeNotTriggered, flag.Rules[0].Outcome)
	assert.Equal(t, OutcomeTriggered, flag.Rules[1].Outcome)
	assert.Equal(t, OutcomeInsufficientData, flag.Rules[2].Outcome)
	assert.Equal(t, StatusOpportunity, flag.Status)
	assert.False(t, flag.SilentWinner)
	assert.True(t, flag.Flagged())
}

func TestPillarFieldsUseCoverage(t *testing.T) {
	detector, err := NewOpportunityDetector([]Rule{{
		Name:       "weak_presence",
		Conditions: []Condition{{Field: FieldDigitalPresence, Op: OpLT, Threshold: 40}},
	}})
	require.NoError(t, err)

	flag := detector.Evaluate(Observation{Pillars: PillarScores{DigitalPresence: PillarScore{}}})
	assert.Equal(t, StatusInsufficientData, flag.Status)

	flag = detector.Evaluate(Observation{Pillars: PillarScores{DigitalPresence: PillarScore{Value: 0, Coverage: 1}}})
	assert.Equal(t, StatusOpportunity, flag.Status)
}

func TestNewOpportunityDetectorValidation(t *testing.T) {
	cond := Condition{Field: FieldRating, Op: OpGT, Threshold: 4}
	tests := []struct {
		name  string
		rules []Rule
	}{
		{"empty name", []Rule{{Name: " ", Conditions: []Condition{cond}}}},
		{"duplicate name", []Rule{{Name: "a", Conditions: []Condition{cond}}, {Name: "a", Conditions: []Condition{cond}}}},
		{"no conditions", []Rule{{Name: "a"}}},
		{"unknown field", []Rule{{Name: "a", Conditions: []Condition{{Field: "stars", Op: OpGT}}}}},
		{"unknown op", []Rule{{Name: "a", Conditions: []Condition{{Field: FieldRating, Op: "eq"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewOpportunityDetector(tt.rules)
			require.Error(t, err)
			assert.Nil(t, d)
			var rce *RuleConfigError
			assert.True(t, errors.As(err, &rce))
		})
	}

	t.Run("no rules", func(t *testing.T) {
		d, err := NewOpportunityDetector(nil)
		require.NoError(t, err)
		assert.Equal(t, StatusNoOpportunity, d.Evaluate(Observation{}).Status)
	})
}
