package intel

import (
	"fmt"
	"strings"
)

// Field names an observable value a rule condition can test.
type Field string

const (
	FieldRating            Field = "rating"
	FieldReviewCount       Field = "review_count"
	FieldResponseRate      Field = "response_rate"
	FieldResponseTimeHours Field = "response_time_hours"
	FieldHealthScore       Field = "health_score"
	FieldReputation        Field = "reputation"
	FieldResponsiveness    Field = "responsiveness"
	FieldDigitalPresence   Field = "digital_presence"
	FieldIntelligence      Field = "intelligence"
	FieldVisibility        Field = "visibility"
)

var knownFields = map[Field]bool{
	FieldRating: true, FieldReviewCount: true, FieldResponseRate: true,
	FieldResponseTimeHours: true, FieldHealthScore: true, FieldReputation: true,
	FieldResponsiveness: true, FieldDigitalPresence: true, FieldIntelligence: true,
	FieldVisibility: true,
}

// Op is a comparison operator.
type Op string

const (
	OpLT  Op = "lt"
	OpLTE Op = "lte"
	OpGT  Op = "gt"
	OpGTE Op = "gte"
)

func (op Op) apply(observed, threshold float64) (bool, bool) {
	switch op {
	case OpLT:
		return observed < threshold, true
	case OpLTE:
		return observed <= threshold, true
	case OpGT:
		return observed > threshold, true
	case OpGTE:
		return observed >= threshold, true
	default:
		return false, false
	}
}

// Condition compares one field against a threshold.
type Condition struct {
	Field     Field   `yaml:"field" json:"field"`
	Op        Op      `yaml:"op" json:"op"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// Rule is a named conjunction of conditions.
type Rule struct {
	Name       string      `yaml:"name" json:"name"`
	Conditions []Condition `yaml:"conditions" json:"conditions"`
}

// SilentWinnerRuleName is the name of the default rule.
const SilentWinnerRuleName = "silent_winner"

// SilentWinnerRule flags well-rated establishments that rarely answer reviews.
func SilentWinnerRule() Rule {
	return Rule{
		Name: SilentWinnerRuleName,
		Conditions: []Condition{
			{Field: FieldRating, Op: OpGTE, Threshold: 4.5},
			{Field: FieldResponseRate, Op: OpLT, Threshold: 0.30},
		},
	}
}

// Observation is everything a rule may look at for one establishment.
type Observation struct {
	Record  NormalizedRecord
	Pillars PillarScores
	Health  DigitalHealthScore
}

func (o Observation) value(f Field) Opt[float64] {
	pillar := func(ps PillarScore) Opt[float64] {
		if !ps.Known() {
			return Unknown[float64]()
		}
		return Known(ps.Value)
	}
	switch f {
	case FieldRating:
		return o.Record.Rating
	case FieldReviewCount:
		if n, ok := o.Record.ReviewCount.Get(); ok {
			return Known(float64(n))
		}
		return Unknown[float64]()
	case FieldResponseRate:
		return o.Record.ResponseRate
	case FieldResponseTimeHours:
		return o.Record.ResponseTimeHours
	case FieldHealthScore:
		if o.Health.Coverage <= 0 {
			return Unknown[float64]()
		}
		return Known(o.Health.Value)
	case FieldReputation:
		return pillar(o.Pillars.Reputation)
	case FieldResponsiveness:
		return pillar(o.Pillars.Responsiveness)
	case FieldDigitalPresence:
		return pillar(o.Pillars.DigitalPresence)
	case FieldIntelligence:
		return pillar(o.Pillars.Intelligence)
	case FieldVisibility:
		return pillar(o.Pillars.Visibility)
	default:
		return Unknown[float64]()
	}
}

// OpportunityDetector evaluates an ordered rule list with three-valued logic.
type OpportunityDetector struct {
	rules []Rule
}

// NewOpportunityDetector validates the rules: names must be unique and
// non-empty, every rule needs a condition, and fields and ops must be known.
func NewOpportunityDetector(rules []Rule) (*OpportunityDetector, error) {
	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		name := strings.TrimSpace(rule.Name)
		if name == "" {
			return nil, &RuleConfigError{Rule: fmt.Sprintf("#%d", i), Reason: "rule name is empty"}
		}
		if seen[name] {
			return nil, &RuleConfigError{Rule: name, Reason: "duplicate rule name"}
		}
		seen[name] = true
		if len(rule.Conditions) == 0 {
			return nil, &RuleConfigError{Rule: name, Reason: "rule has no conditions"}
		}
		for _, c := range rule.Conditions {
			if !knownFields[c.Field] {
				return nil, &RuleConfigError{Rule: name, Reason: fmt.Sprintf("unknown field %q", c.Field)}
			}
			if _, ok := c.Op.apply(0, 0); !ok {
				return nil, &RuleConfigError{Rule: name, Reason: fmt.Sprintf("unknown op %q", c.Op)}
			}
		}
	}
	copied := make([]Rule, len(rules))
	for i, rule := range rules {
		copied[i] = Rule{Name: strings.TrimSpace(rule.Name), Conditions: append([]Condition(nil), rule.Conditions...)}
	}
	return &OpportunityDetector{rules: copied}, nil
}

// Rules returns a copy of the configured rules.
func (d *OpportunityDetector) Rules() []Rule {
	return append([]Rule(nil), d.rules...)
}

// Evaluate runs every rule. A false condition decides a rule as not
// triggered even when other conditions are unknown, so an unknown response
// rate yields insufficient_data only when the rating condition holds or is
// unknown too.
func (d *OpportunityDetector) Evaluate(obs Observation) OpportunityFlag {
	flag := OpportunityFlag{
		Status: StatusNoOpportunity,
		Rules:  make([]RuleResult, 0, len(d.rules)),
	}
	undecided := false
	for _, rule := range d.rules {
		result := evaluateRule(rule, obs)
		flag.Rules = append(flag.Rules, result)
		switch result.Outcome {
		case OutcomeTriggered:
			flag.Status = StatusOpportunity
			if rule.Name == SilentWinnerRuleName {
				flag.SilentWinner = true
			}
		case OutcomeInsufficientData:
			undecided = true
		}
	}
	if flag.Status != StatusOpportunity && undecided {
		flag.Status = StatusInsufficientData
	}
	return flag
}

func evaluateRule(rule Rule, obs Observation) RuleResult {
	result := RuleResult{
		Rule:     rule.Name,
		Evidence: make([]Evidence, 0, len(rule.Conditions)),
	}
	anyFalse, anyUnknown := false, false
	for _, c := range rule.Conditions {
		ev := Evidence{Field: c.Field, Op: c.Op, Threshold: c.Threshold}
		observed := obs.value(c.Field)
		ev.Observed = observed
		if v, ok := observed.Get(); ok {
			satisfied, _ := c.Op.apply(v, c.Threshold)
			ev.Satisfied = Known(satisfied)
			if !satisfied {
				anyFalse = true
			}
		} else {
			anyUnknown = true
		}
		result.Evidence = append(result.Evidence, ev)
	}
	switch {
	case anyFalse:
		result.Outcome = OutcomeNotTriggered
	case anyUnknown:
		result.Outcome = OutcomeInsufficientData
	default:
		result.Outcome = OutcomeTriggered
	}
	return result
}
