package intel

// CompositeAggregator folds pillar scores into the Digital Health Score.
type CompositeAggregator struct {
	weights Weights
}

// NewCompositeAggregator validates the weight vector.
func NewCompositeAggregator(weights Weights) (*CompositeAggregator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &CompositeAggregator{weights: weights}, nil
}

// Weights returns the active weight vector.
func (a *CompositeAggregator) Weights() Weights {
	return a.weights
}

// Aggregate computes the weighted sum of the pillar values. A pillar without
// data contributes zero; Coverage reports the weighted share that was known.
func (a *CompositeAggregator) Aggregate(ps PillarScores) DigitalHealthScore {
	var value, coverage float64
	for _, p := range Pillars {
		w := a.weights.Get(p)
		score := ps.Get(p)
		value += w * score.Value
		coverage += w * score.Coverage
	}
	return DigitalHealthScore{
		Value:    clamp(value, 0, 100),
		Coverage: clamp(coverage, 0, 1),
	}
}
