package intel

import (
	"time"
)

// MomentumTracker builds the trailing monthly review series and classifies
// its trend.
type MomentumTracker struct {
	cfg      MomentumConfig
	endMonth time.Time
}

// NewMomentumTracker creates a tracker whose window ends at asOf's month.
func NewMomentumTracker(cfg MomentumConfig, asOf time.Time) *MomentumTracker {
	return &MomentumTracker{cfg: cfg, endMonth: monthStart(asOf)}
}

// Window returns the first and last month of the trailing window.
func (t *MomentumTracker) Window() (time.Time, time.Time) {
	return t.endMonth.AddDate(0, -(t.cfg.Window - 1), 0), t.endMonth
}

// Track places monthly counts on the window. Months without data stay
// explicit gaps. A series that is too sparse still returns its points,
// together with an InsufficientHistoryError. Strictly rising or falling
// populated counts classify as accelerating or declining regardless of the
// relative change; otherwise the relative change is compared with the
// trend threshold.
func (t *MomentumTracker) Track(months []MonthCount) (MomentumSeries, error) {
	start, _ := t.Window()
	counts := make(map[time.Time]int, len(months))
	for _, mc := range months {
		counts[monthStart(mc.Month)] += mc.Count
	}

	series := MomentumSeries{
		Points: make([]MonthPoint, t.cfg.Window),
		Trend:  TrendInsufficientHistory,
	}
	shortFrom := t.cfg.Window - t.cfg.ShortWindow
	var (
		longSum, shortSum float64
		shortN            int
		xs, ys            []float64
	)
	for i := 0; i < t.cfg.Window; i++ {
		month := start.AddDate(0, i, 0)
		point := MonthPoint{Month: month, Count: Unknown[int]()}
		if c, ok := counts[month]; ok {
			point.Count = Known(c)
			series.Populated++
			longSum += float64(c)
			xs = append(xs, float64(i))
			ys = append(ys, float64(c))
			if i >= shortFrom {
				shortSum += float64(c)
				shortN++
			}
		}
		series.Points[i] = point
	}

	if series.Populated < t.cfg.MinPopulatedMonths {
		return series, &InsufficientHistoryError{Populated: series.Populated, Required: t.cfg.MinPopulatedMonths}
	}
	if shortN == 0 {
		return series, &InsufficientHistoryError{
			Populated: series.Populated,
			Required:  t.cfg.MinPopulatedMonths,
			Reason:    "no populated month in the short window",
		}
	}

	series.ShortAverage = shortSum / float64(shortN)
	series.LongAverage = longSum / float64(series.Populated)
	series.Velocity = series.ShortAverage - series.LongAverage
	series.RelativeChange = relativeChange(series.ShortAverage, series.LongAverage)
	series.Slope = leastSquaresSlope(xs, ys)

	rising, falling := monotonic(ys)
	switch {
	case rising:
		series.Trend = TrendAccelerating
	case falling:
		series.Trend = TrendDeclining
	case series.RelativeChange > t.cfg.TrendThreshold:
		series.Trend = TrendAccelerating
	case series.RelativeChange < -t.cfg.TrendThreshold:
		series.Trend = TrendDeclining
	default:
		series.Trend = TrendStable
	}
	return series, nil
}

// monotonic reports whether the populated counts rise or fall strictly from
// month to month.
func monotonic(ys []float64) (rising, falling bool) {
	if len(ys) < 2 {
		return false, false
	}
	rising, falling = true, true
	for i := 1; i < len(ys); i++ {
		if ys[i] <= ys[i-1] {
			rising = false
		}
		if ys[i] >= ys[i-1] {
			falling = false
		}
	}
	return rising, falling
}

// relativeChange is (short-long)/long. A zero baseline yields 1 when the short
// window has activity and 0 otherwise.
func relativeChange(short, long float64) float64 {
	if long == 0 {
		if short > 0 {
			return 1
		}
		return 0
	}
	return (short - long) / long
}

func leastSquaresSlope(xs, ys []float64) float64 {
	n := float64(len(xs))
	if len(xs) < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
