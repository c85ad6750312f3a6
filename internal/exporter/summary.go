package exporter

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

const summaryTopN = 10

// WriteSummary writes a plain-text overview of a run
func WriteSummary(w io.Writer, result *intel.BatchResult) error {
	ranked := make([]intel.ResultBundle, len(result.Bundles))
	copy(ranked, result.Bundles)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Health.Value > ranked[j].Health.Value
	})

	p := &printer{w: w}
	p.printf("Establishment Intelligence - Summary Report\n")
	p.printf("===========================================\n\n")
	p.printf("As of: %s\n\n", result.AsOf.Format(time.DateOnly))

	p.printf("MARKET OVERVIEW\n")
	p.printf("---------------\n")
	p.printf("Establishments: %d\n", result.Market.Establishments)
	p.printf("Cohorts: %d\n", len(result.Cohorts))
	p.printf("Top rating: %s\n", optOrNA(result.Market.TopRating))
	p.printf("Mean rating: %s\n", optOrNA(result.Market.MeanRating))
	p.printf("Rating P75: %s\n", optOrNA(result.Market.RatingTopQuartile))
	p.printf("Median reviews: %s\n", optOrNA(result.Market.MedianReviews))
	p.printf("Reviews P75: %s\n\n", optOrNA(result.Market.ReviewsTopQuartile))

	p.printf("COHORTS\n")
	p.printf("-------\n")
	for _, c := range result.Cohorts {
		flag := ""
		if c.InsufficientCohort {
			flag = " (small cohort)"
		}
		p.printf("%s: %d establishments, health mean %.2f, median %.2f, P75 %.2f, silent winners %d%s\n",
			c.Cohort, c.Size, c.HealthMean, c.HealthMedian, c.HealthTopQuartile, c.SilentWinners, flag)
	}
	p.printf("\n")

	p.printf("MOMENTUM DISTRIBUTION\n")
	p.printf("---------------------\n")
	trends := make(map[intel.Trend]int)
	for _, b := range result.Bundles {
		trends[b.Momentum.Trend]++
	}
	for _, t := range []intel.Trend{intel.TrendAccelerating, intel.TrendStable, intel.TrendDeclining, intel.TrendInsufficientHistory} {
		p.printf("%s: %d\n", t, trends[t])
	}
	p.printf("\n")

	p.printf("TOP %d (Highest Digital Health Score)\n", summaryTopN)
	p.printf("-------------------------------------\n")
	for i, b := range ranked {
		if i == summaryTopN {
			break
		}
		p.printf("%2d. %s (%s): %.2f\n", i+1, b.Record.Name, b.Record.ID, b.Health.Value)
	}
	p.printf("\n")

	p.printf("OPPORTUNITIES\n")
	p.printf("-------------\n")
	opportunities := result.Opportunities()
	if len(opportunities) == 0 {
		p.printf("none\n")
	}
	for _, b := range opportunities {
		label := "flagged"
		if b.Opportunity.SilentWinner {
			label = "silent winner"
		}
		p.printf("%s (%s): %s, health %.2f, percentile %.1f\n",
			b.Record.Name, b.Record.ID, label, b.Health.Value, b.Benchmark.HealthPercentile)
	}
	p.printf("\n")

	p.printf("DATA QUALITY\n")
	p.printf("------------\n")
	issues := make(map[string]int)
	for _, b := range result.Bundles {
		for _, is := range b.Issues {
			issues[is.Code]++
		}
	}
	codes := make([]string, 0, len(issues))
	for code := range issues {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	if len(codes) == 0 {
		p.printf("no issues\n")
	}
	for _, code := range codes {
		p.printf("%s: %d\n", code, issues[code])
	}

	return p.err
}

func optOrNA(o intel.Opt[float64]) string {
	if v, ok := o.Get(); ok {
		return fmt.Sprintf("%.2f", v)
	}
	return "n/a"
}

// printer keeps the first write error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
