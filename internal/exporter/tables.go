package exporter

import (
	"strconv"
	"strings"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

// Table is a header plus rows, shared by the CSV and workbook writers.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

var resultHeaders = []string{
	"ID",
	"Name",
	"District",
	"Cohort",
	"Health_Score",
	"Health_Coverage",
	"Reputation",
	"Responsiveness",
	"Digital_Presence",
	"Intelligence",
	"Visibility",
	"Health_Percentile",
	"Cohort_Size",
	"Insufficient_Cohort",
	"Opportunity_Status",
	"Silent_Winner",
	"Trend",
	"Velocity",
	"Relative_Change",
	"Populated_Months",
	"Issues",
}

// ResultsTable has one row per establishment in batch order.
func ResultsTable(result *intel.BatchResult) Table {
	rows := make([][]string, 0, len(result.Bundles))
	for _, b := range result.Bundles {
		rows = append(rows, []string{
			b.Record.ID,
			b.Record.Name,
			b.Record.District,
			b.Benchmark.Cohort,
			formatFloat(b.Health.Value),
			formatFloat(b.Health.Coverage),
			formatPillar(b.Pillars.Reputation),
			formatPillar(b.Pillars.Responsiveness),
			formatPillar(b.Pillars.DigitalPresence),
			formatPillar(b.Pillars.Intelligence),
			formatPillar(b.Pillars.Visibility),
			formatFloat(b.Benchmark.HealthPercentile),
			strconv.Itoa(b.Benchmark.Size),
			formatBool(b.Benchmark.InsufficientCohort),
			string(b.Opportunity.Status),
			formatBool(b.Opportunity.SilentWinner),
			string(b.Momentum.Trend),
			formatFloat(b.Momentum.Velocity),
			formatFloat(b.Momentum.RelativeChange),
			strconv.Itoa(b.Momentum.Populated),
			issueCodes(b.Issues),
		})
	}
	return Table{Name: "Results", Headers: resultHeaders, Rows: rows}
}

// issueCodes joins the distinct issue codes in first-seen order
func issueCodes(issues []intel.Issue) string {
	seen := make(map[string]bool, len(issues))
	codes := make([]string, 0, len(issues))
	for _, is := range issues {
		if seen[is.Code] {
			continue
		}
		seen[is.Code] = true
		codes = append(codes, is.Code)
	}
	return strings.Join(codes, ";")
}

var cohortHeaders = []string{
	"Cohort",
	"Size",
	"Health_Mean",
	"Health_Median",
	"Health_Min",
	"Health_Max",
	"Health_P75",
	"Rating_P75",
	"Reviews_P75",
	"Silent_Winners",
	"Insufficient_Cohort",
}

// CohortsTable has one row per cohort.
func CohortsTable(result *intel.BatchResult) Table {
	rows := make([][]string, 0, len(result.Cohorts))
	for _, c := range result.Cohorts {
		rows = append(rows, []string{
			c.Cohort,
			strconv.Itoa(c.Size),
			formatFloat(c.HealthMean),
			formatFloat(c.HealthMedian),
			formatFloat(c.HealthMin),
			formatFloat(c.HealthMax),
			formatFloat(c.HealthTopQuartile),
			formatOpt(c.RatingTopQuartile),
			formatOpt(c.ReviewsTopQuartile),
			strconv.Itoa(c.SilentWinners),
			formatBool(c.InsufficientCohort),
		})
	}
	return Table{Name: "Cohorts", Headers: cohortHeaders, Rows: rows}
}

// MomentumTable has one row per establishment and month of the trailing
// window. Gap months have an empty count.
func MomentumTable(result *intel.BatchResult) Table {
	var rows [][]string
	for _, b := range result.Bundles {
		for _, p := range b.Momentum.Points {
			count := ""
			if n, ok := p.Count.Get(); ok {
				count = strconv.Itoa(n)
			}
			rows = append(rows, []string{b.Record.ID, p.Month.Format(intel.MonthLayout), count})
		}
	}
	return Table{Name: "Momentum", Headers: []string{"ID", "Month", "Reviews"}, Rows: rows}
}

// GapsTable lists every pillar gap against the cohort standard.
func GapsTable(result *intel.BatchResult) Table {
	var rows [][]string
	for _, b := range result.Bundles {
		for _, g := range b.Benchmark.Gaps {
			rows = append(rows, []string{
				b.Record.ID,
				string(g.Pillar),
				formatFloat(g.Standard),
				formatFloat(g.Score),
				formatFloat(g.Gap),
			})
		}
	}
	return Table{Name: "Gaps", Headers: []string{"ID", "Pillar", "Standard", "Score", "Gap"}, Rows: rows}
}

// Tables returns every table in workbook order.
func Tables(result *intel.BatchResult) []Table {
	return []Table{
		ResultsTable(result),
		CohortsTable(result),
		MomentumTable(result),
		GapsTable(result),
	}
}
