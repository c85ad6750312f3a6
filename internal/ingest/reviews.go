package ingest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

var (
	reviewKeyColumns      = []string{"page_url", "url", "link", "establishment_id", "place_id"}
	reviewDateColumns     = []string{"review_date", "reviewer_data", "date", "review_time"}
	reviewRatingColumns   = []string{"review_rating", "review_c", "rating", "stars"}
	reviewResponseColumns = []string{"owner_response", "owner_response_content"}
)

// Review is one review row as text.
type Review struct {
	Key           string
	Date          string
	Rating        string
	OwnerResponse string
}

// ReviewSet holds the reviews of a file and which optional columns it had.
// A missing response column means response rates cannot be derived, which is
// different from nobody having responded.
type ReviewSet struct {
	Reviews     []Review
	HasResponse bool
}

// Reviews maps review rows. Rows without a join key are dropped.
func Reviews(t *Table) (ReviewSet, error) {
	keyCol, ok := t.Column(reviewKeyColumns...)
	if !ok {
		return ReviewSet{}, fmt.Errorf("reviews file has no establishment column (tried %s)", strings.Join(reviewKeyColumns, ", "))
	}
	dateCol := lookup(t, reviewDateColumns)
	ratingCol := lookup(t, reviewRatingColumns)
	respCol, hasResp := t.Column(reviewResponseColumns...)

	set := ReviewSet{HasResponse: hasResp, Reviews: make([]Review, 0, len(t.Rows))}
	for _, row := range t.Rows {
		key := t.Value(row, keyCol)
		if key == "" {
			continue
		}
		set.Reviews = append(set.Reviews, Review{
			Key:           key,
			Date:          t.Value(row, dateCol),
			Rating:        t.Value(row, ratingCol),
			OwnerResponse: t.Value(row, respCol),
		})
	}
	return set, nil
}

// EnrichStats counts what Enrich did.
type EnrichStats struct {
	Matched     int
	Unmatched   int
	Undated     int
	FieldsAdded int
}

type reviewAggregate struct {
	total     int
	responded int
	ratingSum float64
	rated     int
	dates     []time.Time
}

// Enrich fills blank review-derived fields of each establishment from its
// reviews. Dates are resolved against asOf; reviews dated after asOf are
// ignored.
func Enrich(establishments []Establishment, set ReviewSet, asOf time.Time) EnrichStats {
	var stats EnrichStats
	asOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	wanted := make(map[string]bool, len(establishments))
	for _, e := range establishments {
		wanted[e.Key] = true
	}

	byKey := make(map[string]*reviewAggregate)
	for _, r := range set.Reviews {
		if !wanted[r.Key] {
			stats.Unmatched++
			continue
		}
		agg := byKey[r.Key]
		if agg == nil {
			agg = &reviewAggregate{}
			byKey[r.Key] = agg
		}
		agg.total++
		if r.OwnerResponse != "" {
			agg.responded++
		}
		if rating, err := intel.ParseRating("review_rating", r.Rating); err == nil {
			if v, ok := rating.Get(); ok {
				agg.ratingSum += v
				agg.rated++
			}
		}
		date, err := intel.ParseDate("review_date", r.Date, asOf)
		d, ok := date.Get()
		if err != nil || !ok || d.After(asOf) {
			stats.Undated++
			continue
		}
		agg.dates = append(agg.dates, d)
	}

	for i := range establishments {
		agg := byKey[establishments[i].Key]
		if agg == nil {
			continue
		}
		stats.Matched++
		stats.FieldsAdded += agg.apply(&establishments[i].Record, set.HasResponse, asOf)
	}
	return stats
}

func fillBlank(dst *string, v string) int {
	if strings.TrimSpace(*dst) != "" || v == "" {
		return 0
	}
	*dst = v
	return 1
}

func percent(part, whole int) string {
	return fmt.Sprintf("%.1f%%", 100*float64(part)/float64(whole))
}

func (a *reviewAggregate) apply(rec *intel.RawRecord, hasResponse bool, asOf time.Time) int {
	added := 0
	if hasResponse {
		added += fillBlank(&rec.ResponseRate, percent(a.responded, a.total))
	}
	if a.rated > 0 {
		added += fillBlank(&rec.AvgReviewRating, fmt.Sprintf("%.2f", a.ratingSum/float64(a.rated)))
	}
	if len(a.dates) == 0 {
		return added
	}

	sort.Slice(a.dates, func(i, j int) bool { return a.dates[i].Before(a.dates[j]) })
	cut90 := asOf.AddDate(0, 0, -90)
	cut180 := asOf.AddDate(0, 0, -180)
	var in90, in180 int
	for _, d := range a.dates {
		if d.After(cut90) {
			in90++
		}
		if d.After(cut180) {
			in180++
		}
	}
	added += fillBlank(&rec.RecentShare90, percent(in90, len(a.dates)))
	added += fillBlank(&rec.RecentShare180, percent(in180, len(a.dates)))
	added += fillBlank(&rec.LastReviewDate, a.dates[len(a.dates)-1].Format(time.DateOnly))

	if len(rec.MonthlyReviews) == 0 {
		rec.MonthlyReviews = monthlyCounts(a.dates, asOf)
		added++
	}
	return added
}

// monthlyCounts buckets sorted dates by month from the first review month
// through the asOf month. Months without reviews count zero.
func monthlyCounts(sorted []time.Time, asOf time.Time) []intel.RawMonthCount {
	first := time.Date(sorted[0].Year(), sorted[0].Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)

	counts := make(map[time.Time]int)
	for _, d := range sorted {
		counts[time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)]++
	}

	var out []intel.RawMonthCount
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		out = append(out, intel.RawMonthCount{
			Month: m.Format(intel.MonthLayout),
			Count: fmt.Sprint(counts[m]),
		})
	}
	return out
}
