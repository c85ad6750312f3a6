package intel

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Normalizer turns raw establishment snapshots into validated records.
// It never mutates its input.
type Normalizer struct {
	asOf time.Time
}

// NewNormalizer creates a normalizer resolving relative dates against asOf.
func NewNormalizer(asOf time.Time) *Normalizer {
	return &Normalizer{asOf: asOf}
}

// ValidateIDs fails on the first blank or duplicated establishment ID.
func (n *Normalizer) ValidateIDs(raw []RawRecord) error {
	seen := make(map[string]int, len(raw))
	for i, r := range raw {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return &MalformedRecordError{Index: i, ID: r.ID, Reason: "missing establishment id"}
		}
		if first, ok := seen[id]; ok {
			return &MalformedRecordError{Index: i, ID: id, Reason: fmt.Sprintf("duplicate establishment id (first seen at index %d)", first)}
		}
		seen[id] = i
	}
	return nil
}

// Normalize validates IDs and normalizes every record in input order.
func (n *Normalizer) Normalize(raw []RawRecord) ([]NormalizedRecord, error) {
	if err := n.ValidateIDs(raw); err != nil {
		return nil, err
	}
	out := make([]NormalizedRecord, len(raw))
	for i, r := range raw {
		out[i] = n.NormalizeRecord(r)
	}
	return out, nil
}

// NormalizeRecord converts one record. Field-level problems become issues on
// the result; the value falls back to unknown.
func (n *Normalizer) NormalizeRecord(r RawRecord) NormalizedRecord {
	rec := NormalizedRecord{
		ID:         strings.TrimSpace(r.ID),
		Name:       collapseSpace(r.Name),
		District:   collapseSpace(r.District),
		PriceRange: strings.TrimSpace(r.PriceRange),
	}
	note := func(err error) {
		if err != nil {
			rec.Issues = append(rec.Issues, issueFromError(err))
		}
	}

	var err error
	rec.Rating, err = ParseRating("rating", r.Rating)
	note(err)
	rec.ReviewCount, err = ParseCount("review_count", r.ReviewCount)
	note(err)
	rec.ResponseRate, err = ParseRate("response_rate", r.ResponseRate)
	note(err)
	rec.ResponseTimeHours, err = ParseHours("response_time_hours", r.ResponseTimeHours)
	note(err)
	rec.AvgReviewRating, err = ParseRating("avg_review_rating", r.AvgReviewRating)
	note(err)
	rec.RecentShare90, err = ParseRate("recent_share_90", r.RecentShare90)
	note(err)
	rec.RecentShare180, err = ParseRate("recent_share_180", r.RecentShare180)
	note(err)
	rec.LastReviewDate, err = ParseDate("last_review_date", r.LastReviewDate, n.asOf)
	note(err)

	rec.Website = ParseIndicator(r.Website)
	rec.Phone = ParseIndicator(r.Phone)
	rec.BookingPlatform = ParseIndicator(r.BookingPlatform)
	rec.SocialMedia = ParseIndicator(r.SocialMedia)

	for _, field := range []struct {
		name  string
		raw   string
		known bool
	}{
		{"rating", r.Rating, rec.Rating.IsKnown()},
		{"review_count", r.ReviewCount, rec.ReviewCount.IsKnown()},
		{"response_rate", r.ResponseRate, rec.ResponseRate.IsKnown()},
	} {
		if !field.known && isBlank(field.raw) {
			rec.Issues = append(rec.Issues, Issue{
				Severity: SeverityInfo,
				Code:     CodeMissingValue,
				Field:    field.name,
				Message:  field.name + " is missing",
			})
		}
	}

	rec.MonthlyReviews = n.normalizeMonths(r.MonthlyReviews, note)
	return rec
}

func (n *Normalizer) normalizeMonths(raw []RawMonthCount, note func(error)) []MonthCount {
	if len(raw) == 0 {
		return nil
	}
	totals := make(map[time.Time]int, len(raw))
	for _, entry := range raw {
		month, err := ParseMonth("monthly_reviews.month", entry.Month, n.asOf)
		if err != nil {
			note(err)
			continue
		}
		count, err := ParseCount("monthly_reviews.count", entry.Count)
		if err != nil {
			note(err)
			continue
		}
		c, ok := count.Get()
		if !ok {
			continue
		}
		totals[month] += c
	}
	if len(totals) == 0 {
		return nil
	}
	out := make([]MonthCount, 0, len(totals))
	for month, count := range totals {
		out = append(out, MonthCount{Month: month, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.Before(out[j].Month)
	})
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
