package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

// AsOf is the reference date of the sample market snapshot.
var AsOf = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

// EngineConfig returns the default engine configuration pinned to AsOf.
func EngineConfig() intel.Config {
	cfg := intel.DefaultConfig()
	cfg.AsOf = AsOf
	return cfg
}

// Months spreads counts over the months ending at the AsOf month. Negative
// entries are left out so they show up as gaps.
func Months(counts ...int) []intel.RawMonthCount {
	end := time.Date(AsOf.Year(), AsOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]intel.RawMonthCount, 0, len(counts))
	for i, c := range counts {
		if c < 0 {
			continue
		}
		out = append(out, intel.RawMonthCount{
			Month: end.AddDate(0, -(len(counts) - 1 - i), 0).Format(intel.MonthLayout),
			Count: fmt.Sprint(c),
		})
	}
	return out
}

// SampleRecords is a small Berlin snapshot: one silent winner (est-003),
// one record too sparse to judge (est-002) and one without a district.
func SampleRecords() []intel.RawRecord {
	return []intel.RawRecord{
		{
			ID: "est-001", Name: "Trattoria Roma", District: "Mitte",
			Rating: "4.2", ReviewCount: "412", ResponseRate: "0,45", ResponseTimeHours: "12",
			Website: "ja", Phone: "ja", BookingPlatform: "ja",
			AvgReviewRating: "4,0", RecentShare90: "0,3", RecentShare180: "0,5", LastReviewDate: "12.06.2024",
			MonthlyReviews: Months(9, 9, 8, 10, 9, 8, 9, 10, 9, 9, 8, 9, 9),
		},
		{
			ID: "est-002", Name: "Imbiss 36", District: "Kreuzberg",
			Rating: "4,6", ReviewCount: "87", Phone: "ja", SocialMedia: "nein",
			LastReviewDate: "letzten Sommer",
			MonthlyReviews: Months(2, 3),
		},
		{
			ID: "est-003", Name: "Curry Eck", District: "Kreuzberg",
			Rating: "4,8", ReviewCount: "2.310", ResponseRate: "15%", ResponseTimeHours: "30",
			Website: "https://curry.example", Phone: "ja", BookingPlatform: "nein", SocialMedia: "ja",
			AvgReviewRating: "4,7", RecentShare90: "0,2", RecentShare180: "0,4", LastReviewDate: "vor 2 Tagen",
			MonthlyReviews: Months(20, 22, 21, 25, 24, 28, 30, 29, 33, 35, 38, 41, 45),
		},
		{
			ID: "est-004", Name: "Café Mitte", District: "Mitte",
			Rating: "3,9", ReviewCount: "150 Rezensionen", ResponseRate: "80%", ResponseTimeHours: "4",
			Website: "www.cafe-mitte.example", Phone: "ja", BookingPlatform: "ja", SocialMedia: "ja",
			AvgReviewRating: "3,8", RecentShare90: "0,25", RecentShare180: "0,45", LastReviewDate: "vor einer Woche",
			MonthlyReviews: Months(12, 11, 12, 10, 9, 9, 8, 7, 7, 6, 5, 4, 4),
		},
		{
			ID: "est-005", Name: "Spree Grill",
			Rating: "4,1", ReviewCount: "40", ResponseRate: "50", ResponseTimeHours: "24",
			Website: "nein", Phone: "ja", BookingPlatform: "nein", SocialMedia: "nein",
			AvgReviewRating: "4,1", RecentShare90: "0,1", RecentShare180: "0,2", LastReviewDate: "März 2024",
		},
	}
}

// SampleResult runs the pipeline over SampleRecords.
func SampleResult(t *testing.T) *intel.BatchResult {
	t.Helper()
	p, err := intel.NewPipeline(EngineConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	result, err := p.Run(context.Background(), SampleRecords())
	if err != nil {
		t.Fatalf("run pipeline: %v", err)
	}
	return result
}
