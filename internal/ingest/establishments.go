package ingest

import (
	"strings"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

// Column aliases for the establishments file, most specific first.
var (
	idColumns              = []string{"id", "establishment_id", "place_id"}
	nameColumns            = []string{"name", "restaurant_name", "title"}
	districtColumns        = []string{"district", "bezirk", "neighborhood"}
	ratingColumns          = []string{"rating", "google_rating", "stars"}
	reviewCountColumns     = []string{"review_count", "review_co", "reviews", "rev_count"}
	responseRateColumns    = []string{"response_rate", "res_rate"}
	responseTimeColumns    = []string{"response_time_hours", "response_time"}
	websiteColumns         = []string{"website", "homepage", "web"}
	phoneColumns           = []string{"phone", "phone_number", "telefon"}
	bookingColumns         = []string{"booking_platform", "booking", "reservation"}
	socialColumns          = []string{"social_media", "social", "instagram"}
	priceColumns           = []string{"price_range", "price", "preisklasse"}
	avgReviewRatingColumns = []string{"avg_review_rating", "review_rating_avg"}
	recentShare90Columns   = []string{"recent_share_90", "recency_90"}
	recentShare180Columns  = []string{"recent_share_180", "recency_180"}
	lastReviewColumns      = []string{"last_review_date", "last_review"}
	monthlyColumns         = []string{"monthly_reviews", "monthly_counts"}
	urlColumns             = []string{"page_url", "url", "link"}
)

// Establishment is one loaded row and the key reviews are joined on.
type Establishment struct {
	Record intel.RawRecord
	// Key is the page URL when the file has one, otherwise the ID.
	Key string
}

type columns struct {
	id, name, district, rating, reviewCount, responseRate, responseTime int
	website, phone, booking, social, price, avgReviewRating             int
	recent90, recent180, lastReview, monthly, url                       int
}

func lookup(t *Table, candidates []string) int {
	i, _ := t.Column(candidates...)
	return i
}

func establishmentColumns(t *Table) columns {
	return columns{
		id:              lookup(t, idColumns),
		name:            lookup(t, nameColumns),
		district:        lookup(t, districtColumns),
		rating:          lookup(t, ratingColumns),
		reviewCount:     lookup(t, reviewCountColumns),
		responseRate:    lookup(t, responseRateColumns),
		responseTime:    lookup(t, responseTimeColumns),
		website:         lookup(t, websiteColumns),
		phone:           lookup(t, phoneColumns),
		booking:         lookup(t, bookingColumns),
		social:          lookup(t, socialColumns),
		price:           lookup(t, priceColumns),
		avgReviewRating: lookup(t, avgReviewRatingColumns),
		recent90:        lookup(t, recentShare90Columns),
		recent180:       lookup(t, recentShare180Columns),
		lastReview:      lookup(t, lastReviewColumns),
		monthly:         lookup(t, monthlyColumns),
		url:             lookup(t, urlColumns),
	}
}

// Establishments maps every row of t to a raw record. Rows without an ID
// fall back to their page URL; the Normalizer rejects rows that have
// neither.
func Establishments(t *Table) []Establishment {
	c := establishmentColumns(t)
	out := make([]Establishment, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := intel.RawRecord{
			ID:                t.Value(row, c.id),
			Name:              t.Value(row, c.name),
			District:          t.Value(row, c.district),
			Rating:            t.Value(row, c.rating),
			ReviewCount:       t.Value(row, c.reviewCount),
			ResponseRate:      t.Value(row, c.responseRate),
			ResponseTimeHours: t.Value(row, c.responseTime),
			Website:           t.Value(row, c.website),
			Phone:             t.Value(row, c.phone),
			BookingPlatform:   t.Value(row, c.booking),
			SocialMedia:       t.Value(row, c.social),
			PriceRange:        t.Value(row, c.price),
			AvgReviewRating:   t.Value(row, c.avgReviewRating),
			RecentShare90:     t.Value(row, c.recent90),
			RecentShare180:    t.Value(row, c.recent180),
			LastReviewDate:    t.Value(row, c.lastReview),
			MonthlyReviews:    ParseMonthlyCounts(t.Value(row, c.monthly)),
		}
		url := t.Value(row, c.url)
		if rec.ID == "" {
			rec.ID = url
		}
		key := url
		if key == "" {
			key = rec.ID
		}
		out = append(out, Establishment{Record: rec, Key: key})
	}
	return out
}

// ParseMonthlyCounts splits an inline series such as "2024-01:12; 2024-02:9"
// into month/count pairs. Entries without a separator are kept with an empty
// count so the Normalizer reports them.
func ParseMonthlyCounts(s string) []intel.RawMonthCount {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' || r == '\n' })
	out := make([]intel.RawMonthCount, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		i := strings.LastIndexAny(f, ":=")
		if i < 0 {
			out = append(out, intel.RawMonthCount{Month: f})
			continue
		}
		out = append(out, intel.RawMonthCount{
			Month: strings.TrimSpace(f[:i]),
			Count: strings.TrimSpace(f[i+1:]),
		})
	}
	return out
}

// Records strips the join keys.
func Records(establishments []Establishment) []intel.RawRecord {
	out := make([]intel.RawRecord, len(establishments))
	for i, e := range establishments {
		out[i] = e.Record
	}
	return out
}
