package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/config"
	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/shared/testutil"
)

var asOf = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

const reviewsCSV = `page_url,review_date,review_rating,owner_response
https://a,vor 2 Tagen,5,Danke!
https://a,01.05.2024,4,
https://a,15.11.2023,3,Vielen Dank
https://a,irgendwann,4,
https://zzz,gestern,5,
,heute,5,
`

func TestReviews(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(reviewsCSV))
	require.NoError(t, err)

	set, err := Reviews(table)
	require.NoError(t, err)
	assert.True(t, set.HasResponse)
	assert.Len(t, set.Reviews, 5, "row without key is dropped")
	assert.Equal(t, Review{Key: "https://a", Date: "vor 2 Tagen", Rating: "5", OwnerResponse: "Danke!"}, set.Reviews[0])

	noKey, err := ReadCSV(strings.NewReader("date,rating\nheute,5\n"))
	require.NoError(t, err)
	_, err = Reviews(noKey)
	assert.Error(t, err)
}

func TestEnrich(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(reviewsCSV))
	require.NoError(t, err)
	set, err := Reviews(table)
	require.NoError(t, err)

	establishments := []Establishment{
		{Record: intel.RawRecord{ID: "a", ResponseRate: "80%"}, Key: "https://a"},
		{Record: intel.RawRecord{ID: "b"}, Key: "https://b"},
	}

	stats := Enrich(establishments, set, asOf)
	assert.Equal(t, EnrichStats{Matched: 1, Unmatched: 1, Undated: 1, FieldsAdded: 5}, stats)

	a := establishments[0].Record
	assert.Equal(t, "80%", a.ResponseRate, "explicit values win")
	assert.Equal(t, "4.00", a.AvgReviewRating)
	assert.Equal(t, "66.7%", a.RecentShare90)
	assert.Equal(t, "66.7%", a.RecentShare180)
	assert.Equal(t, "2024-06-28", a.LastReviewDate)
	assert.Equal(t, []intel.RawMonthCount{
		{Month: "2023-11", Count: "1"},
		{Month: "2023-12", Count: "0"},
		{Month: "2024-01", Count: "0"},
		{Month: "2024-02", Count: "0"},
		{Month: "2024-03", Count: "0"},
		{Month: "2024-04", Count: "0"},
		{Month: "2024-05", Count: "1"},
		{Month: "2024-06", Count: "1"},
	}, a.MonthlyReviews)

	b := establishments[1].Record
	assert.Equal(t, intel.RawRecord{ID: "b"}, b, "establishments without reviews are untouched")
}

func TestEnrichDerivesResponseRate(t *testing.T) {
	set := ReviewSet{HasResponse: true, Reviews: []Review{
		{Key: "k", OwnerResponse: "Danke"},
		{Key: "k"},
		{Key: "k"},
		{Key: "k", OwnerResponse: "Merci"},
	}}
	est := []Establishment{{Record: intel.RawRecord{ID: "k"}, Key: "k"}}

	Enrich(est, set, asOf)
	assert.Equal(t, "50.0%", est[0].Record.ResponseRate)

	rate, err := intel.ParseRate("response_rate", est[0].Record.ResponseRate)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rate.Or(-1), 1e-9)

	est = []Establishment{{Record: intel.RawRecord{ID: "k"}, Key: "k"}}
	set.HasResponse = false
	Enrich(est, set, asOf)
	assert.Empty(t, est[0].Record.ResponseRate, "no response column means unknown, not zero")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	estPath := writeFile(t, dir, "establishments.csv",
		"id;name;district;rating;review_count;page_url\n"+
			"a;Roma;Mitte;4,2;412;https://a\n"+
			"b;Eck;Kreuzberg;4,8;2310;https://b\n")
	revPath := writeFile(t, dir, "reviews.csv", reviewsCSV)

	logger, logs := testutil.NewTestLogger(t)
	loader := NewLoader(logger)

	records, err := loader.Load(context.Background(), config.InputConfig{
		EstablishmentsFile: estPath,
		ReviewsFile:        revPath,
	}, asOf)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "50.0%", records[0].ResponseRate)
	assert.Equal(t, "2024-06-28", records[0].LastReviewDate)
	assert.Empty(t, records[1].LastReviewDate)

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "establishments loaded")
	testutil.AssertLogAttr(t, logs, "matched_establishments", int64(1))

	n := intel.NewNormalizer(asOf)
	normalized, err := n.Normalize(records)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, normalized[0].ResponseRate.Or(-1), 1e-9)
	assert.InDelta(t, 2.0/3.0, normalized[0].RecentShare90.Or(-1), 1e-3)
}

func TestLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(nil)

	tests := []struct {
		name     string
		input    config.InputConfig
		wantType apierrors.ErrorType
	}{
		{"no file configured", config.InputConfig{}, apierrors.ErrTypeConfig},
		{"missing file", config.InputConfig{EstablishmentsFile: filepath.Join(dir, "nope.csv")}, apierrors.ErrTypeParsing},
		{"reviews without key column", config.InputConfig{
			EstablishmentsFile: writeFile(t, dir, "e.csv", "id,name\na,Roma\n"),
			ReviewsFile:        writeFile(t, dir, "r.csv", "date,rating\nheute,5\n"),
		}, apierrors.ErrTypeParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Load(context.Background(), tt.input, asOf)
			var appErr *apierrors.AppError
			require.True(t, errors.As(err, &appErr), "got %v", err)
			assert.Equal(t, tt.wantType, appErr.Type)
		})
	}
}

func TestLoaderCancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(nil).Load(ctx, config.InputConfig{
		EstablishmentsFile: writeFile(t, dir, "e.csv", "id,name\na,Roma\n"),
	}, asOf)
	assert.ErrorIs(t, err, context.Canceled)
}
