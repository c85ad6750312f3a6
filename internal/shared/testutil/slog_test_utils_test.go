package testutil

import (
	"log/slog"
	"testing"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		if got := len(handler.GetRecords()); got != 2 {
			t.Errorf("Expected 2 records, got %d", got)
		}
		if !handler.ContainsMessage("test message") {
			t.Error("Expected to find 'test message'")
		}
		if !handler.ContainsAttr("key", "value") {
			t.Error("Expected to find attribute key=value")
		}
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		if got := len(handler.GetRecordsByLevel(slog.LevelInfo)); got != 1 {
			t.Errorf("Expected 1 info record, got %d", got)
		}
		if got := len(handler.GetRecordsByLevel(slog.LevelDebug)); got != 1 {
			t.Errorf("Expected 1 debug record, got %d", got)
		}
	})

	t.Run("derived loggers share the buffer", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With("component", "pipeline").WithGroup("run").Info("done", "records", 5)

		if handler.Count() != 1 {
			t.Fatalf("Expected 1 record, got %d", handler.Count())
		}
		AssertLogAttr(t, handler, "component", "pipeline")
		AssertLogAttr(t, handler, "run.records", int64(5))
	})

	t.Run("clear functionality", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.Info("message 2")
		handler.Clear()

		if handler.Count() != 0 {
			t.Errorf("Expected 0 records after clear, got %d", handler.Count())
		}
		AssertNoErrors(t, handler)
	})
}

func TestSampleResult(t *testing.T) {
	result := SampleResult(t)

	if len(result.Bundles) != len(SampleRecords()) {
		t.Fatalf("Expected %d bundles, got %d", len(SampleRecords()), len(result.Bundles))
	}
	winner, ok := result.Find("est-003")
	if !ok || !winner.Opportunity.SilentWinner {
		t.Error("Expected est-003 to be a silent winner")
	}
	sparse, _ := result.Find("est-002")
	if sparse.Momentum.Trend != intel.TrendInsufficientHistory {
		t.Errorf("Expected insufficient history for est-002, got %s", sparse.Momentum.Trend)
	}
}
