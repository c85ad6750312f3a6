package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/config"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/storage"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context, in config.InputConfig, asOf time.Time) ([]intel.RawRecord, error) {
	args := m.Called(ctx, in, asOf)
	records, _ := args.Get(0).([]intel.RawRecord)
	return records, args.Error(1)
}

type mockReports struct {
	mock.Mock
}

func (m *mockReports) Export(ctx context.Context, result *intel.BatchResult) ([]string, error) {
	args := m.Called(ctx, result)
	paths, _ := args.Get(0).([]string)
	return paths, args.Error(1)
}

type mockArchive struct {
	mock.Mock
}

func (m *mockArchive) SaveRun(ctx context.Context, runID string, result *intel.BatchResult, createdAt time.Time) error {
	return m.Called(ctx, runID, result, createdAt).Error(0)
}

func (m *mockArchive) LatestResult(ctx context.Context) (string, *intel.BatchResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(1).(*intel.BatchResult)
	return args.String(0), result, args.Error(2)
}

func (m *mockArchive) ListRuns(ctx context.Context, limit int) ([]storage.RunSummary, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]storage.RunSummary)
	return runs, args.Error(1)
}
