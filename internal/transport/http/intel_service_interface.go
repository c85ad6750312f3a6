package http

import (
	"context"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/services"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/storage"
)

// IntelServiceInterface defines the run and query operations the API needs
type IntelServiceInterface interface {
	Run(ctx context.Context, opts services.RunOptions) (*services.RunInfo, error)
	LastRun() (services.RunInfo, bool)
	Result() (*intel.BatchResult, error)
	Establishments(filter services.EstablishmentFilter) ([]intel.ResultBundle, error)
	Establishment(id string) (intel.ResultBundle, error)
	Cohorts() ([]intel.CohortSummary, error)
	Cohort(name string) (intel.CohortSummary, []intel.ResultBundle, error)
	Opportunities() ([]intel.ResultBundle, error)
	History(ctx context.Context, limit int) ([]storage.RunSummary, error)
}
