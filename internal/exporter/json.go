package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/config"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

// Report is the JSON document written for a run. It carries no wall-clock
// timestamp so two runs over the same snapshot produce identical bytes.
type Report struct {
	Metadata ReportMetadata     `json:"metadata"`
	Result   *intel.BatchResult `json:"result"`
}

// ReportMetadata describes a report.
type ReportMetadata struct {
	Generator      string `json:"generator"`
	Version        string `json:"version"`
	AsOf           string `json:"as_of"`
	Establishments int    `json:"establishments"`
	Cohorts        int    `json:"cohorts"`
	Opportunities  int    `json:"opportunities"`
}

// NewReport wraps a batch result with its metadata.
func NewReport(result *intel.BatchResult) Report {
	return Report{
		Metadata: ReportMetadata{
			Generator:      config.AppName,
			Version:        config.AppVersion,
			AsOf:           result.AsOf.Format(time.DateOnly),
			Establishments: len(result.Bundles),
			Cohorts:        len(result.Cohorts),
			Opportunities:  len(result.Opportunities()),
		},
		Result: result,
	}
}

// WriteJSON writes the report with pretty printing
func WriteJSON(w io.Writer, result *intel.BatchResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(NewReport(result)); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}
