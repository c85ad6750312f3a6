package intel

import (
	"errors"
	"fmt"
	"strings"
)

// Severity classifies an Issue.
type Severity string

const (
	SeverityRecoverable Severity = "recoverable"
	SeverityWarning     Severity = "warning"
	SeverityInfo        Severity = "info"
)

// Issue codes attached to records and bundles.
const (
	CodeDateParse           = "date_parse"
	CodeMissingValue        = "missing_value"
	CodeInvalidValue        = "invalid_value"
	CodeInsufficientHistory = "insufficient_history"
	CodeInsufficientCohort  = "insufficient_cohort"
	CodeLowConfidence       = "low_confidence"
)

// Issue is a non-fatal finding recorded on a result bundle.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

// issueFromError maps a recoverable error onto an Issue.
func issueFromError(err error) Issue {
	var (
		dateErr    *DateParseError
		historyErr *InsufficientHistoryError
		cohortErr  *InsufficientCohortSizeWarning
		valueErr   *ValidationError
	)
	switch {
	case errors.As(err, &dateErr):
		return Issue{Severity: SeverityRecoverable, Code: CodeDateParse, Field: dateErr.Field, Message: dateErr.Error()}
	case errors.As(err, &historyErr):
		return Issue{Severity: SeverityRecoverable, Code: CodeInsufficientHistory, Field: "monthly_reviews", Message: historyErr.Error()}
	case errors.As(err, &cohortErr):
		return Issue{Severity: SeverityWarning, Code: CodeInsufficientCohort, Field: "district", Message: cohortErr.Error()}
	case errors.As(err, &valueErr):
		return Issue{Severity: SeverityRecoverable, Code: CodeInvalidValue, Field: valueErr.Field, Message: valueErr.Error()}
	default:
		return Issue{Severity: SeverityRecoverable, Code: CodeInvalidValue, Message: err.Error()}
	}
}

// ValidationError represents an input or configuration validation failure.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// MalformedRecordError is fatal: the batch cannot be processed.
type MalformedRecordError struct {
	Index  int
	ID     string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at index %d (id %q): %s", e.Index, e.ID, e.Reason)
}

// DateParseError marks a date or month value that matched no known format.
type DateParseError struct {
	Field string
	Value string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("unparseable date in %s: %q", e.Field, e.Value)
}

// InvalidWeightConfigError is returned when composite weights are negative or
// do not sum to 1.
type InvalidWeightConfigError struct {
	Sum     float64
	Weights Weights
}

func (e *InvalidWeightConfigError) Error() string {
	return fmt.Sprintf("invalid weight config: sum %.6f (weights %s)", e.Sum, e.Weights)
}

// InsufficientHistoryError means the monthly series is too sparse for a trend.
type InsufficientHistoryError struct {
	Populated int
	Required  int
	Reason    string
}

func (e *InsufficientHistoryError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("insufficient history: %s", e.Reason)
	}
	return fmt.Sprintf("insufficient history: %d populated months, need %d", e.Populated, e.Required)
}

// InsufficientCohortSizeWarning marks a cohort too small for a meaningful rank.
type InsufficientCohortSizeWarning struct {
	Cohort string
	Size   int
}

func (e *InsufficientCohortSizeWarning) Error() string {
	return fmt.Sprintf("cohort %q has %d member(s); percentile defaults to 50", e.Cohort, e.Size)
}

// RuleConfigError reports an invalid opportunity rule definition.
type RuleConfigError struct {
	Rule   string
	Reason string
}

func (e *RuleConfigError) Error() string {
	return fmt.Sprintf("invalid rule %q: %s", e.Rule, e.Reason)
}

// ConfigErrors collects every configuration problem found in one pass.
type ConfigErrors []error

func (ce ConfigErrors) Error() string {
	msgs := make([]string, len(ce))
	for i, err := range ce {
		msgs[i] = err.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (ce ConfigErrors) Unwrap() []error {
	return ce
}
