package services

import (
	"errors"

	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
)

// Service errors
var (
	// Run errors
	ErrRunInProgress = apierrors.NewConflictError("run already in progress")
	ErrNoResult      = errors.New("no completed run available")

	// Lookup errors
	ErrEstablishmentNotFound = errors.New("establishment not found")
	ErrCohortNotFound        = errors.New("cohort not found")

	// Archive errors
	ErrArchiveDisabled = errors.New("result archive is not configured")
)
