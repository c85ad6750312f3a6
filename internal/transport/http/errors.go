package http

import (
	"errors"
	"net/http"

	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/services"
)

var errArchiveDisabled = apierrors.New(http.StatusNotFound, "ARCHIVE_DISABLED", "Run archive is not configured")

// mapServiceError converts service sentinels to API errors. key names the
// looked-up resource for not-found responses. Unknown errors pass through to
// the error handler's own mapping.
func mapServiceError(err error, key string) error {
	switch {
	case errors.Is(err, services.ErrNoResult):
		return apierrors.ErrNoResult
	case errors.Is(err, services.ErrRunInProgress):
		return apierrors.ErrRunInProgress
	case errors.Is(err, services.ErrEstablishmentNotFound):
		return apierrors.NotFoundError("establishment", key)
	case errors.Is(err, services.ErrCohortNotFound):
		return apierrors.NotFoundError("cohort", key)
	case errors.Is(err, services.ErrArchiveDisabled):
		return errArchiveDisabled
	default:
		return err
	}
}
