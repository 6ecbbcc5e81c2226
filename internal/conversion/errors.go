package conversion

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fileforge/fileforge/internal/registry"
	"github.com/fileforge/fileforge/internal/tools"
	"github.com/fileforge/fileforge/pkg/handlers"
)

// Validation and processing errors shared by all conversion handlers.
var (
	ErrMissingFile      = errors.New("missing file field")
	ErrTooFewFiles      = errors.New("operation requires more input files")
	ErrFileTooLarge     = errors.New("file exceeds maximum upload size")
	ErrUnsupportedType  = errors.New("unsupported file type for this operation")
	ErrInvalidParameter = errors.New("invalid operation parameter")
	ErrInvalidInput     = errors.New("input file could not be processed")
)

// MapHTTPStatus converts conversion errors to HTTP status codes per the
// service error taxonomy.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrMissingFile),
		errors.Is(err, ErrTooFewFiles),
		errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrInvalidParameter),
		errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, registry.ErrExpired):
		return http.StatusNotFound
	case errors.Is(err, tools.ErrMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Fail writes the error response for a failed conversion. Missing system
// tools produce a structured 503 body with installation guidance; all
// other errors follow the standard taxonomy.
func Fail(w http.ResponseWriter, logger *slog.Logger, err error) {
	var missing *tools.MissingError
	if errors.As(err, &missing) {
		handlers.RespondDetail(w, logger, http.StatusServiceUnavailable, err, missing.Detail())
		return
	}
	handlers.RespondError(w, logger, MapHTTPStatus(err), err)
}
