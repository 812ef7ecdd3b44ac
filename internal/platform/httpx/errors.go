package httpx

import (
	"errors"
	"net/http"

	"github.com/lumen-commerce/lumen/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Forbidden and internal failures stay opaque: neither discloses whether
// the target exists nor any invariant detail.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
