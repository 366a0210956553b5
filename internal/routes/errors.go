package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
)

// statusOf :
// Converts the kind of an error returned by the engine into
// the status code of the answer. Errors without kind are not
// classified.
func statusOf(err error) int {
	switch model.KindOf(err) {
	case model.ErrValidation:
		return http.StatusBadRequest
	case model.ErrPrecondition:
		return http.StatusConflict
	case model.ErrNotFound:
		return http.StatusNotFound
	case model.ErrAccessDenied:
		return http.StatusForbidden
	case model.ErrTransient:
		return http.StatusServiceUnavailable
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}

	return 0
}
