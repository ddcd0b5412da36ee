// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// detailer is implemented by errors that carry structured problem data,
// such as field messages or stock shortfalls.
type detailer interface {
	ProblemDetails() any
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status, title := statusFor(err)
	problem := ProblemDetail{
		Type:   problemType(status),
		Title:  title,
		Status: status,
	}
	if status < http.StatusInternalServerError || errors.Is(err, shared.ErrBusy) {
		problem.Detail = err.Error()
	}
	var d detailer
	if errors.As(err, &d) {
		problem.Errors = d.ProblemDetails()
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeProblem(w, problem)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusUnprocessableEntity, "Validation Failed"
	case errors.Is(err, shared.ErrInsufficientStock):
		return http.StatusConflict, "Insufficient Stock"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrInvalidState):
		return http.StatusConflict, "Invalid State"
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return http.StatusConflict, "Duplicate Request"
	case errors.Is(err, shared.ErrBusy):
		return http.StatusServiceUnavailable, "Busy"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

func problemType(status int) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return "/problems/validation"
	case http.StatusNotFound:
		return "/problems/not-found"
	case http.StatusConflict:
		return "/problems/conflict"
	case http.StatusServiceUnavailable:
		return "/problems/busy"
	default:
		return "about:blank"
	}
}
