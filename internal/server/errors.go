package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/jobaru/internal/apply"
)

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, apply.ErrNoPendingPause):
		return http.StatusNotFound
	case errors.Is(err, apply.ErrStalePause):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
