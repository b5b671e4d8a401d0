package assignments

import (
	"errors"
	"net/http"
)

// Domain errors for assignment operations.
var (
	ErrTextNotFound = errors.New("text not found")
	ErrPageMismatch = errors.New("region belongs to a different page")
	ErrNotReady     = errors.New("document texts not loaded")
)

// MapHTTPStatus converts domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrTextNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrPageMismatch) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNotReady) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
