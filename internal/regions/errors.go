package regions

import (
	"errors"
	"net/http"
)

// Domain errors for region operations.
var (
	ErrNotFound    = errors.New("region not found")
	ErrDuplicate   = errors.New("region name already exists on page")
	ErrInvalidType = errors.New("invalid region type")
	ErrInvalidPage = errors.New("page must be a positive integer")
)

// MapHTTPStatus converts domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidType) || errors.Is(err, ErrInvalidPage) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
