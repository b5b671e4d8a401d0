package documents

import (
	"errors"
	"net/http"
)

// Domain errors for document operations. Upload validation produces the
// file-related errors; repository lookups produce the rest.
var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicate    = errors.New("a document with this storage key already exists")
	ErrFileTooLarge = errors.New("uploaded PDF exceeds the size limit")
	ErrInvalidFile  = errors.New("uploaded file is not a readable PDF")
)

// MapHTTPStatus converts domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
