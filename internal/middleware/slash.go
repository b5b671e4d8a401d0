package middleware

import (
	"net/http"
	"strings"
)

// TrimSlash returns middleware that redirects "/documents/{id}/" style
// requests to the canonical path without the trailing slash, keeping any
// query string. The bare root path passes through untouched.
func TrimSlash() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			trimmed := strings.TrimSuffix(r.URL.Path, "/")
			if trimmed == "" || trimmed == r.URL.Path {
				next.ServeHTTP(w, r)
				return
			}
			if r.URL.RawQuery != "" {
				trimmed += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, trimmed, http.StatusMovedPermanently)
		})
	}
}
