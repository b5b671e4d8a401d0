// Package routes defines the route group structures used to organize
// HTTP endpoints across domain modules.
package routes

import "net/http"

// Group represents a collection of routes under a common URL prefix.
// Groups can contain child groups for hierarchical route organization.
type Group struct {
	Prefix      string
	Tags        []string
	Description string
	Routes      []Route
	Children    []Group
}

// Route represents an HTTP route with method, pattern, and handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}
