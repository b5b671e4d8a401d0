package routes

import "net/http"

// System collects route groups and standalone routes and builds the final
// HTTP handler once everything is registered. Groups and Routes expose what
// was registered for inspection and discovery endpoints.
type System interface {
	RegisterGroup(group Group)
	RegisterRoute(route Route)
	Build() http.Handler
	Groups() []Group
	Routes() []Route
}
