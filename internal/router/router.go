// Package router selects the handler for a parsed request.
//
// Routing is a pure function of the request: anything other than GET is
// not found, paths whose first segment is "api" go to the API handler, and
// everything else is served as a static file.
package router

import (
	"context"
	"strings"

	"github.com/conneroisu/poolserve/internal/handlers"
	"github.com/conneroisu/poolserve/internal/protocol"
)

// Route identifies the handler variant chosen for a request.
type Route int

const (
	RouteNotFound Route = iota
	RouteStatic
	RouteAPI
)

// String returns the route name used in logs.
func (r Route) String() string {
	switch r {
	case RouteStatic:
		return "static"
	case RouteAPI:
		return "api"
	default:
		return "not_found"
	}
}

// Handlers holds one handler per route.
type Handlers struct {
	Static   handlers.Handler
	API      handlers.Handler
	NotFound handlers.Handler
}

// Router dispatches requests to the configured handlers.
type Router struct {
	handlers Handlers
}

// New creates a router. A nil API handler defaults to the stub, and a nil
// NotFound handler to a bare 404.
func New(h Handlers) *Router {
	if h.API == nil {
		h.API = handlers.APIHandler{}
	}
	if h.NotFound == nil {
		h.NotFound = handlers.HandlerFunc(func(ctx context.Context, req *protocol.Request) *protocol.Response {
			return protocol.NewResponse(protocol.StatusNotFound, nil, nil)
		})
	}
	if h.Static == nil {
		h.Static = h.NotFound
	}
	return &Router{handlers: h}
}

// Classify returns the route for req.
func Classify(req *protocol.Request) Route {
	if req == nil || req.Method != protocol.MethodGet {
		return RouteNotFound
	}
	if firstSegment(req.Path) == "api" {
		return RouteAPI
	}
	return RouteStatic
}

// Route returns the route and handler for req.
func (r *Router) Route(req *protocol.Request) (Route, handlers.Handler) {
	route := Classify(req)
	switch route {
	case RouteAPI:
		return route, r.handlers.API
	case RouteStatic:
		return route, r.handlers.Static
	default:
		return route, r.handlers.NotFound
	}
}

// Handle routes req and returns the handler's response.
func (r *Router) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	_, h := r.Route(req)
	return h.Handle(ctx, req)
}

func firstSegment(path string) string {
	for _, segment := range strings.Split(handlers.StripQuery(path), "/") {
		if segment != "" {
			return segment
		}
	}
	return ""
}
