package dispatcher

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// varsKey :
// Key under which the variables of the matched route are
// attached to the context of the request.
type varsKey struct{}

// Router :
// Defines a generic router that can be used to simplify the
// handling of multiple routes for a server. It helps with
// the organization of the routes by providing some means to
// register routes with a specific pattern and method.
//
// The `notFoundHandler` defines the handler to use in case
// no route can be matched for a request.
//
// The `methodNotAllowedHandler` defines a handler that is
// called whenever the path of a route is matched for a
// request but none of the routes sharing this path accept
// its method.
//
// The `routes` register all the routes defined for this
// router. They are tried in registration order.
//
// The `log` allows to notify the user of information and
// various errors that can be produced by this element.
type Router struct {
	notFoundHandler         http.Handler
	methodNotAllowedHandler http.Handler
	routes                  []*Route
	log                     logger.Logger
}

// routeMatch :
// Stores the information about a matched route.
//
// The `handler` defines the actual handler that should be
// used to process the request.
//
// The `match` allows to precisely determine which kind
// of matching was possible among all the routes that are
// managed by this router.
//
// The `vars` are the values of the variable segments of
// the matched route.
//
// The `allowed` lists the methods of the routes whose path
// matched when none accepted the method of the request.
type routeMatch struct {
	handler http.Handler
	match   matching
	vars    map[string]string
	allowed []string
}

// NewRouter :
// Creates a new router with default handlers for not found
// and method not allowed and no route to match.
func NewRouter(log logger.Logger) *Router {
	return &Router{
		notFoundHandler:         NotFound(log),
		methodNotAllowedHandler: NotAllowed(log),
		routes:                  make([]*Route, 0),
		log:                     log,
	}
}

// NotFoundHandler :
// Replaces the handler called when no route matches.
func (r *Router) NotFoundHandler(h http.Handler) *Router {
	r.notFoundHandler = h
	return r
}

// addRoute :
// Registers a new empty route in this router. If the path
// is empty, the route will be associated to the '/' path.
func (r *Router) addRoute(path string) *Route {
	if len(path) == 0 {
		path = "/"
	}

	route := NewRoute(path, r.log)
	r.routes = append(r.routes, route)

	return route
}

// HandleFunc :
// Registers a new route in the internal list of served routes
// with the provided path and associated handler.
//
// Returns the created route.
func (r *Router) HandleFunc(path string, f func(http.ResponseWriter, *http.Request)) *Route {
	return r.addRoute(path).HandlerFunc(f)
}

// Handle :
// Same as `HandleFunc` for a plain handler.
func (r *Router) Handle(path string, h http.Handler) *Route {
	return r.addRoute(path).Handle(h)
}

// ServeHTTP :
// Used to dispatch the input request to the best suited
// handler as registered in the internal routes. The values
// of the variable segments are made available to it with
// `Vars`.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var match routeMatch
	r.Match(req, &match)

	if len(match.allowed) > 0 {
		w.Header().Set("Allow", strings.Join(match.allowed, ", "))
	}

	if len(match.vars) > 0 {
		req = req.WithContext(context.WithValue(req.Context(), varsKey{}, match.vars))
	}

	match.handler.ServeHTTP(w, req)
}

// Match attempts to match the given request against the
// router's registered routes.
//
// The `m` will be populated with the best matching route.
// In case no registered route can be matched, the not found
// handler is selected. In case the path could be matched
// but not the method, the not allowed handler is selected.
//
// Returns `true` in case a route could be matched.
func (r *Router) Match(req *http.Request, m *routeMatch) bool {
	best := notFound
	allowed := make(map[string]bool)

	for _, route := range r.routes {
		state, vars := route.match(req)

		if state == matched {
			m.match = matched
			m.handler = route.Handler()
			m.vars = vars
			return true
		}

		if state == methodNotAllowed {
			for method := range route.methods {
				allowed[method] = true
			}
		}

		if state > best {
			best = state
		}
	}

	m.match = best
	m.handler = r.notFoundHandler
	if best == methodNotAllowed {
		m.handler = r.methodNotAllowedHandler

		for method := range allowed {
			m.allowed = append(m.allowed, method)
		}
		sort.Strings(m.allowed)
	}

	return false
}

// Vars :
// Returns the values of the variable segments of the route
// which matched the request. The map is empty for routes
// without variables.
func Vars(req *http.Request) map[string]string {
	vars, ok := req.Context().Value(varsKey{}).(map[string]string)
	if !ok {
		return map[string]string{}
	}

	return vars
}
