package dispatcher

import (
	"net/http"
	"strings"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// Convenience define allowing to reference the possible
// matching state for a route. It is used to precisely
// determine the best match for an input requets.
type matching int

// Definition of the possible match state for a route.
const (
	notFound matching = iota
	methodNotAllowed
	matched
)

// Route :
// Defines a generic route which is a path that can be used
// to target a server. The route is composed of a pattern
// and a set of methods, which allows to serve multiple
// request types on a single endpoint in the REST fashion.
//
// The `methods` defines the HTTP verbs associated to this
// route. No request that doesn't match one of these verbs
// will be directed towards this route.
//
// The `name` of the route defines the pattern to match to
// reach the route. Segments written as `{name}` match any
// non empty segment of the path and make its value known
// to the handler through `Vars`.
//
// The `segments` are the elements of the `name` between
// the '/' characters.
//
// The `handler` defines the actual processing to call in
// case this route is triggered. It will be initialized
// to a default `NoOp` handler.
//
// The `log` will be used in case anything is requiring
// to notify the user of an error.
type Route struct {
	methods  map[string]bool
	name     string
	segments []string
	handler  http.Handler
	log      logger.Logger
}

// NewRoute :
// Used to create a new route with no associated methods
// and the specified path. In case the path is empty, the
// route is still created.
//
// The `path` indicates the pattern that is associated to
// the route to create.
//
// The `log` is used to create the default `NoOp` handler
// associated to this route.
//
// Returns the created route.
func NewRoute(path string, log logger.Logger) *Route {
	return &Route{
		methods:  make(map[string]bool, 0),
		name:     path,
		segments: splitPath(path),
		handler:  http.Handler(NoOp(log)),
		log:      log,
	}
}

// splitPath :
// Splits a path into its elements, ignoring the leading
// and trailing '/' characters.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if len(path) == 0 {
		return []string{}
	}

	return strings.Split(path, "/")
}

// Name :
// Returns the pattern of this route.
func (r *Route) Name() string {
	return r.name
}

// Handler :
// Returns the handler associated to this route. Should
// never be `nil`.
func (r *Route) Handler() http.Handler {
	return r.handler
}

// Methods :
// Register the set of methods provided in input as valid
// methods to reach this route. Note that in case the method
// already exists, nothing happen.
// The input methods are transformed into upper case verbs
// internally.
//
// Returns a reference to this route to chain calls.
func (r *Route) Methods(methods ...string) *Route {
	filtered := filterMethods(methods, r.log)

	for method := range filtered {
		r.methods[method] = true
	}

	return r
}

// HandlerFunc :
// Register the provided handler func as the main processing
// function for this route. A `nil` function keeps the
// current handler.
//
// Returns this route, so that we can chain call.
func (r *Route) HandlerFunc(f func(http.ResponseWriter, *http.Request)) *Route {
	if f == nil {
		return r
	}
	r.handler = http.HandlerFunc(f)

	return r
}

// Handle :
// Same as `HandlerFunc` for a plain handler.
func (r *Route) Handle(h http.Handler) *Route {
	r.handler = h

	return r
}

// match :
// Used to verify whether this route can match the input
// request. It checks the path of the request against the
// pattern of the route and then the method.
//
// Returns the matching state for this route along with the
// values of the variable segments when the path matches.
func (r *Route) match(req *http.Request) (matching, map[string]string) {
	vars, ok := r.matchName(req.URL.Path)
	if !ok {
		return notFound, nil
	}

	if _, ok := r.methods[req.Method]; !ok {
		return methodNotAllowed, nil
	}

	return matched, vars
}

// matchName :
// Used to determine whether the input `uri` matches the
// pattern of the route. Each element of the path should
// either be equal to the element of the pattern or fill a
// variable segment. Typically we will prevent matching of
// cases as described below:
//  -route: `/path/to/route`
//  -uri  : `/path/to/routeeeee`
//  -uri  : `/path/to/route/and/more`
//
// Returns the variables extracted from the `uri` and
// whether it matches the route.
func (r *Route) matchName(uri string) (map[string]string, bool) {
	elems := splitPath(uri)
	if len(elems) != len(r.segments) {
		return nil, false
	}

	vars := make(map[string]string)

	for id, segment := range r.segments {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			if len(elems[id]) == 0 {
				return nil, false
			}

			vars[segment[1:len(segment)-1]] = elems[id]
			continue
		}

		if segment != elems[id] {
			return nil, false
		}
	}

	return vars, true
}
