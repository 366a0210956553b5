package handlers

import (
	"fmt"
	"net/http"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// Creation :
// Defines the processing of a request creating a resource. It
// receives the variables extracted from the route and returns
// the path to access the created resource along with its data.
type Creation func(r *http.Request, vars RouteVars) (string, interface{}, error)

// ServeCreationRoute :
// Used to create a general handler performing the creation of
// a resource. The path returned by the creation is set as the
// `Location` of the answer, as described in the following post:
// https://stackoverflow.com/questions/1829875/is-it-ok-by-rest-to-return-content-after-post
// and the data of the resource is sent back with a `201` code.
//
// The `classifier` converts the errors of the creation into
// status codes.
//
// The `log` allows to notify errors and warnings to the user in case it
// is needed while parsing the request.
//
// Returns the handler that can be executed to serve such requests.
func ServeCreationRoute(creation Creation, classifier Classifier, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location, data, err := creation(r, extractRouteVars(r))
		if err != nil {
			fail(w, r, err, classifier, log)
			return
		}

		if len(location) > 0 {
			w.Header().Set("Location", location)
		}

		if err := marshalAndSend(data, http.StatusCreated, w); err != nil {
			log.Trace(logger.Error, "handlers", fmt.Sprintf("Could not send resource created from route \"%s\" (err: %v)", r.URL.Path, err))
		}
	}
}
