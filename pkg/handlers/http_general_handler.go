package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// Endpoint :
// Defines the processing of a request. It receives the variables
// extracted from the route and returns the data to send back to
// the client along with any error. If an error is returned the
// handler answers with the status provided by the classifier.
// In any other case it will marshal the data and send it back
// to the client.
type Endpoint func(r *http.Request, vars RouteVars) (interface{}, error)

// marshalAndSend :
// Used to send the input data after marshalling it to the provided
// response writer. In case the data cannot be marshalled a `500`
// error is returned and this is indicated in the return value.
//
// The `data` represents the data to send back to the client.
//
// The `status` is the status code of the answer.
//
// The `w` represents the response writer to use to send data back.
//
// Returns any error encountered either when marshalling the data
// or when sending the data.
func marshalAndSend(data interface{}, status int, w http.ResponseWriter) error {
	out, err := json.Marshal(data)
	if err != nil {
		http.Error(w, InternalServerErrorString(), http.StatusInternalServerError)

		return err
	}

	// Headers should be set before the status is written.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(out)

	return err
}

// WriteJSON :
// Answers the request with the data marshalled in JSON.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	return marshalAndSend(data, status, w)
}

// fail :
// Answers a request which could not be served. Failures of
// the server are logged as errors while the ones caused by
// the client are only traced.
func fail(w http.ResponseWriter, r *http.Request, err error, classifier Classifier, log logger.Logger) {
	status := classify(err, classifier)

	level := logger.Debug
	if status >= http.StatusInternalServerError {
		level = logger.Error
	}
	log.Trace(level, "handlers", fmt.Sprintf("Request %s \"%s\" failed with %d (err: %v)", r.Method, r.URL.Path, status, err))

	WriteError(w, status, err.Error())
}

// ServeRoute :
// Handles the request by extracting the route variables and
// forwarding them to the endpoint, then sends back its data
// with a `200` status.
//
// The `endpoint` performs the processing of the request.
//
// The `classifier` converts the errors of the endpoint into
// status codes.
//
// The `log` allows to notify errors and warnings to the user in
// case it is needed while parsing the request.
//
// Returns the handler that can be executed to serve such requests.
func ServeRoute(endpoint Endpoint, classifier Classifier, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := endpoint(r, extractRouteVars(r))
		if err != nil {
			fail(w, r, err, classifier, log)
			return
		}

		if err := marshalAndSend(data, http.StatusOK, w); err != nil {
			log.Trace(logger.Error, "handlers", fmt.Sprintf("Error while serving route \"%s\" (err: %v)", r.URL.Path, err))
		}
	}
}
