package dispatcher

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// fallback :
// Body of the answers produced by the handlers of this
// package. It has the same shape as the errors returned
// by the endpoints so that clients only parse one format.
type fallback struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// answer :
// Writes a fallback body with the input status.
func answer(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// Nothing can be done if the client is gone.
	_ = json.NewEncoder(w).Encode(fallback{Error: msg, Status: status})
}

// NotFound :
// Handler used when no route matches the path of the
// request. It logs the request and answers a `404`.
func NotFound(log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Trace(logger.Debug, getModuleName(), fmt.Sprintf("No route for %s \"%s\"", r.Method, r.URL.Path))

		answer(w, http.StatusNotFound, fmt.Sprintf("no route for \"%s\"", r.URL.Path))
	}
}

// NotAllowed :
// Handler used when the path of a route matches but not
// its methods. The router sets the `Allow` header before
// calling it.
func NotAllowed(log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Trace(logger.Debug, getModuleName(), fmt.Sprintf("Method %s not allowed on \"%s\"", r.Method, r.URL.Path))

		answer(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
	}
}

// NoOp :
// Default handler of a route. It answers `204` so that
// routes registered without handler are easy to spot.
func NoOp(log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Trace(logger.Verbose, getModuleName(), fmt.Sprintf("Route \"%s\" has no handler", r.URL.Path))

		w.WriteHeader(http.StatusNoContent)
	}
}

// WithSafetyNet :
// Wraps the `next` handler so that a panic while serving
// a request is logged and answered with a `500` instead of
// killing the connection.
func WithSafetyNet(log logger.Logger, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Trace(logger.Error, getModuleName(), fmt.Sprintf("Recovered from panic serving %s \"%s\" (err: %v)", r.Method, r.URL.Path, err))

				answer(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	}
}
