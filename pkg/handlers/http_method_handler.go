package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// headerKey :
// Key under which a header required by `RequireHeader` is
// attached to the context of the request.
type headerKey string

// RequireHeader :
// Describe a `HTTP` handler which only forwards to the `next`
// one requests defining a non empty value for the header. Any
// request not defining it is answered with a `401`.
//
// The `log` represents the logger object to use to notify of any
// bad connexion request on this endpoint.
//
// The `header` is the name of the mandatory header.
//
// The `next` handler will be called only if the input request
// defines the header. Its value is available through `Header`.
//
// Returns a callable function that will filter requests based on
// the presence of the header.
func RequireHeader(log logger.Logger, header string, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value := strings.TrimSpace(r.Header.Get(header))

		if len(value) == 0 {
			log.Trace(logger.Warning, "handlers", fmt.Sprintf("Discarding request on \"%s\" without \"%s\" header", r.URL.Path, header))

			WriteError(w, http.StatusUnauthorized, fmt.Sprintf("%v \"%s\"", ErrMissingHeader, header))
			return
		}

		ctx := context.WithValue(r.Context(), headerKey(header), value)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// Header :
// Returns the value of the header checked by `RequireHeader`
// for this request, or an empty string if the request was not
// filtered by it.
func Header(r *http.Request, header string) string {
	value, _ := r.Context().Value(headerKey(header)).(string)
	return value
}
