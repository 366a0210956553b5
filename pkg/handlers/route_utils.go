package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/dispatcher"
)

// maxBodySize :
// Size in bytes above which the body of a request is not
// read.
const maxBodySize = 1 << 20

// ErrInvalidBody :
// Indicates that the body of a request could not be parsed.
var ErrInvalidBody = fmt.Errorf("invalid request body")

// ErrMissingHeader :
// Indicates that a mandatory header is missing.
var ErrMissingHeader = fmt.Errorf("missing mandatory header")

// InternalServerErrorString :
// Used to provide a unique string that can be used in case an
// error occurs while serving a client request and we need to
// provide an answer.
//
// Returns a common string to indicate an error.
func InternalServerErrorString() string {
	return "Unexpected server error"
}

// extractRouteVars :
// Used to gather the variable segments matched by the router
// and the query parameters of the input request.
//
// Returns the variables of the route. The maps may be empty
// but are never `nil`.
func extractRouteVars(r *http.Request) RouteVars {
	vars := RouteVars{
		Elems:  dispatcher.Vars(r),
		Params: make(map[string]Values),
	}

	for key, values := range r.URL.Query() {
		if values == nil {
			vars.Params[key] = make([]string, 0)
		} else {
			vars.Params[key] = values
		}
	}

	return vars
}

// ExtractData :
// Used to decode the JSON body of the request into the input
// value. Unknown fields and trailing data are rejected, as are
// bodies exceeding one megabyte.
//
// Returns an error wrapping `ErrInvalidBody` if the body can't
// be decoded.
func ExtractData(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("%w: empty body", ErrInvalidBody)
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after the document", ErrInvalidBody)
	}

	return nil
}

// requestError :
// Returns the status associated to the errors raised by this
// package or `0` if the error does not come from it.
func requestError(err error) int {
	switch {
	case errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingHeader):
		return http.StatusUnauthorized
	default:
		return 0
	}
}
