package handlers

import (
	"net/http"
)

// Classifier :
// Converts an error returned while serving a request into
// the status code to answer with.
type Classifier func(err error) int

// errorBody :
// Document sent back to the client when a request fails.
//
// The `Error` describes the failure.
//
// The `Status` repeats the status code of the answer.
type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// WriteError :
// Answers the request with the status and a JSON document
// describing the failure. Server errors are answered with a
// generic message so as not to leak internal details.
func WriteError(w http.ResponseWriter, status int, msg string) error {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		msg = InternalServerErrorString()
	}

	return marshalAndSend(errorBody{Error: msg, Status: status}, status, w)
}

// classify :
// Returns the status of the error, either from this package
// or through the classifier. Errors that are not classified
// are internal errors.
func classify(err error, classifier Classifier) int {
	if status := requestError(err); status != 0 {
		return status
	}

	if classifier != nil {
		if status := classifier(err); status != 0 {
			return status
		}
	}

	return http.StatusInternalServerError
}
