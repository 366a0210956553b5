package dispatcher

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// getModuleName :
// Returns the module name used when logging from this
// package.
func getModuleName() string {
	return "dispatcher"
}

// supportedMethods :
// The verbs a route can be registered for.
var supportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// filterMethods :
// Keeps the methods of the input list which are valid HTTP
// verbs, converted to upper case.
func filterMethods(methods []string, log logger.Logger) map[string]bool {
	filtered := make(map[string]bool, len(methods))

	for _, method := range methods {
		consolidated := strings.ToUpper(strings.TrimSpace(method))

		if !supportedMethods[consolidated] {
			log.Trace(logger.Error, getModuleName(), fmt.Sprintf("Filtering invalid HTTP method \"%s\"", method))
			continue
		}

		filtered[consolidated] = true
	}

	return filtered
}
