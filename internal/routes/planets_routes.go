package routes

import (
	"net/http"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/handlers"
)

// getPlanet :
// Returns the planet with its queues settled and its stock
// rolled forward to the time of the request.
func (s *Server) getPlanet() handlers.Endpoint {
	return func(r *http.Request, vars handlers.RouteVars) (interface{}, error) {
		return s.services.Queues.Planet(r.Context(), playerOf(r), vars.Elem("planet"), s.now())
	}
}

// refreshPlanet :
// Only rolls the stock of the planet forward, without
// looking at its queues.
func (s *Server) refreshPlanet() handlers.Endpoint {
	return func(r *http.Request, vars handlers.RouteVars) (interface{}, error) {
		return s.services.Accrual.Get(r.Context(), playerOf(r), vars.Elem("planet"), s.now())
	}
}
