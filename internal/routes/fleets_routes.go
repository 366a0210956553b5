package routes

import (
	"net/http"

	"github.com/enamaryn/XNova-reforged-sub000/internal/fleet"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/handlers"
)

// fleetAnswer :
// Answer to the sending of a fleet: the fleet and its origin
// once the ships, cargo and fuel were taken from it.
type fleetAnswer struct {
	Fleet  model.Fleet  `json:"fleet"`
	Origin model.Planet `json:"origin"`
}

func (s *Server) listFleets() handlers.Endpoint {
	return func(r *http.Request, vars handlers.RouteVars) (interface{}, error) {
		return s.services.Fleets.List(r.Context(), playerOf(r))
	}
}

func (s *Server) sendFleet() handlers.Creation {
	return func(r *http.Request, vars handlers.RouteVars) (string, interface{}, error) {
		var req fleet.Request
		if err := handlers.ExtractData(r, &req); err != nil {
			return "", nil, err
		}

		f, origin, err := s.services.Fleets.Send(r.Context(), playerOf(r), req, s.now())
		if err != nil {
			return "", nil, err
		}

		return "/fleets/" + f.ID, fleetAnswer{Fleet: f, Origin: origin}, nil
	}
}

func (s *Server) getFleet() handlers.Endpoint {
	return func(r *http.Request, vars handlers.RouteVars) (interface{}, error) {
		return s.services.Fleets.Get(r.Context(), playerOf(r), vars.Elem("fleet"))
	}
}

func (s *Server) recallFleet() handlers.Endpoint {
	return func(r *http.Request, vars handlers.RouteVars) (interface{}, error) {
		return s.services.Fleets.Recall(r.Context(), playerOf(r), vars.Elem("fleet"), s.now())
	}
}
