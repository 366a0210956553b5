package routes

import (
	"net/http"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/handlers"
)

// registerRequest :
// Body of the registration of a player.
//
// The `Coordinates` are the position of its homeworld.
type registerRequest struct {
	Name        string           `json:"name"`
	Coordinates model.Coordinate `json:"coordinates"`
}

// playerAnswer :
// Answer to the registration of a player. The identifier of
// the player is the value to use in the player header.
type playerAnswer struct {
	Player    model.User   `json:"player"`
	Homeworld model.Planet `json:"homeworld"`
}

func (s *Server) registerPlayer() handlers.Creation {
	return func(r *http.Request, vars handlers.RouteVars) (string, interface{}, error) {
		var in registerRequest
		if err := handlers.ExtractData(r, &in); err != nil {
			return "", nil, err
		}

		user, planet, err := s.services.Registry.Register(r.Context(), in.Name, in.Coordinates, s.now())
		if err != nil {
			return "", nil, err
		}

		return "/planets/" + planet.ID, playerAnswer{Player: user, Homeworld: planet}, nil
	}
}
