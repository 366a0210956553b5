package routes

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/enamaryn/XNova-reforged-sub000/internal/combat"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/handlers"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// simulateRequest :
// Body of a simulation. The seed is derived from the time of
// the request when it is not provided.
type simulateRequest struct {
	combat.Battle
	Seed *int64 `json:"seed,omitempty"`
}

func (s *Server) getReport() handlers.Endpoint {
	return func(r *http.Request, vars handlers.RouteVars) (interface{}, error) {
		return s.services.Combat.Report(r.Context(), playerOf(r), vars.Elem("report"))
	}
}

// reportRounds :
// Sends the losses of each round of a report as CSV. The
// document is built before anything is written so that a
// failure can still be answered with an error.
func (s *Server) reportRounds() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := dispatcherVar(r, "report")

		var buf bytes.Buffer
		if err := s.services.Combat.RoundsCSV(r.Context(), playerOf(r), id, &buf); err != nil {
			status := statusOf(err)
			if status == 0 {
				status = http.StatusInternalServerError
				s.log.Trace(logger.Error, "api", fmt.Sprintf("Failed to export rounds of \"%s\" (err: %v)", id, err))
			}

			handlers.WriteError(w, status, err.Error())
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", id))
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

func (s *Server) simulate() handlers.Endpoint {
	return func(r *http.Request, vars handlers.RouteVars) (interface{}, error) {
		var in simulateRequest
		if err := handlers.ExtractData(r, &in); err != nil {
			return nil, err
		}

		seed := combat.SimulationSeed(s.now())
		if in.Seed != nil {
			seed = *in.Seed
		}

		return s.services.Combat.Simulate(in.Battle, seed)
	}
}
