package routes

import (
	"fmt"
	"net/http"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/handlers"
)

// startRequest :
// Body of the request starting a queue entry.
//
// The `Amount` is the number of units to build and is only
// used by the shipyard.
type startRequest struct {
	Element string `json:"element"`
	Amount  int    `json:"amount"`
}

// entryAnswer :
// Answer to a request modifying a queue: the entry created
// if any and the planet after the operation.
type entryAnswer struct {
	Entry  *model.QueueEntry `json:"entry,omitempty"`
	Planet model.Planet      `json:"planet"`
}

func (s *Server) listQueues() handlers.Endpoint {
	return func(r *http.Request, vars handlers.RouteVars) (interface{}, error) {
		return s.services.Queues.Get(r.Context(), playerOf(r), vars.Elem("planet"), s.now())
	}
}

func (s *Server) startEntry() handlers.Creation {
	return func(r *http.Request, vars handlers.RouteVars) (string, interface{}, error) {
		var in startRequest
		if err := handlers.ExtractData(r, &in); err != nil {
			return "", nil, err
		}

		planet := vars.Elem("planet")
		kind := model.QueueKind(vars.Elem("kind"))

		entry, p, err := s.services.Queues.Start(r.Context(), kind, playerOf(r), planet, in.Element, in.Amount, s.now())
		if err != nil {
			return "", nil, err
		}

		location := fmt.Sprintf("/planets/%s/queues/%s/%s", planet, kind, entry.ID)

		return location, entryAnswer{Entry: &entry, Planet: p}, nil
	}
}

func (s *Server) cancelEntry() handlers.Endpoint {
	return func(r *http.Request, vars handlers.RouteVars) (interface{}, error) {
		kind := model.QueueKind(vars.Elem("kind"))

		p, err := s.services.Queues.Cancel(r.Context(), kind, playerOf(r), vars.Elem("entry"), s.now())
		if err != nil {
			return nil, err
		}

		return entryAnswer{Planet: p}, nil
	}
}

func (s *Server) cancelResearch() handlers.Endpoint {
	return func(r *http.Request, vars handlers.RouteVars) (interface{}, error) {
		p, err := s.services.Queues.CancelResearch(r.Context(), playerOf(r), s.now())
		if err != nil {
			return nil, err
		}

		return entryAnswer{Planet: p}, nil
	}
}
