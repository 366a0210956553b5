package routes

import (
	"net/http"
	"strings"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/dispatcher"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/handlers"
)

// dispatcherVar :
// Returns the value of a variable segment of the route for
// handlers not served through `handlers.ServeRoute`.
func dispatcherVar(r *http.Request, name string) string {
	return dispatcher.Vars(r)[name]
}

// events :
// Upgrades the connection to a websocket receiving the events
// of the player. Browsers can't set headers on websockets so
// the player may also be given with the `player` parameter.
func (s *Server) events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player := strings.TrimSpace(r.Header.Get(playerHeader))
		if len(player) == 0 {
			player = strings.TrimSpace(r.URL.Query().Get("player"))
		}

		if len(player) == 0 {
			handlers.WriteError(w, http.StatusUnauthorized, "missing player")
			return
		}

		s.services.Hub.Serve(player, w, r)
	}
}
