package routes

import (
	"net/http"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/dispatcher"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/handlers"
)

// routes :
// Used to setup all the routes able to be served by this
// server. Routes acting on behalf of a player require the
// player header.
func (s *Server) routes() http.Handler {
	router := dispatcher.NewRouter(s.log)

	router.HandleFunc("/health", handlers.ServeRoute(s.health(), statusOf, s.log)).Methods("GET")

	s.routePlanets(router)
	s.routeQueues(router)
	s.routeFleets(router)
	s.routeReports(router)

	// Simulations are not related to any player.
	// POST, `/simulate`, `battle`
	router.HandleFunc("/simulate", handlers.ServeRoute(s.simulate(), statusOf, s.log)).Methods("POST")

	if s.services.Registry != nil {
		// POST, `/players`, `player-data`
		router.HandleFunc("/players", handlers.ServeCreationRoute(s.registerPlayer(), statusOf, s.log)).Methods("POST")
	}

	if s.services.Hub != nil {
		// GET, `/ws`
		router.HandleFunc("/ws", s.events()).Methods("GET")
	}

	return router
}

// player :
// Decorates the endpoint so that it is only reached by the
// requests identifying a player.
func (s *Server) player(next http.HandlerFunc) http.HandlerFunc {
	return handlers.RequireHeader(s.log, playerHeader, next)
}

// playerOf :
// Returns the player issuing the request.
func playerOf(r *http.Request) string {
	return handlers.Header(r, playerHeader)
}

func (s *Server) health() handlers.Endpoint {
	return func(r *http.Request, vars handlers.RouteVars) (interface{}, error) {
		return map[string]interface{}{
			"status": "ok",
			"time":   s.now(),
		}, nil
	}
}

// routePlanets :
// Sets up the routes to access the planets.
func (s *Server) routePlanets(router *dispatcher.Router) {
	// GET, `/planets/planet_id`
	router.HandleFunc("/planets/{planet}", s.player(handlers.ServeRoute(s.getPlanet(), statusOf, s.log))).Methods("GET")

	// POST, `/planets/planet_id/refresh`
	router.HandleFunc("/planets/{planet}/refresh", s.player(handlers.ServeRoute(s.refreshPlanet(), statusOf, s.log))).Methods("POST")
}

// routeQueues :
// Sets up the routes to start, cancel and list the entries
// of the production queues.
func (s *Server) routeQueues(router *dispatcher.Router) {
	// GET, `/planets/planet_id/queues`
	router.HandleFunc("/planets/{planet}/queues", s.player(handlers.ServeRoute(s.listQueues(), statusOf, s.log))).Methods("GET")

	// POST, `/planets/planet_id/queues/kind`, `element-data`
	router.HandleFunc("/planets/{planet}/queues/{kind}", s.player(handlers.ServeCreationRoute(s.startEntry(), statusOf, s.log))).Methods("POST")

	// DELETE, `/planets/planet_id/queues/kind/entry_id`
	router.HandleFunc("/planets/{planet}/queues/{kind}/{entry}", s.player(handlers.ServeRoute(s.cancelEntry(), statusOf, s.log))).Methods("DELETE")

	// DELETE, `/research`
	router.HandleFunc("/research", s.player(handlers.ServeRoute(s.cancelResearch(), statusOf, s.log))).Methods("DELETE")
}

// routeFleets :
// Sets up the routes to send, recall and follow fleets.
func (s *Server) routeFleets(router *dispatcher.Router) {
	// GET, `/fleets`
	router.HandleFunc("/fleets", s.player(handlers.ServeRoute(s.listFleets(), statusOf, s.log))).Methods("GET")

	// POST, `/fleets`, `fleet-data`
	router.HandleFunc("/fleets", s.player(handlers.ServeCreationRoute(s.sendFleet(), statusOf, s.log))).Methods("POST")

	// GET, `/fleets/fleet_id`
	router.HandleFunc("/fleets/{fleet}", s.player(handlers.ServeRoute(s.getFleet(), statusOf, s.log))).Methods("GET")

	// POST, `/fleets/fleet_id/recall`
	router.HandleFunc("/fleets/{fleet}/recall", s.player(handlers.ServeRoute(s.recallFleet(), statusOf, s.log))).Methods("POST")
}

// routeReports :
// Sets up the routes to read the combat reports.
func (s *Server) routeReports(router *dispatcher.Router) {
	// GET, `/reports/report_id`
	router.HandleFunc("/reports/{report}", s.player(handlers.ServeRoute(s.getReport(), statusOf, s.log))).Methods("GET")

	// GET, `/reports/report_id/rounds`
	router.HandleFunc("/reports/{report}/rounds", s.player(s.reportRounds())).Methods("GET")
}
