// Package routes exposes the operations of the engine as a
// JSON API along with a websocket stream of the events of
// the players.
package routes

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/accrual"
	"github.com/enamaryn/XNova-reforged-sub000/internal/combat"
	"github.com/enamaryn/XNova-reforged-sub000/internal/fleet"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/notify"
	"github.com/enamaryn/XNova-reforged-sub000/internal/queue"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/dispatcher"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/gorilla/handlers"
)

// playerHeader :
// Header identifying the player issuing a request.
const playerHeader = "X-Player"

// Registry :
// Creates the players along with their homeworld.
type Registry interface {
	Register(ctx context.Context, name string, coordinates model.Coordinate, now time.Time) (model.User, model.Planet, error)
}

// Services :
// The engines serving the requests.
//
// The `Hub` streams the events of the players. The `/ws`
// route is not served when it is `nil`.
//
// The `Registry` registers new players. The `/players`
// route is not served when it is `nil`.
type Services struct {
	Accrual  *accrual.Engine
	Queues   *queue.Scheduler
	Fleets   *fleet.Engine
	Combat   *combat.Engine
	Hub      *notify.Hub
	Registry Registry
}

// Server :
// Defines a server that can be used to handle the interaction
// with the engine. The server is built from the services and
// the logger and performs the listening to handle the clients'
// requests.
// This article helped a bit to set up and describe the data
// model and structures used to describe the server:
// https://pace.dev/blog/2018/05/09/how-I-write-http-services-after-eight-years
//
// The `port` allows to determine which port should be used by
// the server to accept incoming requests.
//
// The `services` are the engines performing the operations.
//
// The `config` defines the rate limiting and the origins
// allowed to access the API.
//
// The `clock` gives the instant at which a request happens.
// All the operations triggered by a request use this instant.
//
// The `handler` is the router decorated with the middlewares.
//
// The `log` allows to perform most of the logging on any
// action done by the server such as logging clients'
// connections and errors.
type Server struct {
	port     int
	services Services
	config   Config
	clock    func() time.Time
	handler  http.Handler
	http     *http.Server
	log      logger.Logger
}

// NewServer :
// Create a new server with the input services. In case any of
// the engines is missing a panic is issued to indicate the
// failure.
func NewServer(port int, services Services, config Config, log logger.Logger) *Server {
	if services.Accrual == nil || services.Queues == nil || services.Fleets == nil || services.Combat == nil {
		panic(fmt.Errorf("cannot create server without engines"))
	}

	s := &Server{
		port:     port,
		services: services,
		config:   config,
		clock:    time.Now,
		log:      log,
	}
	s.handler = s.decorate(s.routes())

	return s
}

// WithClock :
// Replaces the source of the current time.
func (s *Server) WithClock(clock func() time.Time) *Server {
	s.clock = clock
	return s
}

// now :
// Returns the instant of a request.
func (s *Server) now() time.Time {
	return s.clock().UTC()
}

// decorate :
// Wraps the router with the middlewares: panics recovery,
// rate limiting, CORS and access logging.
func (s *Server) decorate(router http.Handler) http.Handler {
	var h http.Handler = dispatcher.WithSafetyNet(s.log, router)

	h = newLimiters(s.config).withRateLimit(s.log, h)

	h = handlers.CORS(
		handlers.AllowedOrigins(s.config.Origins),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", playerHeader}),
		handlers.ExposedHeaders([]string{"Location"}),
	)(h)

	return handlers.CombinedLoggingHandler(accessLog{log: s.log}, h)
}

// Handler :
// Returns the handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve :
// Used to start listening to the port associated to this
// server and handle incoming requests. This blocks until the
// server is shut down, in which case `nil` is returned.
func (s *Server) Serve() error {
	s.http = &http.Server{
		Addr:              ":" + strconv.FormatInt(int64(s.port), 10),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Trace(logger.Notice, "api", fmt.Sprintf("Listening on port %d", s.port))

	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}

	return err
}

// Shutdown :
// Stops accepting requests and waits for the pending ones
// to complete or the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}

	return s.http.Shutdown(ctx)
}
