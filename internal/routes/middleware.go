package routes

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/handlers"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"golang.org/x/time/rate"
)

// limiters :
// Rate limiters of the clients of the API. A client is the
// player issuing the request, or its address when the player
// is not known.
type limiters struct {
	lock    sync.Mutex
	clients map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newLimiters(config Config) *limiters {
	return &limiters{
		clients: make(map[string]*rate.Limiter),
		limit:   rate.Limit(config.RateLimit),
		burst:   config.Burst,
	}
}

// get :
// Returns the limiter of the client, creating it if needed.
func (l *limiters) get(client string) *rate.Limiter {
	l.lock.Lock()
	defer l.lock.Unlock()

	limiter, ok := l.clients[client]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients[client] = limiter
	}

	return limiter
}

// clientOf :
// Identifies the client issuing the request.
func clientOf(r *http.Request) string {
	if player := r.Header.Get(playerHeader); len(player) > 0 {
		return "player:" + player
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	return "addr:" + host
}

// withRateLimit :
// Rejects with a `429` the requests of clients exceeding
// their rate.
func (l *limiters) withRateLimit(log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientOf(r)

		if !l.get(client).Allow() {
			log.Trace(logger.Warning, "api", fmt.Sprintf("Rate limit exceeded for %s on \"%s\"", client, r.URL.Path))
			handlers.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// accessLog :
// Forwards the lines of the access log to the logger.
type accessLog struct {
	log logger.Logger
}

// Write :
// Implementation of the `io.Writer` interface.
func (al accessLog) Write(p []byte) (int, error) {
	al.log.Trace(logger.Info, "access", string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}
