// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/tally/internal/adapters/broadcast"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

const defaultKeepAlive = 15 * time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Data returns the whole persisted document.
	Data(ctx context.Context) (model.Document, error)

	// Mutations persist first, then notify viewers.
	SetScore(ctx context.Context, judgeID, teamID string, entry model.ScoreEntry) error
	SetRevealed(ctx context.Context, revealed bool) error
	IsJudge(id string) bool

	// Subscribe and Unsubscribe manage live event streams.
	Subscribe() (*broadcast.Subscription, error)
	Unsubscribe(handle broadcast.Handle)
}

// Server wires HTTP routes for the scoring API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	streamHandler *StreamHandler
	dataHandler   *DataHandler
	scoresHandler *ScoresHandler
	revealHandler *RevealHandler
}

// ServerOption configures the Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	keepAlive time.Duration
	clock     clockwork.Clock
	logger    logger.Logger
}

// WithKeepAlive sets how often idle event streams get a comment line.
// Zero disables keep-alive comments.
func WithKeepAlive(d time.Duration) ServerOption {
	return func(c *serverConfig) {
		if d >= 0 {
			c.keepAlive = d
		}
	}
}

// WithClock replaces the clock driving keep-alive comments.
func WithClock(clock clockwork.Clock) ServerOption {
	return func(c *serverConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{
		keepAlive: defaultKeepAlive,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}

	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		streamHandler: NewStreamHandler(deps, cfg.keepAlive, cfg.clock, cfg.logger),
		dataHandler:   NewDataHandler(deps, cfg.logger),
		scoresHandler: NewScoresHandler(deps, cfg.logger),
		revealHandler: NewRevealHandler(deps, cfg.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/events", MetricsMiddleware(s.streamHandler.HandleEvents, "events"))
	mux.HandleFunc("GET /api/data", MetricsMiddleware(s.dataHandler.HandleGetData, "data"))
	mux.HandleFunc("POST /api/scores/{judgeId}/{teamId}", MetricsMiddleware(s.scoresHandler.HandlePostScore, "scores"))
	mux.HandleFunc("POST /api/reveal", MetricsMiddleware(s.revealHandler.HandleReveal, "reveal"))
	mux.HandleFunc("POST /api/reset", MetricsMiddleware(s.revealHandler.HandleReset, "reset"))
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeInternal answers with a bare 500; storage details stay in the log.
func writeInternal(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
