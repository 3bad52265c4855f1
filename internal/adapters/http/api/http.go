// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/skillboard/internal/adapters/mq/queue"
	"github.com/okian/skillboard/internal/adapters/repository"
	service "github.com/okian/skillboard/internal/app"
	"github.com/okian/skillboard/internal/domain/model"
	pl "github.com/okian/skillboard/internal/domain/plackettluce"
	"github.com/okian/skillboard/internal/domain/rating"
	"github.com/okian/skillboard/pkg/logger"
)

const (
	defaultMaxLeaderboardLimit = 100
	maxBodyBytes               = 1 << 20
)

// MatchSubmitter accepts matches for asynchronous rating.
type MatchSubmitter interface {
	Submit(ctx context.Context, m model.Match) (id string, duplicate bool, err error)
}

// RatingReader exposes stored ratings.
type RatingReader interface {
	Player(ctx context.Context, id string, w rating.Window) (repository.Entry, error)
	Leaderboard(ctx context.Context, w rating.Window, n int) ([]repository.Entry, error)
}

// Predictor estimates match outcomes from stored ratings.
type Predictor interface {
	PredictWin(ctx context.Context, teams [][]string, w rating.Window) ([]float64, error)
	PredictDraw(ctx context.Context, teams [][]string, w rating.Window) (float64, error)
	PredictRank(ctx context.Context, teams [][]string, w rating.Window) ([]pl.RankPrediction, error)
}

// WindowResetter re-seeds a rating window.
type WindowResetter interface {
	ResetWindow(ctx context.Context, w rating.Window) (int, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	MatchSubmitter
	RatingReader
	Predictor
	WindowResetter
	StatsProvider
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLeaderboardLimit caps GET /leaderboard?limit.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	maxLimit int
	log      logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:     deps,
		maxLimit: defaultMaxLeaderboardLimit,
		log:      logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(handleHealth, "healthz"))
	mux.Handle("GET /metrics", metricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.handleStats, "stats"))
	mux.HandleFunc("POST /matches", MetricsMiddleware(s.handleSubmitMatch, "matches"))
	mux.HandleFunc("GET /players/{id}", MetricsMiddleware(s.handleGetPlayer, "players"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.handleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("POST /predict/{kind}", MetricsMiddleware(s.handlePredict, "predict"))
	mux.HandleFunc("POST /windows/{window}/reset", MetricsMiddleware(s.handleResetWindow, "windows_reset"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err onto a status code and writes it.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(ctx, "request failed", logger.Error(err))
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidMatch),
		errors.Is(err, pl.ErrValidation),
		errors.Is(err, rating.ErrUnknownWindow),
		errors.Is(err, repository.ErrInvalidWindow):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "invalid_limit"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrUnavailable), errors.Is(err, queue.ErrClosed), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decode reads a JSON body of at most maxBodyBytes into v.
func decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// window reads the optional ?window= parameter.
func window(r *http.Request, op string) (rating.Window, error) {
	w, err := rating.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		return 0, WrapKind(op, ErrBadRequest, err)
	}
	return w, nil
}
