// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/cocstats/internal/domain/leaderboard"
	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/internal/domain/view"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ViewDependencies
	LeaderboardDependencies
	RankDependencies
	ExportDependencies
}

// ViewDependencies derives the dashboard pages.
type ViewDependencies interface {
	View(ctx context.Context, q view.Query) (view.ViewModel, error)
	Dashboard(ctx context.Context) (view.Dashboard, error)
	Analytics(ctx context.Context) (view.Analytics, error)
	Activity(ctx context.Context) (view.Activity, error)
	Feedback(ctx context.Context) (view.Feedback, error)
	Users(ctx context.Context, q view.Query) (view.Users, error)
	Status(ctx context.Context) (map[string]model.CollectionStatus, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	viewHandler        *ViewHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	exportHandler      *ExportHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// leaderboard limit parameter.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		viewHandler:        NewViewHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		exportHandler:      NewExportHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/view", MetricsMiddleware(s.viewHandler.HandleView, "view"))
	mux.HandleFunc("GET /api/dashboard", MetricsMiddleware(s.viewHandler.HandleDashboard, "dashboard"))
	mux.HandleFunc("GET /api/analytics", MetricsMiddleware(s.viewHandler.HandleAnalytics, "analytics"))
	mux.HandleFunc("GET /api/activity", MetricsMiddleware(s.viewHandler.HandleActivity, "activity"))
	mux.HandleFunc("GET /api/feedback", MetricsMiddleware(s.viewHandler.HandleFeedback, "feedback"))
	mux.HandleFunc("GET /api/users", MetricsMiddleware(s.viewHandler.HandleUsers, "users"))
	mux.HandleFunc("GET /api/status", MetricsMiddleware(s.viewHandler.HandleStatus, "status"))

	mux.HandleFunc("GET /api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /api/rank/{device_id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))

	mux.HandleFunc("GET /api/users/export.csv", MetricsMiddleware(s.exportHandler.HandleCSV, "export_csv"))
	mux.HandleFunc("GET /api/users/export.json", MetricsMiddleware(s.exportHandler.HandleJSON, "export_json"))
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

// writeFailure maps upstream errors to a status code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, leaderboard.ErrNotFound) || errors.Is(err, ErrNotFound)
}

// queryFrom reads the user table parameters q, sort and order.
func queryFrom(r *http.Request) view.Query {
	v := r.URL.Query()
	return view.ParseQuery(v.Get("q"), v.Get("sort"), v.Get("order"))
}
