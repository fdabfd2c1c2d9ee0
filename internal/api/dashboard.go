package api

import (
	"errors"
	"log/slog"
	"net/http"

	"chat-backend/internal/dashboard"

	"github.com/go-chi/chi/v5"
)

type DashboardService struct {
	stats     *dashboard.Stats
	authToken string
}

// NewDashboardService serves the read-only statistics endpoints. When
// authToken is non-empty every endpoint requires that bearer token.
func NewDashboardService(stats *dashboard.Stats, authToken string) *DashboardService {
	return &DashboardService{stats: stats, authToken: authToken}
}

func (s *DashboardService) AddRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(BearerAuth(s.authToken))
		r.Get("/overview", RestHandler(s.GetOverview))
		r.Get("/conversations/storage", RestHandler(s.GetConversationStorage))
		r.Get("/content/types", RestHandler(s.GetContentTypes))
		r.Get("/time-series", RestHandler(s.GetTimeSeries))
	})
}

func (s *DashboardService) GetOverview(r *http.Request) (any, error) {
	overview, err := s.stats.Overview(r.Context())
	if err != nil {
		slog.Error("error computing dashboard overview", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to get dashboard overview")
	}
	return overview, nil
}

type storageQuery struct {
	Limit int `schema:"limit"`
}

func (s *DashboardService) GetConversationStorage(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[storageQuery](r)
	if err != nil {
		return nil, err
	}
	if query.Limit <= 0 {
		query.Limit = dashboard.DefaultStorageLimit
	}

	stats, err := s.stats.ConversationStorage(r.Context(), query.Limit)
	if err != nil {
		slog.Error("error computing conversation storage stats", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to get conversation storage stats")
	}
	return stats, nil
}

func (s *DashboardService) GetContentTypes(r *http.Request) (any, error) {
	stats, err := s.stats.ContentTypes(r.Context())
	if err != nil {
		slog.Error("error computing content type stats", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to get content type stats")
	}
	return stats, nil
}

type timeSeriesQuery struct {
	Period string `schema:"period"`
}

func (s *DashboardService) GetTimeSeries(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[timeSeriesQuery](r)
	if err != nil {
		return nil, err
	}
	if query.Period == "" {
		query.Period = "30d"
	}

	stats, err := s.stats.TimeSeries(r.Context(), query.Period)
	if errors.Is(err, dashboard.ErrInvalidPeriod) {
		return nil, CodedError(http.StatusBadRequest, err)
	}
	if err != nil {
		slog.Error("error computing time series stats", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to get time series stats")
	}
	return stats, nil
}
