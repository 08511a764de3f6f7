package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"MomentumRotator/internal/broker"
	"MomentumRotator/internal/model"
	"MomentumRotator/internal/scheduler"
	"MomentumRotator/internal/strategy"
)

const (
	defaultHistoryLimit = 500
	maxHistoryLimit     = 10000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	connection := ""
	if d := s.service.Latest(); d != nil {
		connection = d.Connection
		if d.Connection == model.ConnectionDegraded {
			status = "degraded"
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":     status,
		"connection": connection,
		"service":    "momentum-rotator",
	})
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	d := s.service.Latest()
	if d == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no decision yet")
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows := []model.LeaderboardRow{}
	if d := s.service.Latest(); d != nil && d.Leaderboard != nil {
		rows = d.Leaderboard
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Report()
	if err != nil {
		s.log.Error().Err(err).Msg("build report")
		s.writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleEquityHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.parseLimit(w, r)
	if !ok {
		return
	}
	rows, err := s.history.LatestEquity(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("load equity history")
		s.writeError(w, http.StatusInternalServerError, "failed to load equity history")
		return
	}
	if rows == nil {
		rows = []model.EquityPoint{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSwitchHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.parseLimit(w, r)
	if !ok {
		return
	}
	rows, err := s.history.LatestSwitches(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("load switch history")
		s.writeError(w, http.StatusInternalServerError, "failed to load switch history")
		return
	}
	if rows == nil {
		rows = []model.SwitchRecord{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handlePark(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Park(r.Context())
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	if rec == nil {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "already in " + model.CashAsset})
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.ExecuteSwitch(r.Context())
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	asset := strings.TrimSpace(chi.URLParam(r, "asset"))
	list, err := s.service.Blacklist(r.Context(), asset)
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"blacklist": nonNil(list)})
}

func (s *Server) handleUnblacklist(w http.ResponseWriter, r *http.Request) {
	asset := strings.TrimSpace(chi.URLParam(r, "asset"))
	list, err := s.service.Unblacklist(r.Context(), asset)
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"blacklist": nonNil(list)})
}

func (s *Server) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	if n > maxHistoryLimit {
		n = maxHistoryLimit
	}
	return n, true
}

func (s *Server) writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, strategy.ErrNotReady),
		errors.Is(err, strategy.ErrStaleData),
		errors.Is(err, broker.ErrMissingPrice):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, scheduler.ErrStopped):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error().Err(err).Msg("action failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
