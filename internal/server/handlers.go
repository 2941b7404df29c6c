package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/advertile/campwatch/internal/utils"
)

type statusResponse struct {
	ScheduleMode     string `json:"schedule_mode"`
	IntervalMinutes  int    `json:"interval_minutes"`
	RunAtHHMM        string `json:"run_at_hhmm"`
	DaysLookback     int    `json:"days_lookback"`
	DateFrom         string `json:"date_from,omitempty"`
	DateTo           string `json:"date_to,omitempty"`
	LastRunEpoch     int64  `json:"last_run_epoch,omitempty"`
	LastRunLocalDate string `json:"last_run_local_date,omitempty"`
	CheckRunning     bool   `json:"check_running"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.loadConfig()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(statusResponse{
		ScheduleMode:     cfg.ScheduleMode,
		IntervalMinutes:  cfg.IntervalMinutes,
		RunAtHHMM:        cfg.RunAtHHMM,
		DaysLookback:     cfg.DaysLookback,
		DateFrom:         cfg.DateFrom,
		DateTo:           cfg.DateTo,
		LastRunEpoch:     cfg.LastRunEpoch,
		LastRunLocalDate: cfg.LastRunLocalDate,
		CheckRunning:     s.Latch.Busy(),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	doc, err := s.History.Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	limit := len(doc.Runs)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < limit {
			limit = n
		}
	}
	doc.Runs = doc.Runs[:limit]
	json.NewEncoder(w).Encode(doc)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !s.Latch.TryAcquire() {
		http.Error(w, utils.ErrCheckAlreadyRunning.Error(), http.StatusConflict)
		return
	}
	defer s.Latch.Release()

	rec, err := s.Trigger()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(rec)
}
