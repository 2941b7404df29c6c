// Package server exposes the small status API of the watch daemon.
package server

import (
	"net/http"

	"github.com/advertile/campwatch/internal/utils"
	"github.com/advertile/campwatch/pkg/history"
	"github.com/advertile/campwatch/pkg/schedule"
)

type Server struct {
	History    *history.Store
	ConfigPath string
	Latch      *utils.RunLatch

	// Trigger runs one check pass and records it. The server holds the latch
	// around the call.
	Trigger func() (history.Record, error)

	Username string
	Password string
}

func New(hist *history.Store, configPath string, latch *utils.RunLatch, trigger func() (history.Record, error), user, pass string) *Server {
	return &Server{
		History:    hist,
		ConfigPath: configPath,
		Latch:      latch,
		Trigger:    trigger,
		Username:   user,
		Password:   pass,
	}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.basicAuth(s.handleStatus))
	mux.HandleFunc("GET /api/runs", s.basicAuth(s.handleRuns))
	mux.HandleFunc("POST /api/check", s.basicAuth(s.handleCheck))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	utils.Log.WithField("addr", addr).Info("status API listening")
	return http.ListenAndServe(addr, mux)
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// loadConfig reads the scheduler config for status reporting.
func (s *Server) loadConfig() (schedule.Config, error) {
	return schedule.Load(s.ConfigPath)
}
