// Package server exposes the control API consumed by the dashboard:
// configuration, tracked-item membership, scheduler lifecycle, history,
// on-demand checks and the webhook test.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/tracker"
	logx "pricewatch/pkg/logx"
)

type Server struct {
	log logx.Logger
	tr  *tracker.Tracker

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

func New(tr *tracker.Tracker, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{log: log, tr: tr}
}

// Start binds the listener and serves in the background. Returns the bind
// error directly: a control API that cannot listen is a startup failure.
func (s *Server) Start(cfg config.ServerConfig) error {
	readTO, _ := config.ParseDurationOrDefault("server.read_timeout", cfg.ReadTimeout, 10*time.Second)
	writeTO, _ := config.ParseDurationOrDefault("server.write_timeout", cfg.WriteTimeout, 30*time.Second)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return nil
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  readTO,
		WriteTimeout: writeTO,
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}

	s.srv = srv
	s.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("control api server error", logx.String("addr", cfg.Addr), logx.Err(err))
		}
	}()
	s.log.Info("control api listening", logx.String("addr", ln.Addr().String()))
	return nil
}

// Addr reports the bound address ("" before Start), useful in tests with
// an ephemeral port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		_ = srv.Close()
	}
}
