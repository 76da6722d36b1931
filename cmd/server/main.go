// Package main runs the token registry service:
// - Listing stores (PostgreSQL or in-memory) and their change signals
// - Refresh orchestrator rebuilding every chain's token table
// - HTTP endpoints for health, metrics, status and token lookups
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"token-registry/internal/app"
	"token-registry/internal/chain"
	"token-registry/internal/config"
	"token-registry/internal/domain"
	"token-registry/internal/logging"
	"token-registry/internal/observability"
	"token-registry/internal/refresh"
	"token-registry/internal/registry"
)

// Server exposes a running App over HTTP.
type Server struct {
	registry     *registry.Registry
	orchestrator *refresh.Orchestrator
	started      time.Time
	logger       log.Logger
}

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	cfg, err := config.Parse(os.Args[0], os.Args[1:])
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	logger = log.With(logger, "service", "token-registry")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		level.Error(logger).Log("msg", "failed to start", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	level.Info(logger).Log("msg", "tracking chains", "chains", len(cfg.Chains), "memory", cfg.UseMemory)

	server := &Server{
		registry:     a.Registry,
		orchestrator: a.Orchestrator,
		started:      time.Now(),
		logger:       logger,
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		level.Info(logger).Log("msg", "initiating graceful shutdown", "signal", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			level.Warn(logger).Log("msg", "forcing immediate shutdown", "signal", sig)
			os.Exit(1)
		case <-time.After(cfg.ShutdownGrace):
			level.Warn(logger).Log("msg", "graceful shutdown timed out, forcing exit", "grace", cfg.ShutdownGrace)
			os.Exit(1)
		case <-done:
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		level.Info(logger).Log("msg", "starting HTTP server", "addr", cfg.MetricsAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "HTTP server error", "err", err)
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	if err := a.Seed(ctx); err != nil {
		level.Error(logger).Log("msg", "seeding failed", "err", err)
		cancel()
	}

	err = <-runErr
	close(done)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	if err != nil && err != context.Canceled {
		level.Error(logger).Log("msg", "server error", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "shutdown complete")
}

// routes builds the HTTP handler for health, metrics, status and lookups.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Ready once every tracked chain has a published table
	mux.HandleFunc("/ready", s.handleReady)

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/tokens", s.handleTokens)

	return mux
}

// ChainStatus is the per-chain part of StatusResponse.
type ChainStatus struct {
	Name      string `json:"name"`
	NetworkID uint64 `json:"network_id"`
	Published bool   `json:"published"`
	Tokens    int    `json:"tokens"`
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status    string                         `json:"status"`
	Uptime    string                         `json:"uptime"`
	State     refresh.State                  `json:"state"`
	LastCycle *refresh.CycleResult           `json:"last_cycle,omitempty"`
	Chains    map[domain.ChainID]ChainStatus `json:"chains"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.registry.Snapshot()

	chains := make(map[domain.ChainID]ChainStatus, len(s.registry.Chains()))
	for _, id := range s.registry.Chains() {
		st := ChainStatus{}
		if c, err := chain.Get(id); err == nil {
			st.Name = c.Name
			st.NetworkID = c.NetworkID
		}
		if t, ok := snapshot[id]; ok {
			st.Published = true
			st.Tokens = t.Len()
		}
		chains[id] = st
	}

	resp := StatusResponse{
		Status:    "running",
		Uptime:    time.Since(s.started).String(),
		State:     s.orchestrator.State(),
		LastCycle: s.orchestrator.LastCycle(),
		Chains:    chains,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	var pending []domain.ChainID
	for _, id := range s.registry.Chains() {
		if !s.registry.Published(id) {
			pending = append(pending, id)
		}
	}
	if len(pending) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "pending": pending})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

// handleTokens serves /tokens?chain=<chain>[&id=<id>|&address=<address>].
// Without id or address it returns the chain's full table.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := chain.Parse(q.Get("chain"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if !s.registry.Published(id) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": registry.ErrNotConfigured.Error()})
		return
	}

	var (
		tok domain.Token
		ok  bool
	)
	switch {
	case q.Get("id") != "":
		tok, ok = s.registry.TokenByID(id, q.Get("id"))
	case q.Get("address") != "":
		tok, ok = s.registry.TokenByAddress(id, q.Get("address"))
	default:
		writeJSON(w, http.StatusOK, s.registry.Snapshot()[id])
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "token not found"})
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
