// Package gateway exposes the chat orchestrator and the tenant
// management surface over HTTP.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/lapakbot/lapak/internal/store"
	"github.com/lapakbot/lapak/pkg/chat"
)

// licenseHeader identifies the tenant on every request. Key issuance
// and verification live outside this service.
const licenseHeader = "X-License-Key"

// Server is the HTTP gateway.
type Server struct {
	host         string
	port         int
	server       *http.Server
	store        *store.Store
	orchestrator *chat.Orchestrator
	logger       zerolog.Logger
}

// Config holds gateway configuration.
type Config struct {
	Host         string
	Port         int
	Store        *store.Store
	Orchestrator *chat.Orchestrator
	Logger       zerolog.Logger
}

// NewServer creates a gateway server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	return &Server{
		host:         cfg.Host,
		port:         cfg.Port,
		store:        cfg.Store,
		orchestrator: cfg.Orchestrator,
		logger:       cfg.Logger,
	}, nil
}

// Handler builds the route table. Exposed separately so tests can drive
// the gateway through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("POST /v1/chat", s.withLicense(s.handleChat))

	mux.HandleFunc("GET /v1/sessions", s.withLicense(s.handleListSessions))
	mux.HandleFunc("GET /v1/sessions/{id}/messages", s.withLicense(s.handleSessionMessages))

	mux.HandleFunc("POST /v1/agents", s.withLicense(s.handleCreateAgent))
	mux.HandleFunc("GET /v1/agents", s.withLicense(s.handleListAgents))
	mux.HandleFunc("PUT /v1/agents/{id}", s.withLicense(s.handleUpdateAgent))
	mux.HandleFunc("DELETE /v1/agents/{id}", s.withLicense(s.handleDeleteAgent))
	mux.HandleFunc("POST /v1/agents/{id}/activate", s.withLicense(s.handleActivateAgent))

	mux.HandleFunc("POST /v1/products", s.withLicense(s.handleCreateProduct))
	mux.HandleFunc("GET /v1/products", s.withLicense(s.handleListProducts))
	mux.HandleFunc("PUT /v1/products/{id}", s.withLicense(s.handleUpdateProduct))
	mux.HandleFunc("DELETE /v1/products/{id}", s.withLicense(s.handleDeleteProduct))

	mux.HandleFunc("GET /v1/orders", s.withLicense(s.handleListOrders))

	return mux
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting gateway")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Stop gracefully shuts the gateway down.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown gateway: %w", err)
	}

	s.logger.Info().Msg("Gateway stopped")
	return nil
}

type licenseHandler func(w http.ResponseWriter, r *http.Request, licenseID string)

func (s *Server) withLicense(next licenseHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		licenseID := r.Header.Get(licenseHeader)
		if licenseID == "" {
			writeError(w, http.StatusUnauthorized, "missing license key")
			return
		}
		next(w, r, licenseID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
