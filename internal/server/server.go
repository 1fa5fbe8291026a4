package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/walletlink/internal/core/domain"
	"github.com/vietddude/walletlink/internal/infra/storage"
	"github.com/vietddude/walletlink/internal/session"
)

// Status is the aggregated health of the service.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// SessionView is the JSON form of a session snapshot. The capability handle
// stays with the host and is never serialized.
type SessionView struct {
	Status          domain.SessionStatus `json:"status"`
	Description     string               `json:"description"`
	Connected       bool                 `json:"connected"`
	Provider        string               `json:"provider,omitempty"`
	StakeAddress    string               `json:"stake_address,omitempty"`
	HasStakeAddress bool                 `json:"has_stake_address"`
	LastError       string               `json:"last_error,omitempty"`
	PendingProvider string               `json:"pending_provider,omitempty"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// NewSessionView converts a snapshot.
func NewSessionView(s domain.Session) SessionView {
	return SessionView{
		Status:          s.Status,
		Description:     session.StateDescription(s.Status),
		Connected:       s.IsConnected(),
		Provider:        s.ProviderName,
		StakeAddress:    s.StakeAddress,
		HasStakeAddress: s.HasStakeAddress,
		LastError:       s.LastError,
		PendingProvider: s.PendingProvider,
		UpdatedAt:       s.UpdatedAt,
	}
}

// ProviderView is a selector offer with its audit log counts.
type ProviderView struct {
	session.ProviderOffer
	Connected int `json:"connected"`
	Failed    int `json:"failed"`
}

// ProviderViews joins offers with attempt counts. A nil repository leaves the
// counts at zero.
func ProviderViews(
	ctx context.Context,
	offers []session.ProviderOffer,
	attempts storage.AttemptRepository,
) ([]ProviderView, error) {
	views := make([]ProviderView, 0, len(offers))
	for _, offer := range offers {
		view := ProviderView{ProviderOffer: offer}
		if attempts != nil {
			var err error
			if view.Connected, err = attempts.CountByOutcome(ctx, offer.Name, domain.AttemptConnected); err != nil {
				return nil, err
			}
			if view.Failed, err = attempts.CountByOutcome(ctx, offer.Name, domain.AttemptFailed); err != nil {
				return nil, err
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Server provides HTTP endpoints for the session and health monitoring.
type Server struct {
	manager  *session.Manager
	attempts storage.AttemptRepository
	checks   map[string]Check
	server  *http.Server
	handler http.Handler
}

// NewServer creates a new HTTP server.
func NewServer(
	manager *session.Manager,
	attempts storage.AttemptRepository,
	port int,
	checks map[string]Check,
) *Server {
	mux := http.NewServeMux()
	s := &Server{
		manager:  manager,
		attempts: attempts,
		checks:   checks,
		handler:  mux,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /session", s.handleSession)
	mux.HandleFunc("GET /session/history", s.handleHistory)
	mux.HandleFunc("GET /providers", s.handleProviders)
	mux.HandleFunc("POST /session/open", s.handleOpen)
	mux.HandleFunc("POST /session/close", s.handleClose)
	mux.HandleFunc("POST /session/select", s.handleSelect)
	mux.HandleFunc("POST /session/disconnect", s.handleDisconnect)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := StatusHealthy
	details := make(map[string]string, len(s.checks))

	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := check(ctx)
		cancel()
		if err != nil {
			status = StatusDegraded
			details[name] = err.Error()
			continue
		}
		details[name] = "ok"
	}

	state := s.manager.State().Status
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        status,
		"session":       state,
		"session_state": session.StateDescription(state),
		"checks":        details,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewSessionView(s.manager.State()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.History())
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	views, err := ProviderViews(r.Context(), s.manager.Offers(), s.attempts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.OpenSelector(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSessionView(s.manager.State()))
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.CloseSelector(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSessionView(s.manager.State()))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Provider == "" {
		writeError(w, http.StatusBadRequest, errors.New("provider is required"))
		return
	}

	out, err := s.manager.SelectProvider(r.Context(), req.Provider)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}

	code := http.StatusOK
	if !out.Connected() {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, map[string]any{
		"attempt_id": out.AttemptID,
		"category":   out.Category,
		"session":    NewSessionView(s.manager.State()),
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.manager.Disconnect()
	writeJSON(w, http.StatusOK, NewSessionView(s.manager.State()))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
