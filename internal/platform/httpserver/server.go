package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	moderationengine "ceto/contexts/community-moderation/moderation-engine"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "ceto/internal/platform/httpserver/docs"
)

const maxBodyBytes = 1 << 20

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	moderation moderationengine.Module
	httpServer *http.Server
}

func New(
	moderation moderationengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		moderation: moderation,
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks until the listener fails or Shutdown is called; the latter
// returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /v1/suggestions", s.handleSubmitSuggestion)
	s.mux.HandleFunc("GET /v1/suggestions/{suggestion_id}", s.handleGetSuggestion)
	s.mux.HandleFunc("POST /v1/suggestions/{suggestion_id}/endorsements", s.handleEndorse)
	s.mux.HandleFunc("DELETE /v1/suggestions/{suggestion_id}/endorsements", s.handleRetractEndorsement)
	s.mux.HandleFunc("POST /v1/suggestions/{suggestion_id}/objections", s.handleObject)
	s.mux.HandleFunc("POST /v1/suggestions/{suggestion_id}/withdraw", s.handleWithdraw)

	s.mux.HandleFunc("GET /v1/records/{target_type}", s.handleListRecords)
	s.mux.HandleFunc("GET /v1/records/{target_type}/{record_id}", s.handleGetRecord)
	s.mux.HandleFunc("GET /v1/records/{target_type}/{record_id}/history", s.handleRecordHistory)
	s.mux.HandleFunc("GET /v1/records/{target_type}/{record_id}/suggestions", s.handleTargetSuggestions)
	s.mux.HandleFunc("GET /v1/records/green_record/{record_id}/tasting_notes", s.handleTastingNotes)
	s.mux.HandleFunc("GET /v1/users/{user_id}/trust", s.handleTrustLevel)

	s.mux.HandleFunc("GET /internal/v1/users/{user_id}/karma", s.handleKarmaStatement)
	s.mux.HandleFunc("POST /internal/v1/suggestions/expire", s.handleResolveExpired)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeJSON(
	w http.ResponseWriter,
	r *http.Request,
	dst any,
	writeError func(w http.ResponseWriter, status int, code string, message string),
) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.logger.Warn("request body rejected",
			"event", "http_request_body_rejected",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathValue(r *http.Request, name string) string {
	return strings.TrimSpace(r.PathValue(name))
}
