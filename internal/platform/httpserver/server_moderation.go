package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	moderationerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	moderationhttp "ceto/contexts/community-moderation/moderation-engine/transport/http"
)

func writeModerationError(w http.ResponseWriter, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, moderationhttp.ErrorEnvelope{
		Status: "error",
		Error: moderationhttp.ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeModerationDomainError(w http.ResponseWriter, err error) {
	var fieldErr *moderationerrors.FieldError
	switch {
	case errors.As(err, &fieldErr):
		writeModerationError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), map[string]any{
			"field":  fieldErr.Field,
			"reason": fieldErr.Reason,
		})
	case errors.Is(err, moderationerrors.ErrValidation):
		writeModerationError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
	case errors.Is(err, moderationerrors.ErrNotFound):
		writeModerationError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, moderationerrors.ErrSelfEndorsement):
		writeModerationError(w, http.StatusForbidden, "SELF_ENDORSEMENT", err.Error(), nil)
	case errors.Is(err, moderationerrors.ErrForbidden):
		writeModerationError(w, http.StatusForbidden, "PERMISSION_DENIED", err.Error(), nil)
	case errors.Is(err, moderationerrors.ErrInvalidState):
		writeModerationError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	case errors.Is(err, moderationerrors.ErrRecordConflict):
		writeModerationError(w, http.StatusConflict, "RECORD_CONFLICT", err.Error(), nil)
	case errors.Is(err, moderationerrors.ErrDuplicate):
		writeModerationError(w, http.StatusConflict, "DUPLICATE", err.Error(), nil)
	case errors.Is(err, moderationerrors.ErrIdempotencyConflict):
		writeModerationError(w, http.StatusConflict, "IDEMPOTENCY_CONFLICT", err.Error(), nil)
	case errors.Is(err, moderationerrors.ErrDependencyUnavailable):
		writeModerationError(w, http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", err.Error(), nil)
	default:
		writeModerationError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
	}
}

func writeModerationDecodeError(w http.ResponseWriter, status int, code string, message string) {
	writeModerationError(w, status, strings.ToUpper(code), message, nil)
}

func requireModerationAuthorization(w http.ResponseWriter, r *http.Request) bool {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		writeModerationError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization bearer token is required", nil)
		return false
	}
	return true
}

func requireModerationUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeModerationError(w, http.StatusUnauthorized, "USER_REQUIRED", "X-User-Id header is required", nil)
		return "", false
	}
	return userID, true
}

func requireModerationAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !strings.EqualFold(strings.TrimSpace(r.Header.Get("X-User-Role")), "admin") {
		writeModerationDomainError(w, moderationerrors.ErrPrivilegedAccessNeeded)
		return false
	}
	return true
}

func (s *Server) handleSubmitSuggestion(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	authorID, ok := requireModerationUser(w, r)
	if !ok {
		return
	}
	var req moderationhttp.SubmitSuggestionRequest
	if !s.decodeJSON(w, r, &req, writeModerationDecodeError) {
		return
	}
	resp, err := s.moderation.Handler.SubmitSuggestionHandler(
		r.Context(),
		authorID,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleGetSuggestion(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	resp, err := s.moderation.Handler.GetSuggestionHandler(r.Context(), pathValue(r, "suggestion_id"))
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndorse(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	userID, ok := requireModerationUser(w, r)
	if !ok {
		return
	}
	resp, err := s.moderation.Handler.EndorseHandler(r.Context(), pathValue(r, "suggestion_id"), userID)
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	userID, ok := requireModerationUser(w, r)
	if !ok {
		return
	}
	resp, err := s.moderation.Handler.ObjectHandler(r.Context(), pathValue(r, "suggestion_id"), userID)
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetractEndorsement(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	userID, ok := requireModerationUser(w, r)
	if !ok {
		return
	}
	resp, err := s.moderation.Handler.RetractEndorsementHandler(r.Context(), pathValue(r, "suggestion_id"), userID)
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	userID, ok := requireModerationUser(w, r)
	if !ok {
		return
	}
	resp, err := s.moderation.Handler.WithdrawHandler(r.Context(), pathValue(r, "suggestion_id"), userID)
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	resp, err := s.moderation.Handler.GetRecordHandler(r.Context(), pathValue(r, "target_type"), pathValue(r, "record_id"))
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	query := r.URL.Query()
	resp, err := s.moderation.Handler.ListRecordsHandler(r.Context(), pathValue(r, "target_type"), query.Get("active"), query.Get("limit"))
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTastingNotes(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	resp, err := s.moderation.Handler.TastingNotesHandler(r.Context(), pathValue(r, "record_id"), r.URL.Query().Get("limit"))
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordHistory(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	resp, err := s.moderation.Handler.RecordHistoryHandler(r.Context(), pathValue(r, "target_type"), pathValue(r, "record_id"))
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTargetSuggestions(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	resp, err := s.moderation.Handler.ListTargetSuggestionsHandler(
		r.Context(),
		pathValue(r, "target_type"),
		pathValue(r, "record_id"),
		r.URL.Query().Get("status"),
	)
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrustLevel(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) {
		return
	}
	resp, err := s.moderation.Handler.TrustLevelHandler(r.Context(), pathValue(r, "user_id"))
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleKarmaStatement(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) || !requireModerationAdmin(w, r) {
		return
	}
	resp, err := s.moderation.Handler.KarmaStatementHandler(r.Context(), pathValue(r, "user_id"))
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolveExpired(w http.ResponseWriter, r *http.Request) {
	if !requireModerationAuthorization(w, r) || !requireModerationAdmin(w, r) {
		return
	}
	resp, err := s.moderation.Handler.ResolveExpiredHandler(r.Context(), time.Now().UTC())
	if err != nil {
		writeModerationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
