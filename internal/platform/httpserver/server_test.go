package httpserver

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	moderationengine "ceto/contexts/community-moderation/moderation-engine"
	moderationhttp "ceto/contexts/community-moderation/moderation-engine/transport/http"
	"ceto/contexts/community-moderation/moderation-engine/domain/policy"
)

func newTestServer() *Server {
	moderationPolicy := moderationengine.DefaultPolicy()
	moderationPolicy.Threshold = policy.FixedThreshold{Endorsements: 2}
	module := moderationengine.NewInMemoryModule(moderationPolicy, slog.Default())
	return New(module, slog.Default(), ":0")
}

func doRequest(server *Server, method string, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func asUser(userID string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer token-" + userID,
		"X-User-Id":     userID,
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) moderationhttp.ErrorEnvelope {
	t.Helper()
	var envelope moderationhttp.ErrorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope failed: %v", err)
	}
	return envelope
}

func submitRecord(t *testing.T, server *Server, headers map[string]string) moderationhttp.SuggestionResponse {
	t.Helper()
	rr := doRequest(server, http.MethodPost, "/v1/suggestions", moderationhttp.SubmitSuggestionRequest{
		TargetType: "green_record",
		Operation:  "create",
		Payload: map[string]any{
			"name":     "Kochere",
			"importer": "Sweet Maria's",
			"country":  "Ethiopia",
		},
	}, headers)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp moderationhttp.SuggestionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode submit response failed: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	rr := doRequest(newTestServer(), http.MethodGet, "/healthz", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestSubmitRequiresBearerAndUser(t *testing.T) {
	server := newTestServer()
	rr := doRequest(server, http.MethodPost, "/v1/suggestions", map[string]any{}, map[string]string{"X-User-Id": "alice"})
	if rr.Code != http.StatusUnauthorized || decodeError(t, rr).Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodPost, "/v1/suggestions", map[string]any{}, map[string]string{"Authorization": "Bearer x"})
	if rr.Code != http.StatusUnauthorized || decodeError(t, rr).Error.Code != "USER_REQUIRED" {
		t.Fatalf("expected USER_REQUIRED, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSubmitEndorseAcceptFlow(t *testing.T) {
	server := newTestServer()
	submitted := submitRecord(t, server, asUser("alice"))
	if submitted.Status != "pending" || submitted.ExpiresAt == "" {
		t.Fatalf("unexpected submit response: %+v", submitted)
	}

	rr := doRequest(server, http.MethodPost, "/v1/suggestions/"+submitted.SuggestionID+"/endorsements", nil, asUser("alice"))
	if rr.Code != http.StatusForbidden || decodeError(t, rr).Error.Code != "SELF_ENDORSEMENT" {
		t.Fatalf("expected SELF_ENDORSEMENT, got %d body=%s", rr.Code, rr.Body.String())
	}

	for _, user := range []string{"bob", "carol"} {
		rr = doRequest(server, http.MethodPost, "/v1/suggestions/"+submitted.SuggestionID+"/endorsements", nil, asUser(user))
		if rr.Code != http.StatusOK {
			t.Fatalf("endorse by %s: expected 200, got %d body=%s", user, rr.Code, rr.Body.String())
		}
	}
	var detail moderationhttp.SuggestionDetailResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode endorse response failed: %v", err)
	}
	if detail.Suggestion.Status != "accepted" || detail.Counts.Support != 2 {
		t.Fatalf("unexpected endorse response: %+v", detail)
	}

	rr = doRequest(server, http.MethodGet, "/v1/records/green_record/"+submitted.TargetID, nil, asUser("dave"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected record 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodGet, "/v1/records/green_record/"+submitted.TargetID+"/history", nil, asUser("dave"))
	var history moderationhttp.RecordHistoryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &history); err != nil || len(history.Items) != 1 {
		t.Fatalf("expected one history entry, got %s", rr.Body.String())
	}

	rr = doRequest(server, http.MethodGet, "/v1/users/alice/trust", nil, asUser("dave"))
	var trust moderationhttp.TrustLevelResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &trust); err != nil {
		t.Fatalf("decode trust response failed: %v", err)
	}
	if trust.Level != "contributor" {
		t.Fatalf("expected contributor, got %q", trust.Level)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("score")) {
		t.Fatalf("trust response must not expose the score: %s", rr.Body.String())
	}

	rr = doRequest(server, http.MethodPost, "/v1/suggestions/"+submitted.SuggestionID+"/withdraw", nil, asUser("alice"))
	if rr.Code != http.StatusConflict || decodeError(t, rr).Error.Code != "INVALID_STATE" {
		t.Fatalf("expected INVALID_STATE, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSubmitReplayAndValidation(t *testing.T) {
	server := newTestServer()
	headers := asUser("alice")
	headers["Idempotency-Key"] = "idem-1"
	first := submitRecord(t, server, headers)

	rr := doRequest(server, http.MethodPost, "/v1/suggestions", moderationhttp.SubmitSuggestionRequest{
		TargetType: "green_record",
		Operation:  "create",
		Payload:    map[string]any{"name": "Kochere", "importer": "Sweet Maria's", "country": "Ethiopia"},
	}, headers)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected replay 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var replayed moderationhttp.SuggestionResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &replayed)
	if !replayed.Replayed || replayed.SuggestionID != first.SuggestionID {
		t.Fatalf("unexpected replay response: %+v", replayed)
	}

	rr = doRequest(server, http.MethodPost, "/v1/suggestions", moderationhttp.SubmitSuggestionRequest{
		TargetType: "green_record",
		Operation:  "create",
		Payload:    map[string]any{"name": "Kochere", "importer": "Sweet Maria's"},
	}, asUser("bob"))
	envelope := decodeError(t, rr)
	if rr.Code != http.StatusBadRequest || envelope.Error.Code != "VALIDATION_FAILED" || envelope.Error.Details["field"] != "country" {
		t.Fatalf("expected country validation failure, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodPost, "/v1/suggestions", map[string]any{"target_type": "green_record", "bogus": true}, asUser("bob"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown json field, got %d", rr.Code)
	}
}

func TestNotFoundAndAdminRoutes(t *testing.T) {
	server := newTestServer()
	rr := doRequest(server, http.MethodGet, "/v1/suggestions/missing", nil, asUser("alice"))
	if rr.Code != http.StatusNotFound || decodeError(t, rr).Error.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(server, http.MethodGet, "/internal/v1/users/alice/karma", nil, asUser("alice"))
	if rr.Code != http.StatusForbidden || decodeError(t, rr).Error.Code != "PERMISSION_DENIED" {
		t.Fatalf("expected PERMISSION_DENIED, got %d body=%s", rr.Code, rr.Body.String())
	}

	admin := asUser("ops")
	admin["X-User-Role"] = "admin"
	rr = doRequest(server, http.MethodGet, "/internal/v1/users/alice/karma", nil, admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected karma 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var statement moderationhttp.KarmaStatementResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &statement); err != nil {
		t.Fatalf("decode karma response failed: %v", err)
	}
	if statement.Score != 0 || !statement.Consistent || statement.TrustLevel != "newcomer" {
		t.Fatalf("unexpected statement: %+v", statement)
	}

	rr = doRequest(server, http.MethodPost, "/internal/v1/suggestions/expire", nil, admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected expire 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestTargetSuggestionsList(t *testing.T) {
	server := newTestServer()
	rr := doRequest(server, http.MethodGet, "/v1/records/green_record/rec-1/suggestions", nil, asUser("alice"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodGet, "/v1/records/roast/rec-1/suggestions", nil, asUser("alice"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown target type, got %d", rr.Code)
	}
}

func acceptSuggestion(t *testing.T, server *Server, suggestionID string, users ...string) {
	t.Helper()
	for _, user := range users {
		rr := doRequest(server, http.MethodPost, "/v1/suggestions/"+suggestionID+"/endorsements", nil, asUser(user))
		if rr.Code != http.StatusOK {
			t.Fatalf("endorse by %s: expected 200, got %d body=%s", user, rr.Code, rr.Body.String())
		}
	}
}

func TestRecordListingRoutes(t *testing.T) {
	server := newTestServer()
	green := submitRecord(t, server, asUser("alice"))
	acceptSuggestion(t, server, green.SuggestionID, "bob", "carol")

	rr := doRequest(server, http.MethodPost, "/v1/suggestions", moderationhttp.SubmitSuggestionRequest{
		TargetType: "tasting_note",
		Operation:  "create",
		Payload:    map[string]any{"green_record_id": green.TargetID, "notes": "bergamot, honey"},
	}, asUser("dave"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected tasting note submit 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var note moderationhttp.SuggestionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &note); err != nil {
		t.Fatalf("decode tasting note response failed: %v", err)
	}
	acceptSuggestion(t, server, note.SuggestionID, "bob", "carol")

	rr = doRequest(server, http.MethodGet, "/v1/records/green_record", nil, asUser("erin"))
	var greens moderationhttp.RecordListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &greens); err != nil || rr.Code != http.StatusOK {
		t.Fatalf("expected record list, got %d body=%s", rr.Code, rr.Body.String())
	}
	if len(greens.Items) != 1 || greens.Items[0].RecordID != green.TargetID {
		t.Fatalf("unexpected green list: %+v", greens)
	}

	rr = doRequest(server, http.MethodGet, "/v1/records/green_record/"+green.TargetID+"/tasting_notes", nil, asUser("erin"))
	var notes moderationhttp.RecordListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &notes); err != nil || rr.Code != http.StatusOK {
		t.Fatalf("expected tasting notes, got %d body=%s", rr.Code, rr.Body.String())
	}
	if len(notes.Items) != 1 || notes.Items[0].RecordID != note.TargetID || notes.Items[0].Fields["notes"] != "bergamot, honey" {
		t.Fatalf("unexpected tasting notes: %+v", notes)
	}

	rr = doRequest(server, http.MethodGet, "/v1/records/green_record?limit=abc", nil, asUser("erin"))
	if rr.Code != http.StatusBadRequest || decodeError(t, rr).Error.Details["field"] != "limit" {
		t.Fatalf("expected limit validation failure, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(server, http.MethodGet, "/v1/records/green_record/missing/tasting_notes", nil, asUser("erin"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing green record, got %d", rr.Code)
	}
}
