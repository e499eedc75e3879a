package http

type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Status    string    `json:"status"`
	Error     ErrorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
}

type SubmitSuggestionRequest struct {
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id,omitempty"`
	Operation  string         `json:"operation"`
	Payload    map[string]any `json:"payload"`
}

type SuggestionResponse struct {
	SuggestionID string         `json:"suggestion_id"`
	TargetType   string         `json:"target_type"`
	TargetID     string         `json:"target_id"`
	Operation    string         `json:"operation"`
	Payload      map[string]any `json:"payload"`
	AuthorID     string         `json:"author_id"`
	Status       string         `json:"status"`
	Resolution   string         `json:"resolution,omitempty"`
	Version      int64          `json:"version"`
	CreatedAt    string         `json:"created_at"`
	ExpiresAt    string         `json:"expires_at"`
	ResolvedAt   string         `json:"resolved_at,omitempty"`
	Replayed     bool           `json:"replayed,omitempty"`
}

type StanceCounts struct {
	Support int `json:"support"`
	Oppose  int `json:"oppose"`
}

// SuggestionDetailResponse is the audit view: the suggestion plus its live
// stance counts and the threshold it must reach.
type SuggestionDetailResponse struct {
	Suggestion SuggestionResponse `json:"suggestion"`
	Counts     StanceCounts       `json:"counts"`
	Required   int                `json:"required_endorsements"`
}

type SuggestionListResponse struct {
	Items []SuggestionResponse `json:"items"`
}

type RecordResponse struct {
	TargetType string         `json:"target_type"`
	RecordID   string         `json:"record_id"`
	Version    int64          `json:"version"`
	Active     bool           `json:"active"`
	Fields     map[string]any `json:"fields"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

type RecordListResponse struct {
	TargetType string           `json:"target_type"`
	Items      []RecordResponse `json:"items"`
}

type RecordChangeResponse struct {
	ChangeID     string         `json:"change_id"`
	SuggestionID string         `json:"suggestion_id"`
	Operation    string         `json:"operation"`
	Payload      map[string]any `json:"payload"`
	AuthorID     string         `json:"author_id"`
	Sequence     int64          `json:"sequence"`
	AppliedAt    string         `json:"applied_at"`
}

type RecordHistoryResponse struct {
	TargetType string                 `json:"target_type"`
	RecordID   string                 `json:"record_id"`
	Items      []RecordChangeResponse `json:"items"`
}

type TrustLevelResponse struct {
	UserID string `json:"user_id"`
	Level  string `json:"trust_level"`
}

type KarmaEntryResponse struct {
	EntryID      string `json:"entry_id"`
	SuggestionID string `json:"suggestion_id"`
	Reason       string `json:"reason"`
	Delta        int64  `json:"delta"`
	CreatedAt    string `json:"created_at"`
}

type KarmaStatementResponse struct {
	UserID     string               `json:"user_id"`
	Score      int64                `json:"score"`
	TrustLevel string               `json:"trust_level"`
	Consistent bool                 `json:"consistent"`
	Entries    []KarmaEntryResponse `json:"entries"`
}

type ResolveExpiredResponse struct {
	Rejected int `json:"rejected"`
}
