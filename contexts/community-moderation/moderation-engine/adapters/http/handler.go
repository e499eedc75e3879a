package httpadapter

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"ceto/contexts/community-moderation/moderation-engine/application/commands"
	"ceto/contexts/community-moderation/moderation-engine/application/queries"
	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	httptransport "ceto/contexts/community-moderation/moderation-engine/transport/http"
)

type Handler struct {
	Suggestions commands.SuggestionUseCase
	Reads       queries.SuggestionQueries
	Records     queries.RecordQueries
	Karma       queries.KarmaQueries
	Logger      *slog.Logger
}

func (h Handler) SubmitSuggestionHandler(
	ctx context.Context,
	authorID string,
	idempotencyKey string,
	req httptransport.SubmitSuggestionRequest,
) (httptransport.SuggestionResponse, error) {
	result, err := h.Suggestions.Submit(ctx, commands.SubmitCommand{
		AuthorID:       authorID,
		IdempotencyKey: idempotencyKey,
		TargetType:     req.TargetType,
		TargetID:       req.TargetID,
		Operation:      req.Operation,
		Payload:        req.Payload,
	})
	if err != nil {
		return httptransport.SuggestionResponse{}, err
	}
	resp := h.mapSuggestion(result.Suggestion)
	resp.Replayed = result.Replayed
	return resp, nil
}

func (h Handler) GetSuggestionHandler(ctx context.Context, suggestionID string) (httptransport.SuggestionDetailResponse, error) {
	detail, err := h.Reads.Get(ctx, suggestionID)
	if err != nil {
		return httptransport.SuggestionDetailResponse{}, err
	}
	return httptransport.SuggestionDetailResponse{
		Suggestion: h.mapSuggestion(detail.Suggestion),
		Counts:     mapCounts(detail.Counts),
		Required:   detail.Required,
	}, nil
}

func (h Handler) EndorseHandler(ctx context.Context, suggestionID string, userID string) (httptransport.SuggestionDetailResponse, error) {
	result, err := h.Suggestions.Endorse(ctx, commands.StanceCommand{SuggestionID: suggestionID, UserID: userID})
	if err != nil {
		return httptransport.SuggestionDetailResponse{}, err
	}
	return h.mapStance(result), nil
}

func (h Handler) ObjectHandler(ctx context.Context, suggestionID string, userID string) (httptransport.SuggestionDetailResponse, error) {
	result, err := h.Suggestions.Object(ctx, commands.StanceCommand{SuggestionID: suggestionID, UserID: userID})
	if err != nil {
		return httptransport.SuggestionDetailResponse{}, err
	}
	return h.mapStance(result), nil
}

func (h Handler) RetractEndorsementHandler(ctx context.Context, suggestionID string, userID string) (httptransport.SuggestionDetailResponse, error) {
	result, err := h.Suggestions.RetractEndorsement(ctx, commands.StanceCommand{SuggestionID: suggestionID, UserID: userID})
	if err != nil {
		return httptransport.SuggestionDetailResponse{}, err
	}
	return h.mapStance(result), nil
}

func (h Handler) WithdrawHandler(ctx context.Context, suggestionID string, userID string) (httptransport.SuggestionResponse, error) {
	suggestion, err := h.Suggestions.Withdraw(ctx, commands.WithdrawCommand{SuggestionID: suggestionID, UserID: userID})
	if err != nil {
		return httptransport.SuggestionResponse{}, err
	}
	return h.mapSuggestion(suggestion), nil
}

func (h Handler) ResolveExpiredHandler(ctx context.Context, now time.Time) (httptransport.ResolveExpiredResponse, error) {
	rejected, err := h.Suggestions.ResolveExpired(ctx, now)
	if err != nil {
		return httptransport.ResolveExpiredResponse{}, err
	}
	return httptransport.ResolveExpiredResponse{Rejected: rejected}, nil
}

func (h Handler) ListTargetSuggestionsHandler(
	ctx context.Context,
	targetType string,
	targetID string,
	status string,
) (httptransport.SuggestionListResponse, error) {
	items, err := h.Reads.ListForTarget(ctx, targetType, targetID, status)
	if err != nil {
		return httptransport.SuggestionListResponse{}, err
	}
	resp := httptransport.SuggestionListResponse{Items: make([]httptransport.SuggestionResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, h.mapSuggestion(item))
	}
	return resp, nil
}

func (h Handler) GetRecordHandler(ctx context.Context, targetType string, recordID string) (httptransport.RecordResponse, error) {
	record, err := h.Records.Get(ctx, targetType, recordID)
	if err != nil {
		return httptransport.RecordResponse{}, err
	}
	return mapRecord(record), nil
}

// ListRecordsHandler takes the raw query values; active defaults to true.
func (h Handler) ListRecordsHandler(
	ctx context.Context,
	targetType string,
	active string,
	limit string,
) (httptransport.RecordListResponse, error) {
	activeOnly := true
	if strings.TrimSpace(active) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(active))
		if err != nil {
			return httptransport.RecordListResponse{}, domainerrors.Field("active", "must be a boolean")
		}
		activeOnly = parsed
	}
	size, err := parseLimit(limit)
	if err != nil {
		return httptransport.RecordListResponse{}, err
	}
	records, err := h.Records.List(ctx, targetType, activeOnly, size)
	if err != nil {
		return httptransport.RecordListResponse{}, err
	}
	return mapRecordList(targetType, records), nil
}

func (h Handler) TastingNotesHandler(ctx context.Context, greenRecordID string, limit string) (httptransport.RecordListResponse, error) {
	size, err := parseLimit(limit)
	if err != nil {
		return httptransport.RecordListResponse{}, err
	}
	notes, err := h.Records.TastingNotes(ctx, greenRecordID, size)
	if err != nil {
		return httptransport.RecordListResponse{}, err
	}
	return mapRecordList(string(entities.TargetTastingNote), notes), nil
}

func (h Handler) RecordHistoryHandler(ctx context.Context, targetType string, recordID string) (httptransport.RecordHistoryResponse, error) {
	changes, err := h.Records.History(ctx, targetType, recordID)
	if err != nil {
		return httptransport.RecordHistoryResponse{}, err
	}
	resp := httptransport.RecordHistoryResponse{
		TargetType: targetType,
		RecordID:   recordID,
		Items:      make([]httptransport.RecordChangeResponse, 0, len(changes)),
	}
	for _, change := range changes {
		resp.Items = append(resp.Items, httptransport.RecordChangeResponse{
			ChangeID:     change.ChangeID,
			SuggestionID: change.SuggestionID,
			Operation:    string(change.Operation),
			Payload:      entities.CloneFields(change.Payload),
			AuthorID:     change.AuthorID,
			Sequence:     change.Sequence,
			AppliedAt:    formatTime(change.AppliedAt),
		})
	}
	return resp, nil
}

func (h Handler) TrustLevelHandler(ctx context.Context, userID string) (httptransport.TrustLevelResponse, error) {
	tier, err := h.Karma.TrustLevel(ctx, userID)
	if err != nil {
		return httptransport.TrustLevelResponse{}, err
	}
	return httptransport.TrustLevelResponse{UserID: userID, Level: string(tier)}, nil
}

func (h Handler) KarmaStatementHandler(ctx context.Context, userID string) (httptransport.KarmaStatementResponse, error) {
	statement, err := h.Karma.Statement(ctx, userID)
	if err != nil {
		return httptransport.KarmaStatementResponse{}, err
	}
	verification, err := h.Karma.Verify(ctx, userID)
	if err != nil {
		return httptransport.KarmaStatementResponse{}, err
	}
	resp := httptransport.KarmaStatementResponse{
		UserID:     statement.UserID,
		Score:      statement.Score,
		TrustLevel: string(statement.Tier),
		Consistent: verification.Consistent(),
		Entries:    make([]httptransport.KarmaEntryResponse, 0, len(statement.Entries)),
	}
	for _, entry := range statement.Entries {
		resp.Entries = append(resp.Entries, httptransport.KarmaEntryResponse{
			EntryID:      entry.EntryID,
			SuggestionID: entry.SuggestionID,
			Reason:       string(entry.Reason),
			Delta:        entry.Delta,
			CreatedAt:    formatTime(entry.CreatedAt),
		})
	}
	return resp, nil
}

func mapRecord(record entities.Record) httptransport.RecordResponse {
	return httptransport.RecordResponse{
		TargetType: string(record.TargetType),
		RecordID:   record.RecordID,
		Version:    record.Version,
		Active:     record.Active,
		Fields:     entities.CloneFields(record.Fields),
		CreatedAt:  formatTime(record.CreatedAt),
		UpdatedAt:  formatTime(record.UpdatedAt),
	}
}

func mapRecordList(targetType string, records []entities.Record) httptransport.RecordListResponse {
	resp := httptransport.RecordListResponse{
		TargetType: targetType,
		Items:      make([]httptransport.RecordResponse, 0, len(records)),
	}
	for _, record := range records {
		resp.Items = append(resp.Items, mapRecord(record))
	}
	return resp
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domainerrors.Field("limit", "must be an integer")
	}
	return limit, nil
}

func (h Handler) mapStance(result commands.StanceResult) httptransport.SuggestionDetailResponse {
	return httptransport.SuggestionDetailResponse{
		Suggestion: h.mapSuggestion(result.Suggestion),
		Counts:     mapCounts(result.Counts),
		Required:   result.Required,
	}
}

func (h Handler) mapSuggestion(item entities.Suggestion) httptransport.SuggestionResponse {
	resp := httptransport.SuggestionResponse{
		SuggestionID: item.SuggestionID,
		TargetType:   string(item.TargetType),
		TargetID:     item.TargetID,
		Operation:    string(item.Operation),
		Payload:      entities.CloneFields(item.Payload),
		AuthorID:     item.AuthorID,
		Status:       string(item.Status),
		Resolution:   string(item.Resolution),
		Version:      item.Version,
		CreatedAt:    formatTime(item.CreatedAt),
		ExpiresAt:    formatTime(item.ExpiresAt(h.Suggestions.ResolveSuggestionTTL())),
	}
	if item.ResolvedAt != nil {
		resp.ResolvedAt = formatTime(*item.ResolvedAt)
	}
	return resp
}

func mapCounts(counts entities.StanceCounts) httptransport.StanceCounts {
	return httptransport.StanceCounts{Support: counts.Support, Oppose: counts.Oppose}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
