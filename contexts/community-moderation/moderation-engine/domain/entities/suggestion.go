package entities

import (
	"strings"
	"time"

	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
)

type TargetType string

const (
	TargetGreenRecord TargetType = "green_record"
	TargetTastingNote TargetType = "tasting_note"
)

func ParseTargetType(raw string) (TargetType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(TargetGreenRecord):
		return TargetGreenRecord, true
	case string(TargetTastingNote):
		return TargetTastingNote, true
	default:
		return "", false
	}
}

type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

func ParseOperation(raw string) (Operation, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(OperationCreate):
		return OperationCreate, true
	case string(OperationUpdate):
		return OperationUpdate, true
	case string(OperationDelete):
		return OperationDelete, true
	default:
		return "", false
	}
}

type SuggestionStatus string

const (
	SuggestionStatusPending   SuggestionStatus = "pending"
	SuggestionStatusAccepted  SuggestionStatus = "accepted"
	SuggestionStatusRejected  SuggestionStatus = "rejected"
	SuggestionStatusWithdrawn SuggestionStatus = "withdrawn"
)

func ParseSuggestionStatus(raw string) (SuggestionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(SuggestionStatusPending):
		return SuggestionStatusPending, true
	case string(SuggestionStatusAccepted):
		return SuggestionStatusAccepted, true
	case string(SuggestionStatusRejected):
		return SuggestionStatusRejected, true
	case string(SuggestionStatusWithdrawn):
		return SuggestionStatusWithdrawn, true
	default:
		return "", false
	}
}

func (s SuggestionStatus) IsTerminal() bool {
	return s == SuggestionStatusAccepted ||
		s == SuggestionStatusRejected ||
		s == SuggestionStatusWithdrawn
}

// Resolution explains why a suggestion left pending.
type Resolution string

const (
	ResolutionThreshold     Resolution = "threshold"
	ResolutionExpired       Resolution = "expired"
	ResolutionCommunity     Resolution = "community"
	ResolutionWithdrawn     Resolution = "withdrawn"
	ResolutionConflict      Resolution = "conflict"
	ResolutionTargetRemoved Resolution = "target_removed"
)

type Suggestion struct {
	SuggestionID string
	TargetType   TargetType
	TargetID     string
	Operation    Operation
	Payload      map[string]any
	AuthorID     string
	Status       SuggestionStatus
	Resolution   Resolution
	Version      int64
	CreatedAt    time.Time
	ResolvedAt   *time.Time
}

// Transition moves a pending suggestion into a terminal state. The returned
// copy carries a bumped version so store guards can detect lost races.
func (s Suggestion) Transition(to SuggestionStatus, resolution Resolution, at time.Time) (Suggestion, error) {
	if s.Status != SuggestionStatusPending {
		return s, domainerrors.InvalidState("suggestion %s is %s", s.SuggestionID, s.Status)
	}
	if !to.IsTerminal() {
		return s, domainerrors.InvalidState("suggestion %s cannot move to %s", s.SuggestionID, to)
	}
	resolvedAt := at.UTC()
	next := s
	next.Status = to
	next.Resolution = resolution
	next.ResolvedAt = &resolvedAt
	next.Version = s.Version + 1
	return next, nil
}

// ExpiresAt is the instant after which a pending suggestion is auto-rejected.
func (s Suggestion) ExpiresAt(ttl time.Duration) time.Time {
	return s.CreatedAt.UTC().Add(ttl)
}

func (s Suggestion) IsExpired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return !now.UTC().Before(s.ExpiresAt(ttl))
}
