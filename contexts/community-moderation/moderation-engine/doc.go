// Package moderationengine implements the community moderation engine for the
// green coffee catalogue.
//
// Every change to a green record or tasting note is proposed as a suggestion,
// endorsed by other users, and applied once the configured threshold is met.
// Resolutions move the author's and supporters' karma through an append-only
// ledger whose score is exposed to ordinary users only as a trust level.
// State changes and their outbox events commit in one transaction; workers
// expire stale suggestions, reconcile thresholds, relay the outbox and audit
// the karma projection.
package moderationengine
