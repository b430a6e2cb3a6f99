package domain

import "time"

// ImpressionEvent is an immutable record of impressions shown for an ad.
// EventID doubles as the idempotency key: appending the same id twice
// stores a single event, and projection applies each delta at most once
// per event. Events are never updated or deleted; aggregates are caches
// that can always be rebuilt by replaying the event log.
type ImpressionEvent struct {
	EventID    string
	AdID       string
	Count      int64
	OccurredAt time.Time
	RecordedAt time.Time
}

// ProjectionResult reports which aggregates a projected event reached.
type ProjectionResult struct {
	EventID string
	AdID    string
	// TotalImpressions is the ad's total after the event was applied.
	TotalImpressions int64
	// Campaigns lists campaign ids whose aggregates were updated (or had
	// already been updated by an earlier attempt for the same event).
	Campaigns []string
}
