package port

import (
	"context"
	"time"

	"arcade-ads/internal/core/domain"
)

// ImpressionLedger is the primary port into the ledger core. HTTP
// handlers, the batch importer and the simulator all record through this
// interface; none of them touch aggregates directly.
type ImpressionLedger interface {
	// RecordImpressions resolves the (campaign, game, ad) slot, applies
	// the direct-path increment, appends the event and fans it out to
	// every other campaign containing the ad. A caller retrying a failed
	// call must pass the same EventID so the ledger can deduplicate.
	//
	// On a partial fan-out failure both a result (for the triggering
	// slot) and a *domain.PartialProjectionError are returned; the
	// caller retries projection only, via ReplayEvent.
	RecordImpressions(ctx context.Context, req RecordRequest) (*RecordResult, error)

	// RecordAdImpressions appends an event for an ad without a known
	// campaign slot and projects it to every membership. This is the
	// batch-import path: attribution is fully fan-out driven.
	RecordAdImpressions(ctx context.Context, req RecordAdRequest) (*domain.ProjectionResult, error)

	// ReplayEvent re-runs projection for a stored event. Already-applied
	// deltas are skipped, so replay is always safe.
	ReplayEvent(ctx context.Context, eventID string) (*domain.ProjectionResult, error)

	// Evaluate derives the campaign's completion status from its slot
	// aggregates. Read-only, safe to call concurrently with recording.
	Evaluate(ctx context.Context, campaignID string) (*domain.CampaignStatus, error)

	// GetAd returns the ad aggregate read-out.
	GetAd(ctx context.Context, adID string) (*domain.Ad, error)
}

// AdResolver maps an external ad reference to a stable ad id before the
// ledger is invoked. Matching heuristics live entirely behind this port.
type AdResolver interface {
	Resolve(ctx context.Context, gameID, adName string) (string, error)
}

// RecordRequest names the slot to charge. EventID is optional; when
// empty a fresh id is generated and returned in the result.
type RecordRequest struct {
	CampaignID string
	GameID     string
	AdID       string
	Count      int64
	EventID    string
	OccurredAt time.Time
}

// RecordAdRequest records impressions for an ad without naming a slot.
type RecordAdRequest struct {
	AdID       string
	GameID     string
	Count      int64
	EventID    string
	OccurredAt time.Time
}

// RecordResult carries the updated counters back to the caller.
type RecordResult struct {
	EventID            string
	CurrentImpressions int64
	TotalAdImpressions int64
}
