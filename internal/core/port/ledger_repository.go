package port

import (
	"context"

	"arcade-ads/internal/core/domain"
)

// LedgerRepository is the persistence port for the impression ledger. It
// is an outbound port in hexagonal architecture. Implementations must be
// concurrency-safe and must express counter updates as atomic per-field
// increments, never as read-modify-write of whole rows; concurrent
// recordings against the same ad or slot must not lose updates.
//
// Every increment method takes the event id and applies its delta at
// most once per event: a second call for the same (event, target) pair
// is a no-op. This is what makes projection safe to retry and the event
// log safe to replay.
type LedgerRepository interface {
	// AppendEvent stores an impression event. When an event with the
	// same id already exists the stored event is returned unchanged and
	// inserted is false. Once AppendEvent returns, the event is durable.
	AppendEvent(ctx context.Context, event domain.ImpressionEvent) (stored domain.ImpressionEvent, inserted bool, err error)

	// GetEvent loads a stored event by id, nil when absent.
	GetEvent(ctx context.Context, eventID string) (*domain.ImpressionEvent, error)

	// GetCampaign loads a campaign with its slot aggregates, nil when absent.
	GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error)

	// CampaignsContainingAd resolves the fan-out set: every campaign with
	// at least one slot carrying the ad.
	CampaignsContainingAd(ctx context.Context, adID string) ([]string, error)

	// EnsureAd creates the ad aggregate with zero counters if it does
	// not exist yet. Recording self-heals instead of failing when batch
	// pipelines reference ads not materialized locally.
	EnsureAd(ctx context.Context, adID, gameID string) error

	// IncrementAdTotal adds the event's count to the ad total, once per
	// event, and returns the resulting total.
	IncrementAdTotal(ctx context.Context, eventID, adID string, count int64) (int64, error)

	// IncrementAdCampaign adds the event's count to the ad's per-campaign
	// attribution entry, creating the entry on first use.
	IncrementAdCampaign(ctx context.Context, eventID, adID, campaignID string, count int64) error

	// IncrementSlot adds the event's count to one declared slot and
	// returns the new current count. applied is false when an earlier
	// attempt for the same event already claimed this slot, in which
	// case the returned count is simply the slot's current value.
	// Returns domain.ErrSlotNotFound when the campaign never declared
	// the (game, ad) pair.
	IncrementSlot(ctx context.Context, eventID, campaignID, gameID, adID string, count int64) (current int64, applied bool, err error)

	// IncrementCampaignSlots applies the event's count to every slot of
	// the campaign carrying the ad, skipping slots already claimed for
	// this event (including the direct-path slot claimed by the façade).
	IncrementCampaignSlots(ctx context.Context, eventID, campaignID, adID string, count int64) error

	// GetAd loads the ad aggregate including its per-campaign
	// attribution map, nil when absent.
	GetAd(ctx context.Context, adID string) (*domain.Ad, error)

	// FindAdByName looks an ad up by catalog name within a game, nil
	// when absent. Used by the batch resolver, not by the ledger itself.
	FindAdByName(ctx context.Context, gameID, name string) (*domain.Ad, error)
}
