package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"arcade-ads/internal/core/domain"
	"arcade-ads/internal/core/port"
)

// LedgerService implements port.ImpressionLedger. It is the single entry
// point through which impressions reach the ledger: it validates input,
// appends the event, applies the direct-path slot update and drives the
// projector for the fan-out.
type LedgerService struct {
	repo      port.LedgerRepository
	projector *Projector

	now   func() time.Time
	newID func() string
}

// NewLedgerService creates a ledger service around the repository and
// projector.
func NewLedgerService(repo port.LedgerRepository, projector *Projector) *LedgerService {
	return &LedgerService{
		repo:      repo,
		projector: projector,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// RecordImpressions charges a declared (campaign, game, ad) slot and
// fans the event out to every other membership of the ad.
//
// The direct-path slot update claims the slot's idempotency mark before
// the event is appended, so the projector's fan-out never double-counts
// the triggering slot, and a retried call with the same event id applies
// nothing twice. On a partial fan-out failure the result for the
// triggering slot is returned together with the error.
func (s *LedgerService) RecordImpressions(ctx context.Context, req port.RecordRequest) (*port.RecordResult, error) {
	if req.Count <= 0 {
		return nil, domain.ErrInvalidCount
	}

	campaign, err := s.repo.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, domain.ErrCampaignNotFound
	}
	if campaign.FindSlot(req.GameID, req.AdID) == nil {
		return nil, domain.ErrSlotNotFound
	}

	event := s.buildEvent(req.AdID, req.Count, req.EventID, req.OccurredAt)

	// Direct path: the caller proved the triple, charge it now.
	current, _, err := s.repo.IncrementSlot(ctx, event.EventID, req.CampaignID, req.GameID, req.AdID, req.Count)
	if err != nil {
		return nil, err
	}

	// Durability boundary: from here the impression exists even if
	// projection fails and has to be replayed.
	stored, _, err := s.repo.AppendEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	projection, err := s.projector.Project(ctx, stored)
	var partial *domain.PartialProjectionError
	if err != nil && !errors.As(err, &partial) {
		return nil, err
	}

	return &port.RecordResult{
		EventID:            stored.EventID,
		CurrentImpressions: current,
		TotalAdImpressions: projection.TotalImpressions,
	}, err
}

// RecordAdImpressions records impressions for an ad with no declared
// slot: attribution is entirely fan-out driven. Batch import uses this
// path after resolving the ad id.
func (s *LedgerService) RecordAdImpressions(ctx context.Context, req port.RecordAdRequest) (*domain.ProjectionResult, error) {
	if req.Count <= 0 {
		return nil, domain.ErrInvalidCount
	}

	if err := s.repo.EnsureAd(ctx, req.AdID, req.GameID); err != nil {
		return nil, err
	}

	event := s.buildEvent(req.AdID, req.Count, req.EventID, req.OccurredAt)
	stored, _, err := s.repo.AppendEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	return s.projector.Project(ctx, stored)
}

// ReplayEvent re-runs projection for a stored event. Deltas applied by
// earlier attempts are skipped, so replay never double-counts.
func (s *LedgerService) ReplayEvent(ctx context.Context, eventID string) (*domain.ProjectionResult, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return s.projector.Project(ctx, *event)
}

// Evaluate derives the campaign's completion status from its current
// slot aggregates. Read-only and safe alongside ongoing recording.
func (s *LedgerService) Evaluate(ctx context.Context, campaignID string) (*domain.CampaignStatus, error) {
	campaign, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, domain.ErrCampaignNotFound
	}
	status := domain.EvaluateCampaign(campaign)
	return &status, nil
}

// GetAd returns the ad aggregate read-out.
func (s *LedgerService) GetAd(ctx context.Context, adID string) (*domain.Ad, error) {
	ad, err := s.repo.GetAd(ctx, adID)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, domain.ErrAdNotFound
	}
	return ad, nil
}

func (s *LedgerService) buildEvent(adID string, count int64, eventID string, occurredAt time.Time) domain.ImpressionEvent {
	if eventID == "" {
		eventID = s.newID()
	}
	now := s.now().UTC()
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return domain.ImpressionEvent{
		EventID:    eventID,
		AdID:       adID,
		Count:      count,
		OccurredAt: occurredAt.UTC(),
		RecordedAt: now,
	}
}
