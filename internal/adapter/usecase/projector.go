package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"arcade-ads/internal/core/domain"
	"arcade-ads/internal/core/port"
)

// Projector fans one impression event out to every aggregate it affects:
// the ad total, the ad's per-campaign attribution entries, and the slot
// counters of every campaign containing the ad. Each delta is keyed by
// event id at the storage layer, so projecting the same event again only
// applies what a previous attempt missed.
type Projector struct {
	repo     port.LedgerRepository
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// NewProjector creates a projector. attempts bounds retries on transient
// storage contention; backoff is the base delay between attempts.
func NewProjector(repo port.LedgerRepository, attempts int, backoff time.Duration, logger *slog.Logger) *Projector {
	if attempts < 1 {
		attempts = 1
	}
	return &Projector{repo: repo, attempts: attempts, backoff: backoff, logger: logger}
}

// Project applies the event to all aggregates. Campaigns whose updates
// still fail after retries are reported in a *domain.PartialProjectionError
// alongside the result; the event itself stays durable and the caller
// retries projection only.
func (p *Projector) Project(ctx context.Context, event domain.ImpressionEvent) (*domain.ProjectionResult, error) {
	// Self-heal: batch pipelines may record impressions for ads the
	// catalog has not materialized yet.
	if err := p.repo.EnsureAd(ctx, event.AdID, ""); err != nil {
		return nil, err
	}

	var total int64
	err := p.withRetry(ctx, func() error {
		var err error
		total, err = p.repo.IncrementAdTotal(ctx, event.EventID, event.AdID, event.Count)
		return err
	})
	if err != nil {
		return nil, err
	}

	var campaigns []string
	err = p.withRetry(ctx, func() error {
		var err error
		campaigns, err = p.repo.CampaignsContainingAd(ctx, event.AdID)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &domain.ProjectionResult{
		EventID:          event.EventID,
		AdID:             event.AdID,
		TotalImpressions: total,
	}
	var unresolved []string
	for _, campaignID := range campaigns {
		err = p.withRetry(ctx, func() error {
			if err := p.repo.IncrementAdCampaign(ctx, event.EventID, event.AdID, campaignID, event.Count); err != nil {
				return err
			}
			return p.repo.IncrementCampaignSlots(ctx, event.EventID, campaignID, event.AdID, event.Count)
		})
		if err != nil {
			p.logger.Warn("campaign projection failed",
				slog.String("event_id", event.EventID),
				slog.String("campaign_id", campaignID),
				slog.Any("error", err))
			unresolved = append(unresolved, campaignID)
			continue
		}
		result.Campaigns = append(result.Campaigns, campaignID)
	}

	if len(unresolved) > 0 {
		return result, &domain.PartialProjectionError{
			EventID:    event.EventID,
			AdID:       event.AdID,
			Applied:    result.Campaigns,
			Unresolved: unresolved,
		}
	}
	return result, nil
}

// withRetry runs op, retrying transient contention with linear backoff
// up to the configured attempt count. Permanent errors return at once.
func (p *Projector) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff * time.Duration(attempt)):
			}
		}
		if err = op(); !errors.Is(err, domain.ErrStorageContention) {
			return err
		}
	}
	return err
}
