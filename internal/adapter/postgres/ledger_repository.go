package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"arcade-ads/internal/core/domain"
)

// LedgerRepository implements port.LedgerRepository using pgxpool.
//
// Counter updates are expressed as single-statement atomic increments
// (SET x = x + delta); whole-row read-modify-write is never used, so
// concurrent recordings against the same ad or slot cannot lose updates.
// Idempotency is enforced by the projection_marks table: each delta
// first claims a (event_id, scope) mark with an insert-on-conflict, and
// the increment runs only when the claim wins.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository returns a new repository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// AppendEvent stores an impression event, treating a duplicate event id
// as a successful no-op that returns the previously stored event.
func (r *LedgerRepository) AppendEvent(ctx context.Context, event domain.ImpressionEvent) (domain.ImpressionEvent, bool, error) {
	tag, err := r.pool.Exec(ctx, `INSERT INTO impression_events (event_id, ad_id, count, occurred_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.AdID, event.Count, event.OccurredAt, event.RecordedAt)
	if err != nil {
		return domain.ImpressionEvent{}, false, mapError(err)
	}
	if tag.RowsAffected() == 1 {
		return event, true, nil
	}
	stored, err := r.GetEvent(ctx, event.EventID)
	if err != nil {
		return domain.ImpressionEvent{}, false, err
	}
	if stored == nil {
		return domain.ImpressionEvent{}, false, domain.ErrEventNotFound
	}
	return *stored, false, nil
}

// GetEvent loads a stored event by id.
func (r *LedgerRepository) GetEvent(ctx context.Context, eventID string) (*domain.ImpressionEvent, error) {
	var ev domain.ImpressionEvent
	err := r.pool.QueryRow(ctx, `SELECT event_id, ad_id, count, occurred_at, recorded_at
		FROM impression_events WHERE event_id = $1`, eventID).
		Scan(&ev.EventID, &ev.AdID, &ev.Count, &ev.OccurredAt, &ev.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &ev, nil
}

// GetCampaign loads a campaign together with its slots, preserving the
// declared slot order.
func (r *LedgerRepository) GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	var c domain.Campaign
	err := r.pool.QueryRow(ctx, `SELECT campaign_id, name, start_time, end_time
		FROM campaigns WHERE campaign_id = $1`, campaignID).
		Scan(&c.ID, &c.Name, &c.StartTime, &c.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}

	rows, err := r.pool.Query(ctx, `SELECT game_id, ad_id, target_impressions, current_impressions
		FROM campaign_slots WHERE campaign_id = $1 ORDER BY position`, campaignID)
	if err != nil {
		return nil, mapError(err)
	}
	type slotRow struct {
		GameID string
		Slot   domain.Slot
	}
	slots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (slotRow, error) {
		var sr slotRow
		err := row.Scan(&sr.GameID, &sr.Slot.AdID, &sr.Slot.TargetImpressions, &sr.Slot.CurrentImpressions)
		return sr, err
	})
	if err != nil {
		return nil, mapError(err)
	}
	// group into games in first-seen order
	index := make(map[string]int)
	for _, sr := range slots {
		gi, ok := index[sr.GameID]
		if !ok {
			gi = len(c.Games)
			index[sr.GameID] = gi
			c.Games = append(c.Games, domain.CampaignGame{GameID: sr.GameID})
		}
		c.Games[gi].Ads = append(c.Games[gi].Ads, sr.Slot)
	}
	return &c, nil
}

// CampaignsContainingAd resolves the ad's campaign memberships.
func (r *LedgerRepository) CampaignsContainingAd(ctx context.Context, adID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT campaign_id FROM campaign_slots WHERE ad_id = $1 ORDER BY campaign_id`, adID)
	if err != nil {
		return nil, mapError(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError(err)
	}
	return ids, nil
}

// EnsureAd creates the ad aggregate with zero counters if absent. The
// catalog name defaults to the ad id until the catalog fills it in.
func (r *LedgerRepository) EnsureAd(ctx context.Context, adID, gameID string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO ads (ad_id, name, game_id, total_impressions, created_at)
		VALUES ($1, $1, $2, 0, now())
		ON CONFLICT (ad_id) DO NOTHING`, adID, gameID)
	return mapError(err)
}

// IncrementAdTotal applies the event's count to the ad total exactly
// once and returns the resulting total.
func (r *LedgerRepository) IncrementAdTotal(ctx context.Context, eventID, adID string, count int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	defer tx.Rollback(ctx)

	claimed, err := claimMark(ctx, tx, eventID, "total")
	if err != nil {
		return 0, err
	}

	var total int64
	if claimed {
		err = tx.QueryRow(ctx, `UPDATE ads SET total_impressions = total_impressions + $1
			WHERE ad_id = $2 RETURNING total_impressions`, count, adID).Scan(&total)
	} else {
		err = tx.QueryRow(ctx, `SELECT total_impressions FROM ads WHERE ad_id = $1`, adID).Scan(&total)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrAdNotFound
	}
	if err != nil {
		return 0, mapError(err)
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

// IncrementAdCampaign applies the event's count to the ad's attribution
// entry for one campaign, creating the entry on first use.
func (r *LedgerRepository) IncrementAdCampaign(ctx context.Context, eventID, adID, campaignID string, count int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback(ctx)

	claimed, err := claimMark(ctx, tx, eventID, "camp:"+campaignID)
	if err != nil {
		return err
	}
	if claimed {
		_, err = tx.Exec(ctx, `INSERT INTO ad_campaign_impressions (ad_id, campaign_id, impressions)
			VALUES ($1, $2, $3)
			ON CONFLICT (ad_id, campaign_id)
			DO UPDATE SET impressions = ad_campaign_impressions.impressions + EXCLUDED.impressions`,
			adID, campaignID, count)
		if err != nil {
			return mapError(err)
		}
	}
	return mapError(tx.Commit(ctx))
}

// IncrementSlot applies the event's count to a single declared slot. The
// slot's existence is checked before the mark is claimed so an unknown
// triple fails with ErrSlotNotFound without leaving a stray mark.
func (r *LedgerRepository) IncrementSlot(ctx context.Context, eventID, campaignID, gameID, adID string, count int64) (int64, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, false, mapError(err)
	}
	defer tx.Rollback(ctx)

	var current int64
	err = tx.QueryRow(ctx, `SELECT current_impressions FROM campaign_slots
		WHERE campaign_id = $1 AND game_id = $2 AND ad_id = $3`, campaignID, gameID, adID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, domain.ErrSlotNotFound
	}
	if err != nil {
		return 0, false, mapError(err)
	}

	claimed, err := claimMark(ctx, tx, eventID, slotScope(campaignID, gameID))
	if err != nil {
		return 0, false, err
	}
	if claimed {
		err = tx.QueryRow(ctx, `UPDATE campaign_slots SET current_impressions = current_impressions + $1
			WHERE campaign_id = $2 AND game_id = $3 AND ad_id = $4
			RETURNING current_impressions`, count, campaignID, gameID, adID).Scan(&current)
		if err != nil {
			return 0, false, mapError(err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, false, mapError(err)
	}
	return current, claimed, nil
}

// IncrementCampaignSlots applies the event's count to every slot of the
// campaign carrying the ad, in one statement: marks are claimed for the
// matching slots and only newly claimed slots are incremented. Slots
// already claimed for this event (the façade's direct-path slot
// included) are skipped.
func (r *LedgerRepository) IncrementCampaignSlots(ctx context.Context, eventID, campaignID, adID string, count int64) error {
	_, err := r.pool.Exec(ctx, `WITH claimed AS (
			INSERT INTO projection_marks (event_id, scope)
			SELECT $1, 'slot:' || s.campaign_id || '/' || s.game_id
			FROM campaign_slots s
			WHERE s.campaign_id = $2 AND s.ad_id = $3
			ON CONFLICT (event_id, scope) DO NOTHING
			RETURNING scope
		)
		UPDATE campaign_slots s SET current_impressions = s.current_impressions + $4
		WHERE s.campaign_id = $2 AND s.ad_id = $3
		  AND 'slot:' || s.campaign_id || '/' || s.game_id IN (SELECT scope FROM claimed)`,
		eventID, campaignID, adID, count)
	return mapError(err)
}

// GetAd loads the ad aggregate with its per-campaign attribution map.
func (r *LedgerRepository) GetAd(ctx context.Context, adID string) (*domain.Ad, error) {
	ad, err := r.scanAd(ctx, `SELECT ad_id, name, game_id, total_impressions, created_at FROM ads WHERE ad_id = $1`, adID)
	if ad == nil || err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT campaign_id, impressions FROM ad_campaign_impressions WHERE ad_id = $1`, adID)
	if err != nil {
		return nil, mapError(err)
	}
	ad.CampaignImpressions = make(map[string]int64)
	type entry struct {
		CampaignID  string
		Impressions int64
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entry])
	if err != nil {
		return nil, mapError(err)
	}
	for _, e := range entries {
		ad.CampaignImpressions[e.CampaignID] = e.Impressions
	}
	return ad, nil
}

// FindAdByName looks an ad up by catalog name within a game.
func (r *LedgerRepository) FindAdByName(ctx context.Context, gameID, name string) (*domain.Ad, error) {
	return r.scanAd(ctx, `SELECT ad_id, name, game_id, total_impressions, created_at FROM ads WHERE game_id = $1 AND name = $2`, gameID, name)
}

func (r *LedgerRepository) scanAd(ctx context.Context, query string, args ...any) (*domain.Ad, error) {
	var ad domain.Ad
	err := r.pool.QueryRow(ctx, query, args...).
		Scan(&ad.ID, &ad.Name, &ad.GameID, &ad.TotalImpressions, &ad.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &ad, nil
}

// claimMark inserts the (event, scope) idempotency mark. It reports true
// when this call won the claim and the corresponding delta must be
// applied, false when an earlier attempt already applied it.
func claimMark(ctx context.Context, tx pgx.Tx, eventID, scope string) (bool, error) {
	tag, err := tx.Exec(ctx, `INSERT INTO projection_marks (event_id, scope)
		VALUES ($1, $2) ON CONFLICT (event_id, scope) DO NOTHING`, eventID, scope)
	if err != nil {
		return false, mapError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func slotScope(campaignID, gameID string) string {
	return fmt.Sprintf("slot:%s/%s", campaignID, gameID)
}

// mapError converts transient serialization and deadlock failures into
// domain.ErrStorageContention so the projector can retry them.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", domain.ErrStorageContention, pgErr.Message)
		}
	}
	return err
}
