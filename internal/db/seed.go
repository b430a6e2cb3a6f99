package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed inserts demo games, ads and campaigns so the recording API and
// the simulator have something to work with. Counters start at zero;
// impressions only ever arrive through the ledger.
func Seed(ctx context.Context, db *pgxpool.Pool) error {
	games := []struct {
		ID, Title, Region, Platform string
	}{
		{"g1", "Neon Drift", "EU", "pc"},
		{"g2", "Sky Runner", "NA", "mobile"},
		{"g3", "Pixel Quest", "EU", "console"},
	}
	for _, g := range games {
		_, err := db.Exec(ctx, `INSERT INTO games (game_id, title, region, platform, thumbnail_url)
			VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
			g.ID, g.Title, g.Region, g.Platform, fmt.Sprintf("https://example.com/thumbs/%s.png", g.ID))
		if err != nil {
			return err
		}
	}

	ads := []struct {
		ID, GameID string
	}{
		{"ad1", "g1"},
		{"ad2", "g1"},
		{"ad3", "g2"},
		{"ad4", "g2"},
		{"ad5", "g3"},
	}
	for _, a := range ads {
		_, err := db.Exec(ctx, `INSERT INTO ads (ad_id, name, game_id)
			VALUES ($1, $1, $2) ON CONFLICT DO NOTHING`, a.ID, a.GameID)
		if err != nil {
			return err
		}
	}

	start := time.Now().AddDate(0, 0, -1)
	end := time.Now().AddDate(0, 1, 0)
	campaigns := []struct {
		ID, Name string
		Slots    []struct {
			GameID, AdID string
			Target       int64
		}
	}{
		{
			ID: "camp1", Name: "Spring Launch",
			Slots: []struct {
				GameID, AdID string
				Target       int64
			}{
				{"g1", "ad1", 10000},
				{"g1", "ad2", 15000},
			},
		},
		{
			// ad2 is enrolled here too: recording against camp1 fans
			// out to camp2's slot as well.
			ID: "camp2", Name: "Cross Promo",
			Slots: []struct {
				GameID, AdID string
				Target       int64
			}{
				{"g1", "ad2", 5000},
				{"g2", "ad3", 8000},
				{"g2", "ad4", 8000},
			},
		},
	}
	for _, c := range campaigns {
		_, err := db.Exec(ctx, `INSERT INTO campaigns (campaign_id, name, start_time, end_time)
			VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`, c.ID, c.Name, start, end)
		if err != nil {
			return err
		}
		for pos, s := range c.Slots {
			_, err = db.Exec(ctx, `INSERT INTO campaign_slots (campaign_id, game_id, ad_id, target_impressions, position)
				VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
				c.ID, s.GameID, s.AdID, s.Target, pos)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
