package domain

import "time"

// Ad is the per-ad aggregate. TotalImpressions sums every event recorded
// for the ad across all campaigns; CampaignImpressions attributes events
// to each campaign the ad belonged to when they arrived. The entries do
// not partition the total: overlapping campaign memberships attribute
// the same event to several campaigns.
type Ad struct {
	ID                  string
	Name                string
	GameID              string
	TotalImpressions    int64
	CampaignImpressions map[string]int64
	CreatedAt           time.Time
}

// Game is a catalog entry slots refer to. The ledger never mutates games
// beyond the plays counter kept for seeding and simulation.
type Game struct {
	ID           string
	Title        string
	Region       string
	Platform     string
	Plays        int64
	ThumbnailURL string
}
