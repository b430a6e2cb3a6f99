package domain

import "time"

// Campaign is the denormalized campaign aggregate: games with their ad
// slots, each slot carrying a fixed target and a running current count.
// Slots are created once with the campaign; only current_impressions
// changes afterwards, and only through event projection.
type Campaign struct {
	ID        string
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Games     []CampaignGame
}

// CampaignGame groups the ad slots a campaign books within one game.
type CampaignGame struct {
	GameID string
	Ads    []Slot
}

// Slot is one (campaign, game, ad) booking. CurrentImpressions may
// overshoot TargetImpressions; overshoot counts as complete.
type Slot struct {
	AdID               string
	TargetImpressions  int64
	CurrentImpressions int64
}

// Slots flattens the campaign's games into a single ordered slot list,
// tagging each slot with its game id.
func (c *Campaign) Slots() []SlotStatus {
	var out []SlotStatus
	for _, g := range c.Games {
		for _, s := range g.Ads {
			out = append(out, SlotStatus{
				GameID:             g.GameID,
				AdID:               s.AdID,
				TargetImpressions:  s.TargetImpressions,
				CurrentImpressions: s.CurrentImpressions,
			})
		}
	}
	return out
}

// FindSlot returns the slot for the given (game, ad) pair, or nil when
// the campaign never declared that combination.
func (c *Campaign) FindSlot(gameID, adID string) *Slot {
	for gi := range c.Games {
		if c.Games[gi].GameID != gameID {
			continue
		}
		for si := range c.Games[gi].Ads {
			if c.Games[gi].Ads[si].AdID == adID {
				return &c.Games[gi].Ads[si]
			}
		}
	}
	return nil
}
