package domain

// CampaignStatus is the derived completion report for a campaign. It is
// computed from slot aggregates on every read and never stored.
type CampaignStatus struct {
	CampaignID      string       `json:"campaign_id"`
	IsComplete      bool         `json:"is_complete"`
	TotalTarget     int64        `json:"total_target_impressions"`
	TotalCurrent    int64        `json:"total_current_impressions"`
	PercentComplete float64      `json:"percent_complete"`
	AdStatus        []SlotStatus `json:"ad_status"`
}

// SlotStatus is the completion state of a single (game, ad) slot.
type SlotStatus struct {
	GameID             string  `json:"game_id"`
	AdID               string  `json:"ad_id"`
	TargetImpressions  int64   `json:"target_impressions"`
	CurrentImpressions int64   `json:"current_impressions"`
	PercentComplete    float64 `json:"percent_complete"`
	IsComplete         bool    `json:"is_complete"`
}

// EvaluateCampaign derives the completion status from the campaign's
// current slot aggregates. A zero total target evaluates to 0% rather
// than failing; a campaign with no slots is vacuously complete, and a
// slot with target zero is complete as soon as it exists.
func EvaluateCampaign(c *Campaign) CampaignStatus {
	status := CampaignStatus{
		CampaignID: c.ID,
		IsComplete: true,
		AdStatus:   c.Slots(),
	}
	for i := range status.AdStatus {
		s := &status.AdStatus[i]
		status.TotalTarget += s.TargetImpressions
		status.TotalCurrent += s.CurrentImpressions
		s.IsComplete = s.CurrentImpressions >= s.TargetImpressions
		if s.TargetImpressions > 0 {
			s.PercentComplete = float64(s.CurrentImpressions) / float64(s.TargetImpressions) * 100
		}
		if !s.IsComplete {
			status.IsComplete = false
		}
	}
	if status.TotalTarget > 0 {
		status.PercentComplete = float64(status.TotalCurrent) / float64(status.TotalTarget) * 100
	}
	return status
}
