// Command simulate drives randomized impression traffic through the
// recording API. It picks a campaign, records a random share of each
// incomplete slot's remaining impressions, and prints the resulting
// completion status. Useful for demos and for exercising concurrent
// recording against a live server.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"
)

type slotStatus struct {
	GameID             string  `json:"game_id"`
	AdID               string  `json:"ad_id"`
	TargetImpressions  int64   `json:"target_impressions"`
	CurrentImpressions int64   `json:"current_impressions"`
	PercentComplete    float64 `json:"percent_complete"`
	IsComplete         bool    `json:"is_complete"`
}

type campaignStatus struct {
	CampaignID      string       `json:"campaign_id"`
	IsComplete      bool         `json:"is_complete"`
	TotalTarget     int64        `json:"total_target_impressions"`
	TotalCurrent    int64        `json:"total_current_impressions"`
	PercentComplete float64      `json:"percent_complete"`
	AdStatus        []slotStatus `json:"ad_status"`
}

func main() {
	var (
		baseURL  = flag.String("addr", "http://localhost:8080", "base URL of the arcade-ads server")
		campaign = flag.String("campaign", "camp1", "campaign id to simulate impressions for")
		rounds   = flag.Int("rounds", 1, "number of simulation rounds")
	)
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for round := 0; round < *rounds; round++ {
		status, err := fetchStatus(client, *baseURL, *campaign)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fetch status:", err)
			os.Exit(1)
		}
		if status.IsComplete {
			fmt.Printf("campaign %s already complete\n", *campaign)
			break
		}

		for _, slot := range status.AdStatus {
			remaining := slot.TargetImpressions - slot.CurrentImpressions
			if remaining <= 0 {
				fmt.Printf("slot %s/%s met its target, skipping\n", slot.GameID, slot.AdID)
				continue
			}
			// between 1% and 10% of the remaining target per round
			max := remaining / 10
			if max < 10 {
				max = remaining
			}
			count := 1 + r.Int63n(max)
			fmt.Printf("recording %d impressions for ad %s in game %s\n", count, slot.AdID, slot.GameID)
			if err := record(client, *baseURL, *campaign, slot.GameID, slot.AdID, count); err != nil {
				fmt.Fprintln(os.Stderr, "record:", err)
				os.Exit(1)
			}
		}
	}

	status, err := fetchStatus(client, *baseURL, *campaign)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fetch status:", err)
		os.Exit(1)
	}
	fmt.Printf("\ncampaign %s: %d/%d impressions (%.2f%%), complete: %v\n",
		status.CampaignID, status.TotalCurrent, status.TotalTarget, status.PercentComplete, status.IsComplete)
	for _, slot := range status.AdStatus {
		fmt.Printf("  %s/%s: %d/%d (%.2f%%) complete=%v\n",
			slot.GameID, slot.AdID, slot.CurrentImpressions, slot.TargetImpressions,
			slot.PercentComplete, slot.IsComplete)
	}
}

func fetchStatus(client *http.Client, baseURL, campaignID string) (*campaignStatus, error) {
	resp, err := client.Get(fmt.Sprintf("%s/api/v1/campaigns/%s/status", baseURL, campaignID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %s", resp.Status)
	}
	var status campaignStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

func record(client *http.Client, baseURL, campaignID, gameID, adID string, count int64) error {
	body, err := json.Marshal(map[string]any{
		"campaign_id": campaignID,
		"game_id":     gameID,
		"ad_id":       adID,
		"count":       count,
	})
	if err != nil {
		return err
	}
	resp, err := client.Post(baseURL+"/api/v1/impressions", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("record endpoint returned %s", resp.Status)
	}
	return nil
}
