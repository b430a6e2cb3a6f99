// Package memledger provides an in-memory port.LedgerRepository for
// tests. It mirrors the idempotency semantics of the Postgres
// implementation: every increment is keyed by (event, scope) and applies
// at most once per event.
package memledger

import (
	"context"
	"sort"
	"sync"

	"arcade-ads/internal/core/domain"
)

type slot struct {
	gameID  string
	adID    string
	target  int64
	current int64
}

type campaign struct {
	name  string
	slots []*slot
}

type ad struct {
	name   string
	gameID string
	total  int64
}

// Repository is a concurrency-safe in-memory ledger store.
type Repository struct {
	mu          sync.Mutex
	events      map[string]domain.ImpressionEvent
	ads         map[string]*ad
	adCampaigns map[string]map[string]int64
	campaigns   map[string]*campaign
	marks       map[string]struct{}

	// CampaignSlotsErr, when set, is consulted before fan-out slot
	// updates; returning an error simulates storage failures for the
	// named campaign.
	CampaignSlotsErr func(campaignID string) error
}

// New returns an empty repository.
func New() *Repository {
	return &Repository{
		events:      make(map[string]domain.ImpressionEvent),
		ads:         make(map[string]*ad),
		adCampaigns: make(map[string]map[string]int64),
		campaigns:   make(map[string]*campaign),
		marks:       make(map[string]struct{}),
	}
}

// AddAd seeds a catalog ad.
func (r *Repository) AddAd(adID, name, gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ads[adID] = &ad{name: name, gameID: gameID}
}

// AddSlot seeds a campaign slot, creating the campaign on first use.
func (r *Repository) AddSlot(campaignID, gameID, adID string, target int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		c = &campaign{name: campaignID}
		r.campaigns[campaignID] = c
	}
	c.slots = append(c.slots, &slot{gameID: gameID, adID: adID, target: target})
}

// SlotCurrent reads a slot counter for assertions.
func (r *Repository) SlotCurrent(campaignID, gameID, adID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[campaignID]; ok {
		for _, s := range c.slots {
			if s.gameID == gameID && s.adID == adID {
				return s.current
			}
		}
	}
	return 0
}

// AdTotal reads an ad total for assertions.
func (r *Repository) AdTotal(adID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.ads[adID]; ok {
		return a.total
	}
	return 0
}

// AdCampaign reads an ad's attribution entry for assertions.
func (r *Repository) AdCampaign(adID, campaignID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adCampaigns[adID][campaignID]
}

// EventCount reports how many events were appended.
func (r *Repository) EventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *Repository) claim(eventID, scope string) bool {
	key := eventID + "|" + scope
	if _, ok := r.marks[key]; ok {
		return false
	}
	r.marks[key] = struct{}{}
	return true
}

func (r *Repository) AppendEvent(_ context.Context, event domain.ImpressionEvent) (domain.ImpressionEvent, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.events[event.EventID]; ok {
		return stored, false, nil
	}
	r.events[event.EventID] = event
	return event, true, nil
}

func (r *Repository) GetEvent(_ context.Context, eventID string) (*domain.ImpressionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := r.events[eventID]; ok {
		return &ev, nil
	}
	return nil, nil
}

func (r *Repository) GetCampaign(_ context.Context, campaignID string) (*domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		return nil, nil
	}
	out := &domain.Campaign{ID: campaignID, Name: c.name}
	index := make(map[string]int)
	for _, s := range c.slots {
		gi, ok := index[s.gameID]
		if !ok {
			gi = len(out.Games)
			index[s.gameID] = gi
			out.Games = append(out.Games, domain.CampaignGame{GameID: s.gameID})
		}
		out.Games[gi].Ads = append(out.Games[gi].Ads, domain.Slot{
			AdID:               s.adID,
			TargetImpressions:  s.target,
			CurrentImpressions: s.current,
		})
	}
	return out, nil
}

func (r *Repository) CampaignsContainingAd(_ context.Context, adID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, c := range r.campaigns {
		for _, s := range c.slots {
			if s.adID == adID {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Repository) EnsureAd(_ context.Context, adID, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ads[adID]; !ok {
		r.ads[adID] = &ad{name: adID, gameID: gameID}
	}
	return nil
}

func (r *Repository) IncrementAdTotal(_ context.Context, eventID, adID string, count int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.ads[adID]
	if !ok {
		return 0, domain.ErrAdNotFound
	}
	if r.claim(eventID, "total") {
		a.total += count
	}
	return a.total, nil
}

func (r *Repository) IncrementAdCampaign(_ context.Context, eventID, adID, campaignID string, count int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claim(eventID, "camp:"+campaignID) {
		m, ok := r.adCampaigns[adID]
		if !ok {
			m = make(map[string]int64)
			r.adCampaigns[adID] = m
		}
		m[campaignID] += count
	}
	return nil
}

func (r *Repository) IncrementSlot(_ context.Context, eventID, campaignID, gameID, adID string, count int64) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		return 0, false, domain.ErrSlotNotFound
	}
	for _, s := range c.slots {
		if s.gameID == gameID && s.adID == adID {
			applied := r.claim(eventID, "slot:"+campaignID+"/"+gameID)
			if applied {
				s.current += count
			}
			return s.current, applied, nil
		}
	}
	return 0, false, domain.ErrSlotNotFound
}

func (r *Repository) IncrementCampaignSlots(_ context.Context, eventID, campaignID, adID string, count int64) error {
	r.mu.Lock()
	failer := r.CampaignSlotsErr
	r.mu.Unlock()
	if failer != nil {
		if err := failer(campaignID); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		return nil
	}
	for _, s := range c.slots {
		if s.adID != adID {
			continue
		}
		if r.claim(eventID, "slot:"+campaignID+"/"+s.gameID) {
			s.current += count
		}
	}
	return nil
}

func (r *Repository) GetAd(_ context.Context, adID string) (*domain.Ad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.ads[adID]
	if !ok {
		return nil, nil
	}
	out := &domain.Ad{
		ID:                  adID,
		Name:                a.name,
		GameID:              a.gameID,
		TotalImpressions:    a.total,
		CampaignImpressions: make(map[string]int64),
	}
	for campID, n := range r.adCampaigns[adID] {
		out.CampaignImpressions[campID] = n
	}
	return out, nil
}

func (r *Repository) FindAdByName(_ context.Context, gameID, name string) (*domain.Ad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.ads {
		if a.gameID == gameID && a.name == name {
			return &domain.Ad{ID: id, Name: a.name, GameID: a.gameID, TotalImpressions: a.total}, nil
		}
	}
	return nil, nil
}
