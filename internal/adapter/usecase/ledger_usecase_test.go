package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcade-ads/internal/core/domain"
	"arcade-ads/internal/core/port"
	"arcade-ads/internal/testdata/memledger"
)

func newService(repo *memledger.Repository) *LedgerService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	projector := NewProjector(repo, 3, time.Millisecond, logger)
	return NewLedgerService(repo, projector)
}

// TestRecordAndEvaluate walks a campaign from empty to complete through
// the recording path and checks the derived status at each step.
func TestRecordAndEvaluate(t *testing.T) {
	repo := memledger.New()
	repo.AddAd("ad1", "ad1", "g1")
	repo.AddAd("ad2", "ad2", "g1")
	repo.AddSlot("camp1", "g1", "ad1", 10000)
	repo.AddSlot("camp1", "g1", "ad2", 15000)
	svc := newService(repo)
	ctx := context.Background()

	res, err := svc.RecordImpressions(ctx, port.RecordRequest{CampaignID: "camp1", GameID: "g1", AdID: "ad1", Count: 10000})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), res.CurrentImpressions)
	assert.Equal(t, int64(10000), res.TotalAdImpressions)

	_, err = svc.RecordImpressions(ctx, port.RecordRequest{CampaignID: "camp1", GameID: "g1", AdID: "ad2", Count: 7500})
	require.NoError(t, err)

	status, err := svc.Evaluate(ctx, "camp1")
	require.NoError(t, err)
	assert.Equal(t, int64(25000), status.TotalTarget)
	assert.Equal(t, int64(17500), status.TotalCurrent)
	assert.InDelta(t, 70.0, status.PercentComplete, 0.001)
	assert.False(t, status.IsComplete)

	_, err = svc.RecordImpressions(ctx, port.RecordRequest{CampaignID: "camp1", GameID: "g1", AdID: "ad2", Count: 7500})
	require.NoError(t, err)

	status, err = svc.Evaluate(ctx, "camp1")
	require.NoError(t, err)
	assert.True(t, status.IsComplete)
}

// TestFanOutAcrossCampaigns checks that recording against one campaign
// also reaches every other campaign containing the ad, exactly once.
func TestFanOutAcrossCampaigns(t *testing.T) {
	repo := memledger.New()
	repo.AddAd("ad2", "ad2", "g1")
	repo.AddSlot("camp1", "g1", "ad2", 15000)
	repo.AddSlot("camp2", "g1", "ad2", 5000)
	svc := newService(repo)

	_, err := svc.RecordImpressions(context.Background(), port.RecordRequest{
		CampaignID: "camp1", GameID: "g1", AdID: "ad2", Count: 500,
	})
	require.NoError(t, err)

	// direct path charged camp1 once, fan-out reached camp2 once
	assert.Equal(t, int64(500), repo.SlotCurrent("camp1", "g1", "ad2"))
	assert.Equal(t, int64(500), repo.SlotCurrent("camp2", "g1", "ad2"))
	assert.Equal(t, int64(500), repo.AdTotal("ad2"))
	assert.Equal(t, int64(500), repo.AdCampaign("ad2", "camp1"))
	assert.Equal(t, int64(500), repo.AdCampaign("ad2", "camp2"))
}

// TestRecordIdempotentReplay resubmits the same logical impression with
// its event id; nothing may be counted twice.
func TestRecordIdempotentReplay(t *testing.T) {
	repo := memledger.New()
	repo.AddAd("ad1", "ad1", "g1")
	repo.AddSlot("camp1", "g1", "ad1", 1000)
	svc := newService(repo)
	ctx := context.Background()

	req := port.RecordRequest{CampaignID: "camp1", GameID: "g1", AdID: "ad1", Count: 100, EventID: "evt-1"}
	first, err := svc.RecordImpressions(ctx, req)
	require.NoError(t, err)

	second, err := svc.RecordImpressions(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(100), repo.SlotCurrent("camp1", "g1", "ad1"))
	assert.Equal(t, int64(100), repo.AdTotal("ad1"))
	assert.Equal(t, 1, repo.EventCount())
}

func TestRecordInvalidCount(t *testing.T) {
	repo := memledger.New()
	repo.AddAd("ad1", "ad1", "g1")
	repo.AddSlot("camp1", "g1", "ad1", 1000)
	svc := newService(repo)

	for _, count := range []int64{0, -5} {
		_, err := svc.RecordImpressions(context.Background(), port.RecordRequest{
			CampaignID: "camp1", GameID: "g1", AdID: "ad1", Count: count,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCount)
	}
	// aggregates untouched
	assert.Equal(t, int64(0), repo.SlotCurrent("camp1", "g1", "ad1"))
	assert.Equal(t, int64(0), repo.AdTotal("ad1"))
	assert.Equal(t, 0, repo.EventCount())
}

func TestRecordUnknownCampaignAndSlot(t *testing.T) {
	repo := memledger.New()
	repo.AddAd("ad1", "ad1", "g1")
	repo.AddSlot("camp1", "g1", "ad1", 1000)
	svc := newService(repo)
	ctx := context.Background()

	_, err := svc.RecordImpressions(ctx, port.RecordRequest{CampaignID: "nope", GameID: "g1", AdID: "ad1", Count: 1})
	assert.ErrorIs(t, err, domain.ErrCampaignNotFound)

	_, err = svc.RecordImpressions(ctx, port.RecordRequest{CampaignID: "camp1", GameID: "g9", AdID: "ad1", Count: 1})
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)

	_, err = svc.RecordImpressions(ctx, port.RecordRequest{CampaignID: "camp1", GameID: "g1", AdID: "ad9", Count: 1})
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)

	assert.Equal(t, 0, repo.EventCount())
}

// TestRecordAdImpressionsSelfHeals records for an ad the catalog never
// materialized; the aggregate is created on demand instead of failing.
func TestRecordAdImpressionsSelfHeals(t *testing.T) {
	repo := memledger.New()
	svc := newService(repo)

	res, err := svc.RecordAdImpressions(context.Background(), port.RecordAdRequest{
		AdID: "ad-new", GameID: "g1", Count: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.TotalImpressions)
	assert.Empty(t, res.Campaigns)
	assert.Equal(t, int64(42), repo.AdTotal("ad-new"))
}

// TestPartialProjectionAndReplay exhausts retries for one campaign,
// expects the structured partial failure, then replays the event and
// verifies only the unresolved campaign is touched.
func TestPartialProjectionAndReplay(t *testing.T) {
	repo := memledger.New()
	repo.AddAd("ad1", "ad1", "g1")
	repo.AddSlot("camp1", "g1", "ad1", 1000)
	repo.AddSlot("camp2", "g1", "ad1", 1000)
	repo.CampaignSlotsErr = func(campaignID string) error {
		if campaignID == "camp2" {
			return fmt.Errorf("%w: simulated", domain.ErrStorageContention)
		}
		return nil
	}
	svc := newService(repo)
	ctx := context.Background()

	res, err := svc.RecordImpressions(ctx, port.RecordRequest{
		CampaignID: "camp1", GameID: "g1", AdID: "ad1", Count: 300, EventID: "evt-p",
	})
	var partial *domain.PartialProjectionError
	require.True(t, errors.As(err, &partial), "expected partial projection error, got %v", err)
	assert.Equal(t, "evt-p", partial.EventID)
	assert.Equal(t, []string{"camp1"}, partial.Applied)
	assert.Equal(t, []string{"camp2"}, partial.Unresolved)
	// the triggering slot's counters still come back to the caller
	require.NotNil(t, res)
	assert.Equal(t, int64(300), res.CurrentImpressions)

	assert.Equal(t, int64(300), repo.SlotCurrent("camp1", "g1", "ad1"))
	assert.Equal(t, int64(0), repo.SlotCurrent("camp2", "g1", "ad1"))

	// storage recovered; retry the fan-out only
	repo.CampaignSlotsErr = nil
	proj, err := svc.ReplayEvent(ctx, "evt-p")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"camp1", "camp2"}, proj.Campaigns)

	assert.Equal(t, int64(300), repo.SlotCurrent("camp1", "g1", "ad1"))
	assert.Equal(t, int64(300), repo.SlotCurrent("camp2", "g1", "ad1"))
	assert.Equal(t, int64(300), repo.AdTotal("ad1"))
	assert.Equal(t, int64(300), repo.AdCampaign("ad1", "camp2"))
}

func TestReplayUnknownEvent(t *testing.T) {
	svc := newService(memledger.New())
	_, err := svc.ReplayEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

// TestConcurrentRecording ensures interleaved recordings against the
// same slot sum up without losing updates.
func TestConcurrentRecording(t *testing.T) {
	repo := memledger.New()
	repo.AddAd("ad1", "ad1", "g1")
	repo.AddSlot("camp1", "g1", "ad1", 100000)
	svc := newService(repo)

	const workers = 10
	const perWorker = int64(100)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.RecordImpressions(context.Background(), port.RecordRequest{
				CampaignID: "camp1", GameID: "g1", AdID: "ad1", Count: perWorker,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, repo.AdTotal("ad1"))
	assert.Equal(t, workers*perWorker, repo.SlotCurrent("camp1", "g1", "ad1"))
	assert.Equal(t, workers, repo.EventCount())
}

func TestEvaluateUnknownCampaign(t *testing.T) {
	svc := newService(memledger.New())
	_, err := svc.Evaluate(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrCampaignNotFound)
}

func TestGetAd(t *testing.T) {
	repo := memledger.New()
	repo.AddAd("ad1", "ad1", "g1")
	repo.AddSlot("camp1", "g1", "ad1", 1000)
	svc := newService(repo)
	ctx := context.Background()

	_, err := svc.GetAd(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrAdNotFound)

	_, err = svc.RecordImpressions(ctx, port.RecordRequest{CampaignID: "camp1", GameID: "g1", AdID: "ad1", Count: 7})
	require.NoError(t, err)

	ad, err := svc.GetAd(ctx, "ad1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), ad.TotalImpressions)
	assert.Equal(t, map[string]int64{"camp1": 7}, ad.CampaignImpressions)
}
