package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/outreach/pkg/types"
)

func TestLevelForThresholds(t *testing.T) {
	cases := []struct {
		ratio float64
		want  types.EscalationLevel
	}{
		{0.10, types.LevelCritical},
		{0.24, types.LevelCritical},
		{0.25, types.LevelSevere},
		{0.40, types.LevelSevere},
		{0.49, types.LevelSevere},
		{0.50, types.LevelModerate},
		{0.74, types.LevelModerate},
		{0.75, types.LevelMild},
		{0.89, types.LevelMild},
		{0.90, types.LevelNone},
		{0.95, types.LevelNone},
		{1.20, types.LevelNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelFor(tc.ratio, false), "ratio %.2f", tc.ratio)
	}
}

func TestLevelForHighRiskTightens(t *testing.T) {
	// 0.91 clears every normal threshold but not the tightened mild bound.
	assert.Equal(t, types.LevelNone, LevelFor(0.91, false))
	assert.Equal(t, types.LevelMild, LevelFor(0.91, true))

	assert.Equal(t, types.LevelSevere, LevelFor(0.52, true))
	assert.Equal(t, types.LevelModerate, LevelFor(0.52, false))
}

func progressCampaign(target, contacted, responded int) *types.Campaign {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &types.Campaign{
		ID: "c-1",
		Request: types.CampaignRequest{
			TargetBidCount:     target,
			Urgency:            types.UrgencyUrgent,
			RequiredCategories: []string{"roofing"},
		},
		Plan: types.TimingPlan{
			Deadline:     base.Add(24 * time.Hour),
			Window:       24 * time.Hour,
			TotalQuota:   contacted,
			WeightedRate: 0.9,
		},
		State: types.StateMonitoring,
		Counters: types.Counters{
			Targeted:  contacted,
			Contacted: contacted,
			Responded: responded,
		},
		CheckInPlan: []types.CheckInPoint{
			{At: base.Add(6 * time.Hour), Fraction: 0.25},
			{At: base.Add(12 * time.Hour), Fraction: 0.50},
			{At: base.Add(18 * time.Hour), Fraction: 0.75},
			{At: base.Add(24 * time.Hour), Fraction: 1.0},
		},
	}
}

var fullCapacity = map[types.Tier]int{
	types.TierRegistry:     50,
	types.TierReengagement: 25,
	types.TierDiscovery:    40,
}

func TestEvaluateProgressOnTrack(t *testing.T) {
	c := progressCampaign(10, 12, 5)
	now := c.CheckInPlan[1].At

	d := evaluateProgress(c, 1, 0.5, now, fullCapacity)
	assert.Equal(t, types.LevelNone, d.Record.Level)
	assert.False(t, d.Widen)
	assert.False(t, d.Intervene)
	assert.Equal(t, 1, d.Record.Seq)
	assert.Equal(t, c.CheckInPlan[1].At, d.Record.ScheduledAt)
	assert.InDelta(t, 5.0, d.Record.ExpectedResponses, 1e-9)
}

func TestEvaluateProgressWidens(t *testing.T) {
	// 2 of 5 expected responses is a 0.4 ratio: severe, widen from the
	// cheapest tier with headroom.
	c := progressCampaign(10, 12, 2)
	d := evaluateProgress(c, 1, 0.5, c.CheckInPlan[1].At, fullCapacity)

	require.True(t, d.Widen)
	assert.Equal(t, types.LevelSevere, d.Record.Level)
	assert.Equal(t, types.TierRegistry, d.Tier)
	// gap of 3 expected responses at the 0.9 weighted rate.
	assert.Equal(t, 4, d.Additional)
	assert.False(t, d.Intervene)
}

func TestEvaluateProgressSkipsExhaustedTiers(t *testing.T) {
	c := progressCampaign(10, 12, 2)
	c.TierExhausted.Set(types.TierRegistry, true)

	d := evaluateProgress(c, 1, 0.5, c.CheckInPlan[1].At, fullCapacity)
	require.True(t, d.Widen)
	assert.Equal(t, types.TierReengagement, d.Tier)

	// A tier at its configured capacity counts as exhausted too.
	c.TierSourced.Set(types.TierReengagement, 25)
	d = evaluateProgress(c, 1, 0.5, c.CheckInPlan[1].At, fullCapacity)
	require.True(t, d.Widen)
	assert.Equal(t, types.TierDiscovery, d.Tier)
}

func TestEvaluateProgressIntervenesWhenExhausted(t *testing.T) {
	c := progressCampaign(10, 12, 2)
	for _, tier := range types.Tiers {
		c.TierExhausted.Set(tier, true)
	}

	d := evaluateProgress(c, 1, 0.5, c.CheckInPlan[1].At, fullCapacity)
	assert.False(t, d.Widen)
	assert.True(t, d.Intervene)

	// A mild lag with exhausted tiers waits rather than paging anyone.
	c.Counters.Responded = 4
	d = evaluateProgress(c, 1, 0.5, c.CheckInPlan[1].At, fullCapacity)
	assert.Equal(t, types.LevelMild, d.Record.Level)
	assert.False(t, d.Widen)
	assert.False(t, d.Intervene)
}
