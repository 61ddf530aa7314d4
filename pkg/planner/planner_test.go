package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/outreach/pkg/taxonomy"
	"github.com/hirewire/outreach/pkg/types"
)

var testCapacity = map[types.Tier]int{
	types.TierRegistry:     50,
	types.TierReengagement: 25,
	types.TierDiscovery:    40,
}

func testPlanner() *Planner {
	return New(DefaultRateModel(), testCapacity)
}

func TestPlanFillsTier1First(t *testing.T) {
	p := testPlanner()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	plan, err := p.Plan(types.CampaignRequest{
		TargetBidCount:     4,
		Urgency:            types.UrgencyEmergency,
		RequiredCategories: []string{"roofing"},
	}, now)
	require.NoError(t, err)

	// ceil(4 / 0.9) = 5 contacts from tier 1 already covers the target.
	assert.Equal(t, 5, plan.TierQuotas.Registry)
	assert.Equal(t, 0, plan.TierQuotas.Reengagement)
	assert.Equal(t, 0, plan.TierQuotas.Discovery)
	assert.Equal(t, 5, plan.TotalQuota)
	assert.Equal(t, now.Add(6*time.Hour), plan.Deadline)
	assert.InDelta(t, 0.9, plan.WeightedRate, 1e-9)
	assert.False(t, plan.HighRisk)
}

func TestPlanCascadesAcrossTiers(t *testing.T) {
	p := testPlanner()
	now := time.Now()

	plan, err := p.Plan(types.CampaignRequest{
		TargetBidCount:     100,
		Urgency:            types.UrgencyStandard,
		RequiredCategories: []string{"plumbing"},
	}, now)
	require.NoError(t, err)

	// Tier 1 caps at 50 (expected 45 bids), tier 2 at 25 (18.75). The
	// remaining 36.25 bids land on discovery uncapped: ceil(36.25/0.5) = 73.
	assert.Equal(t, 50, plan.TierQuotas.Registry)
	assert.Equal(t, 25, plan.TierQuotas.Reengagement)
	assert.Equal(t, 73, plan.TierQuotas.Discovery)
	assert.Equal(t, 148, plan.TotalQuota)
	assert.Greater(t, plan.WeightedRate, 0.0)
	assert.LessOrEqual(t, plan.WeightedRate, 1.0)
}

func TestPlanTotalQuotaCoversTarget(t *testing.T) {
	p := testPlanner()
	now := time.Now()

	// The total quota must cover the target even past the combined
	// configured capacity (115 with the test tiers).
	for _, target := range []int{1, 4, 115, 116, 200, 1000} {
		plan, err := p.Plan(types.CampaignRequest{
			TargetBidCount:     target,
			Urgency:            types.UrgencyStandard,
			RequiredCategories: []string{"roofing"},
		}, now)
		require.NoError(t, err, "target %d", target)
		assert.GreaterOrEqual(t, plan.TotalQuota, target, "target %d", target)
	}
}

func TestPlanWindowsPerUrgency(t *testing.T) {
	p := testPlanner()
	now := time.Now()

	windows := map[types.UrgencyLevel]time.Duration{
		types.UrgencyEmergency:    6 * time.Hour,
		types.UrgencyUrgent:       24 * time.Hour,
		types.UrgencyStandard:     72 * time.Hour,
		types.UrgencyGroupBidding: 120 * time.Hour,
		types.UrgencyFlexible:     168 * time.Hour,
	}
	for urgency, want := range windows {
		plan, err := p.Plan(types.CampaignRequest{
			TargetBidCount:     3,
			Urgency:            urgency,
			RequiredCategories: []string{"hvac"},
		}, now)
		require.NoError(t, err, "urgency %s", urgency)
		assert.Equal(t, want, plan.Window, "urgency %s", urgency)
	}
}

func TestPlanDeadlineOverrideCompressesWindow(t *testing.T) {
	p := testPlanner()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Two days out is tighter than the standard 72h window: the override
	// wins and the plan is flagged high risk.
	override := now.Add(48 * time.Hour)
	plan, err := p.Plan(types.CampaignRequest{
		TargetBidCount:     2,
		Urgency:            types.UrgencyStandard,
		RequiredCategories: []string{"electrical"},
		DeadlineOverride:   &override,
	}, now)
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, plan.Window)
	assert.True(t, plan.HighRisk)

	// An override looser than the urgency window changes nothing.
	loose := now.Add(240 * time.Hour)
	plan, err = p.Plan(types.CampaignRequest{
		TargetBidCount:     2,
		Urgency:            types.UrgencyUrgent,
		RequiredCategories: []string{"electrical"},
		DeadlineOverride:   &loose,
	}, now)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, plan.Window)
	assert.False(t, plan.HighRisk)
}

func TestPlanRejectsInvalidRequests(t *testing.T) {
	p := testPlanner()
	now := time.Now()

	_, err := p.Plan(types.CampaignRequest{
		TargetBidCount:     0,
		Urgency:            types.UrgencyUrgent,
		RequiredCategories: []string{"hvac"},
	}, now)
	assert.True(t, taxonomy.Is(err, taxonomy.CodeInvalidInput))

	past := now.Add(-time.Hour)
	_, err = p.Plan(types.CampaignRequest{
		TargetBidCount:     2,
		Urgency:            types.UrgencyUrgent,
		RequiredCategories: []string{"hvac"},
		DeadlineOverride:   &past,
	}, now)
	assert.True(t, taxonomy.Is(err, taxonomy.CodeInvalidInput))

	_, err = p.Plan(types.CampaignRequest{
		TargetBidCount:     2,
		Urgency:            types.UrgencyLevel("someday"),
		RequiredCategories: []string{"hvac"},
	}, now)
	assert.True(t, taxonomy.Is(err, taxonomy.CodeUnknownUrgency))
}

func TestExpectedRateBounds(t *testing.T) {
	model := NewRateModel(map[types.UrgencyLevel]LevelConfig{
		types.UrgencyUrgent: {
			Window: 24 * time.Hour,
			Rates:  map[types.Tier]float64{types.TierRegistry: 1.5},
		},
	})

	_, err := model.ExpectedRate(types.TierRegistry, types.UrgencyUrgent)
	assert.Error(t, err, "rates above 1 are configuration errors")

	_, err = model.ExpectedRate(types.TierReengagement, types.UrgencyUrgent)
	assert.Error(t, err, "missing tier rate is a configuration error")
}

func TestAdditionalContacts(t *testing.T) {
	assert.Equal(t, 2, AdditionalContacts(2.0, 1.0, 0.9))
	assert.Equal(t, 0, AdditionalContacts(2.0, 3.0, 0.9))
	assert.Equal(t, 4, AdditionalContacts(2.0, 0.0, 0.5))
	// A degenerate rate falls back to the discovery default instead of
	// dividing by zero.
	assert.Equal(t, 4, AdditionalContacts(2.0, 0.0, 0))
}
