package planner

import (
	"math"
	"time"

	"github.com/hirewire/outreach/pkg/taxonomy"
	"github.com/hirewire/outreach/pkg/types"
)

// overrideWindows maps days remaining until an explicit deadline override
// to the campaign window used in its place. Kept as a table so deployments
// can tune the policy without touching control flow.
var overrideWindows = []struct {
	MaxDays int
	Window  time.Duration
}{
	{3, 6 * time.Hour},
	{7, 24 * time.Hour},
	{14, 72 * time.Hour},
}

const overrideWindowDefault = 120 * time.Hour

// Planner computes timing plans from campaign requests.
type Planner struct {
	model    *RateModel
	capacity map[types.Tier]int
}

// New creates a planner over the given rate model and per-tier capacities.
func New(model *RateModel, capacity map[types.Tier]int) *Planner {
	return &Planner{model: model, capacity: capacity}
}

// Capacity exposes the configured per-tier capacities.
func (p *Planner) Capacity() map[types.Tier]int {
	return p.capacity
}

// Model exposes the underlying rate model.
func (p *Planner) Model() *RateModel {
	return p.model
}

// Plan validates the request and produces a TimingPlan. Tier quotas are
// filled greedily in cost order: each tier is asked for
// ceil(remainingBidsNeeded / tierRate) contacts and its expected responses
// reduce what the next tier must cover. Configured capacities cap the
// cheaper tiers only; the last tier absorbs the remainder uncapped so the
// total quota always covers the target. Shortfall against the actual
// candidate pool rolls forward at sourcing time, not here.
func (p *Planner) Plan(req types.CampaignRequest, now time.Time) (*types.TimingPlan, error) {
	if req.TargetBidCount < 1 {
		return nil, taxonomy.Newf(taxonomy.CodeInvalidInput, "target_bid_count must be >= 1, got %d", req.TargetBidCount)
	}

	window, err := p.model.Window(req.Urgency)
	if err != nil {
		return nil, err
	}

	highRisk := false
	if req.DeadlineOverride != nil {
		remaining := req.DeadlineOverride.Sub(now)
		if remaining <= 0 {
			return nil, taxonomy.New(taxonomy.CodeInvalidInput, "deadline_override is in the past")
		}
		if remaining < window {
			// The override leaves less time than the urgency level
			// assumes; it wins, and rate assumptions become higher-risk.
			window = windowForRemaining(remaining)
			highRisk = true
		}
	}

	var quotas types.TierCounts
	remainingBids := float64(req.TargetBidCount)
	total := 0
	expected := 0.0

	for i, tier := range types.Tiers {
		if remainingBids <= 0 {
			break
		}
		rate, err := p.model.ExpectedRate(tier, req.Urgency)
		if err != nil {
			return nil, err
		}
		quota := int(math.Ceil(remainingBids / rate))
		if max, ok := p.capacity[tier]; ok && quota > max && i < len(types.Tiers)-1 {
			quota = max
		}
		if quota <= 0 {
			continue
		}
		quotas.Set(tier, quota)
		total += quota
		expected += float64(quota) * rate
		remainingBids -= float64(quota) * rate
	}

	weighted := defaultRates[types.TierRegistry]
	if total > 0 {
		weighted = expected / float64(total)
	}

	return &types.TimingPlan{
		Deadline:     now.Add(window),
		Window:       window,
		TierQuotas:   quotas,
		TotalQuota:   total,
		WeightedRate: weighted,
		HighRisk:     highRisk,
	}, nil
}

// windowForRemaining applies the days-remaining override policy.
func windowForRemaining(remaining time.Duration) time.Duration {
	days := int(math.Ceil(remaining.Hours() / 24))
	for _, row := range overrideWindows {
		if days <= row.MaxDays {
			return row.Window
		}
	}
	return overrideWindowDefault
}

// AdditionalContacts computes the widening size for an escalation: the
// number of extra contacts needed to close the gap between expected and
// actual progress under the plan's weighted response rate.
func AdditionalContacts(expected, actual, weightedRate float64) int {
	if weightedRate <= 0 {
		weightedRate = defaultRates[types.TierDiscovery]
	}
	gap := expected - actual
	if gap <= 0 {
		return 0
	}
	return int(math.Ceil(gap / weightedRate))
}
