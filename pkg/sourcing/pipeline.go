package sourcing

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/hirewire/outreach/pkg/timeout"
	"github.com/hirewire/outreach/pkg/types"
)

// TierSource is one sourcing pool in the cascade. Discover returns up to
// quota ranked candidates; a failing data source returns an error, which
// the pipeline absorbs as a degraded-sourcing condition.
type TierSource interface {
	Tier() types.Tier
	Discover(ctx context.Context, req Requirements, quota int) ([]*types.CandidateContractor, error)
}

// DegradedTier records one absorbed tier failure for the campaign's audit
// history.
type DegradedTier struct {
	Tier  types.Tier
	Cause error
}

// Result is the outcome of one pipeline run.
type Result struct {
	Candidates []*types.CandidateContractor
	// PerTier counts the candidates obtained from each tier.
	PerTier types.TierCounts
	// Shortfall marks tiers whose pool returned fewer candidates than
	// asked, the signal that a tier is exhausted for this campaign.
	Shortfall types.TierFlags
	// Degraded lists tiers whose data source was unavailable; these are
	// skipped, not exhausted.
	Degraded []DegradedTier
}

// Pipeline evaluates the tier cascade in cost order. Tiers 1 and 2 are
// always attempted before tier 3 is invoked; tier 3 is skipped when the
// cumulative candidate count already meets the requested total.
type Pipeline struct {
	sources  []TierSource
	timeouts *timeout.Manager
	log      *zap.SugaredLogger
}

// NewPipeline assembles a pipeline from tier sources, ordered by tier.
func NewPipeline(timeouts *timeout.Manager, log *zap.SugaredLogger, sources ...TierSource) *Pipeline {
	ordered := make([]TierSource, len(sources))
	copy(ordered, sources)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Tier() < ordered[j].Tier() })
	return &Pipeline{sources: ordered, timeouts: timeouts, log: log}
}

var tierTimeoutOps = map[types.Tier]string{
	types.TierRegistry:     "sourcing.tier1",
	types.TierReengagement: "sourcing.tier2",
	types.TierDiscovery:    "sourcing.tier3",
}

// Source runs the cascade for the given per-tier quotas. Candidates whose
// identity appears in exclude (already attached to the campaign) are
// dropped, and each candidate appears at most once in the result. A tier's
// unmet quota rolls forward to the next tier.
func (p *Pipeline) Source(ctx context.Context, req Requirements, quotas types.TierCounts, total int, exclude map[string]bool) (*Result, error) {
	res := &Result{}
	seen := make(map[string]bool, total)
	carried := 0

	for _, src := range p.sources {
		tier := src.Tier()
		ask := quotas.Get(tier) + carried
		if ask <= 0 {
			continue
		}
		if tier == types.TierDiscovery && len(res.Candidates) >= total {
			// Internal pools already met the quota; skip the expensive
			// external call.
			break
		}

		got, err := p.discover(ctx, src, req, ask)
		if err != nil {
			p.log.Warnw("tier source unavailable, sourcing degraded",
				"tier", tier.String(), "asked", ask, "error", err)
			res.Degraded = append(res.Degraded, DegradedTier{Tier: tier, Cause: err})
			carried = ask
			continue
		}

		kept := 0
		for _, c := range got {
			if exclude[c.ID] || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			res.Candidates = append(res.Candidates, c)
			kept++
		}
		res.PerTier.Add(tier, kept)

		if kept < ask {
			res.Shortfall.Set(tier, true)
			carried = ask - kept
		} else {
			carried = 0
		}
	}

	return res, nil
}

func (p *Pipeline) discover(ctx context.Context, src TierSource, req Requirements, quota int) ([]*types.CandidateContractor, error) {
	op := tierTimeoutOps[src.Tier()]
	ctx, cancel := p.timeouts.WithTimeout(ctx, op)
	defer cancel()
	return src.Discover(ctx, req, quota)
}
