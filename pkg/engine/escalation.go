package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/hirewire/outreach/pkg/planner"
	"github.com/hirewire/outreach/pkg/types"
)

// escalationThresholds maps a progress ratio to an escalation level. The
// table is data, not control flow, so deployments can retune it. Rows are
// ordered: the first row whose bound exceeds the ratio wins.
var escalationThresholds = []struct {
	Below float64
	Level types.EscalationLevel
}{
	{0.25, types.LevelCritical},
	{0.50, types.LevelSevere},
	{0.75, types.LevelModerate},
	{0.90, types.LevelMild},
}

// highRiskTighten is added to every bound when the timing plan was built
// against a compressed deadline override.
const highRiskTighten = 0.05

// LevelFor derives the escalation level from actual/expected progress.
func LevelFor(ratio float64, highRisk bool) types.EscalationLevel {
	tighten := 0.0
	if highRisk {
		tighten = highRiskTighten
	}
	level := types.LevelNone
	for _, row := range escalationThresholds {
		if ratio < row.Below+tighten {
			level = row.Level
			break
		}
	}
	return level
}

// Decision is the outcome of evaluating one check-in.
type Decision struct {
	Record types.CheckInRecord
	// Widen requests additional sourcing from Tier for Additional
	// contacts; set when the level is above none and a tier has headroom.
	Widen      bool
	Tier       types.Tier
	Additional int
	// Intervene flags the campaign for external intervention: every tier
	// is exhausted and the level is severe or critical.
	Intervene bool
}

// evaluateProgress compares actual against expected progress at a check-in
// and decides whether and how to widen sourcing. Pure: no I/O, no clock.
func evaluateProgress(c *types.Campaign, seq int, fraction float64, now time.Time, capacity map[types.Tier]int) Decision {
	expected := float64(c.Request.TargetBidCount) * fraction
	actual := float64(c.Counters.Responded)

	ratio := 1.0
	if expected > 0 {
		ratio = actual / expected
	}
	level := LevelFor(ratio, c.Plan.HighRisk)

	d := Decision{
		Record: types.CheckInRecord{
			Seq:               seq,
			EvaluatedAt:       now,
			Fraction:          fraction,
			ExpectedContacts:  int(math.Ceil(float64(c.Plan.TotalQuota) * fraction)),
			ExpectedResponses: expected,
			ActualContacted:   c.Counters.Contacted,
			ActualResponded:   c.Counters.Responded,
			Level:             level,
		},
	}
	if seq < len(c.CheckInPlan) {
		d.Record.ScheduledAt = c.CheckInPlan[seq].At
	}

	if level == types.LevelNone {
		return d
	}

	tier := c.NextUnexhaustedTier(capacity)
	if tier == 0 {
		d.Intervene = level >= types.LevelSevere
		return d
	}

	d.Widen = true
	d.Tier = tier
	d.Additional = planner.AdditionalContacts(expected, actual, c.Plan.WeightedRate)
	return d
}

// interventionReason renders the operator-facing summary for an exhausted
// escalation.
func interventionReason(d Decision) string {
	return fmt.Sprintf("all sourcing tiers exhausted at %s escalation (%d/%0.1f responses expected)",
		d.Record.Level, d.Record.ActualResponded, d.Record.ExpectedResponses)
}
