// Package planner converts a target bid count and urgency level into a
// deadline and per-tier contact quotas, using a configured response-rate
// model.
package planner

import (
	"time"

	"github.com/hirewire/outreach/pkg/taxonomy"
	"github.com/hirewire/outreach/pkg/types"
)

// LevelConfig holds the timing assumptions for one urgency level: its
// default deadline window and the expected response probability per tier.
type LevelConfig struct {
	Window time.Duration
	Rates  map[types.Tier]float64
}

// RateModel maps (urgency level, tier) to an expected response probability
// in (0,1]. Values are configuration data, not computed; an unknown urgency
// level is a configuration error surfaced at campaign creation.
type RateModel struct {
	levels map[types.UrgencyLevel]LevelConfig
}

// defaultRates apply to every canonical urgency level unless overridden.
var defaultRates = map[types.Tier]float64{
	types.TierRegistry:     0.90,
	types.TierReengagement: 0.75,
	types.TierDiscovery:    0.50,
}

// DefaultRateModel returns the canonical five-level model.
func DefaultRateModel() *RateModel {
	return &RateModel{levels: map[types.UrgencyLevel]LevelConfig{
		types.UrgencyEmergency:    {Window: 6 * time.Hour, Rates: defaultRates},
		types.UrgencyUrgent:       {Window: 24 * time.Hour, Rates: defaultRates},
		types.UrgencyStandard:     {Window: 72 * time.Hour, Rates: defaultRates},
		types.UrgencyGroupBidding: {Window: 120 * time.Hour, Rates: defaultRates},
		types.UrgencyFlexible:     {Window: 168 * time.Hour, Rates: defaultRates},
	}}
}

// NewRateModel builds a model from explicit level configuration.
func NewRateModel(levels map[types.UrgencyLevel]LevelConfig) *RateModel {
	return &RateModel{levels: levels}
}

// ExpectedRate returns the response probability for a tier under the given
// urgency level.
func (m *RateModel) ExpectedRate(tier types.Tier, urgency types.UrgencyLevel) (float64, error) {
	lvl, ok := m.levels[urgency]
	if !ok {
		return 0, taxonomy.Newf(taxonomy.CodeUnknownUrgency, "urgency level %q is not configured", urgency)
	}
	rate, ok := lvl.Rates[tier]
	if !ok || rate <= 0 || rate > 1 {
		return 0, taxonomy.Newf(taxonomy.CodeUnknownUrgency, "no usable rate for tier %s under urgency %q", tier, urgency)
	}
	return rate, nil
}

// Window returns the default deadline window for an urgency level.
func (m *RateModel) Window(urgency types.UrgencyLevel) (time.Duration, error) {
	lvl, ok := m.levels[urgency]
	if !ok {
		return 0, taxonomy.Newf(taxonomy.CodeUnknownUrgency, "urgency level %q is not configured", urgency)
	}
	return lvl.Window, nil
}
