package types

import "time"

// UrgencyLevel controls deadline length and response-rate assumptions.
type UrgencyLevel string

const (
	UrgencyEmergency    UrgencyLevel = "emergency"
	UrgencyUrgent       UrgencyLevel = "urgent"
	UrgencyStandard     UrgencyLevel = "standard"
	UrgencyGroupBidding UrgencyLevel = "group_bidding"
	UrgencyFlexible     UrgencyLevel = "flexible"
)

// CampaignState is the lifecycle state of a campaign.
type CampaignState string

const (
	StateDraft      CampaignState = "draft"
	StateScheduled  CampaignState = "scheduled"
	StateActive     CampaignState = "active"
	StateMonitoring CampaignState = "monitoring"
	StateEscalated  CampaignState = "escalated"
	StateCompleted  CampaignState = "completed"
	StateFailed     CampaignState = "failed"
)

// Terminal reports whether no further transition is reachable from s.
func (s CampaignState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// stateRank orders states for the monotonicity check. Monitoring and
// Escalated share a rank because the state machine oscillates between them.
var stateRank = map[CampaignState]int{
	StateDraft:      0,
	StateScheduled:  1,
	StateActive:     2,
	StateMonitoring: 3,
	StateEscalated:  3,
	StateCompleted:  4,
	StateFailed:     4,
}

// CanTransition reports whether moving from s to next is a forward move.
// Regressions (e.g. Escalated back to Scheduled) are never allowed, and
// terminal states accept nothing.
func (s CampaignState) CanTransition(next CampaignState) bool {
	if s.Terminal() {
		return false
	}
	return stateRank[next] >= stateRank[s]
}

// CampaignRequest is the structured creation request produced by the
// upstream intake collaborator.
type CampaignRequest struct {
	TargetBidCount     int          `json:"target_bid_count" firestore:"target_bid_count"`
	Urgency            UrgencyLevel `json:"urgency_level" firestore:"urgency_level"`
	RequiredCategories []string     `json:"required_categories" firestore:"required_categories"`
	ServiceArea        string       `json:"service_area,omitempty" firestore:"service_area"`
	DeadlineOverride   *time.Time   `json:"deadline_override,omitempty" firestore:"deadline_override"`
	BudgetMin          *float64     `json:"budget_min,omitempty" firestore:"budget_min"`
	BudgetMax          *float64     `json:"budget_max,omitempty" firestore:"budget_max"`
}

// TimingPlan is the output of the timing planner: when the campaign must
// finish and how many contractors to contact per sourcing tier.
type TimingPlan struct {
	Deadline     time.Time     `json:"deadline" firestore:"deadline"`
	Window       time.Duration `json:"window" firestore:"window"`
	TierQuotas   TierCounts    `json:"tier_quotas" firestore:"tier_quotas"`
	TotalQuota   int           `json:"total_quota" firestore:"total_quota"`
	WeightedRate float64       `json:"weighted_rate" firestore:"weighted_rate"`
	// HighRisk is set when an explicit deadline override left less time
	// than the urgency level assumes; escalation thresholds tighten.
	HighRisk bool `json:"high_risk" firestore:"high_risk"`
}

// Counters are the aggregate progress counters of a campaign ledger.
// Invariants: Contacted <= Targeted and Responded <= Contacted.
type Counters struct {
	Targeted     int `json:"targeted" firestore:"targeted"`
	Contacted    int `json:"contacted" firestore:"contacted"`
	Responded    int `json:"responded" firestore:"responded"`
	BidsReceived int `json:"bids_received" firestore:"bids_received"`
}

// EscalationEvent records one escalation decision in the campaign's
// audit history.
type EscalationEvent struct {
	At           time.Time       `json:"at" firestore:"at"`
	Level        EscalationLevel `json:"level" firestore:"level"`
	Tier         Tier            `json:"tier,omitempty" firestore:"tier"`
	Additional   int             `json:"additional" firestore:"additional"`
	Intervention bool            `json:"intervention" firestore:"intervention"`
	Note         string          `json:"note,omitempty" firestore:"note"`
}

// CheckInPoint is one scheduled evaluation: the instant it fires and the
// deadline fraction it represents. The fraction travels with the instant
// so an evaluation never has to re-derive it from configuration.
type CheckInPoint struct {
	At       time.Time `json:"at" firestore:"at"`
	Fraction float64   `json:"fraction" firestore:"fraction"`
}

// Campaign is the persisted aggregate state of a single outreach campaign.
// It is owned exclusively by the orchestration engine; all mutation goes
// through the per-campaign lock and a revision-checked store commit.
type Campaign struct {
	ID      string          `json:"id" firestore:"id"`
	Request CampaignRequest `json:"request" firestore:"request"`
	Plan    TimingPlan      `json:"plan" firestore:"plan"`
	State   CampaignState   `json:"state" firestore:"state"`

	Counters Counters `json:"counters" firestore:"counters"`

	// Outreach is the per-contractor attempt set, keyed by contractor ID.
	// A contractor appears at most once per campaign.
	Outreach map[string]*OutreachAttempt `json:"outreach" firestore:"outreach"`

	// CheckInPlan holds the scheduled evaluation points, strictly
	// increasing and all within the deadline window.
	CheckInPlan []CheckInPoint  `json:"check_in_plan" firestore:"check_in_plan"`
	CheckIns    []CheckInRecord `json:"check_ins" firestore:"check_ins"`

	Escalations []EscalationEvent `json:"escalations" firestore:"escalations"`

	// TierSourced counts candidates obtained per tier; TierExhausted marks
	// tiers whose pool came up short of the quota requested from them.
	TierSourced   TierCounts `json:"tier_sourced" firestore:"tier_sourced"`
	TierExhausted TierFlags  `json:"tier_exhausted" firestore:"tier_exhausted"`

	CreatedAt   time.Time  `json:"created_at" firestore:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty" firestore:"activated_at"`
	UpdatedAt   time.Time  `json:"updated_at" firestore:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty" firestore:"closed_at"`

	// Revision guards against concurrent writers; the store rejects a
	// commit whose revision does not match the persisted document.
	Revision int64 `json:"revision" firestore:"revision"`
}

// Progress returns the campaign's current response progress snapshot.
func (c *Campaign) Progress() Counters {
	return c.Counters
}

// NextUnexhaustedTier returns the lowest-cost tier that still has sourcing
// headroom, or 0 when every tier is exhausted.
func (c *Campaign) NextUnexhaustedTier(capacity map[Tier]int) Tier {
	for _, t := range Tiers {
		if c.TierExhausted.Get(t) {
			continue
		}
		if max, ok := capacity[t]; ok && c.TierSourced.Get(t) >= max {
			continue
		}
		return t
	}
	return 0
}
