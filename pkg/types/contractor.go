package types

import "time"

// Tier identifies one of the three escalating sourcing pools, ordered by
// cost: internal registry lookups are cheapest, external discovery the
// most expensive.
type Tier int

const (
	TierRegistry     Tier = 1
	TierReengagement Tier = 2
	TierDiscovery    Tier = 3
)

func (t Tier) String() string {
	switch t {
	case TierRegistry:
		return "registry"
	case TierReengagement:
		return "re-engagement"
	case TierDiscovery:
		return "discovery"
	default:
		return "unknown"
	}
}

// Tiers lists the sourcing tiers in cost order.
var Tiers = []Tier{TierRegistry, TierReengagement, TierDiscovery}

// TierCounts carries one integer per sourcing tier. Firestore cannot
// serialize integer-keyed maps, so per-tier values get explicit fields.
type TierCounts struct {
	Registry     int `json:"registry" firestore:"registry"`
	Reengagement int `json:"reengagement" firestore:"reengagement"`
	Discovery    int `json:"discovery" firestore:"discovery"`
}

// Get returns the count for a tier.
func (t TierCounts) Get(tier Tier) int {
	switch tier {
	case TierRegistry:
		return t.Registry
	case TierReengagement:
		return t.Reengagement
	case TierDiscovery:
		return t.Discovery
	}
	return 0
}

// Set assigns the count for a tier.
func (t *TierCounts) Set(tier Tier, n int) {
	switch tier {
	case TierRegistry:
		t.Registry = n
	case TierReengagement:
		t.Reengagement = n
	case TierDiscovery:
		t.Discovery = n
	}
}

// Add increments the count for a tier.
func (t *TierCounts) Add(tier Tier, n int) {
	t.Set(tier, t.Get(tier)+n)
}

// Total sums the counts across all tiers.
func (t TierCounts) Total() int {
	return t.Registry + t.Reengagement + t.Discovery
}

// TierFlags carries one boolean per sourcing tier.
type TierFlags struct {
	Registry     bool `json:"registry" firestore:"registry"`
	Reengagement bool `json:"reengagement" firestore:"reengagement"`
	Discovery    bool `json:"discovery" firestore:"discovery"`
}

// Get returns the flag for a tier.
func (t TierFlags) Get(tier Tier) bool {
	switch tier {
	case TierRegistry:
		return t.Registry
	case TierReengagement:
		return t.Reengagement
	case TierDiscovery:
		return t.Discovery
	}
	return false
}

// Set assigns the flag for a tier.
func (t *TierFlags) Set(tier Tier, v bool) {
	switch tier {
	case TierRegistry:
		t.Registry = v
	case TierReengagement:
		t.Reengagement = v
	case TierDiscovery:
		t.Discovery = v
	}
}

// Availability is a contractor's declared availability in the registry.
type Availability string

const (
	Available   Availability = "available"
	Unavailable Availability = "unavailable"
)

// CandidateContractor is a contractor proposed for outreach. Instances are
// produced by the sourcing pipeline and are read-only once attached to a
// campaign's outreach list.
type CandidateContractor struct {
	ID   string `json:"id" firestore:"id"`
	Name string `json:"name" firestore:"name"`
	Tier Tier   `json:"tier" firestore:"tier"`

	Capabilities []string     `json:"capabilities" firestore:"capabilities"`
	SizeClass    string       `json:"size_class,omitempty" firestore:"size_class"`
	ServiceAreas []string     `json:"service_areas" firestore:"service_areas"`
	Availability Availability `json:"availability" firestore:"availability"`

	Rating   float64   `json:"rating" firestore:"rating"`
	JoinedAt time.Time `json:"joined_at" firestore:"joined_at"`

	// Score is the 0-100 fit score from the scorer capability. It ranks
	// candidates; it never gates admission.
	Score int `json:"score" firestore:"score"`

	// Unscored marks tier-3 discoveries that still await asynchronous
	// enrichment; they rank last within their tier until enriched.
	Unscored bool `json:"unscored" firestore:"unscored"`

	// LastEngagedAt is the most recent prior outreach, set for tier-2
	// re-engagement candidates.
	LastEngagedAt *time.Time `json:"last_engaged_at,omitempty" firestore:"last_engaged_at"`

	// SourceRef points at the external record a discovery came from
	// (e.g. a places resource name).
	SourceRef string `json:"source_ref,omitempty" firestore:"source_ref"`
}

// ResponseStatus is the outcome of a single outreach attempt.
type ResponseStatus string

const (
	ResponsePending    ResponseStatus = "pending"
	ResponseInterested ResponseStatus = "interested"
	ResponseDeclined   ResponseStatus = "declined"
	// ResponsePermanentlyDeclined is immutable once set and excludes the
	// contractor from all future re-engagement sourcing.
	ResponsePermanentlyDeclined ResponseStatus = "permanently_declined"
)

// Responded reports whether the status represents a contractor reply.
func (s ResponseStatus) Responded() bool {
	return s == ResponseInterested || s == ResponseDeclined || s == ResponsePermanentlyDeclined
}

// Valid reports whether s is a status a delivery collaborator may report.
func (s ResponseStatus) Valid() bool {
	switch s {
	case ResponseInterested, ResponseDeclined, ResponsePermanentlyDeclined:
		return true
	}
	return false
}

// OutreachAttempt links a campaign to a contacted contractor and carries
// the per-pair response state.
type OutreachAttempt struct {
	CampaignID   string         `json:"campaign_id" firestore:"campaign_id"`
	ContractorID string         `json:"contractor_id" firestore:"contractor_id"`
	Tier         Tier           `json:"tier" firestore:"tier"`
	Channel      string         `json:"channel" firestore:"channel"`
	AttemptedAt  time.Time      `json:"attempted_at" firestore:"attempted_at"`
	Status       ResponseStatus `json:"status" firestore:"status"`
	RespondedAt  *time.Time     `json:"responded_at,omitempty" firestore:"responded_at"`
}
