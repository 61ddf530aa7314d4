package types

import "time"

// EscalationLevel is the computed severity of under-performance relative
// to expected progress at a check-in. Levels are ordered; anything above
// LevelNone triggers a widening action.
type EscalationLevel int

const (
	LevelNone EscalationLevel = iota
	LevelMild
	LevelModerate
	LevelSevere
	LevelCritical
)

func (l EscalationLevel) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelMild:
		return "mild"
	case LevelModerate:
		return "moderate"
	case LevelSevere:
		return "severe"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// CheckInRecord is the append-only record of one scheduled evaluation:
// the expected-progress snapshot for that fraction of the window, the
// actual progress, and the resulting escalation level.
type CheckInRecord struct {
	Seq         int       `json:"seq" firestore:"seq"`
	ScheduledAt time.Time `json:"scheduled_at" firestore:"scheduled_at"`
	EvaluatedAt time.Time `json:"evaluated_at" firestore:"evaluated_at"`
	Fraction    float64   `json:"fraction" firestore:"fraction"`

	ExpectedContacts  int     `json:"expected_contacts" firestore:"expected_contacts"`
	ExpectedResponses float64 `json:"expected_responses" firestore:"expected_responses"`
	ActualContacted   int     `json:"actual_contacted" firestore:"actual_contacted"`
	ActualResponded   int     `json:"actual_responded" firestore:"actual_responded"`

	Level EscalationLevel `json:"level" firestore:"level"`
}
