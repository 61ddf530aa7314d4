package engine

import (
	"context"
	"time"

	"github.com/hirewire/outreach/pkg/types"
)

// DefaultFractions are the canonical check-in points within the deadline
// window. The final checkpoint at 100% triggers the campaign's final
// disposition instead of a widening decision.
var DefaultFractions = []float64{0.25, 0.50, 0.75, 1.0}

// checkInPoints computes the evaluation points for a campaign window.
// Instants are strictly increasing and never exceed the deadline. When two
// fractions land on the same instant they collapse into one point carrying
// the larger fraction, so a final checkpoint is never lost.
func checkInPoints(activated, deadline time.Time, fractions []float64) []types.CheckInPoint {
	window := deadline.Sub(activated)
	points := make([]types.CheckInPoint, 0, len(fractions))
	var prev time.Time
	for _, f := range fractions {
		at := activated.Add(time.Duration(float64(window) * f))
		if at.After(deadline) {
			at = deadline
		}
		if !at.After(prev) {
			if n := len(points); n > 0 && f > points[n-1].Fraction {
				points[n-1].Fraction = f
			}
			continue
		}
		points = append(points, types.CheckInPoint{At: at, Fraction: f})
		prev = at
	}
	return points
}

// scheduleCheckIns fills the campaign's check-in plan from its activation
// time. Recomputing for an already-scheduled campaign is idempotent: the
// plan is derived deterministically and past evaluations are never
// duplicated (evaluateCheckIn skips sequences already on record).
func (e *Engine) scheduleCheckIns(c *types.Campaign) {
	at := c.CreatedAt
	if c.ActivatedAt != nil {
		at = *c.ActivatedAt
	}
	c.CheckInPlan = checkInPoints(at, c.Plan.Deadline, e.fractions)
}

// runScheduler drives a campaign's check-ins until the plan is spent, the
// campaign closes, or the engine shuts down. Each firing runs the
// evaluation as its own unit of work; this goroutine never holds the
// campaign lock while waiting.
func (e *Engine) runScheduler(ctx context.Context, campaignID string, plan []types.CheckInPoint) {
	defer e.wg.Done()

	// Entering steady state between check-ins.
	_, err := e.mutate(ctx, campaignID, func(c *types.Campaign) error {
		if c.State != types.StateActive {
			return errSkipCommit
		}
		c.State = types.StateMonitoring
		return nil
	})
	if err != nil {
		e.log.Errorw("failed to enter monitoring", "campaign", campaignID, "error", err)
		return
	}

	for seq, point := range plan {
		if wait := point.At.Sub(e.clock.Now()); wait > 0 {
			select {
			case <-e.clock.After(wait):
			case <-ctx.Done():
				return
			}
		}

		done, err := e.evaluateCheckIn(ctx, campaignID, seq)
		if err != nil {
			e.log.Errorw("check-in evaluation failed", "campaign", campaignID, "seq", seq, "error", err)
			continue
		}
		if done {
			return
		}
	}
}
