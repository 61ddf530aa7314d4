// Package engine implements the campaign lifecycle manager: the state
// machine that plans outreach timing, executes the sourcing cascade,
// tracks progress against scheduled check-ins, and escalates when
// response rates lag.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirewire/outreach/pkg/planner"
	"github.com/hirewire/outreach/pkg/retry"
	"github.com/hirewire/outreach/pkg/sourcing"
	"github.com/hirewire/outreach/pkg/store"
	"github.com/hirewire/outreach/pkg/taxonomy"
	"github.com/hirewire/outreach/pkg/types"
)

// defaultChannel is stamped on new outreach attempts; the delivery
// collaborator may fan out to other channels and reports back per
// contractor either way.
const defaultChannel = "email"

// Sourcer runs the tier cascade; satisfied by *sourcing.Pipeline.
type Sourcer interface {
	Source(ctx context.Context, req sourcing.Requirements, quotas types.TierCounts, total int, exclude map[string]bool) (*sourcing.Result, error)
}

// Notifier publishes collaborator signals; satisfied by *notify.Publisher.
type Notifier interface {
	Intervention(ctx context.Context, c *types.Campaign, level types.EscalationLevel, reason string) error
	Degraded(ctx context.Context, campaignID string, tier types.Tier, cause error)
}

// Deps are the collaborators an Engine is assembled from.
type Deps struct {
	Store    store.Store
	Planner  *planner.Planner
	Sourcer  Sourcer
	Notifier Notifier
	Log      *zap.SugaredLogger

	// Clock defaults to wall time; tests inject a fake.
	Clock Clock
	// Fractions defaults to DefaultFractions.
	Fractions []float64
	// CommitRetries bounds the PersistenceConflict retry budget.
	CommitRetries int
}

// Engine is the campaign lifecycle manager. It owns every campaign ledger
// exclusively: all mutation happens under the per-campaign lock and a
// revision-checked store commit.
type Engine struct {
	store    store.Store
	planner  *planner.Planner
	sourcer  Sourcer
	notifier Notifier
	log      *zap.SugaredLogger
	clock    Clock

	fractions   []float64
	commitRetry retry.Config
	locks       *lockTable

	mu       sync.Mutex
	watchers map[string]context.CancelFunc

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New assembles an engine.
func New(deps Deps) *Engine {
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	if len(deps.Fractions) == 0 {
		deps.Fractions = DefaultFractions
	}
	commitRetry := retry.Defaults.Commit
	if deps.CommitRetries > 0 {
		commitRetry.MaxAttempts = deps.CommitRetries
		commitRetry.Strategy = &retry.LinearBackoff{Delay: 25 * time.Millisecond, MaxAttempts: deps.CommitRetries}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:       deps.Store,
		planner:     deps.Planner,
		sourcer:     deps.Sourcer,
		notifier:    deps.Notifier,
		log:         deps.Log,
		clock:       deps.Clock,
		fractions:   deps.Fractions,
		commitRetry: commitRetry,
		locks:       newLockTable(),
		watchers:    make(map[string]context.CancelFunc),
		baseCtx:     ctx,
		baseCancel:  cancel,
	}
}

// CreateCampaign validates a structured request, computes its timing plan,
// persists the campaign in Scheduled state, and kicks off asynchronous
// activation. Validation failures return before anything is persisted;
// the campaign never enters Scheduled.
func (e *Engine) CreateCampaign(ctx context.Context, req types.CampaignRequest) (*types.Campaign, error) {
	if len(req.RequiredCategories) == 0 {
		return nil, taxonomy.New(taxonomy.CodeMissingField, "required_categories must not be empty")
	}

	now := e.clock.Now()
	plan, err := e.planner.Plan(req, now)
	if err != nil {
		return nil, err
	}

	c := &types.Campaign{
		ID:        uuid.New().String(),
		Request:   req,
		Plan:      *plan,
		State:     types.StateScheduled,
		Outreach:  make(map[string]*types.OutreachAttempt),
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.scheduleCheckIns(c)

	if err := e.store.CreateCampaign(ctx, c); err != nil {
		return nil, taxonomy.Wrap(err, taxonomy.CodeInternal)
	}

	e.log.Infow("campaign scheduled",
		"campaign", c.ID,
		"urgency", req.Urgency,
		"target_bids", req.TargetBidCount,
		"total_quota", plan.TotalQuota,
		"deadline", plan.Deadline,
		"high_risk", plan.HighRisk,
	)

	e.wg.Add(1)
	go e.activate(c.ID)

	return c, nil
}

// activate executes initial sourcing and brings the campaign live. The
// sourcing cascade runs without holding the campaign lock; only the state
// update takes it.
func (e *Engine) activate(campaignID string) {
	defer e.wg.Done()
	ctx := e.baseCtx

	c, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		e.log.Errorw("activation load failed", "campaign", campaignID, "error", err)
		return
	}
	if c.State != types.StateScheduled {
		return
	}

	reqs := sourcing.RequirementsFromRequest(c.Request)
	res, err := e.sourcer.Source(ctx, reqs, c.Plan.TierQuotas, c.Plan.TotalQuota, nil)
	if err != nil {
		e.log.Errorw("initial sourcing failed", "campaign", campaignID, "error", err)
		return
	}
	for _, d := range res.Degraded {
		e.notifier.Degraded(ctx, campaignID, d.Tier, d.Cause)
	}

	var plan []types.CheckInPoint
	updated, err := e.mutate(ctx, campaignID, func(c *types.Campaign) error {
		if c.State != types.StateScheduled {
			return errSkipCommit // cancelled while sourcing ran
		}
		now := e.clock.Now()
		c.ActivatedAt = &now
		e.scheduleCheckIns(c)
		e.attachCandidates(c, res, now)
		c.Counters.Targeted = c.Plan.TotalQuota
		c.State = types.StateActive
		plan = c.CheckInPlan
		return nil
	})
	if err != nil {
		e.log.Errorw("activation commit failed", "campaign", campaignID, "error", err)
		return
	}
	if updated == nil || updated.State != types.StateActive {
		return
	}

	e.log.Infow("campaign active",
		"campaign", campaignID,
		"contacted", updated.Counters.Contacted,
		"check_ins", len(plan),
	)

	watchCtx := e.watch(campaignID)
	e.wg.Add(1)
	go e.runScheduler(watchCtx, campaignID, plan)
}

// attachCandidates records outreach attempts for sourced candidates,
// keeping every ledger invariant: one attempt per contractor per campaign
// and contacted <= targeted.
func (e *Engine) attachCandidates(c *types.Campaign, res *sourcing.Result, now time.Time) {
	for _, cand := range res.Candidates {
		if _, exists := c.Outreach[cand.ID]; exists {
			continue
		}
		c.Outreach[cand.ID] = &types.OutreachAttempt{
			CampaignID:   c.ID,
			ContractorID: cand.ID,
			Tier:         cand.Tier,
			Channel:      defaultChannel,
			AttemptedAt:  now,
			Status:       types.ResponsePending,
		}
		c.Counters.Contacted++
	}
	for _, tier := range types.Tiers {
		if n := res.PerTier.Get(tier); n > 0 {
			c.TierSourced.Add(tier, n)
		}
		if res.Shortfall.Get(tier) {
			c.TierExhausted.Set(tier, true)
		}
	}
}

// evaluateCheckIn runs one scheduled evaluation. It reports done=true when
// the campaign has reached a terminal state. Long-running sourcing happens
// between two short lock-holding commits, and a cancellation that lands in
// that window suppresses the queued escalation.
func (e *Engine) evaluateCheckIn(ctx context.Context, campaignID string, seq int) (bool, error) {
	capacity := e.planner.Capacity()

	var decision Decision
	var final bool
	snapshot, err := e.mutate(ctx, campaignID, func(c *types.Campaign) error {
		if c.State.Terminal() {
			return errSkipCommit
		}
		if seq < 0 || seq >= len(c.CheckInPlan) {
			return errSkipCommit
		}
		for _, rec := range c.CheckIns {
			if rec.Seq == seq {
				return errSkipCommit // already evaluated; scheduling is idempotent
			}
		}

		// The fraction travels with the scheduled point so check-ins stay
		// aligned even when configured fractions collapse onto one instant.
		fraction := c.CheckInPlan[seq].Fraction
		final = fraction >= 1.0
		decision = evaluateProgress(c, seq, fraction, e.clock.Now(), capacity)
		c.CheckIns = append(c.CheckIns, decision.Record)

		switch {
		case final:
			e.closeAtDeadline(c, decision)
		case decision.Widen:
			c.State = types.StateEscalated
			c.Escalations = append(c.Escalations, types.EscalationEvent{
				At:         decision.Record.EvaluatedAt,
				Level:      decision.Record.Level,
				Tier:       decision.Tier,
				Additional: decision.Additional,
				Note:       "widening sourcing",
			})
		case decision.Intervene:
			c.Escalations = append(c.Escalations, types.EscalationEvent{
				At:           decision.Record.EvaluatedAt,
				Level:        decision.Record.Level,
				Intervention: true,
				Note:         interventionReason(decision),
			})
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if snapshot == nil {
		// Nothing committed: terminal or duplicate check-in.
		current, err := e.store.GetCampaign(ctx, campaignID)
		if err != nil {
			return true, nil
		}
		return current.State.Terminal(), nil
	}

	e.log.Infow("check-in evaluated",
		"campaign", campaignID,
		"seq", seq,
		"fraction", decision.Record.Fraction,
		"level", decision.Record.Level.String(),
		"responded", decision.Record.ActualResponded,
		"expected", decision.Record.ExpectedResponses,
	)

	if decision.Intervene && !final {
		if err := e.notifier.Intervention(ctx, snapshot, decision.Record.Level, interventionReason(decision)); err != nil {
			e.log.Warnw("intervention signal failed", "campaign", campaignID, "error", err)
		}
	}

	if snapshot.State.Terminal() {
		return true, nil
	}
	if decision.Widen {
		e.widen(ctx, snapshot, decision)
	}
	return false, nil
}

// closeAtDeadline applies the final disposition rule: at the 100%
// checkpoint the campaign completes with at least one bid in hand and
// fails otherwise.
func (e *Engine) closeAtDeadline(c *types.Campaign, decision Decision) {
	now := decision.Record.EvaluatedAt
	if c.Counters.BidsReceived >= 1 {
		c.State = types.StateCompleted
	} else {
		c.State = types.StateFailed
	}
	c.ClosedAt = &now
}

// widen executes an escalation action: source additional candidates from
// the decided tier, then fold them into the ledger and return the campaign
// to Monitoring. A campaign cancelled while sourcing ran is left untouched.
func (e *Engine) widen(ctx context.Context, c *types.Campaign, decision Decision) {
	reqs := sourcing.RequirementsFromRequest(c.Request)
	exclude := make(map[string]bool, len(c.Outreach))
	for id := range c.Outreach {
		exclude[id] = true
	}

	var quotas types.TierCounts
	quotas.Set(decision.Tier, decision.Additional)

	res, err := e.sourcer.Source(ctx, reqs, quotas, decision.Additional, exclude)
	if err != nil {
		e.log.Errorw("escalation sourcing failed", "campaign", c.ID, "tier", decision.Tier.String(), "error", err)
		res = &sourcing.Result{}
	}
	for _, d := range res.Degraded {
		e.notifier.Degraded(ctx, c.ID, d.Tier, d.Cause)
	}

	_, err = e.mutate(ctx, c.ID, func(c *types.Campaign) error {
		if c.State.Terminal() {
			return errSkipCommit // cancellation suppresses the queued action
		}
		now := e.clock.Now()
		e.attachCandidates(c, res, now)
		c.Counters.Targeted += decision.Additional
		if c.Counters.Targeted < c.Counters.Contacted {
			c.Counters.Targeted = c.Counters.Contacted
		}
		if c.State == types.StateEscalated {
			c.State = types.StateMonitoring
		}
		return nil
	})
	if err != nil {
		e.log.Errorw("escalation commit failed", "campaign", c.ID, "error", err)
	}
}

// IngestResponse applies a contractor reply reported by a delivery
// collaborator: updates the outreach attempt, advances the ledger
// counters, and completes the campaign once the bid target is met.
func (e *Engine) IngestResponse(ctx context.Context, campaignID, contractorID string, status types.ResponseStatus, at time.Time) error {
	if !status.Valid() {
		return taxonomy.Newf(taxonomy.CodeInvalidInput, "invalid response status %q", status)
	}

	_, err := e.mutate(ctx, campaignID, func(c *types.Campaign) error {
		if c.State.Terminal() {
			return errSkipCommit // late responses after close are dropped
		}
		attempt, ok := c.Outreach[contractorID]
		if !ok {
			return taxonomy.Newf(taxonomy.CodeInvalidInput, "no outreach attempt for contractor %s on campaign %s", contractorID, campaignID)
		}
		if attempt.Status == types.ResponsePermanentlyDeclined {
			return taxonomy.New(taxonomy.CodeAttemptImmutable, "attempt is permanently declined")
		}

		first := attempt.Status == types.ResponsePending
		attempt.Status = status
		ts := at
		attempt.RespondedAt = &ts

		if first {
			c.Counters.Responded++
		}
		if status == types.ResponseInterested && first {
			c.Counters.BidsReceived++
		}

		if c.Counters.BidsReceived >= c.Request.TargetBidCount && c.State.CanTransition(types.StateCompleted) {
			now := e.clock.Now()
			c.State = types.StateCompleted
			c.ClosedAt = &now
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.maybeStopWatcher(ctx, campaignID)
	return nil
}

// Cancel closes a campaign from any pre-terminal state. It is safe to call
// concurrently with an in-flight check-in: the terminal state suppresses
// any escalation action not yet committed.
func (e *Engine) Cancel(ctx context.Context, campaignID string) error {
	_, err := e.mutate(ctx, campaignID, func(c *types.Campaign) error {
		if c.State.Terminal() {
			return taxonomy.Newf(taxonomy.CodeStateConflict, "campaign %s is already closed", campaignID)
		}
		now := e.clock.Now()
		c.State = types.StateFailed
		c.ClosedAt = &now
		c.Escalations = append(c.Escalations, types.EscalationEvent{
			At:   now,
			Note: "cancelled externally",
		})
		return nil
	})
	if err != nil {
		return err
	}

	e.stopWatcher(campaignID)
	e.log.Infow("campaign cancelled", "campaign", campaignID)
	return nil
}

// GetCampaign returns a campaign snapshot.
func (e *Engine) GetCampaign(ctx context.Context, campaignID string) (*types.Campaign, error) {
	c, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, taxonomy.Newf(taxonomy.CodeCampaignNotFound, "campaign %s not found", campaignID)
		}
		return nil, taxonomy.Wrap(err, taxonomy.CodeInternal)
	}
	return c, nil
}

// ListCampaigns returns snapshots of every campaign.
func (e *Engine) ListCampaigns(ctx context.Context) ([]*types.Campaign, error) {
	return e.store.ListCampaigns(ctx)
}

// ApplyEnrichment upgrades a discovered contractor with the classification
// supplied by the enrichment collaborator, making it eligible for scoring
// on subsequent sourcing passes.
func (e *Engine) ApplyEnrichment(ctx context.Context, contractorID string, capabilities []string, sizeClass string, serviceAreas []string) error {
	c, err := e.store.GetContractor(ctx, contractorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return taxonomy.Newf(taxonomy.CodeInvalidInput, "contractor %s not found", contractorID)
		}
		return taxonomy.Wrap(err, taxonomy.CodeInternal)
	}

	c.Capabilities = capabilities
	c.SizeClass = sizeClass
	if len(serviceAreas) > 0 {
		c.ServiceAreas = serviceAreas
	}
	c.Unscored = false

	if err := e.store.UpsertContractor(ctx, c); err != nil {
		return taxonomy.Wrap(err, taxonomy.CodeInternal)
	}
	e.log.Infow("contractor enriched", "contractor", contractorID, "capabilities", len(capabilities))
	return nil
}

// Shutdown stops all campaign schedulers and waits for in-flight
// evaluations to drain.
func (e *Engine) Shutdown() {
	e.baseCancel()
	e.mu.Lock()
	for _, cancel := range e.watchers {
		cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// errSkipCommit aborts a mutate callback without writing or failing.
var errSkipCommit = errors.New("engine: skip commit")

// mutate serializes a ledger mutation: per-campaign lock, fresh read,
// apply, revision-checked commit. A stale revision (another process wrote
// concurrently) is re-read and retried within the bounded budget; past it
// the conflict surfaces as a hard failure.
func (e *Engine) mutate(ctx context.Context, campaignID string, fn func(c *types.Campaign) error) (*types.Campaign, error) {
	lock := e.locks.get(campaignID)
	lock.Lock()
	defer lock.Unlock()

	cfg := e.commitRetry
	cfg.OnRetry = func(attempt int, err error) {
		e.log.Warnw("ledger commit conflicted, retrying", "campaign", campaignID, "attempt", attempt)
	}

	var skipped bool
	c, err := retry.Do(ctx, func() (*types.Campaign, error) {
		c, err := e.store.GetCampaign(ctx, campaignID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, taxonomy.Newf(taxonomy.CodeCampaignNotFound, "campaign %s not found", campaignID)
			}
			return nil, taxonomy.Wrap(err, taxonomy.CodeInternal)
		}
		if err := fn(c); err != nil {
			if errors.Is(err, errSkipCommit) {
				skipped = true
				return nil, nil
			}
			return nil, err
		}
		c.UpdatedAt = e.clock.Now()
		if err := e.store.UpdateCampaign(ctx, c); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return nil, taxonomy.New(taxonomy.CodePersistenceConflict, "concurrent write on campaign ledger")
			}
			return nil, taxonomy.Wrap(err, taxonomy.CodeInternal)
		}
		return c, nil
	}, cfg)

	if skipped {
		return nil, nil
	}
	return c, err
}

// watch registers a cancellable context for a campaign's scheduler.
func (e *Engine) watch(campaignID string) context.Context {
	ctx, cancel := context.WithCancel(e.baseCtx)
	e.mu.Lock()
	e.watchers[campaignID] = cancel
	e.mu.Unlock()
	return ctx
}

func (e *Engine) stopWatcher(campaignID string) {
	e.mu.Lock()
	cancel, ok := e.watchers[campaignID]
	if ok {
		delete(e.watchers, campaignID)
	}
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

// maybeStopWatcher tears down the scheduler once a campaign has closed.
func (e *Engine) maybeStopWatcher(ctx context.Context, campaignID string) {
	c, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil || !c.State.Terminal() {
		return
	}
	e.stopWatcher(campaignID)
}
