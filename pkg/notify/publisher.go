// Package notify publishes the engine's outbound collaborator signals:
// intervention requests when automated widening is exhausted, enrichment
// requests for raw tier-3 discoveries, and degraded-sourcing audit events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hirewire/outreach/pkg/gcp"
	"github.com/hirewire/outreach/pkg/timeout"
	"github.com/hirewire/outreach/pkg/types"
)

// InterventionSignal is emitted when all tiers are exhausted and the
// escalation level remains severe or critical. It is consumed by an
// external operator collaborator, never resolved by this engine.
type InterventionSignal struct {
	CampaignID string           `json:"campaign_id"`
	Level      string           `json:"level"`
	Reason     string           `json:"reason"`
	Counters   types.Counters   `json:"counters"`
	Plan       types.TimingPlan `json:"plan"`
	At         time.Time        `json:"at"`
}

// EnrichmentRequest asks the enrichment collaborator to classify a raw
// discovered entity.
type EnrichmentRequest struct {
	ContractorID string    `json:"contractor_id"`
	Name         string    `json:"name"`
	SourceRef    string    `json:"source_ref"`
	At           time.Time `json:"at"`
}

// AuditEvent records an absorbed degraded-mode condition.
type AuditEvent struct {
	CampaignID string    `json:"campaign_id"`
	Kind       string    `json:"kind"`
	Tier       string    `json:"tier,omitempty"`
	Detail     string    `json:"detail"`
	At         time.Time `json:"at"`
}

// Publisher sends collaborator signals over Pub/Sub.
type Publisher struct {
	client            *gcp.Client
	timeouts          *timeout.Manager
	interventionTopic string
	enrichmentTopic   string
	auditTopic        string
	log               *zap.SugaredLogger
}

// NewPublisher creates a publisher over the given topics.
func NewPublisher(client *gcp.Client, timeouts *timeout.Manager, interventionTopic, enrichmentTopic, auditTopic string, log *zap.SugaredLogger) *Publisher {
	return &Publisher{
		client:            client,
		timeouts:          timeouts,
		interventionTopic: interventionTopic,
		enrichmentTopic:   enrichmentTopic,
		auditTopic:        auditTopic,
		log:               log,
	}
}

// Intervention emits the exhausted-escalation signal for a campaign.
func (p *Publisher) Intervention(ctx context.Context, c *types.Campaign, level types.EscalationLevel, reason string) error {
	sig := InterventionSignal{
		CampaignID: c.ID,
		Level:      level.String(),
		Reason:     reason,
		Counters:   c.Counters,
		Plan:       c.Plan,
		At:         time.Now(),
	}
	return p.publish(ctx, p.interventionTopic, sig, map[string]string{
		"campaign_id": c.ID,
		"level":       level.String(),
	})
}

// EnqueueEnrichment implements sourcing.EnrichmentEnqueuer.
func (p *Publisher) EnqueueEnrichment(ctx context.Context, c *types.CandidateContractor) error {
	req := EnrichmentRequest{
		ContractorID: c.ID,
		Name:         c.Name,
		SourceRef:    c.SourceRef,
		At:           time.Now(),
	}
	return p.publish(ctx, p.enrichmentTopic, req, map[string]string{
		"contractor_id": c.ID,
	})
}

// Degraded records an absorbed sourcing failure on the audit topic.
// Failures to publish are logged, not propagated; audit must never take a
// campaign down.
func (p *Publisher) Degraded(ctx context.Context, campaignID string, tier types.Tier, cause error) {
	ev := AuditEvent{
		CampaignID: campaignID,
		Kind:       "degraded_sourcing",
		Tier:       tier.String(),
		Detail:     cause.Error(),
		At:         time.Now(),
	}
	if err := p.publish(ctx, p.auditTopic, ev, map[string]string{"campaign_id": campaignID}); err != nil {
		p.log.Warnw("failed to publish audit event", "campaign", campaignID, "error", err)
	}
}

func (p *Publisher) publish(ctx context.Context, topic string, payload any, attrs map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	ctx, cancel := p.timeouts.WithTimeout(ctx, "notify.publish")
	defer cancel()
	return p.client.PublishMessage(ctx, topic, data, attrs)
}
