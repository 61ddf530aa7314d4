// Package ingest receives inbound collaborator messages over Pub/Sub:
// contractor responses reported by delivery collaborators and
// classification results from the enrichment collaborator.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hirewire/outreach/pkg/gcp"
	"github.com/hirewire/outreach/pkg/taxonomy"
	"github.com/hirewire/outreach/pkg/types"
)

// ResponseEvent is the wire shape delivery collaborators publish when a
// contacted contractor replies.
type ResponseEvent struct {
	CampaignID   string    `json:"campaign_id"`
	ContractorID string    `json:"contractor_id"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

// EnrichmentResult is the wire shape the enrichment collaborator publishes
// after classifying a discovered entity.
type EnrichmentResult struct {
	ContractorID string   `json:"contractor_id"`
	Capabilities []string `json:"capabilities"`
	SizeClass    string   `json:"size_class"`
	ServiceAreas []string `json:"service_areas,omitempty"`
}

// Handler is the engine surface the queue delivers into.
type Handler interface {
	IngestResponse(ctx context.Context, campaignID, contractorID string, status types.ResponseStatus, at time.Time) error
	ApplyEnrichment(ctx context.Context, contractorID string, capabilities []string, sizeClass string, serviceAreas []string) error
}

// Queue subscribes to the response and enrichment-result subscriptions and
// feeds each message into the engine. Malformed messages are nacked;
// messages the engine rejects as invalid are acked and logged so they do
// not redeliver forever.
type Queue struct {
	client  *gcp.Client
	handler Handler
	log     *zap.SugaredLogger

	responseSub   string
	enrichmentSub string
}

// NewQueue creates an ingest queue over the named subscriptions.
func NewQueue(client *gcp.Client, handler Handler, responseSub, enrichmentSub string, log *zap.SugaredLogger) *Queue {
	return &Queue{
		client:        client,
		handler:       handler,
		log:           log,
		responseSub:   responseSub,
		enrichmentSub: enrichmentSub,
	}
}

// Run receives on both subscriptions until ctx is cancelled. Missing
// subscriptions are created against same-named topics.
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	responses, err := q.ensureSubscription(ctx, q.responseSub)
	if err != nil {
		return err
	}
	enrichments, err := q.ensureSubscription(ctx, q.enrichmentSub)
	if err != nil {
		return err
	}

	g.Go(func() error {
		return responses.Receive(ctx, q.handleResponse)
	})
	g.Go(func() error {
		return enrichments.Receive(ctx, q.handleEnrichment)
	})
	return g.Wait()
}

func (q *Queue) handleResponse(ctx context.Context, msg *pubsub.Message) {
	var ev ResponseEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		q.log.Warnw("malformed response event", "error", err)
		msg.Nack()
		return
	}

	status := types.ResponseStatus(strings.ToLower(ev.Status))
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	err := q.handler.IngestResponse(ctx, ev.CampaignID, ev.ContractorID, status, ev.Timestamp)
	switch {
	case err == nil:
		msg.Ack()
	case taxonomy.IsValidation(err) || taxonomy.Is(err, taxonomy.CodeAttemptImmutable) || taxonomy.Is(err, taxonomy.CodeCampaignNotFound):
		// Redelivery cannot fix these.
		q.log.Warnw("response event rejected",
			"campaign", ev.CampaignID,
			"contractor", ev.ContractorID,
			"status", ev.Status,
			"error", err,
		)
		msg.Ack()
	default:
		q.log.Errorw("response ingest failed, redelivering",
			"campaign", ev.CampaignID,
			"contractor", ev.ContractorID,
			"error", err,
		)
		msg.Nack()
	}
}

func (q *Queue) handleEnrichment(ctx context.Context, msg *pubsub.Message) {
	var res EnrichmentResult
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		q.log.Warnw("malformed enrichment result", "error", err)
		msg.Nack()
		return
	}

	err := q.handler.ApplyEnrichment(ctx, res.ContractorID, res.Capabilities, res.SizeClass, res.ServiceAreas)
	switch {
	case err == nil:
		msg.Ack()
	case taxonomy.IsValidation(err):
		q.log.Warnw("enrichment result rejected", "contractor", res.ContractorID, "error", err)
		msg.Ack()
	default:
		q.log.Errorw("enrichment apply failed, redelivering", "contractor", res.ContractorID, "error", err)
		msg.Nack()
	}
}

// ensureSubscription returns the named subscription, creating it (and a
// same-named topic) when absent.
func (q *Queue) ensureSubscription(ctx context.Context, name string) (*pubsub.Subscription, error) {
	sub := q.client.PubSubClient.Subscription(name)

	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription existence: %w", err)
	}
	if !exists {
		topic := q.client.PubSubClient.Topic(name)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to check topic existence: %w", err)
		}
		if !topicExists {
			topic, err = q.client.PubSubClient.CreateTopic(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to create topic: %w", err)
			}
		}
		sub, err = q.client.PubSubClient.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{
			Topic:             topic,
			AckDeadline:       30 * time.Second,
			RetentionDuration: 24 * time.Hour,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
	}
	return sub, nil
}
