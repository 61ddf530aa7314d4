// Package gcp wraps the Google Cloud service clients the engine depends
// on: Firestore for ledger persistence, Pub/Sub for collaborator
// messaging.
package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Client bundles the underlying GCP service clients.
type Client struct {
	ProjectID       string
	Region          string
	FirestoreClient *firestore.Client
	PubSubClient    *pubsub.Client
}

// NewClient creates a new GCP client with all necessary services.
func NewClient(ctx context.Context, projectID, region string, opts ...option.ClientOption) (*Client, error) {
	firestoreClient, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}

	return &Client{
		ProjectID:       projectID,
		Region:          region,
		FirestoreClient: firestoreClient,
		PubSubClient:    pubsubClient,
	}, nil
}

// Close closes all underlying clients.
func (c *Client) Close() error {
	var errs []error

	if err := c.FirestoreClient.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close Firestore client: %w", err))
	}
	if err := c.PubSubClient.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close Pub/Sub client: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing clients: %v", errs)
	}
	return nil
}

// PublishMessage publishes a message to a Pub/Sub topic, creating the
// topic if it does not exist yet.
func (c *Client) PublishMessage(ctx context.Context, topicName string, data []byte, attributes map[string]string) error {
	topic := c.PubSubClient.Topic(topicName)

	exists, err := topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check topic existence: %w", err)
	}
	if !exists {
		if _, err := c.PubSubClient.CreateTopic(ctx, topicName); err != nil {
			return fmt.Errorf("failed to create topic: %w", err)
		}
	}

	result := topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}
