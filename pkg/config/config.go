// Package config loads engine configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full engine configuration. Everything that is policy
// rather than control flow lives here: tier capacities, check-in
// fractions, escalation thresholds, topic names.
type Config struct {
	ProjectID string `env:"GOOGLE_CLOUD_PROJECT,required"`
	Region    string `env:"GOOGLE_CLOUD_REGION" envDefault:"us-central1"`

	// Firestore collection names.
	CampaignCollection   string `env:"OUTREACH_CAMPAIGN_COLLECTION" envDefault:"campaigns"`
	ContractorCollection string `env:"OUTREACH_CONTRACTOR_COLLECTION" envDefault:"contractors"`
	AttemptCollection    string `env:"OUTREACH_ATTEMPT_COLLECTION" envDefault:"outreach_attempts"`

	// Pub/Sub wiring.
	ResponseSubscription   string `env:"OUTREACH_RESPONSE_SUBSCRIPTION" envDefault:"outreach-responses-sub"`
	EnrichmentSubscription string `env:"OUTREACH_ENRICHMENT_SUBSCRIPTION" envDefault:"outreach-enriched-sub"`
	InterventionTopic      string `env:"OUTREACH_INTERVENTION_TOPIC" envDefault:"outreach-intervention"`
	EnrichmentTopic        string `env:"OUTREACH_ENRICHMENT_TOPIC" envDefault:"outreach-enrichment"`
	AuditTopic             string `env:"OUTREACH_AUDIT_TOPIC" envDefault:"outreach-audit"`

	// Per-tier sourcing capacities.
	Tier1Capacity int `env:"OUTREACH_TIER1_CAPACITY" envDefault:"50"`
	Tier2Capacity int `env:"OUTREACH_TIER2_CAPACITY" envDefault:"25"`
	Tier3Capacity int `env:"OUTREACH_TIER3_CAPACITY" envDefault:"40"`

	// Scorer capability.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	ScorerModel  string `env:"OUTREACH_SCORER_MODEL" envDefault:"gemini-2.0-flash"`

	// Tier-3 discovery.
	PlacesAPIKey string `env:"PLACES_API_KEY"`

	// Check-in evaluation points as fractions of the campaign window.
	CheckInFractions []float64 `env:"OUTREACH_CHECKIN_FRACTIONS" envSeparator:"," envDefault:"0.25,0.5,0.75,1"`

	// Bounded retry budget for conflicted ledger commits.
	CommitRetryBudget int `env:"OUTREACH_COMMIT_RETRIES" envDefault:"3"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
