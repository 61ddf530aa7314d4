package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	places "google.golang.org/api/places/v1"

	"github.com/hirewire/outreach/pkg/config"
	"github.com/hirewire/outreach/pkg/engine"
	"github.com/hirewire/outreach/pkg/gcp"
	"github.com/hirewire/outreach/pkg/ingest"
	"github.com/hirewire/outreach/pkg/mcp"
	"github.com/hirewire/outreach/pkg/notify"
	"github.com/hirewire/outreach/pkg/planner"
	"github.com/hirewire/outreach/pkg/sourcing"
	"github.com/hirewire/outreach/pkg/store"
	"github.com/hirewire/outreach/pkg/timeout"
	"github.com/hirewire/outreach/pkg/types"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zlog := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatalw("failed to load configuration", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gcpClient, err := gcp.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		zlog.Fatalw("failed to create GCP client", "error", err)
	}
	defer gcpClient.Close()

	st := store.NewFirestore(gcpClient.FirestoreClient,
		cfg.CampaignCollection, cfg.ContractorCollection, cfg.AttemptCollection)

	timeouts := timeout.NewManager(60 * time.Second)

	capacity := map[types.Tier]int{
		types.TierRegistry:     cfg.Tier1Capacity,
		types.TierReengagement: cfg.Tier2Capacity,
		types.TierDiscovery:    cfg.Tier3Capacity,
	}
	plnr := planner.New(planner.DefaultRateModel(), capacity)

	publisher := notify.NewPublisher(gcpClient, timeouts,
		cfg.InterventionTopic, cfg.EnrichmentTopic, cfg.AuditTopic, zlog.Named("notify"))

	// Ranking: Gemini when a key is configured, with the deterministic
	// heuristic always available as fallback.
	var scorer sourcing.Scorer = &sourcing.HeuristicScorer{}
	if cfg.GeminiAPIKey != "" {
		primary, err := sourcing.NewGenAIScorer(ctx, cfg.GeminiAPIKey, cfg.ScorerModel)
		if err != nil {
			zlog.Warnw("scorer unavailable, using heuristic ranking", "error", err)
		} else {
			scorer = sourcing.NewFallbackScorer(primary, zlog.Named("scorer"))
		}
	}

	sources := []sourcing.TierSource{
		sourcing.NewRegistrySource(st, scorer),
		sourcing.NewReengagementSource(st, scorer),
	}
	if cfg.PlacesAPIKey != "" {
		placesSvc, err := places.NewService(ctx, option.WithAPIKey(cfg.PlacesAPIKey))
		if err != nil {
			zlog.Warnw("places client unavailable, tier 3 discovery disabled", "error", err)
		} else {
			sources = append(sources, sourcing.NewDiscoverySource(placesSvc, st, publisher, zlog.Named("discovery")))
		}
	}
	pipeline := sourcing.NewPipeline(timeouts, zlog.Named("sourcing"), sources...)

	eng := engine.New(engine.Deps{
		Store:         st,
		Planner:       plnr,
		Sourcer:       pipeline,
		Notifier:      publisher,
		Log:           zlog.Named("engine"),
		Fractions:     cfg.CheckInFractions,
		CommitRetries: cfg.CommitRetryBudget,
	})

	queue := ingest.NewQueue(gcpClient, eng, cfg.ResponseSubscription, cfg.EnrichmentSubscription, zlog.Named("ingest"))
	go func() {
		if err := queue.Run(ctx); err != nil && ctx.Err() == nil {
			zlog.Errorw("ingest queue stopped", "error", err)
			cancel()
		}
	}()

	mcpServer := mcp.NewServer(eng, zlog.Named("mcp"))
	go func() {
		if err := mcpServer.Start(ctx); err != nil {
			zlog.Errorw("MCP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zlog.Infow("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		zlog.Infow("context cancelled")
	}

	cancel()
	eng.Shutdown()
	zlog.Infow("shutdown complete")
}
