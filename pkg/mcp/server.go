// Package mcp exposes the orchestration engine's operations as MCP tools
// over stdio, for intake and operator collaborators.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hirewire/outreach/pkg/engine"
)

// Server wraps the engine with MCP protocol support
type Server struct {
	engine    *engine.Engine
	mcpServer *server.MCPServer
	log       *zap.SugaredLogger
}

// NewServer creates an MCP server exposing the engine's operations.
func NewServer(eng *engine.Engine, log *zap.SugaredLogger) *Server {
	mcpServer := server.NewMCPServer(
		"Outreach Campaign Engine",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s := &Server{
		engine:    eng,
		mcpServer: mcpServer,
		log:       log,
	}

	s.registerTools()

	return s
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	createCampaign := mcp.NewTool("create_campaign",
		mcp.WithDescription("Create an outreach campaign from a structured request and begin sourcing"),
		mcp.WithNumber("target_bid_count",
			mcp.Required(),
			mcp.Description("Number of bids the campaign must collect"),
			mcp.Min(1),
		),
		mcp.WithString("urgency_level",
			mcp.Required(),
			mcp.Description("Urgency level controlling the campaign window"),
			mcp.Enum("emergency", "urgent", "standard", "group_bidding", "flexible"),
		),
		mcp.WithString("required_categories",
			mcp.Required(),
			mcp.Description("Comma-separated work categories the contractor must cover"),
		),
		mcp.WithString("service_area",
			mcp.Description("Geographic service area identifier"),
		),
		mcp.WithString("deadline_override",
			mcp.Description("RFC 3339 deadline that overrides the urgency window when earlier"),
		),
		mcp.WithNumber("budget_min", mcp.Description("Lower budget bound")),
		mcp.WithNumber("budget_max", mcp.Description("Upper budget bound")),
	)
	s.mcpServer.AddTool(createCampaign, s.handleCreateCampaign)

	campaignStatus := mcp.NewTool("campaign_status",
		mcp.WithDescription("Get the full ledger snapshot of a campaign"),
		mcp.WithString("campaign_id", mcp.Required()),
	)
	s.mcpServer.AddTool(campaignStatus, s.handleCampaignStatus)

	ingestResponse := mcp.NewTool("ingest_response",
		mcp.WithDescription("Record a contractor's response to an outreach attempt"),
		mcp.WithString("campaign_id", mcp.Required()),
		mcp.WithString("contractor_id", mcp.Required()),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("Response outcome"),
			mcp.Enum("interested", "declined", "permanently_declined"),
		),
	)
	s.mcpServer.AddTool(ingestResponse, s.handleIngestResponse)

	cancelCampaign := mcp.NewTool("cancel_campaign",
		mcp.WithDescription("Cancel a campaign before its deadline; any queued escalation is suppressed"),
		mcp.WithString("campaign_id", mcp.Required()),
	)
	s.mcpServer.AddTool(cancelCampaign, s.handleCancelCampaign)

	listCampaigns := mcp.NewTool("list_campaigns",
		mcp.WithDescription("List all campaigns with state and progress counters"),
	)
	s.mcpServer.AddTool(listCampaigns, s.handleListCampaigns)
}

// Start starts the MCP server using stdio transport
func (s *Server) Start(ctx context.Context) error {
	s.log.Infow("starting MCP server")
	return server.ServeStdio(s.mcpServer)
}
