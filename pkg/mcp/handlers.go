package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hirewire/outreach/pkg/types"
)

// handleCreateCampaign handles the create_campaign tool call
func (s *Server) handleCreateCampaign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := request.GetFloat("target_bid_count", 0)
	urgency, err := request.RequireString("urgency_level")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid urgency_level: %v", err)), nil
	}
	categoriesRaw, err := request.RequireString("required_categories")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid required_categories: %v", err)), nil
	}

	req := types.CampaignRequest{
		TargetBidCount:     int(target),
		Urgency:            types.UrgencyLevel(urgency),
		RequiredCategories: splitList(categoriesRaw),
		ServiceArea:        request.GetString("service_area", ""),
	}

	if raw := request.GetString("deadline_override", ""); raw != "" {
		deadline, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid deadline_override: %v", err)), nil
		}
		req.DeadlineOverride = &deadline
	}
	if v := request.GetFloat("budget_min", 0); v > 0 {
		req.BudgetMin = &v
	}
	if v := request.GetFloat("budget_max", 0); v > 0 {
		req.BudgetMax = &v
	}

	c, err := s.engine.CreateCampaign(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create campaign: %v", err)), nil
	}

	result := fmt.Sprintf("Created campaign %s: state=%s deadline=%s total_quota=%d (tier1=%d tier2=%d tier3=%d)",
		c.ID, c.State, c.Plan.Deadline.Format(time.RFC3339), c.Plan.TotalQuota,
		c.Plan.TierQuotas.Registry, c.Plan.TierQuotas.Reengagement, c.Plan.TierQuotas.Discovery)
	return mcp.NewToolResultText(result), nil
}

// handleCampaignStatus handles the campaign_status tool call
func (s *Server) handleCampaignStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	campaignID, err := request.RequireString("campaign_id")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid campaign_id: %v", err)), nil
	}

	c, err := s.engine.GetCampaign(ctx, campaignID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get campaign: %v", err)), nil
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode campaign: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleIngestResponse handles the ingest_response tool call
func (s *Server) handleIngestResponse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	campaignID, err := request.RequireString("campaign_id")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid campaign_id: %v", err)), nil
	}
	contractorID, err := request.RequireString("contractor_id")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid contractor_id: %v", err)), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid status: %v", err)), nil
	}

	if err := s.engine.IngestResponse(ctx, campaignID, contractorID, types.ResponseStatus(status), time.Now()); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to ingest response: %v", err)), nil
	}

	result := fmt.Sprintf("Recorded %s response from contractor %s on campaign %s", status, contractorID, campaignID)
	return mcp.NewToolResultText(result), nil
}

// handleCancelCampaign handles the cancel_campaign tool call
func (s *Server) handleCancelCampaign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	campaignID, err := request.RequireString("campaign_id")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid campaign_id: %v", err)), nil
	}

	if err := s.engine.Cancel(ctx, campaignID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to cancel campaign: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Cancelled campaign %s", campaignID)), nil
}

// handleListCampaigns handles the list_campaigns tool call
func (s *Server) handleListCampaigns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	campaigns, err := s.engine.ListCampaigns(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list campaigns: %v", err)), nil
	}

	if len(campaigns) == 0 {
		return mcp.NewToolResultText("No campaigns found"), nil
	}

	var b strings.Builder
	b.WriteString("Campaigns:\n")
	for _, c := range campaigns {
		fmt.Fprintf(&b, "- ID: %s, State: %s, Urgency: %s, Bids: %d/%d, Contacted: %d/%d\n",
			c.ID, c.State, c.Request.Urgency,
			c.Counters.BidsReceived, c.Request.TargetBidCount,
			c.Counters.Contacted, c.Counters.Targeted)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
