package mcpadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *Client
}

func NewHandlers(client *Client) *Handlers {
	return &Handlers{client: client}
}

func (h *Handlers) HandleListPlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ListPlans(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list plans: %v", err)), nil
	}

	var resp struct {
		Plans []struct {
			ID             string `json:"id"`
			Name           string `json:"name"`
			Tier           string `json:"tier"`
			BaseMonthly    string `json:"baseMonthly"`
			PerSeatMonthly string `json:"perSeatMonthly"`
			IncludedSeats  int    `json:"includedSeats"`
		} `json:"plans"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse plans: %v", err)), nil
	}

	if len(resp.Plans) == 0 {
		return mcp.NewToolResultText("No active plans in the catalogue."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d active plans:\n\n", len(resp.Plans))
	for _, p := range resp.Plans {
		fmt.Fprintf(&b, "- %s (%s, tier %s): %s/month base + %s/month per extra seat, %d seats included\n",
			p.Name, p.ID, p.Tier, p.BaseMonthly, p.PerSeatMonthly, p.IncludedSeats)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *Handlers) HandleListTenants(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ListTenants(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list tenants: %v", err)), nil
	}

	var resp struct {
		Tenants []struct {
			ID                   string `json:"id"`
			SchemaName           string `json:"schemaName"`
			Name                 string `json:"name"`
			PlanID               string `json:"planId"`
			IsSubscriptionActive bool   `json:"isSubscriptionActive"`
			BillingFrequency     string `json:"billingFrequency"`
			PaidSeatCount        int    `json:"paidSeatCount"`
		} `json:"tenants"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse tenants: %v", err)), nil
	}

	if len(resp.Tenants) == 0 {
		return mcp.NewToolResultText("No tenants registered."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d tenants:\n\n", len(resp.Tenants))
	for _, t := range resp.Tenants {
		plan := t.PlanID
		if plan == "" {
			plan = "no plan"
		}
		state := "inactive"
		if t.IsSubscriptionActive {
			state = "active"
		}
		fmt.Fprintf(&b, "- %s (%s, schema %q): %s, %s billing, %d paid seats, subscription %s\n",
			t.Name, t.ID, t.SchemaName, plan, t.BillingFrequency, t.PaidSeatCount, state)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *Handlers) HandleBillingStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenantID := req.GetString("tenant_id", "")
	if tenantID == "" {
		return mcp.NewToolResultError("tenant_id is required"), nil
	}

	raw, err := h.client.BillingStatus(ctx, tenantID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch billing status: %v", err)), nil
	}

	var st struct {
		SchemaName           string `json:"schemaName"`
		PlanName             string `json:"planName"`
		BillingFrequency     string `json:"billingFrequency"`
		IsSubscriptionActive bool   `json:"isSubscriptionActive"`
		CurrentSeats         int    `json:"currentSeats"`
		PaidSeats            int    `json:"paidSeats"`
		BillableSeats        int    `json:"billableSeats"`
		MonthlyCost          string `json:"monthlyCost"`
		NeedsPaymentUpdate   bool   `json:"needsPaymentUpdate"`
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse billing status: %v", err)), nil
	}

	plan := st.PlanName
	if plan == "" {
		plan = "none"
	}
	state := "inactive"
	if st.IsSubscriptionActive {
		state = "active"
	}
	text := fmt.Sprintf(
		"Tenant %s (schema %q)\n"+
			"Plan: %s (%s, %s)\n"+
			"Seats: %d in use / %d paid (%d billable)\n"+
			"Effective monthly cost: %s\n"+
			"Needs payment update: %t\n",
		tenantID, st.SchemaName, plan, st.BillingFrequency, state,
		st.CurrentSeats, st.PaidSeats, st.BillableSeats,
		st.MonthlyCost, st.NeedsPaymentUpdate)
	return mcp.NewToolResultText(text), nil
}

func (h *Handlers) HandleUpdateSubscription(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenantID := req.GetString("tenant_id", "")
	planID := req.GetString("plan_id", "")
	if tenantID == "" || planID == "" {
		return mcp.NewToolResultError("tenant_id and plan_id are required"), nil
	}
	frequency := req.GetString("frequency", "monthly")

	if _, err := h.client.UpdateSubscription(ctx, tenantID, planID, frequency); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update subscription: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Subscription updated: tenant %s is now on %s (%s billing).",
		tenantID, planID, frequency)), nil
}

func (h *Handlers) HandleUpdateSeatCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenantID := req.GetString("tenant_id", "")
	if tenantID == "" {
		return mcp.NewToolResultError("tenant_id is required"), nil
	}
	paidSeats := req.GetInt("paid_seats", -1)
	if paidSeats < 0 {
		return mcp.NewToolResultError("paid_seats must be a non-negative integer"), nil
	}
	force := req.GetBool("force", false)

	if _, err := h.client.UpdateSeatCount(ctx, tenantID, paidSeats, force); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update seat count: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Paid seat count for tenant %s set to %d.", tenantID, paidSeats)), nil
}
