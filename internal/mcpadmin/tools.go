package mcpadmin

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the FieldServe operator MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolListPlans = mcp.NewTool("list_plans",
	mcp.WithDescription(
		"List the active subscription plans in the FieldServe catalogue, "+
			"with base and per-seat prices and the number of included seats."),
)

var ToolListTenants = mcp.NewTool("list_tenants",
	mcp.WithDescription(
		"List every tenant on the platform with its schema name, plan, "+
			"subscription window, active flag, and paid seat count."),
)

var ToolBillingStatus = mcp.NewTool("billing_status",
	mcp.WithDescription(
		"Get the live billing snapshot for one tenant: current seats in use, "+
			"paid seats, billable seats, effective monthly cost, and whether the "+
			"tenant needs a payment update. Use list_tenants first to find the tenant id."),
	mcp.WithString("tenant_id",
		mcp.Required(),
		mcp.Description("The tenant's id (e.g. 'tnt_...')")),
)

var ToolUpdateSubscription = mcp.NewTool("update_subscription",
	mcp.WithDescription(
		"Assign a subscription plan to a tenant. Activates the subscription and "+
			"opens a fresh billing window starting today (one month or one year)."),
	mcp.WithString("tenant_id",
		mcp.Required(),
		mcp.Description("The tenant's id")),
	mcp.WithString("plan_id",
		mcp.Required(),
		mcp.Description("The plan to assign (e.g. 'plan_basic'). Use list_plans to see the catalogue.")),
	mcp.WithString("frequency",
		mcp.Description("Billing frequency, 'monthly' (default) or 'yearly'"),
		mcp.Enum("monthly", "yearly")),
)

var ToolUpdateSeatCount = mcp.NewTool("update_seat_count",
	mcp.WithDescription(
		"Set the number of seats a tenant pays for. Decreasing below the seats "+
			"currently in use is refused unless force is set."),
	mcp.WithString("tenant_id",
		mcp.Required(),
		mcp.Description("The tenant's id")),
	mcp.WithNumber("paid_seats",
		mcp.Required(),
		mcp.Description("The new paid seat count (non-negative integer)")),
	mcp.WithBoolean("force",
		mcp.Description("Allow decreasing below live usage. The tenant will be flagged as needing a payment update.")),
)
