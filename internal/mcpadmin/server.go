package mcpadmin

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all FieldServe admin tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("fieldserve-admin", "1.0.0")
	client := NewClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolListPlans, h.HandleListPlans)
	s.AddTool(ToolListTenants, h.HandleListTenants)
	s.AddTool(ToolBillingStatus, h.HandleBillingStatus)
	s.AddTool(ToolUpdateSubscription, h.HandleUpdateSubscription)
	s.AddTool(ToolUpdateSeatCount, h.HandleUpdateSeatCount)

	return s
}
