// FieldServe MCP Server - Exposes tenant administration as MCP tools for LLMs
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/fieldserve/fieldserve/internal/mcpadmin"
)

func main() {
	cfg := mcpadmin.Config{
		APIURL:      envOrDefault("FIELDSERVE_API_URL", "http://localhost:8080"),
		AdminSecret: os.Getenv("FIELDSERVE_ADMIN_SECRET"),
	}

	if cfg.AdminSecret == "" {
		fmt.Fprintln(os.Stderr, "FIELDSERVE_ADMIN_SECRET is required")
		os.Exit(1)
	}

	s := mcpadmin.NewMCPServer(cfg)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
