// Package mcp exposes the governance kernel over the Model Context
// Protocol so agent frameworks can submit signals and inspect the
// audit chain without linking the SDK.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	sovereign "github.com/Andy160675/SanctuarySovereignSystems-sub001"
)

// Server wraps the MCP SDK server around a running kernel.
type Server struct {
	mcpServer *mcpsdk.Server
	kernel    *sovereign.Kernel
}

// New builds an MCP server over the given kernel.
func New(k *sovereign.Kernel) *Server {
	s := &Server{
		kernel: k,
		mcpServer: mcpsdk.NewServer(
			&mcpsdk.Implementation{
				Name:    "sovereign",
				Version: "0.1.0",
			},
			nil,
		),
	}
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all kernel tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "sovereign_submit",
		Description: "Submit a signal to the governance kernel. Illegal signals are contained, not executed; the receipt carries the terminal status.",
	}, s.handleSubmit)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "sovereign_status",
		Description: "Look up the last known status of a submitted signal by ID.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "sovereign_verify",
		Description: "Re-verify the audit ledger hash chain and report the first corrupt index, if any.",
	}, s.handleVerify)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "sovereign_export",
		Description: "Export a range of audit ledger entries for external review.",
	}, s.handleExport)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "sovereign_resume",
		Description: "Submit one steward resume approval for a halted kernel. The halt clears when the quorum of distinct approvers is met.",
	}, s.handleResume)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "sovereign_halt_state",
		Description: "Report whether the kernel is halted, why, and how many resume approvals it has.",
	}, s.handleHaltState)
}
