// Package mcpadapter exposes fire checks, route planning and link lookup as
// Model Context Protocol tools.
package mcpadapter

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/samirrijal/fireroute/internal/core/usecases"
)

// Version is reported to MCP clients during initialization.
var Version = "dev"

// Services are the usecases the tools call into. Links may be nil, which
// leaves the get_route_link tool unregistered.
type Services struct {
	Routing    *usecases.RoutingService
	Perimeters *usecases.PerimeterService
	Links      *usecases.LinkStore
}

// New builds the MCP server with every tool registered.
func New(svc Services) *server.MCPServer {
	s := server.NewMCPServer(
		"fireroute",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	fireZone := NewFireZoneTool(svc.Perimeters)
	s.AddTool(fireZone.Definition(), fireZone.Handle)

	plan := NewPlanRouteTool(svc.Routing)
	s.AddTool(plan.Definition(), plan.Handle)

	if svc.Links != nil {
		link := NewRouteLinkTool(svc.Links)
		s.AddTool(link.Definition(), link.Handle)
	}

	return s
}

const instructions = `FireRoute plans driving routes around active wildfire perimeters.

Use check_fire_zone before suggesting a meeting point or destination near a fire.
Use plan_fire_safe_route for directions; pass share=true when the user wants a link.
Route links stay valid for 24 hours; get_route_link returns the stored route.`
