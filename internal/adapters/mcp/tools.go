package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/core/usecases"
)

// FireZoneTool handles check_fire_zone.
type FireZoneTool struct {
	perimeters *usecases.PerimeterService
}

// NewFireZoneTool creates a FireZoneTool.
func NewFireZoneTool(perimeters *usecases.PerimeterService) *FireZoneTool {
	return &FireZoneTool{perimeters: perimeters}
}

// Definition returns the MCP tool definition.
func (t *FireZoneTool) Definition() mcp.Tool {
	return mcp.NewTool("check_fire_zone",
		mcp.WithDescription("Check whether a location lies inside an active wildfire perimeter."),
		mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude in decimal degrees")),
		mcp.WithNumber("lon", mcp.Required(), mcp.Description("Longitude in decimal degrees")),
	)
}

// Handle runs the check.
func (t *FireZoneTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lat, err := req.RequireFloat("lat")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lon, err := req.RequireFloat("lon")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := t.perimeters.FireZoneAt(ctx, domain.Coordinate{Lat: lat, Lon: lon})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(info)
}

// PlanRouteTool handles plan_fire_safe_route.
type PlanRouteTool struct {
	routing *usecases.RoutingService
}

// NewPlanRouteTool creates a PlanRouteTool.
func NewPlanRouteTool(routing *usecases.RoutingService) *PlanRouteTool {
	return &PlanRouteTool{routing: routing}
}

// Definition returns the MCP tool definition.
func (t *PlanRouteTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_fire_safe_route",
		mcp.WithDescription("Plan a driving route that avoids active wildfire perimeters. "+
			"Give each endpoint either as coordinates or as an address."),
		mcp.WithNumber("origin_lat", mcp.Description("Origin latitude")),
		mcp.WithNumber("origin_lon", mcp.Description("Origin longitude")),
		mcp.WithString("origin_address", mcp.Description("Origin address, used when coordinates are omitted")),
		mcp.WithNumber("destination_lat", mcp.Description("Destination latitude")),
		mcp.WithNumber("destination_lon", mcp.Description("Destination longitude")),
		mcp.WithString("destination_address", mcp.Description("Destination address, used when coordinates are omitted")),
		mcp.WithNumber("buffer_km", mcp.Description("Distance kept from fire perimeters, 0 to 100 km (default 2)")),
		mcp.WithBoolean("share", mcp.Description("Create a shareable link valid for 24 hours")),
	)
}

// Handle plans the route.
func (t *PlanRouteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	plan := &domain.PlanRequest{
		Origin:             coordinateArg(args, "origin"),
		Destination:        coordinateArg(args, "destination"),
		OriginAddress:      req.GetString("origin_address", ""),
		DestinationAddress: req.GetString("destination_address", ""),
		Share:              req.GetBool("share", false),
	}
	if _, ok := args["buffer_km"]; ok {
		km := req.GetFloat("buffer_km", 0)
		plan.BufferKm = &km
	}

	result, err := t.routing.PlanRoute(ctx, plan)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(result)
}

// RouteLinkTool handles get_route_link.
type RouteLinkTool struct {
	links *usecases.LinkStore
}

// NewRouteLinkTool creates a RouteLinkTool.
func NewRouteLinkTool(links *usecases.LinkStore) *RouteLinkTool {
	return &RouteLinkTool{links: links}
}

// Definition returns the MCP tool definition.
func (t *RouteLinkTool) Definition() mcp.Tool {
	return mcp.NewTool("get_route_link",
		mcp.WithDescription("Fetch the route stored behind a shared route link id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("12 character link id from the link URL")),
	)
}

// Handle resolves the link.
func (t *RouteLinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Accept a full viewer URL as well as a bare id.
	if i := strings.LastIndex(id, "id="); i >= 0 {
		id = id[i+len("id="):]
	}

	rec, err := t.links.Resolve(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(rec.Payload)), nil
}

// coordinateArg reads <prefix>_lat and <prefix>_lon; nil unless both are present.
func coordinateArg(args map[string]any, prefix string) *domain.Coordinate {
	lat, okLat := args[prefix+"_lat"].(float64)
	lon, okLon := args[prefix+"_lon"].(float64)
	if !okLat || !okLon {
		return nil
	}
	return &domain.Coordinate{Lat: lat, Lon: lon}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError turns usecase errors into tool-level errors the model can act on.
func toolError(err error) *mcp.CallToolResult {
	var verr *domain.ValidationError
	var perr *domain.ProviderError
	switch {
	case errors.As(err, &verr):
		return mcp.NewToolResultError("invalid " + verr.Field + ": " + verr.Message)
	case errors.Is(err, domain.ErrLinkNotFound):
		return mcp.NewToolResultError("route link not found")
	case errors.Is(err, domain.ErrLinkExpired):
		return mcp.NewToolResultError("route link expired; plan the route again to get a new link")
	case errors.Is(err, domain.ErrNoRoute):
		return mcp.NewToolResultError("no route found between these points")
	case errors.As(err, &perr):
		return mcp.NewToolResultError(perr.Provider + " is unavailable, try again shortly")
	}
	return mcp.NewToolResultErrorFromErr("request failed", err)
}
