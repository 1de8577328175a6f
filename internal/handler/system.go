package handler

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/terabiome/vergemcp/internal/adapter"
	"github.com/terabiome/vergemcp/internal/api"
	"github.com/terabiome/vergemcp/internal/service"
)

// System handles cluster, network, tenant, log and alarm tool calls.
type System struct {
	infra  *service.InfrastructureService
	logger *slog.Logger
}

// NewSystem creates a new System handler
func NewSystem(infra *service.InfrastructureService, logger *slog.Logger) *System {
	return &System{
		infra:  infra,
		logger: logger.With(slog.String("handler", "system")),
	}
}

// ClusterStatus handles get_cluster_status
func (h *System) ClusterStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(h.infra.ClusterStatus(ctx)), nil
}

// ListNetworks handles list_networks
func (h *System) ListNetworks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.PageRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.infra.Networks(ctx, adapter.AdaptPage(req))), nil
}

// NetworkAction handles network_action
func (h *System) NetworkAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.NetworkActionRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.infra.NetworkAction(ctx, req.NetworkID, req.Action)), nil
}

// ListTenants handles list_tenants
func (h *System) ListTenants(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.PageRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.infra.Tenants(ctx, adapter.AdaptPage(req))), nil
}

// TenantAction handles tenant_action
func (h *System) TenantAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.TenantActionRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.infra.TenantAction(ctx, req.TenantID, req.Action)), nil
}

// Logs handles get_logs
func (h *System) Logs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.LogsRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.infra.Logs(ctx, req.Limit, req.Level)), nil
}

// Alarms handles get_alarms
func (h *System) Alarms(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(h.infra.Alarms(ctx)), nil
}
