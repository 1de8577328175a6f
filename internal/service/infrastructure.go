package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/terabiome/vergemcp/internal/infrastructure/verge"
)

// Legal action verbs per target.
var (
	NetworkActions = []string{"poweron", "poweroff", "reset", "apply"}
	TenantActions  = []string{"poweron", "poweroff", "reset", "kill"}
	LogLevels      = []string{"audit", "message", "warning", "error", "critical", "summary", "debug"}
)

// InfrastructureService serves networks, tenants and system feeds.
type InfrastructureService struct {
	backend InfraBackend
	logger  *slog.Logger
}

// NewInfrastructureService creates a new InfrastructureService.
func NewInfrastructureService(backend InfraBackend, logger *slog.Logger) *InfrastructureService {
	return &InfrastructureService{
		backend: backend,
		logger:  logger.With(slog.String("service", "infrastructure")),
	}
}

// ClusterStatus returns capacity and usage per cluster.
func (s *InfrastructureService) ClusterStatus(ctx context.Context) (Collection[verge.ClusterStatus], error) {
	clusters, err := s.backend.ClusterStatus(ctx)
	if err != nil {
		return Collection[verge.ClusterStatus]{}, err
	}
	return newCollection(clusters), nil
}

// Networks returns one page of virtual networks.
func (s *InfrastructureService) Networks(ctx context.Context, page verge.Page) (ListResult[verge.VNet], error) {
	page = page.Normalize()
	vnets, err := s.backend.ListNetworks(ctx, page)
	if err != nil {
		return ListResult[verge.VNet]{}, err
	}
	return newListResult(vnets, page), nil
}

// NetworkAction dispatches an action against a virtual network.
func (s *InfrastructureService) NetworkAction(ctx context.Context, id int, action string) (ActionResult, error) {
	if !slices.Contains(NetworkActions, action) {
		return ActionResult{}, &ValidationError{
			Field:   "action",
			Message: fmt.Sprintf("must be one of %s", strings.Join(NetworkActions, ", ")),
		}
	}
	if err := s.backend.NetworkAction(ctx, id, action); err != nil {
		return ActionResult{}, err
	}
	s.logger.Info("dispatched network action", slog.Int("network_id", id), slog.String("action", action))
	return ActionResult{
		Success: true,
		ID:      id,
		Action:  action,
		Message: fmt.Sprintf("%s issued for network %d", action, id),
	}, nil
}

// Tenants returns one page of tenants.
func (s *InfrastructureService) Tenants(ctx context.Context, page verge.Page) (ListResult[verge.Tenant], error) {
	page = page.Normalize()
	tenants, err := s.backend.ListTenants(ctx, page)
	if err != nil {
		return ListResult[verge.Tenant]{}, err
	}
	return newListResult(tenants, page), nil
}

// TenantAction dispatches an action against a tenant.
func (s *InfrastructureService) TenantAction(ctx context.Context, id int, action string) (ActionResult, error) {
	if !slices.Contains(TenantActions, action) {
		return ActionResult{}, &ValidationError{
			Field:   "action",
			Message: fmt.Sprintf("must be one of %s", strings.Join(TenantActions, ", ")),
		}
	}
	if err := s.backend.TenantAction(ctx, id, action); err != nil {
		return ActionResult{}, err
	}
	s.logger.Info("dispatched tenant action", slog.Int("tenant_id", id), slog.String("action", action))
	return ActionResult{
		Success: true,
		ID:      id,
		Action:  action,
		Message: fmt.Sprintf("%s issued for tenant %d", action, id),
	}, nil
}

// Logs returns recent log entries, optionally limited to one level.
func (s *InfrastructureService) Logs(ctx context.Context, limit int, level string) (ListResult[verge.LogEntry], error) {
	if level != "" && !slices.Contains(LogLevels, level) {
		return ListResult[verge.LogEntry]{}, &ValidationError{
			Field:   "level",
			Message: fmt.Sprintf("must be one of %s", strings.Join(LogLevels, ", ")),
		}
	}
	page := verge.Page{Limit: limit}.Normalize()
	entries, err := s.backend.Logs(ctx, page.Limit, level)
	if err != nil {
		return ListResult[verge.LogEntry]{}, err
	}
	return newListResult(entries, page), nil
}

// Alarms returns the active alarms.
func (s *InfrastructureService) Alarms(ctx context.Context) (Collection[verge.Alarm], error) {
	alarms, err := s.backend.Alarms(ctx)
	if err != nil {
		return Collection[verge.Alarm]{}, err
	}
	return newCollection(alarms), nil
}
