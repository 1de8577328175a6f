package verge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListNetworks lists virtual networks.
func (c *Client) ListNetworks(ctx context.Context, page Page) ([]VNet, error) {
	q := page.apply(url.Values{"fields": []string{"$key,name,type,description,network,enabled,running"}})

	var vnets []VNet
	if err := c.do(ctx, http.MethodGet, "/api/v4/vnets", q, nil, &vnets); err != nil {
		return nil, fmt.Errorf("list networks: %w", err)
	}
	return vnets, nil
}

// NetworkAction dispatches an action verb against a virtual network.
func (c *Client) NetworkAction(ctx context.Context, id int, action string) error {
	req := actionRequest{VNet: id, Action: action}
	if err := c.do(ctx, http.MethodPost, "/api/v4/vnet_actions", nil, req, nil); err != nil {
		return fmt.Errorf("network %d action %s: %w", id, action, err)
	}
	return nil
}

// ListTenants lists tenants.
func (c *Client) ListTenants(ctx context.Context, page Page) ([]Tenant, error) {
	q := page.apply(url.Values{"fields": []string{"$key,name,description,running,status"}})

	var tenants []Tenant
	if err := c.do(ctx, http.MethodGet, "/api/v4/tenants", q, nil, &tenants); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

// TenantAction dispatches an action verb against a tenant.
func (c *Client) TenantAction(ctx context.Context, id int, action string) error {
	req := actionRequest{Tenant: id, Action: action}
	if err := c.do(ctx, http.MethodPost, "/api/v4/tenant_actions", nil, req, nil); err != nil {
		return fmt.Errorf("tenant %d action %s: %w", id, action, err)
	}
	return nil
}
