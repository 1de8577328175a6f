package verge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const vmFields = "$key,name,machine,cpu_cores,ram,description,enabled,is_snapshot,os_family"

// GetVM reads one VM by its configuration id.
func (c *Client) GetVM(ctx context.Context, id int) (VM, error) {
	var vm VM
	path := "/api/v4/vms/" + strconv.Itoa(id)
	if err := c.do(ctx, http.MethodGet, path, url.Values{"fields": []string{vmFields}}, nil, &vm); err != nil {
		return VM{}, fmt.Errorf("get vm %d: %w", id, err)
	}
	return vm, nil
}

// ListVMs lists VMs, excluding snapshot images.
func (c *Client) ListVMs(ctx context.Context, page Page) ([]VM, error) {
	q := page.apply(url.Values{
		"fields": []string{vmFields},
		"filter": []string{"is_snapshot eq false"},
	})

	var vms []VM
	if err := c.do(ctx, http.MethodGet, "/api/v4/vms", q, nil, &vms); err != nil {
		return nil, fmt.Errorf("list vms: %w", err)
	}

	out := vms[:0]
	for _, vm := range vms {
		if !vm.IsSnapshot {
			out = append(out, vm)
		}
	}
	return out, nil
}

// UpdateVM sends only the non-nil fields of update.
func (c *Client) UpdateVM(ctx context.Context, id int, update VMUpdate) error {
	path := "/api/v4/vms/" + strconv.Itoa(id)
	if err := c.do(ctx, http.MethodPut, path, nil, update, nil); err != nil {
		return fmt.Errorf("update vm %d: %w", id, err)
	}
	return nil
}

// VMAction dispatches an action verb against a VM. The backend accepts the
// action and returns without waiting for it to complete.
func (c *Client) VMAction(ctx context.Context, id int, action string, params map[string]any) error {
	req := actionRequest{VM: id, Action: action, Params: params}
	if err := c.do(ctx, http.MethodPost, "/api/v4/vm_actions", nil, req, nil); err != nil {
		return fmt.Errorf("vm %d action %s: %w", id, action, err)
	}
	return nil
}
