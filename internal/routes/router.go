package routes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/terabiome/vergemcp/internal/handler"
	"github.com/terabiome/vergemcp/internal/metrics"
)

// Tool is one catalog entry.
type Tool struct {
	Definition mcp.Tool
	Handler    server.ToolHandlerFunc
}

// Catalog is the static table of tools exposed by the gateway. Both
// transports route through it.
type Catalog struct {
	tools   []Tool
	index   map[string]int
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCatalog builds the tool table.
func NewCatalog(vmHandler *handler.VirtualMachine, systemHandler *handler.System, m *metrics.Metrics, logger *slog.Logger) *Catalog {
	c := &Catalog{
		index:   map[string]int{},
		metrics: m,
		logger:  logger.With(slog.String("component", "catalog")),
	}

	// Cluster and system feeds
	c.add(mcp.NewTool("get_cluster_status",
		mcp.WithDescription("Get cluster capacity and usage: nodes, cores, RAM and running machines."),
		mcp.WithReadOnlyHintAnnotation(true),
	), systemHandler.ClusterStatus)
	c.add(mcp.NewTool("get_logs",
		mcp.WithDescription("Get recent system log entries, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 50, values above 500 are capped)."), mcp.Min(1)),
		mcp.WithString("level", mcp.Description("Only return entries of this level."),
			mcp.Enum("audit", "message", "warning", "error", "critical", "summary", "debug")),
		mcp.WithReadOnlyHintAnnotation(true),
	), systemHandler.Logs)
	c.add(mcp.NewTool("get_alarms",
		mcp.WithDescription("Get the active system alarms."),
		mcp.WithReadOnlyHintAnnotation(true),
	), systemHandler.Alarms)

	// Virtual machines
	c.add(mcp.NewTool("list_vms",
		mcp.WithDescription("List virtual machines (snapshot images excluded)."),
		pageLimit(), pageOffset(),
		mcp.WithReadOnlyHintAnnotation(true),
	), vmHandler.ListVMs)
	c.add(mcp.NewTool("get_vm",
		mcp.WithDescription("Get a VM's configuration together with its current power status."),
		vmID(),
		mcp.WithReadOnlyHintAnnotation(true),
	), vmHandler.GetVM)
	c.add(mcp.NewTool("get_vm_status",
		mcp.WithDescription("Get a VM's current power status (running, status label, migratable)."),
		vmID(),
		mcp.WithReadOnlyHintAnnotation(true),
	), vmHandler.GetVMStatus)
	c.add(mcp.NewTool("power_on_vm",
		mcp.WithDescription("Power on a stopped VM. Refused if the VM is already running."),
		vmID(),
	), vmHandler.PowerOnVM)
	c.add(mcp.NewTool("power_off_vm",
		mcp.WithDescription("Gracefully shut down a VM. Optionally wait for it to stop and kill it if the wait runs out."),
		vmID(),
		mcp.WithNumber("wait_timeout_seconds",
			mcp.Description("Seconds to wait for the VM to stop (0 returns immediately, capped at 300)."), mcp.Min(0)),
		mcp.WithBoolean("force_after_timeout",
			mcp.Description("Kill the VM if it has not stopped when the wait runs out.")),
		mcp.WithDestructiveHintAnnotation(true),
	), vmHandler.PowerOffVM)
	c.add(mcp.NewTool("kill_vm",
		mcp.WithDescription("Immediately terminate a running VM without a guest shutdown."),
		vmID(),
		mcp.WithDestructiveHintAnnotation(true),
	), vmHandler.KillVM)
	c.add(mcp.NewTool("reset_vm",
		mcp.WithDescription("Hard-reset a running VM. Refused if the VM is not running."),
		vmID(),
		mcp.WithDestructiveHintAnnotation(true),
	), vmHandler.ResetVM)
	c.add(mcp.NewTool("modify_vm",
		mcp.WithDescription("Change a VM's CPU cores and/or RAM. The VM must be off; set shutdown_if_running to power it off first, "+
			"together with wait_timeout_seconds so the change is applied after the VM has stopped. The VM is left off afterwards."),
		vmID(),
		mcp.WithNumber("cpu_cores", mcp.Description("New CPU core count."), mcp.Min(1)),
		mcp.WithNumber("ram_mb", mcp.Description("New RAM size in MB."), mcp.Min(1)),
		mcp.WithBoolean("shutdown_if_running", mcp.Description("Power the VM off first when it is running.")),
		mcp.WithNumber("wait_timeout_seconds", mcp.Description("Seconds to wait for the shutdown before applying the change (0 does not wait, capped at 300)."), mcp.Min(0)),
		mcp.WithBoolean("force_after_timeout", mcp.Description("Kill the VM if the shutdown wait runs out.")),
		mcp.WithDestructiveHintAnnotation(true),
	), vmHandler.ModifyVM)
	c.add(mcp.NewTool("list_vm_nics",
		mcp.WithDescription("List a VM's network interfaces."),
		vmID(),
		mcp.WithReadOnlyHintAnnotation(true),
	), vmHandler.ListVMNICs)
	c.add(mcp.NewTool("list_vm_drives",
		mcp.WithDescription("List a VM's drives."),
		vmID(),
		mcp.WithReadOnlyHintAnnotation(true),
	), vmHandler.ListVMDrives)
	c.add(mcp.NewTool("resize_vm_drive",
		mcp.WithDescription("Grow a drive to a new size in GB. Shrinking is refused."),
		mcp.WithNumber("drive_id", mcp.Required(), mcp.Description("Drive id from list_vm_drives."), mcp.Min(1)),
		mcp.WithNumber("size_gb", mcp.Required(), mcp.Description("New size in GB; must exceed the current size."), mcp.Min(1)),
	), vmHandler.ResizeVMDrive)
	c.add(mcp.NewTool("list_vm_snapshots",
		mcp.WithDescription("List a VM's snapshots, newest first."),
		vmID(),
		mcp.WithReadOnlyHintAnnotation(true),
	), vmHandler.ListVMSnapshots)
	c.add(mcp.NewTool("create_vm_snapshot",
		mcp.WithDescription("Take a snapshot of a VM."),
		vmID(),
		mcp.WithString("name", mcp.Required(), mcp.Description("Snapshot name.")),
		mcp.WithNumber("retention_hours", mcp.Description("Hours to keep the snapshot (default 24)."), mcp.Min(1)),
	), vmHandler.CreateVMSnapshot)

	// Networks and tenants
	c.add(mcp.NewTool("list_networks",
		mcp.WithDescription("List virtual networks."),
		pageLimit(), pageOffset(),
		mcp.WithReadOnlyHintAnnotation(true),
	), systemHandler.ListNetworks)
	c.add(mcp.NewTool("network_action",
		mcp.WithDescription("Power on, power off, reset or apply rules on a virtual network."),
		mcp.WithNumber("network_id", mcp.Required(), mcp.Description("Network id from list_networks."), mcp.Min(1)),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action to perform."),
			mcp.Enum("poweron", "poweroff", "reset", "apply")),
	), systemHandler.NetworkAction)
	c.add(mcp.NewTool("list_tenants",
		mcp.WithDescription("List tenants."),
		pageLimit(), pageOffset(),
		mcp.WithReadOnlyHintAnnotation(true),
	), systemHandler.ListTenants)
	c.add(mcp.NewTool("tenant_action",
		mcp.WithDescription("Power on, power off, reset or kill a tenant."),
		mcp.WithNumber("tenant_id", mcp.Required(), mcp.Description("Tenant id from list_tenants."), mcp.Min(1)),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action to perform."),
			mcp.Enum("poweron", "poweroff", "reset", "kill")),
	), systemHandler.TenantAction)

	return c
}

func vmID() mcp.ToolOption {
	return mcp.WithNumber("vm_id", mcp.Required(), mcp.Description("VM id from list_vms."), mcp.Min(1))
}

func pageLimit() mcp.ToolOption {
	return mcp.WithNumber("limit", mcp.Description("Page size (default 50, values above 500 are capped)."), mcp.Min(1))
}

func pageOffset() mcp.ToolOption {
	return mcp.WithNumber("offset", mcp.Description("Items to skip."), mcp.Min(0))
}

func (c *Catalog) add(def mcp.Tool, h server.ToolHandlerFunc) {
	c.index[def.Name] = len(c.tools)
	c.tools = append(c.tools, Tool{Definition: def, Handler: c.wrap(def.Name, h)})
}

// Tools returns the tool definitions in catalog order.
func (c *Catalog) Tools() []mcp.Tool {
	defs := make([]mcp.Tool, len(c.tools))
	for i, t := range c.tools {
		defs[i] = t.Definition
	}
	return defs
}

// Call invokes a tool by name. It always returns a result; unknown tools and
// failures are error-flagged results.
func (c *Catalog) Call(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	i, ok := c.index[name]
	if !ok {
		return handler.FailureResult(fmt.Errorf("unknown tool %q", name))
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.tools[i].Handler(ctx, req)
	if err != nil {
		return handler.FailureResult(err)
	}
	return res
}

// wrap adds call logging, metrics and panic recovery around a handler.
func (c *Catalog) wrap(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
		callID := uuid.NewString()
		logger := c.logger.With(slog.String("tool", name), slog.String("call_id", callID))
		done := c.metrics.Begin(name)
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				logger.Error("tool handler panicked", slog.Any("panic", r))
				res, err = handler.FailureResult(fmt.Errorf("internal error in %s: %v", name, r)), nil
			}
			if err != nil {
				res, err = handler.FailureResult(err), nil
			}

			outcome := "success"
			if res == nil || res.IsError {
				outcome = "error"
			}
			done(outcome)
			logger.Info("tool call",
				slog.String("outcome", outcome),
				slog.Duration("duration", time.Since(start)),
			)
		}()

		logger.Debug("tool call started")
		return h(ctx, req)
	}
}
