package handler

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/terabiome/vergemcp/internal/adapter"
	"github.com/terabiome/vergemcp/internal/api"
	"github.com/terabiome/vergemcp/internal/service"
)

// VirtualMachine handles VM tool calls. Every method returns a result and a
// nil error; failures are error-flagged results.
type VirtualMachine struct {
	vmService    *service.VMService
	power        *service.PowerController
	reconfigurer *service.Reconfigurer
	logger       *slog.Logger
}

// NewVirtualMachine creates a new VirtualMachine handler
func NewVirtualMachine(vmService *service.VMService, power *service.PowerController, reconfigurer *service.Reconfigurer, logger *slog.Logger) *VirtualMachine {
	return &VirtualMachine{
		vmService:    vmService,
		power:        power,
		reconfigurer: reconfigurer,
		logger:       logger.With(slog.String("handler", "vm")),
	}
}

// ListVMs handles list_vms
func (h *VirtualMachine) ListVMs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.PageRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.vmService.List(ctx, adapter.AdaptPage(req))), nil
}

// GetVM handles get_vm
func (h *VirtualMachine) GetVM(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.VMRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.vmService.Get(ctx, req.VMID)), nil
}

// GetVMStatus handles get_vm_status
func (h *VirtualMachine) GetVMStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.VMRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.power.Status(ctx, req.VMID)), nil
}

// PowerOnVM handles power_on_vm
func (h *VirtualMachine) PowerOnVM(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.VMRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.power.PowerOn(ctx, req.VMID)), nil
}

// PowerOffVM handles power_off_vm
func (h *VirtualMachine) PowerOffVM(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.PowerOffVMRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.power.PowerOff(ctx, req.VMID, req.WaitTimeoutSeconds, req.ForceAfterTimeout)), nil
}

// KillVM handles kill_vm
func (h *VirtualMachine) KillVM(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.VMRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.power.Kill(ctx, req.VMID)), nil
}

// ResetVM handles reset_vm
func (h *VirtualMachine) ResetVM(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.VMRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.power.Reset(ctx, req.VMID)), nil
}

// ModifyVM handles modify_vm
func (h *VirtualMachine) ModifyVM(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.ModifyVMRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.reconfigurer.Modify(ctx, adapter.AdaptModifyVM(req))), nil
}

// ListVMNICs handles list_vm_nics
func (h *VirtualMachine) ListVMNICs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.VMRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.vmService.NICs(ctx, req.VMID)), nil
}

// ListVMDrives handles list_vm_drives
func (h *VirtualMachine) ListVMDrives(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.VMRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.vmService.Drives(ctx, req.VMID)), nil
}

// ResizeVMDrive handles resize_vm_drive
func (h *VirtualMachine) ResizeVMDrive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.ResizeDriveRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.vmService.ResizeDrive(ctx, req.DriveID, req.SizeGB)), nil
}

// ListVMSnapshots handles list_vm_snapshots
func (h *VirtualMachine) ListVMSnapshots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.VMRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.vmService.Snapshots(ctx, req.VMID)), nil
}

// CreateVMSnapshot handles create_vm_snapshot
func (h *VirtualMachine) CreateVMSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req api.CreateSnapshotRequest
	if err := bindArguments(request, &req); err != nil {
		return FailureResult(err), nil
	}
	return respond(h.vmService.CreateSnapshot(ctx, adapter.AdaptCreateSnapshot(req))), nil
}
