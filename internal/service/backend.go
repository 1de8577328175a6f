package service

import (
	"context"

	"github.com/terabiome/vergemcp/internal/infrastructure/verge"
)

// VMBackend is the subset of the backend client used for VM operations.
type VMBackend interface {
	GetVM(ctx context.Context, id int) (verge.VM, error)
	ListVMs(ctx context.Context, page verge.Page) ([]verge.VM, error)
	UpdateVM(ctx context.Context, id int, update verge.VMUpdate) error
	VMAction(ctx context.Context, id int, action string, params map[string]any) error

	MachineStatus(ctx context.Context, machine int) (verge.MachineStatus, error)
	MachineStatuses(ctx context.Context) ([]verge.MachineStatus, error)
	MachineNICs(ctx context.Context, machine int) ([]verge.NIC, error)
	MachineDrives(ctx context.Context, machine int) ([]verge.Drive, error)
	MachineSnapshots(ctx context.Context, machine int) ([]verge.Snapshot, error)
	GetDrive(ctx context.Context, id int) (verge.Drive, error)
	ResizeDrive(ctx context.Context, id int, sizeBytes int64) error
}

// InfraBackend is the subset of the backend client used for networks,
// tenants and system feeds.
type InfraBackend interface {
	ListNetworks(ctx context.Context, page verge.Page) ([]verge.VNet, error)
	NetworkAction(ctx context.Context, id int, action string) error
	ListTenants(ctx context.Context, page verge.Page) ([]verge.Tenant, error)
	TenantAction(ctx context.Context, id int, action string) error
	Logs(ctx context.Context, limit int, level string) ([]verge.LogEntry, error)
	Alarms(ctx context.Context) ([]verge.Alarm, error)
	ClusterStatus(ctx context.Context) ([]verge.ClusterStatus, error)
}

var (
	_ VMBackend    = (*verge.Client)(nil)
	_ InfraBackend = (*verge.Client)(nil)
)
