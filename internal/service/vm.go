package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terabiome/vergemcp/internal/infrastructure/verge"
)

// DefaultSnapshotRetentionHours applies when a snapshot request sets no retention.
const DefaultSnapshotRetentionHours = 24

// ListResult wraps one page of a list endpoint.
type ListResult[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func newListResult[T any](items []T, page verge.Page) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{Items: items, Count: len(items), Limit: page.Limit, Offset: page.Offset}
}

// Collection wraps an unpaginated list.
type Collection[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newCollection[T any](items []T) Collection[T] {
	if items == nil {
		items = []T{}
	}
	return Collection[T]{Items: items, Count: len(items)}
}

// VMDetail is a VM's configuration together with its live power status.
type VMDetail struct {
	verge.VM
	Status PowerStatus `json:"power"`
}

// DriveResizeResult describes an accepted drive resize.
type DriveResizeResult struct {
	Success  bool    `json:"success"`
	DriveID  int     `json:"drive_id"`
	Name     string  `json:"name"`
	BeforeGB float64 `json:"before_gb"`
	AfterGB  float64 `json:"after_gb"`
	Message  string  `json:"message"`
}

// SnapshotParams contains transport-agnostic parameters for taking a snapshot.
type SnapshotParams struct {
	VMID           int
	Name           string
	RetentionHours int
}

// VMService provides transport-agnostic VM queries and non-power mutations.
type VMService struct {
	backend VMBackend
	power   *PowerController
	logger  *slog.Logger
}

// NewVMService creates a new VMService.
func NewVMService(backend VMBackend, power *PowerController, logger *slog.Logger) *VMService {
	return &VMService{
		backend: backend,
		power:   power,
		logger:  logger.With(slog.String("service", "vm")),
	}
}

// List returns one page of VMs. Snapshot images are excluded.
func (s *VMService) List(ctx context.Context, page verge.Page) (ListResult[verge.VM], error) {
	page = page.Normalize()
	vms, err := s.backend.ListVMs(ctx, page)
	if err != nil {
		return ListResult[verge.VM]{}, err
	}
	return newListResult(vms, page), nil
}

// Get returns a VM with its current power status.
func (s *VMService) Get(ctx context.Context, vmID int) (VMDetail, error) {
	vm, err := s.backend.GetVM(ctx, vmID)
	if err != nil {
		return VMDetail{}, err
	}
	status, err := s.power.status(ctx, vm)
	if err != nil {
		return VMDetail{}, err
	}
	return VMDetail{VM: vm, Status: status}, nil
}

// NICs lists the network interfaces of a VM.
func (s *VMService) NICs(ctx context.Context, vmID int) (Collection[verge.NIC], error) {
	vm, err := s.backend.GetVM(ctx, vmID)
	if err != nil {
		return Collection[verge.NIC]{}, err
	}
	nics, err := s.backend.MachineNICs(ctx, vm.Machine)
	if err != nil {
		return Collection[verge.NIC]{}, err
	}
	return newCollection(nics), nil
}

// Drives lists the drives of a VM.
func (s *VMService) Drives(ctx context.Context, vmID int) (Collection[verge.Drive], error) {
	vm, err := s.backend.GetVM(ctx, vmID)
	if err != nil {
		return Collection[verge.Drive]{}, err
	}
	drives, err := s.backend.MachineDrives(ctx, vm.Machine)
	if err != nil {
		return Collection[verge.Drive]{}, err
	}
	return newCollection(drives), nil
}

// ResizeDrive grows a drive to sizeGB. Shrinking is refused.
func (s *VMService) ResizeDrive(ctx context.Context, driveID, sizeGB int) (DriveResizeResult, error) {
	if sizeGB < 1 {
		return DriveResizeResult{}, &ValidationError{Field: "size_gb", Message: "must be at least 1"}
	}

	drive, err := s.backend.GetDrive(ctx, driveID)
	if err != nil {
		return DriveResizeResult{}, err
	}

	target := verge.GiB(sizeGB)
	if target <= drive.DiskSize {
		return DriveResizeResult{}, &ConflictError{
			Op:      "resize_drive",
			Message: "drives can only grow",
			Context: map[string]any{
				"drive_id":        driveID,
				"current_size_gb": toGB(drive.DiskSize),
				"requested_gb":    sizeGB,
			},
			Hint: "request a size larger than the current size",
		}
	}

	if err := s.backend.ResizeDrive(ctx, driveID, target); err != nil {
		return DriveResizeResult{}, err
	}

	s.logger.Info("resized drive",
		slog.Int("drive_id", driveID),
		slog.Int64("before_bytes", drive.DiskSize),
		slog.Int64("after_bytes", target),
	)
	return DriveResizeResult{
		Success:  true,
		DriveID:  driveID,
		Name:     drive.Name,
		BeforeGB: toGB(drive.DiskSize),
		AfterGB:  float64(sizeGB),
		Message:  fmt.Sprintf("drive %q resized to %d GB", drive.Name, sizeGB),
	}, nil
}

// Snapshots lists the snapshots of a VM, newest first.
func (s *VMService) Snapshots(ctx context.Context, vmID int) (Collection[verge.Snapshot], error) {
	vm, err := s.backend.GetVM(ctx, vmID)
	if err != nil {
		return Collection[verge.Snapshot]{}, err
	}
	snaps, err := s.backend.MachineSnapshots(ctx, vm.Machine)
	if err != nil {
		return Collection[verge.Snapshot]{}, err
	}
	return newCollection(snaps), nil
}

// CreateSnapshot asks the backend to snapshot a VM.
func (s *VMService) CreateSnapshot(ctx context.Context, p SnapshotParams) (ActionResult, error) {
	if p.Name == "" {
		return ActionResult{}, &ValidationError{Field: "name", Message: "is required"}
	}
	retention := p.RetentionHours
	if retention <= 0 {
		retention = DefaultSnapshotRetentionHours
	}

	vm, err := s.backend.GetVM(ctx, p.VMID)
	if err != nil {
		return ActionResult{}, err
	}

	params := map[string]any{
		"name":      p.Name,
		"retention": retention * 3600,
	}
	if err := s.backend.VMAction(ctx, vm.ID, ActionSnapshot, params); err != nil {
		return ActionResult{}, err
	}

	return ActionResult{
		Success: true,
		ID:      vm.ID,
		Name:    vm.Name,
		Action:  ActionSnapshot,
		Message: fmt.Sprintf("snapshot %q requested for VM %q, kept for %dh", p.Name, vm.Name, retention),
	}, nil
}

func toGB(bytes int64) float64 {
	return float64(bytes) / float64(1<<30)
}
