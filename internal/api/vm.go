package api

// VMRequest identifies a single virtual machine.
type VMRequest struct {
	VMID int `json:"vm_id" validate:"required,min=1"`
}

// PageRequest selects a window of a list. Limits above the backend maximum
// are capped, not rejected.
type PageRequest struct {
	Limit  int `json:"limit,omitempty" validate:"omitempty,min=1"`
	Offset int `json:"offset,omitempty" validate:"omitempty,min=0"`
}

// PowerOffVMRequest contains the arguments of power_off_vm.
type PowerOffVMRequest struct {
	VMID               int  `json:"vm_id" validate:"required,min=1"`
	WaitTimeoutSeconds int  `json:"wait_timeout_seconds,omitempty" validate:"omitempty,min=0"`
	ForceAfterTimeout  bool `json:"force_after_timeout,omitempty"`
}

// ModifyVMRequest contains the arguments of modify_vm. At least one of
// CPUCores or RAMMB must be set.
type ModifyVMRequest struct {
	VMID               int  `json:"vm_id" validate:"required,min=1"`
	CPUCores           *int `json:"cpu_cores,omitempty" validate:"omitempty,min=1,max=1024"`
	RAMMB              *int `json:"ram_mb,omitempty" validate:"omitempty,min=1"`
	ShutdownIfRunning  bool `json:"shutdown_if_running,omitempty"`
	WaitTimeoutSeconds int  `json:"wait_timeout_seconds,omitempty" validate:"omitempty,min=0"`
	ForceAfterTimeout  bool `json:"force_after_timeout,omitempty"`
}

// ResizeDriveRequest contains the arguments of resize_vm_drive.
type ResizeDriveRequest struct {
	DriveID int `json:"drive_id" validate:"required,min=1"`
	SizeGB  int `json:"size_gb" validate:"required,min=1"`
}

// CreateSnapshotRequest contains the arguments of create_vm_snapshot.
type CreateSnapshotRequest struct {
	VMID           int    `json:"vm_id" validate:"required,min=1"`
	Name           string `json:"name" validate:"required,max=128"`
	RetentionHours int    `json:"retention_hours,omitempty" validate:"omitempty,min=1"`
}
