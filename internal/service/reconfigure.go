package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terabiome/vergemcp/internal/infrastructure/verge"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// ModifyVMParams contains transport-agnostic parameters for changing a VM's
// CPU and RAM. At least one of CPUCores or RAMMB must be set.
type ModifyVMParams struct {
	VMID               int
	CPUCores           *int
	RAMMB              *int
	ShutdownIfRunning  bool
	WaitTimeoutSeconds int
	ForceAfterTimeout  bool
}

// ResourceChange is the before and after value of one setting.
type ResourceChange struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

// ModifyResult describes an applied reconfiguration.
type ModifyResult struct {
	Success  bool            `json:"success"`
	VMID     int             `json:"vm_id"`
	Name     string          `json:"name"`
	CPUCores ResourceChange  `json:"cpu_cores"`
	RAMMB    ResourceChange  `json:"ram_mb"`
	ShutDown bool            `json:"shut_down"`
	PowerOff *PowerOffResult `json:"power_off,omitempty"`
	Note     string          `json:"note"`
	Message  string          `json:"message"`
}

// Reconfigurer applies CPU and RAM changes, which the backend only accepts
// while a VM is powered off.
type Reconfigurer struct {
	backend VMBackend
	power   *PowerController
	logger  *slog.Logger

	modifyCounter metric.Int64Counter
}

// NewReconfigurer creates a Reconfigurer.
func NewReconfigurer(backend VMBackend, power *PowerController, logger *slog.Logger) *Reconfigurer {
	meter := otel.Meter("vergemcp/service")

	modifyCounter, err := meter.Int64Counter(
		"vergemcp.vm.modify",
		metric.WithDescription("Number of VM reconfiguration operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		logger.Warn("failed to create modifyCounter metric", slog.String("error", err.Error()))
	}

	return &Reconfigurer{
		backend:       backend,
		power:         power,
		logger:        logger.With(slog.String("service", "reconfigure")),
		modifyCounter: modifyCounter,
	}
}

// Modify changes CPU and/or RAM of a VM. A running VM is shut down first only
// when ShutdownIfRunning is set; it is never restarted afterwards.
//
// Nothing prevents a third party from starting the VM between the shutdown
// and the update; the backend then rejects or defers the change.
func (r *Reconfigurer) Modify(ctx context.Context, p ModifyVMParams) (ModifyResult, error) {
	if err := p.validate(); err != nil {
		return ModifyResult{}, err
	}

	tracer := otel.Tracer("vergemcp/service")
	ctx, span := tracer.Start(ctx, "Modify")
	defer span.End()
	span.SetAttributes(
		attribute.Int("vm.id", p.VMID),
		attribute.Bool("shutdown_if_running", p.ShutdownIfRunning),
	)

	outcome := "error"
	defer func() {
		span.SetAttributes(attribute.String("outcome", outcome))
		if r.modifyCounter != nil {
			r.modifyCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		}
	}()

	var (
		vm       verge.VM
		statuses []verge.MachineStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vm, err = r.backend.GetVM(gctx, p.VMID)
		return err
	})
	g.Go(func() error {
		var err error
		statuses, err = r.backend.MachineStatuses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return ModifyResult{}, err
	}

	status, err := verge.FindMachineStatus(statuses, vm.Machine)
	if err != nil {
		return ModifyResult{}, err
	}

	result := ModifyResult{
		Success:  true,
		VMID:     vm.ID,
		Name:     vm.Name,
		CPUCores: ResourceChange{Before: vm.CPUCores, After: vm.CPUCores},
		RAMMB:    ResourceChange{Before: vm.RAM, After: vm.RAM},
	}

	if status.Running {
		if !p.ShutdownIfRunning {
			outcome = "conflict"
			return ModifyResult{}, &ConflictError{
				Op:      "modify",
				Message: fmt.Sprintf("VM %q is running; CPU and RAM can only be changed while it is powered off", vm.Name),
				Context: p.conflictContext(vm, status),
				Hint:    "set shutdown_if_running to power the VM off before applying the change",
			}
		}

		r.logger.Info("shutting down vm before reconfiguration",
			slog.Int("vm_id", vm.ID),
			slog.String("name", vm.Name),
		)
		off, err := r.power.powerOff(ctx, vm, p.WaitTimeoutSeconds, p.ForceAfterTimeout)
		if err != nil {
			outcome = "shutdown_failed"
			return ModifyResult{}, &ConflictError{
				Op:      "modify",
				Message: fmt.Sprintf("VM %q could not be powered off; configuration was not changed", vm.Name),
				Context: p.conflictContext(vm, status),
				Hint:    "increase wait_timeout_seconds or set force_after_timeout",
				Err:     err,
			}
		}
		result.ShutDown = true
		result.PowerOff = &off
	}

	var update verge.VMUpdate
	if p.CPUCores != nil {
		update.CPUCores = p.CPUCores
		result.CPUCores.After = *p.CPUCores
	}
	if p.RAMMB != nil {
		update.RAM = p.RAMMB
		result.RAMMB.After = *p.RAMMB
	}
	if err := r.backend.UpdateVM(ctx, vm.ID, update); err != nil {
		return ModifyResult{}, err
	}

	r.logger.Info("reconfigured vm",
		slog.Int("vm_id", vm.ID),
		slog.Int("cpu_cores", result.CPUCores.After),
		slog.Int("ram_mb", result.RAMMB.After),
	)

	outcome = "applied"
	result.Note = "the VM remains powered off; start it with power_on_vm when ready"
	if result.PowerOff != nil && result.PowerOff.Running {
		result.Note = "shutdown was issued without waiting, so the VM may still have been running when the change was sent; " +
			"pass wait_timeout_seconds to apply it to a stopped VM"
	}
	result.Message = fmt.Sprintf("updated VM %q", vm.Name)
	return result, nil
}

func (p ModifyVMParams) validate() error {
	if p.CPUCores == nil && p.RAMMB == nil {
		return &ValidationError{Message: "at least one of cpu_cores or ram_mb must be provided"}
	}
	if p.CPUCores != nil && *p.CPUCores < 1 {
		return &ValidationError{Field: "cpu_cores", Message: "must be at least 1"}
	}
	if p.RAMMB != nil && *p.RAMMB < 1 {
		return &ValidationError{Field: "ram_mb", Message: "must be at least 1"}
	}
	return nil
}

func (p ModifyVMParams) conflictContext(vm verge.VM, status verge.MachineStatus) map[string]any {
	ctx := map[string]any{
		"vm_id":          vm.ID,
		"name":           vm.Name,
		"current_state":  status.Status,
		"current_cpu":    vm.CPUCores,
		"current_ram_mb": vm.RAM,
	}
	if p.CPUCores != nil {
		ctx["requested_cpu"] = *p.CPUCores
	}
	if p.RAMMB != nil {
		ctx["requested_ram_mb"] = *p.RAMMB
	}
	return ctx
}
