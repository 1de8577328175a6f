package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/terabiome/vergemcp/internal/infrastructure/verge"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Backend action verbs for VMs.
const (
	ActionPowerOn  = "poweron"
	ActionPowerOff = "poweroff"
	ActionKill     = "kill"
	ActionReset    = "reset"
	ActionSnapshot = "snapshot"
)

// PollPolicy bounds the graceful shutdown wait.
type PollPolicy struct {
	Interval   time.Duration
	KillSettle time.Duration
	MaxWait    time.Duration
}

// DefaultPollPolicy polls every 3s, waits 2s after a kill and never waits
// longer than 5 minutes.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:   3 * time.Second,
		KillSettle: 2 * time.Second,
		MaxWait:    300 * time.Second,
	}
}

// ClampWait limits a requested wait in seconds to [0, MaxWait].
func (p PollPolicy) ClampWait(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	wait := time.Duration(seconds) * time.Second
	if wait > p.MaxWait {
		return p.MaxWait
	}
	return wait
}

// MaxPolls is the number of status reads that fit in wait.
func (p PollPolicy) MaxPolls(wait time.Duration) int {
	if wait <= 0 || p.Interval <= 0 {
		return 0
	}
	return int(math.Ceil(float64(wait) / float64(p.Interval)))
}

// Clock abstracts time so the poll loop can run against simulated time.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PowerStatus is a point-in-time power read for a VM. It is never cached.
type PowerStatus struct {
	VMID       int    `json:"vm_id"`
	Name       string `json:"name"`
	Machine    int    `json:"machine"`
	Running    bool   `json:"running"`
	State      string `json:"status"`
	StatusInfo string `json:"status_info,omitempty"`
	Migratable bool   `json:"migratable"`
	Node       string `json:"node,omitempty"`
}

func newPowerStatus(vm verge.VM, st verge.MachineStatus) PowerStatus {
	return PowerStatus{
		VMID:       vm.ID,
		Name:       vm.Name,
		Machine:    vm.Machine,
		Running:    st.Running,
		State:      st.Status,
		StatusInfo: st.StatusInfo,
		Migratable: st.Migratable,
		Node:       st.NodeName,
	}
}

// PowerOffResult describes the outcome of a shutdown request.
type PowerOffResult struct {
	Success        bool    `json:"success"`
	VMID           int     `json:"vm_id"`
	Name           string  `json:"name"`
	WasRunning     bool    `json:"was_running"`
	CurrentState   string  `json:"current_state,omitempty"`
	FinalState     string  `json:"final_state,omitempty"`
	Running        bool    `json:"running"`
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
	Forced         bool    `json:"forced"`
	Note           string  `json:"note,omitempty"`
	Message        string  `json:"message"`
}

// ActionResult describes a dispatched action that the backend accepted.
type ActionResult struct {
	Success bool   `json:"success"`
	ID      int    `json:"id"`
	Name    string `json:"name,omitempty"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

// PowerController drives VM power state transitions.
type PowerController struct {
	backend VMBackend
	policy  PollPolicy
	clock   Clock
	logger  *slog.Logger

	powerOffCounter  metric.Int64Counter
	powerOffDuration metric.Float64Histogram
	actionCounter    metric.Int64Counter
}

// NewPowerController creates a PowerController. A nil clock uses wall time.
func NewPowerController(backend VMBackend, policy PollPolicy, clock Clock, logger *slog.Logger) *PowerController {
	if clock == nil {
		clock = realClock{}
	}
	meter := otel.Meter("vergemcp/service")

	powerOffCounter, err := meter.Int64Counter(
		"vergemcp.vm.poweroff",
		metric.WithDescription("Number of VM power-off operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		logger.Warn("failed to create powerOffCounter metric", slog.String("error", err.Error()))
	}

	powerOffDuration, err := meter.Float64Histogram(
		"vergemcp.vm.poweroff.duration",
		metric.WithDescription("Duration of VM power-off operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("failed to create powerOffDuration metric", slog.String("error", err.Error()))
	}

	actionCounter, err := meter.Int64Counter(
		"vergemcp.vm.action",
		metric.WithDescription("Number of VM actions dispatched"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		logger.Warn("failed to create actionCounter metric", slog.String("error", err.Error()))
	}

	return &PowerController{
		backend:          backend,
		policy:           policy,
		clock:            clock,
		logger:           logger.With(slog.String("service", "power")),
		powerOffCounter:  powerOffCounter,
		powerOffDuration: powerOffDuration,
		actionCounter:    actionCounter,
	}
}

// Policy returns the poll policy in effect.
func (c *PowerController) Policy() PollPolicy {
	return c.policy
}

// Status reads the current power status of a VM.
func (c *PowerController) Status(ctx context.Context, vmID int) (PowerStatus, error) {
	vm, err := c.backend.GetVM(ctx, vmID)
	if err != nil {
		return PowerStatus{}, err
	}
	return c.status(ctx, vm)
}

func (c *PowerController) status(ctx context.Context, vm verge.VM) (PowerStatus, error) {
	st, err := c.backend.MachineStatus(ctx, vm.Machine)
	if err != nil {
		return PowerStatus{}, err
	}
	return newPowerStatus(vm, st), nil
}

// PowerOn starts a stopped VM. It refuses when the VM is already running.
func (c *PowerController) PowerOn(ctx context.Context, vmID int) (ActionResult, error) {
	return c.guardedAction(ctx, vmID, ActionPowerOn, true, "VM is already running", "")
}

// Reset hard-resets a running VM. It refuses when the VM is not running.
func (c *PowerController) Reset(ctx context.Context, vmID int) (ActionResult, error) {
	return c.guardedAction(ctx, vmID, ActionReset, false, "VM is not running", "use power_on_vm to start it")
}

// Kill stops a running VM immediately without a graceful attempt.
func (c *PowerController) Kill(ctx context.Context, vmID int) (ActionResult, error) {
	return c.guardedAction(ctx, vmID, ActionKill, false, "VM is already stopped", "")
}

// guardedAction dispatches action after checking the VM is not in the state
// given by refuseWhenRunning.
func (c *PowerController) guardedAction(ctx context.Context, vmID int, action string, refuseWhenRunning bool, conflict, hint string) (ActionResult, error) {
	status, err := c.Status(ctx, vmID)
	if err != nil {
		return ActionResult{}, err
	}
	if status.Running == refuseWhenRunning {
		return ActionResult{}, &ConflictError{
			Op:      action,
			Message: conflict,
			Context: map[string]any{
				"vm_id":         vmID,
				"name":          status.Name,
				"current_state": status.State,
				"running":       status.Running,
			},
			Hint: hint,
		}
	}

	if err := c.dispatch(ctx, vmID, action); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{
		Success: true,
		ID:      vmID,
		Name:    status.Name,
		Action:  action,
		Message: fmt.Sprintf("%s issued for VM %q", action, status.Name),
	}, nil
}

func (c *PowerController) dispatch(ctx context.Context, vmID int, action string) error {
	c.logger.Info("dispatching vm action", slog.Int("vm_id", vmID), slog.String("action", action))
	if err := c.backend.VMAction(ctx, vmID, action, nil); err != nil {
		return err
	}
	if c.actionCounter != nil {
		c.actionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	}
	return nil
}

// PowerOff gracefully shuts a VM down, optionally waiting for it to stop and
// escalating to a kill when the wait runs out.
func (c *PowerController) PowerOff(ctx context.Context, vmID, waitSeconds int, forceAfterTimeout bool) (PowerOffResult, error) {
	vm, err := c.backend.GetVM(ctx, vmID)
	if err != nil {
		return PowerOffResult{}, err
	}
	return c.powerOff(ctx, vm, waitSeconds, forceAfterTimeout)
}

func (c *PowerController) powerOff(ctx context.Context, vm verge.VM, waitSeconds int, forceAfterTimeout bool) (PowerOffResult, error) {
	tracer := otel.Tracer("vergemcp/service")
	ctx, span := tracer.Start(ctx, "PowerOff")
	defer span.End()

	wait := c.policy.ClampWait(waitSeconds)
	span.SetAttributes(
		attribute.Int("vm.id", vm.ID),
		attribute.Int("vm.machine", vm.Machine),
		attribute.Float64("wait.seconds", wait.Seconds()),
		attribute.Bool("force_after_timeout", forceAfterTimeout),
	)

	start := c.clock.Now()
	outcome := "error"
	defer func() {
		span.SetAttributes(attribute.String("outcome", outcome))
		if c.powerOffCounter != nil {
			c.powerOffCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		}
		if c.powerOffDuration != nil {
			c.powerOffDuration.Record(ctx, c.clock.Now().Sub(start).Seconds(), metric.WithAttributes(
				attribute.String("outcome", outcome),
			))
		}
	}()

	status, err := c.status(ctx, vm)
	if err != nil {
		return PowerOffResult{}, err
	}
	if !status.Running {
		outcome = "already_stopped"
		return PowerOffResult{
			Success:      true,
			VMID:         vm.ID,
			Name:         vm.Name,
			WasRunning:   false,
			CurrentState: status.State,
			Message:      fmt.Sprintf("VM %q is already stopped", vm.Name),
		}, nil
	}

	if err := c.dispatch(ctx, vm.ID, ActionPowerOff); err != nil {
		return PowerOffResult{}, err
	}

	if wait <= 0 {
		outcome = "no_wait"
		return PowerOffResult{
			Success:      true,
			VMID:         vm.ID,
			Name:         vm.Name,
			WasRunning:   true,
			CurrentState: status.State,
			Running:      true,
			Note:         "no wait requested; the VM may still be shutting down",
			Message:      fmt.Sprintf("graceful shutdown issued for VM %q", vm.Name),
		}, nil
	}

	maxPolls := c.policy.MaxPolls(wait)
	for poll := 1; poll <= maxPolls; poll++ {
		if err := c.clock.Sleep(ctx, c.policy.Interval); err != nil {
			return PowerOffResult{}, fmt.Errorf("waiting for vm %d to stop: %w", vm.ID, err)
		}

		status, err = c.status(ctx, vm)
		if err != nil {
			return PowerOffResult{}, err
		}
		elapsed := c.clock.Now().Sub(start)

		c.logger.Debug("polled vm power state",
			slog.Int("vm_id", vm.ID),
			slog.Int("poll", poll),
			slog.Bool("running", status.Running),
			slog.Duration("elapsed", elapsed),
		)

		// stopped wins over the deadline on the same read
		if !status.Running {
			outcome = "graceful"
			return PowerOffResult{
				Success:        true,
				VMID:           vm.ID,
				Name:           vm.Name,
				WasRunning:     true,
				FinalState:     status.State,
				ElapsedSeconds: seconds(elapsed),
				Message:        fmt.Sprintf("VM %q shut down gracefully", vm.Name),
			}, nil
		}
		if elapsed >= wait {
			break
		}
	}

	elapsed := c.clock.Now().Sub(start)
	if !forceAfterTimeout {
		outcome = "timeout"
		c.logger.Warn("vm did not stop within wait",
			slog.Int("vm_id", vm.ID),
			slog.Duration("wait", wait),
		)
		return PowerOffResult{}, &TimeoutError{
			VMID:           vm.ID,
			WaitSeconds:    int(wait.Seconds()),
			ElapsedSeconds: seconds(elapsed),
			Status:         status,
			Hint:           "set force_after_timeout to kill the VM when the graceful shutdown times out",
		}
	}

	c.logger.Warn("graceful shutdown timed out, killing vm", slog.Int("vm_id", vm.ID))
	if err := c.dispatch(ctx, vm.ID, ActionKill); err != nil {
		return PowerOffResult{}, err
	}
	if err := c.clock.Sleep(ctx, c.policy.KillSettle); err != nil {
		return PowerOffResult{}, fmt.Errorf("waiting for vm %d kill: %w", vm.ID, err)
	}

	// best effort: the kill may not have landed yet
	final, err := c.status(ctx, vm)
	if err != nil {
		final = status
		c.logger.Warn("failed to read status after kill",
			slog.Int("vm_id", vm.ID),
			slog.String("error", err.Error()),
		)
	}

	outcome = "forced"
	return PowerOffResult{
		Success:        true,
		VMID:           vm.ID,
		Name:           vm.Name,
		WasRunning:     true,
		FinalState:     final.State,
		Running:        final.Running,
		ElapsedSeconds: seconds(c.clock.Now().Sub(start)),
		Forced:         true,
		Message:        fmt.Sprintf("VM %q did not stop within %ds and was killed", vm.Name, int(wait.Seconds())),
	}, nil
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*10) / 10
}
