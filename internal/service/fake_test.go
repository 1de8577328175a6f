package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/terabiome/vergemcp/internal/infrastructure/verge"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

type actionCall struct {
	vmID   int
	action string
	params map[string]any
}

// fakeBackend is an in-memory VMBackend. running is consulted on every
// status read; when nil, the VM's power flag is used.
type fakeBackend struct {
	mu sync.Mutex

	vms     map[int]verge.VM
	power   map[int]bool
	drives  map[int]verge.Drive
	running func(machine, read int) bool

	statusReads int
	getCalls    int
	actions     []actionCall
	updates     []verge.VMUpdate
	resizes     map[int]int64
}

func newFakeBackend(vms ...verge.VM) *fakeBackend {
	b := &fakeBackend{
		vms:     map[int]verge.VM{},
		power:   map[int]bool{},
		drives:  map[int]verge.Drive{},
		resizes: map[int]int64{},
	}
	for _, vm := range vms {
		b.vms[vm.ID] = vm
	}
	return b
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusReads + b.getCalls + len(b.actions) + len(b.updates)
}

func (b *fakeBackend) actionCount(action string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, a := range b.actions {
		if a.action == action {
			n++
		}
	}
	return n
}

func (b *fakeBackend) machineOf(machine int) (verge.VM, bool) {
	for _, vm := range b.vms {
		if vm.Machine == machine {
			return vm, true
		}
	}
	return verge.VM{}, false
}

func (b *fakeBackend) GetVM(_ context.Context, id int) (verge.VM, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getCalls++
	vm, ok := b.vms[id]
	if !ok {
		return verge.VM{}, &verge.APIError{Method: "GET", Path: "/api/v4/vms", StatusCode: 404, Body: "not found"}
	}
	return vm, nil
}

func (b *fakeBackend) ListVMs(_ context.Context, _ verge.Page) ([]verge.VM, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]verge.VM, 0, len(b.vms))
	for _, vm := range b.vms {
		out = append(out, vm)
	}
	return out, nil
}

func (b *fakeBackend) UpdateVM(_ context.Context, id int, update verge.VMUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, update)
	vm := b.vms[id]
	if update.CPUCores != nil {
		vm.CPUCores = *update.CPUCores
	}
	if update.RAM != nil {
		vm.RAM = *update.RAM
	}
	b.vms[id] = vm
	return nil
}

func (b *fakeBackend) VMAction(_ context.Context, id int, action string, params map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actions = append(b.actions, actionCall{vmID: id, action: action, params: params})
	if b.running == nil {
		switch action {
		case ActionPowerOn:
			b.power[id] = true
		case ActionPowerOff, ActionKill:
			b.power[id] = false
		}
	}
	return nil
}

func (b *fakeBackend) readStatus(machine int) verge.MachineStatus {
	b.statusReads++
	vm, _ := b.machineOf(machine)
	running := b.power[vm.ID]
	if b.running != nil {
		running = b.running(machine, b.statusReads)
	}
	status := "stopped"
	if running {
		status = "running"
	}
	return verge.MachineStatus{Machine: machine, Running: running, Status: status}
}

func (b *fakeBackend) MachineStatus(_ context.Context, machine int) (verge.MachineStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readStatus(machine), nil
}

func (b *fakeBackend) MachineStatuses(_ context.Context) ([]verge.MachineStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []verge.MachineStatus
	for _, vm := range b.vms {
		out = append(out, b.readStatus(vm.Machine))
	}
	return out, nil
}

func (b *fakeBackend) MachineNICs(_ context.Context, machine int) ([]verge.NIC, error) {
	return []verge.NIC{{ID: 1, Machine: machine, Name: "nic0"}}, nil
}

func (b *fakeBackend) MachineDrives(_ context.Context, machine int) ([]verge.Drive, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []verge.Drive
	for _, d := range b.drives {
		if d.Machine == machine {
			out = append(out, d)
		}
	}
	return out, nil
}

func (b *fakeBackend) MachineSnapshots(_ context.Context, machine int) ([]verge.Snapshot, error) {
	return nil, nil
}

func (b *fakeBackend) GetDrive(_ context.Context, id int) (verge.Drive, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.drives[id]
	if !ok {
		return verge.Drive{}, &verge.APIError{Method: "GET", Path: "/api/v4/machine_drives", StatusCode: 404}
	}
	return d, nil
}

func (b *fakeBackend) ResizeDrive(_ context.Context, id int, sizeBytes int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resizes[id] = sizeBytes
	return nil
}

func newController(b *fakeBackend, clock Clock) *PowerController {
	return NewPowerController(b, DefaultPollPolicy(), clock, discardLogger())
}
