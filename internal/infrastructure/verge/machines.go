package verge

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// MachineStatuses lists the power status of every machine.
func (c *Client) MachineStatuses(ctx context.Context) ([]MachineStatus, error) {
	var statuses []MachineStatus
	if err := c.do(ctx, http.MethodGet, "/api/v4/machine_status", nil, nil, &statuses); err != nil {
		return nil, fmt.Errorf("list machine status: %w", err)
	}
	return statuses, nil
}

// MachineStatus reads the current power status of one machine.
func (c *Client) MachineStatus(ctx context.Context, machine int) (MachineStatus, error) {
	var statuses []MachineStatus
	if err := c.do(ctx, http.MethodGet, "/api/v4/machine_status", machineFilter(machine), nil, &statuses); err != nil {
		return MachineStatus{}, fmt.Errorf("machine %d status: %w", machine, err)
	}
	return FindMachineStatus(statuses, machine)
}

// FindMachineStatus picks the status record for machine out of an unfiltered list.
func FindMachineStatus(statuses []MachineStatus, machine int) (MachineStatus, error) {
	matched := filterByMachine(statuses, machine, func(s MachineStatus) int { return s.Machine })
	if len(matched) == 0 {
		return MachineStatus{}, fmt.Errorf("machine %d status: %w", machine, ErrNotFound)
	}
	return matched[0], nil
}

// MachineNICs lists the network interfaces of a machine.
func (c *Client) MachineNICs(ctx context.Context, machine int) ([]NIC, error) {
	var nics []NIC
	if err := c.do(ctx, http.MethodGet, "/api/v4/machine_nics", machineFilter(machine), nil, &nics); err != nil {
		return nil, fmt.Errorf("machine %d nics: %w", machine, err)
	}
	return filterByMachine(nics, machine, func(n NIC) int { return n.Machine }), nil
}

// MachineDrives lists the drives of a machine.
func (c *Client) MachineDrives(ctx context.Context, machine int) ([]Drive, error) {
	var drives []Drive
	if err := c.do(ctx, http.MethodGet, "/api/v4/machine_drives", machineFilter(machine), nil, &drives); err != nil {
		return nil, fmt.Errorf("machine %d drives: %w", machine, err)
	}
	return filterByMachine(drives, machine, func(d Drive) int { return d.Machine }), nil
}

// GetDrive reads one drive.
func (c *Client) GetDrive(ctx context.Context, id int) (Drive, error) {
	var drive Drive
	if err := c.do(ctx, http.MethodGet, "/api/v4/machine_drives/"+strconv.Itoa(id), nil, nil, &drive); err != nil {
		return Drive{}, fmt.Errorf("get drive %d: %w", id, err)
	}
	return drive, nil
}

// ResizeDrive sets a drive's size in bytes.
func (c *Client) ResizeDrive(ctx context.Context, id int, sizeBytes int64) error {
	path := "/api/v4/machine_drives/" + strconv.Itoa(id)
	if err := c.do(ctx, http.MethodPut, path, nil, driveUpdate{DiskSize: sizeBytes}, nil); err != nil {
		return fmt.Errorf("resize drive %d: %w", id, err)
	}
	return nil
}

// MachineSnapshots lists the snapshots of a machine.
func (c *Client) MachineSnapshots(ctx context.Context, machine int) ([]Snapshot, error) {
	var snapshots []Snapshot
	q := machineFilter(machine)
	q.Set("sort", "-created")
	if err := c.do(ctx, http.MethodGet, "/api/v4/machine_snapshots", q, nil, &snapshots); err != nil {
		return nil, fmt.Errorf("machine %d snapshots: %w", machine, err)
	}
	return filterByMachine(snapshots, machine, func(s Snapshot) int { return s.Machine }), nil
}
