package verge

// VM is a virtual machine as modeled by the configuration API.
type VM struct {
	ID          int    `json:"$key"`
	Name        string `json:"name"`
	Machine     int    `json:"machine"`
	CPUCores    int    `json:"cpu_cores"`
	RAM         int    `json:"ram"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
	IsSnapshot  bool   `json:"is_snapshot"`
	OSFamily    string `json:"os_family,omitempty"`
}

// VMUpdate carries only the fields a caller asked to change. Nil fields are
// omitted from the request body so unrelated values are never overwritten.
type VMUpdate struct {
	CPUCores *int `json:"cpu_cores,omitempty"`
	RAM      *int `json:"ram,omitempty"`
}

// MachineStatus is a point-in-time power status read for one machine.
type MachineStatus struct {
	Machine    int    `json:"machine"`
	Running    bool   `json:"running"`
	Status     string `json:"status"`
	StatusInfo string `json:"status_info"`
	Migratable bool   `json:"migratable"`
	NodeName   string `json:"node_name,omitempty"`
}

// NIC is a network interface attached to a machine.
type NIC struct {
	ID         int    `json:"$key"`
	Machine    int    `json:"machine"`
	Name       string `json:"name"`
	Interface  string `json:"interface"`
	MACAddress string `json:"macaddress"`
	IPAddress  string `json:"ipaddress,omitempty"`
	VNet       int    `json:"vnet"`
	Enabled    bool   `json:"enabled"`
}

// Drive is a disk attached to a machine. DiskSize is in bytes.
type Drive struct {
	ID        int    `json:"$key"`
	Machine   int    `json:"machine"`
	Name      string `json:"name"`
	Interface string `json:"interface"`
	Media     string `json:"media"`
	DiskSize  int64  `json:"disksize"`
	Enabled   bool   `json:"enabled"`
}

// Snapshot is a point-in-time copy of a machine.
type Snapshot struct {
	ID      int    `json:"$key"`
	Machine int    `json:"machine"`
	Name    string `json:"name"`
	Created int64  `json:"created"`
	Expires int64  `json:"expires"`
}

// VNet is a virtual network.
type VNet struct {
	ID          int    `json:"$key"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Network     string `json:"network,omitempty"`
	Enabled     bool   `json:"enabled"`
	Running     bool   `json:"running"`
}

// Tenant is a nested virtual data center.
type Tenant struct {
	ID          int    `json:"$key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Running     bool   `json:"running"`
	Status      string `json:"status,omitempty"`
}

// LogEntry is a system log line.
type LogEntry struct {
	ID        int    `json:"$key"`
	Level     string `json:"level"`
	Text      string `json:"text"`
	User      string `json:"user,omitempty"`
	Object    string `json:"object_name,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Alarm is an active system alarm.
type Alarm struct {
	ID          int    `json:"$key"`
	Level       string `json:"level"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Owner       string `json:"owner,omitempty"`
	Created     int64  `json:"created"`
}

// ClusterStatus summarizes capacity and usage for one cluster.
type ClusterStatus struct {
	ID              int    `json:"$key"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	TotalNodes      int    `json:"total_nodes"`
	OnlineNodes     int    `json:"online_nodes"`
	TotalCores      int    `json:"total_cores"`
	UsedCores       int    `json:"used_cores"`
	TotalRAM        int64  `json:"total_ram"`
	UsedRAM         int64  `json:"used_ram"`
	RunningMachines int    `json:"running_machines"`
}

type actionRequest struct {
	VM     int            `json:"vm,omitempty"`
	VNet   int            `json:"vnet,omitempty"`
	Tenant int            `json:"tenant,omitempty"`
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Key string `json:"$key"`
}

type driveUpdate struct {
	DiskSize int64 `json:"disksize"`
}
