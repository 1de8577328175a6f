package api

// NetworkActionRequest contains the arguments of network_action.
type NetworkActionRequest struct {
	NetworkID int    `json:"network_id" validate:"required,min=1"`
	Action    string `json:"action" validate:"required,oneof=poweron poweroff reset apply"`
}

// TenantActionRequest contains the arguments of tenant_action.
type TenantActionRequest struct {
	TenantID int    `json:"tenant_id" validate:"required,min=1"`
	Action   string `json:"action" validate:"required,oneof=poweron poweroff reset kill"`
}

// LogsRequest contains the arguments of get_logs.
type LogsRequest struct {
	Limit int    `json:"limit,omitempty" validate:"omitempty,min=1"`
	Level string `json:"level,omitempty" validate:"omitempty,oneof=audit message warning error critical summary debug"`
}
