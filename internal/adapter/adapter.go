package adapter

import (
	"github.com/terabiome/vergemcp/internal/api"
	"github.com/terabiome/vergemcp/internal/infrastructure/verge"
	"github.com/terabiome/vergemcp/internal/service"
)

func AdaptPage(req api.PageRequest) verge.Page {
	return verge.Page{Limit: req.Limit, Offset: req.Offset}
}

func AdaptModifyVM(req api.ModifyVMRequest) service.ModifyVMParams {
	return service.ModifyVMParams{
		VMID:               req.VMID,
		CPUCores:           req.CPUCores,
		RAMMB:              req.RAMMB,
		ShutdownIfRunning:  req.ShutdownIfRunning,
		WaitTimeoutSeconds: req.WaitTimeoutSeconds,
		ForceAfterTimeout:  req.ForceAfterTimeout,
	}
}

func AdaptCreateSnapshot(req api.CreateSnapshotRequest) service.SnapshotParams {
	return service.SnapshotParams{
		VMID:           req.VMID,
		Name:           req.Name,
		RetentionHours: req.RetentionHours,
	}
}
