package cron

import (
	"context"

	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/routing"
	"github.com/nextlevelbuilder/clawroute/internal/sessions"
	"github.com/nextlevelbuilder/clawroute/pkg/protocol"
)

// ResolveTarget computes where a job run's output should be delivered.
// deliveryMode is "origin" (reply where the job was registered) or
// "current" (prefer live session state); the job's payload fields always
// win over either.
func ResolveTarget(ctx context.Context, cfg *config.Config, store sessions.Store, job Job, deliveryMode string) routing.Target {
	if deliveryMode == "" {
		deliveryMode = protocol.DeliveryOrigin
	}
	agentID := cfg.NormalizeAgentID(job.AgentID)
	payload := routing.JobPayload{
		Channel:    job.Payload.Channel,
		To:         job.Payload.To,
		SessionKey: job.Payload.SessionKey,
	}
	return routing.Resolve(ctx, cfg, store, agentID, payload, routing.Options{
		Origin: job.Origin,
		Mode:   deliveryMode,
	})
}

// RunSessionKey builds the isolated session key for one run of a job.
func RunSessionKey(cfg *config.Config, job Job, runID string) string {
	return sessions.CronRunKey(cfg.NormalizeAgentID(job.AgentID), job.ID, runID)
}
