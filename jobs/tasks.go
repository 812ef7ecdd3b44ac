// Package jobs wires background task processing on Asynq.
package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeRoleAudit re-verifies the system role invariants.
	TaskTypeRoleAudit = "roles:audit"
)

// RoleAuditor re-ensures the system roles exist and are well formed. The
// role bootstrapper satisfies this.
type RoleAuditor interface {
	EnsureSystemRoles(ctx context.Context) error
}

// NewRoleAuditTask constructs an Asynq task. The task carries no payload;
// the audit always covers both system roles.
func NewRoleAuditTask() *asynq.Task {
	return asynq.NewTask(TaskTypeRoleAudit, nil)
}

// RoleAuditHandler returns the Asynq handler for role audit tasks. The
// audit is idempotent, so retries after transient store failures are safe.
func RoleAuditHandler(auditor RoleAuditor, logger *slog.Logger, metrics *Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeRoleAudit)
		if err := tracker.End(auditor.EnsureSystemRoles(ctx)); err != nil {
			logger.Error("role audit", slog.Any("error", err))
			return err
		}
		logger.Info("role audit completed")
		return nil
	}
}
