package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/rentora-erp/rentora-erp/internal/jobs"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuditRecord persists one audit log entry.
	TaskTypeAuditRecord = "audit:record"
	// TaskTypeMaintenanceCleanup prunes expired token and idempotency rows.
	TaskTypeMaintenanceCleanup = "maintenance:cleanup"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NewAuditRecordTask constructs an Asynq task carrying one audit entry.
func NewAuditRecordTask(entry shared.AuditLog) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditRecord, data), nil
}

// NewMaintenanceCleanupTask constructs the periodic cleanup task.
func NewMaintenanceCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeMaintenanceCleanup, nil)
}

// AuditRecordJob writes queued audit entries to storage.
type AuditRecordJob struct {
	Recorder *shared.AuditLogger
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewAuditRecordJob wires dependencies for the audit handler.
func NewAuditRecordJob(recorder *shared.AuditLogger, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditRecordJob {
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	return &AuditRecordJob{Recorder: recorder, Logger: logger, Metrics: metrics}
}

// Handle processes audit:record tasks.
func (j *AuditRecordJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Recorder == nil {
		return errors.New("audit record: handler not configured")
	}
	tracker := j.Metrics.Track("audit_record")
	var entry shared.AuditLog
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	err := j.Recorder.Record(ctx, entry)
	if err != nil {
		j.Logger.Warn("audit record failed", slog.String("action", entry.Action), slog.Any("error", err))
	}
	return tracker.End(err)
}

// MaintenanceCleanupJob prunes the access token mirror and stale
// idempotency keys. Redis expires live tokens on its own; this only
// keeps the relational mirror from growing without bound.
type MaintenanceCleanupJob struct {
	Pool          *pgxpool.Pool
	Keys          *shared.IdempotencyStore
	KeysRetention time.Duration
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
}

// NewMaintenanceCleanupJob wires dependencies for the cleanup handler.
func NewMaintenanceCleanupJob(pool *pgxpool.Pool, keys *shared.IdempotencyStore, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *MaintenanceCleanupJob {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	return &MaintenanceCleanupJob{Pool: pool, Keys: keys, KeysRetention: retention, Logger: logger, Metrics: metrics}
}

// Handle processes maintenance:cleanup tasks.
func (j *MaintenanceCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("maintenance cleanup: handler not configured")
	}
	tracker := j.Metrics.Track("maintenance_cleanup")

	tag, err := j.Pool.Exec(ctx, `DELETE FROM access_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return tracker.End(err)
	}
	if err := j.Keys.Cleanup(ctx, j.KeysRetention); err != nil {
		return tracker.End(err)
	}
	j.Logger.Info("maintenance cleanup done", slog.Int64("tokens_removed", tag.RowsAffected()))
	return tracker.End(nil)
}
