package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/weighcheck/weighcheck/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// BackupUploader is the part of the cloud backup service the job drives.
type BackupUploader interface {
	Transports() []string
	Upload(ctx context.Context, name string) error
}

// BackupSyncJob uploads a fresh envelope after saves and on schedule.
type BackupSyncJob struct {
	Uploader  BackupUploader
	Namespace string
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewBackupSyncJob wires dependencies for the sync handler.
func NewBackupSyncJob(uploader BackupUploader, namespace string, logger *slog.Logger, metrics *jobmetrics.Metrics) *BackupSyncJob {
	return &BackupSyncJob{Uploader: uploader, Namespace: namespace, Logger: logger, Metrics: metrics}
}

// Handle processes backup sync tasks. A failed transport fails the task so
// asynq retries it; the other transports still run.
func (j *BackupSyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Uploader == nil {
		return errors.New("backup sync: handler not configured")
	}
	var payload BackupSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	logger := j.logger().With(slog.String("namespace", payload.Namespace), slog.String("reason", payload.Reason))
	if payload.Namespace != "" && j.Namespace != "" && payload.Namespace != j.Namespace {
		logger.Warn("backup sync for foreign namespace skipped", slog.String("worker_namespace", j.Namespace))
		return fmt.Errorf("backup sync: namespace %q not served: %w", payload.Namespace, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskBackupSync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	names := payload.Transports
	if len(names) == 0 {
		names = j.Uploader.Transports()
	}
	if len(names) == 0 {
		logger.Info("no backup transports configured")
		return resultErr
	}

	synced := 0
	for _, name := range names {
		err := j.Uploader.Upload(ctx, name)
		j.metrics().AddBackupUpload(name, err)
		if err != nil {
			logger.Error("backup upload", slog.String("transport", name), slog.Any("error", err))
			if resultErr == nil {
				resultErr = err
			}
			continue
		}
		synced++
	}
	logger.Info("backup sync finished", slog.Int("synced", synced), slog.Int("transports", len(names)))
	return resultErr
}

func (j *BackupSyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *BackupSyncJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
