package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBackupSync uploads the station's backup envelope to cloud transports.
	TaskBackupSync = "backup:sync"
)

// BackupSyncPayload describes one sync request. An empty Transports list
// means every configured transport.
type BackupSyncPayload struct {
	Namespace  string    `json:"namespace"`
	Transports []string  `json:"transports,omitempty"`
	Reason     string    `json:"reason"`
	RecordID   string    `json:"record_id,omitempty"`
	Requested  time.Time `json:"requested_at"`
}

// NewBackupSyncTask constructs an Asynq task.
func NewBackupSyncTask(payload BackupSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBackupSync, data), nil
}
