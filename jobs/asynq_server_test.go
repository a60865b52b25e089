package jobs

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestSlogAdapterTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := slogAdapter{logger: logger}

	adapter.Info("starting ", 2, " workers")
	adapter.Warn("lease lost")

	out := buf.String()
	require.Contains(t, out, "msg=\"starting 2 workers\"")
	require.Contains(t, out, "level=WARN")
	require.Contains(t, out, "component=asynq")
}

func TestNewWorkerRejectsBadCron(t *testing.T) {
	task := asynq.NewTask(TaskBackupSync, nil)
	_, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Location:  time.UTC,
		Cron:      []CronRegistration{{Spec: "not a cron", Task: task}},
	})
	require.Error(t, err)
}
