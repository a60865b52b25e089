package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/weighcheck/weighcheck/internal/jobs"
)

type stubUploader struct {
	names    []string
	failing  map[string]error
	uploaded []string
}

func (s *stubUploader) Transports() []string { return s.names }

func (s *stubUploader) Upload(_ context.Context, name string) error {
	if err := s.failing[name]; err != nil {
		return err
	}
	s.uploaded = append(s.uploaded, name)
	return nil
}

func newTestJob(up BackupUploader) *BackupSyncJob {
	return NewBackupSyncJob(up, "dock-1", nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestBackupSyncUploadsEveryTransport(t *testing.T) {
	up := &stubUploader{names: []string{"drive", "relational"}}
	task, err := NewBackupSyncTask(BackupSyncPayload{Namespace: "dock-1", Reason: "save"})
	require.NoError(t, err)
	require.Equal(t, TaskBackupSync, task.Type())

	require.NoError(t, newTestJob(up).Handle(context.Background(), task))
	require.Equal(t, []string{"drive", "relational"}, up.uploaded)
}

func TestBackupSyncKeepsGoingAfterFailure(t *testing.T) {
	boom := errors.New("drive offline")
	up := &stubUploader{names: []string{"drive", "relational"}, failing: map[string]error{"drive": boom}}
	task, err := NewBackupSyncTask(BackupSyncPayload{Namespace: "dock-1"})
	require.NoError(t, err)

	err = newTestJob(up).Handle(context.Background(), task)
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"relational"}, up.uploaded)
}

func TestBackupSyncSelectedTransports(t *testing.T) {
	up := &stubUploader{names: []string{"drive", "relational"}}
	task, err := NewBackupSyncTask(BackupSyncPayload{Namespace: "dock-1", Transports: []string{"relational"}})
	require.NoError(t, err)
	require.NoError(t, newTestJob(up).Handle(context.Background(), task))
	require.Equal(t, []string{"relational"}, up.uploaded)
}

func TestBackupSyncRejectsBadPayloads(t *testing.T) {
	job := newTestJob(&stubUploader{})

	err := job.Handle(context.Background(), asynq.NewTask(TaskBackupSync, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewBackupSyncTask(BackupSyncPayload{Namespace: "dock-9"})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)

	var nilJob *BackupSyncJob
	require.Error(t, nilJob.Handle(context.Background(), task))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "default", body["queue"])
}
