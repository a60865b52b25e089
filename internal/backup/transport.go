package backup

import (
	"context"
	"fmt"

	"github.com/weighcheck/weighcheck/internal/platform/httpx"
)

var (
	// ErrNoRemoteBackup is returned by Download when the transport holds nothing.
	ErrNoRemoteBackup = fmt.Errorf("backup: no remote backup: %w", httpx.ErrNotFound)
	// ErrUnknownTransport is returned for transport names that are not configured.
	ErrUnknownTransport = fmt.Errorf("backup: unknown transport: %w", httpx.ErrNotFound)
	// ErrTransport wraps failures talking to a remote store.
	ErrTransport = fmt.Errorf("backup: transport failed: %w", httpx.ErrUpstream)
)

// Transport moves a serialized envelope to and from a remote store.
type Transport interface {
	Name() string
	Upload(ctx context.Context, payload []byte) error
	Download(ctx context.Context) ([]byte, error)
}
