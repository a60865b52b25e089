package backup

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// CloudService moves envelopes between the local stores and named transports.
type CloudService struct {
	codec      *Codec
	transports map[string]Transport
	logger     *slog.Logger
}

// NewCloudService registers transports by their Name.
func NewCloudService(codec *Codec, logger *slog.Logger, transports ...Transport) *CloudService {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &CloudService{codec: codec, transports: make(map[string]Transport), logger: logger}
	for _, t := range transports {
		if t != nil {
			svc.transports[t.Name()] = t
		}
	}
	return svc
}

// Transports lists configured transport names in sorted order.
func (s *CloudService) Transports() []string {
	names := make([]string, 0, len(s.transports))
	for name := range s.transports {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *CloudService) transport(name string) (Transport, error) {
	t, ok := s.transports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, name)
	}
	return t, nil
}

// Upload serializes local state and sends it through the named transport.
func (s *CloudService) Upload(ctx context.Context, name string) error {
	t, err := s.transport(name)
	if err != nil {
		return err
	}
	payload, err := s.codec.Serialize(ctx)
	if err != nil {
		return err
	}
	if err := t.Upload(ctx, payload); err != nil {
		return err
	}
	s.logger.Info("backup uploaded", slog.String("transport", name), slog.Int("bytes", len(payload)))
	return nil
}

// Restore downloads from the named transport and restores it. Local data is
// untouched when the download or decoding fails.
func (s *CloudService) Restore(ctx context.Context, name string) error {
	t, err := s.transport(name)
	if err != nil {
		return err
	}
	payload, err := t.Download(ctx)
	if err != nil {
		return err
	}
	if err := s.codec.Restore(ctx, payload); err != nil {
		return err
	}
	s.logger.Info("backup restored", slog.String("transport", name))
	return nil
}

// Sync uploads to every listed transport, or all of them when names is empty.
// It keeps going after a failure and returns the first error.
func (s *CloudService) Sync(ctx context.Context, names []string) error {
	if len(names) == 0 {
		names = s.Transports()
	}
	var first error
	for _, name := range names {
		if err := s.Upload(ctx, name); err != nil {
			s.logger.Warn("backup sync failed", slog.String("transport", name), slog.Any("error", err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
