// Package backup snapshots the station's persisted state into a versioned
// JSON envelope and restores it, locally or through a cloud transport.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weighcheck/weighcheck/internal/knowledge"
	"github.com/weighcheck/weighcheck/internal/platform/httpx"
	"github.com/weighcheck/weighcheck/internal/profile"
	"github.com/weighcheck/weighcheck/internal/weighing"
)

const (
	// AppMarker identifies envelopes written by this application.
	AppMarker = "weighcheck"
	// Version of the envelope layout.
	Version = "1.0"
)

// ErrInvalidBackup is returned for malformed payloads, foreign app markers and
// envelopes without data. Nothing is written when it is returned.
var ErrInvalidBackup = fmt.Errorf("%w: invalid backup file", httpx.ErrValidation)

// Envelope is the point-in-time snapshot.
type Envelope struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	App       string    `json:"app"`
	Data      *Data     `json:"data"`
}

// Data holds the four collections. Nil members are absent.
type Data struct {
	Records   []weighing.Record `json:"records"`
	Profile   *profile.Profile  `json:"profile"`
	Knowledge *knowledge.Base   `json:"knowledge"`
	Theme     *profile.Theme    `json:"theme"`
}

// RecordStore is the record collection as the codec sees it.
type RecordStore interface {
	List(ctx context.Context) ([]weighing.Record, error)
	Replace(ctx context.Context, recs []weighing.Record) error
}

// KnowledgeStore is the knowledge base as the codec sees it.
type KnowledgeStore interface {
	Snapshot(ctx context.Context) (knowledge.Base, error)
	Replace(ctx context.Context, base knowledge.Base) error
}

// ProfileStore is the profile and theme as the codec sees them.
type ProfileStore interface {
	Profile(ctx context.Context) (profile.Profile, error)
	ReplaceProfile(ctx context.Context, p profile.Profile) error
	Theme(ctx context.Context) (profile.Theme, error)
	SetTheme(ctx context.Context, t profile.Theme) error
}

// Codec serializes and restores local state.
type Codec struct {
	records   RecordStore
	knowledge KnowledgeStore
	profiles  ProfileStore
	now       func() time.Time
}

// NewCodec constructs a codec over the persisted collections.
func NewCodec(records RecordStore, kb KnowledgeStore, profiles ProfileStore) *Codec {
	return &Codec{records: records, knowledge: kb, profiles: profiles, now: time.Now}
}

// Snapshot gathers the current collections into an envelope.
func (c *Codec) Snapshot(ctx context.Context) (Envelope, error) {
	var (
		recs  []weighing.Record
		base  knowledge.Base
		prof  profile.Profile
		theme profile.Theme
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		recs, err = c.records.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		base, err = c.knowledge.Snapshot(gctx)
		return err
	})
	g.Go(func() (err error) {
		prof, err = c.profiles.Profile(gctx)
		return err
	})
	g.Go(func() (err error) {
		theme, err = c.profiles.Theme(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Envelope{}, fmt.Errorf("backup: gather: %w", err)
	}
	if recs == nil {
		recs = []weighing.Record{}
	}
	return Envelope{
		Version:   Version,
		Timestamp: c.now().UTC(),
		App:       AppMarker,
		Data:      &Data{Records: recs, Profile: &prof, Knowledge: &base, Theme: &theme},
	}, nil
}

// Serialize returns the envelope as JSON.
func (c *Codec) Serialize(ctx context.Context) ([]byte, error) {
	env, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: encode: %w", err)
	}
	return payload, nil
}

type rawEnvelope struct {
	App  string   `json:"app"`
	Data *rawData `json:"data"`
}

type rawData struct {
	Records   json.RawMessage `json:"records"`
	Profile   json.RawMessage `json:"profile"`
	Knowledge json.RawMessage `json:"knowledge"`
	Theme     json.RawMessage `json:"theme"`
}

// Decode parses and checks a payload without touching the stores.
func Decode(payload []byte) (Data, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if raw.App != AppMarker {
		return Data{}, fmt.Errorf("%w: unexpected app marker %q", ErrInvalidBackup, raw.App)
	}
	if raw.Data == nil {
		return Data{}, fmt.Errorf("%w: missing data", ErrInvalidBackup)
	}

	var out Data
	if present(raw.Data.Records) {
		if err := json.Unmarshal(raw.Data.Records, &out.Records); err != nil {
			return Data{}, fmt.Errorf("%w: records: %v", ErrInvalidBackup, err)
		}
		if out.Records == nil {
			out.Records = []weighing.Record{}
		}
	}
	if present(raw.Data.Profile) {
		out.Profile = &profile.Profile{}
		if err := json.Unmarshal(raw.Data.Profile, out.Profile); err != nil {
			return Data{}, fmt.Errorf("%w: profile: %v", ErrInvalidBackup, err)
		}
	}
	if present(raw.Data.Knowledge) {
		base := knowledge.NewBase()
		if err := json.Unmarshal(raw.Data.Knowledge, &base); err != nil {
			return Data{}, fmt.Errorf("%w: knowledge: %v", ErrInvalidBackup, err)
		}
		out.Knowledge = &base
	}
	if present(raw.Data.Theme) {
		var theme profile.Theme
		if err := json.Unmarshal(raw.Data.Theme, &theme); err != nil {
			return Data{}, fmt.Errorf("%w: theme: %v", ErrInvalidBackup, err)
		}
		if theme != profile.ThemeLight && theme != profile.ThemeDark {
			return Data{}, fmt.Errorf("%w: theme %q", ErrInvalidBackup, theme)
		}
		out.Theme = &theme
	}
	return out, nil
}

// Restore replaces every collection present in payload. Absent or null
// collections are left as they are. Writes are not atomic across collections.
func (c *Codec) Restore(ctx context.Context, payload []byte) error {
	data, err := Decode(payload)
	if err != nil {
		return err
	}
	return c.Apply(ctx, data)
}

// Apply writes the present members of data.
func (c *Codec) Apply(ctx context.Context, data Data) error {
	if data.Records != nil {
		if err := c.records.Replace(ctx, data.Records); err != nil {
			return fmt.Errorf("backup: restore records: %w", err)
		}
	}
	if data.Profile != nil {
		if err := c.profiles.ReplaceProfile(ctx, *data.Profile); err != nil {
			return fmt.Errorf("backup: restore profile: %w", err)
		}
	}
	if data.Knowledge != nil {
		if err := c.knowledge.Replace(ctx, *data.Knowledge); err != nil {
			return fmt.Errorf("backup: restore knowledge: %w", err)
		}
	}
	if data.Theme != nil {
		if err := c.profiles.SetTheme(ctx, *data.Theme); err != nil {
			return fmt.Errorf("backup: restore theme: %w", err)
		}
	}
	return nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
