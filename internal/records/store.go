// Package records persists finalized weighings, newest first.
package records

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/weighcheck/weighcheck/internal/kvstore"
	"github.com/weighcheck/weighcheck/internal/platform/httpx"
	"github.com/weighcheck/weighcheck/internal/weighing"
)

var (
	// ErrNotFound indicates no record carries the requested id.
	ErrNotFound = fmt.Errorf("records: %w", httpx.ErrNotFound)
	// ErrDuplicate indicates a record with the same id already exists.
	ErrDuplicate = fmt.Errorf("records: %w", httpx.ErrDuplicate)
)

// Store keeps the record collection as one JSON array under kvstore.KeyRecords.
// Records are never updated in place.
type Store struct {
	kv kvstore.Store
	mu sync.Mutex
}

// NewStore constructs a record store.
func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

func (s *Store) load(ctx context.Context) ([]weighing.Record, error) {
	var recs []weighing.Record
	if _, err := kvstore.GetJSON(ctx, s.kv, kvstore.KeyRecords, &recs); err != nil {
		return nil, fmt.Errorf("records: load: %w", err)
	}
	if recs == nil {
		recs = []weighing.Record{}
	}
	return recs, nil
}

func (s *Store) save(ctx context.Context, recs []weighing.Record) error {
	if recs == nil {
		recs = []weighing.Record{}
	}
	if err := kvstore.SetJSON(ctx, s.kv, kvstore.KeyRecords, recs); err != nil {
		return fmt.Errorf("records: save: %w", err)
	}
	return nil
}

// Append prepends rec to the collection.
func (s *Store) Append(ctx context.Context, rec weighing.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(ctx)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(recs, func(r weighing.Record) bool { return r.ID == rec.ID }) {
		return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
	}
	return s.save(ctx, append([]weighing.Record{rec}, recs...))
}

// List returns every record, newest first.
func (s *Store) List(ctx context.Context) ([]weighing.Record, error) {
	return s.load(ctx)
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id string) (weighing.Record, error) {
	recs, err := s.load(ctx)
	if err != nil {
		return weighing.Record{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return weighing.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes the record with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(recs, func(r weighing.Record) bool { return r.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.save(ctx, slices.Delete(recs, idx, idx+1))
}

// DeleteMany removes every record whose id is listed and reports how many were removed.
// Unknown ids are ignored.
func (s *Store) DeleteMany(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	before := len(recs)
	recs = slices.DeleteFunc(recs, func(r weighing.Record) bool { return slices.Contains(ids, r.ID) })
	removed := before - len(recs)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save(ctx, recs)
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, nil)
}

// Replace overwrites the whole collection, as a restore does.
func (s *Store) Replace(ctx context.Context, recs []weighing.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, recs)
}
