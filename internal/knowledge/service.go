package knowledge

import (
	"context"
	"fmt"

	"github.com/weighcheck/weighcheck/internal/kvstore"
)

// Service loads and saves the base through the key-value store.
type Service struct {
	store kvstore.Store
}

// NewService constructs the knowledge service.
func NewService(store kvstore.Store) *Service {
	return &Service{store: store}
}

// Snapshot returns the persisted base, or an empty one.
func (s *Service) Snapshot(ctx context.Context) (Base, error) {
	base := NewBase()
	if _, err := kvstore.GetJSON(ctx, s.store, kvstore.KeyKnowledge, &base); err != nil {
		return Base{}, fmt.Errorf("knowledge: load: %w", err)
	}
	if base.Patterns == nil {
		base.Patterns = map[string]Pattern{}
	}
	return base, nil
}

// Predict reads the base and proposes defaults.
func (s *Service) Predict(ctx context.Context, supplier, product string) (Prediction, error) {
	base, err := s.Snapshot(ctx)
	if err != nil {
		return Prediction{}, err
	}
	return base.Predict(supplier, product), nil
}

// Learn is a read-modify-write of the base; concurrent learners resolve last write wins.
func (s *Service) Learn(ctx context.Context, in LearnInput) error {
	base, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	base.Learn(in)
	return s.Replace(ctx, base)
}

// Replace overwrites the persisted base.
func (s *Service) Replace(ctx context.Context, base Base) error {
	if err := kvstore.SetJSON(ctx, s.store, kvstore.KeyKnowledge, base); err != nil {
		return fmt.Errorf("knowledge: save: %w", err)
	}
	return nil
}
