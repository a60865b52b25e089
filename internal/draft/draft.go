// Package draft keeps unsaved entry-form state for the lifetime of the
// process. Drafts are never persisted.
package draft

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/weighcheck/weighcheck/internal/platform/httpx"
	"github.com/weighcheck/weighcheck/internal/weighing"
)

// ErrNotFound is returned for unknown draft ids.
var ErrNotFound = fmt.Errorf("draft: %w", httpx.ErrNotFound)

// Target selects which suggested value an acceptance applies.
type Target string

const (
	TargetNote  Target = "note"
	TargetGross Target = "gross"
	TargetAll   Target = "all"
)

// Form is the entry form as the operator left it. Weight fields keep the
// typed text so the parser sees exactly what was entered.
type Form struct {
	Supplier               string  `json:"supplier"`
	Product                string  `json:"product"`
	Batch                  string  `json:"batch"`
	ExpirationDate         string  `json:"expirationDate"`
	ProductionDate         string  `json:"productionDate"`
	GrossWeightText        string  `json:"grossWeight"`
	NoteWeightText         string  `json:"noteWeight"`
	BoxQty                 int     `json:"boxQty"`
	UnitTaraGrams          int     `json:"unitTaraGrams"`
	StandardUnitWeight     float64 `json:"standardUnitWeight"`
	Evidence               string  `json:"evidence,omitempty"`
	AIAnalysis             string  `json:"aiAnalysis,omitempty"`
	RecommendedTemperature string  `json:"recommendedTemperature,omitempty"`

	Suggestions weighing.SuggestionState `json:"suggestions"`
}

// CalcInput projects the form onto the calculator input.
func (f Form) CalcInput() weighing.CalcInput {
	return weighing.CalcInput{
		GrossWeightText: f.GrossWeightText,
		NoteWeightText:  f.NoteWeightText,
		BoxQty:          f.BoxQty,
		UnitTaraGrams:   f.UnitTaraGrams,
	}
}

// SuggestInput projects the form onto the suggestion engine input.
func (f Form) SuggestInput() weighing.SuggestInput {
	return weighing.SuggestInput{
		BoxQty:             f.BoxQty,
		StandardUnitWeight: f.StandardUnitWeight,
		UnitTaraGrams:      f.UnitTaraGrams,
		TypedNote:          f.NoteWeightText,
		TypedGross:         f.GrossWeightText,
	}
}

// ErrNoVisibleSuggestion is returned when accepting a suggestion the form
// would not show: none computed, dismissed, or already matching the typed value.
var ErrNoVisibleSuggestion = fmt.Errorf("draft: %w: no visible suggestion", httpx.ErrValidation)

// AcceptSuggestion copies the suggested text into the typed fields and
// dismisses suggestions until the supplier or product changes. Only a
// suggestion currently shown for target can be accepted.
func (f *Form) AcceptSuggestion(sg weighing.Suggestion, target Target) error {
	if target == "" {
		target = TargetAll
	}
	switch target {
	case TargetNote, TargetGross, TargetAll:
	default:
		return fmt.Errorf("%w: unknown suggestion target %s", httpx.ErrValidation, strconv.Quote(string(target)))
	}
	if !sg.Available {
		return ErrNoVisibleSuggestion
	}
	shown := f.Suggestions.Visible(sg)
	switch target {
	case TargetNote:
		if !shown.ShowNote {
			return ErrNoVisibleSuggestion
		}
		f.NoteWeightText = sg.NoteText
	case TargetGross:
		if !shown.ShowGross {
			return ErrNoVisibleSuggestion
		}
		f.GrossWeightText = sg.GrossText
	case TargetAll:
		if !shown.ShowNote && !shown.ShowGross {
			return ErrNoVisibleSuggestion
		}
		f.NoteWeightText = sg.NoteText
		f.GrossWeightText = sg.GrossText
	}
	f.Suggestions.Dismiss()
	return nil
}

const (
	// DefaultMaxDrafts bounds how many drafts one process holds.
	DefaultMaxDrafts = 256
	// DefaultIdleTTL is how long an untouched draft survives.
	DefaultIdleTTL = 12 * time.Hour
)

// ErrTooManyDrafts is returned when a new draft would exceed the store limit.
var ErrTooManyDrafts = fmt.Errorf("draft: %w: too many open drafts", httpx.ErrValidation)

type entry struct {
	form    Form
	touched time.Time
}

// Store is a mutex-guarded map of drafts keyed by a client-chosen id.
// Drafts idle longer than the TTL are dropped, and new ids are refused
// once the limit is reached.
type Store struct {
	mu      sync.Mutex
	drafts  map[string]entry
	max     int
	idleTTL time.Duration
	now     func() time.Time
}

// NewStore constructs an empty draft store with the default limits.
func NewStore() *Store {
	return NewStoreWithLimits(DefaultMaxDrafts, DefaultIdleTTL)
}

// NewStoreWithLimits constructs a store holding at most maxDrafts drafts, each
// expiring after idleTTL without a write. Non-positive values disable the limit.
func NewStoreWithLimits(maxDrafts int, idleTTL time.Duration) *Store {
	return &Store{drafts: make(map[string]entry), max: maxDrafts, idleTTL: idleTTL, now: time.Now}
}

// Get returns the draft with id.
func (s *Store) Get(id string) (Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.drafts[id]
	if !ok || s.expired(e) {
		delete(s.drafts, id)
		return Form{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.form, nil
}

// Put replaces the draft with id regardless of the limit.
func (s *Store) Put(id string, f Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.drafts[id] = entry{form: f, touched: s.now()}
}

// Update applies fn to the draft with id, starting from an empty form when
// none exists. The draft is left untouched when fn fails.
func (s *Store) Update(id string, fn func(*Form) error) (Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.drafts[id]
	if ok && s.expired(e) {
		delete(s.drafts, id)
		e, ok = entry{}, false
	}
	if !ok {
		s.sweep()
		if s.max > 0 && len(s.drafts) >= s.max {
			return Form{}, ErrTooManyDrafts
		}
	}
	f := e.form
	if err := fn(&f); err != nil {
		return Form{}, err
	}
	s.drafts[id] = entry{form: f, touched: s.now()}
	return f, nil
}

// Delete drops the draft with id. Deleting an unknown draft is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
}

// Len reports how many live drafts are held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.drafts)
}

func (s *Store) expired(e entry) bool {
	return s.idleTTL > 0 && s.now().Sub(e.touched) > s.idleTTL
}

// sweep drops expired drafts. Callers hold mu.
func (s *Store) sweep() {
	if s.idleTTL <= 0 {
		return
	}
	for id, e := range s.drafts {
		if s.expired(e) {
			delete(s.drafts, id)
		}
	}
}
