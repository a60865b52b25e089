package draft

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/weighcheck/weighcheck/internal/platform/httpx"
	"github.com/weighcheck/weighcheck/internal/weighing"
)

func TestStoreLifecycle(t *testing.T) {
	store := NewStore()

	_, err := store.Get("d1")
	require.ErrorIs(t, err, httpx.ErrNotFound)

	store.Put("d1", Form{Supplier: "ACME", BoxQty: 3})
	f, err := store.Get("d1")
	require.NoError(t, err)
	require.Equal(t, 3, f.BoxQty)

	store.Delete("d1")
	store.Delete("d1")
	require.Equal(t, 0, store.Len())
}

func TestUpdateLeavesDraftOnError(t *testing.T) {
	store := NewStore()
	store.Put("d1", Form{Supplier: "ACME"})

	_, err := store.Update("d1", func(f *Form) error {
		f.Supplier = "OTHER"
		return errors.New("boom")
	})
	require.Error(t, err)

	f, err := store.Get("d1")
	require.NoError(t, err)
	require.Equal(t, "ACME", f.Supplier)
}

func TestUpdateConcurrent(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Update("d1", func(f *Form) error {
				f.BoxQty++
				return nil
			})
		}()
	}
	wg.Wait()
	f, err := store.Get("d1")
	require.NoError(t, err)
	require.Equal(t, 50, f.BoxQty)
}

func TestAcceptSuggestion(t *testing.T) {
	form := Form{BoxQty: 10, StandardUnitWeight: 1.2, UnitTaraGrams: 50, NoteWeightText: "11.0", GrossWeightText: "0"}
	sg := weighing.Suggest(form.SuggestInput())

	require.ErrorIs(t, form.AcceptSuggestion(sg, "tare"), httpx.ErrValidation)
	require.ErrorIs(t, form.AcceptSuggestion(weighing.Suggestion{}, TargetAll), ErrNoVisibleSuggestion)

	require.NoError(t, form.AcceptSuggestion(sg, TargetAll))
	require.Equal(t, "12.00", form.NoteWeightText)
	require.Equal(t, "12.50", form.GrossWeightText)
	require.True(t, form.Suggestions.Dismissed)

	calc := weighing.Calculate(form.CalcInput())
	require.Equal(t, 12.0, calc.NetWeight)
	require.False(t, calc.IsError)
}

func TestAcceptSuggestionRequiresVisibleSuggestion(t *testing.T) {
	form := Form{BoxQty: 10, StandardUnitWeight: 1.2, UnitTaraGrams: 50, NoteWeightText: "11.0", GrossWeightText: "0"}
	sg := weighing.Suggest(form.SuggestInput())

	require.NoError(t, form.AcceptSuggestion(sg, TargetNote))
	require.Equal(t, "12.00", form.NoteWeightText)
	require.Equal(t, "0", form.GrossWeightText)

	// dismissed after the first acceptance
	err := form.AcceptSuggestion(sg, TargetGross)
	require.ErrorIs(t, err, ErrNoVisibleSuggestion)
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, "0", form.GrossWeightText)

	// re-armed, but the typed note already matches within 0.01 kg
	form.Suggestions.Observe("ACME", "ONION")
	form.NoteWeightText = "12,005"
	sg = weighing.Suggest(form.SuggestInput())
	require.ErrorIs(t, form.AcceptSuggestion(sg, TargetNote), ErrNoVisibleSuggestion)
	require.Equal(t, "12,005", form.NoteWeightText)

	require.NoError(t, form.AcceptSuggestion(sg, TargetGross))
	require.Equal(t, "12.50", form.GrossWeightText)
}

func TestStoreRefusesNewDraftsOverLimit(t *testing.T) {
	store := NewStoreWithLimits(2, time.Hour)
	noop := func(*Form) error { return nil }

	_, err := store.Update("d1", noop)
	require.NoError(t, err)
	_, err = store.Update("d2", noop)
	require.NoError(t, err)

	_, err = store.Update("d3", noop)
	require.ErrorIs(t, err, ErrTooManyDrafts)
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, 2, store.Len())

	// existing drafts keep accepting edits at the limit
	f, err := store.Update("d1", func(f *Form) error { f.Supplier = "ACME"; return nil })
	require.NoError(t, err)
	require.Equal(t, "ACME", f.Supplier)

	store.Delete("d2")
	_, err = store.Update("d3", noop)
	require.NoError(t, err)
}

func TestStoreExpiresIdleDrafts(t *testing.T) {
	store := NewStoreWithLimits(1, 10*time.Minute)
	clock := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	_, err := store.Update("stale", func(f *Form) error { f.BoxQty = 4; return nil })
	require.NoError(t, err)

	clock = clock.Add(11 * time.Minute)
	_, err = store.Get("stale")
	require.ErrorIs(t, err, ErrNotFound)

	store.Put("stale", Form{BoxQty: 4})
	clock = clock.Add(11 * time.Minute)
	// the expired draft frees its slot for a new id
	_, err = store.Update("fresh", func(*Form) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())
}
