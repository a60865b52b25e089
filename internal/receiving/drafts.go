package receiving

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weighcheck/weighcheck/internal/draft"
	"github.com/weighcheck/weighcheck/internal/labelscan"
	"github.com/weighcheck/weighcheck/internal/platform/httpx"
	"github.com/weighcheck/weighcheck/internal/weighing"
)

// ErrScanUnavailable is returned when no label scanner is configured.
var ErrScanUnavailable = fmt.Errorf("receiving: label scan: %w", httpx.ErrUnavailable)

// Draft returns a stored draft with its calculation and suggestion.
func (s *Service) Draft(ctx context.Context, id string) (Preview, error) {
	f, err := s.drafts.Get(id)
	if err != nil {
		return Preview{}, err
	}
	p := s.evaluate(f, defaults{})
	p.DraftID = id
	return p, nil
}

// PutDraft replaces the typed fields of a draft. The suggestion state is kept
// server-side and re-armed when supplier or product changed.
func (s *Service) PutDraft(ctx context.Context, id string, in draft.Form) (Preview, error) {
	if id == "" {
		return Preview{}, fmt.Errorf("%w: draft id is required", httpx.ErrValidation)
	}
	base, err := s.knowledge.Snapshot(ctx)
	if err != nil {
		return Preview{}, err
	}
	var d defaults
	f, err := s.drafts.Update(id, func(f *draft.Form) error {
		state := f.Suggestions
		*f = in
		f.Suggestions = state
		d = applyDefaults(&base, f)
		observe(f)
		return nil
	})
	if err != nil {
		return Preview{}, err
	}
	p := s.evaluate(f, d)
	p.DraftID = id
	return p, nil
}

// DiscardDraft drops a draft, as an explicit form reset does.
func (s *Service) DiscardDraft(id string) {
	s.drafts.Delete(id)
}

// AcceptSuggestion applies the suggested note and/or gross weight to a draft.
func (s *Service) AcceptSuggestion(ctx context.Context, id string, target draft.Target) (Preview, error) {
	if _, err := s.drafts.Get(id); err != nil {
		return Preview{}, err
	}
	f, err := s.drafts.Update(id, func(f *draft.Form) error {
		sg := weighing.Suggest(f.SuggestInput())
		return f.AcceptSuggestion(sg, target)
	})
	if err != nil {
		return Preview{}, err
	}
	p := s.evaluate(f, defaults{})
	p.DraftID = id
	return p, nil
}

// ScanResult is a label scan and, when a draft was given, the merged draft.
type ScanResult struct {
	Extraction labelscan.Extraction `json:"extraction"`
	Draft      *Preview             `json:"draft,omitempty"`
}

// ScanLabel reads a label photo. A failed scan leaves the draft untouched.
func (s *Service) ScanLabel(ctx context.Context, image []byte, draftID string) (ScanResult, error) {
	if s.scanner == nil {
		return ScanResult{}, ErrScanUnavailable
	}
	ex, err := s.scanner.Scan(ctx, image)
	if err != nil {
		s.recordScan("failed")
		s.logger.Warn("label scan failed", slog.String("draft_id", draftID), slog.Any("error", err))
		return ScanResult{}, err
	}
	s.recordScan("ok")

	result := ScanResult{Extraction: ex}
	if draftID == "" {
		return result, nil
	}
	base, err := s.knowledge.Snapshot(ctx)
	if err != nil {
		return ScanResult{}, err
	}
	var d defaults
	f, err := s.drafts.Update(draftID, func(f *draft.Form) error {
		labelscan.MergeIntoDraft(f, ex)
		d = applyDefaults(&base, f)
		observe(f)
		return nil
	})
	if err != nil {
		return ScanResult{}, err
	}
	p := s.evaluate(f, d)
	p.DraftID = draftID
	result.Draft = &p
	return result, nil
}

func (s *Service) recordScan(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordScan(outcome)
	}
}

func observe(f *draft.Form) {
	f.Suggestions.Observe(weighing.NormalizeSupplier(f.Supplier), weighing.NormalizeProduct(f.Product))
}

