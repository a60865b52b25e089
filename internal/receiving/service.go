// Package receiving orchestrates the goods-receiving workflow: previews of the
// entry form, saving reconciled weighings, drafts and label scans.
package receiving

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/weighcheck/weighcheck/internal/draft"
	"github.com/weighcheck/weighcheck/internal/knowledge"
	"github.com/weighcheck/weighcheck/internal/labelscan"
	"github.com/weighcheck/weighcheck/internal/profile"
	"github.com/weighcheck/weighcheck/internal/weighing"
	"github.com/weighcheck/weighcheck/jobs"
)

// SyncOutcome reports what happened to the best-effort cloud sync of a save.
type SyncOutcome string

const (
	SyncQueued   SyncOutcome = "queued"
	SyncDisabled SyncOutcome = "disabled"
	SyncFailed   SyncOutcome = "failed"
)

// RecordStore persists finalized weighings.
type RecordStore interface {
	Append(ctx context.Context, rec weighing.Record) error
	List(ctx context.Context) ([]weighing.Record, error)
	Get(ctx context.Context, id string) (weighing.Record, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int, error)
	Clear(ctx context.Context) error
}

// KnowledgeBase predicts defaults and learns from saves.
type KnowledgeBase interface {
	Snapshot(ctx context.Context) (knowledge.Base, error)
	Learn(ctx context.Context, in knowledge.LearnInput) error
}

// ProfileReader supplies the store name stamped on records.
type ProfileReader interface {
	Profile(ctx context.Context) (profile.Profile, error)
}

// LabelScanner reads label photos.
type LabelScanner interface {
	Scan(ctx context.Context, image []byte) (labelscan.Extraction, error)
}

// SyncEnqueuer schedules a cloud backup upload.
type SyncEnqueuer interface {
	EnqueueBackupSync(ctx context.Context, payload jobs.BackupSyncPayload) (*asynq.TaskInfo, error)
}

// Metrics counts saves and scans.
type Metrics interface {
	RecordWeighing(status string)
	RecordScan(outcome string)
}

// Deps collects the service's collaborators. Scanner, Sync and Metrics are optional.
type Deps struct {
	Records        RecordStore
	Knowledge      KnowledgeBase
	Profiles       ProfileReader
	Drafts         *draft.Store
	Scanner        LabelScanner
	Sync           SyncEnqueuer
	SyncTransports []string
	Namespace      string
	Metrics        Metrics
	Logger         *slog.Logger
}

// Service implements the receiving workflow.
type Service struct {
	records        RecordStore
	knowledge      KnowledgeBase
	profiles       ProfileReader
	drafts         *draft.Store
	scanner        LabelScanner
	sync           SyncEnqueuer
	syncTransports []string
	namespace      string
	metrics        Metrics
	logger         *slog.Logger
	now            func() time.Time
	newID          func() (string, error)
}

// NewService constructs the receiving service.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	drafts := deps.Drafts
	if drafts == nil {
		drafts = draft.NewStore()
	}
	return &Service{
		records:        deps.Records,
		knowledge:      deps.Knowledge,
		profiles:       deps.Profiles,
		drafts:         drafts,
		scanner:        deps.Scanner,
		sync:           deps.Sync,
		syncTransports: deps.SyncTransports,
		namespace:      deps.Namespace,
		metrics:        deps.Metrics,
		logger:         logger,
		now:            time.Now,
		newID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
}

// Preview is the computed state of an entry form.
type Preview struct {
	DraftID           string               `json:"draftId,omitempty"`
	Form              draft.Form           `json:"form"`
	Calculation       weighing.Calculation `json:"calculation"`
	Suggestion        weighing.Suggestion  `json:"suggestion"`
	Prediction        knowledge.Prediction `json:"prediction"`
	ProductAutoFilled bool                 `json:"productAutoFilled"`
	TaraAutoFilled    bool                 `json:"taraAutoFilled"`
	CanSave           bool                 `json:"canSave"`
	Problems          string               `json:"problems,omitempty"`
}

type defaults struct {
	prediction knowledge.Prediction
	product    bool
	tara       bool
}

// applyDefaults fills an empty product from the supplier's last product and a
// zero tare from the learned pair tare.
func applyDefaults(base *knowledge.Base, f *draft.Form) defaults {
	var out defaults
	supplier := weighing.NormalizeSupplier(f.Supplier)
	if supplier == "" {
		return out
	}
	product := weighing.NormalizeProduct(f.Product)
	if product == "" {
		out.prediction = base.Predict(supplier, "")
		if out.prediction.SuggestedProduct != "" {
			f.Product = out.prediction.SuggestedProduct
			product = out.prediction.SuggestedProduct
			out.product = true
		}
	}
	if product == "" {
		return out
	}
	pair := base.Predict(supplier, product)
	out.prediction.SuggestedTaraBox = pair.SuggestedTaraBox
	if grams, ok := knowledge.TaraGramsForField(f.UnitTaraGrams, pair); ok {
		f.UnitTaraGrams = grams
		out.tara = true
	}
	return out
}

func (s *Service) evaluate(f draft.Form, d defaults) Preview {
	calc := weighing.Calculate(f.CalcInput())
	p := Preview{
		Form:              f,
		Calculation:       calc,
		Suggestion:        f.Suggestions.Visible(weighing.Suggest(f.SuggestInput())),
		Prediction:        d.prediction,
		ProductAutoFilled: d.product,
		TaraAutoFilled:    d.tara,
	}
	err := weighing.ValidateForSave(weighing.NormalizeSupplier(f.Supplier), weighing.NormalizeProduct(f.Product), calc)
	p.CanSave = err == nil
	if err != nil {
		p.Problems = err.Error()
	}
	return p
}

// Preview computes calculation, suggestion and prediction for a form without
// storing anything.
func (s *Service) Preview(ctx context.Context, f draft.Form) (Preview, error) {
	base, err := s.knowledge.Snapshot(ctx)
	if err != nil {
		return Preview{}, err
	}
	d := applyDefaults(&base, &f)
	return s.evaluate(f, d), nil
}

// SaveInput is the form to finalize, optionally tied to a draft.
type SaveInput struct {
	DraftID string
	Form    draft.Form
}

// SaveResult reports the stored record and the sync outcome.
type SaveResult struct {
	Record weighing.Record `json:"record"`
	Sync   SyncOutcome     `json:"sync"`
}

// Save validates, reconciles and persists one weighing, then teaches the
// knowledge base. Cloud sync never fails a save.
func (s *Service) Save(ctx context.Context, in SaveInput) (SaveResult, error) {
	f := in.Form
	supplier := weighing.NormalizeSupplier(f.Supplier)
	product := weighing.NormalizeProduct(f.Product)
	calc := weighing.Calculate(f.CalcInput())
	if err := weighing.ValidateForSave(supplier, product, calc); err != nil {
		return SaveResult{}, err
	}

	prof, err := s.profiles.Profile(ctx)
	if err != nil {
		return SaveResult{}, fmt.Errorf("receiving: load profile: %w", err)
	}
	id, err := s.newID()
	if err != nil {
		return SaveResult{}, fmt.Errorf("receiving: new id: %w", err)
	}

	rec := weighing.NewRecord(weighing.RecordInput{
		ID:                     id,
		Timestamp:              s.now().UTC(),
		Supplier:               supplier,
		Product:                product,
		Batch:                  f.Batch,
		ExpirationDate:         f.ExpirationDate,
		ProductionDate:         f.ProductionDate,
		Evidence:               f.Evidence,
		AIAnalysis:             f.AIAnalysis,
		RecommendedTemperature: f.RecommendedTemperature,
		Store:                  prof.Store,
		Calculation:            calc,
	})
	if err := s.records.Append(ctx, rec); err != nil {
		return SaveResult{}, err
	}

	logger := s.logger.With(slog.String("record_id", rec.ID), slog.String("status", string(rec.Status)))
	if err := s.knowledge.Learn(ctx, knowledge.LearnInput{Supplier: supplier, Product: product, UnitTara: calc.UnitTaraKg}); err != nil {
		logger.Error("learn from weighing", slog.Any("error", err))
	}
	if s.metrics != nil {
		s.metrics.RecordWeighing(string(rec.Status))
	}

	outcome := s.enqueueSync(ctx, rec.ID, logger)
	if in.DraftID != "" {
		s.drafts.Delete(in.DraftID)
	}
	logger.Info("weighing saved",
		slog.String("supplier", supplier),
		slog.String("product", product),
		slog.Float64("difference", rec.Difference()),
		slog.String("sync", string(outcome)),
	)
	return SaveResult{Record: rec, Sync: outcome}, nil
}

func (s *Service) enqueueSync(ctx context.Context, recordID string, logger *slog.Logger) SyncOutcome {
	if s.sync == nil {
		return SyncDisabled
	}
	_, err := s.sync.EnqueueBackupSync(ctx, jobs.BackupSyncPayload{
		Namespace:  s.namespace,
		Transports: s.syncTransports,
		Reason:     "save",
		RecordID:   recordID,
		Requested:  s.now().UTC(),
	})
	if err != nil {
		logger.Warn("enqueue backup sync", slog.Any("error", err))
		return SyncFailed
	}
	return SyncQueued
}

// List returns the history, newest first.
func (s *Service) List(ctx context.Context) ([]weighing.Record, error) {
	return s.records.List(ctx)
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id string) (weighing.Record, error) {
	return s.records.Get(ctx, id)
}

// Delete removes one record. The knowledge base keeps what it learned.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.records.Delete(ctx, id)
}

// DeleteMany removes the listed records, or every record when all is set.
func (s *Service) DeleteMany(ctx context.Context, ids []string, all bool) (int, error) {
	if all {
		recs, err := s.records.List(ctx)
		if err != nil {
			return 0, err
		}
		if err := s.records.Clear(ctx); err != nil {
			return 0, err
		}
		return len(recs), nil
	}
	return s.records.DeleteMany(ctx, ids)
}

// Knowledge returns the learned base.
func (s *Service) Knowledge(ctx context.Context) (knowledge.Base, error) {
	return s.knowledge.Snapshot(ctx)
}

// Predict proposes defaults for a supplier and optional product.
func (s *Service) Predict(ctx context.Context, supplier, product string) (knowledge.Prediction, error) {
	base, err := s.knowledge.Snapshot(ctx)
	if err != nil {
		return knowledge.Prediction{}, err
	}
	return base.Predict(weighing.NormalizeSupplier(supplier), weighing.NormalizeProduct(product)), nil
}
