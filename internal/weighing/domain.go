// Package weighing holds the receiving reconciliation engine: tolerant weight
// parsing, net/tare arithmetic, expected-weight suggestions and the finalized
// record model.
package weighing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/weighcheck/weighcheck/internal/platform/httpx"
)

// Status of a finalized weighing.
type Status string

const (
	StatusVerified Status = "verified"
	StatusError    Status = "error"
)

// Boxes describes the packaging counted on the scale.
type Boxes struct {
	Qty      int     `json:"qty"`
	UnitTara float64 `json:"unitTara"`
}

// Record is one finalized receiving event. Records are immutable once created.
type Record struct {
	ID                     string    `json:"id"`
	Timestamp              time.Time `json:"timestamp"`
	Supplier               string    `json:"supplier"`
	Product                string    `json:"product"`
	Batch                  string    `json:"batch,omitempty"`
	ExpirationDate         string    `json:"expirationDate,omitempty"`
	ProductionDate         string    `json:"productionDate,omitempty"`
	GrossWeight            float64   `json:"grossWeight"`
	NoteWeight             float64   `json:"noteWeight"`
	NetWeight              float64   `json:"netWeight"`
	TaraTotal              float64   `json:"taraTotal"`
	Boxes                  Boxes     `json:"boxes"`
	Status                 Status    `json:"status"`
	Evidence               string    `json:"evidence,omitempty"`
	AIAnalysis             string    `json:"aiAnalysis,omitempty"`
	RecommendedTemperature string    `json:"recommendedTemperature,omitempty"`
	Store                  string    `json:"store,omitempty"`
}

// Difference is net minus invoice weight.
func (r Record) Difference() float64 {
	return decimal.NewFromFloat(r.NetWeight).Sub(decimal.NewFromFloat(r.NoteWeight)).InexactFloat64()
}

// RecordInput gathers everything needed to finalize a record.
type RecordInput struct {
	ID                     string
	Timestamp              time.Time
	Supplier               string
	Product                string
	Batch                  string
	ExpirationDate         string
	ProductionDate         string
	Evidence               string
	AIAnalysis             string
	RecommendedTemperature string
	Store                  string
	Calculation            Calculation
}

// NewRecord builds a record from a calculation.
func NewRecord(in RecordInput) Record {
	calc := in.Calculation
	return Record{
		ID:                     in.ID,
		Timestamp:              in.Timestamp,
		Supplier:               in.Supplier,
		Product:                in.Product,
		Batch:                  in.Batch,
		ExpirationDate:         in.ExpirationDate,
		ProductionDate:         in.ProductionDate,
		GrossWeight:            calc.GrossWeight,
		NoteWeight:             calc.NoteWeight,
		NetWeight:              calc.NetWeight,
		TaraTotal:              calc.TotalTara,
		Boxes:                  Boxes{Qty: calc.BoxQty, UnitTara: calc.UnitTaraKg},
		Status:                 calc.Status(),
		Evidence:               in.Evidence,
		AIAnalysis:             in.AIAnalysis,
		RecommendedTemperature: in.RecommendedTemperature,
		Store:                  in.Store,
	}
}

// ErrValidation wraps every save precondition failure.
var ErrValidation = fmt.Errorf("weighing: %w", httpx.ErrValidation)
