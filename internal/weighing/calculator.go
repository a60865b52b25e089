package weighing

import (
	"github.com/shopspring/decimal"
)

// Tolerance is the accepted discrepancy in kilograms between net and invoice weight.
const Tolerance = 0.2

var (
	tolerance = decimal.NewFromFloat(Tolerance)
	thousand  = decimal.NewFromInt(1000)
)

// CalcInput carries the raw entry-form values.
type CalcInput struct {
	GrossWeightText string
	NoteWeightText  string
	BoxQty          int
	UnitTaraGrams   int
}

// Calculation is the reconciliation of one weighing.
type Calculation struct {
	GrossWeight float64 `json:"grossWeight"`
	NoteWeight  float64 `json:"noteWeight"`
	BoxQty      int     `json:"boxQty"`
	UnitTaraKg  float64 `json:"unitTaraKg"`
	TotalTara   float64 `json:"totalTara"`
	NetWeight   float64 `json:"netWeight"`
	Difference  float64 `json:"difference"`
	IsError     bool    `json:"isError"`
}

// Status classifies the calculation against the tolerance.
func (c Calculation) Status() Status {
	if c.IsError {
		return StatusError
	}
	return StatusVerified
}

// Calculate derives tare, net weight and difference. It is pure and has no error path.
// Net weight stays at zero until a gross weight has been entered.
func Calculate(in CalcInput) Calculation {
	qty := max(in.BoxQty, 0)
	grams := max(in.UnitTaraGrams, 0)

	gross := parseWeight(in.GrossWeightText)
	note := parseSingle(in.NoteWeightText)

	unitTara := decimal.NewFromInt(int64(grams)).Div(thousand)
	totalTara := unitTara.Mul(decimal.NewFromInt(int64(qty)))

	net := decimal.Zero
	if gross.IsPositive() {
		net = gross.Sub(totalTara)
	}
	diff := net.Sub(note)

	return Calculation{
		GrossWeight: gross.InexactFloat64(),
		NoteWeight:  note.InexactFloat64(),
		BoxQty:      qty,
		UnitTaraKg:  unitTara.InexactFloat64(),
		TotalTara:   totalTara.InexactFloat64(),
		NetWeight:   net.InexactFloat64(),
		Difference:  diff.InexactFloat64(),
		IsError:     diff.Abs().GreaterThan(tolerance),
	}
}

// WithinTolerance reports whether a difference in kilograms is accepted.
func WithinTolerance(difference float64) bool {
	return !decimal.NewFromFloat(difference).Abs().GreaterThan(tolerance)
}
