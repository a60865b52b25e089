package weighing

import (
	"github.com/shopspring/decimal"
)

var suggestionEpsilon = decimal.NewFromFloat(0.01)

// SuggestInput is the form state the suggestion engine looks at.
type SuggestInput struct {
	BoxQty             int
	StandardUnitWeight float64
	UnitTaraGrams      int
	TypedNote          string
	TypedGross         string
}

// Suggestion proposes expected weights. It never changes typed values by itself.
type Suggestion struct {
	Available         bool    `json:"available"`
	ExpectedNet       float64 `json:"expectedNet"`
	ExpectedTotalTara float64 `json:"expectedTotalTara"`
	ExpectedGross     float64 `json:"expectedGross"`
	NoteText          string  `json:"noteText,omitempty"`
	GrossText         string  `json:"grossText,omitempty"`
	ShowNote          bool    `json:"showNote"`
	ShowGross         bool    `json:"showGross"`
}

// Suggest computes expected net and gross weights from a standard unit weight.
// A field is flagged only when it differs from the typed value by more than 0.01 kg.
func Suggest(in SuggestInput) Suggestion {
	if in.BoxQty <= 0 || in.StandardUnitWeight <= 0 {
		return Suggestion{}
	}
	qty := decimal.NewFromInt(int64(in.BoxQty))
	unitTara := decimal.NewFromInt(int64(max(in.UnitTaraGrams, 0))).Div(thousand)

	net := qty.Mul(decimal.NewFromFloat(in.StandardUnitWeight))
	totalTara := qty.Mul(unitTara)
	gross := net.Add(totalTara)

	typedNote := parseSingle(in.TypedNote)
	typedGross := parseWeight(in.TypedGross)

	return Suggestion{
		Available:         true,
		ExpectedNet:       net.InexactFloat64(),
		ExpectedTotalTara: totalTara.InexactFloat64(),
		ExpectedGross:     gross.InexactFloat64(),
		NoteText:          net.StringFixed(2),
		GrossText:         gross.StringFixed(2),
		ShowNote:          typedNote.Sub(net).Abs().GreaterThan(suggestionEpsilon),
		ShowGross:         typedGross.Sub(gross).Abs().GreaterThan(suggestionEpsilon),
	}
}

// SuggestionState tracks whether suggestions are dismissed for the current
// supplier/product pair.
type SuggestionState struct {
	Dismissed bool   `json:"dismissed"`
	Supplier  string `json:"supplier"`
	Product   string `json:"product"`
}

// Observe re-arms suggestions when the supplier or product changed.
func (s *SuggestionState) Observe(supplier, product string) {
	if supplier == s.Supplier && product == s.Product {
		return
	}
	s.Supplier = supplier
	s.Product = product
	s.Dismissed = false
}

// Dismiss hides suggestions until the next supplier/product change.
func (s *SuggestionState) Dismiss() {
	s.Dismissed = true
}

// Visible filters a suggestion through the dismissal state.
func (s SuggestionState) Visible(sg Suggestion) Suggestion {
	if s.Dismissed {
		sg.ShowNote = false
		sg.ShowGross = false
	}
	return sg
}
