// Package knowledge learns tare and product defaults from saved weighings.
package knowledge

import (
	"math"
	"slices"
)

const supplierKeyPrefix = "SUP::"

// Pattern is what the base remembers for one key.
type Pattern struct {
	TypicalTaraBox  float64 `json:"typicalTaraBox"`
	LastUsedProduct string  `json:"lastUsedProduct"`
}

// Base is the learned mapping. Pair keys and supplier keys share Patterns.
type Base struct {
	Suppliers []string           `json:"suppliers"`
	Products  []string           `json:"products"`
	Patterns  map[string]Pattern `json:"patterns"`
}

// Prediction holds the defaults proposed for a form.
type Prediction struct {
	SuggestedProduct string  `json:"suggestedProduct,omitempty"`
	SuggestedTaraBox float64 `json:"suggestedTaraBox,omitempty"`
}

// LearnInput is the part of a saved record the base learns from.
type LearnInput struct {
	Supplier string
	Product  string
	UnitTara float64
}

// NewBase returns an empty base.
func NewBase() Base {
	return Base{Suppliers: []string{}, Products: []string{}, Patterns: map[string]Pattern{}}
}

// PairKey identifies the supplier/product tare pattern.
func PairKey(supplier, product string) string {
	return supplier + "::" + product
}

// SupplierKey identifies the supplier's last-product pattern.
func SupplierKey(supplier string) string {
	return supplierKeyPrefix + supplier
}

// Predict looks up defaults. With no product it recalls the supplier's last
// product; with both it proposes the learned tare per box.
func (b *Base) Predict(supplier, product string) Prediction {
	if supplier == "" || b.Patterns == nil {
		return Prediction{}
	}
	if product == "" {
		if p, ok := b.Patterns[SupplierKey(supplier)]; ok {
			return Prediction{SuggestedProduct: p.LastUsedProduct}
		}
		return Prediction{}
	}
	if p, ok := b.Patterns[PairKey(supplier, product)]; ok && p.TypicalTaraBox > 0 {
		return Prediction{SuggestedTaraBox: p.TypicalTaraBox}
	}
	return Prediction{}
}

// Learn folds one saved record into the base. A zero tare never replaces a
// learned one.
func (b *Base) Learn(in LearnInput) {
	if b.Patterns == nil {
		b.Patterns = map[string]Pattern{}
	}
	if in.Supplier != "" && !slices.Contains(b.Suppliers, in.Supplier) {
		b.Suppliers = append(b.Suppliers, in.Supplier)
	}
	if in.Product != "" && !slices.Contains(b.Products, in.Product) {
		b.Products = append(b.Products, in.Product)
	}

	pairKey := PairKey(in.Supplier, in.Product)
	pair := b.Patterns[pairKey]
	if in.UnitTara > 0 {
		pair.TypicalTaraBox = in.UnitTara
	}
	pair.LastUsedProduct = in.Product
	b.Patterns[pairKey] = pair

	supKey := SupplierKey(in.Supplier)
	sup := b.Patterns[supKey]
	sup.LastUsedProduct = in.Product
	b.Patterns[supKey] = sup
}

// TaraGramsForField returns the gram value to place in the tare field. The
// field is only filled when it is currently empty or zero.
func TaraGramsForField(current int, p Prediction) (int, bool) {
	if current != 0 || p.SuggestedTaraBox <= 0 {
		return current, false
	}
	return int(math.Round(p.SuggestedTaraBox * 1000)), true
}
