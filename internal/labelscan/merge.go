package labelscan

import "github.com/weighcheck/weighcheck/internal/draft"

// MergeIntoDraft copies extracted values into fields the operator left empty.
// Typed values always win; the tare only fills a zero field.
func MergeIntoDraft(f *draft.Form, ex Extraction) {
	fill := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	fill(&f.Supplier, ex.Supplier)
	fill(&f.Product, ex.Product)
	fill(&f.ExpirationDate, ex.ExpirationDate)
	fill(&f.ProductionDate, ex.ProductionDate)
	fill(&f.Batch, ex.Batch)
	fill(&f.RecommendedTemperature, ex.TemperatureRange)
	fill(&f.AIAnalysis, ex.Analysis())
	fill(&f.Evidence, ex.Evidence)
	if f.UnitTaraGrams == 0 && ex.TaraGrams > 0 {
		f.UnitTaraGrams = ex.TaraGrams
	}
	if f.StandardUnitWeight == 0 && ex.StandardUnitWeight > 0 {
		f.StandardUnitWeight = ex.StandardUnitWeight
	}
}
