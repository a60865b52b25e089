package labelscan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/weighcheck/weighcheck/internal/weighing"
)

// kgThreshold separates tare values read in kilograms from values in grams.
const kgThreshold = 20

// Extraction is what a scan recovered. Zero values mean "not read".
type Extraction struct {
	Supplier           string  `json:"supplier,omitempty"`
	Product            string  `json:"product,omitempty"`
	ExpirationDate     string  `json:"expirationDate,omitempty"`
	ProductionDate     string  `json:"productionDate,omitempty"`
	Batch              string  `json:"batch,omitempty"`
	TaraGrams          int     `json:"taraGrams,omitempty"`
	StandardUnitWeight float64 `json:"standardUnitWeight,omitempty"`
	Storage            string  `json:"storage,omitempty"`
	TemperatureRange   string  `json:"temperatureRange,omitempty"`
	Warning            string  `json:"warning,omitempty"`
	Evidence           string  `json:"evidence,omitempty"`
}

// Analysis summarizes the storage advice and warning for the record's aiAnalysis field.
func (e Extraction) Analysis() string {
	var parts []string
	if e.Storage != "" {
		parts = append(parts, "storage: "+e.Storage)
	}
	if e.TemperatureRange != "" {
		parts = append(parts, "temperature: "+e.TemperatureRange)
	}
	if e.Warning != "" {
		parts = append(parts, "warning: "+e.Warning)
	}
	return strings.Join(parts, "; ")
}

// flexNumber accepts a JSON number or a string such as "0,3 kg".
type flexNumber struct {
	value float64
	set   bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		n.value = weighing.ParseDecimal(s)
		n.set = true
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	n.value = v
	n.set = true
	return nil
}

type reply struct {
	Supplier           string     `json:"supplier"`
	Product            string     `json:"product"`
	Expiration         string     `json:"expiration"`
	Production         string     `json:"production"`
	Batch              string     `json:"batch"`
	Tara               flexNumber `json:"tara"`
	StandardUnitWeight flexNumber `json:"standard_unit_weight"`
	Storage            string     `json:"storage"`
	TemperatureRange   string     `json:"temperature_range"`
	Warning            string     `json:"warning"`
}

// ParseReply pulls the outermost JSON object out of a model reply and decodes it.
func ParseReply(text string) (Extraction, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return Extraction{}, err
	}
	var r reply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Extraction{}, fmt.Errorf("decode reply: %w", err)
	}
	ex := Extraction{
		Supplier:         strings.TrimSpace(r.Supplier),
		Product:          strings.TrimSpace(r.Product),
		ExpirationDate:   strings.TrimSpace(r.Expiration),
		ProductionDate:   strings.TrimSpace(r.Production),
		Batch:            strings.TrimSpace(r.Batch),
		Storage:          strings.TrimSpace(r.Storage),
		TemperatureRange: strings.TrimSpace(r.TemperatureRange),
		Warning:          strings.TrimSpace(r.Warning),
	}
	if r.Tara.set {
		ex.TaraGrams = TaraToGrams(r.Tara.value)
	}
	if r.StandardUnitWeight.set && r.StandardUnitWeight.value > 0 {
		ex.StandardUnitWeight = r.StandardUnitWeight.value
	}
	return ex, nil
}

// TaraToGrams reads values below 20 as kilograms. A 15 g box would be taken
// as 15 kg; the threshold is kept as operators know it.
func TaraToGrams(v float64) int {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < kgThreshold {
		v *= 1000
	}
	return int(math.Round(v))
}

// extractJSON returns the span from the first "{" to the last "}".
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return s[start : end+1], nil
}
