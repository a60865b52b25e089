package weighing

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Weight fields are typed on a shop floor. Malformed text is never an error:
// it degrades to zero so data entry is never interrupted.

var (
	segmentSeparators = regexp.MustCompile(`[,\s]+`)
	numericPrefix     = regexp.MustCompile(`^[+-]?(\d+(?:\.\d+)?|\.\d+)(?:[eE][+-]?\d+)?`)
)

// maxFieldMagnitude caps a single parsed value. Anything larger is not a
// weight and reads as zero, which keeps sums finite.
const maxFieldMagnitude = 1e12

// ParseWeightInput parses a gross weight field. It accepts decimal commas,
// sums joined with "+" ("10,2 + 5,3") and comma separated lists ("10, 20").
func ParseWeightInput(text string) float64 {
	return parseWeight(text).InexactFloat64()
}

// ParseDecimal parses a single value, converting one decimal comma to a point.
func ParseDecimal(text string) float64 {
	return parseSingle(text).InexactFloat64()
}

// ParseOrZero parses the leading number of text and returns 0 when there is none.
func ParseOrZero(text string) float64 {
	return parseOrZero(text).InexactFloat64()
}

func parseWeight(text string) decimal.Decimal {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return decimal.Zero
	case strings.Contains(text, "+"):
		return sumSegments(strings.Split(text, "+"))
	case strings.Contains(text, ", ") || strings.Count(text, ",") >= 2:
		return sumSegments(segmentSeparators.Split(text, -1))
	default:
		return parseSingle(text)
	}
}

func sumSegments(segments []string) decimal.Decimal {
	total := decimal.Zero
	for _, segment := range segments {
		total = total.Add(parseSingle(segment))
	}
	return total
}

func parseSingle(text string) decimal.Decimal {
	return parseOrZero(strings.Replace(strings.TrimSpace(text), ",", ".", 1))
}

func parseOrZero(text string) decimal.Decimal {
	match := numericPrefix.FindString(strings.TrimSpace(text))
	if match == "" {
		return decimal.Zero
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxFieldMagnitude {
		return decimal.Zero
	}
	// Built from the float so the decimal exponent stays bounded; a textual
	// "1e-9999999" would otherwise make every later rescale enormous.
	return decimal.NewFromFloat(f)
}
