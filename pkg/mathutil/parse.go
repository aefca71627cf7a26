package mathutil

import (
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/vatt-indexation/pkg/constants"
)

// ParseDecimal parses a plain decimal such as "310.326". Empty or malformed
// text yields a missing value.
func ParseDecimal(text string) *float64 {
	cleaned := clean(text)
	if cleaned == "" {
		return nil
	}
	return parse(cleaned)
}

// ParseCommaDecimal parses a value written with a decimal comma, where dots
// are thousands separators: "1.234,5" is 1234.5 and "0,4" is 0.4. Text
// without a comma is read as a plain decimal.
func ParseCommaDecimal(text string) *float64 {
	cleaned := clean(text)
	if cleaned == "" {
		return nil
	}
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}
	return parse(cleaned)
}

// ParseHundredths parses a quote published in hundredths with its separators
// stripped, so "946,47" and "946.47" are both 946.47. Anything but digits,
// separators and a leading sign yields a missing value.
func ParseHundredths(text string) *float64 {
	cleaned := clean(text)
	if cleaned == "" {
		return nil
	}
	cleaned = strings.NewReplacer(",", "", ".", "").Replace(cleaned)
	digits := strings.TrimPrefix(cleaned, "-")
	if digits == "" {
		return nil
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil
		}
	}
	v := parse(cleaned)
	if v == nil {
		return nil
	}
	scaled := *v / constants.HundredthsDivisor
	return &scaled
}

func clean(text string) string {
	return strings.TrimSpace(strings.NewReplacer(" ", "", "\u00a0", "", "$", "").Replace(text))
}

func parse(text string) *float64 {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
