// Package format renders amounts and optional values for console output.
package format

import (
	"fmt"
	"math"
	"strconv"

	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := grouped(math.Abs(amount), 2)
	if amount < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// OptionalCurrency is Currency for a value that may be missing.
func OptionalCurrency(amount *float64) string {
	if amount == nil {
		return constants.MissingValuePlaceholder
	}
	return Currency(*amount)
}

// OptionalDecimal renders a value that may be missing with the given number
// of decimals and thousands separators.
func OptionalDecimal(value *float64, decimals int) string {
	if value == nil {
		return constants.MissingValuePlaceholder
	}
	sign := ""
	if *value < 0 {
		sign = "-"
	}
	return sign + grouped(math.Abs(*value), decimals)
}

// CSVValue renders a value that may be missing for CSV output: full
// precision, no separators, empty when missing.
func CSVValue(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

// grouped formats a non-negative value with English thousands separators.
func grouped(value float64, decimals int) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf(fmt.Sprintf("%%.%df", decimals), value)
}
