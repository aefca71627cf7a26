// Package mathutil provides common mathematical utility functions.
package mathutil

// Ptr returns a pointer to a copy of val.
func Ptr(val float64) *float64 {
	return &val
}

// Mul multiplies optional values. The product is missing when any factor is.
func Mul(factors ...*float64) *float64 {
	product := 1.0
	for _, f := range factors {
		if f == nil {
			return nil
		}
		product *= *f
	}
	return &product
}

// Add sums optional values. The sum is missing when any term is.
func Add(terms ...*float64) *float64 {
	sum := 0.0
	for _, t := range terms {
		if t == nil {
			return nil
		}
		sum += *t
	}
	return &sum
}

// Div divides two optional values. The quotient is missing when either side
// is missing or the divisor is zero.
func Div(numerator, denominator *float64) *float64 {
	if numerator == nil || denominator == nil || *denominator == 0 {
		return nil
	}
	q := *numerator / *denominator
	return &q
}
