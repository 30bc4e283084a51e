// Package money holds the currency amount value type used by cart totals.
package money

// Money is an amount in minor currency units (cents).
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// FromCents builds an amount from minor units.
func FromCents(cents int64) Money {
	return Money(cents)
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return int64(m)
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return m + other
}

// Mul returns the amount multiplied by a quantity.
func (m Money) Mul(quantity int32) Money {
	return m * Money(quantity)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m == 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m < 0
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// Formatter renders an amount for display. Locale and currency rules live
// with the implementation, not here.
type Formatter interface {
	FormatPrice(m Money) string
}

// FormatterFunc adapts a plain function to Formatter.
type FormatterFunc func(m Money) string

// FormatPrice calls f(m).
func (f FormatterFunc) FormatPrice(m Money) string {
	return f(m)
}
