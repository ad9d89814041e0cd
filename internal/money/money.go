package money

import "github.com/shopspring/decimal"

// Amounts are carried as int64 minor units (cents for USD). All arithmetic
// that can produce fractions goes through decimal and is rounded half-even
// (RoundBank) so repeated pricing of the same cart is bit-identical.

var minorUnits = map[string]int32{
	"USD": 2, "EUR": 2, "GBP": 2, "SGD": 2, "AUD": 2, "CAD": 2,
	"IDR": 0, "JPY": 0, "KRW": 0, "VND": 0,
	"BHD": 3, "KWD": 3,
}

// Exponent returns the number of minor-unit digits for a currency code.
// Unknown currencies default to 2.
func Exponent(currency string) int32 {
	if e, ok := minorUnits[currency]; ok {
		return e
	}
	return 2
}

// Percent applies a decimal fraction (e.g. 0.08 for 8%) to a minor-unit
// amount and rounds half-even back to minor units.
func Percent(amount int64, frac decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(frac).RoundBank(0).IntPart()
}

// Convert moves a minor-unit amount between currencies at the given rate.
// The rate is expressed in major units (1 from = rate to).
func Convert(amount int64, from, to string, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).
		Shift(-Exponent(from)).
		Mul(rate).
		Shift(Exponent(to)).
		RoundBank(0).
		IntPart()
}

// Clamp bounds v to [0, max]; used to keep discounts from driving a
// subtotal negative.
func Clamp(v, max int64) int64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
