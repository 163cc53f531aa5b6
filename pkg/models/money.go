package models

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineTotal returns price × quantity without float drift.
func LineTotal(price float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
}

// ApplyDiscount multiplies total by (1 - percent/100).
func ApplyDiscount(total decimal.Decimal, percent float64) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(percent).Div(hundred))
	return total.Mul(factor)
}

// Amount rounds to cents for storage.
func Amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Percentage returns part/whole*100 rounded to two places, 0 when whole is 0.
func Percentage(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole)).Round(2).InexactFloat64()
}
