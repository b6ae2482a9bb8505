package domain

import "github.com/shopspring/decimal"

// Monetary amounts are computed with shopspring decimals at 4 fractional
// digits of internal precision and rounded half-even to 2 digits at the API
// boundary. In SQLite they are stored as integer units of 1e-4 so that
// balance and quantity guards are exact integer predicates inside a commit.

// MoneyScale is the number of fractional digits kept internally and in
// storage.
const MoneyScale = 4

// DisplayScale is the number of fractional digits in user-facing amounts.
const DisplayScale = 2

// epsilon for zero comparisons (one storage unit).
var epsilon = decimal.New(1, -MoneyScale)

// ToUnits converts a decimal amount to integer storage units, rounding
// half-even at the storage scale.
func ToUnits(d decimal.Decimal) int64 {
	return d.RoundBank(MoneyScale).Shift(MoneyScale).IntPart()
}

// FromUnits converts integer storage units back to a decimal amount.
func FromUnits(u int64) decimal.Decimal {
	return decimal.New(u, -MoneyScale)
}

// RoundMoney rounds an amount half-even to the user-facing scale.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(DisplayScale)
}

// IsZeroAmount reports whether an amount is zero within epsilon.
func IsZeroAmount(d decimal.Decimal) bool {
	return d.Abs().LessThan(epsilon)
}

// WeightedAverage computes the cost-basis average after buying addQty shares
// at price, on top of oldQty shares at oldAvg. The result keeps the internal
// precision.
func WeightedAverage(oldQty int64, oldAvg decimal.Decimal, addQty int64, price decimal.Decimal) decimal.Decimal {
	newQty := decimal.NewFromInt(oldQty + addQty)
	total := oldAvg.Mul(decimal.NewFromInt(oldQty)).Add(price.Mul(decimal.NewFromInt(addQty)))
	return total.Div(newQty).RoundBank(MoneyScale)
}
