package utils

import (
	"github.com/shopspring/decimal"
)

// Line-amount derivation. Discount applies before tax; that order is part of
// the invoice contract and the figures below must reproduce it exactly.
//
//	base     = qty * unitPrice
//	discount = base * discountRate
//	tax      = (base - discount) * taxRate
//	total    = base - discount + tax

func CalculateLineBase(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice)
}

func CalculateLineDiscountAmount(base, discountRate decimal.Decimal) decimal.Decimal {
	if discountRate.IsZero() {
		return decimal.Zero
	}
	return base.Mul(discountRate).Round(4)
}

func CalculateLineTaxAmount(base, discountAmount, taxRate decimal.Decimal) decimal.Decimal {
	if taxRate.IsZero() {
		return decimal.Zero
	}
	return base.Sub(discountAmount).Mul(taxRate).Round(4)
}

func CalculateLineTotal(qty, unitPrice, discountRate, taxRate decimal.Decimal) decimal.Decimal {
	base := CalculateLineBase(qty, unitPrice)
	discount := CalculateLineDiscountAmount(base, discountRate)
	tax := CalculateLineTaxAmount(base, discount, taxRate)
	return base.Sub(discount).Add(tax).Round(4)
}

// RateInRange validates a fractional rate (0.10 == 10%).
func RateInRange(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(decimal.NewFromInt(1))
}
