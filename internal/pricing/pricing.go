// Package pricing computes the VAT-inclusive sale breakdown for a cart.
//
// Prices already contain VAT, so tax is backed out by division. Senior and
// PWD discounts remove VAT entirely and then apply their percentage to the
// untaxed base. Values are kept at full precision; rounding happens only when
// a figure is displayed or printed.
package pricing

import "cafepos/internal/domain"

// Subtotal is the VAT-inclusive gross of the cart.
func Subtotal(items []domain.CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Product.Price * float64(item.Quantity)
	}
	return total
}

// DiscountRate returns the configured percentage for the discount, or 0.
func DiscountRate(settings domain.Settings, discount domain.DiscountType) float64 {
	switch discount {
	case domain.DiscountSenior:
		return settings.SeniorDiscountPercentage
	case domain.DiscountPWD:
		return settings.PwdDiscountPercentage
	default:
		return 0
	}
}

// Compute returns the breakdown for items under settings. An empty cart
// yields the zero breakdown.
func Compute(items []domain.CartItem, settings domain.Settings, discount domain.DiscountType) domain.Breakdown {
	return FromSubtotal(Subtotal(items), settings, discount)
}

// FromSubtotal applies the VAT and discount rules to an inclusive gross.
func FromSubtotal(subtotal float64, settings domain.Settings, discount domain.DiscountType) domain.Breakdown {
	out := domain.Breakdown{SubtotalInclusive: subtotal}
	if subtotal == 0 {
		return out
	}

	base := subtotal / (1 + settings.VatPercentage/100)
	if !discount.Applied() {
		out.VatableSales = base
		out.VatAmount = subtotal - base
		out.FinalAmount = subtotal
		return out
	}

	out.VatExemptSales = base
	out.DiscountAmount = base * (DiscountRate(settings, discount) / 100)
	out.FinalAmount = base - out.DiscountAmount
	return out
}
