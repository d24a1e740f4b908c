package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cafepos/internal/domain"
)

var defaultSettings = domain.Settings{
	StoreName:                "Still Café",
	VatPercentage:            12,
	SeniorDiscountPercentage: 20,
	PwdDiscountPercentage:    20,
}

func cart(lines ...domain.CartItem) []domain.CartItem { return lines }

func line(price float64, qty int) domain.CartItem {
	return domain.CartItem{Product: domain.Product{ID: "p", Name: "Item", Price: price}, Quantity: qty}
}

func TestComputeWithoutDiscount(t *testing.T) {
	b := Compute(cart(line(100, 2)), defaultSettings, domain.DiscountNone)

	assert.InDelta(t, 200.00, b.SubtotalInclusive, 1e-9)
	assert.InDelta(t, 178.57, b.VatableSales, 0.005)
	assert.InDelta(t, 21.43, b.VatAmount, 0.005)
	assert.Zero(t, b.DiscountAmount)
	assert.Zero(t, b.VatExemptSales)
	assert.InDelta(t, 200.00, b.FinalAmount, 1e-9)
}

func TestComputeSeniorDiscount(t *testing.T) {
	b := Compute(cart(line(100, 2)), defaultSettings, domain.DiscountSenior)

	assert.InDelta(t, 178.57, b.VatExemptSales, 0.005)
	assert.InDelta(t, 35.71, b.DiscountAmount, 0.005)
	assert.InDelta(t, 142.86, b.FinalAmount, 0.005)
	assert.Zero(t, b.VatAmount)
	assert.Zero(t, b.VatableSales)
}

func TestComputePWDUsesItsOwnRate(t *testing.T) {
	settings := defaultSettings
	settings.PwdDiscountPercentage = 5

	b := Compute(cart(line(112, 1)), settings, domain.DiscountPWD)

	assert.InDelta(t, 100, b.VatExemptSales, 1e-9)
	assert.InDelta(t, 5, b.DiscountAmount, 1e-9)
	assert.InDelta(t, 95, b.FinalAmount, 1e-9)
}

func TestComputeEmptyCartIsZero(t *testing.T) {
	for _, d := range []domain.DiscountType{domain.DiscountNone, domain.DiscountSenior, domain.DiscountPWD} {
		assert.Equal(t, domain.Breakdown{}, Compute(nil, defaultSettings, d), string(d))
	}
}

func TestComputeProperties(t *testing.T) {
	carts := [][]domain.CartItem{
		cart(line(80, 1)),
		cart(line(100, 3), line(135, 2)),
		cart(line(0.1, 7), line(0.2, 3), line(130, 11)),
		cart(line(99.99, 1), line(140, 4), line(120, 9)),
	}
	vats := []float64{0, 5, 12, 12.5}

	for _, items := range carts {
		for _, vat := range vats {
			settings := defaultSettings
			settings.VatPercentage = vat

			plain := Compute(items, settings, domain.DiscountNone)
			assert.InDelta(t, plain.SubtotalInclusive, plain.VatAmount+plain.VatableSales, 1e-9)
			assert.Equal(t, plain.SubtotalInclusive, plain.FinalAmount)

			for _, d := range []domain.DiscountType{domain.DiscountSenior, domain.DiscountPWD} {
				discounted := Compute(items, settings, d)
				assert.Equal(t, discounted.VatExemptSales-discounted.DiscountAmount, discounted.FinalAmount)
				assert.Zero(t, discounted.VatAmount)
			}
		}
	}
}

func TestToggleDiscountRevertsExactly(t *testing.T) {
	items := cart(line(130, 2), line(80, 1))

	before := Compute(items, defaultSettings, domain.DiscountNone)
	_ = Compute(items, defaultSettings, domain.DiscountSenior)
	after := Compute(items, defaultSettings, domain.DiscountNone)

	assert.Equal(t, before, after)
}

func TestComputeIsStableAcrossRepeats(t *testing.T) {
	items := cart(line(0.1, 3), line(33.33, 3))
	first := Compute(items, defaultSettings, domain.DiscountPWD)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Compute(items, defaultSettings, domain.DiscountPWD))
	}
}
