package receipt

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafepos/internal/domain"
)

var settings = domain.Settings{
	StoreName:                "Still Café",
	VatPercentage:            12,
	SeniorDiscountPercentage: 20,
	PwdDiscountPercentage:    20,
}

func sampleSale(discount domain.DiscountType) domain.Sale {
	sale := domain.Sale{
		ID:            "0190f3a2-7c1e-7000-8000-000000000001",
		TotalAmount:   200,
		DiscountType:  discount,
		PaymentMethod: domain.PaymentCash,
		CreatedAt:     time.Date(2026, 5, 4, 14, 5, 9, 0, time.UTC),
		Items: []domain.SaleItem{
			{ID: "i1", ProductID: "2", ProductName: "Café Latte", Quantity: 2, Price: 100},
		},
	}
	if discount.Applied() {
		base := 200 / 1.12
		sale.DiscountAmount = base * 0.2
		sale.FinalAmount = base - sale.DiscountAmount
	} else {
		sale.VatAmount = 200 - 200/1.12
		sale.FinalAmount = 200
	}
	return sale
}

func lineWith(t *testing.T, doc string, prefix string) string {
	t.Helper()
	for _, l := range strings.Split(doc, "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), prefix) {
			return l
		}
	}
	t.Fatalf("no line starting with %q in:\n%s", prefix, doc)
	return ""
}

func TestFormatWithoutDiscount(t *testing.T) {
	doc := Format(Input{
		Sale:           sampleSale(domain.DiscountNone),
		Settings:       settings,
		AmountTendered: 500,
		Change:         300,
	})

	assert.Contains(t, doc, "STILL CAFÉ")
	assert.Contains(t, doc, "OFFICIAL RECEIPT")
	assert.Contains(t, doc, "05/04/2026, 02:05:09 PM")
	assert.Contains(t, doc, "ID: 0190f3a2")
	assert.NotContains(t, doc, "REPRINT")
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "2"), "200.00"))
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "VATable Sales"), "178.57"))
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "VAT (12%)"), "21.43"))
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "TOTAL AMOUNT DUE"), "200.00"))
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "CASH"), "500.00"))
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "CHANGE"), "300.00"))
	assert.Contains(t, doc, "Thank you for your purchase!")
}

func TestFormatSeniorDiscount(t *testing.T) {
	doc := Format(Input{Sale: sampleSale(domain.DiscountSenior), Settings: settings, AmountTendered: 150, Change: 7.14})

	assert.True(t, strings.HasSuffix(lineWith(t, doc, "VAT Adjustment (Exempt)"), "-21.43"))
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "VAT Exempt Sales"), "178.57"))
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "Senior Discount (20%)"), "-35.71"))
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "TOTAL AMOUNT DUE"), "142.86"))
	assert.NotContains(t, doc, "VATable Sales")
}

func TestFormatReprintZeroesChange(t *testing.T) {
	sale := sampleSale(domain.DiscountNone)
	sale.PaymentMethod = domain.PaymentGCash
	doc := Format(Input{Sale: sale, Settings: settings, AmountTendered: 1000, Change: 800, Reprint: true})

	assert.Contains(t, doc, "REPRINT")
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "GCASH"), "200.00"))
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "CHANGE"), "0.00"))
}

func TestFormatIsDeterministicAndFitsWidth(t *testing.T) {
	sale := sampleSale(domain.DiscountPWD)
	sale.Items = append(sale.Items, domain.SaleItem{ProductName: strings.Repeat("Strawberries & Cream ", 5), Quantity: 12, Price: 140})
	in := Input{Sale: sale, Settings: settings, PageWidth: 384}

	first := Format(in)
	require.Equal(t, first, Format(in))
	for _, l := range strings.Split(strings.TrimSuffix(first, "\n"), "\n") {
		assert.LessOrEqual(t, utf8.RuneCountInString(l), Columns(384), l)
	}
}

func TestMoneyAndPercent(t *testing.T) {
	assert.Equal(t, "178.57", Money(200/1.12))
	assert.Equal(t, "0.00", Money(0))
	assert.Equal(t, "12%", Percent(12))
	assert.Equal(t, "12.5%", Percent(12.5))
	assert.Equal(t, 48, Columns(0))
	assert.Equal(t, 24, Columns(100))
}

func TestFormatSalesReport(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	report := domain.SalesReport{
		SalesTotals: domain.SalesTotals{TotalSales: 342.86, TransactionCount: 2, GrossSales: 400, TotalVat: 21.43, TotalDiscount: 35.71},
		Start:       start,
		End:         start.AddDate(0, 0, 1),
	}
	doc := FormatSalesReport("Still Café", report, []domain.ChartPoint{{Date: "2026-05-01", Total: 342.86}}, 0, time.UTC)

	assert.Contains(t, doc, "SALES REPORT")
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "Transactions"), "2"))
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "NET SALES"), "342.86"))
	assert.True(t, strings.HasSuffix(lineWith(t, doc, "2026-05-01"), "342.86"))
}
