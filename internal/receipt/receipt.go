// Package receipt lays out sales as fixed-width text documents for the
// printing collaborator.
package receipt

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"cafepos/internal/domain"
)

const (
	// DefaultPageWidth is the nominal width in dots of 80mm thermal paper.
	DefaultPageWidth = 576
	dotsPerChar      = 12
	minColumns       = 24

	dateLayout = "01/02/2006, 03:04:05 PM"
	qtyColumn  = 4
	amtColumn  = 10
)

// Columns converts a page width in dots to a character count.
func Columns(pageWidth int) int {
	if pageWidth <= 0 {
		pageWidth = DefaultPageWidth
	}
	cols := pageWidth / dotsPerChar
	if cols < minColumns {
		return minColumns
	}
	return cols
}

type Input struct {
	Sale           domain.Sale
	Settings       domain.Settings
	PaymentMethod  domain.PaymentMethod
	AmountTendered float64
	Change         float64
	Timestamp      time.Time
	Reprint        bool
	PageWidth      int
	Location       *time.Location
}

// Format renders the receipt. Reprints carry no tender information, so the
// tendered amount becomes the amount due and change is zero.
func Format(in Input) string {
	w := newWriter(Columns(in.PageWidth))
	sale := in.Sale
	ts := in.Timestamp
	if ts.IsZero() {
		ts = sale.CreatedAt
	}
	if in.Location != nil {
		ts = ts.In(in.Location)
	}
	payment := in.PaymentMethod
	if payment == "" {
		payment = sale.PaymentMethod
	}
	tendered, change := in.AmountTendered, in.Change
	if in.Reprint {
		tendered, change = sale.FinalAmount, 0
	}

	w.center(strings.ToUpper(in.Settings.StoreName))
	w.center("OFFICIAL RECEIPT")
	w.center(ts.Format(dateLayout))
	if sale.ID != "" {
		w.center("ID: " + shortID(sale.ID))
	}
	if in.Reprint {
		w.center("*** REPRINT ***")
	}
	w.rule('-')

	w.item("Qty", "Item", "Amt")
	for _, item := range sale.Items {
		w.item(strconv.Itoa(item.Quantity), item.ProductName, Money(item.Price*float64(item.Quantity)))
	}
	w.rule('-')

	gross := sale.TotalAmount
	base := gross / (1 + in.Settings.VatPercentage/100)
	w.pair("Gross Amount (VAT Inc)", Money(gross))
	if sale.DiscountType.Applied() {
		w.pair("VAT Adjustment (Exempt)", "-"+Money(gross-base))
		w.pair("VAT Exempt Sales", Money(base))
		w.pair(sale.DiscountType.Label()+" Discount ("+Percent(discountRate(sale, base, in.Settings))+")", "-"+Money(sale.DiscountAmount))
	} else {
		w.pair("VATable Sales", Money(base))
		w.pair("VAT ("+Percent(in.Settings.VatPercentage)+")", Money(sale.VatAmount))
	}
	w.rule('=')
	w.pair("TOTAL AMOUNT DUE", Money(sale.FinalAmount))
	w.rule('=')

	w.pair(strings.ToUpper(string(payment)), Money(tendered))
	w.pair("CHANGE", Money(change))
	w.rule('-')

	w.center("Thank you for your purchase!")
	w.center("Please come again.")
	return w.String()
}

// discountRate recovers the percentage the sale was priced with, falling
// back to the current settings when the sale carries no exempt base.
func discountRate(sale domain.Sale, base float64, settings domain.Settings) float64 {
	if base > 0 && sale.DiscountAmount > 0 {
		return decimal.NewFromFloat(sale.DiscountAmount / base * 100).Round(2).InexactFloat64()
	}
	switch sale.DiscountType {
	case domain.DiscountSenior:
		return settings.SeniorDiscountPercentage
	case domain.DiscountPWD:
		return settings.PwdDiscountPercentage
	}
	return 0
}

// Money renders an amount with two decimals, rounding only here.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Percent renders a rate without trailing zeros, e.g. 12% or 12.5%.
func Percent(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String() + "%"
}

func shortID(id string) string {
	if utf8.RuneCountInString(id) <= 8 {
		return id
	}
	return string([]rune(id)[:8])
}
