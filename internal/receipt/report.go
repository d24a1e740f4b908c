package receipt

import (
	"strconv"
	"time"

	"cafepos/internal/domain"
)

// FormatSalesReport renders the printable sales summary with its daily series.
func FormatSalesReport(storeName string, report domain.SalesReport, chart []domain.ChartPoint, pageWidth int, loc *time.Location) string {
	w := newWriter(Columns(pageWidth))
	if loc == nil {
		loc = time.Local
	}

	w.center(storeName)
	w.center("SALES REPORT")
	w.center(report.Start.In(loc).Format("Jan 2, 2006") + " - " + report.End.In(loc).Format("Jan 2, 2006"))
	w.rule('-')

	w.pair("Transactions", strconv.Itoa(report.TransactionCount))
	w.pair("Gross Sales", Money(report.GrossSales))
	w.pair("VATable Sales", Money(report.VatableSales))
	w.pair("VAT Exempt Sales", Money(report.VatExemptSales))
	w.pair("Total VAT", Money(report.TotalVat))
	w.pair("Total Discounts", "-"+Money(report.TotalDiscount))
	w.rule('=')
	w.pair("NET SALES", Money(report.TotalSales))
	w.rule('=')

	if len(chart) > 0 {
		w.pair("Date", "Sales")
		for _, p := range chart {
			w.pair(p.Date, Money(p.Total))
		}
		w.rule('-')
	}
	return w.String()
}
