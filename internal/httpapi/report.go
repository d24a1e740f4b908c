package httpapi

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"cafepos/internal/domain"
	"cafepos/internal/receipt"
)

func salesReportCSV(report domain.SalesReport, chart []domain.ChartPoint) ([]byte, error) {
	rows := [][]string{
		{"section", "key", "value"},
		{"summary", "start", report.Start.Format("2006-01-02")},
		{"summary", "end", report.End.Format("2006-01-02")},
		{"summary", "transactions", strconv.Itoa(report.TransactionCount)},
		{"summary", "gross_sales", receipt.Money(report.GrossSales)},
		{"summary", "vatable_sales", receipt.Money(report.VatableSales)},
		{"summary", "vat_exempt_sales", receipt.Money(report.VatExemptSales)},
		{"summary", "total_vat", receipt.Money(report.TotalVat)},
		{"summary", "total_discount", receipt.Money(report.TotalDiscount)},
		{"summary", "net_sales", receipt.Money(report.TotalSales)},
	}
	for _, p := range chart {
		rows = append(rows, []string{"daily", p.Date, receipt.Money(p.Total)})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
