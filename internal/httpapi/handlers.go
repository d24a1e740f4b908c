package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cafepos/internal/backup"
	"cafepos/internal/domain"
	"cafepos/internal/receipt"
	"cafepos/internal/reporting"
)

func (a *API) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"ok": true,
		"at": a.now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleGetSettings(c *gin.Context) {
	settings, err := a.service.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"settings": settings})
}

func (a *API) handleUpdateSettings(c *gin.Context) {
	var req domain.SettingsUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	settings, err := a.service.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"settings": settings})
}

func (a *API) handleListCategories(c *gin.Context) {
	categories, err := a.service.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"categories": categories})
}

func (a *API) handleCreateCategory(c *gin.Context) {
	var req domain.CategoryRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	category, err := a.service.AddCategory(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"category": category})
}

func (a *API) handleRenameCategory(c *gin.Context) {
	var req domain.CategoryRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	category, err := a.service.RenameCategory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"category": category})
}

func (a *API) handleDeleteCategory(c *gin.Context) {
	if err := a.service.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleListProducts(c *gin.Context) {
	products, err := a.service.ListProducts(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"products": products})
}

func (a *API) handleCreateProduct(c *gin.Context) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	product, err := a.service.AddProduct(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"product": product})
}

func (a *API) handleUpdateProduct(c *gin.Context) {
	var req domain.ProductUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	product, err := a.service.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"product": product})
}

func (a *API) handleDeleteProduct(c *gin.Context) {
	if err := a.service.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleQuote(c *gin.Context) {
	var req domain.QuoteRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	quote, err := a.service.Quote(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, quote)
}

func (a *API) handleCheckout(c *gin.Context) {
	var req domain.CheckoutRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	result, err := a.service.Checkout(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, result)
}

func (a *API) handleListSales(c *gin.Context) {
	limit := parsePositiveLimit(c.Query("limit"), 50, 500)
	sales, err := a.service.ListSales(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"sales": sales})
}

func (a *API) handleGetSale(c *gin.Context) {
	sale, err := a.service.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"sale": sale})
}

func (a *API) handleVoidSale(c *gin.Context) {
	id := c.Param("id")
	if err := a.service.VoidSale(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"voided": true, "sale_id": id})
}

func (a *API) handleReceipt(c *gin.Context) {
	resp, err := a.service.Receipt(c.Request.Context(), c.Param("id"), parseFlag(c.Query("reprint")), false)
	if err != nil {
		writeError(c, err)
		return
	}
	if strings.EqualFold(c.Query("format"), "text") {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(resp.Receipt))
		return
	}
	writeJSON(c, http.StatusOK, resp)
}

func (a *API) handleReprint(c *gin.Context) {
	resp, err := a.service.Receipt(c.Request.Context(), c.Param("id"), true, true)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, resp)
}

func (a *API) reportRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, end, err := reporting.Range(c.Query("view"), c.Query("start"), c.Query("end"), a.now(), a.reports.Location())
	if err != nil {
		writeError(c, err)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (a *API) handleSalesReport(c *gin.Context) {
	start, end, ok := a.reportRange(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	report := a.reports.SalesReport(ctx, start, end)
	chart := a.reports.SalesChart(ctx, start, end)

	switch strings.ToLower(strings.TrimSpace(c.Query("format"))) {
	case "csv":
		body, err := salesReportCSV(report, chart)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"sales-report-%s.csv\"", start.Format("2006-01-02")))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
	case "text":
		settings, err := a.service.GetSettings(ctx)
		if err != nil {
			writeError(c, err)
			return
		}
		doc := receipt.FormatSalesReport(settings.StoreName, report, chart, a.service.PageWidth(), a.reports.Location())
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(doc))
	default:
		writeJSON(c, http.StatusOK, gin.H{"report": report, "chart": chart})
	}
}

func (a *API) handleSalesChart(c *gin.Context) {
	start, end, ok := a.reportRange(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"points": a.reports.SalesChart(c.Request.Context(), start, end)})
}

func (a *API) handleBackupExport(c *gin.Context) {
	doc, err := a.backups.Export(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	content, err := backup.Marshal(doc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backup.FileName(doc.Timestamp)))
	c.Header("X-Backup-Digest", backup.Digest(content))
	c.Data(http.StatusOK, "application/json", content)
}

func (a *API) handleBackupImport(c *gin.Context) {
	content, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	preview, err := a.backups.Import(c.Request.Context(), content, parseFlag(c.Query("confirm")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"restore": preview})
}

func (a *API) handleBackupShare(c *gin.Context) {
	shared, err := a.backups.Share(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"shared": shared})
}
