// Package httpapi exposes the register operations as a JSON API for the
// tablet UI.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cafepos/internal/backup"
	"cafepos/internal/reporting"
	"cafepos/internal/service"
)

type Options struct {
	AllowedOrigin string
	// WriteRatePerSecond throttles mutating requests per client; 0 disables it.
	WriteRatePerSecond float64
}

type API struct {
	service       *service.Service
	reports       *reporting.Aggregator
	backups       *backup.Manager
	allowedOrigin string
	limiter       *writeLimiter
	now           func() time.Time
}

func New(svc *service.Service, reports *reporting.Aggregator, backups *backup.Manager, opts Options) *API {
	var limiter *writeLimiter
	if opts.WriteRatePerSecond > 0 {
		limiter = newWriteLimiter(opts.WriteRatePerSecond, int(opts.WriteRatePerSecond*2))
	}
	return &API{
		service:       svc,
		reports:       reports,
		backups:       backups,
		allowedOrigin: opts.AllowedOrigin,
		limiter:       limiter,
		now:           time.Now,
	}
}

func (a *API) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(recovery(), requestLogger(), securityHeaders(), corsMiddleware(a.allowedOrigin), a.limiter.Middleware())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	r.GET("/healthz", a.handleHealth)

	v1 := r.Group("/api/v1", limitBody(jsonBodyLimit))
	v1.GET("/settings", a.handleGetSettings)
	v1.PATCH("/settings", a.handleUpdateSettings)

	v1.GET("/categories", a.handleListCategories)
	v1.POST("/categories", a.handleCreateCategory)
	v1.PATCH("/categories/:id", a.handleRenameCategory)
	v1.DELETE("/categories/:id", a.handleDeleteCategory)

	v1.GET("/products", a.handleListProducts)
	v1.POST("/products", a.handleCreateProduct)
	v1.PATCH("/products/:id", a.handleUpdateProduct)
	v1.DELETE("/products/:id", a.handleDeleteProduct)

	v1.POST("/cart/quote", a.handleQuote)
	v1.POST("/checkout", a.handleCheckout)

	v1.GET("/sales", a.handleListSales)
	v1.GET("/sales/:id", a.handleGetSale)
	v1.POST("/sales/:id/void", a.handleVoidSale)
	v1.GET("/sales/:id/receipt", a.handleReceipt)
	v1.POST("/sales/:id/reprint", a.handleReprint)

	v1.GET("/reports/sales", a.handleSalesReport)
	v1.GET("/reports/chart", a.handleSalesChart)

	v1.GET("/backup/export", a.handleBackupExport)
	v1.POST("/backup/share", a.handleBackupShare)
	r.POST("/api/v1/backup/import", limitBody(backupBodyLimit), a.handleBackupImport)

	return r
}
