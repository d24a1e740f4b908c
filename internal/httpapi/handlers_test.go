package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafepos/internal/backup"
	"cafepos/internal/domain"
	"cafepos/internal/reporting"
	"cafepos/internal/service"
	"cafepos/internal/store/memory"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestAPI(t *testing.T, opts Options) (*API, http.Handler) {
	t.Helper()
	repo := memory.NewSeeded()
	svc := service.New(repo, service.Options{Location: time.UTC, Now: func() time.Time { return testNow }})
	reports := reporting.NewAggregator(repo, nil, time.UTC, 0)
	backups := backup.NewManager(repo, svc, nil)
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "http://127.0.0.1:3000"
	}
	api := New(svc, reports, backups, opts)
	api.now = func() time.Time { return testNow }
	return api, api.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	case []byte:
		reader = bytes.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.7:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	_, h := newTestAPI(t, Options{})
	rec := do(t, h, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Referrer-Policy"))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	_, h := newTestAPI(t, Options{AllowedOrigin: "http://tablet.local"})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	req.Header.Set("Origin", "http://tablet.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://tablet.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	_, h := newTestAPI(t, Options{})
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/nope", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPut, "/api/v1/settings", nil).Code)
}

func TestProductsListAndSearch(t *testing.T) {
	_, h := newTestAPI(t, Options{})

	rec := do(t, h, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct {
		Products []domain.Product `json:"products"`
	}
	decode(t, rec, &all)
	assert.Len(t, all.Products, 22)

	rec = do(t, h, http.MethodGet, "/api/v1/products?q=pasta", nil)
	var found struct {
		Products []domain.Product `json:"products"`
	}
	decode(t, rec, &found)
	assert.Len(t, found.Products, 2)
}

func TestCreateProductValidationAndUnknownFields(t *testing.T) {
	_, h := newTestAPI(t, Options{})

	rec := do(t, h, http.MethodPost, "/api/v1/products", map[string]any{"category": "Tea", "name": "", "price": 10})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &body)
	assert.Contains(t, body.Fields, "name")

	rec = do(t, h, http.MethodPost, "/api/v1/products", `{"category":"Tea","name":"Oolong","price":90,"sku":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/products", map[string]any{"category": "Tea", "name": "Oolong", "price": 90, "stock_qty": 5})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCheckoutVoidAndReceiptFlow(t *testing.T) {
	_, h := newTestAPI(t, Options{})

	rec := do(t, h, http.MethodPost, "/api/v1/cart/quote", domain.QuoteRequest{
		Items:        []domain.CartLine{{ProductID: "2", Quantity: 2}},
		DiscountType: domain.DiscountSenior,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var quote domain.QuoteResponse
	decode(t, rec, &quote)
	assert.InDelta(t, 142.857143, quote.Breakdown.FinalAmount, 1e-5)

	rec = do(t, h, http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{
		Items:          []domain.CartLine{{ProductID: "2", Quantity: 2}},
		PaymentMethod:  domain.PaymentCash,
		AmountTendered: 250,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result domain.CheckoutResult
	decode(t, rec, &result)
	assert.InDelta(t, 50, result.Change, 1e-9)
	saleID := result.Sale.ID

	rec = do(t, h, http.MethodGet, "/api/v1/sales/"+saleID+"/receipt?format=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOTAL AMOUNT DUE")

	rec = do(t, h, http.MethodPost, "/api/v1/sales/"+saleID+"/reprint", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reprint domain.ReceiptResponse
	decode(t, rec, &reprint)
	assert.True(t, reprint.Reprint)
	assert.Contains(t, reprint.Receipt, "REPRINT")

	rec = do(t, h, http.MethodDelete, "/api/v1/products/2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/sales/"+saleID+"/void", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/sales/"+saleID, nil).Code)
}

func TestCheckoutErrorsMapToStatus(t *testing.T) {
	_, h := newTestAPI(t, Options{})

	rec := do(t, h, http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{
		Items:          []domain.CartLine{{ProductID: "1", Quantity: 1}},
		PaymentMethod:  domain.PaymentCash,
		AmountTendered: 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{
		Items:         []domain.CartLine{{ProductID: "21", Quantity: 99}},
		PaymentMethod: domain.PaymentGCash,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSettingsPatch(t *testing.T) {
	_, h := newTestAPI(t, Options{})

	rec := do(t, h, http.MethodPatch, "/api/v1/settings", `{"store_name":"Night Owl"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Settings domain.Settings `json:"settings"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "Night Owl", body.Settings.StoreName)
	assert.Equal(t, 12.0, body.Settings.VatPercentage)

	rec = do(t, h, http.MethodPatch, "/api/v1/settings", `{"vat_percentage":"twelve"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSalesReportFormats(t *testing.T) {
	_, h := newTestAPI(t, Options{})
	rec := do(t, h, http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{
		Items:         []domain.CartLine{{ProductID: "1", Quantity: 1}},
		PaymentMethod: domain.PaymentGCash,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/reports/sales?view=daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Report domain.SalesReport  `json:"report"`
		Chart  []domain.ChartPoint `json:"chart"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 1, body.Report.TransactionCount)
	require.Len(t, body.Chart, 1)
	assert.Equal(t, "2026-03-14", body.Chart[0].Date)

	rec = do(t, h, http.MethodGet, "/api/v1/reports/sales?view=daily&format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "summary,net_sales,80.00")

	rec = do(t, h, http.MethodGet, "/api/v1/reports/sales?view=daily&format=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SALES REPORT")

	rec = do(t, h, http.MethodGet, "/api/v1/reports/chart?view=custom&start=2026-03-01&end=2026-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var chart struct {
		Points []domain.ChartPoint `json:"points"`
	}
	decode(t, rec, &chart)
	assert.Len(t, chart.Points, 10)

	rec = do(t, h, http.MethodGet, "/api/v1/reports/sales?view=custom&start=bad", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackupExportAndImport(t *testing.T) {
	_, h := newTestAPI(t, Options{})

	rec := do(t, h, http.MethodGet, "/api/v1/backup/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "pos_backup_")
	exported := rec.Body.Bytes()
	assert.Equal(t, backup.Digest(exported), rec.Header().Get("X-Backup-Digest"))

	rec = do(t, h, http.MethodPost, "/api/v1/backup/import", `{"version":1,"data":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/products", map[string]any{"category": "Tea", "name": "Oolong", "price": 90})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/backup/import", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	var preview struct {
		Restore domain.RestorePreview `json:"restore"`
	}
	decode(t, rec, &preview)
	assert.False(t, preview.Restore.Applied)
	assert.Equal(t, 22, preview.Restore.Products)

	rec = do(t, h, http.MethodPost, "/api/v1/backup/import?confirm=true", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &preview)
	assert.True(t, preview.Restore.Applied)

	rec = do(t, h, http.MethodGet, "/api/v1/products?q=oolong", nil)
	assert.Equal(t, `{"products":[]}`, strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/backup/share", nil).Code)
}

func TestWriteLimiterThrottlesMutations(t *testing.T) {
	_, h := newTestAPI(t, Options{WriteRatePerSecond: 1})

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := do(t, h, http.MethodPost, "/api/v1/categories", map[string]string{"name": "Cat"})
		codes = append(codes, rec.Code)
	}
	assert.Contains(t, codes, http.StatusTooManyRequests)
	assert.Equal(t, http.StatusCreated, codes[0])

	// Reads are never throttled.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/categories", nil).Code)
	}
}

func TestWriteLimiterSweepsIdleClients(t *testing.T) {
	l := newWriteLimiter(1, 1)
	l.idleTTL = time.Millisecond
	l.get("a")
	time.Sleep(5 * time.Millisecond)
	l.get("b")
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.entries, "a")
	assert.Contains(t, l.entries, "b")
}

func TestStatusFor(t *testing.T) {
	_, err := backup.Parse([]byte("{}"))
	assert.Equal(t, http.StatusBadRequest, statusFor(err))
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.DeadlineExceeded))
	assert.Equal(t, 10, parsePositiveLimit("", 10, 50))
	assert.Equal(t, 50, parsePositiveLimit("900", 10, 50))
	assert.Equal(t, 10, parsePositiveLimit("-3", 10, 50))
}
