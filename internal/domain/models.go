package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type DiscountType string

const (
	DiscountNone   DiscountType = "none"
	DiscountSenior DiscountType = "senior"
	DiscountPWD    DiscountType = "pwd"
)

// ParseDiscountType accepts the stored and wire spellings; an empty value means none.
func ParseDiscountType(raw string) (DiscountType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "null":
		return DiscountNone, nil
	case "senior":
		return DiscountSenior, nil
	case "pwd":
		return DiscountPWD, nil
	default:
		return DiscountNone, fmt.Errorf("unknown discount type %q", raw)
	}
}

func (d DiscountType) Applied() bool {
	return d == DiscountSenior || d == DiscountPWD
}

// Label is the receipt spelling of the discount.
func (d DiscountType) Label() string {
	switch d {
	case DiscountSenior:
		return "Senior"
	case DiscountPWD:
		return "PWD"
	default:
		return ""
	}
}

// MarshalJSON writes none as null, matching the discount_type column.
func (d DiscountType) MarshalJSON() ([]byte, error) {
	if !d.Applied() {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

func (d *DiscountType) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = DiscountNone
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("discount_type: %w", err)
	}
	parsed, err := ParseDiscountType(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentGCash PaymentMethod = "gcash"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentGCash
}

type Product struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	StockQty  int       `json:"stock_qty"`
	ImageURI  *string   `json:"image_uri,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Settings struct {
	StoreName                string  `json:"store_name"`
	VatPercentage            float64 `json:"vat_percentage"`
	SeniorDiscountPercentage float64 `json:"senior_discount_percentage"`
	PwdDiscountPercentage    float64 `json:"pwd_discount_percentage"`
}

type Sale struct {
	ID             string        `json:"id"`
	TotalAmount    float64       `json:"total_amount"`
	VatAmount      float64       `json:"vat_amount"`
	DiscountAmount float64       `json:"discount_amount"`
	DiscountType   DiscountType  `json:"discount_type"`
	FinalAmount    float64       `json:"final_amount"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	CreatedAt      time.Time     `json:"created_at"`
	Items          []SaleItem    `json:"items,omitempty"`
}

type SaleItem struct {
	ID          string  `json:"id"`
	SaleID      string  `json:"sale_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// CartItem is a cart line held by the register; it is never persisted.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type Breakdown struct {
	SubtotalInclusive float64 `json:"subtotal_inclusive"`
	VatAmount         float64 `json:"vat_amount"`
	DiscountAmount    float64 `json:"discount_amount"`
	FinalAmount       float64 `json:"final_amount"`
	VatableSales      float64 `json:"vatable_sales"`
	VatExemptSales    float64 `json:"vat_exempt_sales"`
}

// Dataset is every row of every table, as exported in a backup.
type Dataset struct {
	Products   []Product  `json:"products"`
	Categories []Category `json:"categories"`
	Sales      []Sale     `json:"sales"`
	SaleItems  []SaleItem `json:"sale_items"`
	Settings   *Settings  `json:"settings,omitempty"`
}

type SalesTotals struct {
	TotalSales       float64 `json:"total_sales"`
	TransactionCount int     `json:"transaction_count"`
	TotalVat         float64 `json:"total_vat"`
	TotalDiscount    float64 `json:"total_discount"`
	GrossSales       float64 `json:"gross_sales"`
	VatableGross     float64 `json:"vatable_gross"`
	ExemptGross      float64 `json:"exempt_gross"`
}

type SalesReport struct {
	SalesTotals
	VatableSales   float64   `json:"vatable_sales"`
	VatExemptSales float64   `json:"vat_exempt_sales"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

type ChartPoint struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ProductCreateRequest struct {
	Category string  `json:"category"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	StockQty int     `json:"stock_qty"`
	ImageURI *string `json:"image_uri,omitempty"`
}

type ProductUpdateRequest struct {
	Category *string  `json:"category,omitempty"`
	Name     *string  `json:"name,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	StockQty *int     `json:"stock_qty,omitempty"`
	ImageURI *string  `json:"image_uri,omitempty"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type SettingsUpdateRequest struct {
	StoreName                *string  `json:"store_name,omitempty"`
	VatPercentage            *float64 `json:"vat_percentage,omitempty"`
	SeniorDiscountPercentage *float64 `json:"senior_discount_percentage,omitempty"`
	PwdDiscountPercentage    *float64 `json:"pwd_discount_percentage,omitempty"`
}

type QuoteRequest struct {
	Items        []CartLine   `json:"items"`
	DiscountType DiscountType `json:"discount_type"`
}

type QuoteResponse struct {
	Items     []CartItem `json:"items"`
	Breakdown Breakdown  `json:"breakdown"`
}

type CheckoutRequest struct {
	Items          []CartLine    `json:"items"`
	Breakdown      *Breakdown    `json:"breakdown,omitempty"`
	DiscountType   DiscountType  `json:"discount_type"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	AmountTendered float64       `json:"amount_tendered"`
}

type CheckoutResult struct {
	Sale           Sale    `json:"sale"`
	AmountTendered float64 `json:"amount_tendered"`
	Change         float64 `json:"change"`
	Receipt        string  `json:"receipt"`
	Printed        bool    `json:"printed"`
	PrintError     string  `json:"print_error,omitempty"`
}

type ReceiptResponse struct {
	SaleID  string `json:"sale_id"`
	Reprint bool   `json:"reprint"`
	Receipt string `json:"receipt"`
	Printed bool   `json:"printed"`
}

type RestorePreview struct {
	Version     int       `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	Products    int       `json:"products"`
	Categories  int       `json:"categories"`
	Sales       int       `json:"sales"`
	SaleItems   int       `json:"sale_items"`
	HasSettings bool      `json:"has_settings"`
	Applied     bool      `json:"applied"`
}
