package store

import (
	"context"
	"errors"
	"time"

	"cafepos/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalid           = errors.New("invalid request")
	ErrConflict          = errors.New("conflicts with existing data")
	ErrProductInUse      = errors.New("product is referenced by recorded sales")
)

// Repository is the persistence collaborator. Reads go through the query
// methods; every write goes through Commit as a single unit of work.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetSettings(ctx context.Context) (domain.Settings, error)

	// ListSales returns sales newest first with their items. limit <= 0 means all.
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	CountSaleItemsForProduct(ctx context.Context, productID string) (int, error)

	// SalesSummary aggregates sales with created_at in [from, to].
	SalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesTotals, error)
	// ListSalesBetween returns sale headers with created_at in [from, to], oldest first.
	ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error)

	// Snapshot reads every table in one consistent view.
	Snapshot(ctx context.Context) (domain.Dataset, error)

	// Commit applies all intents atomically or none of them.
	Commit(ctx context.Context, uow *UnitOfWork) error
}

type Table string

const (
	TableSaleItems  Table = "sale_items"
	TableSales      Table = "sales"
	TableProducts   Table = "products"
	TableCategories Table = "categories"
)

// ClearOrder lists tables children first so foreign keys hold while clearing.
var ClearOrder = []Table{TableSaleItems, TableSales, TableProducts, TableCategories}
