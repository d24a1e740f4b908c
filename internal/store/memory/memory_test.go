package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafepos/internal/domain"
	"cafepos/internal/store"
)

func TestNewSeededHasMenuAndSettings(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 22)
	assert.Equal(t, "Coffee-Based Frappe", products[0].Category)

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultSettings(), settings)
}

func TestCommitIsAllOrNothing(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	before, err := s.Snapshot(ctx)
	require.NoError(t, err)

	uow := store.NewUnitOfWork(
		store.InsertSale{Sale: domain.Sale{ID: "s1", TotalAmount: 80, FinalAmount: 80, PaymentMethod: domain.PaymentCash, CreatedAt: time.Now()}},
		store.InsertSaleItem{Item: domain.SaleItem{ID: "i1", SaleID: "s1", ProductID: "1", ProductName: "Americano", Quantity: 1, Price: 80}},
		store.AdjustStock{ProductID: "1", Delta: -1},
		store.InsertSaleItem{Item: domain.SaleItem{ID: "i2", SaleID: "missing", ProductID: "2", Quantity: 1, Price: 100}},
	)
	err = s.Commit(ctx, uow)
	require.ErrorIs(t, err, store.ErrConflict)

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAdjustStockRules(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	err := s.Commit(ctx, store.NewUnitOfWork(store.AdjustStock{ProductID: "21", Delta: -31}))
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	err = s.Commit(ctx, store.NewUnitOfWork(store.AdjustStock{ProductID: "nope", Delta: -1}))
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Commit(ctx, store.NewUnitOfWork(store.AdjustStock{ProductID: "nope", Delta: 3})))

	require.NoError(t, s.Commit(ctx, store.NewUnitOfWork(store.AdjustStock{ProductID: "21", Delta: -30})))
	p, err := s.GetProduct(ctx, "21")
	require.NoError(t, err)
	assert.Zero(t, p.StockQty)
}

func TestDeleteSaleRequiresExistingSaleWithoutItems(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.ErrorIs(t, s.Commit(ctx, store.NewUnitOfWork(store.DeleteSale{SaleID: "ghost"})), store.ErrNotFound)

	require.NoError(t, s.Commit(ctx, store.NewUnitOfWork(
		store.InsertSale{Sale: domain.Sale{ID: "s1", CreatedAt: time.Now()}},
		store.InsertSaleItem{Item: domain.SaleItem{ID: "i1", SaleID: "s1", ProductID: "1", Quantity: 1}},
	)))
	require.ErrorIs(t, s.Commit(ctx, store.NewUnitOfWork(store.DeleteSale{SaleID: "s1"})), store.ErrConflict)
	require.NoError(t, s.Commit(ctx, store.NewUnitOfWork(store.DeleteSaleItems{SaleID: "s1"}, store.DeleteSale{SaleID: "s1"})))

	_, err := s.GetSale(ctx, "s1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSalesSummaryBucketsAndRange(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Commit(ctx, store.NewUnitOfWork(
		store.InsertSale{Sale: domain.Sale{ID: "a", TotalAmount: 200, VatAmount: 21.43, FinalAmount: 200, CreatedAt: base}},
		store.InsertSale{Sale: domain.Sale{ID: "b", TotalAmount: 200, DiscountAmount: 35.71, DiscountType: domain.DiscountSenior, FinalAmount: 142.86, CreatedAt: base.Add(time.Hour)}},
		store.InsertSale{Sale: domain.Sale{ID: "c", TotalAmount: 50, FinalAmount: 50, CreatedAt: base.Add(48 * time.Hour)}},
	)))

	totals, err := s.SalesSummary(ctx, base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, totals.TransactionCount)
	assert.InDelta(t, 342.86, totals.TotalSales, 1e-9)
	assert.InDelta(t, 400, totals.GrossSales, 1e-9)
	assert.InDelta(t, 200, totals.VatableGross, 1e-9)
	assert.InDelta(t, 200, totals.ExemptGross, 1e-9)

	sales, err := s.ListSales(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sales, 3)
	assert.Equal(t, "c", sales[0].ID)
}
