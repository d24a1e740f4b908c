package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"cafepos/internal/domain"
	"cafepos/internal/store"
)

type state struct {
	products   map[string]domain.Product
	categories map[string]domain.Category
	sales      map[string]domain.Sale
	saleItems  []domain.SaleItem
	settings   domain.Settings
}

type Store struct {
	mu    sync.RWMutex
	state state
}

func New() *Store {
	return &Store{state: state{
		products:   map[string]domain.Product{},
		categories: map[string]domain.Category{},
		sales:      map[string]domain.Sale{},
		settings:   store.DefaultSettings(),
	}}
}

// NewSeeded returns a store holding the default menu and settings.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	for _, c := range store.SeedCategories(now) {
		s.state.categories[c.ID] = c
	}
	for _, p := range store.SeedProducts(now) {
		s.state.products[p.ID] = p
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.state.products))
	for _, p := range s.state.products {
		out = append(out, cloneProduct(p))
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		if c := strings.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.state.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	dup := cloneProduct(p)
	return &dup, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.state.categories))
	for _, c := range s.state.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Category) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) GetSettings(_ context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.settings, nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.sortedSales(time.Time{}, time.Time{}, true)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Items = s.itemsFor(out[i].ID)
	}
	return out, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.state.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	sale.Items = s.itemsFor(id)
	return &sale, nil
}

func (s *Store) CountSaleItemsForProduct(_ context.Context, productID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, item := range s.state.saleItems {
		if item.ProductID == productID {
			count++
		}
	}
	return count, nil
}

func (s *Store) SalesSummary(_ context.Context, from time.Time, to time.Time) (domain.SalesTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals domain.SalesTotals
	for _, sale := range s.sortedSales(from, to, false) {
		totals.TotalSales += sale.FinalAmount
		totals.TransactionCount++
		totals.TotalVat += sale.VatAmount
		totals.TotalDiscount += sale.DiscountAmount
		totals.GrossSales += sale.TotalAmount
		switch {
		case sale.VatAmount > 0:
			totals.VatableGross += sale.TotalAmount
		case sale.DiscountType.Applied():
			totals.ExemptGross += sale.TotalAmount
		}
	}
	return totals, nil
}

func (s *Store) ListSalesBetween(_ context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedSales(from, to, false), nil
}

func (s *Store) Snapshot(_ context.Context) (domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := domain.Dataset{
		Products:   make([]domain.Product, 0, len(s.state.products)),
		Categories: make([]domain.Category, 0, len(s.state.categories)),
		Sales:      s.sortedSales(time.Time{}, time.Time{}, true),
		SaleItems:  slices.Clone(s.state.saleItems),
	}
	for _, p := range s.state.products {
		data.Products = append(data.Products, cloneProduct(p))
	}
	slices.SortFunc(data.Products, func(a, b domain.Product) int { return strings.Compare(a.ID, b.ID) })
	for _, c := range s.state.categories {
		data.Categories = append(data.Categories, c)
	}
	slices.SortFunc(data.Categories, func(a, b domain.Category) int { return strings.Compare(a.ID, b.ID) })
	if data.SaleItems == nil {
		data.SaleItems = []domain.SaleItem{}
	}
	settings := s.state.settings
	data.Settings = &settings
	return data, nil
}

// Commit applies the intents to a staged copy and swaps it in only when
// every intent succeeded.
func (s *Store) Commit(_ context.Context, uow *store.UnitOfWork) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	for i, in := range uow.Intents() {
		if err := staged.apply(in); err != nil {
			return fmt.Errorf("intent %d (%T): %w", i, in, err)
		}
	}
	s.state = staged
	return nil
}

func (st *state) apply(in store.Intent) error {
	switch v := in.(type) {
	case store.InsertSale:
		if _, ok := st.sales[v.Sale.ID]; ok || v.Sale.ID == "" {
			return store.ErrConflict
		}
		sale := v.Sale
		sale.Items = nil
		st.sales[sale.ID] = sale

	case store.InsertSaleItem:
		if _, ok := st.sales[v.Item.SaleID]; !ok {
			return fmt.Errorf("sale %s: %w", v.Item.SaleID, store.ErrConflict)
		}
		for _, existing := range st.saleItems {
			if existing.ID == v.Item.ID {
				return store.ErrConflict
			}
		}
		st.saleItems = append(st.saleItems, v.Item)

	case store.AdjustStock:
		p, ok := st.products[v.ProductID]
		if !ok {
			if v.Delta < 0 {
				return fmt.Errorf("product %s: %w", v.ProductID, store.ErrNotFound)
			}
			return nil
		}
		if v.Delta < 0 && p.StockQty+v.Delta < 0 {
			return fmt.Errorf("product %s: %w", v.ProductID, store.ErrInsufficientStock)
		}
		p.StockQty += v.Delta
		st.products[p.ID] = p

	case store.DeleteSaleItems:
		st.saleItems = slices.DeleteFunc(st.saleItems, func(item domain.SaleItem) bool {
			return item.SaleID == v.SaleID
		})

	case store.DeleteSale:
		if _, ok := st.sales[v.SaleID]; !ok {
			return store.ErrNotFound
		}
		for _, item := range st.saleItems {
			if item.SaleID == v.SaleID {
				return fmt.Errorf("sale %s still has items: %w", v.SaleID, store.ErrConflict)
			}
		}
		delete(st.sales, v.SaleID)

	case store.InsertCategory:
		if _, ok := st.categories[v.Category.ID]; ok || v.Category.ID == "" {
			return store.ErrConflict
		}
		st.categories[v.Category.ID] = v.Category

	case store.UpdateCategory:
		if _, ok := st.categories[v.Category.ID]; !ok {
			return store.ErrNotFound
		}
		st.categories[v.Category.ID] = v.Category

	case store.DeleteCategory:
		if _, ok := st.categories[v.ID]; !ok {
			return store.ErrNotFound
		}
		delete(st.categories, v.ID)

	case store.InsertProduct:
		if _, ok := st.products[v.Product.ID]; ok || v.Product.ID == "" {
			return store.ErrConflict
		}
		st.products[v.Product.ID] = cloneProduct(v.Product)

	case store.UpdateProduct:
		if _, ok := st.products[v.Product.ID]; !ok {
			return store.ErrNotFound
		}
		st.products[v.Product.ID] = cloneProduct(v.Product)

	case store.DeleteProduct:
		if _, ok := st.products[v.ID]; !ok {
			return store.ErrNotFound
		}
		delete(st.products, v.ID)

	case store.UpdateSettings:
		st.settings = v.Settings

	case store.PatchSettings:
		if p := v.Patch.StoreName; p != nil {
			st.settings.StoreName = *p
		}
		if p := v.Patch.VatPercentage; p != nil {
			st.settings.VatPercentage = *p
		}
		if p := v.Patch.SeniorDiscountPercentage; p != nil {
			st.settings.SeniorDiscountPercentage = *p
		}
		if p := v.Patch.PwdDiscountPercentage; p != nil {
			st.settings.PwdDiscountPercentage = *p
		}

	case store.ClearTable:
		switch v.Table {
		case store.TableSaleItems:
			st.saleItems = nil
		case store.TableSales:
			if len(st.saleItems) > 0 {
				return fmt.Errorf("sale_items still reference sales: %w", store.ErrConflict)
			}
			st.sales = map[string]domain.Sale{}
		case store.TableProducts:
			st.products = map[string]domain.Product{}
		case store.TableCategories:
			st.categories = map[string]domain.Category{}
		default:
			return fmt.Errorf("table %q: %w", v.Table, store.ErrInvalid)
		}

	default:
		return fmt.Errorf("unsupported intent %T: %w", in, store.ErrInvalid)
	}
	return nil
}

// sortedSales returns headers in [from, to]; a zero bound is open.
func (s *Store) sortedSales(from time.Time, to time.Time, newestFirst bool) []domain.Sale {
	out := make([]domain.Sale, 0, len(s.state.sales))
	for _, sale := range s.state.sales {
		if !from.IsZero() && sale.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && sale.CreatedAt.After(to) {
			continue
		}
		sale.Items = nil
		out = append(out, sale)
	}
	slices.SortFunc(out, func(a, b domain.Sale) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if newestFirst {
			return -c
		}
		return c
	})
	return out
}

func (s *Store) itemsFor(saleID string) []domain.SaleItem {
	items := make([]domain.SaleItem, 0, 4)
	for _, item := range s.state.saleItems {
		if item.SaleID == saleID {
			items = append(items, item)
		}
	}
	return items
}

func (st state) clone() state {
	dup := state{
		products:   make(map[string]domain.Product, len(st.products)),
		categories: make(map[string]domain.Category, len(st.categories)),
		sales:      make(map[string]domain.Sale, len(st.sales)),
		saleItems:  slices.Clone(st.saleItems),
		settings:   st.settings,
	}
	for k, v := range st.products {
		dup.products[k] = cloneProduct(v)
	}
	for k, v := range st.categories {
		dup.categories[k] = v
	}
	for k, v := range st.sales {
		dup.sales[k] = v
	}
	return dup
}

func cloneProduct(p domain.Product) domain.Product {
	if p.ImageURI != nil {
		uri := *p.ImageURI
		p.ImageURI = &uri
	}
	return p
}
