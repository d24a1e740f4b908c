package store

import "cafepos/internal/domain"

// Intent is a single write recorded in a UnitOfWork.
type Intent interface {
	intent()
}

type InsertSale struct{ Sale domain.Sale }

type InsertSaleItem struct{ Item domain.SaleItem }

// AdjustStock adds Delta to a product's stock_qty. A negative delta that
// would take stock below zero fails with ErrInsufficientStock and a negative
// delta on a missing product fails with ErrNotFound. A positive delta on a
// missing product changes nothing.
type AdjustStock struct {
	ProductID string
	Delta     int
}

type DeleteSaleItems struct{ SaleID string }

// DeleteSale fails with ErrNotFound unless exactly one sale is removed.
type DeleteSale struct{ SaleID string }

type InsertCategory struct{ Category domain.Category }

type UpdateCategory struct{ Category domain.Category }

type DeleteCategory struct{ ID string }

type InsertProduct struct{ Product domain.Product }

type UpdateProduct struct{ Product domain.Product }

type DeleteProduct struct{ ID string }

// UpdateSettings overwrites the singleton row; it never inserts or deletes it.
type UpdateSettings struct{ Settings domain.Settings }

// PatchSettings sets only the fields that are non-nil and keeps the rest of
// the singleton as stored.
type PatchSettings struct{ Patch domain.SettingsUpdateRequest }

type ClearTable struct{ Table Table }

func (InsertSale) intent()      {}
func (InsertSaleItem) intent()  {}
func (AdjustStock) intent()     {}
func (DeleteSaleItems) intent() {}
func (DeleteSale) intent()      {}
func (InsertCategory) intent()  {}
func (UpdateCategory) intent()  {}
func (DeleteCategory) intent()  {}
func (InsertProduct) intent()   {}
func (UpdateProduct) intent()   {}
func (DeleteProduct) intent()   {}
func (UpdateSettings) intent()  {}
func (PatchSettings) intent()   {}
func (ClearTable) intent()      {}

// UnitOfWork collects write intents that a Repository commits as one transaction.
type UnitOfWork struct {
	intents []Intent
}

func NewUnitOfWork(intents ...Intent) *UnitOfWork {
	return &UnitOfWork{intents: append([]Intent(nil), intents...)}
}

func (u *UnitOfWork) Add(intents ...Intent) *UnitOfWork {
	u.intents = append(u.intents, intents...)
	return u
}

func (u *UnitOfWork) Intents() []Intent {
	if u == nil {
		return nil
	}
	return u.intents
}

func (u *UnitOfWork) Len() int {
	if u == nil {
		return 0
	}
	return len(u.intents)
}
