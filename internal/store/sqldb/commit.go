package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cafepos/internal/store"
)

// Commit applies every intent inside one write transaction.
func (s *Store) Commit(ctx context.Context, uow *store.UnitOfWork) error {
	return s.WithTransaction(ctx, func(tx *sql.Tx) error {
		for i, in := range uow.Intents() {
			if err := s.apply(ctx, tx, in); err != nil {
				return fmt.Errorf("intent %d (%T): %w", i, in, err)
			}
		}
		return nil
	})
}

func (s *Store) apply(ctx context.Context, tx *sql.Tx, in store.Intent) error {
	switch v := in.(type) {
	case store.InsertSale:
		_, err := s.Execute(ctx, tx, `INSERT INTO sales (`+saleColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
			v.Sale.ID, v.Sale.TotalAmount, v.Sale.VatAmount, v.Sale.DiscountAmount, nullableDiscount(v.Sale.DiscountType),
			v.Sale.FinalAmount, string(v.Sale.PaymentMethod), s.dialect.EncodeTime(v.Sale.CreatedAt))
		return err

	case store.InsertSaleItem:
		_, err := s.Execute(ctx, tx, `INSERT INTO sale_items (`+saleItemColumns+`) VALUES (?,?,?,?,?,?)`,
			v.Item.ID, v.Item.SaleID, v.Item.ProductID, v.Item.ProductName, v.Item.Quantity, v.Item.Price)
		return err

	case store.AdjustStock:
		return s.adjustStock(ctx, tx, v)

	case store.DeleteSaleItems:
		_, err := s.Execute(ctx, tx, `DELETE FROM sale_items WHERE sale_id = ?`, v.SaleID)
		return err

	case store.DeleteSale:
		return expectOne(s.Execute(ctx, tx, `DELETE FROM sales WHERE id = ?`, v.SaleID))

	case store.InsertCategory:
		_, err := s.Execute(ctx, tx, `INSERT INTO categories (`+categoryColumns+`) VALUES (?,?,?)`,
			v.Category.ID, v.Category.Name, s.dialect.EncodeTime(v.Category.CreatedAt))
		return err

	case store.UpdateCategory:
		return expectOne(s.Execute(ctx, tx, `UPDATE categories SET name = ? WHERE id = ?`, v.Category.Name, v.Category.ID))

	case store.DeleteCategory:
		return expectOne(s.Execute(ctx, tx, `DELETE FROM categories WHERE id = ?`, v.ID))

	case store.InsertProduct:
		p := v.Product
		_, err := s.Execute(ctx, tx, `INSERT INTO products (`+productColumns+`) VALUES (?,?,?,?,?,?,?)`,
			p.ID, p.Category, p.Name, p.Price, p.StockQty, nullableString(p.ImageURI), s.dialect.EncodeTime(p.CreatedAt))
		return err

	case store.UpdateProduct:
		p := v.Product
		return expectOne(s.Execute(ctx, tx, `
			UPDATE products SET category = ?, name = ?, price = ?, stock_qty = ?, image_uri = ?
			WHERE id = ?
		`, p.Category, p.Name, p.Price, p.StockQty, nullableString(p.ImageURI), p.ID))

	case store.DeleteProduct:
		return expectOne(s.Execute(ctx, tx, `DELETE FROM products WHERE id = ?`, v.ID))

	case store.UpdateSettings:
		st := v.Settings
		return expectOne(s.Execute(ctx, tx, `
			UPDATE settings
			SET store_name = ?, vat_percentage = ?, senior_discount_percentage = ?, pwd_discount_percentage = ?
			WHERE id = 1
		`, st.StoreName, st.VatPercentage, st.SeniorDiscountPercentage, st.PwdDiscountPercentage))

	case store.PatchSettings:
		p := v.Patch
		return expectOne(s.Execute(ctx, tx, `
			UPDATE settings
			SET store_name = COALESCE(?, store_name),
				vat_percentage = COALESCE(?, vat_percentage),
				senior_discount_percentage = COALESCE(?, senior_discount_percentage),
				pwd_discount_percentage = COALESCE(?, pwd_discount_percentage)
			WHERE id = 1
		`, nullable(p.StoreName), nullable(p.VatPercentage), nullable(p.SeniorDiscountPercentage), nullable(p.PwdDiscountPercentage)))

	case store.ClearTable:
		switch v.Table {
		case store.TableSaleItems, store.TableSales, store.TableProducts, store.TableCategories:
		default:
			return fmt.Errorf("table %q: %w", v.Table, store.ErrInvalid)
		}
		_, err := s.Execute(ctx, tx, `DELETE FROM `+string(v.Table))
		return err

	default:
		return fmt.Errorf("unsupported intent %T: %w", in, store.ErrInvalid)
	}
}

func (s *Store) adjustStock(ctx context.Context, tx *sql.Tx, v store.AdjustStock) error {
	if v.Delta >= 0 {
		_, err := s.Execute(ctx, tx, `UPDATE products SET stock_qty = stock_qty + ? WHERE id = ?`, v.Delta, v.ProductID)
		return err
	}

	affected, err := s.Execute(ctx, tx, `
		UPDATE products SET stock_qty = stock_qty + ?
		WHERE id = ? AND stock_qty + ? >= 0
	`, v.Delta, v.ProductID, v.Delta)
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var exists int
	if _, err := s.QueryFirst(ctx, tx, `SELECT COUNT(*) FROM products WHERE id = ?`, []any{v.ProductID}, &exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("product %s: %w", v.ProductID, store.ErrNotFound)
	}
	return fmt.Errorf("product %s: %w", v.ProductID, store.ErrInsufficientStock)
}

func expectOne(affected int64, err error) error {
	if err != nil {
		return err
	}
	if affected != 1 {
		return store.ErrNotFound
	}
	return nil
}

// Seed installs the settings singleton and, on an empty catalog, the
// default menu. Safe to run on every start.
func (s *Store) Seed(ctx context.Context) error {
	defaults := store.DefaultSettings()
	now := time.Now().UTC().Truncate(time.Millisecond)

	return s.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := s.Execute(ctx, tx, `
			INSERT INTO settings (id, `+settingsColumns+`) VALUES (1, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING
		`, defaults.StoreName, defaults.VatPercentage, defaults.SeniorDiscountPercentage, defaults.PwdDiscountPercentage); err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}

		var count int
		if _, err := s.QueryFirst(ctx, tx, `SELECT (SELECT COUNT(*) FROM products) + (SELECT COUNT(*) FROM categories)`, nil, &count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		for _, c := range store.SeedCategories(now) {
			if err := s.apply(ctx, tx, store.InsertCategory{Category: c}); err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}
		}
		for _, p := range store.SeedProducts(now) {
			if err := s.apply(ctx, tx, store.InsertProduct{Product: p}); err != nil {
				return fmt.Errorf("seed product %s: %w", p.Name, err)
			}
		}
		return nil
	})
}
