package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cafepos/internal/domain"
	"cafepos/internal/store"
)

const (
	productColumns  = `id, category, name, price, stock_qty, image_uri, created_at`
	categoryColumns = `id, name, created_at`
	saleColumns     = `id, total_amount, vat_amount, discount_amount, discount_type, final_amount, payment_method, created_at`
	saleItemColumns = `id, sale_id, product_id, product_name, quantity, price`
	settingsColumns = `store_name, vat_percentage, senior_discount_percentage, pwd_discount_percentage`
)

var _ store.Repository = (*Store)(nil)

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.listProducts(ctx, s.db, `ORDER BY category, name`)
}

func (s *Store) listProducts(ctx context.Context, q Querier, order string) ([]domain.Product, error) {
	products := make([]domain.Product, 0, 32)
	err := s.QueryAll(ctx, q, `SELECT `+productColumns+` FROM products `+order, nil, func(rows *sql.Rows) error {
		p, err := scanProduct(rows)
		if err != nil {
			return err
		}
		products = append(products, p)
		return nil
	})
	return products, err
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var (
		p       domain.Product
		image   sql.NullString
		created time.Time
	)
	found, err := s.QueryFirst(ctx, s.db, `SELECT `+productColumns+` FROM products WHERE id = ?`, []any{id},
		&p.ID, &p.Category, &p.Name, &p.Price, &p.StockQty, &image, timeValue{&created})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, store.ErrNotFound
	}
	p.ImageURI = nullStringPtr(image)
	p.CreatedAt = created
	return &p, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.listCategories(ctx, s.db, `ORDER BY name`)
}

func (s *Store) listCategories(ctx context.Context, q Querier, order string) ([]domain.Category, error) {
	categories := make([]domain.Category, 0, 8)
	err := s.QueryAll(ctx, q, `SELECT `+categoryColumns+` FROM categories `+order, nil, func(rows *sql.Rows) error {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, timeValue{&c.CreatedAt}); err != nil {
			return err
		}
		categories = append(categories, c)
		return nil
	})
	return categories, err
}

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	return s.getSettings(ctx, s.db)
}

func (s *Store) getSettings(ctx context.Context, q Querier) (domain.Settings, error) {
	var st domain.Settings
	found, err := s.QueryFirst(ctx, q, `SELECT `+settingsColumns+` FROM settings WHERE id = 1`, nil,
		&st.StoreName, &st.VatPercentage, &st.SeniorDiscountPercentage, &st.PwdDiscountPercentage)
	if err != nil {
		return domain.Settings{}, err
	}
	if !found {
		return store.DefaultSettings(), nil
	}
	return st, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales ORDER BY created_at DESC, id DESC`
	args := []any(nil)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	sales, err := s.listSales(ctx, s.db, query, args)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, s.db, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sales, err := s.listSales(ctx, s.db, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, []any{id})
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, store.ErrNotFound
	}
	if err := s.attachItems(ctx, s.db, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

func (s *Store) CountSaleItemsForProduct(ctx context.Context, productID string) (int, error) {
	var count int
	_, err := s.QueryFirst(ctx, s.db, `SELECT COUNT(*) FROM sale_items WHERE product_id = ?`, []any{productID}, &count)
	return count, err
}

func (s *Store) SalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesTotals, error) {
	var totals domain.SalesTotals
	_, err := s.QueryFirst(ctx, s.db, `
		SELECT
			COALESCE(SUM(final_amount), 0),
			COUNT(*),
			COALESCE(SUM(vat_amount), 0),
			COALESCE(SUM(discount_amount), 0),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(CASE WHEN vat_amount > 0 THEN total_amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN vat_amount = 0 AND discount_type IS NOT NULL THEN total_amount ELSE 0 END), 0)
		FROM sales
		WHERE created_at BETWEEN ? AND ?
	`, []any{s.dialect.EncodeTime(from), s.dialect.EncodeTime(to)},
		&totals.TotalSales, &totals.TransactionCount, &totals.TotalVat, &totals.TotalDiscount,
		&totals.GrossSales, &totals.VatableGross, &totals.ExemptGross)
	if err != nil {
		return domain.SalesTotals{}, err
	}
	return totals, nil
}

func (s *Store) ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	return s.listSales(ctx, s.db,
		`SELECT `+saleColumns+` FROM sales WHERE created_at BETWEEN ? AND ? ORDER BY created_at, id`,
		[]any{s.dialect.EncodeTime(from), s.dialect.EncodeTime(to)})
}

func (s *Store) Snapshot(ctx context.Context) (domain.Dataset, error) {
	var data domain.Dataset
	err := s.withTx(ctx, s.dialect.ReadTx, func(tx *sql.Tx) error {
		var err error
		if data.Products, err = s.listProducts(ctx, tx, `ORDER BY id`); err != nil {
			return fmt.Errorf("products: %w", err)
		}
		if data.Categories, err = s.listCategories(ctx, tx, `ORDER BY id`); err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		if data.Sales, err = s.listSales(ctx, tx, `SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC, id DESC`, nil); err != nil {
			return fmt.Errorf("sales: %w", err)
		}
		data.SaleItems = make([]domain.SaleItem, 0, len(data.Sales)*2)
		err = s.QueryAll(ctx, tx, `SELECT `+saleItemColumns+` FROM sale_items ORDER BY sale_id, id`, nil, func(rows *sql.Rows) error {
			item, err := scanSaleItem(rows)
			if err != nil {
				return err
			}
			data.SaleItems = append(data.SaleItems, item)
			return nil
		})
		if err != nil {
			return fmt.Errorf("sale_items: %w", err)
		}
		settings, err := s.getSettings(ctx, tx)
		if err != nil {
			return fmt.Errorf("settings: %w", err)
		}
		data.Settings = &settings
		return nil
	})
	if err != nil {
		return domain.Dataset{}, err
	}
	return data, nil
}

func (s *Store) listSales(ctx context.Context, q Querier, query string, args []any) ([]domain.Sale, error) {
	sales := make([]domain.Sale, 0, 16)
	err := s.QueryAll(ctx, q, query, args, func(rows *sql.Rows) error {
		var (
			sale     domain.Sale
			discount sql.NullString
			payment  string
		)
		if err := rows.Scan(&sale.ID, &sale.TotalAmount, &sale.VatAmount, &sale.DiscountAmount, &discount,
			&sale.FinalAmount, &payment, timeValue{&sale.CreatedAt}); err != nil {
			return err
		}
		dt, err := domain.ParseDiscountType(discount.String)
		if err != nil {
			return fmt.Errorf("sale %s: %w", sale.ID, err)
		}
		sale.DiscountType = dt
		sale.PaymentMethod = domain.PaymentMethod(payment)
		sales = append(sales, sale)
		return nil
	})
	return sales, err
}

func (s *Store) attachItems(ctx context.Context, q Querier, sales []domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	index := make(map[string]int, len(sales))
	marks := make([]string, len(sales))
	args := make([]any, len(sales))
	for i := range sales {
		index[sales[i].ID] = i
		sales[i].Items = []domain.SaleItem{}
		marks[i] = "?"
		args[i] = sales[i].ID
	}
	query := `SELECT ` + saleItemColumns + ` FROM sale_items WHERE sale_id IN (` + strings.Join(marks, ",") + `) ORDER BY id`
	return s.QueryAll(ctx, q, query, args, func(rows *sql.Rows) error {
		item, err := scanSaleItem(rows)
		if err != nil {
			return err
		}
		if i, ok := index[item.SaleID]; ok {
			sales[i].Items = append(sales[i].Items, item)
		}
		return nil
	})
}

func scanProduct(rows *sql.Rows) (domain.Product, error) {
	var (
		p     domain.Product
		image sql.NullString
	)
	if err := rows.Scan(&p.ID, &p.Category, &p.Name, &p.Price, &p.StockQty, &image, timeValue{&p.CreatedAt}); err != nil {
		return domain.Product{}, err
	}
	p.ImageURI = nullStringPtr(image)
	return p, nil
}

func scanSaleItem(rows *sql.Rows) (domain.SaleItem, error) {
	var item domain.SaleItem
	err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price)
	return item, err
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	out := v.String
	return &out
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDiscount(d domain.DiscountType) any {
	if !d.Applied() {
		return nil
	}
	return string(d)
}
