package service

import (
	"context"
	"fmt"
	"strings"

	"cafepos/internal/domain"
	"cafepos/internal/store"
	"cafepos/internal/xid"
)

type productInput struct {
	Category string  `validate:"required,max=80"`
	Name     string  `validate:"required,max=120"`
	Price    float64 `validate:"gte=0"`
	StockQty int     `validate:"gte=0"`
}

type categoryInput struct {
	Name string `validate:"required,max=80"`
}

// ListProducts returns products ordered by category and name. A non-empty
// search keeps products whose name or category contains it, ignoring case.
func (s *Service) ListProducts(ctx context.Context, search string) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return products, nil
	}
	filtered := products[:0]
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(strings.ToLower(p.Category), needle) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) AddProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	in := productInput{
		Category: strings.TrimSpace(req.Category),
		Name:     strings.TrimSpace(req.Name),
		Price:    req.Price,
		StockQty: req.StockQty,
	}
	if err := s.check(in); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		ID:        xid.New(""),
		Category:  in.Category,
		Name:      in.Name,
		Price:     in.Price,
		StockQty:  in.StockQty,
		ImageURI:  trimmedOrNil(req.ImageURI),
		CreatedAt: s.timestamp(),
	}
	if err := s.Commit(ctx, store.NewUnitOfWork(store.InsertProduct{Product: product})); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		updated.Price = *req.Price
	}
	if req.StockQty != nil {
		updated.StockQty = *req.StockQty
	}
	if req.ImageURI != nil {
		updated.ImageURI = trimmedOrNil(req.ImageURI)
	}

	if err := s.check(productInput{Category: updated.Category, Name: updated.Name, Price: updated.Price, StockQty: updated.StockQty}); err != nil {
		return domain.Product{}, err
	}
	if err := s.Commit(ctx, store.NewUnitOfWork(store.UpdateProduct{Product: updated})); err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

// DeleteProduct refuses to remove a product that recorded sales refer to,
// so sales history stays intact.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	refs, err := s.repo.CountSaleItemsForProduct(ctx, product.ID)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w: %q appears on %d sale line(s); keep it to preserve sales history", store.ErrProductInUse, product.Name, refs)
	}
	return s.Commit(ctx, store.NewUnitOfWork(store.DeleteProduct{ID: product.ID}))
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) AddCategory(ctx context.Context, req domain.CategoryRequest) (domain.Category, error) {
	in := categoryInput{Name: strings.TrimSpace(req.Name)}
	if err := s.check(in); err != nil {
		return domain.Category{}, err
	}
	category := domain.Category{ID: xid.New(""), Name: in.Name, CreatedAt: s.timestamp()}
	if err := s.Commit(ctx, store.NewUnitOfWork(store.InsertCategory{Category: category})); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

func (s *Service) RenameCategory(ctx context.Context, id string, req domain.CategoryRequest) (domain.Category, error) {
	in := categoryInput{Name: strings.TrimSpace(req.Name)}
	if err := s.check(in); err != nil {
		return domain.Category{}, err
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	for _, c := range categories {
		if c.ID == id {
			c.Name = in.Name
			if err := s.Commit(ctx, store.NewUnitOfWork(store.UpdateCategory{Category: c})); err != nil {
				return domain.Category{}, err
			}
			return c, nil
		}
	}
	return domain.Category{}, store.ErrNotFound
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.Commit(ctx, store.NewUnitOfWork(store.DeleteCategory{ID: strings.TrimSpace(id)}))
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
