package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"cafepos/internal/domain"
	"cafepos/internal/pricing"
	"cafepos/internal/receipt"
	"cafepos/internal/store"
	"cafepos/internal/xid"
)

// halfCent is the tolerance when comparing amounts computed on two sides.
const halfCent = 0.005

const defaultRecentLimit = 10

// ResolveCart loads the products for the requested lines. Lines for the same
// product are merged; quantities must be positive.
func (s *Service) ResolveCart(ctx context.Context, lines []domain.CartLine) ([]domain.CartItem, error) {
	if len(lines) == 0 {
		return nil, invalid("items", "cart is empty")
	}

	items := make([]domain.CartItem, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		id := strings.TrimSpace(line.ProductID)
		if id == "" {
			return nil, invalid("items", "product_id is required")
		}
		if line.Quantity < 1 {
			return nil, invalid("items", fmt.Sprintf("quantity for %s must be at least 1", id))
		}
		if i, ok := index[id]; ok {
			items[i].Quantity += line.Quantity
			continue
		}
		product, err := s.repo.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, invalid("items", fmt.Sprintf("product %s does not exist", id))
			}
			return nil, err
		}
		index[id] = len(items)
		items = append(items, domain.CartItem{Product: *product, Quantity: line.Quantity})
	}
	return items, nil
}

// Quote prices the cart with the current settings.
func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (domain.QuoteResponse, error) {
	items, err := s.ResolveCart(ctx, req.Items)
	if err != nil {
		return domain.QuoteResponse{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.QuoteResponse{}, err
	}
	return domain.QuoteResponse{
		Items:     items,
		Breakdown: pricing.Compute(items, settings, req.DiscountType),
	}, nil
}

// CreateSale persists the sale exactly as priced by the caller: header, one
// line per cart item with name and price snapshots, and the stock
// decrements, all in one unit of work. The breakdown is not recomputed; only
// its gross is checked against the items.
func (s *Service) CreateSale(ctx context.Context, items []domain.CartItem, breakdown domain.Breakdown, discount domain.DiscountType, payment domain.PaymentMethod) (domain.Sale, error) {
	if len(items) == 0 {
		return domain.Sale{}, invalid("items", "cart is empty")
	}
	if !payment.Valid() {
		return domain.Sale{}, invalid("payment_method", "must be cash or gcash")
	}
	if discount != domain.DiscountNone && !discount.Applied() {
		return domain.Sale{}, invalid("discount_type", "must be none, senior or pwd")
	}

	merged := make([]domain.CartItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return domain.Sale{}, invalid("items", fmt.Sprintf("quantity for %s must be at least 1", item.Product.Name))
		}
		if i, ok := index[item.Product.ID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.Product.ID] = len(merged)
		merged = append(merged, item)
	}
	if math.Abs(pricing.Subtotal(merged)-breakdown.SubtotalInclusive) > halfCent {
		return domain.Sale{}, invalid("breakdown", "subtotal does not match the cart")
	}
	if breakdown.FinalAmount < 0 || breakdown.FinalAmount > breakdown.SubtotalInclusive+halfCent {
		return domain.Sale{}, invalid("breakdown", "final amount must be between 0 and the subtotal")
	}
	if breakdown.VatAmount < 0 || breakdown.DiscountAmount < 0 {
		return domain.Sale{}, invalid("breakdown", "vat and discount must not be negative")
	}

	sale := domain.Sale{
		ID:             xid.New(""),
		TotalAmount:    breakdown.SubtotalInclusive,
		VatAmount:      breakdown.VatAmount,
		DiscountAmount: breakdown.DiscountAmount,
		DiscountType:   discount,
		FinalAmount:    breakdown.FinalAmount,
		PaymentMethod:  payment,
		CreatedAt:      s.timestamp(),
		Items:          make([]domain.SaleItem, 0, len(merged)),
	}

	uow := store.NewUnitOfWork(store.InsertSale{Sale: sale})
	for _, item := range merged {
		line := domain.SaleItem{
			ID:          xid.New(""),
			SaleID:      sale.ID,
			ProductID:   item.Product.ID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			Price:       item.Product.Price,
		}
		sale.Items = append(sale.Items, line)
		uow.Add(
			store.InsertSaleItem{Item: line},
			store.AdjustStock{ProductID: item.Product.ID, Delta: -item.Quantity},
		)
	}

	if err := s.Commit(ctx, uow); err != nil {
		return domain.Sale{}, fmt.Errorf("create sale: %w", err)
	}
	s.logger.Info().Str("sale_id", sale.ID).Int("lines", len(sale.Items)).Float64("final_amount", sale.FinalAmount).Msg("sale recorded")
	return sale, nil
}

// VoidSale returns the sale's quantities to stock and removes the sale and
// its lines in one unit of work.
func (s *Service) VoidSale(ctx context.Context, saleID string) error {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return invalid("sale_id", "is required")
	}
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return err
	}

	uow := store.NewUnitOfWork()
	for _, item := range sale.Items {
		uow.Add(store.AdjustStock{ProductID: item.ProductID, Delta: item.Quantity})
	}
	uow.Add(store.DeleteSaleItems{SaleID: sale.ID}, store.DeleteSale{SaleID: sale.ID})

	if err := s.Commit(ctx, uow); err != nil {
		return fmt.Errorf("void sale %s: %w", sale.ID, err)
	}
	s.logger.Info().Str("sale_id", sale.ID).Msg("sale voided")
	return nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// Checkout prices (unless the caller already did), validates the tender,
// records the sale, and prints its receipt. A print failure is reported in
// the result and never undoes the sale.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResult, error) {
	if !req.PaymentMethod.Valid() {
		return domain.CheckoutResult{}, invalid("payment_method", "must be cash or gcash")
	}
	items, err := s.ResolveCart(ctx, req.Items)
	if err != nil {
		return domain.CheckoutResult{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	breakdown := pricing.Compute(items, settings, req.DiscountType)
	if req.Breakdown != nil {
		breakdown = *req.Breakdown
	}

	tendered := req.AmountTendered
	if tendered < 0 {
		return domain.CheckoutResult{}, invalid("amount_tendered", "must not be negative")
	}
	if req.PaymentMethod == domain.PaymentGCash && tendered == 0 {
		tendered = breakdown.FinalAmount
	}
	if tendered+halfCent < breakdown.FinalAmount {
		return domain.CheckoutResult{}, invalid("amount_tendered", "is less than the amount due")
	}
	change := math.Max(0, tendered-breakdown.FinalAmount)

	sale, err := s.CreateSale(ctx, items, breakdown, req.DiscountType, req.PaymentMethod)
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	doc := receipt.Format(receipt.Input{
		Sale:           sale,
		Settings:       settings,
		PaymentMethod:  sale.PaymentMethod,
		AmountTendered: tendered,
		Change:         change,
		Timestamp:      sale.CreatedAt,
		PageWidth:      s.pageWidth,
		Location:       s.loc,
	})
	result := domain.CheckoutResult{
		Sale:           sale,
		AmountTendered: tendered,
		Change:         change,
		Receipt:        doc,
	}
	if err := s.printer.Print(ctx, doc, s.pageWidth); err != nil {
		s.logger.Warn().Err(err).Str("sale_id", sale.ID).Msg("receipt printing failed")
		result.PrintError = err.Error()
	} else {
		result.Printed = true
	}
	return result, nil
}

// Receipt renders a stored sale. With reprint set the document is marked and
// carries no tender details; with print set it is also sent to the printer.
func (s *Service) Receipt(ctx context.Context, saleID string, reprint bool, print bool) (domain.ReceiptResponse, error) {
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(saleID))
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	doc := receipt.Format(receipt.Input{
		Sale:           *sale,
		Settings:       settings,
		PaymentMethod:  sale.PaymentMethod,
		AmountTendered: sale.FinalAmount,
		Timestamp:      s.now(),
		Reprint:        reprint,
		PageWidth:      s.pageWidth,
		Location:       s.loc,
	})
	resp := domain.ReceiptResponse{SaleID: sale.ID, Reprint: reprint, Receipt: doc}
	if !print {
		return resp, nil
	}
	if err := s.printer.Print(ctx, doc, s.pageWidth); err != nil {
		return resp, fmt.Errorf("print receipt: %w", err)
	}
	resp.Printed = true
	return resp, nil
}
