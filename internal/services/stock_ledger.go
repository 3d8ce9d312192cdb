package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"order_manager/internal/repository"
	"order_manager/internal/store"
)

// StockLedger moves product stock. Deductions are conditional on enough stock
// being present at write time, so stock cannot go negative.
type StockLedger struct {
	products repository.ProductRepository
	log      *slog.Logger
}

func NewStockLedger(products repository.ProductRepository, log *slog.Logger) *StockLedger {
	return &StockLedger{products: products, log: log}
}

// Deduct removes qty from the product. A shortfall is a *StockError and a
// missing product is ErrProductNotFound.
func (l *StockLedger) Deduct(ctx context.Context, productID uint, qty int) error {
	ok, err := l.products.DecrementStock(ctx, productID, qty)
	if err != nil {
		return storeErr(fmt.Sprintf("failed to update stock for product %d", productID), err)
	}
	if !ok {
		product, err := l.products.GetByID(ctx, productID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
		}
		if err != nil {
			return storeErr(fmt.Sprintf("failed to read product %d", productID), err)
		}
		return &StockError{ProductID: productID, ProductName: product.Name, Available: product.Stock, Requested: qty}
	}
	l.log.Info("stock deducted", "product_id", productID, "delta", -qty)
	return nil
}

// Restore adds qty back. It reports false when the product no longer exists.
func (l *StockLedger) Restore(ctx context.Context, productID uint, qty int) (bool, error) {
	ok, err := l.products.IncrementStock(ctx, productID, qty)
	if err != nil {
		return false, storeErr(fmt.Sprintf("failed to restore stock for product %d", productID), err)
	}
	if !ok {
		l.log.Warn("product missing; stock restoration skipped", "product_id", productID, "quantity", qty)
		return false, nil
	}
	l.log.Info("stock restored", "product_id", productID, "delta", qty)
	return true, nil
}
