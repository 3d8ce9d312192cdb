package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/store"

	"github.com/shopspring/decimal"
)

type ProductInput struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

type ProductPatch struct {
	Name  *string
	Price *decimal.Decimal
	Stock *int
}

type ProductService interface {
	ListProducts(ctx context.Context, filter repository.ProductListFilter) ([]models.Product, Pagination, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	// AdjustStock adds delta to the product's stock. A negative delta that
	// would take stock below zero fails with ErrInsufficientStock.
	AdjustStock(ctx context.Context, id uint, delta int) (*models.Product, error)
}

type productService struct {
	products repository.ProductRepository
	ledger   *StockLedger
}

func NewProductService(products repository.ProductRepository, log *slog.Logger) ProductService {
	return &productService{products: products, ledger: NewStockLedger(products, log)}
}

func (s *productService) ListProducts(ctx context.Context, filter repository.ProductListFilter) ([]models.Product, Pagination, error) {
	filter.Page = NormalizePage(filter.Page)
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, Pagination{}, storeErr("error fetching products", err)
	}
	return products, newPagination(filter.Page, total), nil
}

func (s *productService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, storeErr("error fetching product", err)
	}
	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Price.IsNegative() || in.Stock < 0 {
		return nil, ErrNegativeAmount
	}
	if err := s.checkName(ctx, in.Name, 0); err != nil {
		return nil, err
	}
	product := &models.Product{Name: in.Name, Price: in.Price, Stock: in.Stock}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, storeErr("error creating product", err)
	}
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	if (patch.Price != nil && patch.Price.IsNegative()) || (patch.Stock != nil && *patch.Stock < 0) {
		return nil, ErrNegativeAmount
	}

	fields := map[string]interface{}{}
	if patch.Name != nil {
		if err := s.checkName(ctx, *patch.Name, id); err != nil {
			return nil, err
		}
		fields["name"] = *patch.Name
	}
	if patch.Price != nil {
		fields["price"] = *patch.Price
	}
	if patch.Stock != nil {
		fields["stock"] = *patch.Stock
	}

	if len(fields) > 0 {
		if err := s.products.Update(ctx, id, fields); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, storeErr("error updating product", err)
		}
	}
	return s.GetProduct(ctx, id)
}

func (s *productService) DeleteProduct(ctx context.Context, id uint) error {
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		return storeErr("error deleting product", err)
	}
	if !deleted {
		return ErrProductNotFound
	}
	return nil
}

func (s *productService) AdjustStock(ctx context.Context, id uint, delta int) (*models.Product, error) {
	switch {
	case delta < 0:
		if err := s.ledger.Deduct(ctx, id, -delta); err != nil {
			return nil, err
		}
	case delta > 0:
		restored, err := s.ledger.Restore(ctx, id, delta)
		if err != nil {
			return nil, err
		}
		if !restored {
			return nil, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
		}
	}
	return s.GetProduct(ctx, id)
}

func (s *productService) checkName(ctx context.Context, name string, excludeID uint) error {
	_, err := s.products.FindByName(ctx, name, excludeID)
	if err == nil {
		return ErrDuplicateProductName
	}
	if !errors.Is(err, store.ErrNotFound) {
		return storeErr("error checking product name", err)
	}
	return nil
}
