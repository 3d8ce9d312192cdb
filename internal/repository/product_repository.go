package repository

import (
	"context"
	"fmt"

	"order_manager/internal/models"
	"order_manager/internal/store"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductListFilter struct {
	Page
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
}

// ProductRepository is the product lookup and stock primitive set used by
// the order workflow. Stock is only ever changed relative to its current
// value so concurrent writers cannot overwrite each other.
type ProductRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
	FindByName(ctx context.Context, name string, excludeID uint) (*models.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]models.Product, int64, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id uint, patch map[string]interface{}) error
	Delete(ctx context.Context, id uint) (bool, error)
	// DecrementStock subtracts qty only while stock >= qty. It reports false
	// when no row qualified (missing product or not enough stock).
	DecrementStock(ctx context.Context, id uint, qty int) (bool, error)
	// IncrementStock adds qty and reports false when the product is missing.
	IncrementStock(ctx context.Context, id uint, qty int) (bool, error)
}

type productRepository struct {
	store store.Store
}

func NewProductRepository(s store.Store) ProductRepository {
	return &productRepository{store: s}
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.store.FindOne(ctx, &product, store.Eq("id", id)); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	var products []models.Product
	if _, err := r.store.Find(ctx, &products, store.Query{Filters: []store.Filter{store.In("id", ids)}}); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) FindByName(ctx context.Context, name string, excludeID uint) (*models.Product, error) {
	var products []models.Product
	_, err := r.store.Find(ctx, &products, store.Query{
		Filters: []store.Filter{store.Eq("name", name)},
		Limit:   2,
	})
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID != excludeID {
			return &products[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *productRepository) List(ctx context.Context, filter ProductListFilter) ([]models.Product, int64, error) {
	var filters []store.Filter
	if filter.Search != "" {
		filters = append(filters, store.ILike("name", store.Contains(filter.Search)))
	}
	if filter.MinPrice != nil {
		filters = append(filters, store.Gte("price", *filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		filters = append(filters, store.Lte("price", *filter.MaxPrice))
	}
	if filter.InStock {
		filters = append(filters, store.Gt("stock", 0))
	}

	var products []models.Product
	total, err := r.store.Find(ctx, &products, store.Query{
		Filters: filters,
		OrderBy: "id desc",
		Limit:   filter.Limit,
		Offset:  filter.offset(),
		Count:   true,
	})
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return r.store.Insert(ctx, product)
}

func (r *productRepository) Update(ctx context.Context, id uint, patch map[string]interface{}) error {
	n, err := r.store.Update(ctx, &models.Product{}, patch, store.Eq("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) (bool, error) {
	n, err := r.store.Delete(ctx, &models.Product{}, store.Eq("id", id))
	return n > 0, err
}

func (r *productRepository) DecrementStock(ctx context.Context, id uint, qty int) (bool, error) {
	n, err := r.store.Update(ctx, &models.Product{},
		map[string]interface{}{"stock": gorm.Expr("stock - ?", qty)},
		store.Eq("id", id), store.Gte("stock", qty))
	return n > 0, err
}

func (r *productRepository) IncrementStock(ctx context.Context, id uint, qty int) (bool, error) {
	n, err := r.store.Update(ctx, &models.Product{},
		map[string]interface{}{"stock": gorm.Expr("stock + ?", qty)},
		store.Eq("id", id))
	return n > 0, err
}
