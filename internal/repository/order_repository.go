package repository

import (
	"context"
	"fmt"
	"time"

	"order_manager/internal/models"
	"order_manager/internal/store"
)

type OrderListFilter struct {
	Page
	Search     string
	Status     models.OrderStatus
	CustomerID uint
	DateFrom   *time.Time
	DateTo     *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetActive(ctx context.Context, id uint) (*models.Order, error)
	// Get returns the order even when it has been soft-deleted.
	Get(ctx context.Context, id uint) (*models.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]models.Order, int64, error)
	ListActive(ctx context.Context, customerID *uint) ([]models.Order, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	// Update patches an active order; it returns store.ErrNotFound if none matched.
	Update(ctx context.Context, id uint, patch map[string]interface{}) error
	SoftDelete(ctx context.Context, id uint) (bool, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

type orderRepository struct {
	store store.Store
}

func NewOrderRepository(s store.Store) OrderRepository {
	return &orderRepository{store: s}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.store.Insert(ctx, order)
}

func (r *orderRepository) GetActive(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.store.FindOne(ctx, &order, store.Eq("id", id), store.IsNull("deleted_at")); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.store.FindOne(ctx, &order, store.Eq("id", id)); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderListFilter) ([]models.Order, int64, error) {
	filters := []store.Filter{store.IsNull("deleted_at")}
	if filter.Search != "" {
		pattern := store.Contains(filter.Search)
		filters = append(filters, store.AnyOf(
			store.ILike("order_number", pattern),
			store.ILike("notes", pattern),
		))
	}
	if filter.Status != "" {
		filters = append(filters, store.Eq("status", filter.Status))
	}
	if filter.CustomerID != 0 {
		filters = append(filters, store.Eq("customer_id", filter.CustomerID))
	}
	if filter.DateFrom != nil {
		filters = append(filters, store.Gte("created_at", *filter.DateFrom))
	}
	if filter.DateTo != nil {
		filters = append(filters, store.Lte("created_at", *filter.DateTo))
	}

	var orders []models.Order
	total, err := r.store.Find(ctx, &orders, store.Query{
		Filters: filters,
		OrderBy: "id desc",
		Limit:   filter.Limit,
		Offset:  filter.offset(),
		Count:   true,
	})
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) ListActive(ctx context.Context, customerID *uint) ([]models.Order, error) {
	filters := []store.Filter{store.IsNull("deleted_at")}
	if customerID != nil {
		filters = append(filters, store.Eq("customer_id", *customerID))
	}
	var orders []models.Order
	if _, err := r.store.Find(ctx, &orders, store.Query{Filters: filters}); err != nil {
		return nil, err
	}
	return orders, nil
}

// CountCreatedSince counts every order row, soft-deleted ones included.
func (r *orderRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	return r.store.Count(ctx, &models.Order{}, store.Gte("created_at", since))
}

func (r *orderRepository) Update(ctx context.Context, id uint, patch map[string]interface{}) error {
	n, err := r.store.Update(ctx, &models.Order{}, patch, store.Eq("id", id), store.IsNull("deleted_at"))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *orderRepository) SoftDelete(ctx context.Context, id uint) (bool, error) {
	n, err := r.store.Update(ctx, &models.Order{},
		map[string]interface{}{"deleted_at": now()},
		store.Eq("id", id), store.IsNull("deleted_at"))
	return n > 0, err
}

func (r *orderRepository) Delete(ctx context.Context, id uint) (bool, error) {
	n, err := r.store.Delete(ctx, &models.Order{}, store.Eq("id", id))
	return n > 0, err
}
