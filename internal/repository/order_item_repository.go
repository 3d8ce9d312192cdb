package repository

import (
	"context"

	"order_manager/internal/models"
	"order_manager/internal/store"
)

type OrderItemRepository interface {
	CreateBatch(ctx context.Context, items []models.OrderItem) error
	GetByOrderID(ctx context.Context, orderID uint) ([]models.OrderItem, error)
	DeleteByOrderID(ctx context.Context, orderID uint) error
}

type orderItemRepository struct {
	store store.Store
}

func NewOrderItemRepository(s store.Store) OrderItemRepository {
	return &orderItemRepository{store: s}
}

func (r *orderItemRepository) CreateBatch(ctx context.Context, items []models.OrderItem) error {
	return r.store.Insert(ctx, &items)
}

func (r *orderItemRepository) GetByOrderID(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	_, err := r.store.Find(ctx, &items, store.Query{
		Filters: []store.Filter{store.Eq("order_id", orderID)},
		OrderBy: "id asc",
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderItemRepository) DeleteByOrderID(ctx context.Context, orderID uint) error {
	_, err := r.store.Delete(ctx, &models.OrderItem{}, store.Eq("order_id", orderID))
	return err
}
