package services

import (
	"context"
	"errors"

	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/store"

	"github.com/shopspring/decimal"
)

type OrderStatistics struct {
	TotalOrders  int                        `json:"total_orders"`
	TotalRevenue decimal.Decimal            `json:"total_revenue"`
	ByStatus     map[models.OrderStatus]int `json:"by_status"`
}

type OrderQueryService interface {
	// GetOrder returns nil without error when the order does not exist.
	GetOrder(ctx context.Context, id uint) (*OrderWithItems, error)
	ListOrders(ctx context.Context, filter repository.OrderListFilter) ([]OrderWithItems, Pagination, error)
	Statistics(ctx context.Context, customerID *uint) (*OrderStatistics, error)
}

type orderQueryService struct {
	repos Repositories
}

func NewOrderQueryService(repos Repositories) OrderQueryService {
	return &orderQueryService{repos: repos}
}

func (s *orderQueryService) GetOrder(ctx context.Context, id uint) (*OrderWithItems, error) {
	detail, err := loadOrderDetail(ctx, s.repos, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("error fetching order", err)
	}
	return detail, nil
}

func (s *orderQueryService) ListOrders(ctx context.Context, filter repository.OrderListFilter) ([]OrderWithItems, Pagination, error) {
	filter.Page = NormalizePage(filter.Page)
	orders, total, err := s.repos.Orders.List(ctx, filter)
	if err != nil {
		return nil, Pagination{}, storeErr("error fetching orders", err)
	}

	summaries, err := s.customerSummaries(ctx, orders)
	if err != nil {
		return nil, Pagination{}, err
	}
	rows := make([]OrderWithItems, 0, len(orders))
	for _, order := range orders {
		rows = append(rows, OrderWithItems{Order: order, Customer: summaries[order.CustomerID]})
	}
	return rows, newPagination(filter.Page, total), nil
}

func (s *orderQueryService) customerSummaries(ctx context.Context, orders []models.Order) (map[uint]*models.CustomerSummary, error) {
	summaries := make(map[uint]*models.CustomerSummary)
	if len(orders) == 0 {
		return summaries, nil
	}
	var ids []uint
	for _, order := range orders {
		if _, ok := summaries[order.CustomerID]; !ok {
			summaries[order.CustomerID] = nil
			ids = append(ids, order.CustomerID)
		}
	}
	customers, err := s.repos.Customers.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr("error fetching customers", err)
	}
	for i := range customers {
		summaries[customers[i].ID] = customers[i].Summary()
	}
	return summaries, nil
}

// Statistics aggregates non-deleted orders, optionally for a single customer.
func (s *orderQueryService) Statistics(ctx context.Context, customerID *uint) (*OrderStatistics, error) {
	orders, err := s.repos.Orders.ListActive(ctx, customerID)
	if err != nil {
		return nil, storeErr("error fetching order statistics", err)
	}

	stats := &OrderStatistics{
		TotalOrders:  len(orders),
		TotalRevenue: decimal.Zero,
		ByStatus:     make(map[models.OrderStatus]int, len(models.OrderStatuses)),
	}
	for _, status := range models.OrderStatuses {
		stats.ByStatus[status] = 0
	}
	for _, order := range orders {
		stats.TotalRevenue = stats.TotalRevenue.Add(order.Total)
		if _, known := stats.ByStatus[order.Status]; known {
			stats.ByStatus[order.Status]++
		}
	}
	return stats, nil
}

// loadOrderDetail reads an active order with its customer and items. It
// returns store.ErrNotFound when there is no such order.
func loadOrderDetail(ctx context.Context, repos Repositories, id uint) (*OrderWithItems, error) {
	order, err := repos.Orders.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := repos.Items.GetByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.OrderItem{}
	}

	detail := &OrderWithItems{Order: *order, Items: items}
	customers, err := repos.Customers.GetByIDs(ctx, []uint{order.CustomerID})
	if err != nil {
		return nil, err
	}
	if len(customers) > 0 {
		detail.Customer = customers[0].Summary()
	}
	return detail, nil
}
