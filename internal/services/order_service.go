package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"order_manager/internal/events"
	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/store"

	"github.com/shopspring/decimal"
)

type OrderItemInput struct {
	ProductID uint
	Quantity  int
}

type CreateOrderInput struct {
	CustomerID uint
	Items      []OrderItemInput
	Notes      *string
	Discount   decimal.Decimal
	Tax        decimal.Decimal
}

// UpdateOrderInput carries the editable non-status fields. Nil means unchanged.
type UpdateOrderInput struct {
	Notes    *string
	Discount *decimal.Decimal
	Tax      *decimal.Decimal
}

type OrderWithItems struct {
	models.Order
	Customer *models.CustomerSummary `json:"customer,omitempty"`
	Items    []models.OrderItem      `json:"items,omitempty"`
}

// Repositories groups the collections the order services read and write.
type Repositories struct {
	Orders    repository.OrderRepository
	Items     repository.OrderItemRepository
	Products  repository.ProductRepository
	Customers repository.CustomerRepository
}

// OrderService is the order workflow. Every operation is a sequence of
// separate store calls; a failure part way through runs the inverse of the
// steps already taken before the error is returned.
type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderWithItems, error)
	CancelOrder(ctx context.Context, id uint) (*OrderWithItems, error)
	UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*OrderWithItems, error)
	UpdateOrder(ctx context.Context, id uint, in UpdateOrderInput) (*OrderWithItems, error)
	SoftDelete(ctx context.Context, id uint) error
	HardDelete(ctx context.Context, id uint) error
}

type orderService struct {
	repos    Repositories
	ledger   *StockLedger
	numbers  OrderNumberGenerator
	events   events.Publisher
	producer string
	log      *slog.Logger
	now      func() time.Time
}

func NewOrderService(repos Repositories, numbers OrderNumberGenerator, publisher events.Publisher, producer string, log *slog.Logger) OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &orderService{
		repos:    repos,
		ledger:   NewStockLedger(repos.Products, log),
		numbers:  numbers,
		events:   publisher,
		producer: producer,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderWithItems, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}
	if in.Discount.IsNegative() || in.Tax.IsNegative() {
		return nil, ErrNegativeAmount
	}

	if _, err := s.repos.Customers.GetActive(ctx, in.CustomerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, storeErr("error fetching customer", err)
	}

	ids := uniqueProductIDs(in.Items)
	products, err := s.repos.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr("error fetching products", err)
	}
	if len(products) != len(ids) {
		return nil, fmt.Errorf("one or more products: %w", ErrProductNotFound)
	}
	byID := make(map[uint]models.Product, len(products))
	remaining := make(map[uint]int, len(products))
	for _, p := range products {
		byID[p.ID] = p
		remaining[p.ID] = p.Stock
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		product := byID[item.ProductID]
		if remaining[product.ID] < item.Quantity {
			return nil, &StockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   remaining[product.ID],
				Requested:   item.Quantity,
			}
		}
		remaining[product.ID] -= item.Quantity

		line := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
			Subtotal:    line,
			ProductName: product.Name,
		})
	}

	total := subtotal.Sub(in.Discount).Add(in.Tax)
	if total.IsNegative() {
		return nil, ErrNegativeAmount
	}

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNumber: number,
		CustomerID:  in.CustomerID,
		Status:      models.OrderPending,
		Subtotal:    subtotal,
		Tax:         in.Tax,
		Discount:    in.Discount,
		Total:       total,
		Notes:       in.Notes,
	}
	if err := s.repos.Orders.Create(ctx, order); err != nil {
		return nil, storeErr("error creating order", err)
	}

	saga := newSaga("create_order "+number, s.log)
	saga.Push("delete order", func(ctx context.Context) error {
		_, err := s.repos.Orders.Delete(ctx, order.ID)
		return err
	})

	for i := range items {
		items[i].OrderID = order.ID
	}
	if err := s.repos.Items.CreateBatch(ctx, items); err != nil {
		return nil, s.abort(ctx, saga, storeErr("error creating order items", err))
	}
	saga.Push("delete order items", func(ctx context.Context) error {
		return s.repos.Items.DeleteByOrderID(ctx, order.ID)
	})

	for _, item := range items {
		if err := s.ledger.Deduct(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, s.abort(ctx, saga, err)
		}
		saga.Push(fmt.Sprintf("restore stock of product %d", item.ProductID), func(ctx context.Context) error {
			_, err := s.ledger.Restore(ctx, item.ProductID, item.Quantity)
			return err
		})
	}

	s.log.Info("order created", "order_id", order.ID, "order_number", number, "items", len(items), "total", total.String())
	s.emit(ctx, events.OrderCreated, orderPayload(order, items, ""))
	return &OrderWithItems{Order: *order, Items: items}, nil
}

func (s *orderService) CancelOrder(ctx context.Context, id uint) (*OrderWithItems, error) {
	order, err := s.activeOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case models.OrderCancelled:
		return nil, ErrAlreadyCancelled
	case models.OrderDelivered:
		return nil, ErrCannotCancelDelivered
	}

	items, err := s.repos.Items.GetByOrderID(ctx, id)
	if err != nil {
		return nil, storeErr("error fetching order items", err)
	}

	saga := newSaga("cancel_order "+order.OrderNumber, s.log)
	for _, item := range items {
		restored, err := s.ledger.Restore(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, s.abort(ctx, saga, err)
		}
		if !restored {
			continue
		}
		saga.Push(fmt.Sprintf("re-deduct stock of product %d", item.ProductID), func(ctx context.Context) error {
			return s.ledger.Deduct(ctx, item.ProductID, item.Quantity)
		})
	}

	if err := s.setStatus(ctx, id, models.OrderCancelled); err != nil {
		return nil, s.abort(ctx, saga, err)
	}

	previous := order.Status
	order.Status = models.OrderCancelled
	s.log.Info("order cancelled", "order_id", id, "order_number", order.OrderNumber, "previous_status", previous)
	s.emit(ctx, events.OrderCancelled, orderPayload(order, items, previous))
	return s.reload(ctx, id)
}

func (s *orderService) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*OrderWithItems, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	order, err := s.activeOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	var items []models.OrderItem
	switch {
	case previous == models.OrderCancelled && status != models.OrderCancelled:
		if items, err = s.reactivate(ctx, order, status); err != nil {
			return nil, err
		}
	case status == models.OrderCancelled && previous != models.OrderCancelled:
		return s.CancelOrder(ctx, id)
	default:
		if err := s.setStatus(ctx, id, status); err != nil {
			return nil, err
		}
	}

	order.Status = status
	s.log.Info("order status changed", "order_id", id, "from", previous, "to", status)
	s.emit(ctx, events.OrderStatusChanged, orderPayload(order, items, previous))
	return s.reload(ctx, id)
}

// reactivate takes a cancelled order's stock again and then moves it to
// status. Every product is checked before any stock is taken.
func (s *orderService) reactivate(ctx context.Context, order *models.Order, status models.OrderStatus) ([]models.OrderItem, error) {
	items, err := s.repos.Items.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, storeErr("error fetching order items", err)
	}

	available := make(map[uint]int)
	for _, item := range items {
		left, seen := available[item.ProductID]
		name := item.ProductName
		if !seen {
			product, err := s.repos.Products.GetByID(ctx, item.ProductID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				left = 0
			case err != nil:
				return nil, storeErr(fmt.Sprintf("error fetching product %d", item.ProductID), err)
			default:
				left, name = product.Stock, product.Name
			}
		}
		if left < item.Quantity {
			return nil, &StockError{ProductID: item.ProductID, ProductName: name, Available: left, Requested: item.Quantity}
		}
		available[item.ProductID] = left - item.Quantity
	}

	saga := newSaga("reactivate_order "+order.OrderNumber, s.log)
	for _, item := range items {
		if err := s.ledger.Deduct(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, s.abort(ctx, saga, err)
		}
		saga.Push(fmt.Sprintf("restore stock of product %d", item.ProductID), func(ctx context.Context) error {
			_, err := s.ledger.Restore(ctx, item.ProductID, item.Quantity)
			return err
		})
	}

	if err := s.setStatus(ctx, order.ID, status); err != nil {
		return nil, s.abort(ctx, saga, err)
	}
	return items, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, id uint, in UpdateOrderInput) (*OrderWithItems, error) {
	if (in.Discount != nil && in.Discount.IsNegative()) || (in.Tax != nil && in.Tax.IsNegative()) {
		return nil, ErrNegativeAmount
	}
	order, err := s.activeOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := map[string]interface{}{"updated_at": s.now()}
	if in.Notes != nil {
		patch["notes"] = *in.Notes
	}
	if in.Discount != nil || in.Tax != nil {
		discount, tax := order.Discount, order.Tax
		if in.Discount != nil {
			discount = *in.Discount
		}
		if in.Tax != nil {
			tax = *in.Tax
		}
		total := order.Subtotal.Sub(discount).Add(tax)
		if total.IsNegative() {
			return nil, ErrNegativeAmount
		}
		patch["discount"] = discount
		patch["tax"] = tax
		patch["total"] = total
	}

	if err := s.repos.Orders.Update(ctx, id, patch); err != nil {
		return nil, s.mapOrderErr("error updating order", err)
	}
	return s.reload(ctx, id)
}

func (s *orderService) SoftDelete(ctx context.Context, id uint) error {
	order, err := s.activeOrder(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.repos.Orders.SoftDelete(ctx, id)
	if err != nil {
		return storeErr("error soft deleting order", err)
	}
	if !deleted {
		return ErrOrderNotFound
	}
	s.emit(ctx, events.OrderDeleted, orderPayload(order, nil, ""))
	return nil
}

// HardDelete removes the order and its items, soft-deleted or not. Stock is
// left as it is.
func (s *orderService) HardDelete(ctx context.Context, id uint) error {
	order, err := s.repos.Orders.Get(ctx, id)
	if err != nil {
		return s.mapOrderErr("error fetching order", err)
	}
	if err := s.repos.Items.DeleteByOrderID(ctx, id); err != nil {
		return storeErr("error deleting order items", err)
	}
	deleted, err := s.repos.Orders.Delete(ctx, id)
	if err != nil {
		return storeErr("error hard deleting order", err)
	}
	if !deleted {
		return ErrOrderNotFound
	}

	payload := orderPayload(order, nil, "")
	payload.HardDeleted = true
	s.emit(ctx, events.OrderDeleted, payload)
	return nil
}

func (s *orderService) activeOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.repos.Orders.GetActive(ctx, id)
	if err != nil {
		return nil, s.mapOrderErr("error fetching order", err)
	}
	return order, nil
}

func (s *orderService) setStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	err := s.repos.Orders.Update(ctx, id, map[string]interface{}{
		"status":     status,
		"updated_at": s.now(),
	})
	if err != nil {
		return s.mapOrderErr("error updating order status", err)
	}
	return nil
}

func (s *orderService) reload(ctx context.Context, id uint) (*OrderWithItems, error) {
	detail, err := loadOrderDetail(ctx, s.repos, id)
	if err != nil {
		return nil, s.mapOrderErr("error fetching order", err)
	}
	return detail, nil
}

func (s *orderService) mapOrderErr(msg string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrOrderNotFound
	}
	return storeErr(msg, err)
}

// abort unwinds saga and returns cause. A failed compensation is logged and
// attached to the returned error.
func (s *orderService) abort(ctx context.Context, saga *Saga, cause error) error {
	if saga.Len() == 0 {
		return cause
	}
	if err := saga.Compensate(ctx); err != nil {
		return fmt.Errorf("%w (rollback incomplete: %v)", cause, err)
	}
	return cause
}

func (s *orderService) emit(ctx context.Context, eventType string, payload events.OrderPayload) {
	env, err := events.NewEnvelope(eventType, s.producer, payload.OrderNumber, payload)
	if err == nil {
		err = s.events.Publish(ctx, env)
	}
	if err != nil {
		s.log.Warn("order event not published", "event_type", eventType, "order_id", payload.OrderID, "error", err)
	}
}

func orderPayload(order *models.Order, items []models.OrderItem, previous models.OrderStatus) events.OrderPayload {
	payload := events.OrderPayload{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CustomerID:     order.CustomerID,
		Status:         string(order.Status),
		PreviousStatus: string(previous),
		Total:          order.Total.String(),
	}
	for _, item := range items {
		payload.Items = append(payload.Items, events.ItemQty{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return payload
}

func uniqueProductIDs(items []OrderItemInput) []uint {
	seen := make(map[uint]bool, len(items))
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}
