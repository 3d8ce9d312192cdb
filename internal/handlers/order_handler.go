package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const idempotencyHeader = "Idempotency-Key"

// IdempotencyStore maps an Idempotency-Key to the order it created.
type IdempotencyStore interface {
	LookupOrder(ctx context.Context, key string) (uint, bool, error)
	RememberOrder(ctx context.Context, key string, orderID uint, ttl time.Duration) error
}

type OrderHandler struct {
	orders  services.OrderService
	queries services.OrderQueryService
	idem    IdempotencyStore
	idemTTL time.Duration
	log     *slog.Logger
}

// NewOrderHandler builds the order routes. idem may be nil, which disables
// Idempotency-Key handling.
func NewOrderHandler(
	orders services.OrderService,
	queries services.OrderQueryService,
	idem IdempotencyStore,
	idemTTL time.Duration,
	log *slog.Logger,
) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		queries: queries,
		idem:    idem,
		idemTTL: idemTTL,
		log:     log,
	}
}

func (h *OrderHandler) RegisterRoutes(api *gin.RouterGroup) {
	orders := api.Group("/orders")
	orders.GET("", h.ListOrders)
	orders.GET("/stats", h.GetStatistics)
	orders.GET("/:id", h.GetOrder)
	orders.POST("", h.CreateOrder)
	orders.PUT("/:id", h.UpdateOrder)
	orders.PATCH("/:id/status", h.UpdateStatus)
	orders.PATCH("/:id/cancel", h.CancelOrder)
	orders.DELETE("/:id", h.SoftDeleteOrder)
	orders.DELETE("/:id/hard", h.HardDeleteOrder)
}

type orderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type createOrderRequest struct {
	CustomerID uint               `json:"customer_id" binding:"required"`
	Items      []orderItemRequest `json:"items" binding:"required,min=1,dive"`
	Notes      *string            `json:"notes"`
	Discount   *decimal.Decimal   `json:"discount"`
	Tax        *decimal.Decimal   `json:"tax"`
}

type updateOrderRequest struct {
	Notes    *string          `json:"notes"`
	Discount *decimal.Decimal `json:"discount"`
	Tax      *decimal.Decimal `json:"tax"`
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
}

type listOrdersQuery struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search     string `form:"search"`
	Status     string `form:"status" binding:"omitempty,oneof=pending processing shipped delivered cancelled"`
	CustomerID uint   `form:"customer_id"`
	DateFrom   string `form:"date_from"`
	DateTo     string `form:"date_to"`
}

type statsQuery struct {
	CustomerID uint `form:"customer_id"`
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	var q listOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}
	from, err := parseDate(q.DateFrom, false)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid date_from")
		return
	}
	to, err := parseDate(q.DateTo, true)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid date_to")
		return
	}

	rows, page, err := h.queries.ListOrders(c.Request.Context(), repository.OrderListFilter{
		Page:       repository.Page{Page: q.Page, Limit: q.Limit},
		Search:     q.Search,
		Status:     models.OrderStatus(q.Status),
		CustomerID: q.CustomerID,
		DateFrom:   from,
		DateTo:     to,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, rows, page)
}

func (h *OrderHandler) GetStatistics(c *gin.Context) {
	var q statsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}
	var customerID *uint
	if q.CustomerID != 0 {
		customerID = &q.CustomerID
	}
	stats, err := h.queries.Statistics(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "order")
	if !ok {
		return
	}
	order, err := h.queries.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if order == nil {
		respondFail(c, http.StatusNotFound, "Order not found")
		return
	}
	respond(c, http.StatusOK, "", order)
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	ctx := c.Request.Context()

	key := c.GetHeader(idempotencyHeader)
	if existing := h.replay(ctx, key); existing != nil {
		respond(c, http.StatusOK, "Order already created", existing)
		return
	}

	in := services.CreateOrderInput{
		CustomerID: req.CustomerID,
		Notes:      req.Notes,
		Discount:   decimal.Zero,
		Tax:        decimal.Zero,
	}
	if req.Discount != nil {
		in.Discount = *req.Discount
	}
	if req.Tax != nil {
		in.Tax = *req.Tax
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, services.OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orders.CreateOrder(ctx, in)
	if err != nil {
		respondError(c, err)
		return
	}
	if key != "" && h.idem != nil {
		if err := h.idem.RememberOrder(ctx, key, order.ID, h.idemTTL); err != nil {
			h.log.Warn("idempotency key not stored", "order_id", order.ID, "error", err)
		}
	}
	respond(c, http.StatusCreated, "Order created successfully", order)
}

// replay returns the order an earlier request with the same key created.
func (h *OrderHandler) replay(ctx context.Context, key string) *services.OrderWithItems {
	if key == "" || h.idem == nil {
		return nil
	}
	id, found, err := h.idem.LookupOrder(ctx, key)
	if err != nil {
		h.log.Warn("idempotency lookup failed", "error", err)
		return nil
	}
	if !found {
		return nil
	}
	order, err := h.queries.GetOrder(ctx, id)
	if err != nil {
		h.log.Warn("idempotent order reload failed", "order_id", id, "error", err)
		return nil
	}
	return order
}

func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := parseID(c, "order")
	if !ok {
		return
	}
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	order, err := h.orders.UpdateOrder(c.Request.Context(), id, services.UpdateOrderInput{
		Notes:    req.Notes,
		Discount: req.Discount,
		Tax:      req.Tax,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order updated successfully", order)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "order")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order status updated successfully", order)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := parseID(c, "order")
	if !ok {
		return
	}
	order, err := h.orders.CancelOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order cancelled and stock restored successfully", order)
}

func (h *OrderHandler) SoftDeleteOrder(c *gin.Context) {
	id, ok := parseID(c, "order")
	if !ok {
		return
	}
	if err := h.orders.SoftDelete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order deleted successfully", nil)
}

func (h *OrderHandler) HardDeleteOrder(c *gin.Context) {
	id, ok := parseID(c, "order")
	if !ok {
		return
	}
	if err := h.orders.HardDelete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order permanently deleted", nil)
}

// parseDate accepts RFC 3339 or a plain date. A plain date used as an upper
// bound covers the whole day.
func parseDate(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
