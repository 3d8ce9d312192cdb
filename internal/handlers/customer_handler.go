package handlers

import (
	"net/http"

	"order_manager/internal/repository"
	"order_manager/internal/services"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customers services.CustomerService
}

func NewCustomerHandler(customers services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

func (h *CustomerHandler) RegisterRoutes(api *gin.RouterGroup) {
	customers := api.Group("/customers")
	customers.GET("", h.ListCustomers)
	customers.GET("/:id", h.GetCustomer)
	customers.POST("", h.CreateCustomer)
	customers.PUT("/:id", h.UpdateCustomer)
	customers.DELETE("/:id", h.SoftDeleteCustomer)
	customers.DELETE("/:id/hard", h.HardDeleteCustomer)
}

type createCustomerRequest struct {
	FirstName      string  `json:"first_name" binding:"required,max=100"`
	LastName       string  `json:"last_name" binding:"required,max=100"`
	Email          *string `json:"email" binding:"omitempty,email"`
	Phone          *string `json:"phone" binding:"omitempty,max=20"`
	DocumentType   *string `json:"document_type" binding:"omitempty,max=20"`
	DocumentNumber *string `json:"document_number" binding:"omitempty,max=30"`
}

type updateCustomerRequest struct {
	FirstName      *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName       *string `json:"last_name" binding:"omitempty,min=1,max=100"`
	Email          *string `json:"email" binding:"omitempty,email"`
	Phone          *string `json:"phone" binding:"omitempty,max=20"`
	DocumentType   *string `json:"document_type" binding:"omitempty,max=20"`
	DocumentNumber *string `json:"document_number" binding:"omitempty,max=30"`
}

type listQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search string `form:"search"`
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}
	rows, page, err := h.customers.ListCustomers(c.Request.Context(), repository.CustomerListFilter{
		Page:   repository.Page{Page: q.Page, Limit: q.Limit},
		Search: q.Search,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, rows, page)
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := parseID(c, "customer")
	if !ok {
		return
	}
	customer, err := h.customers.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", customer)
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	customer, err := h.customers.CreateCustomer(c.Request.Context(), services.CustomerInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Customer created successfully", customer)
}

func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := parseID(c, "customer")
	if !ok {
		return
	}
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	customer, err := h.customers.UpdateCustomer(c.Request.Context(), id, services.CustomerPatch(req))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Customer updated successfully", customer)
}

func (h *CustomerHandler) SoftDeleteCustomer(c *gin.Context) {
	id, ok := parseID(c, "customer")
	if !ok {
		return
	}
	if err := h.customers.SoftDeleteCustomer(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Customer deleted successfully", nil)
}

func (h *CustomerHandler) HardDeleteCustomer(c *gin.Context) {
	id, ok := parseID(c, "customer")
	if !ok {
		return
	}
	if err := h.customers.HardDeleteCustomer(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Customer permanently deleted", nil)
}
