package handlers

import (
	"net/http"

	"order_manager/internal/repository"
	"order_manager/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	products services.ProductService
}

func NewProductHandler(products services.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

func (h *ProductHandler) RegisterRoutes(api *gin.RouterGroup) {
	products := api.Group("/products")
	products.GET("", h.ListProducts)
	products.GET("/:id", h.GetProduct)
	products.POST("", h.CreateProduct)
	products.PUT("/:id", h.UpdateProduct)
	products.DELETE("/:id", h.DeleteProduct)
	products.PATCH("/:id/stock", h.AdjustStock)
}

type createProductRequest struct {
	Name  string           `json:"name" binding:"required,min=3,max=100"`
	Price *decimal.Decimal `json:"price" binding:"required"`
	Stock *int             `json:"stock" binding:"required,min=0"`
}

type updateProductRequest struct {
	Name  *string          `json:"name" binding:"omitempty,min=3,max=100"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock" binding:"omitempty,min=0"`
}

type adjustStockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type listProductsQuery struct {
	listQuery
	MinPrice string `form:"minPrice"`
	MaxPrice string `form:"maxPrice"`
	InStock  bool   `form:"inStock"`
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	var q listProductsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}
	filter := repository.ProductListFilter{
		Page:    repository.Page{Page: q.Page, Limit: q.Limit},
		Search:  q.Search,
		InStock: q.InStock,
	}
	var err error
	if filter.MinPrice, err = parseDecimal(q.MinPrice); err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid minPrice")
		return
	}
	if filter.MaxPrice, err = parseDecimal(q.MaxPrice); err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid maxPrice")
		return
	}

	rows, page, err := h.products.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, rows, page)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "product")
	if !ok {
		return
	}
	product, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	product, err := h.products.CreateProduct(c.Request.Context(), services.ProductInput{
		Name:  req.Name,
		Price: *req.Price,
		Stock: *req.Stock,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Product created successfully", product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "product")
	if !ok {
		return
	}
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	product, err := h.products.UpdateProduct(c.Request.Context(), id, services.ProductPatch(req))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product updated successfully", product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "product")
	if !ok {
		return
	}
	if err := h.products.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product deleted successfully", nil)
}

// AdjustStock applies a signed stock delta.
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := parseID(c, "product")
	if !ok {
		return
	}
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	product, err := h.products.AdjustStock(c.Request.Context(), id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Stock updated successfully", product)
}

func parseDecimal(value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
