package handler

import (
	"posbackend/internal/model"
	"posbackend/internal/repository"
	"posbackend/internal/service"
	"posbackend/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	productService  service.ProductService
	movementService service.StockMovementService
}

func NewProductHandler(productService service.ProductService, movementService service.StockMovementService) *ProductHandler {
	return &ProductHandler{productService: productService, movementService: movementService}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	{
		products.GET("", h.GetProducts)
		products.GET("/low-stock", h.GetLowStock)
		products.GET("/:id", h.GetProduct)
		products.GET("/:id/movements", h.GetProductMovements)
		products.GET("/:id/ledger-balance", h.GetLedgerBalance)
		products.POST("", h.CreateProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
	}
}

// GetProducts handles retrieving the paginated catalogue
// @Summary      List products
// @Description  Retrieves a paginated list of products with current stock
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        search       query     string  false  "Search by name or SKU"
// @Param        active_only  query     bool    false  "Only active products"
// @Success      200  {object}  response.Response{data=ListResponse[model.Product]}
// @Failure      500  {object}  response.Response
// @Router       /api/products [get]
func (h *ProductHandler) GetProducts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	filter := repository.ProductFilter{
		Search:     c.Query("search"),
		ActiveOnly: c.Query("active_only") == "true",
	}

	products, total, err := h.productService.ListProducts(c.Request.Context(), userID, filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, listOf(products, total, p))
}

// GetLowStock lists tracked products at or below their reorder point
// @Summary      Low stock products
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Product}
// @Router       /api/products/low-stock [get]
func (h *ProductHandler) GetLowStock(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	products, err := h.productService.LowStock(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	respondOK(c, products)
}

// GetProduct returns one product
// @Summary      Get product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=model.Product}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "product")
	if !ok {
		return
	}
	product, err := h.productService.GetProduct(c.Request.Context(), userID, id)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, product)
}

// GetProductMovements returns the movement history of a product, newest first
// @Summary      Product stock history
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Product ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=ListResponse[model.StockMovement]}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/movements [get]
func (h *ProductHandler) GetProductMovements(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "product")
	if !ok {
		return
	}
	p := pagination.Parse(c)
	movements, total, err := h.movementService.ProductHistory(c.Request.Context(), userID, id, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, listOf(movements, total, p))
}

// GetLedgerBalance compares the stored stock with the product's movement total
// @Summary      Product ledger balance
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.LedgerBalance}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/ledger-balance [get]
func (h *ProductHandler) GetLedgerBalance(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "product")
	if !ok {
		return
	}
	balance, err := h.movementService.LedgerBalance(c.Request.Context(), userID, id)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, balance)
}

// CreateProduct creates a product, booking any initial stock as an adjustment
// @Summary      Create product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), userID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, product)
}

// UpdateProduct updates product details. A changed stock_quantity is booked as an adjustment.
// @Summary      Update product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Update Product Payload"
// @Success      200      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "product")
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), userID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, product)
}

// DeleteProduct soft deletes a product
// @Summary      Delete product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "product")
	if !ok {
		return
	}
	if err := h.productService.DeleteProduct(c.Request.Context(), userID, id); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, "Product deleted successfully")
}
