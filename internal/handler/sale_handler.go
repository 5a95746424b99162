package handler

import (
	"posbackend/internal/repository"
	"posbackend/internal/service"
	"posbackend/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService service.SaleService
}

func NewSaleHandler(saleService service.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup) {
	sales := router.Group("/sales")
	{
		sales.GET("", h.GetSales)
		sales.GET("/:id", h.GetSale)
		sales.POST("", h.CreateSale)
		sales.POST("/:id/complete", h.CompleteSale)
		sales.POST("/:id/refund", h.RefundSale)
		sales.DELETE("/:id", h.VoidSale)
	}
}

// GetSales lists sales, newest first
// @Summary      List sales
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        status  query     string  false  "pending, completed or refunded"
// @Param        search  query     string  false  "Invoice number or customer name"
// @Success      200  {object}  response.Response{data=ListResponse[model.Sale]}
// @Router       /api/sales [get]
func (h *SaleHandler) GetSales(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	filter := repository.SaleFilter{Status: c.Query("status"), Search: c.Query("search")}

	sales, total, err := h.saleService.ListSales(c.Request.Context(), userID, filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, listOf(sales, total, p))
}

// GetSale returns a sale with its items
// @Summary      Get sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response{data=model.Sale}
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}
	sale, err := h.saleService.GetSale(c.Request.Context(), userID, id)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, sale)
}

// CreateSale records a sale and decrements stock for every tracked item atomically
// @Summary      Create sale
// @Description  Fails with INSUFFICIENT_STOCK without side effects if any tracked item would go negative
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSaleRequest  true  "Create Sale Payload"
// @Success      201      {object}  response.Response{data=model.Sale}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sale, err := h.saleService.CreateSale(c.Request.Context(), userID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, sale)
}

// CompleteSale settles a pending sale
// @Summary      Complete sale
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true   "Sale ID"
// @Param        payload  body      service.CompleteSaleRequest  false  "Payment"
// @Success      200      {object}  response.Response{data=model.Sale}
// @Failure      409      {object}  response.Response
// @Router       /api/sales/{id}/complete [post]
func (h *SaleHandler) CompleteSale(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}
	var req service.CompleteSaleRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	sale, err := h.saleService.CompleteSale(c.Request.Context(), userID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, sale)
}

// RefundSale returns the goods of a completed sale to stock
// @Summary      Refund sale
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true   "Sale ID"
// @Param        payload  body      service.RefundSaleRequest  false  "Refund reason"
// @Success      200      {object}  response.Response{data=model.Sale}
// @Failure      409      {object}  response.Response
// @Router       /api/sales/{id}/refund [post]
func (h *SaleHandler) RefundSale(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}
	var req service.RefundSaleRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	sale, err := h.saleService.RefundSale(c.Request.Context(), userID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, sale)
}

// VoidSale restores stock and removes the sale
// @Summary      Void sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/sales/{id} [delete]
func (h *SaleHandler) VoidSale(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}
	if err := h.saleService.VoidSale(c.Request.Context(), userID, id); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, "Sale voided successfully")
}
