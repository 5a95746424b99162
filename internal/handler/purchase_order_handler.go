package handler

import (
	"context"

	"posbackend/internal/model"
	"posbackend/internal/repository"
	"posbackend/internal/service"
	"posbackend/pkg/pagination"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PurchaseOrderHandler struct {
	poService service.PurchaseOrderService
}

func NewPurchaseOrderHandler(poService service.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{poService: poService}
}

func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/purchase-orders")
	{
		orders.GET("", h.GetPurchaseOrders)
		orders.GET("/:id", h.GetPurchaseOrder)
		orders.POST("", h.CreatePurchaseOrder)
		orders.PUT("/:id", h.UpdatePurchaseOrder)
		orders.DELETE("/:id", h.DeletePurchaseOrder)
		orders.POST("/:id/send", h.SendPurchaseOrder)
		orders.POST("/:id/receive", h.ReceivePurchaseOrder)
		orders.POST("/:id/cancel", h.CancelPurchaseOrder)
	}
}

// GetPurchaseOrders lists purchase orders, newest first
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        status       query     string  false  "draft, sent, received or cancelled"
// @Param        supplier_id  query     string  false  "Supplier ID"
// @Success      200  {object}  response.Response{data=ListResponse[model.PurchaseOrder]}
// @Router       /api/purchase-orders [get]
func (h *PurchaseOrderHandler) GetPurchaseOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	supplierID, ok := queryID(c, "supplier_id")
	if !ok {
		return
	}
	p := pagination.Parse(c)
	filter := repository.PurchaseOrderFilter{Status: c.Query("status"), SupplierID: supplierID}

	orders, total, err := h.poService.ListPurchaseOrders(c.Request.Context(), userID, filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, listOf(orders, total, p))
}

// GetPurchaseOrder returns a purchase order with items and supplier
// @Summary      Get purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetPurchaseOrder(c *gin.Context) {
	h.byID(c, respondOK, h.poService.GetPurchaseOrder)
}

// CreatePurchaseOrder creates a draft purchase order
// @Summary      Create purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PurchaseOrderRequest  true  "Purchase Order Payload"
// @Success      201      {object}  response.Response{data=model.PurchaseOrder}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/purchase-orders [post]
func (h *PurchaseOrderHandler) CreatePurchaseOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.PurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	po, err := h.poService.CreatePurchaseOrder(c.Request.Context(), userID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, po)
}

// UpdatePurchaseOrder replaces the header and items of a draft
// @Summary      Update purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Purchase order ID"
// @Param        payload  body      service.PurchaseOrderRequest  true  "Purchase Order Payload"
// @Success      200      {object}  response.Response{data=model.PurchaseOrder}
// @Failure      409      {object}  response.Response
// @Router       /api/purchase-orders/{id} [put]
func (h *PurchaseOrderHandler) UpdatePurchaseOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "purchase order")
	if !ok {
		return
	}
	var req service.PurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	po, err := h.poService.UpdatePurchaseOrder(c.Request.Context(), userID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, po)
}

// DeletePurchaseOrder removes a draft
// @Summary      Delete purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id} [delete]
func (h *PurchaseOrderHandler) DeletePurchaseOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "purchase order")
	if !ok {
		return
	}
	if err := h.poService.DeletePurchaseOrder(c.Request.Context(), userID, id); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, "Purchase order deleted successfully")
}

// SendPurchaseOrder marks a draft as sent to the supplier
// @Summary      Send purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/send [post]
func (h *PurchaseOrderHandler) SendPurchaseOrder(c *gin.Context) {
	h.byID(c, respondOK, h.poService.SendPurchaseOrder)
}

// ReceivePurchaseOrder books the outstanding quantities into stock
// @Summary      Receive purchase order
// @Description  Applies one purchase movement per outstanding item. Receiving twice fails with INVALID_STATE_TRANSITION.
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/receive [post]
func (h *PurchaseOrderHandler) ReceivePurchaseOrder(c *gin.Context) {
	h.byID(c, respondOK, h.poService.ReceivePurchaseOrder)
}

// CancelPurchaseOrder cancels a draft or sent order
// @Summary      Cancel purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/cancel [post]
func (h *PurchaseOrderHandler) CancelPurchaseOrder(c *gin.Context) {
	h.byID(c, respondOK, h.poService.CancelPurchaseOrder)
}

func (h *PurchaseOrderHandler) byID(
	c *gin.Context,
	respond func(*gin.Context, any),
	call func(ctx context.Context, userID, poID uuid.UUID) (*model.PurchaseOrder, error),
) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "purchase order")
	if !ok {
		return
	}
	po, err := call(c.Request.Context(), userID, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, po)
}
