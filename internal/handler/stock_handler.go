package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"posbackend/internal/model"
	"posbackend/internal/repository"
	"posbackend/internal/service"
	"posbackend/pkg/pagination"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StockHandler struct {
	movementService   service.StockMovementService
	adjustmentService service.AdjustmentService
}

func NewStockHandler(movementService service.StockMovementService, adjustmentService service.AdjustmentService) *StockHandler {
	return &StockHandler{movementService: movementService, adjustmentService: adjustmentService}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stock-movements", h.GetMovements)
	router.GET("/stock-movements/export", h.ExportMovements)
	router.POST("/stock-adjustments", h.ApplyAdjustments)
}

func movementFilter(c *gin.Context) (repository.MovementFilter, bool) {
	productID, ok := queryID(c, "product_id")
	if !ok {
		return repository.MovementFilter{}, false
	}
	referenceID, ok := queryID(c, "reference_id")
	if !ok {
		return repository.MovementFilter{}, false
	}
	return repository.MovementFilter{
		ProductID:     productID,
		Type:          model.MovementType(c.Query("type")),
		ReferenceType: model.ReferenceKind(c.Query("reference_type")),
		ReferenceID:   referenceID,
	}, true
}

// GetMovements lists ledger entries, newest first
// @Summary      List stock movements
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Number of items per page (default 20)"
// @Param        product_id      query     string  false  "Product ID"
// @Param        type            query     string  false  "sale, purchase, adjustment, return or transfer"
// @Param        reference_type  query     string  false  "sale or purchase_order"
// @Param        reference_id    query     string  false  "Sale or purchase order ID"
// @Success      200  {object}  response.Response{data=ListResponse[model.StockMovement]}
// @Failure      400  {object}  response.Response
// @Router       /api/stock-movements [get]
func (h *StockHandler) GetMovements(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	filter, ok := movementFilter(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	movements, total, err := h.movementService.ListMovements(c.Request.Context(), userID, filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, listOf(movements, total, p))
}

// ExportMovements downloads the filtered ledger as an xlsx workbook
// @Summary      Export stock movements
// @Tags         stock
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        product_id      query     string  false  "Product ID"
// @Param        type            query     string  false  "Movement type"
// @Param        reference_type  query     string  false  "sale or purchase_order"
// @Param        reference_id    query     string  false  "Sale or purchase order ID"
// @Success      200  {file}    file
// @Failure      400  {object}  response.Response
// @Router       /api/stock-movements/export [get]
func (h *StockHandler) ExportMovements(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	filter, ok := movementFilter(c)
	if !ok {
		return
	}

	// buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.movementService.ExportMovements(c.Request.Context(), userID, filter, &buf); err != nil {
		fail(c, err)
		return
	}

	filename := fmt.Sprintf("stock-movements-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ApplyAdjustments sets counted quantities for a batch of products in one transaction
// @Summary      Apply stock adjustments
// @Description  Sets each product to the counted quantity. Either every line applies or none does.
// @Tags         stock
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AdjustmentRequest  true  "Adjustment Payload"
// @Success      200      {object}  response.Response{data=[]service.AdjustmentResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/stock-adjustments [post]
func (h *StockHandler) ApplyAdjustments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	results, err := h.adjustmentService.ApplyAdjustments(c.Request.Context(), userID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, results)
}
