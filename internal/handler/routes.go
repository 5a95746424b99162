package handler

import (
	"posbackend/internal/service"

	"github.com/gin-gonic/gin"
)

// Services bundles what the API handlers depend on.
type Services struct {
	Products       service.ProductService
	Movements      service.StockMovementService
	Adjustments    service.AdjustmentService
	Sales          service.SaleService
	PurchaseOrders service.PurchaseOrderService
	Suppliers      service.SupplierService
	Audit          service.AuditService
}

// RegisterAPI mounts every resource under api. Authentication is the caller's concern.
func RegisterAPI(api *gin.RouterGroup, s Services) {
	RegisterValidator()

	NewProductHandler(s.Products, s.Movements).RegisterRoutes(api)
	NewStockHandler(s.Movements, s.Adjustments).RegisterRoutes(api)
	NewSaleHandler(s.Sales).RegisterRoutes(api)
	NewPurchaseOrderHandler(s.PurchaseOrders).RegisterRoutes(api)
	NewSupplierHandler(s.Suppliers).RegisterRoutes(api)
	NewAuditHandler(s.Audit).RegisterRoutes(api)
}
