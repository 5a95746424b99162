package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"posbackend/internal/database/databasetest"
	"posbackend/internal/middleware"
	"posbackend/internal/repository"
	"posbackend/internal/service"
	"posbackend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	userID uuid.UUID
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := databasetest.NewSQLite(t)
	log := zap.NewNop()
	products := repository.NewProductRepository(db)
	movements := repository.NewStockMovementRepository(db)
	audits := repository.NewAuditRepository(db)
	sales := repository.NewSaleRepository(db)
	pos := repository.NewPurchaseOrderRepository(db)
	suppliers := repository.NewSupplierRepository(db)
	tx := repository.NewTransactionManager(db)
	engine := service.NewStockEngine(products, movements)

	api := &testAPI{t: t, router: gin.New(), userID: uuid.New()}
	group := api.router.Group("/api", func(c *gin.Context) {
		if user := c.GetHeader("X-Test-User"); user != "" {
			c.Set(middleware.UserIDKey, user)
		}
		c.Next()
	})
	RegisterAPI(group, Services{
		Products:       service.NewProductService(products, audits, tx, engine, nil, log),
		Movements:      service.NewStockMovementService(movements, products, log),
		Adjustments:    service.NewAdjustmentService(audits, tx, engine, nil, log),
		Sales:          service.NewSaleService(sales, audits, tx, engine, nil, log),
		PurchaseOrders: service.NewPurchaseOrderService(pos, suppliers, products, audits, tx, engine, nil, log),
		Suppliers:      service.NewSupplierService(suppliers, audits, tx, log),
		Audit:          service.NewAuditService(audits, log),
	})
	return api
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", a.userID.String())
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// decode unmarshals the response envelope, placing data into out when given.
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) response.Response {
	t.Helper()
	var env struct {
		response.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env.Response
}

type productBody struct {
	ID            uuid.UUID `json:"id"`
	SKU           string    `json:"sku"`
	StockQuantity int       `json:"stock_quantity"`
}

func (a *testAPI) createProduct(sku string, stock int) productBody {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/products", map[string]any{
		"sku":            sku,
		"name":           "Item " + sku,
		"stock_quantity": stock,
		"cost_price":     2,
		"price":          5,
		"reorder_point":  1,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var p productBody
	decode(a.t, w, &p)
	return p
}

func TestProductEndpoints(t *testing.T) {
	api := newTestAPI(t)

	p := api.createProduct("SKU-1", 10)
	assert.Equal(t, 10, p.StockQuantity)

	t.Run("duplicate sku conflicts", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/products", map[string]any{"sku": "SKU-1", "name": "Again", "price": 1})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CONFLICT", decode(t, w, nil).Code)
	})

	t.Run("missing name is a bad request", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/products", map[string]any{"sku": "X"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION", decode(t, w, nil).Code)
	})

	t.Run("list", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/products?search=sku-1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var list ListResponse[productBody]
		decode(t, w, &list)
		assert.EqualValues(t, 1, list.Total)
		assert.Equal(t, 20, list.Limit)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/products/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/products/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decode(t, w, nil).Code)
	})

	t.Run("history holds the initial stock", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/products/"+p.ID.String()+"/movements", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var list ListResponse[map[string]any]
		decode(t, w, &list)
		require.Len(t, list.Items, 1)
		assert.Equal(t, "adjustment", list.Items[0]["type"])
		assert.EqualValues(t, 1, list.Items[0]["sequence"])
	})

	t.Run("ledger balance", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/products/"+p.ID.String()+"/ledger-balance", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var bal map[string]any
		decode(t, w, &bal)
		assert.Equal(t, true, bal["consistent"])
		assert.EqualValues(t, 0, bal["drift"])
	})
}

func TestSaleEndpoints(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct("SKU-1", 3)

	t.Run("insufficient stock is unprocessable", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/sales", map[string]any{
			"payment_method": "cash",
			"items":          []map[string]any{{"product_id": p.ID, "quantity": 5}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decode(t, w, nil)
		assert.Equal(t, "INSUFFICIENT_STOCK", resp.Code)
		assert.Equal(t, "Insufficient stock for Item SKU-1. Available: 3, Requested: 5", resp.Error)
	})

	var sale struct {
		ID            uuid.UUID `json:"id"`
		InvoiceNumber string    `json:"invoice_number"`
		Status        string    `json:"status"`
	}
	w := api.do(http.MethodPost, "/api/sales", map[string]any{
		"payment_method": "cash",
		"items":          []map[string]any{{"product_id": p.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &sale)
	assert.Equal(t, "completed", sale.Status)
	assert.Regexp(t, `^INV-\d{8}-0001$`, sale.InvoiceNumber)

	t.Run("refund with empty body", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/sales/"+sale.ID.String()+"/refund", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = api.do(http.MethodPost, "/api/sales/"+sale.ID.String()+"/refund", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "INVALID_STATE_TRANSITION", decode(t, w, nil).Code)
	})

	t.Run("stock restored", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/products/"+p.ID.String(), nil)
		var got productBody
		decode(t, w, &got)
		assert.Equal(t, 3, got.StockQuantity)
	})
}

func TestStockEndpoints(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct("SKU-1", 4)

	w := api.do(http.MethodPost, "/api/stock-adjustments", map[string]any{
		"items": []map[string]any{{"product_id": p.ID, "new_quantity": 9, "reason": "count"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var results []service.AdjustmentResult
	decode(t, w, &results)
	require.Len(t, results, 1)
	assert.Equal(t, 5, results[0].Delta)

	t.Run("unknown movement type", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/stock-movements?type=teleport", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid product filter", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/stock-movements?product_id=nope", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("export", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/stock-movements/export?product_id="+p.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

		wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		defer wb.Close()
		rows, err := wb.GetRows(wb.GetSheetName(0))
		require.NoError(t, err)
		assert.Len(t, rows, 3) // heading, initial stock, count
	})
}

func TestPurchaseOrderEndpoints(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct("SKU-1", 0)

	w := api.do(http.MethodPost, "/api/suppliers", map[string]any{"name": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var supplier struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, w, &supplier)

	w = api.do(http.MethodPost, "/api/purchase-orders", map[string]any{
		"supplier_id": supplier.ID,
		"items":       []map[string]any{{"product_id": p.ID, "quantity_ordered": 6, "unit_cost": 1.5}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var po struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	decode(t, w, &po)
	assert.Equal(t, "draft", po.Status)

	path := "/api/purchase-orders/" + po.ID.String()
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, path+"/receive", nil).Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, path+"/send", nil).Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, path+"/receive", nil).Code)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, path+"/receive", nil).Code)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodDelete, path, nil).Code)

	var got productBody
	decode(t, api.do(http.MethodGet, "/api/products/"+p.ID.String(), nil), &got)
	assert.Equal(t, 6, got.StockQuantity)

	w = api.do(http.MethodGet, "/api/audit-logs?action=RECEIVE_PURCHASE_ORDER", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs ListResponse[service.AuditLogResponse]
	decode(t, w, &logs)
	assert.EqualValues(t, 1, logs.Total)
}

func TestMissingIdentityIsForbidden(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, w, nil).Code)
}
