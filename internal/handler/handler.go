package handler

import (
	"net/http"
	"sync"

	"posbackend/internal/apperr"
	"posbackend/internal/middleware"
	"posbackend/internal/service"
	"posbackend/pkg/pagination"
	"posbackend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validatorOnce sync.Once

// RegisterValidator makes gin's binding validator understand decimal fields and report json names.
func RegisterValidator() {
	validatorOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			service.ConfigureValidator(v)
		}
	})
}

// ListResponse is the paginated envelope returned by list endpoints.
type ListResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func listOf[T any](items []T, total int64, p pagination.Params) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
}

func fail(c *gin.Context, err error) {
	status, resp := response.FromError(err)
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, err error) {
	fail(c, apperr.Wrap(apperr.KindValidation, "Invalid request payload: "+err.Error(), err))
}

// currentUser returns the authenticated user id set by middleware.RequireAuth.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(middleware.UserIDKey))
	if err != nil {
		fail(c, apperr.New(apperr.KindForbidden, "Invalid user identity"))
		return uuid.Nil, false
	}
	return id, true
}

func pathID(c *gin.Context, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.Validation("Invalid "+entity+" ID"))
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional uuid query parameter.
func queryID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		fail(c, apperr.Validation("Invalid "+key))
		return nil, false
	}
	return &id, true
}

// bindOptionalJSON binds the body only when one was sent.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, data))
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, data))
}
