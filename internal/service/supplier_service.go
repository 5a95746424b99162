package service

import (
	"context"

	"posbackend/internal/apperr"
	"posbackend/internal/model"
	"posbackend/internal/repository"
	"posbackend/pkg/pagination"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DTOs
type SupplierRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	ContactName string `json:"contact_name" binding:"max=255"`
	Email       string `json:"email" binding:"omitempty,email,max=255"`
	Phone       string `json:"phone" binding:"max=50"`
	Address     string `json:"address"`
	IsActive    *bool  `json:"is_active"`
}

type SupplierService interface {
	ListSuppliers(ctx context.Context, userID uuid.UUID, search string, page, limit int) ([]model.Supplier, int64, error)
	GetSupplier(ctx context.Context, userID, id uuid.UUID) (*model.Supplier, error)
	CreateSupplier(ctx context.Context, userID uuid.UUID, req SupplierRequest) (*model.Supplier, error)
	UpdateSupplier(ctx context.Context, userID, id uuid.UUID, req SupplierRequest) (*model.Supplier, error)
	DeleteSupplier(ctx context.Context, userID, id uuid.UUID) error
}

type supplierService struct {
	supplierRepo repository.SupplierRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	log          *zap.Logger
}

func NewSupplierService(supplierRepo repository.SupplierRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, log *zap.Logger) SupplierService {
	return &supplierService{
		supplierRepo: supplierRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		log:          log.Named("supplier"),
	}
}

func (s *supplierService) ListSuppliers(ctx context.Context, userID uuid.UUID, search string, page, limit int) ([]model.Supplier, int64, error) {
	p := pagination.New(page, limit)
	suppliers, total, err := s.supplierRepo.List(ctx, userID, search, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, failure(ctx, s.log, "list suppliers", apperr.FromStore(err, "supplier"))
	}
	return suppliers, total, nil
}

func (s *supplierService) GetSupplier(ctx context.Context, userID, id uuid.UUID) (*model.Supplier, error) {
	supplier, err := s.supplierRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, failure(ctx, s.log, "get supplier", apperr.FromStore(err, "supplier"))
	}
	return supplier, nil
}

func (s *supplierService) CreateSupplier(ctx context.Context, userID uuid.UUID, req SupplierRequest) (*model.Supplier, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	supplier := &model.Supplier{
		UserID:      userID,
		Name:        req.Name,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		IsActive:    boolOr(req.IsActive, true),
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.supplierRepo.Create(txCtx, supplier); err != nil {
			return apperr.FromStore(err, "supplier")
		}
		return recordAudit(txCtx, s.auditRepo, userID, model.ActionCreateSupplier, supplier.ID.String(), supplier.Name, req)
	})
	if err != nil {
		return nil, failure(ctx, s.log, "create supplier", err)
	}
	return supplier, nil
}

func (s *supplierService) UpdateSupplier(ctx context.Context, userID, id uuid.UUID, req SupplierRequest) (*model.Supplier, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	supplier, err := s.supplierRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, failure(ctx, s.log, "update supplier", apperr.FromStore(err, "supplier"))
	}

	supplier.Name = req.Name
	supplier.ContactName = req.ContactName
	supplier.Email = req.Email
	supplier.Phone = req.Phone
	supplier.Address = req.Address
	supplier.IsActive = boolOr(req.IsActive, supplier.IsActive)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.supplierRepo.Update(txCtx, supplier); err != nil {
			return apperr.FromStore(err, "supplier")
		}
		return recordAudit(txCtx, s.auditRepo, userID, model.ActionUpdateSupplier, supplier.ID.String(), supplier.Name, req)
	})
	if err != nil {
		return nil, failure(ctx, s.log, "update supplier", err)
	}
	return supplier, nil
}

func (s *supplierService) DeleteSupplier(ctx context.Context, userID, id uuid.UUID) error {
	supplier, err := s.supplierRepo.FindByID(ctx, userID, id)
	if err != nil {
		return failure(ctx, s.log, "delete supplier", apperr.FromStore(err, "supplier"))
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.supplierRepo.Delete(txCtx, userID, id); err != nil {
			return apperr.FromStore(err, "supplier")
		}
		return recordAudit(txCtx, s.auditRepo, userID, model.ActionDeleteSupplier, supplier.ID.String(), supplier.Name, map[string]any{
			"deleted": true,
		})
	})
	if err != nil {
		return failure(ctx, s.log, "delete supplier", err)
	}
	return nil
}
