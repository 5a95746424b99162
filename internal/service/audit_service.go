package service

import (
	"context"
	"encoding/json"

	"posbackend/internal/apperr"
	"posbackend/internal/model"
	"posbackend/internal/repository"
	"posbackend/pkg/pagination"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type AuditLogResponse struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	EntityID   string         `json:"entity_id"`
	EntityName string         `json:"entity_name"`
	Details    datatypes.JSON `json:"details" swaggertype:"object"`
	CreatedAt  string         `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, userID uuid.UUID, action string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	log       *zap.Logger
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository, log *zap.Logger) AuditService {
	return &auditService{auditRepo: auditRepo, log: log.Named("audit")}
}

// GetAuditLogs returns the caller's audit trail, newest first
func (s *auditService) GetAuditLogs(ctx context.Context, userID uuid.UUID, action string, page, limit int) ([]AuditLogResponse, int64, error) {
	p := pagination.New(page, limit)

	logs, total, err := s.auditRepo.List(ctx, userID, action, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, failure(ctx, s.log, "list audit logs", apperr.FromStore(err, "audit log"))
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     l.UserID.String(),
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// recordAudit writes an audit row in the caller's transaction.
func recordAudit(ctx context.Context, repo repository.AuditRepository, userID uuid.UUID, action, entityID, entityName string, details any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode audit details", err)
	}
	entry := &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    datatypes.JSON(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to write audit log", err)
	}
	return nil
}
