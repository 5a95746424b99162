package service

import (
	"context"

	"posbackend/internal/apperr"
	"posbackend/internal/logger"

	"go.uber.org/zap"
)

// failure logs internal errors with their cause and returns err unchanged.
// Classified errors are expected outcomes and are only logged at debug level.
func failure(ctx context.Context, base *zap.Logger, op string, err error) error {
	log := logger.FromContext(ctx, base)
	if apperr.KindOf(err) == apperr.KindInternal {
		log.Error("Operation failed", zap.String("op", op), zap.Error(err))
		if !apperr.IsKind(err, apperr.KindInternal) {
			return apperr.Wrap(apperr.KindInternal, "failed to "+op, err)
		}
		return err
	}
	log.Debug("Operation rejected", zap.String("op", op), zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
	return err
}
