package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const numberRetries = 5

// nextNumber builds PREFIX-YYYYMMDD-NNNN one past the highest sequence issued today.
// attempt moves the candidate further on after a collision with a concurrent insert.
func nextNumber(ctx context.Context, prefix string, now time.Time, attempt int, maxSeq func(ctx context.Context, prefix string) (int, error)) (string, error) {
	dayPrefix := fmt.Sprintf("%s-%s-", prefix, now.Format("20060102"))
	n, err := maxSeq(ctx, dayPrefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", dayPrefix, n+1+attempt), nil
}

// withNumberRetry reruns fn when a generated document number collided with another insert.
// Caller supplied numbers are never retried.
func withNumberRetry(generated bool, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt < numberRetries; attempt++ {
		err = fn(attempt)
		if err == nil || !generated || !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return err
}
