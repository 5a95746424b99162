package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"posbackend/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNextNumber(t *testing.T) {
	day := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	highest := func(_ context.Context, prefix string) (int, error) {
		assert.Equal(t, "PO-20260309-", prefix)
		return 41, nil
	}

	n, err := nextNumber(context.Background(), "PO", day, 0, highest)
	require.NoError(t, err)
	assert.Equal(t, "PO-20260309-0042", n)

	n, err = nextNumber(context.Background(), "PO", day, 2, highest)
	require.NoError(t, err)
	assert.Equal(t, "PO-20260309-0044", n)
}

func TestWithNumberRetry(t *testing.T) {
	duplicate := apperr.FromStore(gorm.ErrDuplicatedKey, "sale")

	t.Run("each retry gets the next attempt", func(t *testing.T) {
		var attempts []int
		err := withNumberRetry(true, func(attempt int) error {
			attempts = append(attempts, attempt)
			if attempt < 2 {
				return duplicate
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, attempts)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		calls := 0
		err := withNumberRetry(true, func(int) error {
			calls++
			return duplicate
		})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
		assert.Equal(t, numberRetries, calls)
	})

	t.Run("supplied numbers are not retried", func(t *testing.T) {
		calls := 0
		err := withNumberRetry(false, func(int) error {
			calls++
			return duplicate
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		err := withNumberRetry(true, func(int) error {
			calls++
			return errors.New("boom")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
