package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestInsufficientStock_Message(t *testing.T) {
	err := InsufficientStock("Widget", 5, 10)

	assert.Equal(t, KindInsufficientStock, err.Kind)
	assert.Equal(t, "Insufficient stock for Widget. Available: 5, Requested: 10", err.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"classified", NotFound("product"), KindNotFound},
		{"wrapped classified", fmt.Errorf("outer: %w", Validation("bad")), KindValidation},
		{"plain error", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestFromStore(t *testing.T) {
	t.Run("record not found becomes NOT_FOUND", func(t *testing.T) {
		err := FromStore(gorm.ErrRecordNotFound, "sale")
		assert.True(t, IsKind(err, KindNotFound))
		assert.Equal(t, "sale not found", Message(err))
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("duplicate key becomes CONFLICT", func(t *testing.T) {
		err := FromStore(gorm.ErrDuplicatedKey, "product")
		assert.True(t, IsKind(err, KindConflict))
	})

	t.Run("unknown error hides the cause from the message", func(t *testing.T) {
		err := FromStore(errors.New("pq: connection refused"), "product")
		assert.True(t, IsKind(err, KindInternal))
		assert.Equal(t, "failed to access product", Message(err))
	})

	t.Run("classified error passes through", func(t *testing.T) {
		orig := InsufficientStock("A", 1, 2)
		assert.Same(t, orig, FromStore(orig, "product"))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, FromStore(nil, "product"))
	})
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("ctx: %w", InvalidTransition("purchase order", "received", "receive"))

	assert.ErrorIs(t, err, &Error{Kind: KindInvalidStateTransition})
	assert.NotErrorIs(t, err, &Error{Kind: KindNotFound})
	assert.Equal(t, "cannot receive purchase order with status received", Message(err))
}

func TestMessage_Unclassified(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", Message(errors.New("sql: secret detail")))
}
