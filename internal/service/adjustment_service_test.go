package service

import (
	"testing"

	"posbackend/internal/apperr"
	"posbackend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adjust(p *model.Product, qty int, reason string) AdjustmentLine {
	return AdjustmentLine{ProductID: p.ID.String(), NewQuantity: intPtr(qty), Reason: reason}
}

func TestAdjustmentService_ApplyAdjustments(t *testing.T) {
	t.Run("recount from 100 to 150", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedProduct("A", 100, 10)

		results, err := f.adjustSvc.ApplyAdjustments(f.ctx, f.userID, AdjustmentRequest{
			Items: []AdjustmentLine{adjust(p, 150, "recount")},
		})
		require.NoError(t, err)

		require.Len(t, results, 1)
		assert.Equal(t, AdjustmentApplied, results[0].Status)
		assert.Equal(t, 50, results[0].Delta)
		assert.NotNil(t, results[0].MovementID)

		assert.Equal(t, 150, f.stockOf(p.ID))
		ms := f.movementsOf(p.ID)
		require.Len(t, ms, 1)
		assert.Equal(t, model.MovementAdjustment, ms[0].Type)
		assert.Equal(t, 50, ms[0].Quantity)
		assert.Equal(t, 100, ms[0].QuantityBefore)
		assert.Equal(t, 150, ms[0].QuantityAfter)
		assert.Equal(t, "recount", ms[0].Reason)
		assert.True(t, ms[0].Reference().IsZero())
	})

	t.Run("decreases are allowed down to zero", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedProduct("A", 12, 10)

		_, err := f.adjustSvc.ApplyAdjustments(f.ctx, f.userID, AdjustmentRequest{
			Items: []AdjustmentLine{adjust(p, 0, "write-off")},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, f.stockOf(p.ID))
		f.assertLedger(p.ID, 12)
	})

	t.Run("unchanged quantities write no movement", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedProduct("A", 40, 10)

		results, err := f.adjustSvc.ApplyAdjustments(f.ctx, f.userID, AdjustmentRequest{
			Items: []AdjustmentLine{adjust(p, 40, "recount")},
		})
		require.NoError(t, err)

		assert.Equal(t, AdjustmentUnchanged, results[0].Status)
		assert.Nil(t, results[0].MovementID)
		assert.Empty(t, f.movementsOf(p.ID))
		assert.Zero(t, f.notifier.count(f.userID))
	})

	t.Run("missing reason rejects the whole batch", func(t *testing.T) {
		f := newFixture(t)
		a := f.seedProduct("A", 10, 10)
		b := f.seedProduct("B", 10, 10)

		_, err := f.adjustSvc.ApplyAdjustments(f.ctx, f.userID, AdjustmentRequest{
			Items: []AdjustmentLine{adjust(a, 20, "recount"), adjust(b, 5, "   ")},
		})

		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		assert.Equal(t, 10, f.stockOf(a.ID))
		assert.Empty(t, f.movementsOf(a.ID))
	})

	t.Run("a failing line rolls back the batch", func(t *testing.T) {
		f := newFixture(t)
		a := f.seedProduct("A", 10, 10)
		foreign := f.seedProduct("X", 10, 10, ownedBy(uuid.New()))

		_, err := f.adjustSvc.ApplyAdjustments(f.ctx, f.userID, AdjustmentRequest{
			Items: []AdjustmentLine{adjust(a, 20, "recount"), adjust(foreign, 0, "recount")},
		})

		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
		assert.Equal(t, 10, f.stockOf(a.ID))
		assert.Equal(t, 10, f.stockOf(foreign.ID))
		assert.Empty(t, f.movementsOf(a.ID))
	})

	t.Run("rejects negative targets and duplicate products", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedProduct("A", 10, 10)

		_, err := f.adjustSvc.ApplyAdjustments(f.ctx, f.userID, AdjustmentRequest{
			Items: []AdjustmentLine{adjust(p, -1, "recount")},
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))

		_, err = f.adjustSvc.ApplyAdjustments(f.ctx, f.userID, AdjustmentRequest{
			Items: []AdjustmentLine{adjust(p, 1, "a"), adjust(p, 2, "b")},
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		assert.Equal(t, 10, f.stockOf(p.ID))
	})
}
