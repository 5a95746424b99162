package service

import (
	"bytes"
	"context"
	"slices"

	"posbackend/internal/apperr"
	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
)

// StockMutation asks the engine to move a product's stock by Delta.
type StockMutation struct {
	ProductID uuid.UUID
	Delta     int
	Type      model.MovementType
	Reason    string
	Reference model.Reference
}

// StockEngine is the only writer of products.stock_quantity. Every change it makes is
// paired with one ledger row in the caller's transaction.
type StockEngine struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
}

func NewStockEngine(products repository.ProductRepository, movements repository.StockMovementRepository) *StockEngine {
	return &StockEngine{products: products, movements: movements}
}

// Apply locks the product, checks stock, writes the new quantity and appends the movement.
// Untracked products are returned unchanged with a nil movement.
// Ownership is checked by the caller (see LockForUser).
func (e *StockEngine) Apply(ctx context.Context, m StockMutation) (*model.StockMovement, *model.Product, error) {
	if !repository.InTx(ctx) {
		return nil, nil, apperr.New(apperr.KindInternal, "stock mutation requires an open transaction")
	}
	if !m.Type.IsValid() {
		return nil, nil, apperr.Newf(apperr.KindInternal, "unknown movement type %q", m.Type)
	}

	product, err := e.products.FindByIDForUpdate(ctx, m.ProductID)
	if err != nil {
		return nil, nil, apperr.FromStore(err, "product")
	}

	before := product.StockQuantity
	if m.Delta < 0 && product.TrackInventory && before+m.Delta < 0 {
		return nil, nil, apperr.InsufficientStock(product.Name, before, -m.Delta)
	}
	if !product.TrackInventory {
		return nil, product, nil
	}

	after := before + m.Delta
	if err := e.products.UpdateStock(ctx, product.ID, after); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "failed to update stock", err)
	}
	product.StockQuantity = after

	movement := &model.StockMovement{
		UserID:         product.UserID,
		ProductID:      product.ID,
		Type:           m.Type,
		Quantity:       m.Delta,
		QuantityBefore: before,
		QuantityAfter:  after,
		Reason:         m.Reason,
	}
	movement.SetReference(m.Reference)
	if err := e.movements.Append(ctx, movement); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "failed to record stock movement", err)
	}

	return movement, product, nil
}

// LockForUser locks one product and checks that userID owns it.
// A product owned by someone else is reported as not found.
func (e *StockEngine) LockForUser(ctx context.Context, userID, productID uuid.UUID) (*model.Product, error) {
	products, err := e.lock(ctx, userID, []uuid.UUID{productID}, false)
	if err != nil {
		return nil, err
	}
	return products[productID], nil
}

// LockAllForUser locks every distinct product in ascending id order, so two transactions
// touching the same products always queue on the same row first.
func (e *StockEngine) LockAllForUser(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	return e.lock(ctx, userID, ids, false)
}

// LockExistingForUser is LockAllForUser that leaves deleted products out of the result.
func (e *StockEngine) LockExistingForUser(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	return e.lock(ctx, userID, ids, true)
}

func (e *StockEngine) lock(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, skipMissing bool) (map[uuid.UUID]*model.Product, error) {
	if !repository.InTx(ctx) {
		return nil, apperr.New(apperr.KindInternal, "row locks require an open transaction")
	}

	ordered := slices.Clone(ids)
	slices.SortFunc(ordered, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ordered = slices.Compact(ordered)

	locked := make(map[uuid.UUID]*model.Product, len(ordered))
	for _, id := range ordered {
		product, err := e.products.FindByIDForUpdate(ctx, id)
		if err != nil {
			if skipMissing && apperr.IsKind(apperr.FromStore(err, "product"), apperr.KindNotFound) {
				continue
			}
			return nil, apperr.FromStore(err, "product")
		}
		if product.UserID != userID {
			if skipMissing {
				continue
			}
			return nil, apperr.NotFound("product")
		}
		locked[id] = product
	}
	return locked, nil
}
