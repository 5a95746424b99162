package service

import (
	"github.com/google/uuid"

	"posbackend/internal/model"
)

// StockChange describes one committed change to a product's stock.
type StockChange struct {
	ProductID     uuid.UUID          `json:"product_id"`
	SKU           string             `json:"sku"`
	Name          string             `json:"name"`
	Type          model.MovementType `json:"type"`
	Delta         int                `json:"delta"`
	StockQuantity int                `json:"stock_quantity"`
	NeedsReorder  bool               `json:"needs_reorder"`
}

// StockNotifier is told about stock changes after their transaction has committed.
type StockNotifier interface {
	NotifyStockChanged(userID uuid.UUID, changes []StockChange)
}

type nopNotifier struct{}

func (nopNotifier) NotifyStockChanged(uuid.UUID, []StockChange) {}

func notifierOrNop(n StockNotifier) StockNotifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func changeFrom(p *model.Product, m *model.StockMovement) StockChange {
	return StockChange{
		ProductID:     p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		Type:          m.Type,
		Delta:         m.Quantity,
		StockQuantity: m.QuantityAfter,
		NeedsReorder:  p.TrackInventory && m.QuantityAfter <= p.ReorderPoint,
	}
}

func publish(n StockNotifier, userID uuid.UUID, changes []StockChange) {
	if len(changes) > 0 {
		n.NotifyStockChanged(userID, changes)
	}
}
