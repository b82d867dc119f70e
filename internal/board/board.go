// Package board keeps the live "current orders" view fed by the realtime
// channel: snapshots replace the whole view, updates merge by order id.
package board

import (
	"sync"

	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
)

// Board is the in-memory orders view.
type Board struct {
	mu     sync.RWMutex
	orders []domain.OrderNotification
}

// New creates an empty board.
func New() *Board {
	return &Board{}
}

// ApplySnapshot replaces the whole view with the given orders.
func (b *Board) ApplySnapshot(orders []domain.OrderNotification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = make([]domain.OrderNotification, len(orders))
	copy(b.orders, orders)
}

// ApplyUpdate replaces the order with a matching id, whole record only.
// An order not yet on the board is appended.
func (b *Board) ApplyUpdate(order domain.OrderNotification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.orders {
		if b.orders[i].ID == order.ID {
			b.orders[i] = order
			return
		}
	}
	b.orders = append(b.orders, order)
}

// Remove drops an order from the view.
func (b *Board) Remove(orderID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.orders[:0]
	for _, o := range b.orders {
		if o.ID != orderID {
			kept = append(kept, o)
		}
	}
	b.orders = kept
}

// Orders returns a copy of the current view.
func (b *Board) Orders() []domain.OrderNotification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.OrderNotification, len(b.orders))
	copy(out, b.orders)
	return out
}

// Get returns the order with the given id.
func (b *Board) Get(orderID int64) (domain.OrderNotification, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.orders {
		if o.ID == orderID {
			return o, true
		}
	}
	return domain.OrderNotification{}, false
}

// Reset clears the view. Used on logout.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = nil
}
