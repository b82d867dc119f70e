package domain

import "time"

// Order status constants as reported by the backend.
const (
	OrderStatusPending        = "PENDING"
	OrderStatusAccepted       = "ACCEPTED"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusReadyForPickup = "READY_FOR_PICKUP"
	OrderStatusPickedUp       = "PICKED_UP"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusDeclined       = "DECLINED"
	OrderStatusCancelled      = "CANCELLED"
)

// OrderItem is a single line of an order.
type OrderItem struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    int64    `json:"price"` // cents
	Extras   []string `json:"extras,omitempty"`
	Note     string   `json:"note,omitempty"`
}

// Payment describes how an order is paid.
type Payment struct {
	Method string `json:"method"`
	Total  int64  `json:"total"` // cents
	Paid   bool   `json:"paid"`
}

// ClientInfo identifies the ordering customer.
type ClientInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// DeliveryInfo carries the drop-off details of an order.
type DeliveryInfo struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
	Note    string  `json:"note,omitempty"`
}

// StatusChange is one entry of an order's status history.
type StatusChange struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
}

// OrderNotification is an order event as delivered by the realtime channel
// and the REST API. Identity is the order id; the client never mutates
// individual fields, records are always replaced whole.
type OrderNotification struct {
	ID            int64          `json:"orderId"`
	Status        string         `json:"status"`
	Items         []OrderItem    `json:"items"`
	Payment       Payment        `json:"payment"`
	RestaurantID  int64          `json:"restaurantId"`
	Client        ClientInfo     `json:"client"`
	Delivery      DeliveryInfo   `json:"delivery"`
	StatusHistory []StatusChange `json:"statusHistory,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// IsActionable reports whether an order still needs a staff decision.
func (o OrderNotification) IsActionable() bool {
	return o.Status == OrderStatusPending
}
