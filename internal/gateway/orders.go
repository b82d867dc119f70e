package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
)

// ListOrders fetches the restaurant's current orders.
func (c *Client) ListOrders(ctx context.Context) ([]domain.OrderNotification, error) {
	var orders []domain.OrderNotification
	if err := c.call(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// AcceptOrder accepts a pending order.
func (c *Client) AcceptOrder(ctx context.Context, orderID int64) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/accept", orderID), nil, nil)
}

// DeclineOrder declines a pending order with an optional reason.
func (c *Client) DeclineOrder(ctx context.Context, orderID int64, reason string) error {
	body := map[string]string{}
	if reason != "" {
		body["reason"] = reason
	}
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/decline", orderID), body, nil)
}
