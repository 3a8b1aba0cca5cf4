package fyers

import (
	"context"
	"strings"
	"time"

	apperrors "fyers-orb-bot/internal/errors"
	"fyers-orb-bot/internal/models"
)

// fillConfirmAttempts bounds how many tradebook polls the gateway makes
// before the caller falls back to the current quote.
const (
	fillConfirmAttempts = 5
	fillConfirmDelay    = 500 * time.Millisecond
)

// PlaceOrder validates and submits an order, returning the broker
// order ID.
func (c *Client) PlaceOrder(ctx context.Context, order *models.Order) (string, error) {
	if err := validateOrder(order); err != nil {
		return "", err
	}

	payload, err := c.Request(ctx, "POST", "/orders/sync", nil, order)
	if err != nil {
		return "", err
	}

	id := payload.OrderID()
	if id == "" {
		return "", apperrors.NewOrderError("", order.Symbol, "place", "response missing order id", apperrors.ErrMalformedResponse)
	}
	return id, nil
}

// ConfirmFillPrice polls the tradebook a bounded number of times for
// the fill price of orderID, falling back to the current quote when
// confirmation times out.
func (c *Client) ConfirmFillPrice(ctx context.Context, symbol, orderID string) (float64, error) {
	for attempt := 0; attempt < fillConfirmAttempts; attempt++ {
		payload, err := c.Request(ctx, "GET", "/tradebook", nil, nil)
		if err == nil {
			if price, ok := payload.TradedPrice(orderID); ok {
				return price, nil
			}
		}

		timer := time.NewTimer(fillConfirmDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}

	// Fill confirmation timed out; the quote is the best estimate.
	return c.GetLTP(ctx, symbol)
}

func validateOrder(order *models.Order) error {
	if order.Qty <= 0 {
		return apperrors.NewOrderError("", order.Symbol, "validate", "quantity must be greater than zero", nil)
	}
	if order.LimitPrice < 0 || order.StopPrice < 0 {
		return apperrors.NewOrderError("", order.Symbol, "validate", "price values cannot be negative", nil)
	}
	if !strings.Contains(order.Symbol, ":") {
		return apperrors.NewOrderError("", order.Symbol, "validate", "symbol must include exchange prefix e.g. NSE:NIFTY2560525000CE", nil)
	}
	if len(order.OrderTag) > 20 {
		return apperrors.NewOrderError("", order.Symbol, "validate", "orderTag should be <= 20 characters", nil)
	}
	return nil
}
