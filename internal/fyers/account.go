package fyers

import (
	"context"
	"net/url"
	"strconv"

	"fyers-orb-bot/internal/models"
)

// GetProfile fetches the account profile.
func (c *Client) GetProfile(ctx context.Context) (Payload, error) {
	return c.Request(ctx, "GET", "/profile", nil, nil)
}

// GetFunds fetches available funds.
func (c *Client) GetFunds(ctx context.Context) (Payload, error) {
	return c.Request(ctx, "GET", "/funds", nil, nil)
}

// GetPositions fetches open positions, normalized through the
// tolerant-parsing boundary.
func (c *Client) GetPositions(ctx context.Context) ([]models.Position, error) {
	payload, err := c.Request(ctx, "GET", "/positions", nil, nil)
	if err != nil {
		return nil, err
	}
	return payload.Positions(), nil
}

// GetLTP fetches the last traded price for a symbol via /quotes.
func (c *Client) GetLTP(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbols", symbol)

	payload, err := c.Request(ctx, "GET", "/quotes", params, nil)
	if err != nil {
		return 0, err
	}
	return payload.QuoteLTP()
}

// GetOptionChain fetches the option chain for a symbol.
func (c *Client) GetOptionChain(ctx context.Context, symbol string, strikeCount int) ([]models.OptionContract, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if strikeCount > 0 {
		params.Set("strikecount", strconv.Itoa(strikeCount))
	}
	params.Set("timestamp", "")

	payload, err := c.Request(ctx, "GET", "/options-chain-v3", params, nil)
	if err != nil {
		return nil, err
	}
	return payload.OptionChain()
}
