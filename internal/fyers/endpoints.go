package fyers

import "strings"

// dataPrefixes is the static classification table routing endpoints to
// the market-data host. Everything else goes to the trading host.
var dataPrefixes = []string{
	"quotes",
	"history",
	"optionchain",
	"options-chain-v3",
	"symbol_master",
	"market_depth",
}

// isDataEndpoint reports whether the endpoint belongs to the
// market-data host.
func isDataEndpoint(endpoint string) bool {
	ep := strings.TrimPrefix(endpoint, "/")
	for _, prefix := range dataPrefixes {
		if strings.HasPrefix(ep, prefix) {
			return true
		}
	}
	return false
}

// resolveBaseURL routes an endpoint to the trading or data host.
func (c *Client) resolveBaseURL(endpoint string) string {
	if isDataEndpoint(endpoint) {
		return strings.TrimSuffix(c.dataURL, "/")
	}
	return strings.TrimSuffix(c.tradingURL, "/")
}
