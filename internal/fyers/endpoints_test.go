package fyers

import "testing"

func TestEndpointHostRouting(t *testing.T) {
	tests := []struct {
		endpoint string
		data     bool
	}{
		{"/quotes", true},
		{"quotes", true},
		{"/history", true},
		{"/optionchain", true},
		{"/options-chain-v3", true},
		{"/symbol_master", true},
		{"/market_depth", true},
		{"/profile", false},
		{"/funds", false},
		{"/positions", false},
		{"/orders/sync", false},
		{"/tradebook", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			if got := isDataEndpoint(tt.endpoint); got != tt.data {
				t.Fatalf("isDataEndpoint(%q) = %v, want %v", tt.endpoint, got, tt.data)
			}
		})
	}
}

func TestResolveBaseURLTrimsSlash(t *testing.T) {
	c := &Client{tradingURL: "https://t.example/api/v3/", dataURL: "https://d.example/data/"}

	if got := c.resolveBaseURL("/quotes"); got != "https://d.example/data" {
		t.Fatalf("data URL = %s", got)
	}
	if got := c.resolveBaseURL("/orders/sync"); got != "https://t.example/api/v3" {
		t.Fatalf("trading URL = %s", got)
	}
}
