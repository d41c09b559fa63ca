package models

import "encoding/json"

// RelayRequest is the body accepted by POST /api/chat. The tuning fields stay
// raw so an absent field (nil) can be told apart from an explicit null, and
// loosely typed values ("0.7") can be coerced.
type RelayRequest struct {
	Messages    []map[string]any `json:"messages"`
	Model       json.RawMessage  `json:"model"`
	Temperature json.RawMessage  `json:"temperature"`
	MaxTokens   json.RawMessage  `json:"max_tokens"`
}

// AppliedSettings echoes the values actually sent upstream.
type AppliedSettings struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}
