package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
)

var ErrUpstreamTimeout = errors.New("upstream timeout from OpenAI")

// RelayResult is what the upstream answered. Data is nil when the body was
// not JSON.
type RelayResult struct {
	Status int
	Data   map[string]any
}

// RelayClient forwards chat completion payloads to OpenAI unchanged.
type RelayClient struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	timeout time.Duration
}

func NewRelayClient(baseURL, apiKey string, timeout time.Duration) *RelayClient {
	return &RelayClient{
		client:  resty.New(),
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
	}
}

// Forward posts payload to /chat/completions. Only transport failures are
// returned as errors; HTTP error statuses come back in the result.
func (r *RelayClient) Forward(ctx context.Context, payload map[string]any) (RelayResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+r.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(r.baseURL + "/chat/completions")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return RelayResult{}, errors.Mark(err, ErrUpstreamTimeout)
		}
		return RelayResult{}, err
	}

	result := RelayResult{Status: resp.StatusCode()}
	var data map[string]any
	if err := json.Unmarshal(resp.Body(), &data); err == nil {
		result.Data = data
	}
	return result, nil
}
