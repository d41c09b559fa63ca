package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"venting/models"

	"github.com/cockroachdb/errors"
	"github.com/sashabaranov/go-openai"
)

const (
	CompletionTemperature = 1.0
	CompletionMaxTokens   = 200
)

var ErrNoChoices = errors.New("no choices in completion response")

// ChatCompletionAPI is the subset of *openai.Client the completion client needs.
type ChatCompletionAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type CompletionClient struct {
	client  ChatCompletionAPI
	model   string
	timeout time.Duration
}

func NewCompletionClient(client ChatCompletionAPI, model string, timeout time.Duration) *CompletionClient {
	return &CompletionClient{client: client, model: model, timeout: timeout}
}

// Respond sends the whole conversation and returns the reply. Failures come
// back as an inline message so the caller can treat them as a normal turn.
func (c *CompletionClient) Respond(ctx context.Context, history []models.Message) string {
	reply, err := c.complete(ctx, history)
	if err != nil {
		return fmt.Sprintf("(Error talking to the model: %v)", err)
	}
	return reply
}

func (c *CompletionClient) complete(ctx context.Context, history []models.Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: CompletionTemperature,
		MaxTokens:   CompletionMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
