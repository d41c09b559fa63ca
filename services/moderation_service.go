package services

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"
)

type ModerationVerdict int

const (
	VerdictClear ModerationVerdict = iota
	VerdictFlagged
	// VerdictUnavailable means the classifier could not be reached or
	// answered with something unusable.
	VerdictUnavailable
)

func (v ModerationVerdict) String() string {
	switch v {
	case VerdictClear:
		return "clear"
	case VerdictFlagged:
		return "flagged"
	case VerdictUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// ModerationAPI is the subset of *openai.Client the gate needs.
type ModerationAPI interface {
	Moderations(ctx context.Context, request openai.ModerationRequest) (openai.ModerationResponse, error)
}

type ModerationGate struct {
	client  ModerationAPI
	model   string
	timeout time.Duration
}

func NewModerationGate(client ModerationAPI, model string, timeout time.Duration) *ModerationGate {
	return &ModerationGate{client: client, model: model, timeout: timeout}
}

// Classify makes a single classifier call for text.
func (g *ModerationGate) Classify(ctx context.Context, text string) ModerationVerdict {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Moderations(ctx, openai.ModerationRequest{
		Model: g.model,
		Input: text,
	})
	if err != nil {
		log.Debug("Moderation call failed", "error", err)
		return VerdictUnavailable
	}
	if len(resp.Results) == 0 {
		log.Debug("Moderation response had no results", "id", resp.ID)
		return VerdictUnavailable
	}
	if resp.Results[0].Flagged {
		return VerdictFlagged
	}
	return VerdictClear
}

// Moderate reports whether text was explicitly flagged. An unavailable
// classifier counts as not flagged so the conversation keeps flowing.
func (g *ModerationGate) Moderate(ctx context.Context, text string) bool {
	return g.Classify(ctx, text) == VerdictFlagged
}
