package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"venting/models"
	"venting/services"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

const (
	defaultRelayTemperature = 1.0
	defaultRelayMaxTokens   = 500
	maxRelayTemperature     = 2.0
	maxRelayTokens          = 500
)

type Forwarder interface {
	Forward(ctx context.Context, payload map[string]any) (services.RelayResult, error)
}

// RelayController proxies browser chat requests to OpenAI. It keeps no state.
type RelayController struct {
	upstream     Forwarder
	defaultModel string
}

func NewRelayController(upstream Forwarder, defaultModel string) *RelayController {
	return &RelayController{upstream: upstream, defaultModel: defaultModel}
}

func (rc *RelayController) MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}

func (rc *RelayController) HandleChat(c *gin.Context) {
	var request models.RelayRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		log.Debug("Relay body did not bind", "error", err)
	}
	if len(request.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'messages' array"})
		return
	}

	settings := rc.applySettings(request)
	result, err := rc.upstream.Forward(c.Request.Context(), map[string]any{
		"model":       settings.Model,
		"messages":    request.Messages,
		"temperature": settings.Temperature,
		"max_tokens":  settings.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, services.ErrUpstreamTimeout) {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Upstream timeout from OpenAI", "appliedSettings": settings})
			return
		}
		log.Error("Relay upstream call failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "appliedSettings": settings})
		return
	}

	if result.Status < 200 || result.Status > 299 {
		c.JSON(result.Status, gin.H{
			"error":           upstreamErrorMessage(result),
			"appliedSettings": settings,
			"raw":             result.Data,
		})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"reply":           firstReply(result.Data),
		"usage":           result.Data["usage"],
		"appliedSettings": settings,
		"raw":             result.Data,
	})
}

func (rc *RelayController) applySettings(request models.RelayRequest) models.AppliedSettings {
	model := rc.defaultModel
	if s := stringValue(decodeRaw(request.Model)); s != "" {
		model = s
	}

	temperature := defaultRelayTemperature
	if request.Temperature != nil {
		temperature = numberValue(decodeRaw(request.Temperature))
	}
	temperature = math.Min(math.Max(temperature, 0), maxRelayTemperature)

	maxTokens := defaultRelayMaxTokens
	if request.MaxTokens != nil {
		maxTokens = intValue(decodeRaw(request.MaxTokens))
	}
	maxTokens = min(max(maxTokens, 1), maxRelayTokens)

	return models.AppliedSettings{Model: model, Temperature: temperature, MaxTokens: maxTokens}
}

// decodeRaw turns a present field into a plain value. null decodes to nil,
// which the coercions below read as 0.
func decodeRaw(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func upstreamErrorMessage(result services.RelayResult) string {
	if e, ok := result.Data["error"].(map[string]any); ok {
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("OpenAI error %d", result.Status)
}

func firstReply(data map[string]any) string {
	choices, ok := data["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	choice, _ := choices[0].(map[string]any)
	message, _ := choice["message"].(map[string]any)
	content, _ := message["content"].(string)
	return strings.TrimSpace(content)
}

// stringValue renders v as text. Falsy values read as "" so they fall back
// to the default model.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == 0 || math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if !t {
			return ""
		}
		return "true"
	}
	return fmt.Sprint(v)
}

// numberValue yields 0 for anything that does not read as a finite number.
func numberValue(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case bool:
		if t {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// intValue reads the leading integer of v, or 0.
func intValue(v any) int {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int(math.Max(math.Min(math.Trunc(t), math.MaxInt32), math.MinInt32))
	case string:
		s := strings.TrimSpace(t)
		end := 0
		for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
			end++
		}
		n, err := strconv.Atoi(s[:end])
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
