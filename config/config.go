package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")
	ErrSystemPrompt  = errors.New("failed to load system prompt")
)

// Config holds everything read once at startup.
type Config struct {
	OpenAIKey        string
	OpenAIBaseURL    string
	SystemPromptFile string
	ChatModel        string
	ModerationModel  string
	RequestTimeout   time.Duration
	ExportDir        string
	TranscriptTable  string
	DynamoDBEndpoint string
	AWSRegion        string
	RelayPort        string
	RelayModel       string
	RelayTimeout     time.Duration
	LogLevel         string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("SYSTEM_PROMPT_FILE", "system_prompt.txt")
	v.SetDefault("CHAT_MODEL", "gpt-4o-mini")
	v.SetDefault("MODERATION_MODEL", "omni-moderation-latest")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("EXPORT_DIR", ".")
	v.SetDefault("TRANSCRIPT_TABLE", "")
	v.SetDefault("DYNAMODB_ENDPOINT", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("RELAY_PORT", "8080")
	v.SetDefault("RELAY_MODEL", "gpt-4o")
	v.SetDefault("RELAY_TIMEOUT", "45s")
	v.SetDefault("LOG_LEVEL", "warn")
}

// Load reads .env (if any) into the process environment and resolves the
// configuration from it.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		OpenAIKey:        v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:    strings.TrimRight(v.GetString("OPENAI_BASE_URL"), "/"),
		SystemPromptFile: v.GetString("SYSTEM_PROMPT_FILE"),
		ChatModel:        v.GetString("CHAT_MODEL"),
		ModerationModel:  v.GetString("MODERATION_MODEL"),
		RequestTimeout:   v.GetDuration("REQUEST_TIMEOUT"),
		ExportDir:        v.GetString("EXPORT_DIR"),
		TranscriptTable:  v.GetString("TRANSCRIPT_TABLE"),
		DynamoDBEndpoint: v.GetString("DYNAMODB_ENDPOINT"),
		AWSRegion:        v.GetString("AWS_REGION"),
		RelayPort:        v.GetString("RELAY_PORT"),
		RelayModel:       v.GetString("RELAY_MODEL"),
		RelayTimeout:     v.GetDuration("RELAY_TIMEOUT"),
		LogLevel:         v.GetString("LOG_LEVEL"),
	}

	if cfg.OpenAIKey == "" {
		return nil, errors.WithHint(ErrMissingAPIKey, "copy .env.example to .env and paste your API key")
	}
	return cfg, nil
}

// LoadSystemPrompt returns the trimmed content of the system prompt file.
func LoadSystemPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "reading %s", path), ErrSystemPrompt)
	}
	return strings.TrimSpace(string(data)), nil
}
