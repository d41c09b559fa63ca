package main

import (
	"context"
	"os"

	"venting/config"
	"venting/controllers"
	"venting/services"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}
	config.NewLogger(os.Stderr, cfg.LogLevel)

	systemPrompt, err := config.LoadSystemPrompt(cfg.SystemPromptFile)
	if err != nil {
		log.Fatal("Failed to start", "error", err)
	}

	ctx := context.Background()

	openAIConfig := openai.DefaultConfig(cfg.OpenAIKey)
	openAIConfig.BaseURL = cfg.OpenAIBaseURL
	client := openai.NewClientWithConfig(openAIConfig)

	var archive services.TranscriptArchive
	if cfg.TranscriptTable != "" {
		archive = newArchive(ctx, cfg)
	}

	session := controllers.NewSession(
		os.Stdin,
		os.Stdout,
		services.NewConversation(systemPrompt),
		services.NewModerationGate(client, cfg.ModerationModel, cfg.RequestTimeout),
		services.NewCompletionClient(client, cfg.ChatModel, cfg.RequestTimeout),
		services.NewExporter(cfg.ExportDir, archive),
	)
	if err := session.Run(ctx); err != nil {
		log.Fatal("Session ended", "error", err)
	}
}

// newArchive returns nil when DynamoDB cannot be set up; exports then only
// go to CSV.
func newArchive(ctx context.Context, cfg *config.Config) services.TranscriptArchive {
	db, err := services.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
	if err != nil {
		log.Warn("Transcript archive disabled", "error", err)
		return nil
	}
	archive := services.NewDynamoDBArchive(db, cfg.TranscriptTable)
	if err := archive.EnsureTable(ctx); err != nil {
		log.Warn("Transcript archive disabled", "error", err)
		return nil
	}
	log.Info("Archiving transcripts", "table", cfg.TranscriptTable, "session", archive.SessionID())
	return archive
}
