// cmd/relay/main.go
package main

import (
	"os"

	"venting/config"
	"venting/controllers"
	"venting/routes"
	"venting/services"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)

	gin.SetMode(gin.ReleaseMode)

	upstream := services.NewRelayClient(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.RelayTimeout)
	router := routes.SetupRouter(controllers.NewRelayController(upstream, cfg.RelayModel), logger)

	port := ":" + cfg.RelayPort
	logger.Info("Relay starting", "port", port)
	if err := router.Run(port); err != nil {
		logger.Fatal("Relay failed to start", "error", err)
	}
}
