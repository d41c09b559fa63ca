package routes

import (
	"venting/controllers"
	"venting/middlewares"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

func SetupRouter(relay *controllers.RelayController, logger *log.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Middleware goes first so NoMethod responses carry CORS headers too.
	r.Use(gin.Recovery())
	r.Use(middlewares.Logger(logger))
	r.Use(middlewares.CORS())

	r.POST("/api/chat", relay.HandleChat)
	r.NoMethod(relay.MethodNotAllowed)

	return r
}
