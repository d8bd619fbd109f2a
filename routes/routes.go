package routes

import (
	"net/http"

	"debatetimer/controllers"
	"debatetimer/internal/events"
	"debatetimer/websocket"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router serves.
type Handlers struct {
	Debates       *controllers.DebateController
	Sessions      *controllers.SessionController
	Recordings    *controllers.RecordingController
	AI            *controllers.AIController
	Transcription *controllers.TranscriptionController
	Websocket     *websocket.Handler
	RateLimiter   *events.RateLimiter
}

// Register mounts the REST API under /api and the debate feed under /ws.
func Register(router *gin.Engine, h Handlers) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	debates := api.Group("/debates")
	SetupDebateRoutes(debates, h)
	SetupSessionRoutes(debates.Group("/:id"), h)
	SetupAIRoutes(api, debates.Group("/:id"), h)

	router.GET("/ws/debates/:id", h.Websocket.ServeDebate)
}
