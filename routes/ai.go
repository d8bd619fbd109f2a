package routes

import (
	"debatetimer/middlewares"

	"github.com/gin-gonic/gin"
)

const suggestionAction = "suggestion"

func SetupAIRoutes(api, debate *gin.RouterGroup, h Handlers) {
	debate.GET("/suggestions", h.AI.ListSuggestions)
	debate.POST("/suggestions", middlewares.RateLimit(h.RateLimiter, suggestionAction), h.AI.CreateSuggestion)
	debate.GET("/summary", h.AI.Summary)
	debate.GET("/export", h.AI.Export)

	api.POST("/transcribe", h.Transcription.Transcribe)
	api.POST("/transcribe/stream", h.Transcription.StreamTranscription)
}
