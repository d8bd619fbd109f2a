package routes

import (
	"github.com/gin-gonic/gin"
)

func SetupDebateRoutes(debates *gin.RouterGroup, h Handlers) {
	debates.POST("", h.Debates.CreateDebate)
	debates.GET("", h.Debates.ListDebates)
	debates.GET("/:id", h.Debates.GetDebate)
	debates.PUT("/:id", h.Debates.UpdateDebate)
	debates.DELETE("/:id", h.Debates.DeleteDebate)

	debates.GET("/:id/transcripts", h.Debates.ListTranscripts)
	debates.POST("/:id/transcripts", h.Debates.AddTranscript)
}

func SetupSessionRoutes(debate *gin.RouterGroup, h Handlers) {
	debate.POST("/session", h.Sessions.StartSession)
	debate.GET("/session", h.Sessions.GetSession)
	debate.DELETE("/session", h.Sessions.AbortSession)
	debate.POST("/session/pause", h.Sessions.TogglePause)
	debate.POST("/session/select", h.Sessions.SelectClock)
	debate.POST("/session/next", h.Sessions.NextPhase)

	debate.POST("/recording/start", h.Recordings.StartRecording)
	debate.POST("/recording/interim", h.Recordings.AppendInterim)
	debate.POST("/recording/stop", h.Recordings.StopRecording)
}
