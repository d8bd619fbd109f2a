package controllers

import (
	"net/http"

	"debatetimer/services"

	"github.com/gin-gonic/gin"
)

type RecordingController struct {
	debates *services.DebateService
}

func NewRecordingController(debates *services.DebateService) *RecordingController {
	return &RecordingController{debates: debates}
}

type startRecordingRequest struct {
	Speaker string `json:"speaker" binding:"omitempty,oneof=affirmative negative"`
}

type interimRequest struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

func (rc *RecordingController) StartRecording(c *gin.Context) {
	var req startRecordingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	st, err := rc.debates.StartRecording(c.Request.Context(), c.Param("id"), req.Speaker)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// AppendInterim adds recognizer output. Final segments are kept, interim
// ones replace each other.
func (rc *RecordingController) AppendInterim(c *gin.Context) {
	var req interimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	st, err := rc.debates.AppendRecording(c.Param("id"), req.Text, req.Final)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (rc *RecordingController) StopRecording(c *gin.Context) {
	t, err := rc.debates.StopRecording(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}
