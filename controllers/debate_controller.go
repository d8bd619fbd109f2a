package controllers

import (
	"net/http"
	"strconv"

	"debatetimer/models"
	"debatetimer/services"

	"github.com/gin-gonic/gin"
)

const defaultListLimit = 20

type DebateController struct {
	debates *services.DebateService
}

func NewDebateController(debates *services.DebateService) *DebateController {
	return &DebateController{debates: debates}
}

func (dc *DebateController) CreateDebate(c *gin.Context) {
	var req services.CreateDebateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	debate, err := dc.debates.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, debate)
}

// ListDebates accepts status, limit and skip query parameters.
func (dc *DebateController) ListDebates(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)), 10, 64)
	if err != nil || limit < 0 {
		badRequest(c, "Invalid limit")
		return
	}
	skip, err := strconv.ParseInt(c.DefaultQuery("skip", "0"), 10, 64)
	if err != nil || skip < 0 {
		badRequest(c, "Invalid skip")
		return
	}

	debates, err := dc.debates.List(c.Request.Context(), models.DebateFilter{
		Status: c.Query("status"),
		Limit:  limit,
		Skip:   skip,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if debates == nil {
		debates = []models.Debate{}
	}
	c.JSON(http.StatusOK, debates)
}

func (dc *DebateController) GetDebate(c *gin.Context) {
	debate, err := dc.debates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, debate)
}

func (dc *DebateController) UpdateDebate(c *gin.Context) {
	var req models.DebateUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	debate, err := dc.debates.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, debate)
}

func (dc *DebateController) DeleteDebate(c *gin.Context) {
	if err := dc.debates.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (dc *DebateController) ListTranscripts(c *gin.Context) {
	transcripts, err := dc.debates.Transcripts(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if transcripts == nil {
		transcripts = []models.Transcript{}
	}
	c.JSON(http.StatusOK, transcripts)
}

// AddTranscript stores a finalized utterance. Speaker and phase default to
// the running session.
func (dc *DebateController) AddTranscript(c *gin.Context) {
	var req services.TranscriptInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	t, err := dc.debates.SaveTranscript(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}
