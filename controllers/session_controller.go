package controllers

import (
	"net/http"

	"debatetimer/internal/clock"
	"debatetimer/services"

	"github.com/gin-gonic/gin"
)

// SessionController drives the timer of a debate over REST. The websocket
// handler offers the same controls.
type SessionController struct {
	debates *services.DebateService
}

func NewSessionController(debates *services.DebateService) *SessionController {
	return &SessionController{debates: debates}
}

type selectRequest struct {
	Key string `json:"key" binding:"required"`
}

type advanceResponse struct {
	From     clock.Phase    `json:"from"`
	To       *clock.Phase   `json:"to,omitempty"`
	Ended    bool           `json:"ended"`
	Snapshot clock.Snapshot `json:"snapshot"`
}

func (sc *SessionController) StartSession(c *gin.Context) {
	sess, err := sc.debates.StartSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (sc *SessionController) GetSession(c *gin.Context) {
	sess, err := sc.debates.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (sc *SessionController) TogglePause(c *gin.Context) {
	sess, err := sc.debates.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	snap, err := sess.TogglePause()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (sc *SessionController) SelectClock(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	sess, err := sc.debates.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	snap, err := sess.Select(req.Key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (sc *SessionController) NextPhase(c *gin.Context) {
	sess, err := sc.debates.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	res, snap, err := sess.Advance()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, advanceResponse{From: res.From, To: res.To, Ended: res.Ended, Snapshot: snap})
}

func (sc *SessionController) AbortSession(c *gin.Context) {
	if err := sc.debates.StopSession(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
