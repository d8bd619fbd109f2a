package controllers

import (
	"errors"
	"net/http"

	"debatetimer/db"
	"debatetimer/internal/clock"
	"debatetimer/internal/recording"
	"debatetimer/internal/session"
	"debatetimer/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// statusFor maps a domain error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound),
		errors.Is(err, session.ErrNoSession),
		errors.Is(err, recording.ErrNotRecording):
		return http.StatusNotFound
	// ErrClockBusy refines ErrInvalidClockSelection and must be matched first.
	case errors.Is(err, clock.ErrClockBusy),
		errors.Is(err, clock.ErrIllegalTransition),
		errors.Is(err, session.ErrSessionExists),
		errors.Is(err, session.ErrSessionEnded),
		errors.Is(err, recording.ErrAlreadyRecording):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidDebate),
		errors.Is(err, services.ErrUnknownFormat),
		errors.Is(err, services.ErrEmptyTranscript),
		errors.Is(err, services.ErrNoTranscripts),
		errors.Is(err, services.ErrUnsupportedFormat),
		errors.Is(err, clock.ErrInvalidConfiguration),
		errors.Is(err, clock.ErrInvalidClockSelection):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrTranscriberUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
