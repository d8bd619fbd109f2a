package controllers

import (
	"net/http"

	"debatetimer/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxAudioBytes = 25 << 20

type TranscriptionController struct {
	transcriber *services.Transcriber
}

func NewTranscriptionController(transcriber *services.Transcriber) *TranscriptionController {
	return &TranscriptionController{transcriber: transcriber}
}

// Transcribe converts an uploaded "audio" file to text.
func (tc *TranscriptionController) Transcribe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBytes)
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		badRequest(c, "audio file is required")
		return
	}
	defer file.Close()

	text, err := tc.transcriber.Transcribe(c.Request.Context(), header.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// StreamTranscription relays partial results of an uploaded "audio" file as
// server-sent "text" events, then a final "done" event.
func (tc *TranscriptionController) StreamTranscription(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBytes)
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		badRequest(c, "audio file is required")
		return
	}
	defer file.Close()

	texts := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(texts)
		errc <- tc.transcriber.Stream(c.Request.Context(), header.Filename, file, func(text string) error {
			select {
			case texts <- text:
				return nil
			case <-c.Request.Context().Done():
				return c.Request.Context().Err()
			}
		})
	}()

	// Nothing has been written yet, so an early failure can still be a
	// plain JSON error.
	first, ok := <-texts
	if !ok {
		if err := <-errc; err != nil {
			respondError(c, err)
			return
		}
		c.SSEvent("done", gin.H{})
		return
	}
	c.SSEvent("text", gin.H{"text": first})
	c.Writer.Flush()
	for text := range texts {
		c.SSEvent("text", gin.H{"text": text})
		c.Writer.Flush()
	}
	if err := <-errc; err != nil {
		log.Warn().Err(err).Msg("transcription stream")
		c.SSEvent("error", gin.H{"error": err.Error()})
		return
	}
	c.SSEvent("done", gin.H{})
}
