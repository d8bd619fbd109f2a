package controllers

import (
	"net/http"
	"strconv"

	"debatetimer/models"
	"debatetimer/services"

	"github.com/gin-gonic/gin"
)

// AIController serves suggestions, summaries and exports.
type AIController struct {
	suggestions *services.SuggestionService
	summaries   *services.SummaryService
	exports     *services.ExportService
}

func NewAIController(suggestions *services.SuggestionService, summaries *services.SummaryService, exports *services.ExportService) *AIController {
	return &AIController{suggestions: suggestions, summaries: summaries, exports: exports}
}

func (ac *AIController) ListSuggestions(c *gin.Context) {
	list, err := ac.suggestions.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []models.Suggestion{}
	}
	c.JSON(http.StatusOK, list)
}

func (ac *AIController) CreateSuggestion(c *gin.Context) {
	var req services.SuggestionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	s, err := ac.suggestions.Suggest(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (ac *AIController) Summary(c *gin.Context) {
	sum, err := ac.summaries.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Export serves ?format=txt|json|csv&stats=true&suggestions=true as an
// attachment.
func (ac *AIController) Export(c *gin.Context) {
	stats, _ := strconv.ParseBool(c.DefaultQuery("stats", "false"))
	suggestions, _ := strconv.ParseBool(c.DefaultQuery("suggestions", "false"))

	res, err := ac.exports.Export(c.Request.Context(), c.Param("id"), services.ExportOptions{
		Format:             c.DefaultQuery("format", services.ExportTXT),
		IncludeStatistics:  stats,
		IncludeSuggestions: suggestions,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	c.Data(http.StatusOK, res.ContentType, res.Body)
}
