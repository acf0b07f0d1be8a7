package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/logger"
	"github.com/ProducerMatt/stampy-chat/services/search"
)

type SemanticRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// SemanticResult is one hit of the /semantic response. The endpoint replies
// with a bare JSON array of these rather than the usual envelope, which is
// the shape existing clients already parse.
type SemanticResult struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Date   string `json:"date"`
	URL    string `json:"url"`
	Tags   string `json:"tags"`
	Text   string `json:"text"`
}

func SetupSemantic(router *gin.Engine, logger logger.Logger, cfg *config.Config, service *search.Service) {
	router.POST("/semantic", handleSemantic(service, logger, cfg))

}

func handleSemantic(service *search.Service, logger logger.Logger, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SemanticRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from semantic request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}

		// The query itself is deliberately not validated. Empty queries are
		// legal and embed like any other string.
		limit := request.Limit
		if limit <= 0 {
			limit = cfg.GetTopK()
		}

		blocks, err := service.Semantic(c.Request.Context(), request.Query, limit)
		if err != nil {
			logger.Error("semantic search failed", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		results := make([]SemanticResult, 0, len(blocks))
		for _, block := range blocks {
			results = append(results, SemanticResult{
				Title:  block.Title,
				Author: block.Author,
				Date:   block.Date,
				URL:    block.URL,
				Tags:   block.Tags,
				Text:   block.Text,
			})
		}

		c.JSON(http.StatusOK, results)
	}
}
