package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ProducerMatt/stampy-chat/logger"
	"github.com/ProducerMatt/stampy-chat/services/search"
	"github.com/ProducerMatt/stampy-chat/validation"
)

const defaultResultsPerPage = 20

const HeaderPaginationTotalCount = "X-Pagination-Total-Count"

type SearchRequest struct {
	Query   string `form:"query" validate:"required,valid_query,min=1,max=1000"`
	PerPage int    `form:"per_page" validate:"min=0,max=100"`
	Page    int    `form:"page" validate:"min=0"`
}

func (r *SearchRequest) setDefaults() {
	if r.PerPage == 0 {
		r.PerPage = defaultResultsPerPage
	}

	if r.Page == 0 {
		r.Page = 1
	}
}

type SearchResult struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Date   string  `json:"date"`
	URL    string  `json:"url"`
	Tags   string  `json:"tags"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

type SearchResponse struct {
	Results     []SearchResult `json:"results"`
	PageDetails Pagination     `json:"page_details"`
}

func SetupSearch(router *gin.Engine, logger logger.Logger, service *search.Service, validator *validation.Validator) {
	router.GET("/search", handleSearch(service, logger, validator))

}

func handleSearch(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}
		request.setDefaults()

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		limit := request.PerPage
		offset := (request.Page - 1) * request.PerPage
		response, err := service.Lexical(request.Query, limit, offset)
		if err != nil {
			logger.Error("search failed", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		results := make([]SearchResult, 0, len(response.Results))
		for _, result := range response.Results {
			results = append(results, SearchResult{
				ID:     result.Block.ID,
				Title:  result.Block.Title,
				Author: result.Block.Author,
				Date:   result.Block.Date,
				URL:    result.Block.URL,
				Tags:   result.Block.Tags,
				Text:   result.Block.Text,
				Score:  result.Score,
			})
		}

		searchResponse := SearchResponse{
			Results: results,
			PageDetails: calculatePagination(
				int(response.Total),
				limit,
				offset),
		}

		c.Header(HeaderPaginationTotalCount, strconv.FormatUint(response.Total, 10))
		writeResponse(c, searchResponse, http.StatusOK, nil)
	}
}
