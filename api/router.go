package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ProducerMatt/stampy-chat/api/handlers"
	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/logger"
	"github.com/ProducerMatt/stampy-chat/services/ingest"
	"github.com/ProducerMatt/stampy-chat/services/search"
	"github.com/ProducerMatt/stampy-chat/validation"
)

func setupRoutes(router *gin.Engine, logger logger.Logger, cfg *config.Config, ingestService *ingest.Service, searchService *search.Service, validator *validation.Validator) {
	router.GET("/health", health())

	handlers.SetupSemantic(router, logger, cfg, searchService)
	handlers.SetupSearch(router, logger, searchService, validator)
	handlers.SetupIngest(router, logger, ingestService, validator)
	handlers.SetupStats(router, logger, ingestService)

}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter() *gin.Engine {
	router := gin.Default()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())

	return router
}
