package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ProducerMatt/stampy-chat/logger"
	"github.com/ProducerMatt/stampy-chat/services/ingest"
)

func SetupStats(router *gin.Engine, logger logger.Logger, service *ingest.Service) {
	router.GET("/stats", handleStats(service, logger))

}

func handleStats(service *ingest.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := service.GetStats()
		if err != nil {
			logger.Error("could not fetch corpus stats", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, stats, http.StatusOK, nil)
	}
}
