package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ProducerMatt/stampy-chat/logger"
	"github.com/ProducerMatt/stampy-chat/services/ingest"
	"github.com/ProducerMatt/stampy-chat/validation"
)

type IngestRequest struct {
	Path           string   `json:"path" validate:"required,valid_path"`
	Sources        []string `json:"sources"`
	SampleFraction float64  `json:"sample_fraction" validate:"valid_fraction"`
}

type IngestResponse struct {
	RequestID string `json:"request_id"`
}

type IngestProgressResponse struct {
	RequestID string `json:"request_id"`
	Progress  int    `json:"progress"`
}

func SetupIngest(router *gin.Engine, logger logger.Logger, service *ingest.Service, validator *validation.Validator) {
	router.POST("/ingest", handleIngest(service, logger, validator))
	router.GET("/ingest/progress", handleIngestProgress(service, logger))

}

func handleIngest(service *ingest.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := IngestRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from ingest request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate ingest request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		requestID := uuid.New().String()
		if err := service.Ingest(request.Path, request.Sources, request.SampleFraction, requestID); err != nil {
			if errors.Is(err, ingest.ErrAlreadyRunning) {
				c.Abort()
				writeResponse(c, nil, http.StatusConflict, []string{err.Error()})
				return
			}
			logger.Error("could not start ingestion", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, IngestResponse{RequestID: requestID}, http.StatusAccepted, nil)
	}
}

func handleIngestProgress(service *ingest.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Query("request_id")
		if requestID == "" {
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"request_id is required"})
			return
		}

		progress, err := service.GetStatus(requestID)
		if err != nil {
			logger.Warn("could not fetch ingestion progress", "request_id", requestID, "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotFound, []string{err.Error()})
			return
		}

		writeResponse(c, IngestProgressResponse{RequestID: requestID, Progress: progress}, http.StatusOK, nil)
	}
}
