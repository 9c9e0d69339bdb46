package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rummage/logger"
	"rummage/services/index"
	"rummage/validation"
)

type IndexRequest struct {
	Path           string   `json:"path" validate:"required,valid_path"`
	ExcludeFolders []string `json:"exclude_folders"`
}

type IndexResponse struct {
	ID string `json:"id"`
}

type IndexStatusResponse struct {
	ID       string `json:"id"`
	Progress int    `json:"progress"`
}

func SetupIndex(ctx context.Context, router *gin.Engine, logger logger.Logger, indexer index.Indexer, metadataStore index.MetadataStore, validator *validation.Validator) {
	service := index.New(ctx, logger, indexer, metadataStore)
	router.POST("/index", handleCreateIndex(service, logger, validator))
	router.GET("/index/:request_id", handleIndexStatus(service, logger))
}

func handleCreateIndex(service *index.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := IndexRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from index request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate index request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		requestID := uuid.New().String()
		if err := service.Build(request.Path, request.ExcludeFolders, requestID); err != nil {
			logger.Warn("could not start index build", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusConflict, []string{err.Error()})
			return
		}

		writeResponse(c, IndexResponse{ID: requestID}, http.StatusAccepted, nil)
	}
}

func handleIndexStatus(service *index.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Param("request_id")

		progress, err := service.GetStatus(requestID)
		if err != nil {
			logger.Warn("could not get index build status", "request_id", requestID, "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotFound, []string{"unknown index request"})
			return
		}

		status := IndexStatusResponse{ID: requestID, Progress: progress}
		switch {
		case progress == index.ProgressStatusFailed:
			writeResponse(c, status, http.StatusInternalServerError, []string{"index build failed"})
		case progress < index.ProgressStatusComplete:
			writeResponse(c, status, http.StatusAccepted, nil)
		default:
			writeResponse(c, status, http.StatusOK, nil)
		}
	}
}
