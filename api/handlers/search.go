package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"rummage/db/searchdb"
	"rummage/logger"
	"rummage/services/search"
	"rummage/validation"
)

const defaultResultsPerPage = 20

type SearchRequest struct {
	Query   string `form:"query" json:"query" validate:"required,valid_query,min=1,max=1000"`
	PerPage int    `form:"per_page" json:"per_page" validate:"min=0,max=100"`
	Page    int    `form:"page" json:"page" validate:"min=0"`
}

func (r *SearchRequest) setDefaults() {
	if r.PerPage == 0 {
		r.PerPage = defaultResultsPerPage
	}

	if r.Page == 0 {
		r.Page = 1
	}
}

type SearchResponse struct {
	Results     []searchdb.Pair `json:"results"`
	PageDetails Pagination      `json:"page_details"`
}

func SetupSearch(router *gin.Engine, logger logger.Logger, searchDB searchdb.DB, validator *validation.Validator, resultLimit int) {
	service := search.New(logger, searchDB)
	router.GET("/search", handleSearch(service, logger, validator))
	router.POST("/api/search", handleRankedSearch(service, logger, resultLimit))
}

func handleSearch(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request parameters"})
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
		results, err := service.Search(request.Query, limit, offset)
		if err != nil {
			logger.Error("search failed", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		searchResponse := SearchResponse{
			Results: results.Pairs,
			PageDetails: calculatePagination(
				int(results.Total),
				limit,
				offset),
		}

		writeResponse(c, searchResponse, http.StatusOK, nil)
	}
}

// handleRankedSearch is the plain-text search endpoint: the request body is
// the verbatim query and the response is a bare JSON array of [path, rank]
// pairs. No envelope, no validation, no pagination.
func handleRankedSearch(service *search.Service, logger logger.Logger, resultLimit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Warn("could not read search request body", "err", err.Error())
			c.String(http.StatusBadRequest, "could not read request body")
			return
		}

		results, err := service.Search(string(body), resultLimit, 0)
		if err != nil {
			logger.Error("search failed", "err", err.Error())
			c.String(http.StatusInternalServerError, "search failed")
			return
		}

		c.JSON(http.StatusOK, results.Pairs)
	}
}
