package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type response struct {
	Data   any      `json:"data"`
	Errors []string `json:"errors"`
}

// writeResponse wraps the payload in the {data, errors} envelope. The
// ranked-search endpoint writes its bare array itself and skips this.
func writeResponse(c *gin.Context, data any, statusCode int, errs []string) {
	if statusCode == http.StatusNoContent {
		c.JSON(statusCode, nil)
		return
	}

	c.JSON(statusCode, response{
		Data:   data,
		Errors: errs,
	})
}

// Pagination describes the page a result set was cut to.
type Pagination struct {
	CurrentPage  int  `json:"current_page"`
	PageSize     int  `json:"page_size"`
	TotalPages   int  `json:"total_pages"`
	HasNextPage  bool `json:"has_next_page"`
	HasPrevPage  bool `json:"has_prev_page"`
	TotalResults int  `json:"total_results"`
}

// calculatePagination derives page details from the total result count and
// the limit/offset that produced the current page. limit must be positive.
func calculatePagination(total, limit, offset int) Pagination {
	currentPage := (offset / limit) + 1
	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	return Pagination{
		CurrentPage:  currentPage,
		PageSize:     limit,
		TotalPages:   totalPages,
		HasNextPage:  currentPage < totalPages,
		HasPrevPage:  currentPage > 1,
		TotalResults: total,
	}
}
