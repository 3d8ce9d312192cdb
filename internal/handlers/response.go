package handlers

import (
	"net/http"
	"strconv"

	"order_manager/internal/errs"
	"order_manager/internal/services"

	"github.com/gin-gonic/gin"
)

type response struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message,omitempty"`
	Data       interface{}          `json:"data,omitempty"`
	Pagination *services.Pagination `json:"pagination,omitempty"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, response{Success: true, Message: message, Data: data})
}

func respondPage(c *gin.Context, data interface{}, page services.Pagination) {
	c.JSON(http.StatusOK, response{Success: true, Data: data, Pagination: &page})
}

func respondFail(c *gin.Context, status int, message string) {
	c.JSON(status, response{Success: false, Message: message})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.NotFound:
		return http.StatusNotFound
	case errs.ValidationConflict:
		return http.StatusBadRequest
	case errs.UniquenessConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err by kind. Store failures are recorded on the
// context for the error logger and reach the client as a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(errs.KindOf(err))
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		respondFail(c, status, "Internal server error")
		return
	}
	respondFail(c, status, err.Error())
}

func parseID(c *gin.Context, entity string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondFail(c, http.StatusBadRequest, "Invalid "+entity+" ID")
		return 0, false
	}
	return uint(id), true
}

func bindFailed(c *gin.Context, err error) {
	respondFail(c, http.StatusBadRequest, "Invalid request: "+err.Error())
}
