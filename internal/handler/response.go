package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"marketsync/internal/selection"
	"marketsync/internal/service"
	"marketsync/internal/sheet"
	"marketsync/internal/sheetsync"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{Code: 0, Message: "ok", Data: data, Meta: meta})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{Code: status, Message: message, Meta: meta})
}

// ErrorFrom picks the status for a pipeline error and adds the failed stage
// to meta.
func ErrorFrom(c *gin.Context, err error, data any) {
	meta := map[string]any{}
	if stage, ok := service.FailedStage(err); ok {
		meta["stage"] = string(stage)
	}
	status := statusFor(err)
	c.JSON(status, apiResponse{Code: status, Message: err.Error(), Data: data, Meta: meta})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, selection.ErrEmptySelection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sheet.ErrCredentialsUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, sheet.ErrSourceUnavailable), errors.Is(err, sheetsync.ErrSyncWrite):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryDefault(c *gin.Context, key string, def bool) bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}
