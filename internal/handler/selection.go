package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketsync/internal/service"
)

// SelectionRunner is satisfied by *service.SelectionService.
type SelectionRunner interface {
	Run(ctx context.Context, opts service.RunOptions) (*service.RunResult, error)
}

type SelectionHandler struct {
	Service SelectionRunner
	Logger  *zap.Logger
}

func (h *SelectionHandler) Register(r *gin.Engine) {
	r.POST("/api/selection/run", h.run)
}

// @Summary Run market selection
// @Tags selection
// @Param dry_run query bool false "rank without writing the destination"
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Router /api/selection/run [post]
func (h *SelectionHandler) run(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	opts := service.RunOptions{DryRun: boolQueryDefault(c, "dry_run", false)}
	result, err := h.Service.Run(c.Request.Context(), opts)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("selection run failed", zap.Bool("dry_run", opts.DryRun), zap.Error(err))
		}
		var data any
		if result != nil {
			data = result
		}
		ErrorFrom(c, err, data)
		return
	}
	Ok(c, result, map[string]any{"partial": result.Partial})
}
