package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketsync/internal/record"
	"marketsync/internal/service"
)

// SnapshotSource is satisfied by *service.ConsolidationService.
type SnapshotSource interface {
	Latest(ctx context.Context) (*service.Snapshot, error)
	Refresh(ctx context.Context) (*service.Snapshot, error)
}

type SnapshotHandler struct {
	Service SnapshotSource
	Logger  *zap.Logger
}

func (h *SnapshotHandler) Register(r *gin.Engine) {
	r.GET("/api/hyperparameters", h.listHyperparameters)
	r.GET("/api/hyperparameters/:section", h.getSection)
	r.GET("/api/markets", h.listMarkets)
	r.POST("/api/snapshot/refresh", h.refresh)
}

// @Summary Consolidated hyperparameters
// @Tags snapshot
// @Success 200 {object} apiResponse
// @Router /api/hyperparameters [get]
func (h *SnapshotHandler) listHyperparameters(c *gin.Context) {
	snap, ok := h.latest(c)
	if !ok {
		return
	}
	Ok(c, snap.Hyperparameters, snapshotMeta(snap))
}

// @Summary Hyperparameters of one section
// @Tags snapshot
// @Param section path string true "section name"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/hyperparameters/{section} [get]
func (h *SnapshotHandler) getSection(c *gin.Context) {
	snap, ok := h.latest(c)
	if !ok {
		return
	}
	section := strings.TrimSpace(c.Param("section"))
	params, found := snap.Hyperparameters[section]
	if !found {
		Error(c, http.StatusNotFound, "unknown section", map[string]any{"section": section})
		return
	}
	Ok(c, params, snapshotMeta(snap))
}

// @Summary Merged market records
// @Tags snapshot
// @Param question query string false "substring filter on question"
// @Param limit query int false "max records"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/markets [get]
func (h *SnapshotHandler) listMarkets(c *gin.Context) {
	snap, ok := h.latest(c)
	if !ok {
		return
	}
	filter := strings.ToLower(strings.TrimSpace(c.Query("question")))
	var items []*record.Record
	if snap.Markets != nil {
		for _, r := range snap.Markets.Records {
			if filter != "" && !strings.Contains(strings.ToLower(r.Question()), filter) {
				continue
			}
			items = append(items, r)
		}
	}
	total := len(items)
	offset := intQuery(c, "offset", 0)
	limit := intQuery(c, "limit", 0)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	if items == nil {
		items = []*record.Record{}
	}
	meta := snapshotMeta(snap)
	meta["total"] = total
	meta["offset"] = offset
	if snap.Markets != nil {
		meta["columns"] = snap.Markets.Columns
	}
	Ok(c, items, meta)
}

// @Summary Rebuild the snapshot from the worksheet store
// @Tags snapshot
// @Success 200 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Router /api/snapshot/refresh [post]
func (h *SnapshotHandler) refresh(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	snap, err := h.Service.Refresh(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("snapshot refresh failed", zap.Error(err))
		}
		ErrorFrom(c, err, nil)
		return
	}
	meta := snapshotMeta(snap)
	meta["markets"] = snap.Markets.Len()
	meta["sections"] = len(snap.Hyperparameters)
	Ok(c, nil, meta)
}

func (h *SnapshotHandler) latest(c *gin.Context) (*service.Snapshot, bool) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return nil, false
	}
	snap, err := h.Service.Latest(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("snapshot unavailable", zap.Error(err))
		}
		ErrorFrom(c, err, nil)
		return nil, false
	}
	return snap, true
}

func snapshotMeta(s *service.Snapshot) map[string]any {
	return map[string]any{
		"run_id":       s.RunID,
		"generated_at": s.GeneratedAt,
		"read_only":    s.ReadOnly,
	}
}
