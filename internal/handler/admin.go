package handler

import (
	"net/http"
	"strconv"

	"github.com/claimlens/sync-api/internal/model"
	"github.com/claimlens/sync-api/internal/store"
	"github.com/claimlens/sync-api/internal/txlog"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db       *gorm.DB
	contents *store.ContentStore
	txlog    *txlog.Logger
}

func NewAdminHandler(db *gorm.DB, contents *store.ContentStore, logger *txlog.Logger) *AdminHandler {
	return &AdminHandler{db: db, contents: contents, txlog: logger}
}

// GetStats returns content counts by status plus flag and log totals.
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	byStatus, err := h.contents.CountByStatus(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	var totalContents, totalFlags, activeFlags, totalLogEntries int64
	h.db.WithContext(ctx).Model(&model.ContentRecord{}).Count(&totalContents)
	h.db.WithContext(ctx).Model(&model.FlagRecord{}).Count(&totalFlags)
	h.db.WithContext(ctx).Model(&model.FlagRecord{}).
		Where("ignored_at IS NULL AND (expired_at IS NULL OR expired_at > NOW())").
		Count(&activeFlags)
	h.db.WithContext(ctx).Model(&model.TransactionLogEntry{}).Count(&totalLogEntries)

	c.JSON(http.StatusOK, gin.H{
		"contents": gin.H{
			"total":    totalContents,
			"byStatus": byStatus,
		},
		"flags": gin.H{
			"total":  totalFlags,
			"active": activeFlags,
		},
		"logEntries": totalLogEntries,
	})
}

// ClearLog bulk-deletes one content item's transaction log. This is the
// only deletion the log supports.
func (h *AdminHandler) ClearLog(c *gin.Context) {
	contentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content id"})
		return
	}

	if _, err := h.contents.Get(c.Request.Context(), contentID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return
	}

	deleted, err := h.txlog.ClearContent(c.Request.Context(), contentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
