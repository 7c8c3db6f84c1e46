package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/claimlens/sync-api/internal/bulk"
	"github.com/claimlens/sync-api/internal/model"
	"github.com/claimlens/sync-api/internal/store"
	"github.com/gin-gonic/gin"
)

// ProgressSource is where bulk progress is read from: redis when
// available, the in-memory sink otherwise.
type ProgressSource interface {
	GetProgress(ctx context.Context, operationID string) (*bulk.Progress, error)
}

type BulkHandler struct {
	orchestrator *bulk.Orchestrator
	outcomes     *store.OutcomeStore
	progress     ProgressSource
}

func NewBulkHandler(orchestrator *bulk.Orchestrator, outcomes *store.OutcomeStore, progress ProgressSource) *BulkHandler {
	return &BulkHandler{orchestrator: orchestrator, outcomes: outcomes, progress: progress}
}

type StartBulkRequest struct {
	ContentIDs []int64 `json:"contentIds" binding:"required"`
	BatchSize  int     `json:"batchSize"`
	Channel    string  `json:"channel"`
}

// Start kicks off a bulk ingest operation and returns its id.
func (h *BulkHandler) Start(c *gin.Context) {
	var req StartBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contentIds is required"})
		return
	}
	if req.BatchSize <= 0 {
		req.BatchSize = bulk.DefaultBatchSize
	}

	operationID, totalChunks, err := h.orchestrator.Start(c.Request.Context(), req.ContentIDs, req.BatchSize, req.Channel)
	if err != nil {
		if errors.Is(err, bulk.ErrEmptyInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "contentIds must not be empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start bulk operation"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"operationId": operationID,
		"totalChunks": totalChunks,
		"batchSize":   req.BatchSize,
	})
}

// Status reports one operation's cumulative progress and batch outcomes.
func (h *BulkHandler) Status(c *gin.Context) {
	operationID := c.Param("id")
	ctx := c.Request.Context()

	progress, err := h.progress.GetProgress(ctx, operationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "operation not found"})
		return
	}

	outcomes, err := h.outcomes.FindByOperation(ctx, operationID)
	if err != nil {
		outcomes = []model.BatchOutcome{}
	}

	c.JSON(http.StatusOK, gin.H{
		"operationId": operationID,
		"progress":    progress,
		"batches":     outcomes,
	})
}
