package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/claimlens/sync-api/internal/cache"
	"github.com/claimlens/sync-api/internal/client"
	"github.com/claimlens/sync-api/internal/model"
	"github.com/claimlens/sync-api/internal/queue"
	"github.com/claimlens/sync-api/internal/status"
	"github.com/claimlens/sync-api/internal/store"
	"github.com/claimlens/sync-api/internal/submit"
	"github.com/claimlens/sync-api/internal/txlog"
	"github.com/gin-gonic/gin"
)

type ContentHandler struct {
	contents  *store.ContentStore
	flags     *store.FlagStore
	submitter *submit.Submitter
	api       *client.AnalysisClient
	txlog     *txlog.Logger
	cache     *cache.RedisCache
	tasks     *queue.Queue
}

func NewContentHandler(contents *store.ContentStore, flags *store.FlagStore, submitter *submit.Submitter, api *client.AnalysisClient, logger *txlog.Logger, redisCache *cache.RedisCache, tasks *queue.Queue) *ContentHandler {
	return &ContentHandler{
		contents:  contents,
		flags:     flags,
		submitter: submitter,
		api:       api,
		txlog:     logger,
		cache:     redisCache,
		tasks:     tasks,
	}
}

type SubmitContentRequest struct {
	EntryID int64                  `json:"entryId" binding:"required"`
	SiteID  int64                  `json:"siteId" binding:"required"`
	Channel string                 `json:"channel"`
	URL     string                 `json:"url"`
	Content map[string]interface{} `json:"content"`
}

// Submit queues one content unit for asynchronous submission.
func (h *ContentHandler) Submit(c *gin.Context) {
	var req SubmitContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	submitReq := submit.Request{
		EntryID: req.EntryID,
		SiteID:  req.SiteID,
		Channel: req.Channel,
		URL:     req.URL,
		Content: req.Content,
	}
	ok := h.tasks.TryEnqueue(func(ctx context.Context) error {
		_, err := h.submitter.Submit(ctx, submitReq)
		if err != nil && !errors.Is(err, submit.ErrNotEligible) {
			return err
		}
		return nil
	})
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "submission queue is full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

// Get returns one content record with its flags, cached briefly in redis.
func (h *ContentHandler) Get(c *gin.Context) {
	contentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content id"})
		return
	}

	ctx := c.Request.Context()
	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, cache.ContentKey(contentID)); err == nil {
			c.Data(http.StatusOK, "application/json", cached)
			return
		}
	}

	record, err := h.contents.Get(ctx, contentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return
	}
	flags, err := h.flags.FindByContent(ctx, contentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load flags"})
		return
	}
	record.Flags = flags

	body, err := json.Marshal(record)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode content"})
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, cache.ContentKey(contentID), body); err != nil {
			log.Printf("[Content] Cache write for content %d failed: %v", contentID, err)
		}
	}
	c.Data(http.StatusOK, "application/json", body)
}

// IgnoreFlag dismisses one flag locally and tells the remote service. The
// next reconciliation either confirms or overwrites the local timestamp.
func (h *ContentHandler) IgnoreFlag(c *gin.Context) {
	record, flag, ok := h.resolveFlag(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	resp, err := h.api.IgnoreFlag(ctx, flag.RemoteFlagID)
	if err != nil || !resp.Success() {
		log.Printf("[Content] Remote ignore of flag %s failed: %v", flag.RemoteFlagID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "remote flag action failed"})
		return
	}

	now := time.Now()
	flag.IgnoredAt = &now
	if err := h.flags.Update(ctx, flag); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update flag"})
		return
	}

	h.afterFlagAction(c, record, flag, model.EventFlagIgnore, "flag ignored by user")
}

type RescheduleFlagRequest struct {
	ExpiredAt time.Time `json:"expired_at" binding:"required"`
}

// RescheduleFlag pushes a flag's expiration out, locally and remotely.
func (h *ContentHandler) RescheduleFlag(c *gin.Context) {
	record, flag, ok := h.resolveFlag(c)
	if !ok {
		return
	}

	var req RescheduleFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expired_at is required"})
		return
	}
	ctx := c.Request.Context()

	resp, err := h.api.RescheduleFlag(ctx, flag.RemoteFlagID, req.ExpiredAt)
	if err != nil || !resp.Success() {
		log.Printf("[Content] Remote reschedule of flag %s failed: %v", flag.RemoteFlagID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "remote flag action failed"})
		return
	}

	flag.ExpiredAt = &req.ExpiredAt
	if err := h.flags.Update(ctx, flag); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update flag"})
		return
	}

	h.afterFlagAction(c, record, flag, model.EventFlagReschedule, "flag rescheduled by user")
}

// ListLog returns the content's transaction log, newest first.
func (h *ContentHandler) ListLog(c *gin.Context) {
	contentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content id"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	entries, total, err := h.txlog.List(c.Request.Context(), contentID, (page-1)*limit, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load log"})
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, gin.H{
		"data":       entries,
		"page":       page,
		"limit":      limit,
		"totalCount": total,
		"totalPages": totalPages,
	})
}

func (h *ContentHandler) resolveFlag(c *gin.Context) (*model.ContentRecord, *model.FlagRecord, bool) {
	contentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content id"})
		return nil, nil, false
	}

	ctx := c.Request.Context()
	record, err := h.contents.Get(ctx, contentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return nil, nil, false
	}

	flag, err := h.flags.GetByRemoteID(ctx, c.Param("flagId"))
	if err != nil || flag.ContentID != record.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "flag not found"})
		return nil, nil, false
	}
	return record, flag, true
}

func (h *ContentHandler) afterFlagAction(c *gin.Context, record *model.ContentRecord, flag *model.FlagRecord, event, message string) {
	ctx := c.Request.Context()

	// A local flag action makes the analyzed view stale until the next
	// remote cycle.
	if next, err := status.Transition(status.Parse(record.Status), status.EventUserFlagAction); err == nil {
		record.Status = string(next)
	}
	if count, err := h.flags.CountActive(ctx, record.ID); err == nil {
		record.FlagCount = int(count)
	}
	if err := h.contents.Save(ctx, record); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update content"})
		return
	}

	h.txlog.Record(ctx, txlog.Entry{
		ContentID: record.ID,
		Status:    record.Status,
		Message:   message + " (" + flag.RemoteFlagID + ")",
		Event:     event,
	})

	if h.cache != nil {
		if err := h.cache.Delete(ctx, cache.ContentKey(record.ID)); err != nil {
			log.Printf("[Content] Cache invalidation for content %d failed: %v", record.ID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": record.Status, "flagCount": record.FlagCount})
}
