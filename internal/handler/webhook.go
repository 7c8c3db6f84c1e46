package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/claimlens/sync-api/internal/cache"
	"github.com/claimlens/sync-api/internal/correlation"
	"github.com/claimlens/sync-api/internal/middleware"
	"github.com/claimlens/sync-api/internal/webhook"
	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	processor *webhook.Processor
	cache     *cache.RedisCache
}

func NewWebhookHandler(processor *webhook.Processor, redisCache *cache.RedisCache) *WebhookHandler {
	return &WebhookHandler{processor: processor, cache: redisCache}
}

// Receive handles one inbound delivery from the analysis service. Callers
// only ever see a generic success/failure body; details stay in the logs.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "unreadable body"})
		return
	}

	result, err := h.processor.Process(c.Request.Context(), body, c.GetHeader("Signature"))
	if err != nil {
		var malformed *correlation.MalformedError
		switch {
		case errors.Is(err, webhook.ErrMissingSignature), errors.Is(err, webhook.ErrInvalidSignature):
			log.Printf("[Webhook] Rejected delivery: %v", err)
			middleware.RecordWebhookDelivery("rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid signature"})
		case errors.As(err, &malformed), errors.Is(err, webhook.ErrUnknownContent):
			log.Printf("[Webhook] Undeliverable: %v", err)
			middleware.RecordWebhookDelivery("rejected")
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "unable to resolve delivery"})
		default:
			log.Printf("[Webhook] Processing failed: %v", err)
			middleware.RecordWebhookDelivery("failed")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "processing failed"})
		}
		return
	}

	if result.Discarded {
		middleware.RecordWebhookDelivery("discarded")
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "duplicate delivery discarded"})
		return
	}

	middleware.RecordWebhookDelivery("accepted")
	if h.cache != nil {
		if err := h.cache.Delete(c.Request.Context(), cache.ContentKey(result.ContentID)); err != nil {
			log.Printf("[Webhook] Cache invalidation for content %d failed: %v", result.ContentID, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "delivery applied"})
}
