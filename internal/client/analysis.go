// Package client talks to the remote content-analysis API. All calls are
// bearer-token authenticated JSON over HTTP; responses carry a
// status/data envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claimlens/sync-api/internal/middleware"
)

type AnalysisClient struct {
	baseURL    string
	token      string
	webhookURL string
	httpClient *http.Client
}

func NewAnalysisClient(baseURL, token, webhookURL string) *AnalysisClient {
	return &AnalysisClient{
		baseURL:    baseURL,
		token:      token,
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SubmitRequest carries one content unit to the analysis service.
// CustomID is the correlation id the service echoes back in webhooks.
type SubmitRequest struct {
	CustomID string                 `json:"custom_id"`
	Channel  string                 `json:"channel"`
	URL      string                 `json:"url"`
	Content  map[string]interface{} `json:"content"`
}

type submitEnvelope struct {
	SubmitRequest
	WebhookURL string `json:"webhook_url"`
}

type batchEnvelope struct {
	Items      []SubmitRequest `json:"items"`
	WebhookURL string          `json:"webhook_url"`
}

// Response is the status/data envelope every endpoint returns.
type Response struct {
	Status string                 `json:"status"`
	Data   map[string]interface{} `json:"data"`
}

// Success reports whether the remote accepted the request.
func (r *Response) Success() bool {
	return r.Status == "success"
}

// SubmitContent submits a single content unit for analysis.
func (c *AnalysisClient) SubmitContent(ctx context.Context, req SubmitRequest) (*Response, error) {
	return c.post(ctx, "/contents", submitEnvelope{SubmitRequest: req, WebhookURL: c.webhookURL})
}

// SubmitBatch submits up to one chunk of content units in one call.
func (c *AnalysisClient) SubmitBatch(ctx context.Context, items []SubmitRequest) (*Response, error) {
	return c.post(ctx, "/contents/batch", batchEnvelope{Items: items, WebhookURL: c.webhookURL})
}

// IgnoreFlag tells the remote service a flag was dismissed locally.
func (c *AnalysisClient) IgnoreFlag(ctx context.Context, remoteFlagID string) (*Response, error) {
	return c.post(ctx, "/flags/"+remoteFlagID+"/ignore", struct{}{})
}

// RescheduleFlag pushes a flag's expiration out to expiredAt.
func (c *AnalysisClient) RescheduleFlag(ctx context.Context, remoteFlagID string, expiredAt time.Time) (*Response, error) {
	body := map[string]string{"expired_at": expiredAt.Format(time.RFC3339)}
	return c.post(ctx, "/flags/"+remoteFlagID+"/reschedule", body)
}

func (c *AnalysisClient) post(ctx context.Context, endpoint string, body interface{}) (*Response, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		middleware.RecordAnalysisCall(endpoint, false, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		middleware.RecordAnalysisCall(endpoint, false, time.Since(start))
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("analysis API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		middleware.RecordAnalysisCall(endpoint, false, time.Since(start))
		return nil, err
	}

	middleware.RecordAnalysisCall(endpoint, result.Success(), time.Since(start))
	return &result, nil
}
