package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/claimlens/sync-api/internal/reconcile"
)

// Payload is the body of one inbound webhook delivery. Version is the
// per-content delivery counter the remote service increments on every
// notification; it drives the idempotency guard.
type Payload struct {
	Event   string      `json:"event"`
	Status  string      `json:"status"`
	Version int64       `json:"version"`
	Data    PayloadData `json:"data"`
}

type PayloadData struct {
	Content PayloadContent `json:"content"`
}

type PayloadContent struct {
	ID             string        `json:"id"`
	CustomID       string        `json:"custom_id"`
	AnalysisStatus string        `json:"analysis_status"`
	ChannelID      *string       `json:"channel_id"`
	AnalyzedAt     *string       `json:"analyzed_at"`
	ExpiredAt      *string       `json:"expired_at"`
	Flags          []PayloadFlag `json:"flags"`
}

type PayloadFlag struct {
	ID             string  `json:"id"`
	Flag           string  `json:"flag"`
	Reason         *string `json:"reason"`
	Snippet        *string `json:"snippet"`
	LastAnalyzedAt *string `json:"last_analyzed_at"`
	ExpiredAt      *string `json:"expired_at"`
	IgnoredAt      *string `json:"ignored_at"`
}

// ParsePayload decodes a raw webhook body. It is the single place inbound
// JSON becomes domain values; nothing downstream touches raw fields.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("unparsable webhook body: %w", err)
	}
	if p.Data.Content.CustomID == "" {
		return nil, fmt.Errorf("webhook body missing data.content.custom_id")
	}
	return &p, nil
}

// RemoteFlags converts the payload's flag list to the reconciler's input.
func (p *Payload) RemoteFlags() []reconcile.RemoteFlag {
	flags := make([]reconcile.RemoteFlag, 0, len(p.Data.Content.Flags))
	for _, f := range p.Data.Content.Flags {
		flags = append(flags, reconcile.RemoteFlag{
			RemoteID:       f.ID,
			Category:       f.Flag,
			Reason:         stringValue(f.Reason),
			Snippet:        stringValue(f.Snippet),
			LastAnalyzedAt: parseTime(f.LastAnalyzedAt),
			ExpiredAt:      parseTime(f.ExpiredAt),
			IgnoredAt:      parseTime(f.IgnoredAt),
		})
	}
	return flags
}

// parseTime reads an RFC 3339 timestamp. Missing or malformed values come
// back nil; a bad date on one field must not reject the whole delivery.
func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
