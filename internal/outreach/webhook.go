package outreach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Webhook hands deliveries to an HTTP endpoint (an email or voice provider
// bridge). Each POST carries an Idempotency-Key so the bridge can drop
// duplicates.
type Webhook struct {
	url   string
	token string
	http  *http.Client
}

func NewWebhook(url, token string) *Webhook {
	return &Webhook{url: url, token: token, http: &http.Client{Timeout: 30 * time.Second}}
}

type webhookPayload struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
	Script  string `json:"script,omitempty"`
}

func (w *Webhook) SendEmail(ctx context.Context, msg Email) error {
	return w.post(ctx, webhookPayload{Channel: "email", To: msg.To, Subject: msg.Subject, Body: msg.Body})
}

func (w *Webhook) Call(ctx context.Context, c Call) error {
	return w.post(ctx, webhookPayload{Channel: "voice", To: c.To, Script: c.Script})
}

func (w *Webhook) post(ctx context.Context, p webhookPayload) error {
	if strings.TrimSpace(w.url) == "" {
		return fmt.Errorf("outreach: webhook url is empty")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("outreach: %s: %w", p.Channel, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("outreach: %s: unexpected status %s: %s", p.Channel, resp.Status, strings.TrimSpace(string(raw)))
	}
	return nil
}
