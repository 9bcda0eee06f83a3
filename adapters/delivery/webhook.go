package invoicedelivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-invoice/invoice"
)

// WebhookMessage describes an outbound webhook call.
type WebhookMessage struct {
	URL     string
	Method  string
	Headers map[string]string
	Payload any
}

// WebhookSender delivers webhook messages.
type WebhookSender interface {
	Send(ctx context.Context, msg WebhookMessage) error
}

// HTTPWebhookSender posts JSON payloads via HTTP.
type HTTPWebhookSender struct {
	Client *http.Client
}

// Send posts the webhook payload.
func (s *HTTPWebhookSender) Send(ctx context.Context, msg WebhookMessage) error {
	if s == nil {
		return invoice.NewError(invoice.KindInternal, "webhook sender is nil", nil)
	}
	if strings.TrimSpace(msg.URL) == "" {
		return invoice.NewError(invoice.KindValidation, "webhook URL is required", nil)
	}
	method := msg.Method
	if method == "" {
		method = http.MethodPost
	}

	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return invoice.NewError(invoice.KindValidation, "webhook payload invalid", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, msg.URL, bytes.NewReader(payload))
	if err != nil {
		return invoice.NewError(invoice.KindInternal, "webhook request failed", err)
	}
	for key, value := range msg.Headers {
		if strings.TrimSpace(key) != "" {
			req.Header.Set(key, value)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return invoice.NewError(invoice.KindExternal, "webhook request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return invoice.NewError(invoice.KindExternal, fmt.Sprintf("webhook responded %d", resp.StatusCode), nil)
	}
	return nil
}

// SharePayload is the JSON body posted to messaging webhooks.
type SharePayload struct {
	Event      string             `json:"event"`
	Filename   string             `json:"filename"`
	Kind       string             `json:"kind"`
	Size       int64              `json:"size"`
	Recipients []string           `json:"recipients,omitempty"`
	Message    string             `json:"message,omitempty"`
	Link       string             `json:"link,omitempty"`
	Attachment *WebhookAttachment `json:"attachment,omitempty"`
	SentAt     time.Time          `json:"sent_at"`
}

// WebhookAttachment carries base64 artifact data.
type WebhookAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        string `json:"data"`
}

// MessagingChannel hands the artifact to a messaging bridge webhook.
type MessagingChannel struct {
	Sender            WebhookSender
	URL               string
	Headers           map[string]string
	Publisher         Publisher
	Label             string
	MaxAttachmentSize int64
	Now               func() time.Time
}

func (c MessagingChannel) Option() invoice.ShareOption {
	return invoice.ShareOption{ID: OptionMessaging, Label: labelOr(c.Label, "Messaging app")}
}

func (c MessagingChannel) Deliver(ctx context.Context, artifact invoice.ExportArtifact, target invoice.ShareTarget) (invoice.ShareResult, error) {
	if c.Sender == nil || strings.TrimSpace(c.URL) == "" {
		return invoice.ShareResult{}, invoice.NewError(invoice.KindNotImpl, "messaging webhook not configured", nil)
	}

	payload := SharePayload{
		Event:      "invoice.shared",
		Filename:   artifact.Filename,
		Kind:       string(artifact.Kind),
		Size:       artifact.Size(),
		Recipients: target.Recipients,
		Message:    target.Message,
		SentAt:     nowOr(c.Now),
	}
	if withinLimit(artifact.Size(), c.MaxAttachmentSize) {
		payload.Attachment = &WebhookAttachment{
			Filename:    artifact.Filename,
			ContentType: string(artifact.Kind),
			Size:        artifact.Size(),
			Data:        base64.StdEncoding.EncodeToString(artifact.Data),
		}
	} else {
		link, err := c.Publisher.Publish(ctx, artifact, false)
		if err != nil {
			return invoice.ShareResult{}, invoice.NewError(invoice.KindValidation, "invoice too large to attach", err)
		}
		payload.Link = link.URL
	}

	if err := c.Sender.Send(ctx, WebhookMessage{URL: c.URL, Headers: c.Headers, Payload: payload}); err != nil {
		return invoice.ShareResult{}, err
	}
	return invoice.ShareResult{Success: true, URL: payload.Link}, nil
}
