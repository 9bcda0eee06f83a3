package invoicedelivery

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-invoice/invoice"
	"github.com/goliatone/go-invoice/invoice/notify"
)

// NotifyChannel publishes the artifact and sends an invoice-ready
// notification with the link.
type NotifyChannel struct {
	Notifier          notify.InvoiceReadyNotifier
	Publisher         Publisher
	Channels          []string
	Label             string
	MaxAttachmentSize int64
	Logger            invoice.Logger
}

func (c NotifyChannel) Option() invoice.ShareOption {
	return invoice.ShareOption{ID: OptionNotify, Label: labelOr(c.Label, "Notify")}
}

func (c NotifyChannel) Deliver(ctx context.Context, artifact invoice.ExportArtifact, target invoice.ShareTarget) (invoice.ShareResult, error) {
	if c.Notifier == nil {
		return invoice.ShareResult{}, invoice.NewError(invoice.KindNotImpl, "notifier not configured", nil)
	}
	if err := checkRecipients(target.Recipients); err != nil {
		return invoice.ShareResult{}, err
	}
	link, err := c.Publisher.Publish(ctx, artifact, false)
	if err != nil {
		return invoice.ShareResult{}, err
	}

	evt := notify.InvoiceReadyEvent{
		Recipients:  target.Recipients,
		Channels:    normalizeNotifyChannels(c.Channels),
		Locale:      target.Locale,
		FileName:    artifact.Filename,
		Format:      artifact.Kind.Extension(),
		URL:         link.URL,
		ExpiresAt:   link.ExpiresAt.Format(time.RFC3339),
		Message:     target.Message,
		Attachments: resolveNotifyAttachments(attachmentFor(artifact), c.MaxAttachmentSize, c.Logger),
	}
	if err := c.Notifier.Send(ctx, evt); err != nil {
		return invoice.ShareResult{}, err
	}
	return invoice.ShareResult{Success: true, URL: link.URL}, nil
}

func normalizeNotifyChannels(channels []string) []string {
	out := make([]string, 0, len(channels))
	for _, channel := range channels {
		if channel = strings.TrimSpace(channel); channel != "" {
			out = append(out, channel)
		}
	}
	if len(out) == 0 {
		return []string{"email"}
	}
	return out
}

func resolveNotifyAttachments(attachment *Attachment, maxSize int64, logger invoice.Logger) []notify.NotificationAttachment {
	if attachment == nil || len(attachment.Data) == 0 {
		return nil
	}
	if !withinLimit(attachment.Size, maxSize) {
		if logger != nil {
			logger.Infof("notification attachment skipped: size %d exceeds limit", attachment.Size)
		}
		return nil
	}
	return []notify.NotificationAttachment{{
		Filename:    attachment.Filename,
		ContentType: attachment.ContentType,
		Data:        attachment.Data,
		Size:        attachment.Size,
	}}
}
