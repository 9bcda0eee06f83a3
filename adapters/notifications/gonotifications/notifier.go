package gonotifications

import (
	"context"

	"github.com/goliatone/go-invoice/invoice"
	"github.com/goliatone/go-invoice/invoice/notify"
	"github.com/goliatone/go-notifications/pkg/onready"
)

// Notifier adapts go-notifications OnReadyNotifier to invoice-ready events.
type Notifier struct {
	delegate onready.OnReadyNotifier
}

// NewNotifier wraps a go-notifications notifier.
func NewNotifier(delegate onready.OnReadyNotifier) *Notifier {
	return &Notifier{delegate: delegate}
}

// Send forwards the event to the underlying go-notifications notifier.
// Attachments are not forwarded; recipients follow the link instead.
func (n *Notifier) Send(ctx context.Context, evt notify.InvoiceReadyEvent) error {
	if n == nil || n.delegate == nil {
		return invoice.NewError(invoice.KindNotImpl, "go-notifications notifier not configured", nil)
	}

	payload := onready.OnReadyEvent{
		Recipients:       evt.Recipients,
		Locale:           evt.Locale,
		ActorID:          evt.ActorID,
		Channels:         evt.Channels,
		FileName:         evt.FileName,
		Format:           evt.Format,
		URL:              evt.URL,
		ExpiresAt:        evt.ExpiresAt,
		Parts:            1,
		Message:          evt.Message,
		ChannelOverrides: evt.ChannelOverrides,
	}

	if err := n.delegate.Send(ctx, payload); err != nil {
		return invoice.NewError(invoice.KindExternal, "invoice ready notification failed", err)
	}
	return nil
}
