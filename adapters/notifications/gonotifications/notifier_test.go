package gonotifications

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-invoice/invoice"
	"github.com/goliatone/go-invoice/invoice/notify"
	"github.com/goliatone/go-notifications/pkg/onready"
)

type captureNotifier struct {
	event onready.OnReadyEvent
	err   error
}

func (c *captureNotifier) Send(ctx context.Context, evt onready.OnReadyEvent) error {
	_ = ctx
	c.event = evt
	return c.err
}

func TestNotifier_SendMapsFields(t *testing.T) {
	capture := &captureNotifier{}
	notifier := NewNotifier(capture)

	err := notifier.Send(context.Background(), notify.InvoiceReadyEvent{
		Recipients:    []string{"user-1"},
		Channels:      []string{"email"},
		Locale:        "en",
		ActorID:       "actor-1",
		InvoiceNumber: "INV-1",
		FileName:      "invoice-INV-1.pdf",
		Format:        "pdf",
		URL:           "https://example.com/artifacts/invoice-INV-1.pdf",
		ExpiresAt:     "2025-01-01T10:00:00Z",
		Message:       "Your invoice is ready",
		ChannelOverrides: map[string]map[string]any{
			"email": {"cta_label": "Download"},
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if capture.event.FileName != "invoice-INV-1.pdf" {
		t.Fatalf("expected filename invoice-INV-1.pdf, got %s", capture.event.FileName)
	}
	if capture.event.ActorID != "actor-1" || capture.event.Format != "pdf" {
		t.Fatalf("unexpected event: %+v", capture.event)
	}
}

func TestNotifier_Errors(t *testing.T) {
	var notifier *Notifier
	if err := notifier.Send(context.Background(), notify.InvoiceReadyEvent{}); invoice.KindFromError(err) != invoice.KindNotImpl {
		t.Fatalf("expected not implemented, got %v", err)
	}

	failing := NewNotifier(&captureNotifier{err: errors.New("queue down")})
	if err := failing.Send(context.Background(), notify.InvoiceReadyEvent{}); invoice.KindFromError(err) != invoice.KindExternal {
		t.Fatalf("expected external error, got %v", err)
	}
}
