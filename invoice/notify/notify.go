package notify

import "context"

// InvoiceReadyNotifier delivers invoice-ready notifications.
type InvoiceReadyNotifier interface {
	Send(ctx context.Context, evt InvoiceReadyEvent) error
}

// InvoiceReadyEvent mirrors the go-notifications OnReadyEvent without
// depending on it.
type InvoiceReadyEvent struct {
	Recipients       []string
	Channels         []string
	Locale           string
	ActorID          string
	InvoiceNumber    string
	FileName         string
	Format           string
	URL              string
	ExpiresAt        string
	Message          string
	ChannelOverrides map[string]map[string]any
	Attachments      []NotificationAttachment
}

// NotificationAttachment captures file payloads for notifications.
type NotificationAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
	Size        int64
}
