package invoicedelivery

import (
	"time"

	"github.com/goliatone/go-invoice/invoice"
)

// Share option ids offered in the fallback menu.
const (
	OptionDownload  = "download"
	OptionCopyLink  = "copy_link"
	OptionEmail     = "email"
	OptionMessaging = "messaging"
	OptionNotify    = "notify"
)

const (
	DefaultLinkTTL           = 30 * time.Minute
	DefaultMaxAttachmentSize = 10 * 1024 * 1024
	DefaultMaxRecipients     = 50
)

// Attachment captures file data for delivery.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
	Size        int64
}

func attachmentFor(artifact invoice.ExportArtifact) *Attachment {
	return &Attachment{
		Filename:    artifact.Filename,
		ContentType: string(artifact.Kind),
		Data:        artifact.Data,
		Size:        artifact.Size(),
	}
}

func withinLimit(size, limit int64) bool {
	if limit <= 0 {
		limit = DefaultMaxAttachmentSize
	}
	return size <= limit
}

func checkRecipients(recipients []string) error {
	if len(recipients) == 0 {
		return invoice.NewError(invoice.KindValidation, "at least one recipient is required", nil)
	}
	if len(recipients) > DefaultMaxRecipients {
		return invoice.NewError(invoice.KindValidation, "too many recipients", nil)
	}
	return nil
}

func nowOr(nowFn func() time.Time) time.Time {
	if nowFn != nil {
		return nowFn()
	}
	return time.Now()
}
