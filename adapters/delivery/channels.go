package invoicedelivery

import (
	"context"

	"github.com/goliatone/go-invoice/invoice"
)

// DownloadChannel publishes the artifact and returns a download URL.
type DownloadChannel struct {
	Publisher Publisher
	Label     string
}

func (c DownloadChannel) Option() invoice.ShareOption {
	return invoice.ShareOption{ID: OptionDownload, Label: labelOr(c.Label, "Download")}
}

func (c DownloadChannel) Deliver(ctx context.Context, artifact invoice.ExportArtifact, target invoice.ShareTarget) (invoice.ShareResult, error) {
	_ = target
	link, err := c.Publisher.Publish(ctx, artifact, false)
	if err != nil {
		return invoice.ShareResult{}, err
	}
	return invoice.ShareResult{Success: true, URL: link.URL, Message: artifact.Filename}, nil
}

// CopyLinkChannel publishes the artifact and returns a signed link for the
// caller to put on its clipboard.
type CopyLinkChannel struct {
	Publisher Publisher
	Label     string
}

func (c CopyLinkChannel) Option() invoice.ShareOption {
	return invoice.ShareOption{ID: OptionCopyLink, Label: labelOr(c.Label, "Copy link")}
}

func (c CopyLinkChannel) Deliver(ctx context.Context, artifact invoice.ExportArtifact, target invoice.ShareTarget) (invoice.ShareResult, error) {
	_ = target
	link, err := c.Publisher.Publish(ctx, artifact, true)
	if err != nil {
		return invoice.ShareResult{}, err
	}
	return invoice.ShareResult{Success: true, URL: link.URL, Message: "link expires " + link.ExpiresAt.UTC().Format("2006-01-02 15:04 MST")}, nil
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
