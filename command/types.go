package command

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoice/invoice"
)

// ExportInvoice exports a session surface in the given operation.
type ExportInvoice struct {
	SessionID string
	Operation invoice.Operation
	Result    *invoice.ExportArtifact
}

func (ExportInvoice) Type() string { return "invoice.export" }

func (msg ExportInvoice) Validate() error {
	if msg.SessionID == "" {
		return errors.New("session ID is required", errors.CategoryValidation).
			WithTextCode("SESSION_ID_REQUIRED")
	}
	switch msg.Operation {
	case invoice.OpExportPDF, invoice.OpExportImage, invoice.OpExportHTML, invoice.OpPrintPDF:
		return nil
	case "":
		return errors.New("export operation is required", errors.CategoryValidation).
			WithTextCode("OPERATION_REQUIRED")
	default:
		return errors.New("unsupported export operation", errors.CategoryValidation).
			WithTextCode("OPERATION_UNSUPPORTED").
			WithMetadata(map[string]any{"operation": string(msg.Operation)})
	}
}

// CopyInvoiceImage writes the session raster to the clipboard.
type CopyInvoiceImage struct {
	SessionID string
	Result    *invoice.Outcome
}

func (CopyInvoiceImage) Type() string { return "invoice.clipboard.copy" }

func (msg CopyInvoiceImage) Validate() error {
	if msg.SessionID == "" {
		return errors.New("session ID is required", errors.CategoryValidation).
			WithTextCode("SESSION_ID_REQUIRED")
	}
	return nil
}

// ShareInvoice starts a share for a session.
type ShareInvoice struct {
	SessionID string
	Result    *invoice.ShareResult
}

func (ShareInvoice) Type() string { return "invoice.share" }

func (msg ShareInvoice) Validate() error {
	if msg.SessionID == "" {
		return errors.New("session ID is required", errors.CategoryValidation).
			WithTextCode("SESSION_ID_REQUIRED")
	}
	return nil
}

// CompleteShare completes a pending share with the chosen option.
type CompleteShare struct {
	SessionID string
	OptionID  string
	Target    invoice.ShareTarget
	Result    *invoice.ShareResult
}

func (CompleteShare) Type() string { return "invoice.share.complete" }

func (msg CompleteShare) Validate() error {
	if msg.SessionID == "" {
		return errors.New("session ID is required", errors.CategoryValidation).
			WithTextCode("SESSION_ID_REQUIRED")
	}
	if msg.OptionID == "" {
		return errors.New("share option is required", errors.CategoryValidation).
			WithTextCode("OPTION_REQUIRED")
	}
	return nil
}

// DismissShare closes the share chooser without sharing.
type DismissShare struct {
	SessionID string
}

func (DismissShare) Type() string { return "invoice.share.dismiss" }

func (msg DismissShare) Validate() error {
	if msg.SessionID == "" {
		return errors.New("session ID is required", errors.CategoryValidation).
			WithTextCode("SESSION_ID_REQUIRED")
	}
	return nil
}

// PurgeHistory removes history rows created before Before.
type PurgeHistory struct {
	Before time.Time
	Result *int64
}

func (PurgeHistory) Type() string { return "invoice.history.purge" }

func (msg PurgeHistory) Validate() error {
	if msg.Before.IsZero() {
		return errors.New("purge cutoff is required", errors.CategoryValidation).
			WithTextCode("CUTOFF_REQUIRED")
	}
	return nil
}
