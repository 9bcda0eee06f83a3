package command

import (
	"context"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoice/invoice"
)

func serviceRequired() error {
	return errors.New("invoice service is required", errors.CategoryInternal).
		WithTextCode("SERVICE_REQUIRED")
}

func session(svc invoice.Service, id string) (*invoice.Session, error) {
	if svc == nil {
		return nil, serviceRequired()
	}
	return svc.Session(id)
}

// ExportInvoiceHandler runs an export on an open session.
type ExportInvoiceHandler struct {
	Service invoice.Service
}

func NewExportInvoiceHandler(svc invoice.Service) *ExportInvoiceHandler {
	return &ExportInvoiceHandler{Service: svc}
}

func (h *ExportInvoiceHandler) Execute(ctx context.Context, msg ExportInvoice) error {
	if h == nil {
		return serviceRequired()
	}
	sess, err := session(h.Service, msg.SessionID)
	if err != nil {
		return err
	}
	artifact, err := sess.Export(ctx, msg.Operation)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = artifact
	}
	if res := gcmd.ResultFromContext[invoice.ExportArtifact](ctx); res != nil {
		res.Store(artifact)
	}
	return nil
}

// CopyInvoiceImageHandler copies a session raster to the clipboard.
type CopyInvoiceImageHandler struct {
	Service invoice.Service
}

func NewCopyInvoiceImageHandler(svc invoice.Service) *CopyInvoiceImageHandler {
	return &CopyInvoiceImageHandler{Service: svc}
}

func (h *CopyInvoiceImageHandler) Execute(ctx context.Context, msg CopyInvoiceImage) error {
	if h == nil {
		return serviceRequired()
	}
	sess, err := session(h.Service, msg.SessionID)
	if err != nil {
		return err
	}
	_, copyErr := sess.CopyImage(ctx)
	if outcome, ok := sess.LastOutcome(); ok {
		if msg.Result != nil {
			*msg.Result = outcome
		}
		if res := gcmd.ResultFromContext[invoice.Outcome](ctx); res != nil {
			res.Store(outcome)
		}
	}
	return copyErr
}

// ShareInvoiceHandler starts a share.
type ShareInvoiceHandler struct {
	Service invoice.Service
}

func NewShareInvoiceHandler(svc invoice.Service) *ShareInvoiceHandler {
	return &ShareInvoiceHandler{Service: svc}
}

func (h *ShareInvoiceHandler) Execute(ctx context.Context, msg ShareInvoice) error {
	if h == nil {
		return serviceRequired()
	}
	sess, err := session(h.Service, msg.SessionID)
	if err != nil {
		return err
	}
	result, err := sess.Share(ctx)
	if err != nil {
		return err
	}
	storeShare(ctx, msg.Result, result)
	return nil
}

// CompleteShareHandler delivers a pending share through a chosen option.
type CompleteShareHandler struct {
	Service invoice.Service
}

func NewCompleteShareHandler(svc invoice.Service) *CompleteShareHandler {
	return &CompleteShareHandler{Service: svc}
}

func (h *CompleteShareHandler) Execute(ctx context.Context, msg CompleteShare) error {
	if h == nil {
		return serviceRequired()
	}
	sess, err := session(h.Service, msg.SessionID)
	if err != nil {
		return err
	}
	result, err := sess.CompleteShare(ctx, msg.OptionID, msg.Target)
	if err != nil {
		return err
	}
	storeShare(ctx, msg.Result, result)
	return nil
}

// DismissShareHandler closes a share chooser.
type DismissShareHandler struct {
	Service invoice.Service
}

func NewDismissShareHandler(svc invoice.Service) *DismissShareHandler {
	return &DismissShareHandler{Service: svc}
}

func (h *DismissShareHandler) Execute(ctx context.Context, msg DismissShare) error {
	if h == nil {
		return serviceRequired()
	}
	sess, err := session(h.Service, msg.SessionID)
	if err != nil {
		return err
	}
	return sess.DismissShare(ctx)
}

func storeShare(ctx context.Context, dst *invoice.ShareResult, result invoice.ShareResult) {
	if dst != nil {
		*dst = result
	}
	if res := gcmd.ResultFromContext[invoice.ShareResult](ctx); res != nil {
		res.Store(result)
	}
}
