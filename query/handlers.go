package query

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoice/invoice"
)

func serviceRequired() error {
	return errors.New("invoice service is required", errors.CategoryInternal).
		WithTextCode("SERVICE_REQUIRED")
}

// ListTemplatesHandler returns the template catalog.
type ListTemplatesHandler struct {
	Service invoice.Service
}

func NewListTemplatesHandler(svc invoice.Service) *ListTemplatesHandler {
	return &ListTemplatesHandler{Service: svc}
}

func (h *ListTemplatesHandler) Query(ctx context.Context, msg ListTemplates) ([]invoice.TemplateInfo, error) {
	_ = ctx
	_ = msg
	if h == nil || h.Service == nil {
		return nil, serviceRequired()
	}
	return h.Service.Templates(), nil
}

// SessionStatusHandler returns a session snapshot.
type SessionStatusHandler struct {
	Service invoice.Service
}

func NewSessionStatusHandler(svc invoice.Service) *SessionStatusHandler {
	return &SessionStatusHandler{Service: svc}
}

func (h *SessionStatusHandler) Query(ctx context.Context, msg SessionStatus) (Status, error) {
	_ = ctx
	if h == nil || h.Service == nil {
		return Status{}, serviceRequired()
	}
	sess, err := h.Service.Session(msg.SessionID)
	if err != nil {
		return Status{}, err
	}
	surface := sess.Surface()
	status := Status{
		ID:            sess.ID(),
		TemplateID:    surface.TemplateID,
		InvoiceNumber: surface.InvoiceNumber,
		State:         sess.State(),
		Busy:          sess.Exporting(),
	}
	if outcome, ok := sess.LastOutcome(); ok {
		status.Outcome = &outcome
	}
	_, status.HasPending = sess.PendingArtifact()
	return status, nil
}

// InvoiceHistoryHandler returns recorded outcomes.
type InvoiceHistoryHandler struct {
	Service invoice.Service
}

func NewInvoiceHistoryHandler(svc invoice.Service) *InvoiceHistoryHandler {
	return &InvoiceHistoryHandler{Service: svc}
}

func (h *InvoiceHistoryHandler) Query(ctx context.Context, msg InvoiceHistory) ([]invoice.HistoryRecord, error) {
	if h == nil || h.Service == nil {
		return nil, serviceRequired()
	}
	return h.Service.History(ctx, msg.Filter)
}
