package query

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoice/invoice"
)

// ListTemplates requests the installed template catalog.
type ListTemplates struct{}

func (ListTemplates) Type() string { return "invoice.templates.list" }

func (ListTemplates) Validate() error { return nil }

// SessionStatus requests a snapshot of an open session.
type SessionStatus struct {
	SessionID string
}

func (SessionStatus) Type() string { return "invoice.session.status" }

func (msg SessionStatus) Validate() error {
	if msg.SessionID == "" {
		return errors.New("session ID is required", errors.CategoryValidation).
			WithTextCode("SESSION_ID_REQUIRED")
	}
	return nil
}

// InvoiceHistory requests recorded export outcomes.
type InvoiceHistory struct {
	Filter invoice.HistoryFilter
}

func (InvoiceHistory) Type() string { return "invoice.history.list" }

func (msg InvoiceHistory) Validate() error {
	if msg.Filter.Limit < 0 {
		return errors.New("history limit must not be negative", errors.CategoryValidation).
			WithTextCode("LIMIT_INVALID")
	}
	return nil
}

// Status is the read model returned for a session.
type Status struct {
	ID            string           `json:"id"`
	TemplateID    int              `json:"template_id"`
	InvoiceNumber string           `json:"invoice_number"`
	State         invoice.State    `json:"state"`
	Busy          bool             `json:"busy"`
	Outcome       *invoice.Outcome `json:"outcome,omitempty"`
	HasPending    bool             `json:"has_pending"`
}
