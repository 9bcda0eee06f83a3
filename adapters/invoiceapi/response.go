package invoiceapi

import (
	"io"
	"time"

	"github.com/goliatone/go-invoice/invoice"
)

// Response provides a minimal response interface for transport adapters.
type Response interface {
	SetHeader(name, value string)
	WriteHeader(status int)
	Write(data []byte) (int, error)
	WriteJSON(status int, payload any) error
	Writer() (io.Writer, bool)
}

// SessionResponse describes a session and its last outcome.
type SessionResponse struct {
	ID            string            `json:"id"`
	TemplateID    int               `json:"template_id"`
	InvoiceNumber string            `json:"invoice_number,omitempty"`
	State         invoice.State     `json:"state"`
	Busy          bool              `json:"busy"`
	Outcome       *invoice.Outcome  `json:"outcome,omitempty"`
	Pending       *PendingArtifact  `json:"pending,omitempty"`
	Warnings      []invoice.Warning `json:"warnings,omitempty"`
}

// PendingArtifact describes an artifact held for a share choice.
type PendingArtifact struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// TemplatesResponse lists available templates.
type TemplatesResponse struct {
	Templates []invoice.TemplateInfo `json:"templates"`
}

// HistoryResponse lists recorded outcomes.
type HistoryResponse struct {
	Records []HistoryEntry `json:"records"`
}

// HistoryEntry is the wire form of a history record.
type HistoryEntry struct {
	ID            string            `json:"id"`
	SessionID     string            `json:"session_id"`
	InvoiceNumber string            `json:"invoice_number,omitempty"`
	TemplateID    int               `json:"template_id"`
	Operation     invoice.Operation `json:"operation"`
	State         invoice.State     `json:"state"`
	Filename      string            `json:"filename,omitempty"`
	ContentType   string            `json:"content_type,omitempty"`
	Size          int64             `json:"size,omitempty"`
	ShareMethod   string            `json:"share_method,omitempty"`
	Error         string            `json:"error,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ErrorResponse describes JSON error responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains error details.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func sessionResponse(session *invoice.Session, warnings []invoice.Warning) SessionResponse {
	surface := session.Surface()
	resp := SessionResponse{
		ID:            session.ID(),
		TemplateID:    surface.TemplateID,
		InvoiceNumber: surface.InvoiceNumber,
		State:         session.State(),
		Busy:          session.Exporting(),
		Warnings:      warnings,
	}
	if outcome, ok := session.LastOutcome(); ok {
		resp.Outcome = &outcome
	}
	if artifact, ok := session.PendingArtifact(); ok {
		resp.Pending = &PendingArtifact{
			Filename:    artifact.Filename,
			ContentType: string(artifact.Kind),
			Size:        artifact.Size(),
			CreatedAt:   artifact.CreatedAt,
		}
	}
	return resp
}

func historyResponse(records []invoice.HistoryRecord) HistoryResponse {
	entries := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, HistoryEntry{
			ID:            record.ID,
			SessionID:     record.SessionID,
			InvoiceNumber: record.InvoiceNumber,
			TemplateID:    record.TemplateID,
			Operation:     record.Operation,
			State:         record.State,
			Filename:      record.Filename,
			ContentType:   record.ContentType,
			Size:          record.Size,
			ShareMethod:   record.ShareMethod,
			Error:         record.Error,
			CreatedAt:     record.CreatedAt,
		})
	}
	return HistoryResponse{Records: entries}
}
