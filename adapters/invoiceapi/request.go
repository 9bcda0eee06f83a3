package invoiceapi

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/goliatone/go-invoice/invoice"
)

// DefaultMaxBodyBytes caps decoded request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// DefaultTemplateID is used when a request names no template.
const DefaultTemplateID = 1

// Request provides minimal request access for transport adapters.
type Request interface {
	Context() context.Context
	Method() string
	Path() string
	Header(name string) string
	Query(name string) string
	Body() io.ReadCloser
}

// ActorProvider resolves the acting user for a request.
type ActorProvider interface {
	ActorID(ctx context.Context) (string, error)
}

type openPayload struct {
	TemplateID int                 `json:"template_id"`
	Data       invoice.InvoiceData `json:"data"`
}

func decodeJSON(req Request, limit int64, out any, required bool) error {
	body := req.Body()
	if body == nil {
		if required {
			return invoice.NewError(invoice.KindValidation, "request body is required", nil)
		}
		return nil
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return invoice.NewError(invoice.KindValidation, "read request body", err)
	}
	if int64(len(raw)) > limit {
		return invoice.NewError(invoice.KindValidation, "request body too large", nil)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		if required {
			return invoice.NewError(invoice.KindValidation, "request body is required", nil)
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return invoice.NewError(invoice.KindValidation, "invalid request payload", err)
	}
	return nil
}

func parseTemplateID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTemplateID, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, invoice.NewError(invoice.KindValidation, "invalid template id", err)
	}
	return id, nil
}

func parseHistoryFilter(req Request) (invoice.HistoryFilter, error) {
	filter := invoice.HistoryFilter{
		InvoiceNumber: strings.TrimSpace(req.Query("invoice")),
		SessionID:     strings.TrimSpace(req.Query("session")),
	}
	if raw := strings.TrimSpace(req.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return invoice.HistoryFilter{}, invoice.NewError(invoice.KindValidation, "invalid limit", err)
		}
		filter.Limit = limit
	}
	return filter, nil
}

func operationForFormat(format string) (invoice.Operation, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pdf":
		return invoice.OpExportPDF, nil
	case "png", "image":
		return invoice.OpExportImage, nil
	case "html":
		return invoice.OpExportHTML, nil
	case "print":
		return invoice.OpPrintPDF, nil
	default:
		return "", invoice.NewError(invoice.KindValidation, "unsupported export format "+strconv.Quote(format), nil)
	}
}
