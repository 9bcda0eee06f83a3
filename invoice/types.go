package invoice

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when an invoice carries no currency symbol.
const DefaultCurrency = "৳"

// LineItemsField is the reserved binding name for the line-item region.
const LineItemsField = "lineItems"

// InvoiceData is the structured record bound into a template. The pipeline
// only reads it; Total is trusted input and never recomputed.
type InvoiceData struct {
	Currency          string              `json:"currency"`
	InvoiceNumber     string              `json:"invoiceNumber"`
	PaymentDate       string              `json:"paymentDate"`
	InvoiceForName    string              `json:"invoiceForName"`
	InvoiceForCompany string              `json:"invoiceForCompany,omitempty"`
	TransferMethod    string              `json:"transferMethod,omitempty"`
	TransactionID     string              `json:"transactionId,omitempty"`
	Status            string              `json:"status,omitempty"`
	LineItems         []LineItem          `json:"lineItems"`
	Subtotal          Money               `json:"subtotal"`
	Discount          Money               `json:"discount"`
	Total             Money               `json:"total"`
	Notes             string              `json:"notes"`
	AmountInWords     string              `json:"amountInWords"`

	// Extra holds template-specific fields not covered above.
	Extra map[string]string `json:"extra,omitempty"`
}

// CurrencySymbol returns the invoice currency or DefaultCurrency.
func (d InvoiceData) CurrencySymbol() string {
	if d.Currency == "" {
		return DefaultCurrency
	}
	return d.Currency
}

// LineItem is one billed row. Order is significant.
type LineItem struct {
	Description string `json:"description"`
	Price       Money  `json:"price"`
}

// Money is an optional amount that decodes leniently: null and "" are
// absent, anything without a numeric reading is a present zero.
type Money struct {
	decimal.NullDecimal
}

// Amount builds a present amount.
func Amount(value float64) Money {
	return AmountOf(decimal.NewFromFloat(value))
}

// AmountOf wraps an exact decimal as a present amount.
func AmountOf(value decimal.Decimal) Money {
	return Money{NullDecimal: decimal.NullDecimal{Decimal: value, Valid: true}}
}

// UnmarshalJSON never fails on malformed amounts.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*m = Money{}
		return nil
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		*m = AmountOf(decimal.Zero)
		return nil
	}
	if text, ok := value.(string); ok && strings.TrimSpace(text) == "" {
		*m = Money{}
		return nil
	}
	if _, ok := value.(float64); ok {
		value = json.Number(raw)
	}
	*m = AmountOf(CoerceAmount(value))
	return nil
}

// TemplateAsset is the markup and stylesheet pair for one template id.
type TemplateAsset struct {
	ID         int
	Markup     string
	Stylesheet string
	LoadedAt   time.Time
	Warnings   []string
}

// TemplateInfo describes one installable template.
type TemplateInfo struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	File        string `json:"file"`
}

// ArtifactKind is the MIME kind of an export artifact.
type ArtifactKind string

const (
	ArtifactPNG  ArtifactKind = "image/png"
	ArtifactPDF  ArtifactKind = "application/pdf"
	ArtifactHTML ArtifactKind = "text/html"
)

// Extension returns the file extension for the kind.
func (k ArtifactKind) Extension() string {
	switch k {
	case ArtifactPNG:
		return "png"
	case ArtifactPDF:
		return "pdf"
	case ArtifactHTML:
		return "html"
	default:
		return "bin"
	}
}

// ExportArtifact is a produced image or document blob.
type ExportArtifact struct {
	Kind      ArtifactKind
	Filename  string
	Data      []byte
	Width     int
	Height    int
	CreatedAt time.Time
}

// Size returns the artifact size in bytes.
func (a ExportArtifact) Size() int64 {
	return int64(len(a.Data))
}

// Surface is an immutable snapshot of an assembled document, pinned at
// render time. Exports read only from the snapshot.
type Surface struct {
	ID            string
	TemplateID    int
	InvoiceNumber string
	Document      []byte
	Selector      string
	BaseURL       string
	RenderedAt    time.Time
}

// ShareOption describes one fallback share channel.
type ShareOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ShareMethod identifies how a share was completed.
type ShareMethod string

const (
	ShareMethodNative ShareMethod = "native"
	ShareMethodMenu   ShareMethod = "menu"
)

// ShareResult is the outcome of a share attempt.
type ShareResult struct {
	Success   bool          `json:"success"`
	Cancelled bool          `json:"cancelled,omitempty"`
	Method    ShareMethod   `json:"method"`
	Options   []ShareOption `json:"options,omitempty"`
	URL       string        `json:"url,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// ShareTarget carries channel parameters chosen by the caller.
type ShareTarget struct {
	Recipients []string `json:"recipients,omitempty"`
	Message    string   `json:"message,omitempty"`
	Locale     string   `json:"locale,omitempty"`
}

// ArtifactMeta captures stored artifact metadata.
type ArtifactMeta struct {
	ContentType string
	Size        int64
	Filename    string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// ArtifactRef references a stored artifact.
type ArtifactRef struct {
	Key  string
	Meta ArtifactMeta
}

// ArtifactStore stores exported artifacts for share channels.
type ArtifactStore interface {
	Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error)
	Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards logs.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

func loggerOrNop(logger Logger) Logger {
	if logger == nil {
		return NopLogger{}
	}
	return logger
}

// ChangeEvent describes lifecycle events.
type ChangeEvent struct {
	Name          string
	SessionID     string
	InvoiceNumber string
	TemplateID    int
	ActorID       string
	Timestamp     time.Time
	Metadata      map[string]any
}

// ChangeEmitter emits lifecycle events.
type ChangeEmitter interface {
	Emit(ctx context.Context, evt ChangeEvent) error
}

// Lifecycle event names.
const (
	EventExportStarted   = "invoice.export.started"
	EventExportSucceeded = "invoice.export.succeeded"
	EventExportFailed    = "invoice.export.failed"
	EventShareMenu       = "invoice.share.menu"
	EventShareCompleted  = "invoice.share.completed"
	EventShareCancelled  = "invoice.share.cancelled"
	EventShareDismissed  = "invoice.share.dismissed"
	EventClipboardCopied = "invoice.clipboard.copied"
)

// HistoryRecord captures one terminal export or share outcome.
type HistoryRecord struct {
	ID            string
	SessionID     string
	InvoiceNumber string
	TemplateID    int
	Operation     Operation
	State         State
	Filename      string
	ContentType   string
	Size          int64
	ShareMethod   string
	Error         string
	CreatedAt     time.Time
}

// HistoryFilter filters history lists.
type HistoryFilter struct {
	InvoiceNumber string
	SessionID     string
	Limit         int
}

// HistoryStore records terminal outcomes.
type HistoryStore interface {
	Record(ctx context.Context, record HistoryRecord) error
	List(ctx context.Context, filter HistoryFilter) ([]HistoryRecord, error)
}

// EscapeArtifactKey path-escapes each segment of a store key for use in URLs.
func EscapeArtifactKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
