package invoiceactivity

import (
	"context"
	"strings"

	"github.com/goliatone/go-invoice/invoice"
	"github.com/goliatone/go-users/activity"
	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Config configures the activity emitter adapter.
type Config struct {
	Sink       types.ActivitySink
	Channel    string
	ObjectType string
	TenantID   string
	OrgID      string
}

// Emitter records invoice lifecycle events as go-users activity.
type Emitter struct {
	sink       types.ActivitySink
	channel    string
	objectType string
	tenantID   uuid.UUID
	orgID      uuid.UUID
}

// NewEmitter creates a new activity emitter.
func NewEmitter(cfg Config) *Emitter {
	return &Emitter{
		sink:       cfg.Sink,
		channel:    defaultString(cfg.Channel, "invoice"),
		objectType: defaultString(cfg.ObjectType, "invoice"),
		tenantID:   parseUUID(cfg.TenantID),
		orgID:      parseUUID(cfg.OrgID),
	}
}

// Emit implements invoice.ChangeEmitter.
func (e *Emitter) Emit(ctx context.Context, evt invoice.ChangeEvent) error {
	if e == nil {
		return invoice.NewError(invoice.KindInternal, "activity emitter is nil", nil)
	}
	if e.sink == nil {
		return invoice.NewError(invoice.KindNotImpl, "activity sink not configured", nil)
	}
	verb := strings.TrimSpace(evt.Name)
	if verb == "" {
		return invoice.NewError(invoice.KindValidation, "activity verb is required", nil)
	}
	objectID := strings.TrimSpace(evt.InvoiceNumber)
	if objectID == "" {
		objectID = strings.TrimSpace(evt.SessionID)
	}
	if objectID == "" {
		return invoice.NewError(invoice.KindValidation, "activity object ID is required", nil)
	}

	record, err := activity.BuildRecordFromUUID(
		parseUUID(evt.ActorID),
		verb,
		e.objectType,
		objectID,
		buildMetadata(evt),
		activity.WithChannel(e.channel),
		activity.WithOccurredAt(evt.Timestamp),
		activity.WithTenant(e.tenantID),
		activity.WithOrg(e.orgID),
	)
	if err != nil {
		return err
	}
	return e.sink.Log(ctx, record)
}

func buildMetadata(evt invoice.ChangeEvent) map[string]any {
	meta := make(map[string]any, len(evt.Metadata)+2)
	if evt.SessionID != "" {
		meta["session_id"] = evt.SessionID
	}
	if evt.TemplateID > 0 {
		meta["template_id"] = evt.TemplateID
	}
	for k, v := range evt.Metadata {
		meta[k] = v
	}
	return meta
}

func defaultString(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
