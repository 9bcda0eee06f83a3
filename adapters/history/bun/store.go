// Package historybun persists invoice export outcomes with Bun.
package historybun

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-invoice/invoice"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store records export and share outcomes in a Bun-backed database.
type Store struct {
	DB          *bun.DB
	Now         func() time.Time
	IDGenerator func() string
}

// NewStore creates a Bun-backed history store.
func NewStore(db *bun.DB) *Store {
	return &Store{DB: db, Now: time.Now, IDGenerator: uuid.NewString}
}

// CreateSchema creates the history table when missing.
func (s *Store) CreateSchema(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return invoice.NewError(invoice.KindNotImpl, "history database not configured", nil)
	}
	if _, err := s.DB.NewCreateTable().Model((*recordModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := s.DB.NewCreateIndex().
		Model((*recordModel)(nil)).
		Index("invoice_history_invoice_idx").
		IfNotExists().
		Column("invoice_number", "created_at").
		Exec(ctx)
	return err
}

// Record implements invoice.HistoryStore.
func (s *Store) Record(ctx context.Context, record invoice.HistoryRecord) error {
	if s == nil || s.DB == nil {
		return invoice.NewError(invoice.KindNotImpl, "history database not configured", nil)
	}
	if record.ID == "" {
		record.ID = s.nextID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	model := modelFromRecord(record)
	_, err := s.DB.NewInsert().Model(&model).Exec(ctx)
	return err
}

// List implements invoice.HistoryStore. Records are returned newest first.
func (s *Store) List(ctx context.Context, filter invoice.HistoryFilter) ([]invoice.HistoryRecord, error) {
	if s == nil || s.DB == nil {
		return nil, invoice.NewError(invoice.KindNotImpl, "history database not configured", nil)
	}

	models := make([]recordModel, 0)
	query := s.DB.NewSelect().Model(&models)
	if filter.InvoiceNumber != "" {
		query = query.Where("invoice_number = ?", filter.InvoiceNumber)
	}
	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	records := make([]invoice.HistoryRecord, 0, len(models))
	for _, model := range models {
		records = append(records, model.toRecord())
	}
	return records, nil
}

// Purge removes records created before the cutoff.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, invoice.NewError(invoice.KindNotImpl, "history database not configured", nil)
	}
	if before.IsZero() {
		return 0, invoice.NewError(invoice.KindValidation, "purge cutoff is required", nil)
	}
	res, err := s.DB.NewDelete().Model((*recordModel)(nil)).Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge history: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) nextID() string {
	if s.IDGenerator != nil {
		return s.IDGenerator()
	}
	return uuid.NewString()
}

type recordModel struct {
	bun.BaseModel `bun:"table:invoice_history,alias:invoice_history"`

	ID            string    `bun:",pk"`
	SessionID     string    `bun:"session_id,notnull"`
	InvoiceNumber string    `bun:"invoice_number"`
	TemplateID    int       `bun:"template_id"`
	Operation     string    `bun:"operation,notnull"`
	State         string    `bun:"state,notnull"`
	Filename      string    `bun:"filename"`
	ContentType   string    `bun:"content_type"`
	Size          int64     `bun:"size"`
	ShareMethod   string    `bun:"share_method"`
	Error         string    `bun:"error"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func modelFromRecord(record invoice.HistoryRecord) recordModel {
	return recordModel{
		ID:            record.ID,
		SessionID:     record.SessionID,
		InvoiceNumber: record.InvoiceNumber,
		TemplateID:    record.TemplateID,
		Operation:     string(record.Operation),
		State:         string(record.State),
		Filename:      record.Filename,
		ContentType:   record.ContentType,
		Size:          record.Size,
		ShareMethod:   record.ShareMethod,
		Error:         record.Error,
		CreatedAt:     record.CreatedAt,
	}
}

func (m recordModel) toRecord() invoice.HistoryRecord {
	return invoice.HistoryRecord{
		ID:            m.ID,
		SessionID:     m.SessionID,
		InvoiceNumber: m.InvoiceNumber,
		TemplateID:    m.TemplateID,
		Operation:     invoice.Operation(m.Operation),
		State:         invoice.State(m.State),
		Filename:      m.Filename,
		ContentType:   m.ContentType,
		Size:          m.Size,
		ShareMethod:   m.ShareMethod,
		Error:         m.Error,
		CreatedAt:     m.CreatedAt,
	}
}
