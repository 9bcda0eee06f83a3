package historybun

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-invoice/invoice"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestStore_RecordList(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	records := []invoice.HistoryRecord{
		{SessionID: "s-1", InvoiceNumber: "INV-1", TemplateID: 1, Operation: invoice.OpExportPDF, State: invoice.StateSucceeded, Filename: "invoice-INV-1.pdf", ContentType: "application/pdf", Size: 2048, CreatedAt: base},
		{SessionID: "s-1", InvoiceNumber: "INV-1", TemplateID: 1, Operation: invoice.OpShare, State: invoice.StateFailed, Error: "share backend failed", CreatedAt: base.Add(time.Minute)},
		{SessionID: "s-2", InvoiceNumber: "INV-2", TemplateID: 2, Operation: invoice.OpExportImage, State: invoice.StateSucceeded, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, record := range records {
		if err := store.Record(ctx, record); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := store.List(ctx, invoice.HistoryFilter{InvoiceNumber: "INV-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Operation != invoice.OpShare || got[0].Error != "share backend failed" {
		t.Fatalf("expected newest first, got %+v", got[0])
	}
	if got[1].Size != 2048 || got[1].ContentType != "application/pdf" || got[1].ID == "" {
		t.Fatalf("unexpected record: %+v", got[1])
	}

	limited, err := store.List(ctx, invoice.HistoryFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 || limited[0].InvoiceNumber != "INV-2" {
		t.Fatalf("unexpected limited list: %+v", limited)
	}

	bySession, err := store.List(ctx, invoice.HistoryFilter{SessionID: "s-2"})
	if err != nil {
		t.Fatalf("list by session: %v", err)
	}
	if len(bySession) != 1 || bySession[0].TemplateID != 2 {
		t.Fatalf("unexpected session list: %+v", bySession)
	}
}

func TestStore_Purge(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := range 3 {
		record := invoice.HistoryRecord{
			SessionID: "s-1",
			Operation: invoice.OpExportPDF,
			State:     invoice.StateSucceeded,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Record(ctx, record); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	removed, err := store.Purge(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 purged records, got %d", removed)
	}
	if _, err := store.Purge(ctx, time.Time{}); invoice.KindFromError(err) != invoice.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStore_NotConfigured(t *testing.T) {
	var store *Store
	if err := store.Record(context.Background(), invoice.HistoryRecord{}); invoice.KindFromError(err) != invoice.KindNotImpl {
		t.Fatalf("expected not implemented, got %v", err)
	}
	if _, err := (&Store{}).List(context.Background(), invoice.HistoryFilter{}); invoice.KindFromError(err) != invoice.KindNotImpl {
		t.Fatalf("expected not implemented, got %v", err)
	}
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := NewStore(db).CreateSchema(context.Background()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}
