package command

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
	"time"

	gcmd "github.com/goliatone/go-command"
	invoicetemplate "github.com/goliatone/go-invoice/adapters/template"
	"github.com/goliatone/go-invoice/invoice"
	"github.com/goliatone/go-invoice/templates"
)

type stubRasterizer struct {
	png []byte
}

func (r stubRasterizer) Rasterize(ctx context.Context, surface invoice.Surface, opts invoice.RasterOptions) (invoice.Raster, error) {
	_ = ctx
	_ = surface
	_ = opts
	return invoice.Raster{PNG: r.png}, nil
}

type linkChannel struct{}

func (linkChannel) Option() invoice.ShareOption {
	return invoice.ShareOption{ID: "copy_link", Label: "Copy link"}
}

func (linkChannel) Deliver(ctx context.Context, artifact invoice.ExportArtifact, target invoice.ShareTarget) (invoice.ShareResult, error) {
	_ = ctx
	_ = target
	return invoice.ShareResult{URL: "https://files.example.com/" + artifact.Filename}, nil
}

type capturePurger struct {
	before  time.Time
	removed int64
}

func (p *capturePurger) Purge(ctx context.Context, before time.Time) (int64, error) {
	_ = ctx
	p.before = before
	return p.removed, nil
}

func newTestSession(t *testing.T) (invoice.Service, *invoice.Session) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	svc := invoice.NewService(invoice.ServiceConfig{
		Renderer: invoice.Renderer{
			Repository: invoice.NewTemplateRepository(invoicetemplate.FSFetcher{FS: templates.FS()}),
		},
		Pipeline:  invoice.ExportPipeline{Rasterizer: stubRasterizer{png: buf.Bytes()}},
		Share:     invoice.ShareCoordinator{Channels: []invoice.ShareChannel{linkChannel{}}},
		ShareKind: invoice.ArtifactPNG,
	})
	sess, _, err := svc.Open(context.Background(), invoice.OpenRequest{
		TemplateID: 1,
		Data:       invoice.InvoiceData{InvoiceNumber: "INV-7", Currency: "$"},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return svc, sess
}

func TestExportInvoice_Validate(t *testing.T) {
	if err := (ExportInvoice{Operation: invoice.OpExportImage}).Validate(); err == nil {
		t.Fatalf("expected session id error")
	}
	if err := (ExportInvoice{SessionID: "s"}).Validate(); err == nil {
		t.Fatalf("expected operation error")
	}
	if err := (ExportInvoice{SessionID: "s", Operation: invoice.OpShare}).Validate(); err == nil {
		t.Fatalf("expected unsupported operation error")
	}
	if err := (ExportInvoice{SessionID: "s", Operation: invoice.OpExportHTML}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (CompleteShare{SessionID: "s"}).Validate(); err == nil {
		t.Fatalf("expected option error")
	}
	if err := (PurgeHistory{}).Validate(); err == nil {
		t.Fatalf("expected cutoff error")
	}
}

func TestExportInvoiceHandler_StoresResults(t *testing.T) {
	svc, sess := newTestSession(t)
	handler := NewExportInvoiceHandler(svc)

	var got invoice.ExportArtifact
	result := gcmd.NewResult[invoice.ExportArtifact]()
	ctx := gcmd.ContextWithResult(context.Background(), result)

	err := handler.Execute(ctx, ExportInvoice{
		SessionID: sess.ID(),
		Operation: invoice.OpExportImage,
		Result:    &got,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.Kind != invoice.ArtifactPNG || got.Filename != "invoice-INV-7.png" {
		t.Fatalf("unexpected artifact: %+v", got)
	}
	stored, ok := result.Load()
	if !ok || stored.Filename != got.Filename {
		t.Fatalf("expected context result")
	}
	if sess.State() != invoice.StateSucceeded {
		t.Fatalf("expected succeeded, got %s", sess.State())
	}
}

func TestExportInvoiceHandler_Errors(t *testing.T) {
	if err := (&ExportInvoiceHandler{}).Execute(context.Background(), ExportInvoice{SessionID: "s"}); err == nil {
		t.Fatalf("expected service error")
	}
	svc, _ := newTestSession(t)
	err := NewExportInvoiceHandler(svc).Execute(context.Background(), ExportInvoice{
		SessionID: "missing",
		Operation: invoice.OpExportImage,
	})
	if invoice.KindFromError(err) != invoice.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCopyInvoiceImageHandler_ReportsOutcome(t *testing.T) {
	svc, sess := newTestSession(t)
	var outcome invoice.Outcome
	err := NewCopyInvoiceImageHandler(svc).Execute(context.Background(), CopyInvoiceImage{
		SessionID: sess.ID(),
		Result:    &outcome,
	})
	if !invoice.IsClipboardUnsupported(err) {
		t.Fatalf("expected clipboard unsupported, got %v", err)
	}
	if outcome.State != invoice.StateFailed {
		t.Fatalf("expected failed outcome, got %+v", outcome)
	}
}

func TestShareHandlers_MenuFlow(t *testing.T) {
	svc, sess := newTestSession(t)

	var menu invoice.ShareResult
	if err := NewShareInvoiceHandler(svc).Execute(context.Background(), ShareInvoice{SessionID: sess.ID(), Result: &menu}); err != nil {
		t.Fatalf("share: %v", err)
	}
	if menu.Method != invoice.ShareMethodMenu || len(menu.Options) != 1 {
		t.Fatalf("expected menu result, got %+v", menu)
	}

	if err := NewDismissShareHandler(svc).Execute(context.Background(), DismissShare{SessionID: sess.ID()}); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if sess.Exporting() {
		t.Fatalf("expected session released after dismiss")
	}

	if err := NewShareInvoiceHandler(svc).Execute(context.Background(), ShareInvoice{SessionID: sess.ID()}); err != nil {
		t.Fatalf("share again: %v", err)
	}
	result := gcmd.NewResult[invoice.ShareResult]()
	ctx := gcmd.ContextWithResult(context.Background(), result)
	err := NewCompleteShareHandler(svc).Execute(ctx, CompleteShare{
		SessionID: sess.ID(),
		OptionID:  "copy_link",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	stored, ok := result.Load()
	if !ok || stored.URL != "https://files.example.com/invoice-INV-7.png" {
		t.Fatalf("unexpected share result: %+v", stored)
	}
}

func TestPurgeHistoryHandler_CronUsesRetention(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	purger := &capturePurger{removed: 3}
	handler := NewPurgeHistoryHandler(purger, WithRetention(48*time.Hour))
	handler.Now = func() time.Time { return now }

	if err := handler.CronHandler()(); err != nil {
		t.Fatalf("cron: %v", err)
	}
	if !purger.before.Equal(now.Add(-48 * time.Hour)) {
		t.Fatalf("unexpected cutoff %s", purger.before)
	}
	if handler.CronOptions().Expression != "0 3 * * *" {
		t.Fatalf("unexpected cron expression %q", handler.CronOptions().Expression)
	}
	if path := handler.CLIOptions().Path; len(path) != 1 || path[0] != "invoice-history-purge" {
		t.Fatalf("unexpected cli path %v", path)
	}
}

func TestPurgeHistoryHandler_CLIOlderThan(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	purger := &capturePurger{}
	handler := NewPurgeHistoryHandler(purger)
	handler.Now = func() time.Time { return now }

	cli, ok := handler.CLIHandler().(*purgeCLI)
	if !ok {
		t.Fatalf("unexpected cli handler type")
	}
	cli.OlderThan = time.Hour
	if err := cli.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !purger.before.Equal(now.Add(-time.Hour)) {
		t.Fatalf("unexpected cutoff %s", purger.before)
	}

	var removed int64
	purger.removed = 5
	if err := handler.Execute(context.Background(), PurgeHistory{Before: now, Result: &removed}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if removed != 5 {
		t.Fatalf("expected 5 removed, got %d", removed)
	}
}

func TestPurgeHistoryHandler_RequiresPurger(t *testing.T) {
	if err := NewPurgeHistoryHandler(nil).Execute(context.Background(), PurgeHistory{Before: time.Now()}); err == nil {
		t.Fatalf("expected purger error")
	}
}
