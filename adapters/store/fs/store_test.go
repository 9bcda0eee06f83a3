package storefs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-invoice/invoice"
)

type captureSigner struct {
	input SignedURLInput
}

func (s *captureSigner) SignURL(input SignedURLInput) (string, error) {
	s.input = input
	return fmt.Sprintf("%s/%s?expires=%d", input.BaseURL, input.Key, input.ExpiresAt.Unix()), nil
}

func TestStore_PutOpenDelete(t *testing.T) {
	store := NewStore(t.TempDir())

	ref, err := store.Put(context.Background(), "invoices/invoice-INV-1.pdf", bytes.NewBufferString("%PDF-1.3"), invoice.ArtifactMeta{
		ContentType: string(invoice.ArtifactPDF),
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ref.Meta.Size != 8 || ref.Meta.CreatedAt.IsZero() {
		t.Fatalf("unexpected meta: %+v", ref.Meta)
	}
	if ref.Meta.Filename != "invoice-INV-1.pdf" {
		t.Fatalf("expected filename from key, got %q", ref.Meta.Filename)
	}

	reader, meta, err := store.Open(context.Background(), "invoices/invoice-INV-1.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(reader)
	_ = reader.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "%PDF-1.3" || meta.ContentType != "application/pdf" {
		t.Fatalf("unexpected artifact: %q %+v", data, meta)
	}

	if err := store.Delete(context.Background(), "invoices/invoice-INV-1.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Open(context.Background(), "invoices/invoice-INV-1.pdf"); invoice.KindFromError(err) != invoice.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestStore_OpenExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(t.TempDir())
	store.Now = func() time.Time { return now }

	_, err := store.Put(context.Background(), "a.png", bytes.NewBufferString("png"), invoice.ArtifactMeta{ExpiresAt: now.Add(time.Minute)})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, _, err := store.Open(context.Background(), "a.png"); invoice.KindFromError(err) != invoice.KindNotFound {
		t.Fatalf("expected expired artifact to be missing, got %v", err)
	}
}

func TestStore_RejectsBadKeys(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, key := range []string{"", "/", "a.pdf.meta.json"} {
		if _, err := store.Put(context.Background(), key, bytes.NewBufferString("x"), invoice.ArtifactMeta{}); invoice.KindFromError(err) != invoice.KindValidation {
			t.Fatalf("expected validation error for %q, got %v", key, err)
		}
	}

	ref, err := store.Put(context.Background(), "../../escape.pdf", bytes.NewBufferString("x"), invoice.ArtifactMeta{})
	if err != nil {
		t.Fatalf("expected traversal to be confined, got %v", err)
	}
	if ref.Key != "../../escape.pdf" {
		t.Fatalf("unexpected key %q", ref.Key)
	}
	if _, _, err := store.Open(context.Background(), "escape.pdf"); err != nil {
		t.Fatalf("expected confined artifact under root: %v", err)
	}
}

func TestStore_SignedURL_NotConfigured(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.SignedURL(context.Background(), "invoice.pdf", time.Minute)
	if invoice.KindFromError(err) != invoice.KindNotImpl {
		t.Fatalf("expected not implemented error, got %v", err)
	}
}

func TestStore_SignedURL(t *testing.T) {
	store := NewStore(t.TempDir())
	store.BaseURL = "https://example.test/artifacts/"
	signer := &captureSigner{}
	store.Signer = signer
	store.Now = func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}

	link, err := store.SignedURL(context.Background(), "invoices/invoice.pdf", 5*time.Minute)
	if err != nil {
		t.Fatalf("signed url: %v", err)
	}
	expected := "https://example.test/artifacts/invoices/invoice.pdf?expires=1704110700"
	if link != expected {
		t.Fatalf("unexpected url: %q", link)
	}
	if signer.input.Key != "invoices/invoice.pdf" {
		t.Fatalf("unexpected signer key: %q", signer.input.Key)
	}
}

func TestHMACSigner_RoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	signer := HMACSigner{Secret: []byte("secret"), Now: func() time.Time { return now }}

	link, err := signer.SignURL(SignedURLInput{BaseURL: "http://localhost/artifacts", Key: "s-1/invoice INV.pdf", ExpiresAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.HasPrefix(link, "http://localhost/artifacts/s-1/invoice%20INV.pdf?") {
		t.Fatalf("unexpected link: %s", link)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	query := parsed.Query()
	if err := signer.Verify("s-1/invoice INV.pdf", query.Get("expires"), query.Get("sig")); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := signer.Verify("s-1/other.pdf", query.Get("expires"), query.Get("sig")); invoice.KindFromError(err) != invoice.KindValidation {
		t.Fatalf("expected signature mismatch, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	if err := signer.Verify("s-1/invoice INV.pdf", query.Get("expires"), query.Get("sig")); invoice.KindFromError(err) != invoice.KindNotFound {
		t.Fatalf("expected expired link, got %v", err)
	}
}
