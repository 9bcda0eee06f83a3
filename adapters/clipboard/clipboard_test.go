package invoiceclipboard

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-invoice/invoice"
)

func stubWriter(initErr error, sink *[]byte) *Writer {
	inits := 0
	return &Writer{
		init: func() error {
			inits++
			if inits > 1 {
				panic("clipboard initialized twice")
			}
			return initErr
		},
		write: func(data []byte) <-chan struct{} {
			*sink = append((*sink)[:0], data...)
			return make(chan struct{})
		},
	}
}

func TestWriter_WriteImage(t *testing.T) {
	var got []byte
	writer := stubWriter(nil, &got)
	payload := []byte{0x89, 'P', 'N', 'G'}

	if err := writer.WriteImage(context.Background(), payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected payload written, got %v", got)
	}
	if err := writer.WriteImage(context.Background(), payload); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if !writer.Available() {
		t.Fatalf("expected clipboard available")
	}
}

func TestWriter_Unsupported(t *testing.T) {
	var got []byte
	writer := stubWriter(errors.New("no display"), &got)

	err := writer.WriteImage(context.Background(), []byte("png"))
	if !invoice.IsClipboardUnsupported(err) {
		t.Fatalf("expected clipboard unsupported, got %v", err)
	}
	if writer.Available() {
		t.Fatalf("expected clipboard unavailable")
	}
	if got != nil {
		t.Fatalf("expected nothing written")
	}

	var nilWriter *Writer
	if err := nilWriter.WriteImage(context.Background(), []byte("png")); !invoice.IsClipboardUnsupported(err) {
		t.Fatalf("expected clipboard unsupported for nil writer, got %v", err)
	}
}

func TestWriter_Validation(t *testing.T) {
	var got []byte
	writer := stubWriter(nil, &got)
	if err := writer.WriteImage(context.Background(), nil); invoice.KindFromError(err) != invoice.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := writer.WriteImage(ctx, []byte("png")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
