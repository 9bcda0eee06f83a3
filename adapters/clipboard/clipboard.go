// Package invoiceclipboard writes invoice images to the system clipboard.
package invoiceclipboard

import (
	"context"
	"sync"

	"github.com/goliatone/go-invoice/invoice"
	"golang.design/x/clipboard"
)

// Writer implements invoice.Clipboard on top of golang.design/x/clipboard.
// Hosts without a display server report clipboard_unsupported.
type Writer struct {
	initOnce sync.Once
	initErr  error

	// init and write are swapped in tests.
	init  func() error
	write func(data []byte) <-chan struct{}
}

// NewWriter creates a system clipboard writer.
func NewWriter() *Writer {
	return &Writer{
		init: clipboard.Init,
		write: func(data []byte) <-chan struct{} {
			return clipboard.Write(clipboard.FmtImage, data)
		},
	}
}

// Available reports whether the system clipboard could be initialized.
func (w *Writer) Available() bool {
	return w.ensure() == nil
}

// WriteImage implements invoice.Clipboard.
func (w *Writer) WriteImage(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return invoice.NewError(invoice.KindValidation, "clipboard payload is empty", nil)
	}
	if err := w.ensure(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if changed := w.write(data); changed == nil {
		return invoice.NewError(invoice.KindExport, "clipboard write rejected", nil)
	}
	return nil
}

func (w *Writer) ensure() error {
	if w == nil || w.init == nil || w.write == nil {
		return invoice.NewError(invoice.KindClipboardUnsupported, "clipboard not configured", nil)
	}
	w.initOnce.Do(func() {
		if err := w.init(); err != nil {
			w.initErr = invoice.NewError(invoice.KindClipboardUnsupported, "system clipboard unavailable", err)
		}
	})
	return w.initErr
}
