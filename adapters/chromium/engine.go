// Package invoicechromium renders invoice surfaces in headless Chromium:
// a scaled screenshot of the invoice element for raster export and
// print-to-PDF for vector output.
package invoicechromium

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-invoice/invoice"
)

const (
	DefaultViewportWidth  = 1024
	DefaultViewportHeight = 1400
	DefaultTimeout        = 30 * time.Second
)

// Engine shares one headless Chromium instance across renders. Each render
// runs in its own tab.
type Engine struct {
	BrowserPath string
	Headless    bool
	Timeout     time.Duration
	Args        []string

	ViewportWidth  int64
	ViewportHeight int64
	PrintOptions   PrintOptions

	initOnce      sync.Once
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// Rasterize implements invoice.Rasterizer. The element matched by the
// selector is captured at opts.Scale; a missing element falls back to body.
func (e *Engine) Rasterize(ctx context.Context, surface invoice.Surface, opts invoice.RasterOptions) (invoice.Raster, error) {
	scale := opts.Scale
	if scale <= 0 {
		scale = invoice.RasterScale
	}
	selector := opts.Selector
	if selector == "" {
		selector = surface.Selector
	}
	if selector == "" {
		selector = invoice.DefaultSurfaceSelector
	}

	var png []byte
	err := e.run(ctx, surface, chromedp.ActionFunc(func(ctx context.Context) error {
		target, err := resolveSelector(ctx, selector)
		if err != nil {
			return err
		}
		return chromedp.ScreenshotScale(target, scale, &png, chromedp.ByQuery).Do(ctx)
	}))
	if err != nil {
		return invoice.Raster{}, invoice.NewError(invoice.KindExport, "chromium screenshot failed", err)
	}
	return invoice.Raster{PNG: png}, nil
}

// Print implements invoice.PrintEngine.
func (e *Engine) Print(ctx context.Context, surface invoice.Surface) ([]byte, error) {
	params, err := buildPrintToPDFParams(e.printOptions())
	if err != nil {
		return nil, err
	}

	var pdf []byte
	err = e.run(ctx, surface, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		pdf, _, err = params.Do(ctx)
		return err
	}))
	if err != nil {
		return nil, invoice.NewError(invoice.KindExport, "chromium print failed", err)
	}
	return pdf, nil
}

// Close releases Chromium resources if they have been initialized.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	if e.browserCancel != nil {
		e.browserCancel()
	}
	if e.allocCancel != nil {
		e.allocCancel()
	}
	return nil
}

func (e *Engine) run(ctx context.Context, surface invoice.Surface, capture chromedp.Action) error {
	if e == nil {
		return invoice.NewError(invoice.KindInternal, "chromium engine is nil", nil)
	}
	if len(surface.Document) == 0 {
		return invoice.NewError(invoice.KindValidation, "surface document is empty", nil)
	}
	if err := e.ensureBrowser(); err != nil {
		return invoice.NewError(invoice.KindInternal, "chromium engine init failed", err)
	}

	tabCtx, cancelTab := chromedp.NewContext(e.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	width, height := e.viewport()
	document := injectBaseURL(surface.Document, surface.BaseURL)

	return chromedp.Run(execCtx,
		chromedp.EmulateViewport(width, height),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(document)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		waitForAssets(),
		capture,
	)
}

func (e *Engine) ensureBrowser() error {
	e.initOnce.Do(func() {
		options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if e.BrowserPath != "" {
			options = append(options, chromedp.ExecPath(e.BrowserPath))
		}
		options = append(options, chromedp.Flag("headless", e.Headless))
		options = append(options, allocatorOptionsFromArgs(e.Args)...)

		e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), options...)
		e.browserCtx, e.browserCancel = chromedp.NewContext(e.allocCtx)
	})
	if e.allocCtx == nil || e.browserCtx == nil {
		return errors.New("chromium allocator unavailable")
	}
	return nil
}

func (e *Engine) viewport() (int64, int64) {
	width, height := e.ViewportWidth, e.ViewportHeight
	if width <= 0 {
		width = DefaultViewportWidth
	}
	if height <= 0 {
		height = DefaultViewportHeight
	}
	return width, height
}

// waitForAssets blocks until web fonts settle and every image has either
// loaded or failed. Failed images do not fail the capture.
func waitForAssets() chromedp.Action {
	const script = `Promise.all([
  document.fonts ? document.fonts.ready : Promise.resolve(),
  ...Array.from(document.images).filter(img => !img.complete).map(img => new Promise(done => {
    img.addEventListener('load', done, { once: true });
    img.addEventListener('error', done, { once: true });
  }))
]).then(() => true)`
	var ok bool
	return chromedp.Evaluate(script, &ok, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	})
}

func resolveSelector(ctx context.Context, selector string) (string, error) {
	var found bool
	query := fmt.Sprintf("document.querySelector(%q) !== null", selector)
	if err := chromedp.Evaluate(query, &found).Do(ctx); err != nil {
		return "", err
	}
	if !found {
		return "body", nil
	}
	return selector, nil
}

func injectBaseURL(document []byte, baseURL string) []byte {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return document
	}
	lower := strings.ToLower(string(document))
	if strings.Contains(lower, "<base") {
		return document
	}

	baseTag := fmt.Sprintf(`<base href="%s">`, html.EscapeString(baseURL))
	for _, tag := range []string{"<head", "<html"} {
		idx := strings.Index(lower, tag)
		if idx < 0 {
			continue
		}
		end := strings.Index(lower[idx:], ">")
		if end < 0 {
			continue
		}
		insert := baseTag
		if tag == "<html" {
			insert = "<head>" + baseTag + "</head>"
		}
		pos := idx + end + 1
		out := make([]byte, 0, len(document)+len(insert))
		out = append(out, document[:pos]...)
		out = append(out, insert...)
		return append(out, document[pos:]...)
	}
	return append([]byte(baseTag), document...)
}

func allocatorOptionsFromArgs(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimPrefix(strings.TrimSpace(arg), "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}
