package invoice

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"time"
)

// RasterScale is the fixed device scale used for raster capture.
const RasterScale = 2.0

// RasterOptions configures a capture.
type RasterOptions struct {
	Scale    float64
	Selector string
}

// Raster is a captured PNG with its pixel dimensions.
type Raster struct {
	PNG    []byte
	Width  int
	Height int
}

// Rasterizer renders a surface snapshot in a browser engine and captures it.
// Implementations must not fail on cross-origin image assets.
type Rasterizer interface {
	Rasterize(ctx context.Context, surface Surface, opts RasterOptions) (Raster, error)
}

// RasterizerFunc adapts a function to a Rasterizer.
type RasterizerFunc func(ctx context.Context, surface Surface, opts RasterOptions) (Raster, error)

func (f RasterizerFunc) Rasterize(ctx context.Context, surface Surface, opts RasterOptions) (Raster, error) {
	if f == nil {
		return Raster{}, errors.New("rasterizer func is nil")
	}
	return f(ctx, surface, opts)
}

// Paginator lays a raster out as a print-oriented PDF sized to its aspect ratio.
type Paginator interface {
	Paginate(ctx context.Context, raster Raster) ([]byte, error)
}

// PaginatorFunc adapts a function to a Paginator.
type PaginatorFunc func(ctx context.Context, raster Raster) ([]byte, error)

func (f PaginatorFunc) Paginate(ctx context.Context, raster Raster) ([]byte, error) {
	if f == nil {
		return nil, errors.New("paginator func is nil")
	}
	return f(ctx, raster)
}

// Clipboard writes a typed image payload to the system clipboard.
// Implementations return a clipboard_unsupported error when no clipboard exists.
type Clipboard interface {
	WriteImage(ctx context.Context, png []byte) error
}

// PrintEngine produces a vector PDF from a surface.
type PrintEngine interface {
	Print(ctx context.Context, surface Surface) ([]byte, error)
}

// ExportPipeline turns a rendered surface into artifacts.
type ExportPipeline struct {
	Rasterizer      Rasterizer
	Paginator       Paginator
	Clipboard       Clipboard
	Printer         PrintEngine
	FilenamePattern string
	Logger          Logger
	Now             func() time.Time
}

// ExportImage rasterizes the surface at RasterScale.
func (p ExportPipeline) ExportImage(ctx context.Context, surface Surface) (ExportArtifact, error) {
	raster, err := p.rasterize(ctx, surface)
	if err != nil {
		return ExportArtifact{}, err
	}
	return p.artifact(surface, ArtifactPNG, raster.PNG, raster.Width, raster.Height)
}

// ExportPDF rasterizes the surface and paginates the raster.
func (p ExportPipeline) ExportPDF(ctx context.Context, surface Surface) (ExportArtifact, error) {
	if p.Paginator == nil {
		return ExportArtifact{}, NewError(KindNotImpl, "pdf paginator not configured", nil)
	}
	raster, err := p.rasterize(ctx, surface)
	if err != nil {
		return ExportArtifact{}, err
	}
	pdf, err := p.Paginator.Paginate(ctx, raster)
	if err != nil {
		return ExportArtifact{}, exportFailure("paginate invoice raster", err)
	}
	return p.artifact(surface, ArtifactPDF, pdf, raster.Width, raster.Height)
}

// ExportPrintPDF renders a vector PDF through the print engine.
func (p ExportPipeline) ExportPrintPDF(ctx context.Context, surface Surface) (ExportArtifact, error) {
	if p.Printer == nil {
		return ExportArtifact{}, NewError(KindNotImpl, "print engine not configured", nil)
	}
	if len(surface.Document) == 0 {
		return ExportArtifact{}, NewError(KindValidation, "surface document is empty", nil)
	}
	pdf, err := p.Printer.Print(ctx, surface)
	if err != nil {
		return ExportArtifact{}, exportFailure("print invoice", err)
	}
	return p.artifact(surface, ArtifactPDF, pdf, 0, 0)
}

// ExportHTML returns the standalone document as an artifact.
func (p ExportPipeline) ExportHTML(surface Surface) (ExportArtifact, error) {
	if len(surface.Document) == 0 {
		return ExportArtifact{}, NewError(KindValidation, "surface document is empty", nil)
	}
	data := append([]byte(nil), surface.Document...)
	return p.artifact(surface, ArtifactHTML, data, 0, 0)
}

// ExportClipboardImage rasterizes the surface and writes it to the clipboard.
// A missing clipboard is reported as clipboard_unsupported.
func (p ExportPipeline) ExportClipboardImage(ctx context.Context, surface Surface) (ExportArtifact, error) {
	if p.Clipboard == nil {
		return ExportArtifact{}, NewError(KindClipboardUnsupported, "clipboard is not available", nil)
	}
	artifact, err := p.ExportImage(ctx, surface)
	if err != nil {
		return ExportArtifact{}, err
	}
	if err := p.Clipboard.WriteImage(ctx, artifact.Data); err != nil {
		if IsClipboardUnsupported(err) {
			return ExportArtifact{}, err
		}
		return ExportArtifact{}, exportFailure("write clipboard image", err)
	}
	return artifact, nil
}

func (p ExportPipeline) rasterize(ctx context.Context, surface Surface) (Raster, error) {
	if p.Rasterizer == nil {
		return Raster{}, NewError(KindNotImpl, "rasterizer not configured", nil)
	}
	if len(surface.Document) == 0 {
		return Raster{}, NewError(KindValidation, "surface document is empty", nil)
	}
	selector := surface.Selector
	if selector == "" {
		selector = DefaultSurfaceSelector
	}

	raster, err := p.Rasterizer.Rasterize(ctx, surface, RasterOptions{Scale: RasterScale, Selector: selector})
	if err != nil {
		return Raster{}, exportFailure("rasterize invoice", err)
	}
	if len(raster.PNG) == 0 {
		return Raster{}, NewError(KindExport, "rasterizer returned an empty image", nil)
	}
	if raster.Width == 0 || raster.Height == 0 {
		cfg, err := png.DecodeConfig(bytes.NewReader(raster.PNG))
		if err != nil {
			return Raster{}, NewError(KindExport, "rasterizer returned an invalid png", err)
		}
		raster.Width, raster.Height = cfg.Width, cfg.Height
	}
	loggerOrNop(p.Logger).Debugf("export pipeline: rasterized %s at %dx%d", surface.InvoiceNumber, raster.Width, raster.Height)
	return raster, nil
}

func (p ExportPipeline) artifact(surface Surface, kind ArtifactKind, data []byte, width, height int) (ExportArtifact, error) {
	name, err := ArtifactFilename(p.FilenamePattern, surface, kind)
	if err != nil {
		return ExportArtifact{}, err
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return ExportArtifact{
		Kind:      kind,
		Filename:  name,
		Data:      data,
		Width:     width,
		Height:    height,
		CreatedAt: now(),
	}, nil
}

func exportFailure(msg string, err error) error {
	switch KindFromError(err) {
	case KindNotImpl, KindValidation, KindClipboardUnsupported:
		return err
	}
	return NewError(KindExport, msg, err)
}
