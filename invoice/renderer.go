package invoice

import (
	"context"
	"time"
)

// DefaultSurfaceSelector is the element captured by rasterizers.
const DefaultSurfaceSelector = ".invoice"

// WarnStylesheetUnavailable flags a template rendered without its stylesheet.
const WarnStylesheetUnavailable = "stylesheet_unavailable"

// Document is a populated template in both assembled forms.
type Document struct {
	TemplateID    int
	InvoiceNumber string
	Fragment      string
	Standalone    string
	Warnings      []Warning
	RenderedAt    time.Time
}

// Surface pins the standalone document as an export snapshot.
func (d Document) Surface(id, baseURL string) Surface {
	return Surface{
		ID:            id,
		TemplateID:    d.TemplateID,
		InvoiceNumber: d.InvoiceNumber,
		Document:      []byte(d.Standalone),
		Selector:      DefaultSurfaceSelector,
		BaseURL:       baseURL,
		RenderedAt:    d.RenderedAt,
	}
}

// Renderer runs load, bind, and assemble for one record.
type Renderer struct {
	Repository *TemplateRepository
	Binder     FieldBinder
	Assembler  DocumentAssembler
	Now        func() time.Time
}

// Render loads templateID and renders data against it.
func (r Renderer) Render(ctx context.Context, templateID int, data InvoiceData) (Document, error) {
	if r.Repository == nil {
		return Document{}, NewError(KindInternal, "renderer requires a template repository", nil)
	}
	asset, err := r.Repository.Load(ctx, templateID)
	if err != nil {
		return Document{}, err
	}
	return r.RenderAsset(asset, data)
}

// RenderAsset renders data against an already loaded asset.
func (r Renderer) RenderAsset(asset TemplateAsset, data InvoiceData) (Document, error) {
	binding, err := r.Binder.Bind(asset.Markup, data)
	if err != nil {
		return Document{}, err
	}
	standalone, err := r.Assembler.AssembleStandalone(binding.Markup, asset.Stylesheet)
	if err != nil {
		return Document{}, err
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	warnings := make([]Warning, 0, len(asset.Warnings)+len(binding.Warnings))
	for _, msg := range asset.Warnings {
		warnings = append(warnings, Warning{Code: WarnStylesheetUnavailable, Message: msg})
	}
	warnings = append(warnings, binding.Warnings...)

	return Document{
		TemplateID:    asset.ID,
		InvoiceNumber: data.InvoiceNumber,
		Fragment:      r.Assembler.AssembleFragment(binding.Markup),
		Standalone:    standalone,
		Warnings:      warnings,
		RenderedAt:    now(),
	}, nil
}
