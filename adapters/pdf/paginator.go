// Package invoicepdf lays invoice rasters out as PDF documents.
package invoicepdf

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/goliatone/go-invoice/invoice"
	"github.com/jung-kurt/gofpdf"
)

const (
	a4WidthMM  = 210.0
	a4HeightMM = 297.0
)

// Layout selects how a raster maps onto pages.
type Layout string

const (
	// LayoutA4 scales the raster to the A4 width and splits it across as
	// many A4 pages as its height needs.
	LayoutA4 Layout = "a4"
	// LayoutFit emits a single page sized to the raster's aspect ratio.
	LayoutFit Layout = "fit"
)

// RasterPaginator implements invoice.Paginator with gofpdf.
type RasterPaginator struct {
	Layout  Layout
	Title   string
	Creator string
}

// Paginate implements invoice.Paginator.
func (p RasterPaginator) Paginate(ctx context.Context, raster invoice.Raster) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raster.PNG) == 0 || raster.Width <= 0 || raster.Height <= 0 {
		return nil, invoice.NewError(invoice.KindValidation, "raster is empty", nil)
	}

	widthMM := a4WidthMM
	heightMM := float64(raster.Height) * widthMM / float64(raster.Width)

	pageHeight := a4HeightMM
	if p.Layout == LayoutFit {
		pageHeight = heightMM
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: widthMM, Ht: pageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if p.Title != "" {
		pdf.SetTitle(p.Title, true)
	}
	creator := p.Creator
	if creator == "" {
		creator = "go-invoice"
	}
	pdf.SetCreator(creator, true)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("invoice", opts, bytes.NewReader(raster.PNG))

	pages := int(math.Ceil(heightMM/pageHeight - 1e-9))
	if pages < 1 {
		pages = 1
	}
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.ImageOptions("invoice", 0, -float64(i)*pageHeight, widthMM, heightMM, false, opts, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, invoice.NewError(invoice.KindExport, "pdf layout failed", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, invoice.NewError(invoice.KindExport, "pdf output failed", err)
	}
	return buf.Bytes(), nil
}

// PageCount returns the number of pages Paginate emits for a raster.
func (p RasterPaginator) PageCount(width, height int) int {
	if width <= 0 || height <= 0 || p.Layout == LayoutFit {
		return 1
	}
	heightMM := float64(height) * a4WidthMM / float64(width)
	return max(1, int(math.Ceil(heightMM/a4HeightMM-1e-9)))
}

func (l Layout) String() string {
	if l == "" {
		return string(LayoutA4)
	}
	return string(l)
}

// ParseLayout parses a layout name.
func ParseLayout(value string) (Layout, error) {
	switch Layout(value) {
	case "", LayoutA4:
		return LayoutA4, nil
	case LayoutFit:
		return LayoutFit, nil
	default:
		return "", invoice.NewError(invoice.KindValidation, fmt.Sprintf("unknown pdf layout %q", value), nil)
	}
}
