package invoicechromium

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/goliatone/go-invoice/invoice"
)

// PrintOptions configures print-to-PDF output. Zero values print A4 portrait
// with backgrounds and no margins.
type PrintOptions struct {
	PageSize     string
	Landscape    bool
	NoBackground bool
	Scale        float64
	MarginTop    string
	MarginBottom string
	MarginLeft   string
	MarginRight  string
}

const defaultPageSize = "A4"

var lengthPattern = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)

var pageSizesInches = map[string][2]float64{
	"A3":     {11.69, 16.54},
	"A4":     {8.27, 11.69},
	"A5":     {5.83, 8.27},
	"LETTER": {8.5, 11},
	"LEGAL":  {8.5, 14},
}

func (e *Engine) printOptions() PrintOptions {
	opts := e.PrintOptions
	if opts.PageSize == "" {
		opts.PageSize = defaultPageSize
	}
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	return opts
}

func buildPrintToPDFParams(opts PrintOptions) (*page.PrintToPDFParams, error) {
	if opts.Scale < 0.1 || opts.Scale > 2.0 {
		return nil, invoice.NewError(invoice.KindValidation, "print scale must be between 0.1 and 2.0", nil)
	}
	size, ok := pageSizesInches[strings.ToUpper(opts.PageSize)]
	if !ok {
		return nil, invoice.NewError(invoice.KindValidation, fmt.Sprintf("unsupported page size: %s", opts.PageSize), nil)
	}

	params := page.PrintToPDF().
		WithScale(opts.Scale).
		WithLandscape(opts.Landscape).
		WithPrintBackground(!opts.NoBackground).
		WithPaperWidth(size[0]).
		WithPaperHeight(size[1])

	var margins [4]float64
	for i, value := range []string{opts.MarginTop, opts.MarginBottom, opts.MarginLeft, opts.MarginRight} {
		if value == "" {
			continue
		}
		inches, err := parseLengthInches(value)
		if err != nil {
			return nil, err
		}
		margins[i] = inches
	}
	params = params.
		WithMarginTop(margins[0]).
		WithMarginBottom(margins[1]).
		WithMarginLeft(margins[2]).
		WithMarginRight(margins[3])
	return params, nil
}

func parseLengthInches(value string) (float64, error) {
	matches := lengthPattern.FindStringSubmatch(value)
	if len(matches) != 3 {
		return 0, invoice.NewError(invoice.KindValidation, fmt.Sprintf("invalid length: %s", value), nil)
	}
	amount, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, invoice.NewError(invoice.KindValidation, fmt.Sprintf("invalid length: %s", value), err)
	}

	switch unit := strings.ToLower(matches[2]); unit {
	case "", "in":
		return amount, nil
	case "cm":
		return amount / 2.54, nil
	case "mm":
		return amount / 25.4, nil
	case "pt":
		return amount / 72.0, nil
	case "px":
		return amount / 96.0, nil
	default:
		return 0, invoice.NewError(invoice.KindValidation, fmt.Sprintf("unsupported length unit: %s", unit), nil)
	}
}
