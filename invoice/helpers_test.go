package invoice

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/goliatone/go-invoice/templates"
	"github.com/shopspring/decimal"
)

type mapFetcher struct {
	files  map[string]string
	status map[string]int
	calls  []string
}

func (f *mapFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	_ = ctx
	f.calls = append(f.calls, path)
	if status, ok := f.status[path]; ok {
		return nil, NewLoadError("fetch "+path, status, nil)
	}
	content, ok := f.files[path]
	if !ok {
		return nil, NewLoadError("fetch "+path, 404, nil)
	}
	return []byte(content), nil
}

func embeddedFetcher() Fetcher {
	return FetcherFunc(func(ctx context.Context, path string) ([]byte, error) {
		_ = ctx
		data, err := fs.ReadFile(templates.FS(), strings.TrimPrefix(path, DefaultTemplatePrefix+"/"))
		if err != nil {
			return nil, NewLoadError("fetch "+path, 404, err)
		}
		return data, nil
	})
}

func loadDefaultMarkup(t *testing.T) string {
	t.Helper()
	data, err := fs.ReadFile(templates.FS(), "template-1.html")
	if err != nil {
		t.Fatalf("read default template: %v", err)
	}
	return string(data)
}

func sampleInvoice() InvoiceData {
	return InvoiceData{
		Currency:       "$",
		InvoiceNumber:  "INV-1",
		PaymentDate:    "2024-06-01",
		InvoiceForName: "Jane Client",
		TransferMethod: "Bank transfer",
		Status:         "Paid",
		LineItems: []LineItem{
			{Description: "Service A", Price: AmountOf(decimal.NewFromInt(100))},
		},
		Subtotal:      Amount(100),
		Discount:      Amount(0),
		Total:         Amount(100),
		Notes:         "Thank you",
		AmountInWords: "One hundred dollars",
	}
}
