package invoicetemplate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/goliatone/go-invoice/invoice"
)

// DefaultMaxBytes bounds a single template fetch.
const DefaultMaxBytes int64 = 2 << 20

// HTTPFetcher fetches template assets from a content host.
type HTTPFetcher struct {
	BaseURL  string
	Client   *http.Client
	Headers  map[string]string
	MaxBytes int64
}

// Fetch implements invoice.Fetcher.
func (f HTTPFetcher) Fetch(ctx context.Context, assetPath string) ([]byte, error) {
	if strings.TrimSpace(f.BaseURL) == "" {
		return nil, invoice.NewError(invoice.KindValidation, "template base URL is required", nil)
	}
	target := strings.TrimRight(f.BaseURL, "/") + "/" + strings.TrimLeft(assetPath, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, invoice.NewLoadError(fmt.Sprintf("build request for %s", assetPath), 0, err)
	}
	for key, value := range f.Headers {
		req.Header.Set(key, value)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, invoice.NewLoadError(fmt.Sprintf("fetch %s", assetPath), 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, invoice.NewLoadError(fmt.Sprintf("fetch %s: %s", assetPath, resp.Status), resp.StatusCode, nil)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, invoice.NewLoadError(fmt.Sprintf("read %s", assetPath), resp.StatusCode, err)
	}
	if int64(len(data)) > limit {
		return nil, invoice.NewLoadError(fmt.Sprintf("%s exceeds %d bytes", assetPath, limit), resp.StatusCode, nil)
	}
	return data, nil
}

// FSFetcher fetches template assets from a filesystem. Prefix is stripped
// from requested paths, so "/templates/template-1.html" resolves to
// "template-1.html" with the default prefix.
type FSFetcher struct {
	FS     fs.FS
	Prefix string
}

// Fetch implements invoice.Fetcher.
func (f FSFetcher) Fetch(ctx context.Context, assetPath string) ([]byte, error) {
	if f.FS == nil {
		return nil, invoice.NewError(invoice.KindValidation, "template filesystem is required", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := f.Prefix
	if prefix == "" {
		prefix = invoice.DefaultTemplatePrefix
	}
	name := strings.TrimPrefix(path.Clean("/"+assetPath), path.Clean("/"+prefix))
	name = strings.TrimPrefix(name, "/")
	if !fs.ValidPath(name) || name == "." {
		return nil, invoice.NewLoadError(fmt.Sprintf("invalid template path %s", assetPath), http.StatusBadRequest, nil)
	}

	data, err := fs.ReadFile(f.FS, name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
		return nil, invoice.NewLoadError(fmt.Sprintf("read %s", assetPath), status, err)
	}
	return data, nil
}
