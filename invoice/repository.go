package invoice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultTemplatePrefix is the content-host path templates live under.
const DefaultTemplatePrefix = "/templates"

// Fetcher retrieves a resource from the template content host. Failures
// should be returned as load errors carrying the HTTP status when known.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FetcherFunc adapts a function to a Fetcher.
type FetcherFunc func(ctx context.Context, path string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, path string) ([]byte, error) {
	if f == nil {
		return nil, errors.New("fetcher func is nil")
	}
	return f(ctx, path)
}

// DefaultCatalog lists the templates shipped with the module.
func DefaultCatalog() []TemplateInfo {
	return []TemplateInfo{
		{ID: 1, Name: "Template 1", Description: "Giopio Style", File: "template-1.html"},
	}
}

// MarkupPath returns the markup location for a template id.
func MarkupPath(prefix string, id int) string {
	return fmt.Sprintf("%s/template-%d.html", prefix, id)
}

// StylesheetPath returns the stylesheet location for a template id.
func StylesheetPath(prefix string, id int) string {
	return fmt.Sprintf("%s/template-%d.css", prefix, id)
}

// RepositoryOption configures a TemplateRepository.
type RepositoryOption func(*TemplateRepository)

// WithCatalog replaces the template catalog.
func WithCatalog(catalog []TemplateInfo) RepositoryOption {
	return func(r *TemplateRepository) {
		r.catalog = append([]TemplateInfo(nil), catalog...)
	}
}

// WithPrefix sets the content-host path prefix.
func WithPrefix(prefix string) RepositoryOption {
	return func(r *TemplateRepository) {
		r.prefix = prefix
	}
}

// WithRepositoryLogger sets the logger used for stylesheet warnings.
func WithRepositoryLogger(logger Logger) RepositoryOption {
	return func(r *TemplateRepository) {
		r.logger = loggerOrNop(logger)
	}
}

// WithRepositoryClock overrides the load timestamp source.
func WithRepositoryClock(now func() time.Time) RepositoryOption {
	return func(r *TemplateRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// TemplateRepository fetches template assets and holds the single
// current asset. Loading a different id replaces it.
type TemplateRepository struct {
	fetcher Fetcher
	catalog []TemplateInfo
	prefix  string
	logger  Logger
	now     func() time.Time

	mu      sync.RWMutex
	current *TemplateAsset
}

// NewTemplateRepository creates a repository over fetcher.
func NewTemplateRepository(fetcher Fetcher, opts ...RepositoryOption) *TemplateRepository {
	repo := &TemplateRepository{
		fetcher: fetcher,
		catalog: DefaultCatalog(),
		prefix:  DefaultTemplatePrefix,
		logger:  NopLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

// Load fetches markup and stylesheet for id. A markup failure is returned
// as a load error; a stylesheet failure yields an empty stylesheet and a
// warning.
func (r *TemplateRepository) Load(ctx context.Context, id int) (TemplateAsset, error) {
	if r == nil || r.fetcher == nil {
		return TemplateAsset{}, NewError(KindInternal, "template repository requires a fetcher", nil)
	}
	if id <= 0 {
		return TemplateAsset{}, NewError(KindValidation, "template id must be positive", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	markup, err := r.fetcher.Fetch(ctx, MarkupPath(r.prefix, id))
	if err != nil {
		status := LoadStatus(err)
		msg := "Failed to load template"
		if status > 0 {
			msg = fmt.Sprintf("Failed to load template: %d", status)
		}
		return TemplateAsset{}, NewLoadError(msg, status, err)
	}

	asset := TemplateAsset{
		ID:       id,
		Markup:   string(markup),
		LoadedAt: r.now(),
	}

	stylesheet, err := r.fetcher.Fetch(ctx, StylesheetPath(r.prefix, id))
	if err != nil {
		warning := fmt.Sprintf("stylesheet for template %d unavailable: %v", id, err)
		r.logger.Warnf("template repository: %s", warning)
		asset.Warnings = append(asset.Warnings, warning)
	} else {
		asset.Stylesheet = string(stylesheet)
	}

	r.mu.Lock()
	stored := asset
	r.current = &stored
	r.mu.Unlock()

	r.logger.Debugf("template repository: loaded template %d", id)
	return asset, nil
}

// Current returns the most recently loaded asset.
func (r *TemplateRepository) Current() (TemplateAsset, bool) {
	if r == nil {
		return TemplateAsset{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return TemplateAsset{}, false
	}
	return *r.current, true
}

// ListAvailable returns the static template catalog.
func (r *TemplateRepository) ListAvailable() []TemplateInfo {
	if r == nil {
		return DefaultCatalog()
	}
	return append([]TemplateInfo(nil), r.catalog...)
}

// Lookup returns catalog info for id.
func (r *TemplateRepository) Lookup(id int) (TemplateInfo, bool) {
	for _, info := range r.ListAvailable() {
		if info.ID == id {
			return info, true
		}
	}
	return TemplateInfo{}, false
}
