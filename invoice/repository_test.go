package invoice

import (
	"context"
	"strings"
	"sync"
	"testing"
)

func TestTemplateRepository_Load(t *testing.T) {
	fetcher := &mapFetcher{files: map[string]string{
		"/templates/template-1.html": "<div>one</div>",
		"/templates/template-1.css":  ".invoice{}",
		"/templates/template-2.html": "<div>two</div>",
		"/templates/template-2.css":  ".two{}",
	}}
	repo := NewTemplateRepository(fetcher)

	if _, ok := repo.Current(); ok {
		t.Fatalf("expected no current asset before load")
	}

	asset, err := repo.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if asset.Markup != "<div>one</div>" || asset.Stylesheet != ".invoice{}" {
		t.Fatalf("unexpected asset: %+v", asset)
	}

	if _, err := repo.Load(context.Background(), 2); err != nil {
		t.Fatalf("load 2: %v", err)
	}
	current, ok := repo.Current()
	if !ok || current.ID != 2 || current.Stylesheet != ".two{}" {
		t.Fatalf("expected template 2 to replace current, got %+v", current)
	}
}

func TestTemplateRepository_MarkupFailureIsFatal(t *testing.T) {
	fetcher := &mapFetcher{
		files:  map[string]string{"/templates/template-1.css": ""},
		status: map[string]int{"/templates/template-1.html": 503},
	}
	repo := NewTemplateRepository(fetcher)

	_, err := repo.Load(context.Background(), 1)
	if err == nil {
		t.Fatalf("expected load error")
	}
	if KindFromError(err) != KindLoad {
		t.Fatalf("expected load kind, got %s", KindFromError(err))
	}
	if LoadStatus(err) != 503 {
		t.Fatalf("expected status 503, got %d", LoadStatus(err))
	}
	if !strings.Contains(err.Error(), "Failed to load template: 503") {
		t.Fatalf("unexpected message: %v", err)
	}
	if _, ok := repo.Current(); ok {
		t.Fatalf("expected current asset untouched on failure")
	}
}

func TestTemplateRepository_StylesheetFailureWarns(t *testing.T) {
	logger := &recordingLogger{}
	fetcher := &mapFetcher{files: map[string]string{
		"/templates/template-1.html": "<div>one</div>",
	}}
	repo := NewTemplateRepository(fetcher, WithRepositoryLogger(logger))

	asset, err := repo.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected stylesheet failure to be non-fatal, got %v", err)
	}
	if asset.Stylesheet != "" {
		t.Fatalf("expected empty stylesheet, got %q", asset.Stylesheet)
	}
	if len(asset.Warnings) != 1 || len(logger.warnings) != 1 {
		t.Fatalf("expected one warning, got asset=%v logged=%v", asset.Warnings, logger.warnings)
	}
}

func TestTemplateRepository_InvalidID(t *testing.T) {
	repo := NewTemplateRepository(&mapFetcher{})
	if _, err := repo.Load(context.Background(), 0); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTemplateRepository_Catalog(t *testing.T) {
	repo := NewTemplateRepository(&mapFetcher{})
	catalog := repo.ListAvailable()
	if len(catalog) != 1 || catalog[0].ID != 1 || catalog[0].Name != "Template 1" || catalog[0].Description != "Giopio Style" {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}
	catalog[0].Name = "mutated"
	if repo.ListAvailable()[0].Name != "Template 1" {
		t.Fatalf("expected catalog copy")
	}

	custom := NewTemplateRepository(&mapFetcher{}, WithCatalog([]TemplateInfo{{ID: 1}, {ID: 2, Name: "Two"}}))
	if info, ok := custom.Lookup(2); !ok || info.Name != "Two" {
		t.Fatalf("expected custom catalog lookup, got %+v", info)
	}
}

func TestTemplateRepository_ConcurrentLoads(t *testing.T) {
	repo := NewTemplateRepository(embeddedFetcher())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Load(context.Background(), 1); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	wg.Wait()
	current, ok := repo.Current()
	if !ok || current.ID != 1 || current.Stylesheet == "" {
		t.Fatalf("expected embedded template loaded, got %+v", current)
	}
}
