package invoicehttp

import (
	"net/http"

	"github.com/goliatone/go-invoice/invoice"
	"github.com/goliatone/go-invoice/templates"
)

// TemplatesHandler serves the embedded template content host under prefix,
// the layout HTTP template fetchers expect.
func TemplatesHandler(prefix string) http.Handler {
	if prefix == "" {
		prefix = invoice.DefaultTemplatePrefix
	}
	prefix = ensureTrailingSlash(prefix)
	return http.StripPrefix(prefix, http.FileServerFS(templates.FS()))
}

func ensureTrailingSlash(value string) string {
	if value == "" {
		return ""
	}
	if value[len(value)-1] == '/' {
		return value
	}
	return value + "/"
}
