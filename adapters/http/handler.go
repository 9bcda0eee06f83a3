// Package invoicehttp exposes the invoice API on net/http.
package invoicehttp

import (
	"net/http"

	"github.com/goliatone/go-invoice/adapters/invoiceapi"
	"github.com/goliatone/go-invoice/invoice"
)

// Config configures the HTTP adapter.
type Config = invoiceapi.Config

// Handler exposes invoice HTTP endpoints.
type Handler struct {
	controller *invoiceapi.Controller
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: invoiceapi.NewController(cfg)}
}

// RegisterRoutes registers handlers on a compatible router such as
// http.ServeMux.
func (h *Handler) RegisterRoutes(router any) {
	base := h.basePath()
	paths := []string{base + "/templates", base + "/invoices/", base + "/artifacts/"}
	switch r := router.(type) {
	case interface{ Handle(string, http.Handler) }:
		for _, path := range paths {
			r.Handle(path, h)
		}
	case interface {
		HandleFunc(string, func(http.ResponseWriter, *http.Request))
	}:
		for _, path := range paths {
			r.HandleFunc(path, h.ServeHTTP)
		}
	}
}

// ServeHTTP routes invoice endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	if h == nil || h.controller == nil {
		invoiceapi.WriteError(newExchange(w, r), invoice.NewError(invoice.KindInternal, "handler is nil", nil))
		return
	}
	ex := newExchange(w, r)
	h.controller.Serve(ex, ex)
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil {
		return ""
	}
	return h.controller.BasePath()
}
