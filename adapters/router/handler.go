// Package invoicerouter exposes the invoice API on go-router.
package invoicerouter

import (
	"github.com/goliatone/go-invoice/adapters/invoiceapi"
	"github.com/goliatone/go-invoice/invoice"
	"github.com/goliatone/go-router"
)

// Config configures the go-router adapter.
type Config = invoiceapi.Config

// Handler exposes invoice routes for go-router.
type Handler struct {
	controller *invoiceapi.Controller
}

// NewHandler creates a go-router handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: invoiceapi.NewController(cfg)}
}

// RegisterRoutes registers routes on a compatible go-router router.
func (h *Handler) RegisterRoutes(router any) {
	r, ok := router.(routeRegistrar)
	if !ok {
		return
	}
	base := h.basePath()
	sessions := base + "/invoices/sessions"

	r.Get(base+"/templates", h.Handle)
	r.Post(base+"/invoices/render", h.Handle)
	r.Get(base+"/invoices/history", h.Handle)
	r.Post(sessions, h.Handle)
	r.Get(sessions+"/:id", h.Handle)
	r.Delete(sessions+"/:id", h.Handle)
	r.Post(sessions+"/:id/export/:format", h.Handle)
	r.Post(sessions+"/:id/clipboard", h.Handle)
	r.Post(sessions+"/:id/share", h.Handle)
	r.Delete(sessions+"/:id/share", h.Handle)
	r.Post(sessions+"/:id/share/:option", h.Handle)
	r.Get(base+"/artifacts/*", h.Handle)
}

// Handle executes the shared invoice workflow.
func (h *Handler) Handle(c router.Context) error {
	if c == nil {
		return nil
	}
	if h == nil || h.controller == nil {
		invoiceapi.WriteError(exchange{ctx: c}, invoice.NewError(invoice.KindInternal, "handler is nil", nil))
		return nil
	}
	ex := exchange{ctx: c}
	h.controller.Serve(ex, ex)
	return nil
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil {
		return ""
	}
	return h.controller.BasePath()
}

type routeRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}
