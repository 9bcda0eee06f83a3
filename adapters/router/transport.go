package invoicerouter

import (
	"bytes"
	"context"
	"io"

	"github.com/goliatone/go-invoice/adapters/invoiceapi"
	"github.com/goliatone/go-router"
)

// exchange adapts one go-router context to the controller's request and
// response sides.
type exchange struct {
	ctx router.Context
}

func (ex exchange) Context() context.Context {
	if ctx := ex.ctx.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (ex exchange) Method() string            { return ex.ctx.Method() }
func (ex exchange) Path() string              { return ex.ctx.Path() }
func (ex exchange) Header(name string) string { return ex.ctx.Header(name) }
func (ex exchange) Query(name string) string  { return ex.ctx.Query(name) }

func (ex exchange) Body() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(ex.ctx.Body()))
}

func (ex exchange) SetHeader(name, value string) { ex.ctx.SetHeader(name, value) }
func (ex exchange) WriteHeader(status int)       { ex.ctx.Status(status) }

func (ex exchange) Write(data []byte) (int, error) {
	if err := ex.ctx.Send(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (ex exchange) WriteJSON(status int, payload any) error {
	return ex.ctx.JSON(status, payload)
}

// Writer streams through the underlying net/http response when the router
// runs on net/http; fiber contexts fall back to Write.
func (ex exchange) Writer() (io.Writer, bool) {
	httpCtx, ok := router.AsHTTPContext(ex.ctx)
	if !ok || httpCtx.Response() == nil {
		return nil, false
	}
	return httpCtx.Response(), true
}

var (
	_ invoiceapi.Request  = exchange{}
	_ invoiceapi.Response = exchange{}
)
