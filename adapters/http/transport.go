package invoicehttp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/goliatone/go-invoice/adapters/invoiceapi"
)

// exchange serves as both sides of one net/http round trip.
type exchange struct {
	w      http.ResponseWriter
	r      *http.Request
	query  url.Values
	status int
}

func newExchange(w http.ResponseWriter, r *http.Request) *exchange {
	ex := &exchange{w: w, r: r, query: url.Values{}}
	if r != nil && r.URL != nil {
		ex.query = r.URL.Query()
	}
	return ex
}

func (ex *exchange) Context() context.Context {
	if ex.r == nil {
		return context.Background()
	}
	return ex.r.Context()
}

func (ex *exchange) Method() string { return ex.r.Method }

func (ex *exchange) Path() string {
	if ex.r.URL == nil {
		return ""
	}
	return ex.r.URL.Path
}

func (ex *exchange) Header(name string) string { return ex.r.Header.Get(name) }

func (ex *exchange) Query(name string) string { return ex.query.Get(name) }

func (ex *exchange) Body() io.ReadCloser { return ex.r.Body }

func (ex *exchange) SetHeader(name, value string) { ex.w.Header().Set(name, value) }

// WriteHeader sends the status line once; later calls are ignored.
func (ex *exchange) WriteHeader(status int) {
	if ex.status != 0 {
		return
	}
	ex.status = status
	ex.w.WriteHeader(status)
}

func (ex *exchange) Write(data []byte) (int, error) {
	if ex.status == 0 {
		ex.status = http.StatusOK
	}
	return ex.w.Write(data)
}

func (ex *exchange) WriteJSON(status int, payload any) error {
	ex.SetHeader("Content-Type", "application/json")
	ex.WriteHeader(status)
	return json.NewEncoder(ex).Encode(payload)
}

func (ex *exchange) Writer() (io.Writer, bool) { return ex, true }

var (
	_ invoiceapi.Request  = (*exchange)(nil)
	_ invoiceapi.Response = (*exchange)(nil)
)
