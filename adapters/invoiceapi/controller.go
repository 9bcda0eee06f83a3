package invoiceapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errorslib "github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoice/invoice"
)

// DefaultIdempotencyTTL bounds how long a session idempotency key is honored.
const DefaultIdempotencyTTL = 10 * time.Minute

// ArtifactVerifier checks signed artifact URLs.
type ArtifactVerifier interface {
	Verify(key, expires, signature string) error
}

// Config configures the shared invoice API controller.
type Config struct {
	Service          invoice.Service
	Store            invoice.ArtifactStore
	Verifier         ArtifactVerifier
	ActorProvider    ActorProvider
	BasePath         string
	IdempotencyStore IdempotencyStore
	IdempotencyTTL   time.Duration
	MaxBodyBytes     int64
	Logger           invoice.Logger
}

// Controller exposes invoice API handlers for multiple transports.
type Controller struct {
	service          invoice.Service
	store            invoice.ArtifactStore
	verifier         ArtifactVerifier
	actorProvider    ActorProvider
	basePath         string
	idempotencyStore IdempotencyStore
	idempotencyTTL   time.Duration
	maxBodyBytes     int64
	logger           invoice.Logger
}

// NewController creates a shared invoice API controller.
func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = invoice.NopLogger{}
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &Controller{
		service:          cfg.Service,
		store:            cfg.Store,
		verifier:         cfg.Verifier,
		actorProvider:    cfg.ActorProvider,
		basePath:         strings.TrimRight(cfg.BasePath, "/"),
		idempotencyStore: cfg.IdempotencyStore,
		idempotencyTTL:   ttl,
		maxBodyBytes:     maxBody,
		logger:           logger,
	}
}

// BasePath returns the configured base path.
func (c *Controller) BasePath() string {
	if c == nil {
		return ""
	}
	return c.basePath
}

// Serve routes invoice endpoints.
func (c *Controller) Serve(req Request, res Response) {
	if res == nil {
		return
	}
	if c == nil {
		WriteError(res, invoice.NewError(invoice.KindInternal, "handler is nil", nil))
		return
	}
	if req == nil {
		WriteError(res, invoice.NewError(invoice.KindInternal, "request is nil", nil))
		return
	}
	if c.service == nil {
		WriteError(res, invoice.NewError(invoice.KindNotImpl, "invoice service not configured", nil))
		return
	}

	path := req.Path()
	if !strings.HasPrefix(path, c.basePath) {
		writeNotFound(res)
		return
	}
	suffix := strings.Trim(strings.TrimPrefix(path, c.basePath), "/")
	var parts []string
	if suffix != "" {
		parts = strings.Split(suffix, "/")
	}
	if len(parts) == 0 {
		writeNotFound(res)
		return
	}

	switch parts[0] {
	case "templates":
		c.routeTemplates(req, res, parts[1:])
	case "artifacts":
		c.routeArtifacts(req, res, parts[1:])
	case "invoices":
		c.routeInvoices(req, res, parts[1:])
	default:
		writeNotFound(res)
	}
}

func (c *Controller) routeTemplates(req Request, res Response, parts []string) {
	if len(parts) != 0 {
		writeNotFound(res)
		return
	}
	if req.Method() != http.MethodGet {
		writeMethodNotAllowed(res, "GET")
		return
	}
	writeJSON(res, http.StatusOK, TemplatesResponse{Templates: c.service.Templates()})
}

func (c *Controller) routeArtifacts(req Request, res Response, parts []string) {
	if len(parts) == 0 {
		writeNotFound(res)
		return
	}
	if req.Method() != http.MethodGet {
		writeMethodNotAllowed(res, "GET")
		return
	}
	c.handleArtifact(req, res, strings.Join(parts, "/"))
}

func (c *Controller) routeInvoices(req Request, res Response, parts []string) {
	if len(parts) == 0 {
		writeNotFound(res)
		return
	}
	method := req.Method()
	switch parts[0] {
	case "render":
		if len(parts) != 1 {
			writeNotFound(res)
			return
		}
		if method != http.MethodPost {
			writeMethodNotAllowed(res, "POST")
			return
		}
		c.handleRender(req, res)
	case "history":
		if len(parts) != 1 {
			writeNotFound(res)
			return
		}
		if method != http.MethodGet {
			writeMethodNotAllowed(res, "GET")
			return
		}
		c.handleHistory(req, res)
	case "sessions":
		c.routeSessions(req, res, parts[1:])
	default:
		writeNotFound(res)
	}
}

func (c *Controller) routeSessions(req Request, res Response, parts []string) {
	method := req.Method()
	switch len(parts) {
	case 0:
		if method != http.MethodPost {
			writeMethodNotAllowed(res, "POST")
			return
		}
		c.handleOpen(req, res)
	case 1:
		switch method {
		case http.MethodGet:
			c.handleStatus(req, res, parts[0])
		case http.MethodDelete:
			c.handleClose(req, res, parts[0])
		default:
			writeMethodNotAllowed(res, "GET,DELETE")
		}
	case 2:
		switch parts[1] {
		case "clipboard":
			if method != http.MethodPost {
				writeMethodNotAllowed(res, "POST")
				return
			}
			c.handleClipboard(req, res, parts[0])
		case "share":
			switch method {
			case http.MethodPost:
				c.handleShare(req, res, parts[0])
			case http.MethodDelete:
				c.handleDismiss(req, res, parts[0])
			default:
				writeMethodNotAllowed(res, "POST,DELETE")
			}
		default:
			writeNotFound(res)
		}
	case 3:
		if method != http.MethodPost {
			writeMethodNotAllowed(res, "POST")
			return
		}
		switch parts[1] {
		case "export":
			c.handleExport(req, res, parts[0], parts[2])
		case "share":
			c.handleCompleteShare(req, res, parts[0], parts[2])
		default:
			writeNotFound(res)
		}
	default:
		writeNotFound(res)
	}
}

func (c *Controller) handleRender(req Request, res Response) {
	templateID, err := parseTemplateID(req.Query("template"))
	if err != nil {
		WriteError(res, err)
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Query("mode")))
	if mode != "" && mode != "standalone" && mode != "fragment" {
		WriteError(res, invoice.NewError(invoice.KindValidation, fmt.Sprintf("unknown render mode %q", mode), nil))
		return
	}

	var data invoice.InvoiceData
	if err := decodeJSON(req, c.maxBodyBytes, &data, true); err != nil {
		WriteError(res, err)
		return
	}
	doc, err := c.service.Render(req.Context(), templateID, data)
	if err != nil {
		WriteError(res, err)
		return
	}

	body := doc.Standalone
	if mode == "fragment" {
		body = doc.Fragment
	}
	res.SetHeader("Content-Type", "text/html; charset=utf-8")
	if len(doc.Warnings) > 0 {
		res.SetHeader("X-Invoice-Warnings", fmt.Sprintf("%d", len(doc.Warnings)))
	}
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write([]byte(body))
}

func (c *Controller) handleOpen(req Request, res Response) {
	actorID, err := c.actorID(req)
	if err != nil {
		WriteError(res, err)
		return
	}

	key := strings.TrimSpace(req.Header("Idempotency-Key"))
	if key != "" && c.idempotencyStore != nil {
		scoped := idempotencyKey(key, actorID)
		if id, ok, err := c.idempotencyStore.Get(req.Context(), scoped); err == nil && ok {
			if session, err := c.service.Session(id); err == nil {
				writeJSON(res, http.StatusOK, sessionResponse(session, nil))
				return
			}
		}
	}

	var payload openPayload
	if err := decodeJSON(req, c.maxBodyBytes, &payload, true); err != nil {
		WriteError(res, err)
		return
	}
	if payload.TemplateID == 0 {
		payload.TemplateID = DefaultTemplateID
	}
	session, doc, err := c.service.Open(req.Context(), invoice.OpenRequest{
		TemplateID: payload.TemplateID,
		Data:       payload.Data,
		ActorID:    actorID,
	})
	if err != nil {
		WriteError(res, err)
		return
	}

	if key != "" && c.idempotencyStore != nil {
		if err := c.idempotencyStore.Set(req.Context(), idempotencyKey(key, actorID), session.ID(), c.idempotencyTTL); err != nil {
			c.logger.Warnf("invoice session %s: store idempotency key: %v", session.ID(), err)
		}
	}
	writeJSON(res, http.StatusCreated, sessionResponse(session, doc.Warnings))
}

func (c *Controller) handleStatus(req Request, res Response, id string) {
	_ = req
	session, err := c.service.Session(id)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, sessionResponse(session, nil))
}

func (c *Controller) handleClose(req Request, res Response, id string) {
	_ = req
	session, err := c.service.Session(id)
	if err != nil {
		WriteError(res, err)
		return
	}
	if session.Exporting() {
		WriteError(res, invoice.NewError(invoice.KindBusy, "session is busy", nil))
		return
	}
	c.service.Close(id)
	res.WriteHeader(http.StatusNoContent)
}

func (c *Controller) handleExport(req Request, res Response, id, format string) {
	op, err := operationForFormat(format)
	if err != nil {
		WriteError(res, err)
		return
	}
	session, err := c.service.Session(id)
	if err != nil {
		WriteError(res, err)
		return
	}
	artifact, err := session.Export(req.Context(), op)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeArtifact(res, session.ID(), artifact.Filename, string(artifact.Kind), artifact.Data)
}

func (c *Controller) handleClipboard(req Request, res Response, id string) {
	session, err := c.service.Session(id)
	if err != nil {
		WriteError(res, err)
		return
	}
	if _, err := session.CopyImage(req.Context()); err != nil {
		WriteError(res, err)
		return
	}
	outcome, _ := session.LastOutcome()
	writeJSON(res, http.StatusOK, outcome)
}

func (c *Controller) handleShare(req Request, res Response, id string) {
	session, err := c.service.Session(id)
	if err != nil {
		WriteError(res, err)
		return
	}
	result, err := session.Share(req.Context())
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, result)
}

func (c *Controller) handleCompleteShare(req Request, res Response, id, option string) {
	var target invoice.ShareTarget
	if err := decodeJSON(req, c.maxBodyBytes, &target, false); err != nil {
		WriteError(res, err)
		return
	}
	session, err := c.service.Session(id)
	if err != nil {
		WriteError(res, err)
		return
	}
	result, err := session.CompleteShare(req.Context(), option, target)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, result)
}

func (c *Controller) handleDismiss(req Request, res Response, id string) {
	session, err := c.service.Session(id)
	if err != nil {
		WriteError(res, err)
		return
	}
	if err := session.DismissShare(req.Context()); err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, sessionResponse(session, nil))
}

func (c *Controller) handleHistory(req Request, res Response) {
	filter, err := parseHistoryFilter(req)
	if err != nil {
		WriteError(res, err)
		return
	}
	records, err := c.service.History(req.Context(), filter)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, historyResponse(records))
}

func (c *Controller) handleArtifact(req Request, res Response, key string) {
	if c.store == nil {
		WriteError(res, invoice.NewError(invoice.KindNotImpl, "artifact store not configured", nil))
		return
	}
	if c.verifier != nil {
		if err := c.verifier.Verify(key, req.Query("expires"), req.Query("sig")); err != nil {
			WriteError(res, err)
			return
		}
	}

	reader, meta, err := c.store.Open(req.Context(), key)
	if err != nil {
		WriteError(res, err)
		return
	}
	defer reader.Close()

	filename := meta.Filename
	if filename == "" {
		filename = key[strings.LastIndex(key, "/")+1:]
	}
	setDownloadHeaders(res, "", sanitizeFilename(filename), meta.ContentType)
	if meta.Size > 0 {
		res.SetHeader("Content-Length", fmt.Sprintf("%d", meta.Size))
	}
	res.WriteHeader(http.StatusOK)

	if w, ok := res.Writer(); ok {
		if _, err := io.Copy(w, reader); err != nil {
			c.logger.Errorf("artifact %s: stream failed: %v", key, err)
		}
		return
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		c.logger.Errorf("artifact %s: read failed: %v", key, err)
		return
	}
	_, _ = res.Write(data)
}

func (c *Controller) actorID(req Request) (string, error) {
	if c.actorProvider == nil {
		return "", nil
	}
	return c.actorProvider.ActorID(req.Context())
}

func writeArtifact(res Response, sessionID, filename, contentType string, data []byte) {
	setDownloadHeaders(res, sessionID, sanitizeFilename(filename), contentType)
	res.SetHeader("Content-Length", fmt.Sprintf("%d", len(data)))
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write(data)
}

func writeNotFound(res Response) {
	WriteError(res, invoice.NewError(invoice.KindNotFound, "route not found", nil))
}

func writeMethodNotAllowed(res Response, allow string) {
	res.SetHeader("Allow", allow)
	res.WriteHeader(http.StatusMethodNotAllowed)
}

// WriteError writes err as a JSON error body with a matching status.
func WriteError(res Response, err error) {
	if err == nil {
		res.WriteHeader(http.StatusNoContent)
		return
	}
	ge := invoice.AsGoError(err)
	writeJSON(res, statusForError(ge), ErrorResponse{
		Error: ErrorBody{
			Message: ge.Message,
			Code:    ge.TextCode,
		},
	})
}

func writeJSON(res Response, status int, payload any) {
	_ = res.WriteJSON(status, payload)
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch invoice.ErrorKind(err.TextCode) {
	case invoice.KindValidation, invoice.KindBinding:
		return http.StatusBadRequest
	case invoice.KindNotFound:
		return http.StatusNotFound
	case invoice.KindBusy, invoice.KindCanceled:
		return http.StatusConflict
	case invoice.KindClipboardUnsupported, invoice.KindShareUnsupported:
		return http.StatusUnprocessableEntity
	case invoice.KindLoad, invoice.KindExternal:
		return http.StatusBadGateway
	case invoice.KindNotImpl:
		return http.StatusNotImplemented
	case invoice.KindTimeout:
		return http.StatusRequestTimeout
	}
	switch err.Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func sanitizeFilename(filename string) string {
	name := strings.TrimSpace(filename)
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		return "invoice"
	}
	return name
}

func setDownloadHeaders(res Response, sessionID, filename, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	res.SetHeader("Content-Type", contentType)
	res.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if sessionID != "" {
		res.SetHeader("X-Invoice-Session", sessionID)
	}
}
