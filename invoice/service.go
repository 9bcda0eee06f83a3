package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service is the invoice export entry point used by transports and commands.
type Service interface {
	Templates() []TemplateInfo
	Render(ctx context.Context, templateID int, data InvoiceData) (Document, error)
	Open(ctx context.Context, req OpenRequest) (*Session, Document, error)
	Session(id string) (*Session, error)
	Close(id string)
	History(ctx context.Context, filter HistoryFilter) ([]HistoryRecord, error)
}

// OpenRequest describes a document to render into a new session.
type OpenRequest struct {
	TemplateID int         `json:"template_id"`
	Data       InvoiceData `json:"data"`
	ActorID    string      `json:"actor_id,omitempty"`
}

// ServiceConfig wires the service collaborators.
type ServiceConfig struct {
	Renderer     Renderer
	Pipeline     ExportPipeline
	Share        ShareCoordinator
	ShareKind    ArtifactKind
	Sessions     *SessionRegistry
	Emitter      ChangeEmitter
	History      HistoryStore
	BaseURL      string
	Logger       Logger
	Now          func() time.Time
	IDGenerator  func() string
	OnTransition func(sessionID string, tr Transition)
}

type service struct {
	cfg ServiceConfig
}

// NewService creates an invoice service.
func NewService(cfg ServiceConfig) Service {
	if cfg.Sessions == nil {
		cfg.Sessions = NewSessionRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = uuid.NewString
	}
	if cfg.Renderer.Now == nil {
		cfg.Renderer.Now = cfg.Now
	}
	if cfg.Pipeline.Now == nil {
		cfg.Pipeline.Now = cfg.Now
	}
	if cfg.Pipeline.Logger == nil {
		cfg.Pipeline.Logger = cfg.Logger
	}
	if cfg.Share.Logger == nil {
		cfg.Share.Logger = cfg.Logger
	}
	return &service{cfg: cfg}
}

func (s *service) Templates() []TemplateInfo {
	if s.cfg.Renderer.Repository == nil {
		return DefaultCatalog()
	}
	return s.cfg.Renderer.Repository.ListAvailable()
}

func (s *service) Render(ctx context.Context, templateID int, data InvoiceData) (Document, error) {
	doc, err := s.cfg.Renderer.Render(ctx, templateID, data)
	if err != nil {
		return Document{}, err
	}
	for _, warning := range doc.Warnings {
		s.cfg.Logger.Warnf("invoice %s: %s", data.InvoiceNumber, warning.Message)
	}
	return doc, nil
}

func (s *service) Open(ctx context.Context, req OpenRequest) (*Session, Document, error) {
	doc, err := s.Render(ctx, req.TemplateID, req.Data)
	if err != nil {
		return nil, Document{}, err
	}

	id := s.cfg.IDGenerator()
	var onTransition func(Transition)
	if s.cfg.OnTransition != nil {
		onTransition = func(tr Transition) {
			s.cfg.OnTransition(id, tr)
		}
	}

	session := NewSession(SessionConfig{
		ID:           id,
		ActorID:      req.ActorID,
		Surface:      doc.Surface(id, s.cfg.BaseURL),
		Pipeline:     s.cfg.Pipeline,
		Share:        s.cfg.Share,
		ShareKind:    s.cfg.ShareKind,
		Emitter:      s.cfg.Emitter,
		History:      s.cfg.History,
		Logger:       s.cfg.Logger,
		Now:          s.cfg.Now,
		OnTransition: onTransition,
	})
	s.cfg.Sessions.Put(session)
	s.cfg.Logger.Infof("invoice %s: opened session %s on template %d", req.Data.InvoiceNumber, id, doc.TemplateID)
	return session, doc, nil
}

func (s *service) Session(id string) (*Session, error) {
	if id == "" {
		return nil, NewError(KindValidation, "session id is required", nil)
	}
	return s.cfg.Sessions.Get(id)
}

func (s *service) Close(id string) {
	s.cfg.Sessions.Delete(id)
}

func (s *service) History(ctx context.Context, filter HistoryFilter) ([]HistoryRecord, error) {
	if s.cfg.History == nil {
		return nil, NewError(KindNotImpl, "history store not configured", nil)
	}
	return s.cfg.History.List(ctx, filter)
}
