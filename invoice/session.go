package invoice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the export/share interaction state of a session.
type State string

const (
	StateIdle                State = "idle"
	StateExporting           State = "exporting"
	StateAwaitingShareChoice State = "awaiting_share_choice"
	StateSucceeded           State = "succeeded"
	StateFailed              State = "failed"
)

// Terminal reports whether s ends an operation.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Operation names an export or share action on a session.
type Operation string

const (
	OpExportPDF     Operation = "export_pdf"
	OpExportImage   Operation = "export_image"
	OpExportHTML    Operation = "export_html"
	OpPrintPDF      Operation = "print_pdf"
	OpClipboard     Operation = "clipboard"
	OpShare         Operation = "share"
	OpCompleteShare Operation = "complete_share"
	OpDismissShare  Operation = "dismiss_share"
)

// Transition records one state change.
type Transition struct {
	From      State
	To        State
	Operation Operation
	At        time.Time
}

// Outcome is the result of the most recent finished operation.
type Outcome struct {
	Operation Operation    `json:"operation"`
	State     State        `json:"state"`
	Filename  string       `json:"filename,omitempty"`
	Kind      ArtifactKind `json:"kind,omitempty"`
	Size      int64        `json:"size,omitempty"`
	Share     *ShareResult `json:"share,omitempty"`
	Error     string       `json:"error,omitempty"`
	ErrorKind ErrorKind    `json:"error_kind,omitempty"`
	At        time.Time    `json:"at"`
}

// SessionConfig configures a Session.
type SessionConfig struct {
	ID           string
	ActorID      string
	Surface      Surface
	Pipeline     ExportPipeline
	Share        ShareCoordinator
	ShareKind    ArtifactKind
	Emitter      ChangeEmitter
	History      HistoryStore
	Logger       Logger
	Now          func() time.Time
	OnTransition func(Transition)
}

// Session drives one document through the export/share state machine.
// Only one operation runs at a time; a second request while busy is
// rejected with a busy error.
type Session struct {
	id           string
	actorID      string
	surface      Surface
	pipeline     ExportPipeline
	share        ShareCoordinator
	shareKind    ArtifactKind
	emitter      ChangeEmitter
	history      HistoryStore
	logger       Logger
	now          func() time.Time
	onTransition func(Transition)

	mu      sync.Mutex
	state   State
	pending *ExportArtifact
	last    *Outcome
}

// NewSession creates an idle session over a rendered surface.
func NewSession(cfg SessionConfig) *Session {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	shareKind := cfg.ShareKind
	if shareKind == "" {
		shareKind = ArtifactPDF
	}
	surface := cfg.Surface
	if surface.ID == "" {
		surface.ID = id
	}
	return &Session{
		id:           id,
		actorID:      cfg.ActorID,
		surface:      surface,
		pipeline:     cfg.Pipeline,
		share:        cfg.Share,
		shareKind:    shareKind,
		emitter:      cfg.Emitter,
		history:      cfg.History,
		logger:       loggerOrNop(cfg.Logger),
		now:          now,
		onTransition: cfg.OnTransition,
		state:        StateIdle,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Surface returns the pinned surface snapshot.
func (s *Session) Surface() Surface {
	return s.surface
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Exporting is the busy flag: true while an operation or share choice is open.
func (s *Session) Exporting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return isBusy(s.state)
}

// LastOutcome returns the most recent finished operation.
func (s *Session) LastOutcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Outcome{}, false
	}
	return *s.last, true
}

// PendingArtifact returns the artifact held for a share choice or retry.
func (s *Session) PendingArtifact() (ExportArtifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return ExportArtifact{}, false
	}
	return *s.pending, true
}

// ExportPDF exports the surface as a paginated raster PDF.
func (s *Session) ExportPDF(ctx context.Context) (ExportArtifact, error) {
	return s.runExport(ctx, OpExportPDF, s.pipeline.ExportPDF)
}

// ExportImage exports the surface as a PNG.
func (s *Session) ExportImage(ctx context.Context) (ExportArtifact, error) {
	return s.runExport(ctx, OpExportImage, s.pipeline.ExportImage)
}

// ExportPrintPDF exports the surface through the print engine.
func (s *Session) ExportPrintPDF(ctx context.Context) (ExportArtifact, error) {
	return s.runExport(ctx, OpPrintPDF, s.pipeline.ExportPrintPDF)
}

// ExportHTML exports the standalone document.
func (s *Session) ExportHTML(ctx context.Context) (ExportArtifact, error) {
	return s.runExport(ctx, OpExportHTML, func(ctx context.Context, surface Surface) (ExportArtifact, error) {
		return s.pipeline.ExportHTML(surface)
	})
}

// CopyImage writes the surface raster to the clipboard. The session waits
// for the write and ends in succeeded or failed accordingly.
func (s *Session) CopyImage(ctx context.Context) (ExportArtifact, error) {
	return s.runExport(ctx, OpClipboard, s.pipeline.ExportClipboardImage)
}

// Export dispatches an export operation by name.
func (s *Session) Export(ctx context.Context, op Operation) (ExportArtifact, error) {
	switch op {
	case OpExportPDF:
		return s.ExportPDF(ctx)
	case OpExportImage:
		return s.ExportImage(ctx)
	case OpPrintPDF:
		return s.ExportPrintPDF(ctx)
	case OpExportHTML:
		return s.ExportHTML(ctx)
	case OpClipboard:
		return s.CopyImage(ctx)
	default:
		return ExportArtifact{}, NewError(KindValidation, fmt.Sprintf("unsupported export operation %q", op), nil)
	}
}

// Share exports the share artifact (or reuses a retained one) and attempts
// a share. A menu result moves the session to awaiting_share_choice.
func (s *Session) Share(ctx context.Context) (result ShareResult, err error) {
	if err := s.begin(ctx, OpShare, StateIdle, StateSucceeded, StateFailed); err != nil {
		return ShareResult{}, err
	}

	var artifact ExportArtifact
	defer func() {
		if r := recover(); r != nil {
			result = ShareResult{}
			err = NewError(KindExport, "share panicked", fmt.Errorf("%v", r))
		}
		if err == nil && result.Method == ShareMethodMenu {
			s.awaitChoice(ctx, artifact, result)
			return
		}
		s.finish(ctx, OpShare, &artifact, &result, err)
	}()

	opCtx := context.WithoutCancel(ctx)
	artifact, err = s.shareArtifact(opCtx)
	if err != nil {
		return ShareResult{}, err
	}
	result, err = s.share.Share(opCtx, artifact)
	if err != nil {
		return ShareResult{}, err
	}
	return result, nil
}

// CompleteShare delivers the pending artifact through the chosen channel.
func (s *Session) CompleteShare(ctx context.Context, optionID string, target ShareTarget) (result ShareResult, err error) {
	if err := s.begin(ctx, OpCompleteShare, StateAwaitingShareChoice); err != nil {
		return ShareResult{}, err
	}
	artifact, _ := s.PendingArtifact()

	defer func() {
		if r := recover(); r != nil {
			result = ShareResult{}
			err = NewError(KindExport, "share panicked", fmt.Errorf("%v", r))
		}
		s.finish(ctx, OpCompleteShare, &artifact, &result, err)
	}()

	result, err = s.share.CompleteShare(context.WithoutCancel(ctx), optionID, artifact, target)
	if err != nil {
		return ShareResult{}, err
	}
	return result, nil
}

// DismissShare closes the share chooser and returns to idle. The pending
// artifact is kept for a retry.
func (s *Session) DismissShare(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateAwaitingShareChoice {
		state := s.state
		s.mu.Unlock()
		if isBusy(state) {
			return NewError(KindBusy, "an export is in progress", nil)
		}
		return NewError(KindValidation, "no share choice is pending", nil)
	}
	tr := s.transitionLocked(StateIdle, OpDismissShare)
	s.mu.Unlock()
	s.notify(tr)

	s.emit(ctx, EventShareDismissed, OpDismissShare, nil)
	return nil
}

func (s *Session) runExport(ctx context.Context, op Operation, fn func(context.Context, Surface) (ExportArtifact, error)) (artifact ExportArtifact, err error) {
	if err := s.begin(ctx, op, StateIdle, StateSucceeded, StateFailed); err != nil {
		return ExportArtifact{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			artifact = ExportArtifact{}
			err = NewError(KindExport, fmt.Sprintf("%s panicked", op), fmt.Errorf("%v", r))
		}
		s.finish(ctx, op, &artifact, nil, err)
	}()

	return fn(context.WithoutCancel(ctx), s.surface)
}

func (s *Session) shareArtifact(ctx context.Context) (ExportArtifact, error) {
	if pending, ok := s.PendingArtifact(); ok {
		return pending, nil
	}
	switch s.shareKind {
	case ArtifactPNG:
		return s.pipeline.ExportImage(ctx, s.surface)
	case ArtifactHTML:
		return s.pipeline.ExportHTML(s.surface)
	default:
		return s.pipeline.ExportPDF(ctx, s.surface)
	}
}

func (s *Session) begin(ctx context.Context, op Operation, allowed ...State) error {
	s.mu.Lock()
	current := s.state
	permitted := false
	for _, state := range allowed {
		if current == state {
			permitted = true
			break
		}
	}
	if !permitted {
		s.mu.Unlock()
		if current == StateExporting || (current == StateAwaitingShareChoice && op != OpCompleteShare) {
			return NewError(KindBusy, "an export is in progress", nil)
		}
		return NewError(KindValidation, fmt.Sprintf("%s is not allowed while %s", op, current), nil)
	}
	tr := s.transitionLocked(StateExporting, op)
	s.mu.Unlock()
	s.notify(tr)

	s.emit(ctx, EventExportStarted, op, nil)
	return nil
}

func (s *Session) awaitChoice(ctx context.Context, artifact ExportArtifact, result ShareResult) {
	s.mu.Lock()
	held := artifact
	s.pending = &held
	tr := s.transitionLocked(StateAwaitingShareChoice, OpShare)
	s.mu.Unlock()
	s.notify(tr)

	options := make([]string, 0, len(result.Options))
	for _, option := range result.Options {
		options = append(options, option.ID)
	}
	s.emit(ctx, EventShareMenu, OpShare, map[string]any{"options": options, "filename": artifact.Filename})
}

func (s *Session) finish(ctx context.Context, op Operation, artifact *ExportArtifact, share *ShareResult, err error) {
	outcome := Outcome{Operation: op, State: StateSucceeded, At: s.now()}
	if artifact != nil && len(artifact.Data) > 0 {
		outcome.Filename = artifact.Filename
		outcome.Kind = artifact.Kind
		outcome.Size = artifact.Size()
	}
	if err != nil {
		outcome.State = StateFailed
		outcome.Error = err.Error()
		outcome.ErrorKind = KindFromError(err)
	} else if share != nil {
		copied := *share
		outcome.Share = &copied
	}

	s.mu.Lock()
	if isShareOp(op) && err == nil && share != nil && share.Success && !share.Cancelled {
		s.pending = nil
	} else if isShareOp(op) && artifact != nil && len(artifact.Data) > 0 {
		held := *artifact
		s.pending = &held
	}
	s.last = &outcome
	tr := s.transitionLocked(outcome.State, op)
	s.mu.Unlock()
	s.notify(tr)

	s.record(ctx, outcome)

	meta := map[string]any{"operation": string(op)}
	if outcome.Filename != "" {
		meta["filename"] = outcome.Filename
		meta["size"] = outcome.Size
	}
	switch {
	case err != nil:
		meta["error"] = outcome.Error
		meta["error_kind"] = string(outcome.ErrorKind)
		s.logger.Errorf("invoice session %s: %s failed: %v", s.id, op, err)
		s.emit(ctx, EventExportFailed, op, meta)
	case op == OpClipboard:
		s.emit(ctx, EventClipboardCopied, op, meta)
	case share != nil && share.Cancelled:
		s.emit(ctx, EventShareCancelled, op, meta)
	case isShareOp(op):
		meta["method"] = string(share.Method)
		s.emit(ctx, EventShareCompleted, op, meta)
	default:
		s.emit(ctx, EventExportSucceeded, op, meta)
	}
}

func (s *Session) transitionLocked(to State, op Operation) Transition {
	from := s.state
	s.state = to
	return Transition{From: from, To: to, Operation: op, At: s.now()}
}

func (s *Session) notify(tr Transition) {
	if s.onTransition != nil {
		s.onTransition(tr)
	}
}

func (s *Session) record(ctx context.Context, outcome Outcome) {
	if s.history == nil {
		return
	}
	record := HistoryRecord{
		ID:            uuid.NewString(),
		SessionID:     s.id,
		InvoiceNumber: s.surface.InvoiceNumber,
		TemplateID:    s.surface.TemplateID,
		Operation:     outcome.Operation,
		State:         outcome.State,
		Filename:      outcome.Filename,
		ContentType:   string(outcome.Kind),
		Size:          outcome.Size,
		Error:         outcome.Error,
		CreatedAt:     outcome.At,
	}
	if outcome.Share != nil {
		record.ShareMethod = string(outcome.Share.Method)
	}
	if err := s.history.Record(context.WithoutCancel(ctx), record); err != nil {
		s.logger.Errorf("invoice session %s: record history: %v", s.id, err)
	}
}

func (s *Session) emit(ctx context.Context, name string, op Operation, meta map[string]any) {
	if s.emitter == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{"operation": string(op)}
	}
	evt := ChangeEvent{
		Name:          name,
		SessionID:     s.id,
		InvoiceNumber: s.surface.InvoiceNumber,
		TemplateID:    s.surface.TemplateID,
		ActorID:       s.actorID,
		Timestamp:     s.now(),
		Metadata:      meta,
	}
	if err := s.emitter.Emit(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.Errorf("invoice session %s: emit %s: %v", s.id, name, err)
	}
}

func isBusy(state State) bool {
	return state == StateExporting || state == StateAwaitingShareChoice
}

func isShareOp(op Operation) bool {
	return op == OpShare || op == OpCompleteShare
}
