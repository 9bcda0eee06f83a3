package invoice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (e *recordingEmitter) Emit(ctx context.Context, evt ChangeEvent) error {
	_ = ctx
	e.mu.Lock()
	e.events = append(e.events, evt)
	e.mu.Unlock()
	return nil
}

func (e *recordingEmitter) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, evt := range e.events {
		out = append(out, evt.Name)
	}
	return out
}

type blockingRasterizer struct {
	png     []byte
	started chan struct{}
	release chan struct{}
}

func (r *blockingRasterizer) Rasterize(ctx context.Context, surface Surface, opts RasterOptions) (Raster, error) {
	close(r.started)
	<-r.release
	return Raster{PNG: r.png}, nil
}

type stubChannel struct {
	option ShareOption
	result ShareResult
	err    error
	got    ExportArtifact
	target ShareTarget
}

func (c *stubChannel) Option() ShareOption {
	return c.option
}

func (c *stubChannel) Deliver(ctx context.Context, artifact ExportArtifact, target ShareTarget) (ShareResult, error) {
	_ = ctx
	c.got = artifact
	c.target = target
	return c.result, c.err
}

func newTestSession(t *testing.T, cfg SessionConfig) *Session {
	t.Helper()
	if cfg.Surface.Document == nil {
		cfg.Surface = testSurface()
	}
	if cfg.Pipeline.Rasterizer == nil {
		cfg.Pipeline.Rasterizer = &stubRasterizer{png: testPNG(t, 4, 4)}
	}
	if cfg.ShareKind == "" {
		cfg.ShareKind = ArtifactPNG
	}
	return NewSession(cfg)
}

func TestSession_ExportSucceeds(t *testing.T) {
	var transitions []Transition
	history := NewMemoryHistory()
	emitter := &recordingEmitter{}
	session := newTestSession(t, SessionConfig{
		ID:           "s-1",
		History:      history,
		Emitter:      emitter,
		OnTransition: func(tr Transition) { transitions = append(transitions, tr) },
	})

	if session.State() != StateIdle || session.Exporting() {
		t.Fatalf("expected idle session")
	}
	artifact, err := session.ExportImage(context.Background())
	if err != nil {
		t.Fatalf("export image: %v", err)
	}
	if artifact.Kind != ArtifactPNG {
		t.Fatalf("expected png artifact, got %s", artifact.Kind)
	}
	if session.State() != StateSucceeded || session.Exporting() {
		t.Fatalf("expected succeeded and not exporting, got %s", session.State())
	}

	if len(transitions) != 2 {
		t.Fatalf("expected two transitions, got %d", len(transitions))
	}
	if transitions[0].From != StateIdle || transitions[0].To != StateExporting || transitions[1].To != StateSucceeded {
		t.Fatalf("unexpected transitions: %+v", transitions)
	}

	outcome, ok := session.LastOutcome()
	if !ok || outcome.State != StateSucceeded || outcome.Filename != "invoice-INV-1.png" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	records, err := history.List(context.Background(), HistoryFilter{SessionID: "s-1"})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 1 || records[0].Operation != OpExportImage || records[0].State != StateSucceeded {
		t.Fatalf("unexpected history: %+v", records)
	}

	names := emitter.names()
	if len(names) != 2 || names[0] != EventExportStarted || names[1] != EventExportSucceeded {
		t.Fatalf("unexpected events: %v", names)
	}
}

func TestSession_ExportFailureEndsFailed(t *testing.T) {
	cases := []struct {
		name       string
		rasterizer *stubRasterizer
	}{
		{name: "error", rasterizer: &stubRasterizer{err: errors.New("boom")}},
		{name: "panic", rasterizer: &stubRasterizer{panic: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var terminal []State
			session := newTestSession(t, SessionConfig{
				Pipeline: ExportPipeline{Rasterizer: tc.rasterizer},
				OnTransition: func(tr Transition) {
					if tr.To.Terminal() {
						terminal = append(terminal, tr.To)
					}
				},
			})

			_, err := session.ExportPDF(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			if session.State() != StateFailed {
				t.Fatalf("expected failed state, got %s", session.State())
			}
			if session.Exporting() {
				t.Fatalf("expected exporting flag cleared")
			}
			if len(terminal) != 1 || terminal[0] != StateFailed {
				t.Fatalf("expected exactly one terminal transition, got %v", terminal)
			}
			outcome, _ := session.LastOutcome()
			if outcome.ErrorKind == "" || outcome.Error == "" {
				t.Fatalf("expected error on outcome: %+v", outcome)
			}
		})
	}
}

func TestSession_RetryAfterFailure(t *testing.T) {
	raster := &stubRasterizer{err: errors.New("boom")}
	session := newTestSession(t, SessionConfig{Pipeline: ExportPipeline{Rasterizer: raster}})

	if _, err := session.ExportImage(context.Background()); err == nil {
		t.Fatalf("expected failure")
	}
	raster.err = nil
	raster.png = testPNG(t, 2, 2)
	if _, err := session.ExportImage(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if session.State() != StateSucceeded {
		t.Fatalf("expected succeeded after retry, got %s", session.State())
	}
}

func TestSession_RejectsWhileBusy(t *testing.T) {
	raster := &blockingRasterizer{
		png:     testPNG(t, 2, 2),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	session := newTestSession(t, SessionConfig{Pipeline: ExportPipeline{Rasterizer: raster}})

	done := make(chan error, 1)
	go func() {
		_, err := session.ExportImage(context.Background())
		done <- err
	}()

	select {
	case <-raster.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("export did not start")
	}

	if !session.Exporting() {
		t.Fatalf("expected exporting flag while running")
	}
	if _, err := session.ExportPDF(context.Background()); !IsBusy(err) {
		t.Fatalf("expected busy error, got %v", err)
	}
	if _, err := session.Share(context.Background()); !IsBusy(err) {
		t.Fatalf("expected busy error for share, got %v", err)
	}

	close(raster.release)
	if err := <-done; err != nil {
		t.Fatalf("export: %v", err)
	}
	if session.State() != StateSucceeded {
		t.Fatalf("expected succeeded, got %s", session.State())
	}
}

func TestSession_ExportIgnoresCallerCancellation(t *testing.T) {
	session := newTestSession(t, SessionConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := session.ExportImage(ctx); err != nil {
		t.Fatalf("expected export to complete, got %v", err)
	}
	if session.State() != StateSucceeded {
		t.Fatalf("expected succeeded, got %s", session.State())
	}
}

func TestSession_ClipboardUnsupportedFails(t *testing.T) {
	session := newTestSession(t, SessionConfig{})

	_, err := session.CopyImage(context.Background())
	if !IsClipboardUnsupported(err) {
		t.Fatalf("expected clipboard unsupported, got %v", err)
	}
	if session.State() != StateFailed || session.Exporting() {
		t.Fatalf("expected failed and idle flag, got %s", session.State())
	}
	outcome, _ := session.LastOutcome()
	if outcome.ErrorKind != KindClipboardUnsupported {
		t.Fatalf("expected clipboard kind on outcome, got %s", outcome.ErrorKind)
	}
}

func TestSession_ClipboardSucceeds(t *testing.T) {
	emitter := &recordingEmitter{}
	clip := &stubClipboard{}
	session := newTestSession(t, SessionConfig{
		Pipeline: ExportPipeline{Rasterizer: &stubRasterizer{png: testPNG(t, 2, 2)}, Clipboard: clip},
		Emitter:  emitter,
	})

	if _, err := session.CopyImage(context.Background()); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if session.State() != StateSucceeded || len(clip.data) == 0 {
		t.Fatalf("expected clipboard write and success")
	}
	names := emitter.names()
	if names[len(names)-1] != EventClipboardCopied {
		t.Fatalf("expected clipboard event, got %v", names)
	}
}

func TestSession_NativeShare(t *testing.T) {
	session := newTestSession(t, SessionConfig{
		Share: ShareCoordinator{Native: NativeSharerFunc(func(ctx context.Context, artifact ExportArtifact) (ShareResult, error) {
			return ShareResult{}, nil
		})},
	})

	result, err := session.Share(context.Background())
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if !result.Success || result.Method != ShareMethodNative {
		t.Fatalf("unexpected result: %+v", result)
	}
	if session.State() != StateSucceeded {
		t.Fatalf("expected succeeded, got %s", session.State())
	}
	if _, ok := session.PendingArtifact(); ok {
		t.Fatalf("expected pending artifact cleared after share")
	}
}

func TestSession_NativeShareCancelled(t *testing.T) {
	emitter := &recordingEmitter{}
	session := newTestSession(t, SessionConfig{
		Emitter: emitter,
		Share: ShareCoordinator{Native: NativeSharerFunc(func(ctx context.Context, artifact ExportArtifact) (ShareResult, error) {
			return ShareResult{}, NewError(KindCanceled, "dismissed", nil)
		})},
	})

	result, err := session.Share(context.Background())
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if result.Success || !result.Cancelled {
		t.Fatalf("expected cancelled result, got %+v", result)
	}
	if session.State() != StateSucceeded || session.Exporting() {
		t.Fatalf("expected succeeded, got %s", session.State())
	}
	if _, ok := session.PendingArtifact(); !ok {
		t.Fatalf("expected pending artifact retained after cancel")
	}
	names := emitter.names()
	if names[len(names)-1] != EventShareCancelled {
		t.Fatalf("expected cancelled event, got %v", names)
	}
}

func TestSession_ShareMenuComplete(t *testing.T) {
	channel := &stubChannel{
		option: ShareOption{ID: "email", Label: "Email"},
		result: ShareResult{Message: "sent"},
	}
	raster := &stubRasterizer{png: testPNG(t, 2, 2)}
	session := newTestSession(t, SessionConfig{
		Pipeline: ExportPipeline{Rasterizer: raster},
		Share:    ShareCoordinator{Channels: []ShareChannel{channel}},
	})

	result, err := session.Share(context.Background())
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if result.Method != ShareMethodMenu || len(result.Options) != 1 || result.Options[0].ID != "email" {
		t.Fatalf("expected menu result, got %+v", result)
	}
	if session.State() != StateAwaitingShareChoice || !session.Exporting() {
		t.Fatalf("expected awaiting share choice, got %s", session.State())
	}
	if _, err := session.ExportImage(context.Background()); !IsBusy(err) {
		t.Fatalf("expected busy while awaiting choice, got %v", err)
	}

	completed, err := session.CompleteShare(context.Background(), "email", ShareTarget{Recipients: []string{"a@example.com"}})
	if err != nil {
		t.Fatalf("complete share: %v", err)
	}
	if !completed.Success || completed.Method != ShareMethod("email") {
		t.Fatalf("unexpected completion: %+v", completed)
	}
	if len(channel.got.Data) == 0 || channel.target.Recipients[0] != "a@example.com" {
		t.Fatalf("expected pending artifact delivered")
	}
	if session.State() != StateSucceeded || session.Exporting() {
		t.Fatalf("expected succeeded, got %s", session.State())
	}
	if _, ok := session.PendingArtifact(); ok {
		t.Fatalf("expected pending cleared")
	}
	if raster.calls != 1 {
		t.Fatalf("expected a single rasterization, got %d", raster.calls)
	}
}

func TestSession_ShareMenuDismissKeepsArtifact(t *testing.T) {
	channel := &stubChannel{option: ShareOption{ID: "download", Label: "Download"}}
	raster := &stubRasterizer{png: testPNG(t, 2, 2)}
	emitter := &recordingEmitter{}
	session := newTestSession(t, SessionConfig{
		Pipeline: ExportPipeline{Rasterizer: raster},
		Share:    ShareCoordinator{Channels: []ShareChannel{channel}},
		Emitter:  emitter,
	})

	if _, err := session.Share(context.Background()); err != nil {
		t.Fatalf("share: %v", err)
	}
	if err := session.DismissShare(context.Background()); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if session.State() != StateIdle || session.Exporting() {
		t.Fatalf("expected idle after dismiss, got %s", session.State())
	}
	if _, ok := session.PendingArtifact(); !ok {
		t.Fatalf("expected artifact retained after dismiss")
	}
	if err := session.DismissShare(context.Background()); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error for second dismiss, got %v", err)
	}

	if _, err := session.Share(context.Background()); err != nil {
		t.Fatalf("share again: %v", err)
	}
	if raster.calls != 1 {
		t.Fatalf("expected retained artifact reused, got %d rasterizations", raster.calls)
	}

	names := emitter.names()
	found := false
	for _, name := range names {
		if name == EventShareDismissed {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dismissed event, got %v", names)
	}
}

func TestSession_CompleteShareFailureKeepsArtifact(t *testing.T) {
	channel := &stubChannel{option: ShareOption{ID: "messaging", Label: "Message"}, err: errors.New("webhook down")}
	session := newTestSession(t, SessionConfig{Share: ShareCoordinator{Channels: []ShareChannel{channel}}})

	if _, err := session.Share(context.Background()); err != nil {
		t.Fatalf("share: %v", err)
	}
	if _, err := session.CompleteShare(context.Background(), "messaging", ShareTarget{}); KindFromError(err) != KindExternal {
		t.Fatalf("expected external error, got %v", err)
	}
	if session.State() != StateFailed {
		t.Fatalf("expected failed, got %s", session.State())
	}
	if _, ok := session.PendingArtifact(); !ok {
		t.Fatalf("expected artifact retained after failed delivery")
	}
}

func TestSession_CompleteShareRequiresChoice(t *testing.T) {
	session := newTestSession(t, SessionConfig{})
	if _, err := session.CompleteShare(context.Background(), "email", ShareTarget{}); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if session.State() != StateIdle {
		t.Fatalf("expected state unchanged, got %s", session.State())
	}
}

func TestSession_ExportDispatch(t *testing.T) {
	session := newTestSession(t, SessionConfig{})
	artifact, err := session.Export(context.Background(), OpExportHTML)
	if err != nil {
		t.Fatalf("export html: %v", err)
	}
	if artifact.Kind != ArtifactHTML {
		t.Fatalf("expected html, got %s", artifact.Kind)
	}
	if _, err := session.Export(context.Background(), OpDismissShare); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
