package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"skin-detect/internal/domain"
	"skin-detect/internal/preview"
)

// ErrSessionClosed rejects submissions on a session that has been closed.
var ErrSessionClosed = errors.New("session closed")

// Analyzer runs a detection request to completion.
type Analyzer interface {
	Analyze(ctx context.Context, req domain.DetectionRequest) (*domain.InferenceResult, error)
}

// Phase is the submission state shown by the view.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
)

// View is a read-only copy of a session for rendering.
type View struct {
	SessionID      string
	Filename       string
	HasFile        bool
	Preview        string
	UseEnhancement bool
	Loading        bool
	Error          string
	Result         *domain.InferenceResult
	Tab            domain.Tab
	InfoTab        domain.InfoTab
}

// Phase is submitting while a request is outstanding, idle otherwise.
func (v View) Phase() Phase {
	if v.Loading {
		return PhaseSubmitting
	}
	return PhaseIdle
}

// ShowPreview reports whether the preview block belongs on the page.
func (v View) ShowPreview() bool {
	return v.Preview != "" && v.Result == nil
}

// Session holds the state of one page session: the chosen file, its preview,
// the enhancement flag, the outstanding submission and its outcome.
type Session struct {
	id          string
	analyzer    Analyzer
	logger      *slog.Logger
	previewSize uint

	mu             sync.Mutex
	file           *domain.SelectedImage
	preview        string
	useEnhancement bool
	loading        bool
	errMsg         string
	result         *domain.InferenceResult
	tab            domain.Tab
	infoTab        domain.InfoTab
	generation     uint64
	closed         bool
}

// NewSession starts on the Detection tab with enhancement on.
func NewSession(id string, analyzer Analyzer, previewSize uint, logger *slog.Logger) *Session {
	return &Session{
		id:             id,
		analyzer:       analyzer,
		logger:         logger.With("session", id),
		previewSize:    previewSize,
		useEnhancement: true,
		tab:            domain.TabDetection,
		infoTab:        domain.InfoAboutSkinCancer,
	}
}

// ID is the cookie value that addresses this session.
func (s *Session) ID() string {
	return s.id
}

// SelectFile replaces the chosen file. The previous preview, result and error
// are cleared before the new preview is derived. An empty selection is ignored.
func (s *Session) SelectFile(img domain.SelectedImage) {
	if img.Empty() {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	s.file = &img
	s.preview = ""
	s.result = nil
	s.errMsg = ""
	s.mu.Unlock()

	uri, err := preview.DataURI(img.Data, s.previewSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != gen {
		return
	}
	if err != nil {
		s.logger.Warn("preview failed", "file", img.Filename, "err", err)
		return
	}
	s.preview = uri
}

// SetEnhancement sets the flag sent with the next submission.
func (s *Session) SetEnhancement(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useEnhancement = on
}

// SetTab switches the top-level tab.
func (s *Session) SetTab(tab domain.Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = tab
}

// SetInfoTab switches the Information sub-tab.
func (s *Session) SetInfoTab(tab domain.InfoTab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infoTab = tab
}

// Submit sends the chosen file for analysis and waits for the outcome. With
// no file it records the validation message and makes no call.
func (s *Session) Submit(ctx context.Context) error {
	req, gen, err := s.begin()
	if err != nil {
		return err
	}
	return s.run(ctx, req, gen)
}

// SubmitAsync validates and marks the session as loading, then runs the
// analysis in the background. Its errors are the same synchronous
// rejections as Submit; the outcome lands in the session.
func (s *Session) SubmitAsync(ctx context.Context) error {
	req, gen, err := s.begin()
	if err != nil {
		return err
	}
	go s.run(ctx, req, gen)
	return nil
}

func (s *Session) begin() (domain.DetectionRequest, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.DetectionRequest{}, 0, ErrSessionClosed
	}
	if s.loading {
		return domain.DetectionRequest{}, 0, domain.ErrSubmissionInFlight
	}
	if s.file == nil {
		s.errMsg = domain.UserMessage(domain.ErrNoFileSelected)
		return domain.DetectionRequest{}, 0, domain.ErrNoFileSelected
	}

	s.loading = true
	s.errMsg = ""
	return domain.DetectionRequest{Image: *s.file, UseEnhancement: s.useEnhancement}, s.generation, nil
}

// run performs the call. Loading is cleared on every path. The outcome is
// dropped when the session was closed or another file was selected meanwhile.
func (s *Session) run(ctx context.Context, req domain.DetectionRequest, gen uint64) error {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	result, err := s.analyzer.Analyze(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false
	if s.closed {
		s.logger.Debug("discarding outcome for closed session")
		return err
	}
	if s.generation != gen {
		s.logger.Debug("discarding outcome for replaced file", "file", req.Image.Filename)
		return err
	}
	if err != nil {
		s.logger.Error("analysis failed", "file", req.Image.Filename, "err", err)
		s.result = nil
		s.errMsg = domain.UserMessage(err)
		return err
	}

	s.result = result
	s.errMsg = ""
	s.preview = ""
	return nil
}

// Close ends the session. Outcomes of submissions still in flight are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.file = nil
	s.preview = ""
	s.result = nil
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshot copies the state for rendering.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:      s.id,
		Preview:        s.preview,
		UseEnhancement: s.useEnhancement,
		Loading:        s.loading,
		Error:          s.errMsg,
		Result:         s.result,
		Tab:            s.tab,
		InfoTab:        s.infoTab,
	}
	if s.file != nil {
		v.HasFile = true
		v.Filename = s.file.Filename
	}
	return v
}
