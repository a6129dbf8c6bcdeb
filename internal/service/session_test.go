package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skin-detect/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeDetector struct {
	mu      sync.Mutex
	calls   []domain.DetectionRequest
	result  *domain.InferenceResult
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeDetector) Detect(ctx context.Context, img domain.SelectedImage, useEnhancement bool) (*domain.InferenceResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, domain.DetectionRequest{Image: img, UseEnhancement: useEnhancement})
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func (f *fakeDetector) Calls() []domain.DetectionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DetectionRequest(nil), f.calls...)
}

func okResult(label string, conf float64, heatmap bool) *domain.InferenceResult {
	r := &domain.InferenceResult{
		Images:     domain.Images{Original: "b3JpZw==", Chart: "Y2hhcnQ="},
		Prediction: domain.Prediction{Label: label, Confidence: &conf},
	}
	if heatmap {
		r.Images.Heatmap = "aGVhdA=="
	}
	return r
}

func pngImage(t *testing.T, name string) domain.SelectedImage {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	return domain.SelectedImage{Filename: name, ContentType: "image/png", Data: buf.Bytes()}
}

func newSession(det *fakeDetector) *Session {
	return NewSession("s-1", NewDetectorService(det, discard), 256, discard)
}

func TestSessionDefaults(t *testing.T) {
	v := newSession(&fakeDetector{}).Snapshot()

	assert.True(t, v.UseEnhancement)
	assert.False(t, v.HasFile)
	assert.Equal(t, domain.TabDetection, v.Tab)
	assert.Equal(t, domain.InfoAboutSkinCancer, v.InfoTab)
	assert.Equal(t, PhaseIdle, v.Phase())
}

func TestSubmitWithoutFileMakesNoCall(t *testing.T) {
	det := &fakeDetector{}
	s := newSession(det)

	err := s.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoFileSelected)
	assert.Empty(t, det.Calls())

	v := s.Snapshot()
	assert.Equal(t, "Please select an image first", v.Error)
	assert.False(t, v.Loading)
}

func TestSubmitSuccess(t *testing.T) {
	det := &fakeDetector{result: okResult("Malignant", 87.345, false)}
	s := newSession(det)

	s.SelectFile(pngImage(t, "a.png"))
	require.NotEmpty(t, s.Snapshot().Preview)

	require.NoError(t, s.Submit(context.Background()))

	calls := det.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].UseEnhancement)
	assert.Equal(t, "a.png", calls[0].Image.Filename)

	v := s.Snapshot()
	require.NotNil(t, v.Result)
	assert.Empty(t, v.Error)
	assert.False(t, v.Loading)
	assert.False(t, v.ShowPreview())
	assert.Equal(t, "87.35", v.Result.ConfidenceText())
}

func TestSubmitFailureClearsLoading(t *testing.T) {
	det := &fakeDetector{err: &domain.TransportError{StatusCode: 502, Status: "502 Bad Gateway"}}
	s := newSession(det)
	s.SelectFile(pngImage(t, "a.png"))

	err := s.Submit(context.Background())
	require.Error(t, err)

	v := s.Snapshot()
	assert.Equal(t, "Server error: 502 Bad Gateway", v.Error)
	assert.Nil(t, v.Result)
	assert.False(t, v.Loading)
	assert.True(t, v.ShowPreview())
}

func TestSubmitEmptyResponse(t *testing.T) {
	s := newSession(&fakeDetector{err: domain.ErrEmptyResponse})
	s.SelectFile(pngImage(t, "a.png"))

	assert.ErrorIs(t, s.Submit(context.Background()), domain.ErrEmptyResponse)
	assert.Equal(t, "Empty response received from server", s.Snapshot().Error)
}

func TestSelectFileClearsResultAndError(t *testing.T) {
	det := &fakeDetector{result: okResult("Benign", 12, true)}
	s := newSession(det)
	s.SelectFile(pngImage(t, "a.png"))
	require.NoError(t, s.Submit(context.Background()))
	require.NotNil(t, s.Snapshot().Result)

	s.SelectFile(pngImage(t, "b.png"))
	v := s.Snapshot()
	assert.Nil(t, v.Result)
	assert.Empty(t, v.Error)
	assert.Equal(t, "b.png", v.Filename)
	assert.True(t, v.ShowPreview())

	det.err = errors.New("boom")
	det.result = nil
	require.Error(t, s.Submit(context.Background()))
	require.NotEmpty(t, s.Snapshot().Error)

	s.SelectFile(pngImage(t, "c.png"))
	assert.Empty(t, s.Snapshot().Error)
}

func TestSelectEmptyFileIgnored(t *testing.T) {
	s := newSession(&fakeDetector{})
	s.SelectFile(domain.SelectedImage{Filename: "x.png"})
	assert.False(t, s.Snapshot().HasFile)
}

func TestEnhancementOnlyAffectsNextSubmission(t *testing.T) {
	det := &fakeDetector{result: okResult("Benign", 50, false)}
	s := newSession(det)
	s.SelectFile(pngImage(t, "a.png"))

	before := s.Snapshot()
	s.SetEnhancement(false)
	after := s.Snapshot()

	assert.Empty(t, det.Calls())
	after.UseEnhancement = before.UseEnhancement
	assert.Equal(t, before, after)

	require.NoError(t, s.Submit(context.Background()))
	assert.False(t, det.Calls()[0].UseEnhancement)
}

func TestSubmitInFlightRejected(t *testing.T) {
	det := &fakeDetector{
		result:  okResult("Benign", 50, false),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := newSession(det)
	s.SelectFile(pngImage(t, "a.png"))

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()
	<-det.started

	assert.True(t, s.Snapshot().Loading)
	assert.ErrorIs(t, s.Submit(context.Background()), domain.ErrSubmissionInFlight)

	close(det.release)
	require.NoError(t, <-done)
	assert.Len(t, det.Calls(), 1)
	assert.False(t, s.Snapshot().Loading)
}

func TestOutcomeDiscardedAfterClose(t *testing.T) {
	det := &fakeDetector{
		result:  okResult("Benign", 50, false),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := newSession(det)
	s.SelectFile(pngImage(t, "a.png"))

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()
	<-det.started

	s.Close()
	close(det.release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submit did not return")
	}
	v := s.Snapshot()
	assert.Nil(t, v.Result)
	assert.True(t, s.Closed())
}

func TestNavigation(t *testing.T) {
	s := newSession(&fakeDetector{})
	s.SetTab(domain.TabInformation)
	s.SetInfoTab(domain.InfoWhenToSeeADoctor)

	v := s.Snapshot()
	assert.Equal(t, domain.TabInformation, v.Tab)
	assert.Equal(t, domain.InfoWhenToSeeADoctor, v.InfoTab)
}

func TestOutcomeDiscardedAfterReselect(t *testing.T) {
	det := &fakeDetector{
		result:  okResult("Malignant", 90, false),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := newSession(det)
	s.SelectFile(pngImage(t, "a.png"))

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()
	<-det.started

	s.SelectFile(pngImage(t, "b.png"))
	close(det.release)
	require.NoError(t, <-done)

	v := s.Snapshot()
	assert.Nil(t, v.Result)
	assert.Empty(t, v.Error)
	assert.False(t, v.Loading)
	assert.Equal(t, "b.png", v.Filename)
	assert.True(t, v.ShowPreview())
}

func TestSubmitAsync(t *testing.T) {
	det := &fakeDetector{
		result:  okResult("Benign", 40, false),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := newSession(det)
	s.SelectFile(pngImage(t, "a.png"))

	require.NoError(t, s.SubmitAsync(context.Background()))
	<-det.started

	v := s.Snapshot()
	assert.True(t, v.Loading)
	assert.Equal(t, PhaseSubmitting, v.Phase())
	assert.ErrorIs(t, s.SubmitAsync(context.Background()), domain.ErrSubmissionInFlight)

	close(det.release)
	assert.Eventually(t, func() bool {
		v := s.Snapshot()
		return !v.Loading && v.Result != nil
	}, time.Second, 5*time.Millisecond)
}

func TestSubmitAsyncValidatesSynchronously(t *testing.T) {
	det := &fakeDetector{}
	s := newSession(det)

	assert.ErrorIs(t, s.SubmitAsync(context.Background()), domain.ErrNoFileSelected)
	assert.Equal(t, "Please select an image first", s.Snapshot().Error)
	assert.Empty(t, det.Calls())

	s.Close()
	assert.ErrorIs(t, s.Submit(context.Background()), ErrSessionClosed)
}
