// Package review implements the capture, confirm and retake flow for a
// booth photo.
package review

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	// ErrCanvasUnavailable means there is no rendered canvas to capture.
	ErrCanvasUnavailable = errors.New("canvas unavailable")
	// ErrEmptyCanvas means the canvas has zero width or height.
	ErrEmptyCanvas = errors.New("canvas is empty")
	// ErrEncode means the captured image could not be encoded.
	ErrEncode = errors.New("failed to encode capture")
	// ErrBusy is returned while a capture or upload is already running.
	ErrBusy = errors.New("capture in progress")
	// ErrNoCandidate is returned by Confirm when nothing was captured.
	ErrNoCandidate = errors.New("no captured photo")
	// ErrDone is returned by Capture once a photo has been saved.
	ErrDone = errors.New("photo already saved")
)

// State is the position in the review flow.
type State string

const (
	StateLive       State = "live"
	StateReviewing  State = "reviewing"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
)

// CanvasSource provides the finished canvas to capture.
type CanvasSource interface {
	Snapshot() *image.RGBA
}

// PhotoUploader stores a confirmed photo and returns its public URL.
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, resultID int64, filename string, data []byte) (string, error)
}

// Candidate is a captured photo awaiting confirmation.
type Candidate struct {
	PNG          []byte
	PreviewToken string
	Width        int
	Height       int
}

// Flow tracks one booth visit from live view to a stored photo.
type Flow struct {
	resultID int64
	canvas   CanvasSource
	uploader PhotoUploader
	previews *PreviewStore
	onDone   func(photoURL string)

	mu        sync.Mutex
	state     State
	capturing bool
	candidate *Candidate
	photoURL  string
	lastErr   error
}

// Config wires a Flow.
type Config struct {
	ResultID int64
	Canvas   CanvasSource
	Uploader PhotoUploader
	Previews *PreviewStore
	// OnDone runs after a successful upload.
	OnDone func(photoURL string)
}

// NewFlow creates a live flow for cfg.ResultID.
func NewFlow(cfg Config) *Flow {
	if cfg.Previews == nil {
		cfg.Previews = NewPreviewStore()
	}
	return &Flow{
		resultID: cfg.ResultID,
		canvas:   cfg.Canvas,
		uploader: cfg.Uploader,
		previews: cfg.Previews,
		onDone:   cfg.OnDone,
		state:    StateLive,
	}
}

// Capture copies the current canvas into a PNG candidate and moves to
// review. Any earlier preview is revoked. While another capture or an
// upload is running it returns ErrBusy and changes nothing.
func (f *Flow) Capture() (*Candidate, error) {
	f.mu.Lock()
	if f.capturing || f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	if f.state == StateDone {
		f.mu.Unlock()
		return nil, ErrDone
	}
	f.capturing = true
	f.mu.Unlock()

	cand, err := f.snapshot()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.capturing = false

	if err != nil {
		f.lastErr = err
		log.Warn().Err(err).Int64("resultId", f.resultID).Msg("capture failed")
		return nil, err
	}

	if f.candidate != nil {
		f.previews.Revoke(f.candidate.PreviewToken)
	}
	cand.PreviewToken = f.previews.Put(cand.PNG)
	f.candidate = cand
	f.state = StateReviewing
	f.lastErr = nil
	return cand, nil
}

func (f *Flow) snapshot() (*Candidate, error) {
	if f.canvas == nil {
		return nil, ErrCanvasUnavailable
	}
	img := f.canvas.Snapshot()
	if img == nil {
		return nil, ErrCanvasUnavailable
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrEmptyCanvas
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return &Candidate{PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// Confirm uploads the candidate. On success the preview is revoked and the
// flow is done; on failure it stays in review so the user can retry.
func (f *Flow) Confirm(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.state == StateSubmitting || f.capturing {
		f.mu.Unlock()
		return "", ErrBusy
	}
	if f.candidate == nil || f.state != StateReviewing {
		f.mu.Unlock()
		return "", ErrNoCandidate
	}
	cand := f.candidate
	f.state = StateSubmitting
	f.mu.Unlock()

	url, err := f.uploader.UploadPhoto(ctx, f.resultID, "photo.png", cand.PNG)

	f.mu.Lock()
	if err != nil {
		f.state = StateReviewing
		f.lastErr = err
		f.mu.Unlock()
		log.Warn().Err(err).Int64("resultId", f.resultID).Msg("photo upload failed")
		return "", err
	}

	f.previews.Revoke(cand.PreviewToken)
	f.candidate = nil
	f.photoURL = url
	f.state = StateDone
	f.lastErr = nil
	onDone := f.onDone
	f.mu.Unlock()

	log.Info().Int64("resultId", f.resultID).Str("photoUrl", url).Msg("photo saved")
	if onDone != nil {
		onDone(url)
	}
	return url, nil
}

// Retake discards the candidate and returns to live view. It is ignored
// while an upload is running.
func (f *Flow) Retake() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateSubmitting {
		return ErrBusy
	}
	if f.state == StateDone {
		return nil
	}
	if f.candidate != nil {
		f.previews.Revoke(f.candidate.PreviewToken)
		f.candidate = nil
	}
	f.state = StateLive
	f.lastErr = nil
	return nil
}

// Status is a point-in-time view of the flow.
type Status struct {
	State        State  `json:"state"`
	PreviewToken string `json:"previewToken,omitempty"`
	PhotoURL     string `json:"photoUrl,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Status returns a snapshot of the flow.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Status{State: f.state, PhotoURL: f.photoURL}
	if f.candidate != nil {
		s.PreviewToken = f.candidate.PreviewToken
	}
	if f.lastErr != nil {
		s.Error = f.lastErr.Error()
	}
	return s
}

// Previews exposes the preview store for serving candidate images.
func (f *Flow) Previews() *PreviewStore {
	return f.previews
}

// ResultID returns the result this flow saves photos for.
func (f *Flow) ResultID() int64 {
	return f.resultID
}
