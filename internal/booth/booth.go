// Package booth runs the kiosk pipeline for one result: camera and detector
// session, frame compositor, decoration assets and the photo review flow.
package booth

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/candybooth/internal/capture"
	"github.com/ayusman/candybooth/internal/client"
	"github.com/ayusman/candybooth/internal/compositor"
	"github.com/ayusman/candybooth/internal/detector"
	"github.com/ayusman/candybooth/internal/gesture"
	"github.com/ayusman/candybooth/internal/review"
	"github.com/ayusman/candybooth/internal/session"
)

// API is the part of the HTTP API the booth uses.
type API interface {
	GetResult(ctx context.Context, id int64) (*client.Result, error)
	FetchImage(ctx context.Context, url string) (image.Image, error)
	review.PhotoUploader
}

// AssetPaths are image files on disk. Overlay is used only when the result
// has no generated image yet.
type AssetPaths struct {
	Overlay     string
	Background  string
	ServiceLogo string
	CreatorLogo string
}

// Config wires a Booth.
type Config struct {
	ResultID   int64
	Camera     capture.Camera
	Detectors  session.Detectors
	API        API
	Assets     AssetPaths
	Thresholds gesture.Thresholds
	Interval   time.Duration
	// Now supplies the footer date.
	Now func() time.Time
}

// HandsEvent is published for every new hand detection result.
type HandsEvent struct {
	Hands     []detector.HandLandmarks `json:"hands"`
	Fists     int                      `json:"fists"`
	Timestamp int64                    `json:"timestamp"`
}

// Booth is one kiosk visit.
type Booth struct {
	cfg        Config
	classifier *gesture.Classifier
	assets     *compositor.Assets
	compositor *compositor.Compositor
	session    *session.Session
	flow       *review.Flow

	mu        sync.RWMutex
	started   bool
	cancel    context.CancelFunc
	loading   sync.WaitGroup
	assetErrs map[compositor.Slot]string
	cameraErr string
	subs      map[chan HandsEvent]struct{}
}

// New builds the pipeline without touching the camera.
func New(cfg Config) *Booth {
	b := &Booth{
		cfg:        cfg,
		classifier: gesture.NewClassifier(cfg.Thresholds),
		assets:     compositor.NewAssets(),
		assetErrs:  make(map[compositor.Slot]string),
		subs:       make(map[chan HandsEvent]struct{}),
	}

	b.compositor = compositor.New(b.assets, compositor.Options{
		Classifier: b.classifier,
		Now:        cfg.Now,
		OnAspect: func(aspect float64) {
			log.Debug().Float64("aspect", aspect).Msg("Canvas aspect changed")
		},
	})

	b.session = session.New(session.Config{
		Camera:    cfg.Camera,
		Detectors: cfg.Detectors,
		Interval:  cfg.Interval,
		OnFrame: func(fr session.FrameResult) {
			b.compositor.Render(fr.Frame.Image, fr.Mask, fr.Hands)
		},
		OnHands: b.publishHands,
	})

	b.flow = review.NewFlow(review.Config{
		ResultID: cfg.ResultID,
		Canvas:   b.compositor,
		Uploader: cfg.API,
	})

	return b
}

// Start loads decorations in the background and opens the session. A
// session failure is returned and also reported by Status.
func (b *Booth) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return session.ErrAlreadyOpened
	}
	b.started = true
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel
	b.mu.Unlock()

	b.loadAssets(loadCtx)

	if err := b.session.Open(ctx); err != nil {
		b.mu.Lock()
		b.cameraErr = err.Error()
		b.mu.Unlock()
		log.Error().Err(err).Int64("resultId", b.cfg.ResultID).Msg("Booth session failed")
		return err
	}

	log.Info().Int64("resultId", b.cfg.ResultID).Msg("Booth started")
	return nil
}

// Stop closes the session and abandons pending asset loads. Safe to call
// more than once and before Start.
func (b *Booth) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.session.Close()
	b.loading.Wait()

	b.mu.Lock()
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
	b.mu.Unlock()
}

// WaitAssets blocks until every asset load has finished or failed.
func (b *Booth) WaitAssets() {
	b.loading.Wait()
}

func (b *Booth) publishHands(hands []detector.HandLandmarks) {
	ev := HandsEvent{
		Hands:     hands,
		Fists:     len(b.classifier.Fists(hands)),
		Timestamp: time.Now().UnixMilli(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of hand events and a function that ends the
// subscription. Slow subscribers miss events.
func (b *Booth) Subscribe() (<-chan HandsEvent, func()) {
	ch := make(chan HandsEvent, 4)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

// Compositor returns the frame compositor.
func (b *Booth) Compositor() *compositor.Compositor {
	return b.compositor
}

// Flow returns the review flow.
func (b *Booth) Flow() *review.Flow {
	return b.flow
}

// ResultID returns the result this booth is for.
func (b *Booth) ResultID() int64 {
	return b.cfg.ResultID
}

// Status is a point-in-time view of the booth.
type Status struct {
	ResultID       int64             `json:"resultId"`
	Ready          bool              `json:"ready"`
	Session        string            `json:"session"`
	CameraError    string            `json:"cameraError,omitempty"`
	Assets         map[string]bool   `json:"assets"`
	AssetErrors    map[string]string `json:"assetErrors,omitempty"`
	Aspect         float64           `json:"aspect"`
	Fists          int               `json:"fists"`
	Overlays       int               `json:"overlays"`
	OverlayEnabled bool              `json:"overlayEnabled"`
	Frames         int64             `json:"frames"`
	Review         review.Status     `json:"review"`
}

// Status reports readiness, errors and the review state.
func (b *Booth) Status() Status {
	state := b.session.State()
	s := Status{
		ResultID:       b.cfg.ResultID,
		Ready:          state == session.StateReady,
		Session:        state.String(),
		Assets:         make(map[string]bool, len(compositor.Slots)),
		Aspect:         b.compositor.Aspect(),
		Fists:          b.compositor.FistCount(),
		Overlays:       b.compositor.OverlayCount(),
		OverlayEnabled: b.compositor.OverlayEnabled(),
		Frames:         b.compositor.Frames(),
		Review:         b.flow.Status(),
	}
	for _, slot := range compositor.Slots {
		s.Assets[slot.String()] = b.assets.Ready(slot)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	s.CameraError = b.cameraErr
	if len(b.assetErrs) > 0 {
		s.AssetErrors = make(map[string]string, len(b.assetErrs))
		for slot, msg := range b.assetErrs {
			s.AssetErrors[slot.String()] = msg
		}
	}
	return s
}
