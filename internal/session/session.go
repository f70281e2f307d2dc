// Package session owns the live capture pipeline: one camera and the two
// detector services that consume its frames.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/candybooth/internal/capture"
	"github.com/ayusman/candybooth/internal/detector"
)

var (
	// ErrDetectorLoad means a detector service could not be loaded or started.
	ErrDetectorLoad = errors.New("detector failed to load")

	// ErrCameraUnavailable means the camera could not be opened.
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrClosed is returned by Open when Close ran before setup finished.
	ErrClosed = errors.New("session closed")

	// ErrAlreadyOpened is returned by a second call to Open.
	ErrAlreadyOpened = errors.New("session already opened")
)

// DefaultInterval is the frame loop period.
const DefaultInterval = time.Second / 30

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Detectors loads the two detector services.
type Detectors interface {
	LoadHands(ctx context.Context) (detector.HandDetector, error)
	LoadSegmenter(ctx context.Context) (detector.Segmenter, error)
}

// FrameResult pairs a segmented frame with the most recent hand result.
// Hands may come from an earlier frame than Mask.
type FrameResult struct {
	Frame capture.Frame
	Mask  *image.Alpha
	Hands []detector.HandLandmarks
}

// Config wires a Session.
type Config struct {
	Camera    capture.Camera
	Detectors Detectors
	Interval  time.Duration

	// OnFrame is called from the segmentation goroutine for every mask.
	OnFrame func(FrameResult)
	// OnHands is called whenever a new hand result is cached.
	OnHands func([]detector.HandLandmarks)
}

// Session acquires the camera and both detectors together and releases
// them together. Setup failures are terminal; a new Session is needed to
// try again.
type Session struct {
	cfg Config

	mu     sync.Mutex
	state  State
	err    error
	hands  detector.HandDetector
	seg    detector.Segmenter
	camera bool
	cancel context.CancelFunc
	loop   chan struct{}

	active    atomic.Bool
	handsBusy atomic.Bool
	segBusy   atomic.Bool
	inflight  sync.WaitGroup
	latest    Latest[[]detector.HandLandmarks]
	frames    atomic.Int64
}

// New creates an idle session.
func New(cfg Config) *Session {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Session{cfg: cfg}
}

// Open loads both detectors concurrently, opens the camera and starts the
// frame loop. It returns ErrDetectorLoad, ErrCameraUnavailable or ErrClosed
// wrapped with the cause.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		st := s.state
		s.mu.Unlock()
		if st == StateClosed {
			return ErrClosed
		}
		return ErrAlreadyOpened
	}
	s.state = StateLoading
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	var hands detector.HandDetector
	var seg detector.Segmenter

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := s.cfg.Detectors.LoadHands(gctx)
		if err != nil {
			return fmt.Errorf("hands: %w", err)
		}
		hands = h
		return nil
	})
	g.Go(func() error {
		sg, err := s.cfg.Detectors.LoadSegmenter(gctx)
		if err != nil {
			return fmt.Errorf("segmenter: %w", err)
		}
		seg = sg
		return nil
	})
	loadErr := g.Wait()

	if s.abandoned(hands, seg, false) {
		return ErrClosed
	}
	if loadErr != nil {
		s.release(hands, seg, false)
		return s.fail(fmt.Errorf("%w: %v", ErrDetectorLoad, loadErr))
	}

	if err := s.cfg.Camera.Open(); err != nil {
		s.release(hands, seg, false)
		if s.abandoned(nil, nil, false) {
			return ErrClosed
		}
		return s.fail(fmt.Errorf("%w: %v", ErrCameraUnavailable, err))
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		s.release(hands, seg, true)
		return ErrClosed
	}
	s.hands = hands
	s.seg = seg
	s.camera = true
	s.state = StateReady
	s.loop = make(chan struct{})
	s.active.Store(true)
	s.mu.Unlock()

	go s.run(ctx, hands, seg)

	log.Info().Dur("interval", s.cfg.Interval).Msg("capture session ready")
	return nil
}

// abandoned releases the given resources when Close already ran.
func (s *Session) abandoned(hands detector.HandDetector, seg detector.Segmenter, camera bool) bool {
	s.mu.Lock()
	closed := s.state == StateClosed
	s.mu.Unlock()

	if closed {
		s.release(hands, seg, camera)
	}
	return closed
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	if s.state != StateClosed {
		s.state = StateFailed
	}
	s.err = err
	s.mu.Unlock()

	log.Error().Err(err).Msg("capture session failed")
	return err
}

// release closes whatever was acquired, in reverse order, logging and
// swallowing each failure so the rest still runs.
func (s *Session) release(hands detector.HandDetector, seg detector.Segmenter, camera bool) {
	if hands != nil {
		func() {
			defer recoverClose("hands")
			if err := hands.Close(); err != nil {
				log.Warn().Err(err).Msg("closing hand detector")
			}
		}()
	}
	if seg != nil {
		func() {
			defer recoverClose("segmenter")
			if err := seg.Close(); err != nil {
				log.Warn().Err(err).Msg("closing segmenter")
			}
		}()
	}
	if camera {
		func() {
			defer recoverClose("camera")
			if err := s.cfg.Camera.Close(); err != nil {
				log.Warn().Err(err).Msg("closing camera")
			}
		}()
	}
}

func recoverClose(what string) {
	if r := recover(); r != nil {
		log.Error().Interface("panic", r).Str("resource", what).Msg("panic during close")
	}
}

func (s *Session) run(ctx context.Context, hands detector.HandDetector, seg detector.Segmenter) {
	defer close(s.loop)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.active.Load() {
				return
			}
			s.tick(ctx, hands, seg)
		}
	}
}

// tick pushes one frame to each idle detector. A detector still working on
// an earlier frame skips this one.
func (s *Session) tick(ctx context.Context, hands detector.HandDetector, seg detector.Segmenter) {
	frame, err := s.cfg.Camera.ReadFrame()
	if err != nil {
		log.Debug().Err(err).Msg("read frame")
		return
	}
	s.frames.Add(1)

	if s.handsBusy.CompareAndSwap(false, true) {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			defer s.handsBusy.Store(false)
			s.detectHands(ctx, hands, frame)
		}()
	}

	if s.segBusy.CompareAndSwap(false, true) {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			defer s.segBusy.Store(false)
			s.segment(ctx, seg, frame)
		}()
	}
}

func (s *Session) detectHands(ctx context.Context, d detector.HandDetector, frame capture.Frame) {
	hands, err := d.Detect(ctx, frame.Image)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("hand detection")
		}
		return
	}
	if !s.active.Load() {
		return
	}

	s.latest.Store(hands)
	if s.cfg.OnHands != nil {
		s.cfg.OnHands(hands)
	}
}

func (s *Session) segment(ctx context.Context, seg detector.Segmenter, frame capture.Frame) {
	mask, err := seg.Segment(ctx, frame.Image)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("segmentation")
		}
		return
	}
	if !s.active.Load() {
		return
	}

	hands, _ := s.latest.Load()
	if s.cfg.OnFrame != nil {
		s.cfg.OnFrame(FrameResult{Frame: frame, Mask: mask, Hands: hands})
	}
}

// Close stops the frame loop and releases the camera and both detectors.
// It is safe to call at any point, including while Open is still running,
// and more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = StateClosed
	s.active.Store(false)
	s.latest.Clear()
	if s.cancel != nil {
		s.cancel()
	}
	hands, seg, camera, loop := s.hands, s.seg, s.camera, s.loop
	s.hands, s.seg, s.camera = nil, nil, false
	s.mu.Unlock()

	// Camera before detectors; in-flight detector calls may still be
	// unwinding.
	if loop != nil {
		<-loop
	}
	s.release(nil, nil, camera)
	s.inflight.Wait()
	s.release(hands, seg, false)

	log.Info().Str("from", prev.String()).Int64("frames", s.frames.Load()).Msg("capture session closed")
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the terminal setup error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// LatestHands returns the most recently cached hand result.
func (s *Session) LatestHands() []detector.HandLandmarks {
	h, _ := s.latest.Load()
	return h
}

// Frames returns how many frames the loop has read.
func (s *Session) Frames() int64 {
	return s.frames.Load()
}
