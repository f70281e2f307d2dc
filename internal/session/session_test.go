package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayusman/candybooth/internal/capture"
	"github.com/ayusman/candybooth/internal/detector"
)

func testCamera() *capture.MockCamera {
	return capture.NewMockCamera([]image.Image{image.NewRGBA(image.Rect(0, 0, 32, 24))}, true)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSession_DeliversFramesWithLatestHands(t *testing.T) {
	cam := testCamera()
	dets := detector.NewMockServices()
	dets.Hand.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})

	results := make(chan FrameResult, 64)
	s := New(Config{
		Camera:    cam,
		Detectors: dets,
		Interval:  5 * time.Millisecond,
		OnFrame: func(r FrameResult) {
			select {
			case results <- r:
			default:
			}
		},
	})

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if s.State() != StateReady {
		t.Errorf("State = %v, want ready", s.State())
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-results:
			if r.Mask == nil || r.Frame.Image == nil {
				t.Fatal("frame result missing mask or image")
			}
			if r.Mask.Bounds() != r.Frame.Image.Bounds() {
				t.Errorf("mask bounds %v, frame bounds %v", r.Mask.Bounds(), r.Frame.Image.Bounds())
			}
			if len(r.Hands) == 1 {
				return
			}
		case <-deadline:
			t.Fatal("no frame with cached hands delivered")
		}
	}
}

func TestSession_DetectorLoadFailure(t *testing.T) {
	cam := testCamera()
	dets := detector.NewMockServices()
	dets.HandsErr = errors.New("script 404")

	s := New(Config{Camera: cam, Detectors: dets})
	err := s.Open(context.Background())
	if !errors.Is(err, ErrDetectorLoad) {
		t.Fatalf("Open error = %v, want ErrDetectorLoad", err)
	}
	if s.State() != StateFailed || !errors.Is(s.Err(), ErrDetectorLoad) {
		t.Errorf("State = %v, Err = %v", s.State(), s.Err())
	}
	if cam.IsOpen() {
		t.Error("camera must not be opened after a detector failure")
	}
	if dets.Seg.Closed() != 1 {
		t.Errorf("loaded segmenter closed %d times, want 1", dets.Seg.Closed())
	}

	// Terminal: no retry on a second Open.
	if err := s.Open(context.Background()); !errors.Is(err, ErrAlreadyOpened) {
		t.Errorf("second Open = %v, want ErrAlreadyOpened", err)
	}
}

func TestSession_CameraFailure(t *testing.T) {
	cam := testCamera()
	cam.SetOpenError(capture.ErrCameraUnavailable)
	dets := detector.NewMockServices()

	s := New(Config{Camera: cam, Detectors: dets})
	if err := s.Open(context.Background()); !errors.Is(err, ErrCameraUnavailable) {
		t.Fatalf("Open error = %v, want ErrCameraUnavailable", err)
	}
	if dets.Hand.Closed() != 1 || dets.Seg.Closed() != 1 {
		t.Errorf("detectors closed %d/%d times, want 1/1", dets.Hand.Closed(), dets.Seg.Closed())
	}
}

func TestSession_CloseDuringSetup(t *testing.T) {
	cam := testCamera()
	dets := detector.NewMockServices()
	dets.Delay = time.Second

	s := New(Config{Camera: cam, Detectors: dets})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Open(context.Background()) }()

	waitFor(t, time.Second, func() bool { return s.State() == StateLoading })
	s.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Open error = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Open did not return after Close")
	}

	if cam.IsOpen() {
		t.Error("camera left running after close during setup")
	}
	if s.State() != StateClosed {
		t.Errorf("State = %v, want closed", s.State())
	}
}

func TestSession_CloseReleasesEverythingDespiteErrors(t *testing.T) {
	cam := testCamera()
	dets := detector.NewMockServices()
	dets.Hand.SetCloseError(errors.New("hands close failed"))
	dets.Seg.SetCloseError(errors.New("segmenter close failed"))

	s := New(Config{Camera: cam, Detectors: dets, Interval: 5 * time.Millisecond})
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.Close()
	s.Close()

	if dets.Hand.Closed() != 1 || dets.Seg.Closed() != 1 {
		t.Errorf("detectors closed %d/%d times, want 1/1", dets.Hand.Closed(), dets.Seg.Closed())
	}
	if cam.Closed() != 1 || cam.IsOpen() {
		t.Errorf("camera closed %d times, open=%v", cam.Closed(), cam.IsOpen())
	}
	if err := s.Open(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Open after Close = %v, want ErrClosed", err)
	}
}

func TestSession_NoCallbacksAfterClose(t *testing.T) {
	cam := testCamera()
	dets := detector.NewMockServices()
	dets.Seg.SetDelay(10 * time.Millisecond)

	var frames atomic.Int32
	s := New(Config{
		Camera:    cam,
		Detectors: dets,
		Interval:  2 * time.Millisecond,
		OnFrame:   func(FrameResult) { frames.Add(1) },
	})
	if err := s.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool { return frames.Load() > 0 })
	s.Close()
	after := frames.Load()

	time.Sleep(50 * time.Millisecond)
	if got := frames.Load(); got != after {
		t.Errorf("OnFrame called %d times after Close", got-after)
	}
	if s.LatestHands() != nil {
		t.Error("cached hands should be cleared on Close")
	}
}

func TestSession_OpenCloseRepeatedly(t *testing.T) {
	iterations := 200
	if testing.Short() {
		iterations = 20
	}

	for i := 0; i < iterations; i++ {
		cam := testCamera()
		dets := detector.NewMockServices()
		dets.Hand.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})

		s := New(Config{
			Camera:    cam,
			Detectors: dets,
			Interval:  time.Millisecond,
			OnFrame:   func(FrameResult) {},
			OnHands:   func([]detector.HandLandmarks) {},
		})
		if err := s.Open(context.Background()); err != nil {
			t.Fatalf("iteration %d: Open: %v", i, err)
		}
		time.Sleep(time.Duration(i%5) * time.Millisecond)
		s.Close()

		if cam.IsOpen() || cam.Closed() != 1 {
			t.Fatalf("iteration %d: camera closed %d times, open=%v", i, cam.Closed(), cam.IsOpen())
		}
		if dets.Hand.Closed() != 1 || dets.Seg.Closed() != 1 {
			t.Fatalf("iteration %d: detectors closed %d/%d times", i, dets.Hand.Closed(), dets.Seg.Closed())
		}
	}
}

// stuckHands ignores cancellation until release is closed.
type stuckHands struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (h *stuckHands) Detect(ctx context.Context, frame image.Image) ([]detector.HandLandmarks, error) {
	h.once.Do(func() { close(h.entered) })
	<-h.release
	return nil, ctx.Err()
}

func (h *stuckHands) Close() error { return nil }

type stuckDetectors struct {
	hands *stuckHands
	seg   *detector.MockSegmenter
}

func (d *stuckDetectors) LoadHands(ctx context.Context) (detector.HandDetector, error) {
	return d.hands, nil
}

func (d *stuckDetectors) LoadSegmenter(ctx context.Context) (detector.Segmenter, error) {
	return d.seg, nil
}

func TestSession_CloseStopsCameraWhileDetectorStuck(t *testing.T) {
	cam := testCamera()
	hands := &stuckHands{entered: make(chan struct{}), release: make(chan struct{})}
	dets := &stuckDetectors{hands: hands, seg: detector.NewMockSegmenter()}

	s := New(Config{Camera: cam, Detectors: dets, Interval: 2 * time.Millisecond})
	if err := s.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case <-hands.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("hand detector never called")
	}

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	waitFor(t, 2*time.Second, func() bool { return !cam.IsOpen() })

	select {
	case <-closed:
		t.Fatal("Close returned while a detector call was still running")
	default:
	}

	close(hands.release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the detector call finished")
	}
	if dets.seg.Closed() != 1 {
		t.Errorf("segmenter closed %d times, want 1", dets.seg.Closed())
	}
}

func TestSession_BusyDetectorSkipsFrames(t *testing.T) {
	cam := testCamera()
	dets := detector.NewMockServices()
	dets.Hand.SetDelay(100 * time.Millisecond)

	s := New(Config{Camera: cam, Detectors: dets, Interval: 2 * time.Millisecond})
	if err := s.Open(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool { return s.Frames() >= 20 })
	s.Close()

	if calls := dets.Hand.Calls(); calls > 2 {
		t.Errorf("slow detector received %d overlapping pushes", calls)
	}
	if dets.Seg.Calls() < 10 {
		t.Errorf("fast detector only received %d frames", dets.Seg.Calls())
	}
}

func TestLatest(t *testing.T) {
	var l Latest[[]int]

	if _, ok := l.Load(); ok {
		t.Error("empty container reported a value")
	}

	l.Store([]int{1})
	l.Store([]int{1, 2})
	if v, ok := l.Load(); !ok || len(v) != 2 {
		t.Errorf("Load = %v, %v", v, ok)
	}

	l.Clear()
	if _, ok := l.Load(); ok {
		t.Error("value survived Clear")
	}
}

func TestLatest_ConcurrentReaders(t *testing.T) {
	var l Latest[int]
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 1000; i++ {
			l.Store(i)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prev := 0
			for i := 0; i < 1000; i++ {
				v, _ := l.Load()
				if v < prev {
					t.Errorf("value went backwards: %d after %d", v, prev)
					return
				}
				prev = v
			}
		}()
	}
	wg.Wait()
}

func TestState_String(t *testing.T) {
	if StateReady.String() != "ready" || State(42).String() != "State(42)" {
		t.Error("unexpected State strings")
	}
}
