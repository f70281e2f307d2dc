package detector

import (
	"context"
	"image"
	"sync"
	"time"
)

// MockHandDetector is a test implementation of HandDetector.
// It allows tests to control the detection results.
type MockHandDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	err      error
	closeErr error
	delay    time.Duration
	calls    int
	closed   int
}

func NewMockHandDetector() *MockHandDetector {
	return &MockHandDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockHandDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockHandDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetCloseError sets the error returned by Close.
func (m *MockHandDetector) SetCloseError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeErr = err
}

// SetDelay makes Detect block for d before answering.
func (m *MockHandDetector) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

func (m *MockHandDetector) Detect(ctx context.Context, frame image.Image) ([]HandLandmarks, error) {
	m.mu.Lock()
	m.calls++
	delay, hands, err := m.delay, m.hands, m.err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return hands, nil
}

func (m *MockHandDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return m.closeErr
}

// Calls returns how many times Detect was invoked.
func (m *MockHandDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed returns how many times Close was invoked.
func (m *MockHandDetector) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockSegmenter is a test implementation of Segmenter. Without a preset
// mask it reports the whole frame as person.
type MockSegmenter struct {
	mu       sync.Mutex
	mask     *image.Alpha
	err      error
	closeErr error
	delay    time.Duration
	calls    int
	closed   int
}

func NewMockSegmenter() *MockSegmenter {
	return &MockSegmenter{}
}

func (m *MockSegmenter) SetMask(mask *image.Alpha) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mask = mask
}

func (m *MockSegmenter) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockSegmenter) SetCloseError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeErr = err
}

func (m *MockSegmenter) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

func (m *MockSegmenter) Segment(ctx context.Context, frame image.Image) (*image.Alpha, error) {
	m.mu.Lock()
	m.calls++
	delay, mask, err := m.delay, m.mask, m.err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if mask != nil {
		return mask, nil
	}

	full := image.NewAlpha(frame.Bounds())
	for i := range full.Pix {
		full.Pix[i] = 0xff
	}
	return full, nil
}

func (m *MockSegmenter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return m.closeErr
}

func (m *MockSegmenter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSegmenter) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockServices hands out preset detectors, or fails with the configured
// errors.
type MockServices struct {
	Hand         *MockHandDetector
	Seg          *MockSegmenter
	HandsErr     error
	SegmenterErr error
	// Delay holds both loads for this long.
	Delay time.Duration
}

func NewMockServices() *MockServices {
	return &MockServices{Hand: NewMockHandDetector(), Seg: NewMockSegmenter()}
}

func (m *MockServices) LoadHands(ctx context.Context) (HandDetector, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.HandsErr != nil {
		return nil, m.HandsErr
	}
	return m.Hand, nil
}

func (m *MockServices) LoadSegmenter(ctx context.Context) (Segmenter, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.SegmenterErr != nil {
		return nil, m.SegmenterErr
	}
	return m.Seg, nil
}

func (m *MockServices) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
