package capture

import (
	"fmt"
	"image"
	"sync"
	"time"
)

// MockCamera plays back pre-rendered frames for testing
type MockCamera struct {
	frames  []image.Image
	index   int
	loop    bool
	openErr error
	mu      sync.Mutex
	running bool
	closed  int
}

func NewMockCamera(frames []image.Image, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
	}
}

// SetOpenError makes Open fail with err.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.closed++
	return nil
}

func (c *MockCamera) ReadFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return Frame{}, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return Frame{}, fmt.Errorf("no frames available")
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return Frame{}, fmt.Errorf("no more frames")
		}
	}

	// NewFrame copies non-RGBA images; copy RGBA ones too so callers can draw on them.
	src := c.frames[c.index]
	c.index++
	if rgba, ok := src.(*image.RGBA); ok {
		cp := *rgba
		cp.Pix = append([]uint8(nil), rgba.Pix...)
		src = &cp
	}

	return NewFrame(src, time.Now()), nil
}

func (c *MockCamera) SetFPS(fps int) {}
func (c *MockCamera) FPS() int       { return DefaultFPS }
func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Closed returns how many times Close was called.
func (c *MockCamera) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}
