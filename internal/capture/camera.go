// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 1280
	DefaultHeight = 720
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrCameraUnavailable is returned when the device cannot be opened,
	// usually because it is missing or access was denied.
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// Frame is a captured video frame.
type Frame struct {
	Image     *image.RGBA
	Timestamp int64 // unix milliseconds
	Width     int
	Height    int
}

// NewFrame wraps img, copying it into an RGBA buffer when needed.
func NewFrame(img image.Image, ts time.Time) Frame {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return Frame{
		Image:     rgba,
		Timestamp: ts.UnixMilli(),
		Width:     rgba.Bounds().Dx(),
		Height:    rgba.Bounds().Dy(),
	}
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	deviceID int
	capture  *gocv.VideoCapture
	mat      gocv.Mat
	mu       sync.Mutex
	running  bool
	fps      int
}

// NewCamera creates a new Camera with the given device ID.
func NewCamera(deviceID int) Camera {
	return &cameraImpl{
		deviceID: deviceID,
		fps:      DefaultFPS,
	}
}

// Open opens the camera and requests a 1280x720 stream.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", ErrCameraUnavailable, c.deviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.mat = gocv.NewMat()
	c.running = true

	return nil
}

// Close stops the stream and releases the device.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.mat.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame and converts it to RGBA.
func (c *cameraImpl) ReadFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return Frame{}, ErrCameraNotOpen
	}

	if ok := c.capture.Read(&c.mat); !ok {
		return Frame{}, errors.New("failed to read frame from camera")
	}
	if c.mat.Empty() {
		return Frame{}, errors.New("captured frame is empty")
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return Frame{}, fmt.Errorf("convert frame: %w", err)
	}

	return NewFrame(img, time.Now()), nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
