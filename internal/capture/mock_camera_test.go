package capture

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func solid(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestMockCamera_Playback(t *testing.T) {
	red := solid(color.RGBA{R: 255, A: 255})
	blue := solid(color.RGBA{B: 255, A: 255})

	cam := NewMockCamera([]image.Image{red, blue}, false)

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	f1, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if got := f1.Image.RGBAAt(0, 0); got.R != 255 {
		t.Errorf("first frame pixel = %v", got)
	}

	f2, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if got := f2.Image.RGBAAt(0, 0); got.B != 255 {
		t.Errorf("second frame pixel = %v", got)
	}

	// Third read should fail (no loop)
	if _, err := cam.ReadFrame(); err == nil {
		t.Error("expected error after all frames consumed")
	}
}

func TestMockCamera_FramesAreCopies(t *testing.T) {
	src := solid(color.RGBA{G: 255, A: 255})
	cam := NewMockCamera([]image.Image{src}, true)
	cam.Open()
	defer cam.Close()

	f, _ := cam.ReadFrame()
	f.Image.Pix[0] = 1

	if src.(*image.RGBA).Pix[0] != 0 {
		t.Error("drawing on a frame modified the source image")
	}
}

func TestMockCamera_Loop(t *testing.T) {
	cam := NewMockCamera([]image.Image{solid(color.RGBA{A: 255})}, true)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		if _, err := cam.ReadFrame(); err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
	}
}

func TestMockCamera_NotOpen(t *testing.T) {
	cam := NewMockCamera([]image.Image{solid(color.RGBA{A: 255})}, true)
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("expected ErrCameraNotOpen, got %v", err)
	}
}

func TestMockCamera_OpenError(t *testing.T) {
	cam := NewMockCamera(nil, false)
	cam.SetOpenError(ErrCameraUnavailable)

	if err := cam.Open(); !errors.Is(err, ErrCameraUnavailable) {
		t.Errorf("expected ErrCameraUnavailable, got %v", err)
	}
	if cam.IsOpen() {
		t.Error("camera should not be open after a failed Open")
	}
}
