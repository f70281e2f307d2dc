package compositor

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DateFormat renders dates as yyyy/mm/dd.
const DateFormat = "2006/01/02"

// DateColor is the footer text color (#1f2937).
var DateColor = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}

var (
	boldOnce sync.Once
	boldFont *opentype.Font
	boldErr  error
)

func loadBold() (*opentype.Font, error) {
	boldOnce.Do(func() {
		boldFont, boldErr = opentype.Parse(gobold.TTF)
	})
	return boldFont, boldErr
}

// faceCache keeps one face per pixel size; the footer size only changes
// with the video resolution.
type faceCache struct {
	mu    sync.Mutex
	faces map[int]font.Face
}

func (c *faceCache) get(size int) (font.Face, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.faces[size]; ok {
		return f, nil
	}

	ttf, err := loadBold()
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(ttf, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}

	if c.faces == nil {
		c.faces = make(map[int]font.Face)
	}
	c.faces[size] = face
	return face, nil
}

// drawTextTopRight draws label with its top-right corner at (right, top).
func drawTextTopRight(dst *image.RGBA, face font.Face, label string, right, top int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
	}
	width := d.MeasureString(label)
	ascent := face.Metrics().Ascent
	d.Dot = fixed.Point26_6{
		X: fixed.I(right) - width,
		Y: fixed.I(top) + ascent,
	}
	d.DrawString(label)
}
