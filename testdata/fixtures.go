// Package testdata builds image fixtures shared by package and e2e tests.
package testdata

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing/fstest"
)

// Fixture layer colours.
var (
	Red  = color.NRGBA{R: 255, A: 255}
	Blue = color.NRGBA{B: 255, A: 255}
	Gold = color.NRGBA{R: 240, G: 190, B: 40, A: 255}
)

// Solid returns a w x h image filled with c.
func Solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// PNG encodes a solid w x h image.
func PNG(w, h int, c color.NRGBA) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Solid(w, h, c)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// LayerFS is a small layer tree:
//
//	child/base/3.png    8x8 red
//	child/shaft/27.png  4x4 blue
//	adult/base/40.png   8x8 gold
//	adult/upper/45.png  2x2 blue
//
// Answers [3, 11, 27] in child mode resolve to base 3 and shaft 27.
func LayerFS() fstest.MapFS {
	return fstest.MapFS{
		"child/base/3.png":   {Data: PNG(8, 8, Red)},
		"child/shaft/27.png": {Data: PNG(4, 4, Blue)},
		"adult/base/40.png":  {Data: PNG(8, 8, Gold)},
		"adult/upper/45.png": {Data: PNG(2, 2, Blue)},
	}
}

// Frame returns a w x h camera frame with a horizontal gradient.
func Frame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / max(1, w-1))
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: 128, A: 255})
		}
	}
	return img
}
