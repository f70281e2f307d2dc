package compositor

import (
	"image"
	"math"
)

// roundedMask returns a w x h coverage mask for a rectangle with corners of
// radius r. Edge pixels get partial coverage.
func roundedMask(w, h int, r float64) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, w, h))
	r = math.Min(r, math.Min(float64(w)/2, float64(h)/2))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Pix[y*m.Stride+x] = cornerCoverage(x, y, w, h, r)
		}
	}
	return m
}

func cornerCoverage(x, y, w, h int, r float64) uint8 {
	px := float64(x) + 0.5
	py := float64(y) + 0.5

	var cx, cy float64
	switch {
	case px < r && py < r:
		cx, cy = r, r
	case px > float64(w)-r && py < r:
		cx, cy = float64(w)-r, r
	case px < r && py > float64(h)-r:
		cx, cy = r, float64(h)-r
	case px > float64(w)-r && py > float64(h)-r:
		cx, cy = float64(w)-r, float64(h)-r
	default:
		return 0xff
	}

	d := math.Hypot(px-cx, py-cy)
	switch {
	case d <= r-0.5:
		return 0xff
	case d >= r+0.5:
		return 0
	}
	return uint8((r + 0.5 - d) * 0xff)
}

type clipKey struct {
	w, h int
	r    float64
}
