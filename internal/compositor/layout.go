package compositor

import (
	"image"
	"math"
)

// Frame geometry as fractions of the content (video) size.
const (
	PaddingXFraction      = 0.05
	PaddingTopFraction    = 0.065
	PaddingBottomFraction = 0.18
	CornerRadiusFraction  = 0.045

	OverlayWidthFraction  = 0.18
	OverlayHeightFraction = 0.38
	// OverlayLiftFraction raises the overlay center above the hand by this
	// share of the overlay height.
	OverlayLiftFraction = 0.74

	FooterPaddingFraction = 0.2
	LogoMaxWidthFraction  = 0.25
	DateFontFraction      = 0.35
	MinDateFontSize       = 16
	LogoSpacingFraction   = 0.12

	// AspectEpsilon is the smallest aspect change worth publishing.
	AspectEpsilon = 0.001
)

// Layout is the canvas geometry for one content size.
type Layout struct {
	Canvas  image.Rectangle
	Content image.Rectangle
	Radius  float64

	// Footer band below the content.
	InfoTop    int
	InfoBottom int
	InfoHeight int
}

// NewLayout computes the padded canvas around a contentW x contentH video.
func NewLayout(contentW, contentH int) Layout {
	padX := round(float64(contentW) * PaddingXFraction)
	padTop := round(float64(contentH) * PaddingTopFraction)
	padBottom := round(float64(contentH) * PaddingBottomFraction)

	l := Layout{
		Canvas:  image.Rect(0, 0, contentW+2*padX, contentH+padTop+padBottom),
		Content: image.Rect(padX, padTop, padX+contentW, padTop+contentH),
		Radius:  math.Min(float64(contentW), float64(contentH)) * CornerRadiusFraction,
	}

	bottomTop := l.Content.Max.Y
	bottomH := max(l.Canvas.Max.Y-bottomTop, 0)
	infoPadding := round(float64(bottomH) * FooterPaddingFraction)
	l.InfoTop = bottomTop + infoPadding
	l.InfoBottom = l.Canvas.Max.Y - infoPadding
	l.InfoHeight = max(l.InfoBottom-l.InfoTop, 1)
	return l
}

// Aspect is the canvas width over height.
func (l Layout) Aspect() float64 {
	return float64(l.Canvas.Dx()) / float64(l.Canvas.Dy())
}

// HasFooter reports whether there is room below the content.
func (l Layout) HasFooter() bool {
	return l.Canvas.Max.Y > l.Content.Max.Y
}

// DateFontSize is the footer date size in pixels.
func (l Layout) DateFontSize() int {
	return max(round(float64(l.InfoHeight)*DateFontFraction), MinDateFontSize)
}

// OverlayRect places an overlay for a hand centered at (cx, cy), given in
// normalized content coordinates. The result is relative to the content
// origin.
func (l Layout) OverlayRect(cx, cy float64) image.Rectangle {
	w := float64(l.Content.Dx())
	h := float64(l.Content.Dy())

	ow := math.Max(w*OverlayWidthFraction, 1)
	oh := math.Max(h*OverlayHeightFraction, 1)

	px := cx * w
	py := cy*h - oh*OverlayLiftFraction

	x0 := round(px - ow/2)
	y0 := round(py - oh/2)
	return image.Rect(x0, y0, x0+round(ow), y0+round(oh))
}

// fitLogo scales a logo of natural size (w, h) to fit within maxW x maxH
// without enlarging it.
func fitLogo(w, h int, maxW, maxH float64) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := math.Min(math.Min(maxW/float64(w), maxH/float64(h)), 1)
	return max(round(float64(w)*scale), 1), max(round(float64(h)*scale), 1)
}

// round matches JavaScript Math.round: halves round toward +Inf.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
