// Package compositor renders the booth canvas: the segmented person over a
// background, candy overlays above every fist, and a dated footer.
package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"

	"github.com/ayusman/candybooth/internal/detector"
	"github.com/ayusman/candybooth/internal/gesture"
)

var (
	// CanvasColor fills the frame around the content.
	CanvasColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	// FallbackBackground fills the content until the background is loaded.
	FallbackBackground = color.RGBA{A: 0xff}
)

// Options configures a Compositor.
type Options struct {
	Classifier *gesture.Classifier
	// OnAspect receives the canvas aspect ratio whenever it changes.
	OnAspect func(aspect float64)
	// Now supplies the footer date. Defaults to time.Now.
	Now func() time.Time
}

// Compositor turns detector output into finished canvases. Render is
// called from a single goroutine; Snapshot may be called from any.
type Compositor struct {
	assets     *Assets
	classifier *gesture.Classifier
	onAspect   func(float64)
	now        func() time.Time
	faces      faceCache

	// Render-goroutine state.
	person  *image.RGBA
	content *image.RGBA
	back    *image.RGBA
	clip    *image.Alpha
	clipKey clipKey
	aspect  float64

	mu     sync.RWMutex
	front  *image.RGBA
	frames int64

	overlayOn atomic.Bool
	fists     atomic.Int32
	overlays  atomic.Int32
}

// New creates a compositor drawing decorations from assets.
func New(assets *Assets, opts Options) *Compositor {
	if opts.Classifier == nil {
		opts.Classifier = gesture.NewClassifier(gesture.DefaultThresholds())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Compositor{
		assets:     assets,
		classifier: opts.Classifier,
		onAspect:   opts.OnAspect,
		now:        opts.Now,
		aspect:     16.0 / 9.0,
	}
	c.overlayOn.Store(true)
	return c
}

// SetOverlayEnabled turns candy overlays on or off.
func (c *Compositor) SetOverlayEnabled(on bool) {
	c.overlayOn.Store(on)
}

// OverlayEnabled reports whether the candy overlay is drawn on fists.
func (c *Compositor) OverlayEnabled() bool {
	return c.overlayOn.Load()
}

// FistCount is the number of fists seen in the last frame, whether or not
// an overlay was drawn on them.
func (c *Compositor) FistCount() int {
	return int(c.fists.Load())
}

// OverlayCount is the number of overlays drawn in the last frame.
func (c *Compositor) OverlayCount() int {
	return int(c.overlays.Load())
}

// Aspect returns the last published aspect ratio.
func (c *Compositor) Aspect() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aspect
}

// Frames returns how many canvases have been rendered.
func (c *Compositor) Frames() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frames
}

// Render draws one canvas from a camera frame, its person mask and the
// most recent hand landmarks. A nil mask keeps the whole frame. Missing
// assets are left out; Render never blocks on them.
func (c *Compositor) Render(frame *image.RGBA, mask *image.Alpha, hands []detector.HandLandmarks) {
	if frame == nil || frame.Bounds().Empty() {
		return
	}
	fb := frame.Bounds()
	w, h := fb.Dx(), fb.Dy()

	// 1. Person buffer at the video's native size.
	c.person = ensureRGBA(c.person, w, h)
	c.drawPerson(frame, mask)

	// 2. Padded canvas; publish the aspect ratio when it moves.
	layout := NewLayout(w, h)
	c.publishAspect(layout.Aspect())

	c.back = ensureRGBA(c.back, layout.Canvas.Dx(), layout.Canvas.Dy())
	draw.Draw(c.back, c.back.Bounds(), image.NewUniform(CanvasColor), image.Point{}, draw.Src)

	// 3-5. Content is built in its own buffer and clipped onto the canvas.
	c.content = ensureRGBA(c.content, w, h)
	c.drawBackground(c.content)
	c.fists.Store(int32(len(c.classifier.Fists(hands))))
	c.overlays.Store(int32(c.drawOverlays(c.content, layout, hands)))
	// The person goes last so the live subject stays in front of the overlays.
	draw.Draw(c.content, c.content.Bounds(), c.person, image.Point{}, draw.Over)

	draw.DrawMask(c.back, layout.Content, c.content, image.Point{}, c.roundedClip(w, h, layout.Radius), image.Point{}, draw.Over)

	// 6. Footer chrome.
	if layout.HasFooter() {
		c.drawFooter(c.back, layout)
	}

	c.mu.Lock()
	c.front, c.back = c.back, c.front
	c.frames++
	c.mu.Unlock()
}

func (c *Compositor) drawPerson(frame *image.RGBA, mask *image.Alpha) {
	r := c.person.Bounds()
	if mask == nil {
		draw.Draw(c.person, r, frame, frame.Bounds().Min, draw.Src)
		return
	}

	if mask.Bounds().Size() != frame.Bounds().Size() {
		scaled := image.NewAlpha(r)
		xdraw.BiLinear.Scale(scaled, r, mask, mask.Bounds(), xdraw.Src, nil)
		mask = scaled
	}
	draw.DrawMask(c.person, r, frame, frame.Bounds().Min, mask, mask.Bounds().Min, draw.Src)
}

func (c *Compositor) publishAspect(next float64) {
	c.mu.Lock()
	changed := next-c.aspect > AspectEpsilon || c.aspect-next > AspectEpsilon
	if changed {
		c.aspect = next
	}
	c.mu.Unlock()

	if changed && c.onAspect != nil {
		c.onAspect(next)
	}
}

func (c *Compositor) drawBackground(dst *image.RGBA) {
	bg, ok := c.assets.Get(SlotBackground)
	if !ok {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(FallbackBackground), image.Point{}, draw.Src)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), bg, bg.Bounds(), xdraw.Src, nil)
}

// drawOverlays draws the candy above every fist in landmark order and
// returns how many were drawn.
func (c *Compositor) drawOverlays(dst *image.RGBA, layout Layout, hands []detector.HandLandmarks) int {
	if !c.overlayOn.Load() {
		return 0
	}
	overlay, ok := c.assets.Get(SlotOverlay)
	if !ok {
		return 0
	}

	drawn := 0
	for _, hand := range hands {
		if !c.classifier.IsFist(hand.Points) {
			continue
		}
		center, ok := gesture.HandCenter(hand.Points)
		if !ok {
			continue
		}
		r := layout.OverlayRect(center.X, center.Y)
		xdraw.ApproxBiLinear.Scale(dst, r, overlay, overlay.Bounds(), xdraw.Over, nil)
		drawn++
	}
	return drawn
}

func (c *Compositor) roundedClip(w, h int, r float64) *image.Alpha {
	key := clipKey{w: w, h: h, r: r}
	if c.clip == nil || c.clipKey != key {
		c.clip = roundedMask(w, h, r)
		c.clipKey = key
	}
	return c.clip
}

func (c *Compositor) drawFooter(dst *image.RGBA, l Layout) {
	maxLogoW := float64(l.Content.Dx()) * LogoMaxWidthFraction

	if logo, ok := c.assets.Get(SlotServiceLogo); ok {
		lb := logo.Bounds()
		dw, dh := fitLogo(lb.Dx(), lb.Dy(), maxLogoW, float64(l.InfoHeight))
		if dw > 0 {
			x := l.Content.Min.X
			y := l.InfoTop + round(float64(l.InfoHeight-dh)/2)
			xdraw.ApproxBiLinear.Scale(dst, image.Rect(x, y, x+dw, y+dh), logo, lb, xdraw.Over, nil)
		}
	}

	size := l.DateFontSize()
	if face, err := c.faces.get(size); err != nil {
		log.Warn().Err(err).Msg("footer font unavailable")
	} else {
		drawTextTopRight(dst, face, c.now().Format(DateFormat), l.Content.Max.X, l.InfoTop, DateColor)
	}

	if logo, ok := c.assets.Get(SlotCreatorLogo); ok {
		lb := logo.Bounds()
		spacing := round(float64(l.InfoHeight) * LogoSpacingFraction)
		avail := max(l.InfoBottom-(l.InfoTop+size+spacing), 1)
		dw, dh := fitLogo(lb.Dx(), lb.Dy(), maxLogoW, float64(avail))
		if dw > 0 {
			x := l.Content.Max.X - dw
			y := l.InfoBottom - dh
			xdraw.ApproxBiLinear.Scale(dst, image.Rect(x, y, x+dw, y+dh), logo, lb, xdraw.Over, nil)
		}
	}
}

// Snapshot returns a copy of the last rendered canvas, or nil before the
// first frame.
func (c *Compositor) Snapshot() *image.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.front == nil {
		return nil
	}
	cp := image.NewRGBA(c.front.Bounds())
	copy(cp.Pix, c.front.Pix)
	return cp
}

func ensureRGBA(img *image.RGBA, w, h int) *image.RGBA {
	if img != nil && img.Bounds().Dx() == w && img.Bounds().Dy() == h {
		return img
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}
