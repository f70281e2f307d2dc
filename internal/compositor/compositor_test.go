package compositor

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/ayusman/candybooth/internal/detector"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func alpha(w, h int, fill func(x, y int) uint8) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Pix[y*m.Stride+x] = fill(x, y)
		}
	}
	return m
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
}

func TestNewLayout(t *testing.T) {
	l := NewLayout(1280, 720)

	if l.Canvas != image.Rect(0, 0, 1408, 897) {
		t.Errorf("Canvas = %v, want 1408x897", l.Canvas)
	}
	if l.Content != image.Rect(64, 47, 1344, 767) {
		t.Errorf("Content = %v", l.Content)
	}
	if math.Abs(l.Radius-32.4) > 1e-9 {
		t.Errorf("Radius = %f, want 32.4", l.Radius)
	}
	if l.InfoTop != 793 || l.InfoBottom != 871 || l.InfoHeight != 78 {
		t.Errorf("info band = %d..%d (%d)", l.InfoTop, l.InfoBottom, l.InfoHeight)
	}
	if got := l.DateFontSize(); got != 27 {
		t.Errorf("DateFontSize = %d, want 27", got)
	}
}

func TestLayout_DateFontMinimum(t *testing.T) {
	if got := NewLayout(100, 80).DateFontSize(); got != MinDateFontSize {
		t.Errorf("DateFontSize = %d, want %d", got, MinDateFontSize)
	}
}

func TestLayout_OverlayRect(t *testing.T) {
	l := NewLayout(1280, 720)
	r := l.OverlayRect(0.5, 0.5)

	if r != image.Rect(525, 21, 755, 295) {
		t.Errorf("OverlayRect = %v", r)
	}

	tiny := NewLayout(2, 2).OverlayRect(0, 0)
	if tiny.Dx() < 1 || tiny.Dy() < 1 {
		t.Errorf("overlay must be at least 1px, got %v", tiny)
	}
}

func TestFitLogo(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		maxW, maxH float64
		wantW      int
		wantH      int
	}{
		{"never enlarges", 100, 50, 320, 78, 100, 50},
		{"width bound", 400, 100, 200, 100, 200, 50},
		{"height bound", 100, 200, 320, 50, 25, 50},
		{"empty image", 0, 10, 100, 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitLogo(tt.w, tt.h, tt.maxW, tt.maxH)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("fitLogo = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestRound(t *testing.T) {
	for in, want := range map[float64]int{0.5: 1, 1.49: 1, 2.5: 3, -0.5: 0, 46.8: 47} {
		if got := round(in); got != want {
			t.Errorf("round(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestAssets(t *testing.T) {
	a := NewAssets()
	for _, s := range Slots {
		if a.Ready(s) {
			t.Errorf("%v ready before load", s)
		}
	}

	a.Set(SlotOverlay, solid(2, 2, red))
	if !a.Ready(SlotOverlay) || a.Ready(SlotBackground) {
		t.Error("slots are not independent")
	}

	a.Clear(SlotOverlay)
	if a.Ready(SlotOverlay) {
		t.Error("Clear did not reset the slot")
	}
	if _, ok := a.Get(Slot(99)); ok {
		t.Error("unknown slot reported ready")
	}
}

func TestRender_PersonOverFallbackBackground(t *testing.T) {
	c := New(NewAssets(), Options{Now: fixedNow})

	frame := solid(100, 80, red)
	mask := alpha(100, 80, func(x, y int) uint8 {
		if x < 50 {
			return 255
		}
		return 0
	})
	c.Render(frame, mask, nil)

	snap := c.Snapshot()
	if snap == nil {
		t.Fatal("no snapshot after Render")
	}
	if snap.Bounds() != image.Rect(0, 0, 110, 99) {
		t.Fatalf("canvas = %v, want 110x99", snap.Bounds())
	}

	l := NewLayout(100, 80)
	if got := snap.RGBAAt(l.Content.Min.X+20, l.Content.Min.Y+40); got != red {
		t.Errorf("person pixel = %v, want red", got)
	}
	if got := snap.RGBAAt(l.Content.Min.X+80, l.Content.Min.Y+40); got != black {
		t.Errorf("background pixel = %v, want black fallback", got)
	}
	if got := snap.RGBAAt(0, 0); got != white {
		t.Errorf("frame pixel = %v, want white", got)
	}
	if got := snap.RGBAAt(l.Content.Min.X, l.Content.Min.Y); got != white {
		t.Errorf("rounded corner pixel = %v, want white", got)
	}
}

func TestRender_NilMaskKeepsWholeFrame(t *testing.T) {
	c := New(NewAssets(), Options{Now: fixedNow})
	c.Render(solid(40, 30, red), nil, nil)

	l := NewLayout(40, 30)
	if got := c.Snapshot().RGBAAt(l.Content.Min.X+30, l.Content.Min.Y+15); got != red {
		t.Errorf("pixel = %v, want red", got)
	}
}

func TestRender_BackgroundAsset(t *testing.T) {
	assets := NewAssets()
	assets.Set(SlotBackground, solid(10, 10, green))
	c := New(assets, Options{Now: fixedNow})

	c.Render(solid(100, 80, red), alpha(100, 80, func(int, int) uint8 { return 0 }), nil)

	l := NewLayout(100, 80)
	if got := c.Snapshot().RGBAAt(l.Content.Min.X+50, l.Content.Min.Y+40); got != green {
		t.Errorf("pixel = %v, want green background", got)
	}
}

func TestRender_OverlayOnFist(t *testing.T) {
	assets := NewAssets()
	assets.Set(SlotOverlay, solid(20, 20, blue))
	c := New(assets, Options{Now: fixedNow})

	empty := alpha(100, 80, func(int, int) uint8 { return 0 })
	l := NewLayout(100, 80)
	// FistLandmarks centers at (0.48, 0.72): overlay spans x 39..57, y 20..50.
	probe := image.Pt(l.Content.Min.X+48, l.Content.Min.Y+35)

	tests := []struct {
		name         string
		hands        []detector.HandLandmarks
		overlayOn    bool
		mask         *image.Alpha
		want         color.RGBA
		wantFists    int
		wantOverlays int
	}{
		{
			name:         "fist gets overlay",
			hands:        []detector.HandLandmarks{detector.FistLandmarks()},
			overlayOn:    true,
			mask:         empty,
			want:         blue,
			wantFists:    1,
			wantOverlays: 1,
		},
		{
			name:         "open palm gets none",
			hands:        []detector.HandLandmarks{detector.OpenPalmLandmarks()},
			overlayOn:    true,
			mask:         empty,
			want:         black,
			wantFists:    0,
			wantOverlays: 0,
		},
		{
			name:         "two fists",
			hands:        []detector.HandLandmarks{detector.FistLandmarks(), detector.FistLandmarks()},
			overlayOn:    true,
			mask:         empty,
			want:         blue,
			wantFists:    2,
			wantOverlays: 2,
		},
		{
			name:         "person occludes overlay",
			hands:        []detector.HandLandmarks{detector.FistLandmarks()},
			overlayOn:    true,
			mask:         nil,
			want:         red,
			wantFists:    1,
			wantOverlays: 1,
		},
		{
			name:         "overlay disabled",
			hands:        []detector.HandLandmarks{detector.FistLandmarks()},
			overlayOn:    false,
			mask:         empty,
			want:         black,
			wantFists:    1,
			wantOverlays: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.SetOverlayEnabled(tt.overlayOn)
			c.Render(solid(100, 80, red), tt.mask, tt.hands)

			if got := c.Snapshot().RGBAAt(probe.X, probe.Y); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
			if got := c.FistCount(); got != tt.wantFists {
				t.Errorf("FistCount = %d, want %d", got, tt.wantFists)
			}
			if got := c.OverlayCount(); got != tt.wantOverlays {
				t.Errorf("OverlayCount = %d, want %d", got, tt.wantOverlays)
			}
		})
	}
}

func TestRender_OverlayNotLoaded(t *testing.T) {
	c := New(NewAssets(), Options{Now: fixedNow})
	c.Render(solid(100, 80, red), alpha(100, 80, func(int, int) uint8 { return 0 }),
		[]detector.HandLandmarks{detector.FistLandmarks()})

	if c.OverlayCount() != 0 {
		t.Errorf("OverlayCount = %d without overlay asset", c.OverlayCount())
	}
	if c.FistCount() != 1 {
		t.Errorf("FistCount = %d, want the fist counted without an overlay", c.FistCount())
	}
}

func TestRender_AspectPublishing(t *testing.T) {
	var published []float64
	c := New(NewAssets(), Options{
		Now:      fixedNow,
		OnAspect: func(a float64) { published = append(published, a) },
	})

	c.Render(solid(100, 80, red), nil, nil)
	c.Render(solid(100, 80, red), nil, nil)
	c.Render(solid(1280, 720, red), nil, nil)

	if len(published) != 2 {
		t.Fatalf("published %d aspect changes, want 2: %v", len(published), published)
	}
	if math.Abs(published[0]-110.0/99.0) > 1e-9 {
		t.Errorf("first aspect = %f", published[0])
	}
	if math.Abs(c.Aspect()-1408.0/897.0) > 1e-9 {
		t.Errorf("Aspect = %f", c.Aspect())
	}
	if c.Frames() != 3 {
		t.Errorf("Frames = %d", c.Frames())
	}
}

func TestRender_Footer(t *testing.T) {
	assets := NewAssets()
	assets.Set(SlotServiceLogo, solid(100, 50, red))
	assets.Set(SlotCreatorLogo, solid(40, 40, blue))
	c := New(assets, Options{Now: fixedNow})

	c.Render(solid(1280, 720, green), nil, nil)
	snap := c.Snapshot()

	if got := snap.RGBAAt(100, 830); got != red {
		t.Errorf("service logo pixel = %v, want red", got)
	}
	if got := snap.RGBAAt(1320, 850); got != blue {
		t.Errorf("creator logo pixel = %v, want blue", got)
	}

	// The date sits right-aligned in the top of the info band.
	inked := false
	for y := 793; y < 793+27 && !inked; y++ {
		for x := 1144; x < 1344; x++ {
			if snap.RGBAAt(x, y) != white {
				inked = true
				break
			}
		}
	}
	if !inked {
		t.Error("date stamp not drawn")
	}
}

func TestRender_FooterWithoutAssets(t *testing.T) {
	c := New(NewAssets(), Options{Now: fixedNow})
	c.Render(solid(1280, 720, green), nil, nil)

	snap := c.Snapshot()
	if got := snap.RGBAAt(100, 830); got != white {
		t.Errorf("missing service logo should leave the footer white, got %v", got)
	}
}

func TestRender_IgnoresEmptyFrame(t *testing.T) {
	c := New(NewAssets(), Options{})
	c.Render(nil, nil, nil)
	c.Render(image.NewRGBA(image.Rect(0, 0, 0, 0)), nil, nil)

	if c.Snapshot() != nil {
		t.Error("empty frames must not produce a canvas")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	c := New(NewAssets(), Options{Now: fixedNow})
	c.Render(solid(20, 20, red), nil, nil)

	a := c.Snapshot()
	a.Pix[0] = 7
	if b := c.Snapshot(); b.Pix[0] == 7 {
		t.Error("Snapshot shares memory with the canvas")
	}
}

func TestRoundedMask(t *testing.T) {
	m := roundedMask(100, 80, 10)
	if m.AlphaAt(0, 0).A != 0 {
		t.Error("corner should be transparent")
	}
	if m.AlphaAt(50, 0).A != 0xff || m.AlphaAt(50, 40).A != 0xff {
		t.Error("edges and center should be opaque")
	}
	if m.AlphaAt(99, 79).A != 0 {
		t.Error("bottom-right corner should be transparent")
	}
}
