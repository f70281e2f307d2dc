package compositor

import (
	"fmt"
	"image"
	"sync/atomic"
)

// Slot identifies one independently loaded decoration.
type Slot int

const (
	SlotOverlay Slot = iota
	SlotBackground
	SlotServiceLogo
	SlotCreatorLogo
	numSlots
)

func (s Slot) String() string {
	switch s {
	case SlotOverlay:
		return "overlay"
	case SlotBackground:
		return "background"
	case SlotServiceLogo:
		return "serviceLogo"
	case SlotCreatorLogo:
		return "creatorLogo"
	}
	return fmt.Sprintf("Slot(%d)", int(s))
}

// Slots lists every slot in draw order.
var Slots = []Slot{SlotBackground, SlotOverlay, SlotServiceLogo, SlotCreatorLogo}

type asset struct {
	img image.Image
}

// Assets holds the decoration images. Each slot has one writer (its
// loader) and is read by every render; an empty slot means "not loaded
// yet" and the render leaves it out.
type Assets struct {
	slots [numSlots]atomic.Pointer[asset]
}

// NewAssets creates a set with every slot pending.
func NewAssets() *Assets {
	return &Assets{}
}

// Set marks a slot ready with img.
func (a *Assets) Set(s Slot, img image.Image) {
	if s < 0 || s >= numSlots {
		return
	}
	if img == nil {
		a.slots[s].Store(nil)
		return
	}
	a.slots[s].Store(&asset{img: img})
}

// Clear marks a slot not loaded.
func (a *Assets) Clear(s Slot) {
	a.Set(s, nil)
}

// Get returns the slot image if it is loaded.
func (a *Assets) Get(s Slot) (image.Image, bool) {
	if s < 0 || s >= numSlots {
		return nil, false
	}
	p := a.slots[s].Load()
	if p == nil {
		return nil, false
	}
	return p.img, true
}

// Ready reports whether the slot is loaded.
func (a *Assets) Ready(s Slot) bool {
	_, ok := a.Get(s)
	return ok
}
