// Package layers resolves survey answers to candy image layers and
// flattens them into one picture.
package layers

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io/fs"
	"path"
	"time"

	xdraw "golang.org/x/image/draw"
)

// ErrNoLayers is returned when none of the answers maps to a layer image.
var ErrNoLayers = errors.New("cannot identify image layers")

// Mode selects the adult or child asset tree.
type Mode string

const (
	ModeAdult Mode = "adult"
	ModeChild Mode = "child"
)

// ModeFromAdult maps the survey audience flag to a Mode.
func ModeFromAdult(isAdult bool) Mode {
	if isAdult {
		return ModeAdult
	}
	return ModeChild
}

// Slot names a position in the layer stack.
type Slot string

// SlotOrder is the canonical stacking order, bottom first.
var SlotOrder = []Slot{"base", "whole", "upper-half", "shaft", "lower", "upper", "center"}

// Layer is one resolved image in the stack.
type Layer struct {
	Slot     Slot
	AnswerID int64
	// Path is relative to the resolver's file system.
	Path string
}

// Resolver finds layer images under {mode}/{slot}/{answerID}.png.
type Resolver struct {
	fsys fs.FS
}

// NewResolver creates a resolver over fsys, typically os.DirFS of the
// public image root.
func NewResolver(fsys fs.FS) *Resolver {
	return &Resolver{fsys: fsys}
}

// FS returns the underlying file system.
func (r *Resolver) FS() fs.FS {
	return r.fsys
}

// Resolve walks SlotOrder and, for each slot, takes the first unused
// answer that has an image there. Each answer fills at most one slot;
// answers with no image are ignored. ErrNoLayers is returned when no slot
// resolves.
func (r *Resolver) Resolve(answerIDs []int64, mode Mode) ([]Layer, error) {
	remaining := append([]int64(nil), answerIDs...)
	var out []Layer

	for _, slot := range SlotOrder {
		for i, id := range remaining {
			p := LayerPath(mode, slot, id)
			if !exists(r.fsys, p) {
				continue
			}
			out = append(out, Layer{Slot: slot, AnswerID: id, Path: p})
			remaining = append(remaining[:i], remaining[i+1:]...)
			break
		}
	}

	if len(out) == 0 {
		return nil, ErrNoLayers
	}
	return out, nil
}

// LayerPath is the conventional location of an answer's image for a slot.
func LayerPath(mode Mode, slot Slot, answerID int64) string {
	return path.Join(string(mode), string(slot), fmt.Sprintf("%d.png", answerID))
}

func exists(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}

// Flatten composites layers bottom-up. The first layer sets the canvas
// size; later layers are alpha-blended over it, centered.
func Flatten(fsys fs.FS, layers []Layer) (*image.NRGBA, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}

	base, err := decodePNG(fsys, layers[0].Path)
	if err != nil {
		return nil, err
	}

	bb := base.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bb.Dx(), bb.Dy()))
	draw.Draw(out, out.Bounds(), base, bb.Min, draw.Src)

	for _, l := range layers[1:] {
		img, err := decodePNG(fsys, l.Path)
		if err != nil {
			return nil, err
		}
		ib := img.Bounds()
		off := image.Pt((bb.Dx()-ib.Dx())/2, (bb.Dy()-ib.Dy())/2)
		xdraw.Copy(out, off, img, ib, xdraw.Over, nil)
	}
	return out, nil
}

func decodePNG(fsys fs.FS, name string) (image.Image, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open layer %s: %w", name, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode layer %s: %w", name, err)
	}
	return img, nil
}

// ContentKey derives the storage name for a generated image from the
// answers, mode and submission time.
func ContentKey(answerIDs []int64, mode Mode, at time.Time) string {
	if answerIDs == nil {
		answerIDs = []int64{}
	}
	payload, _ := json.Marshal(struct {
		Answers    []int64 `json:"answers"`
		ModeFolder Mode    `json:"modeFolder"`
		Timestamp  int64   `json:"timestamp"`
	}{answerIDs, mode, at.UnixMilli()})

	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])
}

// ObjectKey is the storage key for a generated image.
func ObjectKey(mode Mode, hash string) string {
	return fmt.Sprintf("generated/%s/%s.png", mode, hash)
}
