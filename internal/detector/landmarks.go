// Package detector provides hand landmark and person segmentation detectors
// backed by MediaPipe service subprocesses.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Landmark is a point in normalized image space. X and Y are fractions of
// the frame width and height; Z is relative depth. Visibility is zero when
// the model did not report it.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility,omitempty"`
}

// HandLandmarks is one detected hand. Points normally holds NumLandmarks
// entries but may be shorter when a service returns a partial result.
type HandLandmarks struct {
	Points     []Landmark `json:"points"`
	Handedness string     `json:"handedness"` // "Left" or "Right"
	Score      float64    `json:"score"`
}

// Complete reports whether all 21 landmarks are present.
func (h HandLandmarks) Complete() bool {
	return len(h.Points) >= NumLandmarks
}

// Distance2D is the Euclidean distance between a and b ignoring depth.
func Distance2D(a, b Landmark) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
