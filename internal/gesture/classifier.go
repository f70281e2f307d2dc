// Package gesture classifies hand poses from detector landmarks.
package gesture

import "github.com/ayusman/candybooth/internal/detector"

// Default curl thresholds in normalized image units.
const (
	DefaultFingerCurl       = 0.07
	DefaultThumbCurl        = 0.08
	DefaultMinCurledFingers = 3
)

// fingerJoints pairs each finger tip with the PIP joint it folds onto.
var fingerJoints = [4][2]int{
	{detector.IndexTip, detector.IndexPIP},
	{detector.MiddleTip, detector.MiddlePIP},
	{detector.RingTip, detector.RingPIP},
	{detector.PinkyTip, detector.PinkyPIP},
}

// Thresholds tune fist detection. A finger is curled when its tip is closer
// than FingerCurl to its PIP joint; the thumb is curled when its tip is
// closer than ThumbCurl to the thumb MCP.
type Thresholds struct {
	FingerCurl       float64
	ThumbCurl        float64
	MinCurledFingers int
}

// DefaultThresholds returns the default fist thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FingerCurl:       DefaultFingerCurl,
		ThumbCurl:        DefaultThumbCurl,
		MinCurledFingers: DefaultMinCurledFingers,
	}
}

// Point is a position in normalized image space.
type Point struct {
	X float64
	Y float64
}

// Classifier decides whether a hand is a fist.
type Classifier struct {
	t Thresholds
}

// NewClassifier creates a classifier. Non-positive fields fall back to the
// defaults.
func NewClassifier(t Thresholds) *Classifier {
	d := DefaultThresholds()
	if t.FingerCurl <= 0 {
		t.FingerCurl = d.FingerCurl
	}
	if t.ThumbCurl <= 0 {
		t.ThumbCurl = d.ThumbCurl
	}
	if t.MinCurledFingers <= 0 {
		t.MinCurledFingers = d.MinCurledFingers
	}
	return &Classifier{t: t}
}

// Thresholds returns the effective thresholds.
func (c *Classifier) Thresholds() Thresholds {
	return c.t
}

// IsFist reports whether points describe a closed fist: at least
// MinCurledFingers of the four fingers curled and the thumb curled too.
// Fewer than 21 points is never a fist.
func (c *Classifier) IsFist(points []detector.Landmark) bool {
	if len(points) < detector.NumLandmarks {
		return false
	}

	curled := 0
	for _, j := range fingerJoints {
		if detector.Distance2D(points[j[0]], points[j[1]]) < c.t.FingerCurl {
			curled++
		}
	}

	thumbCurled := detector.Distance2D(points[detector.ThumbTip], points[detector.ThumbMCP]) < c.t.ThumbCurl
	return curled >= c.t.MinCurledFingers && thumbCurled
}

// Fists returns the hands in hands that are fists.
func (c *Classifier) Fists(hands []detector.HandLandmarks) []detector.HandLandmarks {
	var out []detector.HandLandmarks
	for _, h := range hands {
		if c.IsFist(h.Points) {
			out = append(out, h)
		}
	}
	return out
}

var defaultClassifier = NewClassifier(DefaultThresholds())

// IsFist classifies points with the default thresholds.
func IsFist(points []detector.Landmark) bool {
	return defaultClassifier.IsFist(points)
}

// palmIndices are the wrist and the four finger MCP joints.
var palmIndices = [5]int{
	detector.Wrist,
	detector.IndexMCP,
	detector.MiddleMCP,
	detector.RingMCP,
	detector.PinkyMCP,
}

// HandCenter is the mean of the palm landmarks. It reports false when
// points is too short to contain them.
func HandCenter(points []detector.Landmark) (Point, bool) {
	if len(points) <= detector.PinkyMCP {
		return Point{}, false
	}

	var p Point
	for _, i := range palmIndices {
		p.X += points[i].X
		p.Y += points[i].Y
	}
	p.X /= float64(len(palmIndices))
	p.Y /= float64(len(palmIndices))
	return p, true
}
