package detector

func newHand() HandLandmarks {
	return HandLandmarks{
		Points:     make([]Landmark, NumLandmarks),
		Handedness: "Right",
		Score:      0.95,
	}
}

// curledFingers fills the four non-thumb fingers with tips folded back
// onto their PIP joints.
func curledFingers(h *HandLandmarks) {
	h.Points[IndexMCP] = Landmark{X: 0.55, Y: 0.70, Z: -0.02}
	h.Points[IndexPIP] = Landmark{X: 0.55, Y: 0.68, Z: -0.05}
	h.Points[IndexDIP] = Landmark{X: 0.52, Y: 0.70, Z: -0.04}
	h.Points[IndexTip] = Landmark{X: 0.53, Y: 0.70, Z: -0.02}

	h.Points[MiddleMCP] = Landmark{X: 0.50, Y: 0.68, Z: -0.02}
	h.Points[MiddlePIP] = Landmark{X: 0.50, Y: 0.66, Z: -0.05}
	h.Points[MiddleDIP] = Landmark{X: 0.47, Y: 0.68, Z: -0.04}
	h.Points[MiddleTip] = Landmark{X: 0.48, Y: 0.68, Z: -0.02}

	h.Points[RingMCP] = Landmark{X: 0.45, Y: 0.70, Z: -0.02}
	h.Points[RingPIP] = Landmark{X: 0.45, Y: 0.68, Z: -0.05}
	h.Points[RingDIP] = Landmark{X: 0.42, Y: 0.70, Z: -0.04}
	h.Points[RingTip] = Landmark{X: 0.43, Y: 0.70, Z: -0.02}

	h.Points[PinkyMCP] = Landmark{X: 0.40, Y: 0.72, Z: -0.02}
	h.Points[PinkyPIP] = Landmark{X: 0.40, Y: 0.70, Z: -0.05}
	h.Points[PinkyDIP] = Landmark{X: 0.37, Y: 0.72, Z: -0.04}
	h.Points[PinkyTip] = Landmark{X: 0.38, Y: 0.72, Z: -0.02}
}

// FistLandmarks returns a closed fist: all fingers curled and the thumb
// tucked against its MCP joint.
func FistLandmarks() HandLandmarks {
	h := newHand()
	h.Points[Wrist] = Landmark{X: 0.5, Y: 0.8, Z: 0.0}

	h.Points[ThumbCMC] = Landmark{X: 0.55, Y: 0.75, Z: 0.0}
	h.Points[ThumbMCP] = Landmark{X: 0.58, Y: 0.72, Z: -0.01}
	h.Points[ThumbIP] = Landmark{X: 0.57, Y: 0.69, Z: -0.02}
	h.Points[ThumbTip] = Landmark{X: 0.54, Y: 0.70, Z: -0.03}

	curledFingers(&h)
	return h
}

// ThumbsUpLandmarks returns curled fingers with the thumb extended upward.
// It is not a fist.
func ThumbsUpLandmarks() HandLandmarks {
	h := newHand()
	h.Points[Wrist] = Landmark{X: 0.5, Y: 0.8, Z: 0.0}

	// Y decreases going up
	h.Points[ThumbCMC] = Landmark{X: 0.55, Y: 0.75, Z: 0.0}
	h.Points[ThumbMCP] = Landmark{X: 0.58, Y: 0.65, Z: 0.0}
	h.Points[ThumbIP] = Landmark{X: 0.58, Y: 0.50, Z: 0.0}
	h.Points[ThumbTip] = Landmark{X: 0.58, Y: 0.35, Z: 0.0}

	curledFingers(&h)
	return h
}

// OpenPalmLandmarks returns a hand with every finger extended.
func OpenPalmLandmarks() HandLandmarks {
	h := newHand()
	h.Points[Wrist] = Landmark{X: 0.5, Y: 0.8, Z: 0.0}

	h.Points[ThumbCMC] = Landmark{X: 0.55, Y: 0.75, Z: 0.02}
	h.Points[ThumbMCP] = Landmark{X: 0.62, Y: 0.70, Z: 0.03}
	h.Points[ThumbIP] = Landmark{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Landmark{X: 0.73, Y: 0.60, Z: 0.03}

	h.Points[IndexMCP] = Landmark{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexPIP] = Landmark{X: 0.57, Y: 0.55, Z: 0.0}
	h.Points[IndexDIP] = Landmark{X: 0.58, Y: 0.45, Z: 0.0}
	h.Points[IndexTip] = Landmark{X: 0.58, Y: 0.35, Z: 0.0}

	h.Points[MiddleMCP] = Landmark{X: 0.50, Y: 0.66, Z: 0.0}
	h.Points[MiddlePIP] = Landmark{X: 0.50, Y: 0.52, Z: 0.0}
	h.Points[MiddleDIP] = Landmark{X: 0.50, Y: 0.40, Z: 0.0}
	h.Points[MiddleTip] = Landmark{X: 0.50, Y: 0.28, Z: 0.0}

	h.Points[RingMCP] = Landmark{X: 0.45, Y: 0.68, Z: 0.0}
	h.Points[RingPIP] = Landmark{X: 0.43, Y: 0.55, Z: 0.0}
	h.Points[RingDIP] = Landmark{X: 0.42, Y: 0.45, Z: 0.0}
	h.Points[RingTip] = Landmark{X: 0.42, Y: 0.35, Z: 0.0}

	h.Points[PinkyMCP] = Landmark{X: 0.40, Y: 0.70, Z: 0.0}
	h.Points[PinkyPIP] = Landmark{X: 0.37, Y: 0.60, Z: 0.0}
	h.Points[PinkyDIP] = Landmark{X: 0.35, Y: 0.50, Z: 0.0}
	h.Points[PinkyTip] = Landmark{X: 0.34, Y: 0.42, Z: 0.0}

	return h
}
