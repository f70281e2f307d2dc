package detector

import (
	"context"
	"errors"
	"image"
)

// ErrServiceNotFound is returned when no manifest provides the requested service.
var ErrServiceNotFound = errors.New("detector service not found")

// Service names looked up in the services directory.
const (
	HandsService        = "hands"
	SegmentationService = "selfie_segmentation"
)

// HandDetector finds hand landmarks in a frame.
type HandDetector interface {
	// Detect returns the hands found in frame, or an empty slice.
	Detect(ctx context.Context, frame image.Image) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Segmenter separates the person in a frame from the background.
type Segmenter interface {
	// Segment returns a person mask with the same bounds as frame.
	// Mask alpha is the probability that a pixel belongs to the person.
	Segment(ctx context.Context, frame image.Image) (*image.Alpha, error)

	Close() error
}

// HandsConfig holds the options sent to the hands service at startup.
type HandsConfig struct {
	MaxHands               int     `json:"maxNumHands"`
	ModelComplexity        int     `json:"modelComplexity"`
	MinDetectionConfidence float64 `json:"minDetectionConfidence"`
	MinTrackingConfidence  float64 `json:"minTrackingConfidence"`
	SelfieMode             bool    `json:"selfieMode"`
}

// DefaultHandsConfig returns the options the booth runs with.
func DefaultHandsConfig() HandsConfig {
	return HandsConfig{
		MaxHands:               2,
		ModelComplexity:        1,
		MinDetectionConfidence: 0.6,
		MinTrackingConfidence:  0.5,
		SelfieMode:             false,
	}
}

// SegmenterConfig holds the options sent to the segmentation service.
type SegmenterConfig struct {
	// ModelSelection 1 selects the landscape model.
	ModelSelection int  `json:"modelSelection"`
	SelfieMode     bool `json:"selfieMode"`
}

// DefaultSegmenterConfig selects the landscape model.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{ModelSelection: 1}
}
