package detector

import (
	"context"
	"fmt"
)

// Services builds detectors from a Registry. Service lookups are shared
// through the registry so repeated sessions do not rescan the directory.
type Services struct {
	Registry  *Registry
	Python    string
	Hands     HandsConfig
	Segmenter SegmenterConfig
}

// NewServices uses the default model options.
func NewServices(reg *Registry, python string) *Services {
	return &Services{
		Registry:  reg,
		Python:    python,
		Hands:     DefaultHandsConfig(),
		Segmenter: DefaultSegmenterConfig(),
	}
}

// LoadHands resolves the hands service and starts its process.
func (s *Services) LoadHands(ctx context.Context) (HandDetector, error) {
	svc, err := s.Registry.Load(ctx, HandsService)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", HandsService, err)
	}
	d := NewMediaPipeHands(svc, s.Python, s.Hands)
	if err := d.Start(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadSegmenter resolves the segmentation service and starts its process.
func (s *Services) LoadSegmenter(ctx context.Context) (Segmenter, error) {
	svc, err := s.Registry.Load(ctx, SegmentationService)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", SegmentationService, err)
	}
	seg := NewMediaPipeSegmenter(svc, s.Python, s.Segmenter)
	if err := seg.Start(ctx); err != nil {
		return nil, err
	}
	return seg, nil
}
