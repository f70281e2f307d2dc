package detector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// MediaPipeSegmenter implements Segmenter using the selfie segmentation
// service. Responses are length-prefixed PNG masks.
type MediaPipeSegmenter struct {
	config SegmenterConfig
	proc   *process
}

// NewMediaPipeSegmenter creates a segmenter for svc.
func NewMediaPipeSegmenter(svc *Service, python string, config SegmenterConfig) *MediaPipeSegmenter {
	return &MediaPipeSegmenter{
		config: config,
		proc:   newProcess(svc, python, config),
	}
}

func (s *MediaPipeSegmenter) Start(ctx context.Context) error {
	return s.proc.start()
}

// Segment returns the person mask for frame, scaled to the frame bounds.
func (s *MediaPipeSegmenter) Segment(ctx context.Context, frame image.Image) (*image.Alpha, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := EncodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	var mask *image.Alpha
	err = s.proc.do(ctx, data, func(r *bufio.Reader) error {
		raw, err := readFrame(r)
		if err != nil {
			return err
		}
		img, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("decode mask: %w", err)
		}
		mask = MaskFromImage(img, frame.Bounds())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mask, nil
}

func (s *MediaPipeSegmenter) Close() error {
	return s.proc.close()
}

// MaskFromImage converts a decoded mask to an alpha mask covering bounds.
// Grayscale masks use luminance as coverage; masks with transparency use
// their alpha channel.
func MaskFromImage(img image.Image, bounds image.Rectangle) *image.Alpha {
	src := img.Bounds()
	mask := image.NewAlpha(src)

	for y := src.Min.Y; y < src.Max.Y; y++ {
		for x := src.Min.X; x < src.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			v := a
			if a == 0xffff {
				v = (19595*r + 38470*g + 7471*b + 1<<15) >> 16
			}
			mask.Pix[mask.PixOffset(x, y)] = uint8(v >> 8)
		}
	}

	if src.Size() == bounds.Size() {
		mask.Rect = bounds
		return mask
	}

	scaled := image.NewAlpha(bounds)
	xdraw.BiLinear.Scale(scaled, bounds, mask, src, xdraw.Src, nil)
	return scaled
}
