package detector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"image"
)

// MediaPipeHands implements HandDetector using the hands service subprocess.
// The process is started by Start or lazily on the first Detect.
type MediaPipeHands struct {
	config HandsConfig
	proc   *process
}

// NewMediaPipeHands creates a hand detector for svc.
func NewMediaPipeHands(svc *Service, python string, config HandsConfig) *MediaPipeHands {
	return &MediaPipeHands{
		config: config,
		proc:   newProcess(svc, python, config),
	}
}

// Start launches the service without waiting for a frame.
func (d *MediaPipeHands) Start(ctx context.Context) error {
	return d.proc.start()
}

// Detect sends frame to the service and returns the hands it reports.
func (d *MediaPipeHands) Detect(ctx context.Context, frame image.Image) ([]HandLandmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := EncodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	var result []HandLandmarks
	err = d.proc.do(ctx, data, func(r *bufio.Reader) error {
		line, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		result, err = parseHandsResponse([]byte(line))
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close shuts down the service process.
func (d *MediaPipeHands) Close() error {
	return d.proc.close()
}

type handsResponse struct {
	Hands []HandLandmarks `json:"hands"`
	Error string          `json:"error,omitempty"`
}

func parseHandsResponse(line []byte) ([]HandLandmarks, error) {
	var resp handsResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("hands service: %s", resp.Error)
	}
	if resp.Hands == nil {
		return []HandLandmarks{}, nil
	}
	return resp.Hands, nil
}
