package detector

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// EncodeJPEG encodes a frame as JPEG with OpenCV, for detector payloads
// and the MJPEG stream.
func EncodeJPEG(frame image.Image) ([]byte, error) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
