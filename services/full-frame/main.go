// Command full-frame is a stand-in selfie segmentation service. Every frame
// gets a mask that keeps the whole picture, so the booth shows the raw
// camera image inside the frame.
package main

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// options mirrors the startup line the booth sends.
type options struct {
	ModelSelection int `json:"modelSelection"`
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Str("service", "full-frame").Logger()

	mask, err := fullMask()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to encode mask")
	}
	if err := serve(os.Stdin, os.Stdout, mask); err != nil {
		logger.Fatal().Err(err).Msg("Service stopped")
	}
}

// fullMask is a 1x1 opaque gray PNG; the booth scales masks to the frame.
func fullMask() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 0xff})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// serve reads the options line, then answers each length-prefixed frame
// with a length-prefixed PNG mask until stdin closes.
func serve(in io.Reader, out io.Writer, mask []byte) error {
	r := bufio.NewReader(in)
	line, err := r.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read options: %w", err)
	}
	var opts options
	if err := json.Unmarshal(line, &opts); err != nil {
		return fmt.Errorf("parse options: %w", err)
	}

	reply := make([]byte, 4, 4+len(mask))
	binary.BigEndian.PutUint32(reply, uint32(len(mask)))
	reply = append(reply, mask...)

	length := make([]byte, 4)
	for {
		if _, err := io.ReadFull(r, length); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read length: %w", err)
		}
		if _, err := io.CopyN(io.Discard, r, int64(binary.BigEndian.Uint32(length))); err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if _, err := out.Write(reply); err != nil {
			return err
		}
	}
}
