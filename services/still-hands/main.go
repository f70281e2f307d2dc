// Command still-hands is a stand-in hands service for rehearsing the booth
// without the MediaPipe models. It answers every frame with the hands read
// from an optional JSON file, or with no hands.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// options mirrors the startup line the booth sends.
type options struct {
	MaxHands int `json:"maxNumHands"`
}

type landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility,omitempty"`
}

type hand struct {
	Points     []landmark `json:"points"`
	Handedness string     `json:"handedness,omitempty"`
	Score      float64    `json:"score,omitempty"`
}

type response struct {
	Hands []hand `json:"hands"`
	Error string `json:"error,omitempty"`
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Str("service", "still-hands").Logger()

	var hands []hand
	if len(os.Args) > 1 {
		var err error
		hands, err = loadHands(os.Args[1])
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load hands")
		}
	}

	if err := serve(os.Stdin, os.Stdout, hands); err != nil {
		logger.Fatal().Err(err).Msg("Service stopped")
	}
}

func loadHands(path string) ([]hand, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var hands []hand
	if err := json.Unmarshal(data, &hands); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return hands, nil
}

// serve reads the options line, then answers each length-prefixed frame
// with one JSON line until stdin closes.
func serve(in io.Reader, out io.Writer, hands []hand) error {
	r := bufio.NewReader(in)
	line, err := r.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read options: %w", err)
	}
	var opts options
	if err := json.Unmarshal(line, &opts); err != nil {
		return fmt.Errorf("parse options: %w", err)
	}
	if opts.MaxHands > 0 && len(hands) > opts.MaxHands {
		hands = hands[:opts.MaxHands]
	}
	if hands == nil {
		hands = []hand{}
	}

	enc := json.NewEncoder(out)
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
		if err := enc.Encode(response{Hands: hands}); err != nil {
			return err
		}
	}
}
