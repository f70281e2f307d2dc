package booth

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"

	"github.com/ayusman/candybooth/internal/compositor"
)

// ErrNoResultID is recorded as the overlay error when the booth has no result.
var ErrNoResultID = errors.New("no result id given")

// loadAssets starts one loader per slot. Each failure is recorded for its
// slot only; the compositor draws without the missing decoration.
func (b *Booth) loadAssets(ctx context.Context) {
	loaders := map[compositor.Slot]func(context.Context) (image.Image, error){
		compositor.SlotOverlay:     b.loadOverlay,
		compositor.SlotBackground:  fileLoader(b.cfg.Assets.Background),
		compositor.SlotServiceLogo: fileLoader(b.cfg.Assets.ServiceLogo),
		compositor.SlotCreatorLogo: fileLoader(b.cfg.Assets.CreatorLogo),
	}

	for slot, load := range loaders {
		b.loading.Add(1)
		go func() {
			defer b.loading.Done()

			img, err := load(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				log.Warn().Err(err).Stringer("slot", slot).Msg("Asset failed to load")
				b.mu.Lock()
				b.assetErrs[slot] = err.Error()
				b.mu.Unlock()
				return
			}

			b.assets.Set(slot, img)
			log.Debug().Stringer("slot", slot).Msg("Asset loaded")
		}()
	}
}

// loadOverlay uses the result's generated image, or the fallback file when
// the result has none. A failed result lookup is an error, not a fallback.
func (b *Booth) loadOverlay(ctx context.Context) (image.Image, error) {
	if b.cfg.ResultID <= 0 {
		return nil, ErrNoResultID
	}

	res, err := b.cfg.API.GetResult(ctx, b.cfg.ResultID)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}

	if res.AppleCandyURL != nil && *res.AppleCandyURL != "" {
		return b.cfg.API.FetchImage(ctx, *res.AppleCandyURL)
	}
	return loadFile(b.cfg.Assets.Overlay)
}

func fileLoader(path string) func(context.Context) (image.Image, error) {
	return func(context.Context) (image.Image, error) {
		return loadFile(path)
	}
}

func loadFile(path string) (image.Image, error) {
	if path == "" {
		return nil, errors.New("no image path configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
