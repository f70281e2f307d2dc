package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/candybooth/internal/booth"
	"github.com/ayusman/candybooth/internal/capture"
	"github.com/ayusman/candybooth/internal/client"
	"github.com/ayusman/candybooth/internal/config"
	"github.com/ayusman/candybooth/internal/detector"
	"github.com/ayusman/candybooth/internal/gesture"
	"github.com/ayusman/candybooth/internal/server"
	"github.com/ayusman/candybooth/internal/tray"
)

const statusInterval = time.Second

var boothCmd = &cobra.Command{
	Use:   "booth",
	Short: "Run the camera booth for one visit",
	Long: `Booth opens the camera, composites the visitor onto the frame with the
candy overlay and serves the kiosk controls on --addr. Without --result-id
a new result is created through the API.`,
	RunE: runBooth,
}

func init() {
	f := boothCmd.Flags()
	f.String("addr", ":8081", "Address for the kiosk surface")
	f.String("static-dir", "", "Directory with the kiosk UI")
	f.String("api", "", "Base URL of the candybooth API")
	f.Int64("result-id", 0, "Result to take the photo for")
	f.Int("camera", 0, "Camera device id")
	f.String("services", "", "Directory with the detector services")
	f.Bool("tray", false, "Show the menu bar controls")
}

func runBooth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"server.static_dir":  "static-dir",
		"booth.api_base_url": "api",
		"booth.result_id":    "result-id",
		"booth.camera_id":    "camera",
		"booth.services_dir": "services",
		"booth.tray":         "tray",
	})
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.Booth.APIBaseURL, nil)

	resultID := cfg.Booth.ResultID
	if resultID <= 0 {
		resultID, err = api.CreateResult(ctx)
		if err != nil {
			return fmt.Errorf("create result: %w", err)
		}
		log.Info().Int64("resultId", resultID).Msg("Created result for booth")
	}

	b := newBooth(cfg, api, resultID)
	defer b.Stop()

	srv := kioskServer(ctx, cfg, b)

	if !cfg.Booth.Tray {
		return srv.ListenAndServe(ctx, addr)
	}
	return runWithTray(ctx, stop, srv, b, addr)
}

// kioskServer starts the booth session and builds the kiosk surface. A
// session that fails to start stays visible through /booth/status.
func kioskServer(ctx context.Context, cfg *config.Config, b *booth.Booth) *server.Server {
	if err := b.Start(ctx); err != nil {
		log.Warn().Err(err).Int64("resultId", b.ResultID()).Msg("Booth session unavailable, serving status only")
	}

	return server.New(server.Config{
		StaticDir: cfg.Server.StaticDir,
		BaseURL:   cfg.Booth.APIBaseURL,
		Booth:     b,
	})
}

func newBooth(cfg *config.Config, api *client.Client, resultID int64) *booth.Booth {
	reg := detector.NewRegistry(cfg.Booth.ServicesDir)
	cam := capture.NewCamera(cfg.Booth.CameraID)
	cam.SetFPS(cfg.Booth.FPS)

	thresholds := gesture.DefaultThresholds()
	thresholds.FingerCurl = cfg.Booth.FingerCurl
	thresholds.ThumbCurl = cfg.Booth.ThumbCurl

	return booth.New(booth.Config{
		ResultID:  resultID,
		Camera:    cam,
		Detectors: detector.NewServices(reg, cfg.Booth.Python),
		API:       api,
		Assets: booth.AssetPaths{
			Overlay:     cfg.Booth.Overlay,
			Background:  cfg.Booth.Background,
			ServiceLogo: cfg.Booth.ServiceLogo,
			CreatorLogo: cfg.Booth.CreatorLogo,
		},
		Thresholds: thresholds,
		Interval:   cfg.Booth.FrameInterval,
	})
}

// runWithTray keeps the tray on the calling goroutine, which systray
// requires on macOS, and runs the server alongside it.
func runWithTray(ctx context.Context, stop context.CancelFunc, srv *server.Server, b *booth.Booth, addr string) error {
	t := tray.New("Candybooth")
	t.SetResultID(b.ResultID())
	t.SetOverlay(b.Compositor().OverlayEnabled())
	t.OnOverlay(b.Compositor().SetOverlayEnabled)
	t.OnOpen(func() { openBrowser(localURL(addr)) })
	t.OnQuit(stop)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.ListenAndServe(gctx, addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s := b.Status()
				t.SetStatus(s.Session, s.Fists)
			}
		}
	})
	go func() {
		<-gctx.Done()
		t.Quit()
	}()

	t.Run()
	stop()
	return g.Wait()
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr + "/"
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to open browser")
	}
}
