// Package config loads candybooth settings from an optional YAML file,
// CANDYBOOTH_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// CANDYBOOTH_SERVER_ADDR or CANDYBOOTH_STORAGE_BACKEND.
const EnvPrefix = "CANDYBOOTH"

// Storage backends.
const (
	BackendS3    = "s3"
	BackendLocal = "local"
)

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Layers   LayersConfig
	Booth    BoothConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr      string
	StaticDir string
	// BaseURL is the public origin used when building download links.
	BaseURL string
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "pgx".
	Driver string
	DSN    string
}

type StorageConfig struct {
	Backend         string
	GeneratedBucket string
	PhotoBucket     string
	Region          string
	Endpoint        string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
	LocalDir        string
}

type LayersConfig struct {
	Root string
}

type BoothConfig struct {
	CameraID      int
	FPS           int
	APIBaseURL    string
	ResultID      int64
	ServicesDir   string
	Python        string
	FingerCurl    float64
	ThumbCurl     float64
	Overlay       string
	Background    string
	ServiceLogo   string
	CreatorLogo   string
	Tray          bool
	FrameInterval time.Duration
}

type LogConfig struct {
	Level string
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.static_dir", "public")
	v.SetDefault("server.base_url", "http://localhost:8080")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "candybooth.db")

	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.generated_bucket", "apple-candy-images")
	v.SetDefault("storage.photo_bucket", "purikura-photos")
	v.SetDefault("storage.region", "ap-northeast-1")
	v.SetDefault("storage.local_dir", "data/objects")

	v.SetDefault("layers.root", "public/image")

	v.SetDefault("booth.camera_id", 0)
	v.SetDefault("booth.fps", 30)
	v.SetDefault("booth.api_base_url", "http://localhost:8080")
	v.SetDefault("booth.services_dir", "services")
	v.SetDefault("booth.python", "")
	v.SetDefault("booth.fist.finger_curl", 0.07)
	v.SetDefault("booth.fist.thumb_curl", 0.08)
	v.SetDefault("booth.assets.overlay", "public/image/base/red_origin.png")
	v.SetDefault("booth.assets.background", "public/image/purikura-background/4.webp")
	v.SetDefault("booth.assets.service_logo", "public/image/service-logo.webp")
	v.SetDefault("booth.assets.creator_logo", "public/image/creater-logo.webp")
	v.SetDefault("booth.tray", false)

	v.SetDefault("log.level", "info")
}

// Load reads the optional config file at path (empty means none) and
// returns the resolved configuration.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	fps := v.GetInt("booth.fps")
	if fps <= 0 {
		fps = 30
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:      v.GetString("server.addr"),
			StaticDir: v.GetString("server.static_dir"),
			BaseURL:   strings.TrimRight(v.GetString("server.base_url"), "/"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Storage: StorageConfig{
			Backend:         strings.ToLower(v.GetString("storage.backend")),
			GeneratedBucket: v.GetString("storage.generated_bucket"),
			PhotoBucket:     v.GetString("storage.photo_bucket"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			PublicBaseURL:   strings.TrimRight(v.GetString("storage.public_base_url"), "/"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			LocalDir:        v.GetString("storage.local_dir"),
		},
		Layers: LayersConfig{
			Root: v.GetString("layers.root"),
		},
		Booth: BoothConfig{
			CameraID:      v.GetInt("booth.camera_id"),
			FPS:           fps,
			APIBaseURL:    strings.TrimRight(v.GetString("booth.api_base_url"), "/"),
			ResultID:      v.GetInt64("booth.result_id"),
			ServicesDir:   v.GetString("booth.services_dir"),
			Python:        v.GetString("booth.python"),
			FingerCurl:    v.GetFloat64("booth.fist.finger_curl"),
			ThumbCurl:     v.GetFloat64("booth.fist.thumb_curl"),
			Overlay:       v.GetString("booth.assets.overlay"),
			Background:    v.GetString("booth.assets.background"),
			ServiceLogo:   v.GetString("booth.assets.service_logo"),
			CreatorLogo:   v.GetString("booth.assets.creator_logo"),
			Tray:          v.GetBool("booth.tray"),
			FrameInterval: time.Second / time.Duration(fps),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("database.driver must be sqlite or pgx, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir is required for the local backend")
		}
	case BackendS3:
		if c.Storage.GeneratedBucket == "" || c.Storage.PhotoBucket == "" {
			return errors.New("storage buckets are required for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend must be s3 or local, got %q", c.Storage.Backend)
	}

	if c.Booth.FingerCurl <= 0 || c.Booth.ThumbCurl <= 0 {
		return errors.New("booth.fist thresholds must be positive")
	}
	return nil
}
