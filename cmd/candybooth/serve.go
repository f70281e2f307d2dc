package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ayusman/candybooth/internal/config"
	"github.com/ayusman/candybooth/internal/layers"
	"github.com/ayusman/candybooth/internal/server"
	"github.com/ayusman/candybooth/internal/storage"
	"github.com/ayusman/candybooth/internal/store"
	"github.com/ayusman/candybooth/internal/survey"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the survey API and download pages",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", "", "Address to listen on")
	f.String("static-dir", "", "Directory with the web UI and images")
	f.String("base-url", "", "Public origin for download links")
	f.String("storage", "", "Object storage backend (s3 or local)")
	f.String("layers", "", "Root of the candy layer images")
	f.String("driver", "", "Database driver (sqlite or pgx)")
	f.String("dsn", "", "Database DSN or sqlite path")
	f.Bool("seed", false, "Seed questions when the database has none")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"server.addr":       "addr",
		"server.static_dir": "static-dir",
		"server.base_url":   "base-url",
		"storage.backend":   "storage",
		"layers.root":       "layers",
		"database.driver":   "driver",
		"database.dsn":      "dsn",
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	if seed, _ := cmd.Flags().GetBool("seed"); seed {
		if err := seedIfEmpty(st); err != nil {
			return err
		}
	}

	stores, err := openObjectStores(ctx, cfg)
	if err != nil {
		return err
	}

	svc := survey.New(survey.Config{
		Results:   st.Results(),
		Resolver:  layers.NewResolver(os.DirFS(cfg.Layers.Root)),
		Generated: stores.generated,
		Photos:    stores.photos,
	})

	srv := server.New(server.Config{
		StaticDir: cfg.Server.StaticDir,
		Store:     st,
		Survey:    svc,
		Objects:   stores.local,
		BaseURL:   cfg.Server.BaseURL,
	})

	log.Info().
		Str("addr", cfg.Server.Addr).
		Str("storage", cfg.Storage.Backend).
		Str("database", cfg.Database.Driver).
		Str("layers", cfg.Layers.Root).
		Msg("Starting candybooth API")

	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func seedIfEmpty(st *store.Store) error {
	questions, err := st.Questions().ListByAudience(false)
	if err != nil {
		return err
	}
	if len(questions) > 0 {
		return nil
	}
	n, err := store.Seed(st)
	if err != nil {
		return err
	}
	log.Info().Int("questions", n).Msg("Survey questions seeded")
	return nil
}

type objectStores struct {
	generated storage.ObjectStore
	photos    storage.ObjectStore
	// local maps bucket names to directories the server must expose.
	local map[string]string
}

func openObjectStores(ctx context.Context, cfg *config.Config) (*objectStores, error) {
	sc := cfg.Storage
	buckets := []string{sc.GeneratedBucket, sc.PhotoBucket}
	opened := make([]storage.ObjectStore, len(buckets))
	out := &objectStores{}

	switch sc.Backend {
	case config.BackendS3:
		for i, bucket := range buckets {
			s, err := storage.NewS3Store(ctx, storage.S3Options{
				Bucket:          bucket,
				Region:          sc.Region,
				Endpoint:        sc.Endpoint,
				AccessKeyID:     sc.AccessKeyID,
				SecretAccessKey: sc.SecretAccessKey,
				PublicBaseURL:   bucketURL(sc.PublicBaseURL, bucket),
			})
			if err != nil {
				return nil, fmt.Errorf("open bucket %s: %w", bucket, err)
			}
			opened[i] = s
		}

	case config.BackendLocal:
		out.local = make(map[string]string, len(buckets))
		for i, bucket := range buckets {
			dir := filepath.Join(sc.LocalDir, bucket)
			s, err := storage.NewLocalStore(dir, cfg.Server.BaseURL+"/objects/"+bucket)
			if err != nil {
				return nil, fmt.Errorf("open bucket %s: %w", bucket, err)
			}
			opened[i] = s
			out.local[bucket] = s.Dir()
		}

	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}

	out.generated, out.photos = opened[0], opened[1]
	return out, nil
}

// bucketURL appends the bucket to a shared public base, e.g. a Supabase
// ".../storage/v1/object/public" prefix.
func bucketURL(base, bucket string) string {
	if base == "" {
		return ""
	}
	return base + "/" + bucket
}
