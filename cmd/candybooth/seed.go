package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ayusman/candybooth/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the survey questions with the built-in set",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().String("driver", "", "Database driver (sqlite or pgx)")
	seedCmd.Flags().String("dsn", "", "Database DSN or sqlite path")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"database.driver": "driver",
		"database.dsn":    "dsn",
	})
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := store.Seed(st)
	if err != nil {
		return err
	}

	log.Info().Int("questions", n).Str("driver", cfg.Database.Driver).Msg("Survey questions seeded")
	return nil
}
