// cmd/matchctl/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dealership-workers/internal/common/config"
	"dealership-workers/internal/common/database"
	"dealership-workers/internal/common/logger"
	"dealership-workers/internal/matching"
	"dealership-workers/internal/store"
)

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:          "matchctl",
		Short:        "Run salesperson matching against the CRM database",
		SilenceUsage: true,
	}
)

// serviceFactory builds the matching service for a command run. The returned
// func releases whatever the service holds open.
type serviceFactory func(ctx context.Context, cfg *config.Config, log logger.Logger) (*matching.Service, func(), error)

var newService serviceFactory = postgresService

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")

	rootCmd.AddCommand(suggestCmd, decideCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	return config.Load()
}

func newLogger(cfg *config.Config) logger.Logger {
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	// stdout carries the JSON result, so logs go to stderr
	return logger.NewZapAdapter(logger.New(level, "console", "stderr"))
}

func postgresService(ctx context.Context, cfg *config.Config, log logger.Logger) (*matching.Service, func(), error) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}

	engine, err := matching.NewEngine(matching.SettingsFromConfig(cfg.Matching), log)
	if err != nil {
		pg.Close()
		return nil, nil, err
	}
	return matching.NewService(engine, store.NewPostgresStore(pg.DB, log), log), func() { pg.Close() }, nil
}

// withService loads config, builds the service and hands it to fn.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *matching.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, release, err := newService(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer release()

	return fn(ctx, svc)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
