// Package cli implements the crm command line: the HTTP server, schema
// migration and fixture seeding.
package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-crm-backend/internal/config"
	"github.com/tbourn/go-crm-backend/internal/repo"
	"github.com/tbourn/go-crm-backend/internal/sysutil"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
	DBPath  string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "crm",
		Short:         "CRM backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite path (overrides DB_PATH)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// loadConfig reads the optional dotenv file, then the environment, and
// configures logging from the result.
func loadConfig(opts *RootOptions) (config.Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	cfg.DBPath = sysutil.FirstNonEmpty(opts.DBPath, cfg.DBPath)

	sysutil.ConfigureLogging(cfg.LogLevel, cfg.LogPretty || sysutil.IsTruthy(os.Getenv("CRM_DEV")), os.Stderr)
	gin.SetMode(cfg.GinMode)
	return cfg, nil
}

// openDB opens the configured database and migrates it.
func openDB(cfg config.Config) (*gorm.DB, func(), error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeFn()
		return nil, nil, err
	}
	return db, closeFn, nil
}
