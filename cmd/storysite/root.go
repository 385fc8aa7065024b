package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/eringen/storysite"
)

var (
	cfgFile string
	envFile string

	appConfig storysite.Config
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storysite",
	Short: "Storyblok-backed marketing site and blog",
	Long: `storysite renders a marketing site and blog from Storyblok content.
Configuration comes from the environment (optionally loaded from a .env
file) and an optional storysite.yaml.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./storysite.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded into the environment when present")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
}

func initializeConfig(cmd *cobra.Command) error {
	if err := loadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	v := newViper()
	if err := v.BindPFlag("log_level", cmd.Flags().Lookup("log-level")); err != nil {
		return err
	}
	if err := readConfigFile(v, cfgFile); err != nil {
		return err
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	l, err := newLogger(v.GetString("log_level"), cfg.Production, os.Stderr)
	if err != nil {
		return err
	}
	appConfig, logger = cfg, l
	slog.SetDefault(l)
	return nil
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is an error only when required.
func loadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// newApp builds and initializes an App from the loaded configuration.
func newApp() (*storysite.App, error) {
	app := storysite.New(appConfig, storysite.WithLogger(logger))
	if err := app.Init(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}
