package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eringen/mediumblog"
	"github.com/eringen/mediumblog/views"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configPath string
	logLevel   string
	fixtures   string
)

var rootCmd = &cobra.Command{
	Use:   "mediumblog",
	Short: "A personal blog server with generated, self-refreshing post pages",
	Long: `mediumblog serves a personal blog. Post pages are generated from a
document store at startup and refreshed in the background once stale.

Configuration is read from an optional TOML file and environment variables
(SANITY_PROJECT_ID, SANITY_DATASET, APP_ENV, SESSION_SECRET, ...).`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Generate every post page and start the HTTP server",
	RunE:  runServe,
}

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Resolve and generate every post route, then print them",
	Long: `Resolve the static paths of every post and render each page once.
Any failure exits non-zero, which makes this a build check for the content.`,
	RunE: runPaths,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load YAML fixtures into the local SQLite store",
	RunE:  runSeed,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mediumblog version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mediumblog %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", mediumblog.EnvOr("MEDIUMBLOG_CONFIG", ""), "Path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	seedCmd.Flags().StringVarP(&fixtures, "fixtures", "f", "fixtures/blog.yaml", "Path to YAML fixtures file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pathsCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config and applies the log level to the standard logger.
func loadConfig() (mediumblog.SiteConfig, error) {
	cfg, err := mediumblog.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	log.SetLevel(mediumblog.ParseLogLevel(cfg.LogLevel))
	log.Debugf("[server] config: %s", cfg)
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app := mediumblog.New(cfg)
	if err := app.Init(cmd.Context()); err != nil {
		log.Errorf("[server] failed to generate pages: %v", err)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			log.Errorf("[server] failed to start: %v", err)
			app.Close()
			return err
		}
		return nil
	case <-sigChan:
	}

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
		return err
	}
	log.Info("[server] HTTP server shut down gracefully")
	return nil
}

func runPaths(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app := mediumblog.New(cfg)
	if err := app.Init(cmd.Context()); err != nil {
		return err
	}
	defer app.Close()

	for _, r := range app.Routes {
		fmt.Fprintln(cmd.OutOrStdout(), views.PostPath(r.Params.Slug))
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "fallback: blocking")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Backend != mediumblog.BackendSQLite {
		return errors.New("seed needs the sqlite backend, set backend = \"sqlite\" or CONTENT_BACKEND=sqlite")
	}
	fx, err := mediumblog.LoadFixtures(fixtures)
	if err != nil {
		return err
	}
	store, err := mediumblog.NewStore(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	seeder := &mediumblog.Seeder{
		Store:     store,
		StaticDir: cfg.StaticDir,
		BaseDir:   filepath.Dir(fixtures),
	}
	return seeder.Seed(cmd.Context(), fx)
}
