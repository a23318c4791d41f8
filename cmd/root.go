// Package cmd provides the poolserve command line.
//
// Configuration is resolved with clear precedence:
//  1. Command-line flags (--port, --dir, ...), highest priority
//  2. Environment variables (POOLSERVE_SERVER_PORT, POOLSERVE_STATIC_ROOT_DIR, ...)
//  3. The file named by --config or POOLSERVE_CONFIG_FILE
//  4. .poolserve.yml in the current directory
//  5. Built-in defaults
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/conneroisu/poolserve/internal/config"
	"github.com/conneroisu/poolserve/internal/logging"
	"github.com/conneroisu/poolserve/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	configReadErr error
)

// rootCmd runs the server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "poolserve",
	Short: "A static file server backed by a fixed-size worker pool",
	Long: `poolserve answers HTTP/1.x requests from a directory of static files.
Every accepted connection is handled by one of a fixed number of workers, so
a slow request only ever occupies one worker.

Routes:
  GET /, /index.html     index.html
  GET /sleep.html        sleep.html after the configured delay
  GET /api/...           {"errno":0,"msg":"success","data":null}
  anything else          the file under --dir, or 404.html

Examples:
  poolserve --dir ./public --port 8080
  poolserve --public-dir ./site -w 8 --watch --live-reload
  POOLSERVE_SERVER_WORKERS=16 poolserve`,
	SilenceUsage: true,
	RunE:         runServe,
}

// serveFlags maps each flag to the configuration key it overrides.
var serveFlags = map[string]string{
	"host":             "server.host",
	"port":             "server.port",
	"workers":          "server.workers",
	"read-buffer-size": "server.read_buffer_size",
	"dir":              "static.root_dir",
	"sleep-delay":      "static.sleep_delay",
	"cache-size":       "static.cache_size",
	"watch":            "static.watch",
	"live-reload":      "live_reload.enabled",
	"live-reload-port": "live_reload.port",
}

// dirAliases are accepted in place of --dir.
var dirAliases = map[string]bool{
	"path":        true,
	"public-dir":  true,
	"public-path": true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .poolserve.yml, can also use POOLSERVE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.Flags().SetNormalizeFunc(normalizeFlagName)
	addServeFlags(rootCmd.Flags())
	for name, key := range serveFlags {
		_ = viper.BindPFlag(key, rootCmd.Flags().Lookup(name))
	}
}

// addServeFlags defines the server flags on fs.
func addServeFlags(fs *pflag.FlagSet) {
	fs.String("host", config.DefaultHost, "Host to bind to")
	fs.Uint16P("port", "p", config.DefaultPort, "Port to serve on")
	fs.IntP("workers", "w", config.DefaultWorkers, "Number of worker goroutines")
	fs.Int("read-buffer-size", config.DefaultReadBufferSize, "Bytes read from each connection")
	fs.String("dir", config.DefaultRootDir, "Directory to serve (aliases: --path, --public-dir, --public-path)")
	fs.Duration("sleep-delay", config.DefaultSleepDelay, "Delay before /sleep.html is served")
	fs.Int64("cache-size", 0, "In-memory file cache size in bytes (0 disables caching)")
	fs.Bool("watch", false, "Watch the served directory for changes")
	fs.Bool("live-reload", false, "Announce changes to browsers over a websocket")
	fs.Uint16("live-reload-port", config.DefaultLiveReloadPort, "Port for the live reload websocket")
}

// normalizeFlagName folds the --dir aliases onto --dir.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if dirAliases[name] {
		name = "dir"
	}
	return pflag.NormalizedName(name)
}

// initConfig wires viper to the environment and the config file.
//
// The config file is chosen in this order: --config, POOLSERVE_CONFIG_FILE,
// then .poolserve.yml in the current directory. A missing default file is
// not an error; an unreadable file that was asked for explicitly is.
func initConfig() {
	configReadErr = nil
	explicit := true

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		explicit = false
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".poolserve")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if explicit {
		configReadErr = fmt.Errorf("failed to read config file: %w", err)
	}
}

func newLogger(cfg config.LogConfig) logging.Logger {
	level, _ := logging.ParseLevel(cfg.Level)
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Format,
		Output: os.Stderr,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	if configReadErr != nil {
		return configReadErr
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, warning := range config.ValidateConfigWithDetails(cfg).Warnings {
		logger.Warn(ctx, &warning, "Configuration warning")
	}

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error(ctx, err, "Failed to create server")
		return err
	}
	defer func() {
		// A second interrupt during the drain terminates the process.
		stop()
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Warn(context.Background(), err, "Shutdown incomplete")
		}
		stats := srv.Stats()
		logger.Info(context.Background(), "Server stopped",
			"served", stats.Pool.Completed,
			"panicked", stats.Pool.Panicked,
			"peak_active", stats.Pool.PeakActive)
	}()

	if err := srv.Listen(); err != nil {
		logger.Error(ctx, err, "Failed to start server")
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s with %d workers\n",
		cfg.Static.RootDir, srv.Addr(), cfg.Server.Workers)

	return srv.Serve(ctx)
}
