package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ivlev/replaydirector/internal/config"
	"github.com/ivlev/replaydirector/internal/director"
	"github.com/ivlev/replaydirector/internal/host"
	"github.com/ivlev/replaydirector/internal/logging"
	"github.com/ivlev/replaydirector/internal/metrics"
	"github.com/ivlev/replaydirector/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "replaydirector",
	Short:         "Keyframe sequencer for replay cameras and render settings",
	Long:          `replaydirector records keyframed camera and render parameters against replay time and plays them back through the game client's replay API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "replaydirector.yaml", "Config file")
	rootCmd.PersistentFlags().String("dir", "", "Sequence directory (overrides config)")
	rootCmd.PersistentFlags().String("host", "", "Replay API base URL (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (overrides config)")
}

// loadConfig reads the config file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.SequenceDir = dir
	}
	if url, _ := cmd.Flags().GetString("host"); url != "" {
		cfg.Host.URL = url
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	cfg.BuildVersion = version
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

func newHost(cfg config.Config, logger *slog.Logger) *host.Client {
	opts := []host.ClientOption{
		host.WithTimeout(cfg.Host.Timeout),
		host.WithLogger(logger),
	}
	if cfg.Host.Insecure {
		opts = append(opts, host.WithInsecureTLS())
	}
	return host.NewClient(cfg.Host.URL, opts...)
}

// app bundles what every command needs.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	host     *host.Client
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	mirror   *store.RedisMirror
	manager  *director.Manager
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.SequenceDir, 0o755); err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		host:     newHost(cfg, logger),
		registry: prometheus.NewRegistry(),
	}
	a.metrics = metrics.New(a.registry)

	opts := []director.Option{
		director.WithLogger(logger),
		director.WithMetrics(a.metrics),
		director.WithDefaultLength(cfg.DefaultLength),
		director.WithHostTimeout(cfg.Host.Timeout),
	}
	if cfg.Redis.Addr != "" {
		a.mirror = store.NewRedisMirror(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			store.WithPrefix(cfg.Redis.Prefix), store.WithTTL(cfg.Redis.TTL))
		opts = append(opts, director.WithMirror(a.mirror))
	}

	a.manager, err = director.NewManager(ctx, cfg.SequenceDir, a.host, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil {
			a.logger.Warn("close redis mirror", "error", err)
		}
	}
}
