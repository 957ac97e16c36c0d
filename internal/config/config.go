package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SequenceDir   string        `yaml:"sequence_dir"`
	DefaultLength float64       `yaml:"default_length"`
	LogLevel      string        `yaml:"log_level"`
	Listen        string        `yaml:"listen"`
	Host          HostConfig    `yaml:"host"`
	Ticks         TickConfig    `yaml:"ticks"`
	Redis         RedisConfig   `yaml:"redis"`
	Export        ExportConfig  `yaml:"export"`
	BuildVersion  string        `yaml:"-"`
	SetTimeout    time.Duration `yaml:"set_timeout"`
}

// HostConfig locates the render host's replay API.
type HostConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	Insecure bool          `yaml:"insecure"`
}

// TickConfig holds the scheduler cadences.
type TickConfig struct {
	Fast     time.Duration `yaml:"fast"`
	Slow     time.Duration `yaml:"slow"`
	Snapshot time.Duration `yaml:"snapshot"`
}

// RedisConfig enables the snapshot mirror when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type ExportConfig struct {
	Codec            string        `yaml:"codec"`
	FPS              int           `yaml:"fps"`
	EnforceFrameRate bool          `yaml:"enforce_frame_rate"`
	Lossless         bool          `yaml:"lossless"`
	OutputDir        string        `yaml:"output_dir"`
	VideoEncoder     string        `yaml:"video_encoder"`
	Quality          int           `yaml:"quality"`
	MinFreeDiskMB    uint64        `yaml:"min_free_disk_mb"`
	ThumbnailWidth   int           `yaml:"thumbnail_width"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	ShowStats        bool          `yaml:"show_stats"`
}

func Default() Config {
	return Config{
		SequenceDir:   "sequences",
		DefaultLength: 30,
		LogLevel:      "info",
		Listen:        "127.0.0.1:8089",
		SetTimeout:    50 * time.Millisecond,
		Host: HostConfig{
			URL:      "https://127.0.0.1:2999",
			Timeout:  2 * time.Second,
			Insecure: true,
		},
		Ticks: TickConfig{
			Fast:     10 * time.Millisecond,
			Slow:     500 * time.Millisecond,
			Snapshot: 5 * time.Second,
		},
		Redis: RedisConfig{
			Prefix: "replaydirector:sequence:",
		},
		Export: ExportConfig{
			Codec:          "png",
			FPS:            60,
			OutputDir:      "recordings",
			Quality:        23,
			MinFreeDiskMB:  2048,
			ThumbnailWidth: 480,
			PollInterval:   500 * time.Millisecond,
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.SequenceDir == "":
		return errors.New("sequence_dir is required")
	case c.DefaultLength <= 0:
		return errors.New("default_length must be positive")
	case c.Ticks.Fast <= 0 || c.Ticks.Slow <= 0 || c.Ticks.Snapshot <= 0:
		return errors.New("tick cadences must be positive")
	case c.SetTimeout <= 0:
		return errors.New("set_timeout must be positive")
	case c.Host.Timeout <= 0:
		return errors.New("host timeout must be positive")
	case c.Export.Codec != "png" && c.Export.Codec != "webm":
		return fmt.Errorf("export codec %q: want png or webm", c.Export.Codec)
	case c.Export.FPS <= 0:
		return errors.New("export fps must be positive")
	}
	return nil
}
