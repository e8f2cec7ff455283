// Package config loads the service configuration from a JSON file,
// with a handful of environment overrides for containerized deploys.
package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Config holds the app's configuration.
type Config struct {
	API struct {
		Host          string `json:"host"`
		Port          int    `json:"port"`
		HeartbeatPath string `json:"heartbeat_path"`
	} `json:"api"`

	Processor struct {
		ArtifactDir          string `json:"artifact_dir"`
		ExtractorBin         string `json:"extractor_bin"`
		TranscoderBin        string `json:"transcoder_bin"`
		RetentionMinutes     int    `json:"retention_minutes"`
		WatchdogMinutes      int    `json:"watchdog_minutes"`
		SweepIntervalSeconds int    `json:"sweep_interval_seconds"`
		StatsInterval        int    `json:"stats_interval"`
		DiskHigh             int    `json:"disk_high"`
		DiskLow              int    `json:"disk_low"`
	} `json:"processor"`

	// Identity holds per-platform cookie blobs, keyed by platform name
	// (eg. "YouTube").
	Identity struct {
		Cookies map[string]string `json:"cookies"`
	} `json:"identity"`

	Backends map[string]map[string]interface{} `json:"backends"`
}

// Parse loads a given file name and creates a Configuration. An empty
// filename yields the defaults.
func Parse(filename string) (Config, error) {
	cfg := Config{}
	cfg.API.Host = "0.0.0.0"
	cfg.API.Port = 8000
	cfg.API.HeartbeatPath = "/health"
	cfg.Processor.ArtifactDir = "artifacts"
	cfg.Processor.ExtractorBin = "yt-dlp"
	cfg.Processor.TranscoderBin = "ffmpeg"
	cfg.Processor.RetentionMinutes = 10
	cfg.Processor.WatchdogMinutes = 10
	cfg.Processor.SweepIntervalSeconds = 30
	cfg.Processor.StatsInterval = 5000
	cfg.Processor.DiskHigh = 90
	cfg.Processor.DiskLow = 80

	if filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			return cfg, err
		}
		defer f.Close()

		dec := json.NewDecoder(f)
		dec.UseNumber()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, errors.Wrapf(err, "Could not parse %s", filename)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides file settings from the environment. godotenv in
// main populates these from a .env file when present.
func (cfg *Config) applyEnv() error {
	if v := os.Getenv("MEDIAGRAB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "MEDIAGRAB_PORT must be an integer")
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("MEDIAGRAB_ARTIFACT_DIR"); v != "" {
		cfg.Processor.ArtifactDir = v
	}
	if v := os.Getenv("MEDIAGRAB_YOUTUBE_COOKIES"); v != "" {
		if cfg.Identity.Cookies == nil {
			cfg.Identity.Cookies = make(map[string]string)
		}
		cfg.Identity.Cookies["YouTube"] = v
	}
	return nil
}
