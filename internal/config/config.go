// Package config loads flowsense configuration from TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all flowsense configuration.
type Config struct {
	Spool     SpoolConfig     `toml:"spool"`
	History   HistoryConfig   `toml:"history"`
	Archive   ArchiveConfig   `toml:"archive"`
	Detection DetectionConfig `toml:"detection"`
}

// SpoolConfig locates the JSONL event spool the frontend appends to.
type SpoolConfig struct {
	Path string `toml:"path"`
}

// HistoryConfig locates the completed-session database.
type HistoryConfig struct {
	DBPath string `toml:"db_path"`
}

// ArchiveConfig controls session-history exports.
type ArchiveConfig struct {
	Dir      string `toml:"dir"`
	Compress bool   `toml:"compress"`
}

// DetectionConfig exposes every detection parameter. The exit ratio and
// confirmation count ship with the calibrated defaults; they are tunable, not
// derived.
type DetectionConfig struct {
	CollectPeriodSeconds int     `toml:"collect_period_seconds"`
	TickPeriodSeconds    int     `toml:"tick_period_seconds"`
	WindowCapacity       int     `toml:"window_capacity"`
	ScoreWindow          int     `toml:"score_window"`
	SampleBuffer         int     `toml:"sample_buffer"`
	EnterThreshold       float64 `toml:"enter_threshold"`
	ExitRatio            float64 `toml:"exit_ratio"`
	ConfirmSamples       int     `toml:"confirm_samples"`
	LedgerCapacity       int     `toml:"ledger_capacity"`
}

// CollectPeriod returns the collection cadence as a duration.
func (d DetectionConfig) CollectPeriod() time.Duration {
	return time.Duration(d.CollectPeriodSeconds) * time.Second
}

// TickPeriod returns the evaluation cadence as a duration.
func (d DetectionConfig) TickPeriod() time.Duration {
	return time.Duration(d.TickPeriodSeconds) * time.Second
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Spool: SpoolConfig{
			Path: "~/.local/share/flowsense/events.jsonl",
		},
		History: HistoryConfig{
			DBPath: "~/.local/share/flowsense/history.db",
		},
		Archive: ArchiveConfig{
			Dir:      "~/.local/share/flowsense/archive",
			Compress: true,
		},
		Detection: DetectionConfig{
			CollectPeriodSeconds: 30,
			TickPeriodSeconds:    10,
			WindowCapacity:       1000,
			ScoreWindow:          5,
			SampleBuffer:         10,
			EnterThreshold:       0.6,
			ExitRatio:            0.8,
			ConfirmSamples:       3,
			LedgerCapacity:       100,
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	cfg := DefaultConfig()

	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	// Expand ~ in paths
	cfg.Spool.Path = expandHome(cfg.Spool.Path)
	cfg.History.DBPath = expandHome(cfg.History.DBPath)
	cfg.Archive.Dir = expandHome(cfg.Archive.Dir)

	return cfg, nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "flowsense", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "flowsense", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
