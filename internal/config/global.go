// Package config loads and saves the user's scamsim preferences.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/agusx1211/scamsim/internal/playback"
)

// EnvHome relocates the config directory.
const EnvHome = "SCAMSIM_HOME"

// Theme names.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// AuditConfig controls the hash-chained audit log.
type AuditConfig struct {
	Enabled bool   `json:"enabled,omitempty" env:"SCAMSIM_AUDIT"`
	Path    string `json:"path,omitempty" env:"SCAMSIM_AUDIT_PATH"` // default <dir>/audit.log
}

// WebConfig holds defaults for `scamsim serve`.
type WebConfig struct {
	Host string `json:"host,omitempty" env:"SCAMSIM_WEB_HOST"`
	Port int    `json:"port,omitempty" env:"SCAMSIM_WEB_PORT"`
}

// Config is stored in ~/.scamsim/config.json. Environment variables override
// file values for the current process only.
type Config struct {
	Theme         string `json:"theme,omitempty" env:"SCAMSIM_THEME"`
	CatalogPath   string `json:"catalog_path,omitempty" env:"SCAMSIM_CATALOG"` // empty = embedded catalog
	AutoPlayMinMS int    `json:"auto_play_min_ms" env:"SCAMSIM_AUTO_PLAY_MIN_MS"`
	AutoPlayMaxMS int    `json:"auto_play_max_ms" env:"SCAMSIM_AUTO_PLAY_MAX_MS"`
	TypingMinMS   int    `json:"typing_min_ms" env:"SCAMSIM_TYPING_MIN_MS"`
	TypingMaxMS   int    `json:"typing_max_ms" env:"SCAMSIM_TYPING_MAX_MS"`
	TickMS        int    `json:"tick_ms" env:"SCAMSIM_TICK_MS"`
	RecordingsDir string `json:"recordings_dir,omitempty" env:"SCAMSIM_RECORDINGS_DIR"`

	Audit AuditConfig `json:"audit,omitempty"`
	Web   WebConfig   `json:"web,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	p := playback.DefaultPacing()
	return &Config{
		Theme:         ThemeDark,
		AutoPlayMinMS: int(p.AutoPlay.Min / time.Millisecond),
		AutoPlayMaxMS: int(p.AutoPlay.Max / time.Millisecond),
		TypingMinMS:   int(p.Typing.Min / time.Millisecond),
		TypingMaxMS:   int(p.Typing.Max / time.Millisecond),
		TickMS:        int(p.Tick / time.Millisecond),
		Web:           WebConfig{Host: "127.0.0.1", Port: 8080},
	}
}

// Dir returns the config directory (~/.scamsim or $SCAMSIM_HOME), creating
// it if needed.
func Dir() string {
	dir := strings.TrimSpace(os.Getenv(EnvHome))
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		dir = filepath.Join(home, ".scamsim")
	}
	os.MkdirAll(dir, 0755)
	return dir
}

func configPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads the config file over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads only the config file, without environment overrides. Use it
// when the result is going to be saved back.
func LoadFile() (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(configPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath(), err)
	}
	return cfg, nil
}

// Save writes cfg to ~/.scamsim/config.json.
func Save(cfg *Config) error {
	if cfg == nil {
		cfg = Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0644)
}

// Validate rejects negative or inverted pacing ranges and unknown themes.
func (c *Config) Validate() error {
	var errs []error
	switch c.Theme {
	case ThemeDark, ThemeLight:
	default:
		errs = append(errs, fmt.Errorf("theme %q: want %q or %q", c.Theme, ThemeDark, ThemeLight))
	}
	checkRange := func(name string, lo, hi int) {
		if lo < 0 || hi < 0 {
			errs = append(errs, fmt.Errorf("%s: negative delay (%d..%d ms)", name, lo, hi))
			return
		}
		if hi < lo {
			errs = append(errs, fmt.Errorf("%s: max %d ms is below min %d ms", name, hi, lo))
		}
	}
	checkRange("auto-play", c.AutoPlayMinMS, c.AutoPlayMaxMS)
	checkRange("typing", c.TypingMinMS, c.TypingMaxMS)
	if c.TickMS <= 0 {
		errs = append(errs, fmt.Errorf("tick: %d ms, want > 0", c.TickMS))
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		errs = append(errs, fmt.Errorf("web port %d out of range", c.Web.Port))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Pacing converts the millisecond settings into playback pacing.
func (c *Config) Pacing() playback.Pacing {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return playback.Pacing{
		AutoPlay: playback.Range{Min: ms(c.AutoPlayMinMS), Max: ms(c.AutoPlayMaxMS)},
		Typing:   playback.Range{Min: ms(c.TypingMinMS), Max: ms(c.TypingMaxMS)},
		Tick:     ms(c.TickMS),
	}
}

// ResolvedRecordingsDir returns RecordingsDir or <dir>/recordings.
func (c *Config) ResolvedRecordingsDir() string {
	if c.RecordingsDir != "" {
		return c.RecordingsDir
	}
	return filepath.Join(Dir(), "recordings")
}

// ResolvedAuditPath returns Audit.Path or <dir>/audit.log.
func (c *Config) ResolvedAuditPath() string {
	if c.Audit.Path != "" {
		return c.Audit.Path
	}
	return filepath.Join(Dir(), "audit.log")
}
