package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct. YAML file values are overlaid
// with PHONESIM_* environment variables.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Phone      PhoneConfig      `yaml:"phone"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds http settings.
type ServerConfig struct {
	Address   string          `yaml:"address" env:"PHONESIM_ADDRESS"`
	Port      int             `yaml:"port" env:"PHONESIM_PORT"`
	DBPath    string          `yaml:"db_path" env:"PHONESIM_DB_PATH"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig tunes the per-client token bucket on mutating routes.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"PHONESIM_RATE_RPS"`
	Burst int     `yaml:"burst" env:"PHONESIM_RATE_BURST"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" env:"PHONESIM_LOG_LEVEL"`
}

// SchedulerConfig tunes the poll scheduler. The probability knobs default
// to the tuning the simulation shipped with; they are configuration, not
// derived values.
type SchedulerConfig struct {
	// Cron drives the periodic trigger.
	Cron string `yaml:"cron" env:"PHONESIM_SCHED_CRON"`
	// MinInterval is the rate gate for non-main-chat triggers.
	MinInterval Duration `yaml:"min_interval" env:"PHONESIM_SCHED_MIN_INTERVAL"`
	// ReceiptDriftChance is the per-thread chance per poll of advancing
	// player receipts to delivered.
	ReceiptDriftChance float64 `yaml:"receipt_drift_chance"`
	// GroupBurstChance is the chance a main-chat message action bursts
	// from the whole speaker set of a group thread.
	GroupBurstChance float64 `yaml:"group_burst_chance"`
}

// PhoneConfig holds static phone simulation settings.
type PhoneConfig struct {
	// Characters is the roster of known character display names.
	Characters []string `yaml:"characters"`
	// StarterKnownNumbers seeds the contacts document on first load and
	// after a reset.
	StarterKnownNumbers map[string]bool `yaml:"starter_known_numbers"`
	PhotoMessaging      PhotoConfig     `yaml:"photo_messaging"`
	// SpriteDir is scanned for mood-matched photo attachments.
	SpriteDir string `yaml:"sprite_dir" env:"PHONESIM_SPRITE_DIR"`
}

// PhotoConfig gates synthetic photo attachments.
type PhotoConfig struct {
	Enabled bool `yaml:"enabled"`
	// Chance is the per-message roll for burst photos.
	Chance     float64 `yaml:"chance"`
	MaxPerTick int     `yaml:"max_per_tick"`
	// ReplyChance and MaxReplyPhotos gate auto-reply photos separately.
	ReplyChance    float64 `yaml:"reply_chance"`
	MaxReplyPhotos int     `yaml:"max_reply_photos"`
}

// GenerationConfig selects and keys the text-generation backend.
type GenerationConfig struct {
	// Backend is "openai" or "static".
	Backend string `yaml:"backend" env:"PHONESIM_GEN_BACKEND"`
	APIKey  string `yaml:"api_key" env:"PHONESIM_GEN_API_KEY"`
	Model   string `yaml:"model" env:"PHONESIM_GEN_MODEL"`
	BaseURL string `yaml:"base_url" env:"PHONESIM_GEN_BASE_URL"`
}

// Duration is a wrapper around time.Duration that supports YAML parsing
// from strings like "20s" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

// UnmarshalText lets the env overlay parse duration strings too.
func (d *Duration) UnmarshalText(b []byte) error {
	td, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
