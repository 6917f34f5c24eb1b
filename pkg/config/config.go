package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Defaults for scheduler knobs. These match the tuning the simulation
// shipped with; override in config when the pacing feels wrong.
const (
	DefaultCron               = "*/2 * * * *"
	DefaultMinInterval        = 20 * time.Second
	DefaultReceiptDriftChance = 0.45
	DefaultGroupBurstChance   = 0.45
	DefaultPhotoChance        = 0.22
	DefaultPhotoMaxPerTick    = 1
	DefaultReplyPhotoChance   = 0.10
	DefaultMaxReplyPhotos     = 1
)

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	host := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Load reads the YAML file at path (when it exists), overlays PHONESIM_*
// environment variables and fills defaults. A missing file is not an
// error; env-only configuration is supported.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env overrides: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Scheduler.Cron == "" {
		cfg.Scheduler.Cron = DefaultCron
	}
	if cfg.Scheduler.MinInterval == 0 {
		cfg.Scheduler.MinInterval = Duration(DefaultMinInterval)
	}
	if cfg.Scheduler.ReceiptDriftChance == 0 {
		cfg.Scheduler.ReceiptDriftChance = DefaultReceiptDriftChance
	}
	if cfg.Scheduler.GroupBurstChance == 0 {
		cfg.Scheduler.GroupBurstChance = DefaultGroupBurstChance
	}
	pm := &cfg.Phone.PhotoMessaging
	if pm.Chance == 0 {
		pm.Chance = DefaultPhotoChance
	}
	if pm.MaxPerTick == 0 {
		pm.MaxPerTick = DefaultPhotoMaxPerTick
	}
	if pm.ReplyChance == 0 {
		pm.ReplyChance = DefaultReplyPhotoChance
	}
	if pm.MaxReplyPhotos == 0 {
		pm.MaxReplyPhotos = DefaultMaxReplyPhotos
	}
	if cfg.Generation.Backend == "" {
		cfg.Generation.Backend = "static"
	}
	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = "./phonesim-data"
	}
}

// ParseCommandFlags parses the standard command line flags. setFlags
// records which were explicitly provided so they can win over config.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrFlag := flag.String("addr", ":8080", "listen address")
	dbFlag := flag.String("db", "./phonesim-data", "database path")
	cfgFlag := flag.String("config", "", "path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrFlag, *dbFlag, *cfgFlag, setFlags
}

// ResolveConfigPath picks the config path: explicit flag wins, then the
// PHONESIM_CONFIG env var, then ./phonesim.yaml when present.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet && flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("PHONESIM_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("phonesim.yaml"); err == nil {
		return "phonesim.yaml"
	}
	return flagPath
}
