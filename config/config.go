package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config maps to the config.toml file for the metering service
type Config struct {
	Host                        string  `toml:"Host"`
	Port                        int     `toml:"Port"`
	CollectionIntervalInSeconds uint32  `toml:"CollectionIntervalInSeconds"`
	CycleBudgetInSeconds        uint32  `toml:"CycleBudgetInSeconds"`
	RequestTimeoutInSeconds     uint32  `toml:"RequestTimeoutInSeconds"`
	DailyExportTime             string  `toml:"DailyExportTime"`
	AccountID                   string  `toml:"AccountID"`
	AppID                       string  `toml:"AppID"`
	ExportDir                   string  `toml:"ExportDir"`
	PricingFile                 string  `toml:"PricingFile"`
	JournalPath                 string  `toml:"JournalPath"`
	JournalRetentionDays        int     `toml:"JournalRetentionDays"`
	RateLimitPerSecond          float64 `toml:"RateLimitPerSecond"`
	RateBurst                   int     `toml:"RateBurst"`
	MaxAuthFailures             int     `toml:"MaxAuthFailures"`
	MaxTransientRetries         int     `toml:"MaxTransientRetries"`
	ListenAddress               string  `toml:"ListenAddress"`
	NodeCountAuthority          string  `toml:"NodeCountAuthority"`
}

// DefaultAccountID is billed when no explicit account identifier is configured
const DefaultAccountID = "123456"

// LoadConfig parses a TOML file into the Config struct and applies defaults
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	var cfg Config
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults fills the zero-valued fields with their documented defaults
func (cfg *Config) ApplyDefaults() {
	if cfg.Port == 0 {
		cfg.Port = 9440
	}
	if cfg.CollectionIntervalInSeconds == 0 {
		cfg.CollectionIntervalInSeconds = 60
	}
	if cfg.CycleBudgetInSeconds == 0 {
		// conservatively below the collection interval so hung cycles never stack up
		cfg.CycleBudgetInSeconds = 45
	}
	if cfg.RequestTimeoutInSeconds == 0 {
		cfg.RequestTimeoutInSeconds = 30
	}
	if len(cfg.DailyExportTime) == 0 {
		cfg.DailyExportTime = "01:00"
	}
	if len(cfg.AccountID) == 0 {
		cfg.AccountID = DefaultAccountID
	}
	if cfg.RateLimitPerSecond == 0 {
		cfg.RateLimitPerSecond = 10
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 5
	}
	if cfg.MaxAuthFailures == 0 {
		cfg.MaxAuthFailures = 3
	}
	if cfg.MaxTransientRetries == 0 {
		cfg.MaxTransientRetries = 2
	}
	if cfg.JournalRetentionDays == 0 {
		cfg.JournalRetentionDays = 90
	}
	if len(cfg.NodeCountAuthority) == 0 {
		cfg.NodeCountAuthority = "legacy-stats"
	}
}
