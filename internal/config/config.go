package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the series bridge CLI.
type Config struct {
	// DataSetIQ credential; optional, absence means free-tier access
	APIKey string `mapstructure:"datasetiq_api_key"`

	// Base URL for the DataSetIQ API (configurable for testing)
	BaseURL string `mapstructure:"datasetiq_base_url"`

	// Directory holding the local key/favorites store
	StoreDir string `mapstructure:"datasetiq_store_dir"`

	// Subscription plan name; paid plans unlock premium features
	Plan string `mapstructure:"datasetiq_plan"`

	// Series to fetch in batch mode
	SeriesIDs []string `mapstructure:"series_ids"`
}

// Load reads configuration from environment variables and optional config file.
// Environment variables take precedence over config file values.
//
// Expected environment variables:
//   - DATASETIQ_API_KEY (optional, free tier without it)
//   - DATASETIQ_BASE_URL (optional, defaults to production)
//   - DATASETIQ_STORE_DIR (optional, defaults to ~/.seriesbridge)
//   - DATASETIQ_PLAN (optional, paid plans unlock premium features)
func Load() (*Config, error) {
	v := viper.New()

	// Set up environment variable support
	v.SetEnvPrefix("") // No prefix, use full names
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("datasetiq_base_url", "https://www.datasetiq.com")
	v.SetDefault("datasetiq_store_dir", defaultStoreDir())

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.seriesbridge")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	// Bind environment variables
	v.BindEnv("datasetiq_api_key", "DATASETIQ_API_KEY")
	v.BindEnv("datasetiq_base_url", "DATASETIQ_BASE_URL")
	v.BindEnv("datasetiq_store_dir", "DATASETIQ_STORE_DIR")
	v.BindEnv("datasetiq_plan", "DATASETIQ_PLAN")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

func defaultStoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".seriesbridge"
	}
	return filepath.Join(home, ".seriesbridge")
}
