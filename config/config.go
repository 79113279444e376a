package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Config holds the settings read from the YAML configuration file.
// Command-line flags override individual fields after loading.
type Config struct {
	DatabasePath      string `yaml:"database_path"`
	JournalPath       string `yaml:"journal_path"`
	GeocodeCachePath  string `yaml:"geocode_cache_path"`
	OpenCageKey       string `yaml:"opencage_key"`
	QuantizePrecision int    `yaml:"quantize_precision"`
	ErrorLogPath      string `yaml:"error_log"`
}

// DefaultPath is where Load looks when no --config flag is given.
const DefaultPath = "photodb.yaml"

// Default returns a configuration with every path rooted in the user's
// home directory and building-scale coordinate quantization.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DatabasePath:      filepath.Join(home, "photodb.sqlite"),
		JournalPath:       filepath.Join(home, ".photodb_records"),
		GeocodeCachePath:  filepath.Join(home, ".photodb_geocache"),
		QuantizePrecision: 4,
		ErrorLogPath:      filepath.Join(home, "photodb_errors.log"),
	}
}

// Load reads the configuration file at path, filling unset fields from
// Default. A missing file is not an error when path is the default
// location; an explicitly named file must exist.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.QuantizePrecision <= 0 {
		cfg.QuantizePrecision = 4
	}
	return cfg, nil
}
