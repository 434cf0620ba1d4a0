package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all settings for a merge run. Values come from config.yaml
// when present, with environment variables overriding YAML. Secrets only
// come from the environment.
type Config struct {
	Env   string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Debug bool   `yaml:"debug" env:"PROPMERGE_DEBUG" env-default:"false"`

	// BusinessType selects the allowance column of the reference table,
	// either Vet or Health.
	BusinessType string `yaml:"business_type" env:"BUSINESS_TYPE" env-default:"Vet"`

	Paths    PathsConfig    `yaml:"paths"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Database DatabaseConfig `yaml:"database"`
}

// PathsConfig locates the source tables, the output directory and the
// allowance reference table.
type PathsConfig struct {
	DownloadDir  string `yaml:"download_dir" env:"DOWNLOAD_DIR" env-default:"downloads"`
	OutputDir    string `yaml:"output_dir" env:"OUTPUT_DIR" env-default:"merged_properties"`
	ReferenceDir string `yaml:"reference_dir" env:"REFERENCE_DIR" env-default:""`
}

// FetchConfig bounds the image download workers.
type FetchConfig struct {
	Workers        int `yaml:"workers" env:"FETCH_WORKERS" env-default:"4"`
	TimeoutSeconds int `yaml:"timeout_seconds" env:"FETCH_TIMEOUT_SECONDS" env-default:"15"`
	Retries        int `yaml:"retries" env:"FETCH_RETRIES" env-default:"3"`
}

// DatabaseConfig holds the optional PostgreSQL store used for the zoning
// cache and run audit trail. When Enabled is false both features are off.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" env:"PGENABLED" env-default:"false"`
	Host     string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"propmerge"`
	Password string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"PGDATABASE" env-default:"propmerge"`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// dotEnvPaths are searched in order; the first file found is loaded.
var dotEnvPaths = []string{".env", "../.env", "../../.env"}

// Load reads config.yaml if present, falling back to environment variables
// only. A .env file in the working directory or a parent is loaded first
// and never overrides variables already set.
func Load() (*Config, error) {
	loadDotEnv(dotEnvPaths)

	cfg := &Config{}
	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.Fetch.Workers < 1 {
		return nil, fmt.Errorf("fetch workers must be at least 1, got %d", cfg.Fetch.Workers)
	}

	return cfg, nil
}

func loadDotEnv(paths []string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
