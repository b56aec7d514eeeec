// Package config loads pipeline configuration from a .env file plus a YAML
// overlay, per SPEC_FULL.md §1A/§6: godotenv for local secrets/URLs,
// yaml.v2 for structured defaults checked into config/pipeline.yaml.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the full set of environment-driven settings SPEC_FULL.md §1A/§3/§6
// names.
type Config struct {
	DatabaseURL       string `yaml:"database_url"`
	NewsAPIKey        string `yaml:"newsapi_key"`
	ClassifyURL       string `yaml:"classify_url"`
	GenerateURL       string `yaml:"generate_url"`
	EmbedURL          string `yaml:"embed_url"`
	VectorServiceURL  string `yaml:"vector_service_url"`
	RedisURL          string `yaml:"redis_url"`
	BOEBaseURL        string `yaml:"boe_base_url"`
	NewsAPIBaseURL    string `yaml:"newsapi_base_url"`
	YahooChartBaseURL string `yaml:"yahoo_chart_base_url"`

	CacheL1Size        int           `yaml:"cache_l1_size"`
	CacheL1TTL         time.Duration `yaml:"-"`
	CacheL2TTL         time.Duration `yaml:"-"`
	CacheAgeHours      int           `yaml:"cache_age_hours"`
	EnableEmbedding    bool          `yaml:"enable_embedding"`
	MaxDocsToEmbed     int           `yaml:"max_documents_to_embed"`
	WriteQueueTickSecs int           `yaml:"write_queue_tick_seconds"`
}

func defaults() Config {
	return Config{
		CacheL1Size:        1000,
		CacheL1TTL:         5 * time.Minute,
		CacheL2TTL:         time.Hour,
		CacheAgeHours:      24,
		MaxDocsToEmbed:     20,
		WriteQueueTickSecs: 5,
	}
}

// Load reads envPath (a .env file, missing is tolerated) into the process
// environment, then yamlPath (a config/pipeline.yaml overlay, also
// optional) into a Config, with environment variables taking precedence
// over YAML defaults for the variables named in SPEC_FULL.md §6 (the URL/key
// strings and the CACHE_* sizes and TTLs).
func Load(envPath, yamlPath string) (Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: loading .env: %w", err)
		}
	}

	cfg := defaults()
	if yamlPath != "" {
		raw, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parsing %s: %w", yamlPath, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: reading %s: %w", yamlPath, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overlayString(&cfg.DatabaseURL, "DATABASE_URL")
	overlayString(&cfg.NewsAPIKey, "NEWSAPI_KEY")
	overlayString(&cfg.ClassifyURL, "CLASSIFY_URL")
	overlayString(&cfg.GenerateURL, "GENERATE_URL")
	overlayString(&cfg.EmbedURL, "EMBED_URL")
	overlayString(&cfg.VectorServiceURL, "VECTOR_SERVICE_URL")
	overlayString(&cfg.RedisURL, "REDIS_URL")

	if v, ok := intFromEnv("CACHE_L1_SIZE"); ok {
		cfg.CacheL1Size = v
	}
	if v, ok := durationFromEnvSeconds("CACHE_L1_TTL_SECONDS"); ok {
		cfg.CacheL1TTL = v
	}
	if v, ok := durationFromEnvSeconds("CACHE_L2_TTL_SECONDS"); ok {
		cfg.CacheL2TTL = v
	}
	if v, ok := intFromEnv("CACHE_AGE_HOURS"); ok {
		cfg.CacheAgeHours = v
	}
}

func overlayString(field *string, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		*field = v
	}
}

func intFromEnv(envVar string) (int, bool) {
	raw := os.Getenv(envVar)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Printf("[CONFIG] ignoring unparsable %s=%q: %v\n", envVar, raw, err)
		return 0, false
	}
	return v, true
}

func durationFromEnvSeconds(envVar string) (time.Duration, bool) {
	v, ok := intFromEnv(envVar)
	if !ok {
		return 0, false
	}
	return time.Duration(v) * time.Second, true
}

// CacheAge returns CacheAgeHours as a time.Duration.
func (c Config) CacheAge() time.Duration {
	return time.Duration(c.CacheAgeHours) * time.Hour
}
