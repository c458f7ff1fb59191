package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Airtable AirtableConfig `yaml:"airtable" mapstructure:"airtable"`
	Gemini   GeminiConfig   `yaml:"gemini" mapstructure:"gemini"`
	Harvest  HarvestConfig  `yaml:"harvest" mapstructure:"harvest"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// AirtableConfig holds the records store credentials and table identities.
// The events source and companies destination may live in different bases.
type AirtableConfig struct {
	Token           string `yaml:"token" mapstructure:"token"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	EventsBase      string `yaml:"events_base" mapstructure:"events_base"`
	EventsTable     string `yaml:"events_table" mapstructure:"events_table"`
	CompaniesBase   string `yaml:"companies_base" mapstructure:"companies_base"`
	CompaniesTable  string `yaml:"companies_table" mapstructure:"companies_table"`
	CredentialPath  string `yaml:"credential_path" mapstructure:"credential_path"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
}

// GeminiConfig holds the generative service settings. The key is read once
// from configuration and is never persisted or user-editable.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// HarvestConfig configures pipeline behavior.
type HarvestConfig struct {
	MaxCompanies int `yaml:"max_companies" mapstructure:"max_companies"`
	LogRetention int `yaml:"log_retention" mapstructure:"log_retention"`
}

// ServerConfig configures the browser-facing API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("airtable.base_url", "https://api.airtable.com/v0")
	v.SetDefault("airtable.events_base", "appL19ZG07Y5xCC5E")
	v.SetDefault("airtable.events_table", "tbl5EgFRbdYGrEZcb")
	v.SetDefault("airtable.companies_base", "appFS5Ogh9IotiOXS")
	v.SetDefault("airtable.companies_table", "tbl5EgFRbdYGrEZcb")
	v.SetDefault("airtable.credential_path", "leadharvest.db")
	v.SetDefault("airtable.rate_limit_per_sec", 5)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.0-flash-exp")
	v.SetDefault("harvest.max_companies", 15)
	v.SetDefault("harvest.log_retention", 500)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given run mode ("serve",
// "harvest", or "events") and returns an error listing every problem found.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(cond bool, msg string) {
		if cond {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "serve":
		check(c.Server.Port <= 0, "server.port must be > 0")
		check(c.Harvest.MaxCompanies < 1 || c.Harvest.MaxCompanies > 50,
			"harvest.max_companies must be between 1 and 50")
		check(c.Harvest.LogRetention < 1, "harvest.log_retention must be >= 1")
	case "harvest":
		check(c.Gemini.Key == "", "gemini.key is required")
		check(c.Harvest.MaxCompanies < 1 || c.Harvest.MaxCompanies > 50,
			"harvest.max_companies must be between 1 and 50")
	case "events":
		// Token may come from the credential store, so nothing is strictly
		// required here beyond the table identities.
		check(c.Airtable.EventsBase == "", "airtable.events_base is required")
		check(c.Airtable.EventsTable == "", "airtable.events_table is required")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
