package config

import (
	"fmt"
	"reflect"
	"strings"

	"startion/core/github"
	"startion/core/logger"
	"startion/core/notion"
	"startion/core/summarize"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Github holds configuration for the GitHub client.
	Github github.Config `mapstructure:"github"`
	// Notion holds configuration for the Notion client.
	Notion notion.Config `mapstructure:"notion"`
	// OpenAI holds configuration for the summarizer endpoint.
	OpenAI summarize.Config `mapstructure:"openai"`
	// Summary holds summary-generation settings.
	Summary SummaryConfig `mapstructure:"summary"`
	// Sync holds worker-pool defaults for sync runs.
	Sync SyncConfig `mapstructure:"sync"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
}

// SummaryConfig selects the output language of generated summaries.
type SummaryConfig struct {
	// Language is the natural language summaries are written in.
	Language string `mapstructure:"language" default:"English"`
}

// SyncConfig holds defaults for sync runs.
type SyncConfig struct {
	// Concurrency is the worker-pool size for parallel processing.
	Concurrency int `mapstructure:"concurrency" default:"5"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	// We construct the path to .env
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. GITHUB_TOKEN -> github.token)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the credentials every run needs. The data source id is
// checked separately by the sync command since setup runs without one.
func (c *Config) Validate() error {
	if c.Github.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set")
	}
	if c.Notion.Token == "" {
		return fmt.Errorf("NOTION_TOKEN is not set")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	return nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
