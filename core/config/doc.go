// Package config provides configuration management for Startion.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings,
// divided into subsections:
//   - Github: API token and optional username override
//   - Notion: integration token and data source id
//   - OpenAI: completion endpoint credentials and model
//   - Summary: output language for generated summaries
//   - Sync: worker-pool defaults
//   - Log: logging level and format
//
// Environment variables map onto nested keys with underscores, e.g.
// GITHUB_TOKEN -> github.token, NOTION_DATA_SOURCE_ID ->
// notion.data_source_id, SYNC_CONCURRENCY -> sync.concurrency.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Concurrency)
package config
