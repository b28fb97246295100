package notion

// Config holds configuration for the Notion client.
type Config struct {
	// Token is the integration token used for API calls.
	Token string `mapstructure:"token" default:""`
	// DataSourceID identifies the data source backing the stars database.
	// Empty until `startion setup` has been run.
	DataSourceID string `mapstructure:"data_source_id" default:""`
}
