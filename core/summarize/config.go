package summarize

// Config holds configuration for the OpenAI-compatible summarizer.
type Config struct {
	// APIKey authenticates against the completion endpoint.
	APIKey string `mapstructure:"api_key" default:""`
	// BaseURL is the API root; any OpenAI-compatible endpoint works.
	BaseURL string `mapstructure:"base_url" default:"https://api.openai.com/v1"`
	// Model is the completion model to use.
	Model string `mapstructure:"model" default:"gpt-4o-mini"`
}
