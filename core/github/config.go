package github

// Config holds configuration for the GitHub client.
type Config struct {
	// Token is the personal access token used for API calls.
	Token string `mapstructure:"token" default:""`
	// Username scopes the starred listing to a specific user.
	// When empty, the authenticated user's own stars are fetched.
	Username string `mapstructure:"username" default:""`
}
