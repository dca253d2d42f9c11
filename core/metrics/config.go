package metrics

// Config holds configuration for the metrics endpoint.
type Config struct {
	// Enabled registers the Prometheus recorder and serves Path.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Path is the HTTP path of the scrape endpoint.
	Path string `mapstructure:"path" default:"/metrics"`
}
