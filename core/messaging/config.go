package messaging

import "time"

// Config holds configuration for the message broker.
type Config struct {
	// Enabled turns on the event subscriber.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// URL is the NATS server URL.
	URL string `mapstructure:"url" default:"nats://127.0.0.1:4222"`
	// Subject carries remote state-change messages.
	Subject string `mapstructure:"subject" default:"characters.changes"`
	// Queue is the queue group shared by service instances.
	Queue string `mapstructure:"queue" default:"character-sync"`
	// MaxRetries bounds conflict retries per message.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// RetryDelay is the base delay between conflict retries.
	RetryDelay time.Duration `mapstructure:"retry_delay" default:"200ms"`
	// ConnectTimeout bounds the initial dial.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" default:"5s"`
}
