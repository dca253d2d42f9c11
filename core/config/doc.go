// Package config provides configuration management for the character sync service.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file. Defaults come from the `default` struct tags of each
// section.
//
// # Configuration Structure
//
// The Config struct is divided into subsections:
//   - Server: HTTP port, API key, timeouts
//   - Log: Logging level and format
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO settings of the version history archive
//   - Versioning: retention window and cleanup schedule
//   - Messaging: NATS subscriber settings
//   - Metrics: Prometheus endpoint
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Versioning.MaxVersionHistory)
package config
