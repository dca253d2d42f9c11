// Package metrics exposes versioning telemetry. The Recorder interface is
// injected into the version manager; NoopRecorder is used when metrics are
// disabled and PrometheusRecorder backs the /metrics endpoint.
package metrics
