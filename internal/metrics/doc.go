// Package metrics records task and run metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	runner := pipeline.NewRunner(cfg, reg, pipeline.WithRecorder(metrics.NoopRecorder{}))
//
// When metrics are enabled in the descriptor the CLI swaps in a
// PrometheusRecorder and serves HTTPHandler on the configured address.
package metrics
