// Package metrics records build observability data.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	b := build.New(cfg, build.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The serve and dev commands register a PrometheusRecorder and expose it at
// /metrics through HTTPHandler.
package metrics
