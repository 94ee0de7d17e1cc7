// Package telemetry provides unified observability for the glasspane
// engine: structured logging (zerolog), distributed tracing
// (OpenTelemetry), Prometheus metrics, and typed engine events.
//
// The engine runs on the host's UI thread under a per-frame time budget,
// which shapes the defaults here: log sampling for frame-rate messages,
// histogram buckets reaching down to fractions of a millisecond, and an
// event publisher whose Publish never blocks the calling thread.
//
// Basic setup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = version
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(ctx)
//	_ = tel.StartMetricsServer()
package telemetry
