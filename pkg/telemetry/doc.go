// Package telemetry exports speaker status as Prometheus metrics and YAML.
//
// All metric names carry the softdac_ prefix. Counters mirror the
// cumulative totals kept by the class driver; the events_per_second
// gauges are the once-per-second latched rates.
//
//	reg := telemetry.NewRegistry(audio)
//	go telemetry.Serve(ctx, ":9100", telemetry.Handler(reg, audio))
package telemetry
