// Package metrics records upstream forwarding outcomes.
//
// The forwarder and the health checker publish Events on a buffered channel. A
// single collector goroutine folds them into per-upstream counters:
//   - forwarding calls and attempts
//   - transport failures, recoveries and exhausted calls
//   - response latency percentiles (P50, P95, P99) and status codes
//   - upstream health as seen by the health checker
//
// Publishers never block: when the buffer is full the event is dropped. On
// shutdown the collector drains what is buffered before returning.
//
// The same events feed Prometheus counters served on /metrics, and a JSON
// snapshot is available through Collector.Handler.
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//	metrics.Publish(collector.EventChannel(), metrics.Event{
//		Type:       metrics.EventResponseCompleted,
//		Upstream:   "api.internal:8080",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
package metrics
