// Package setup picks and installs a metrics backend from run settings.
package setup

import (
	"log"

	"jsonlkit/internal/config"
	"jsonlkit/internal/metrics"
	"jsonlkit/internal/metrics/datadog"
	"jsonlkit/internal/metrics/prompush"
)

// Defaults used when a backend is selected without an address.
const (
	DefaultPushgatewayURL = "http://localhost:9091"
	DefaultDatadogAddr    = "127.0.0.1:8125"
)

// Backend builds the backend named by m.Backend. It returns nil for "",
// "none" and unknown names, and when the backend fails to initialize; the
// caller then keeps the no-op default.
func Backend(m config.Metrics, job string) metrics.Backend {
	switch m.Backend {
	case "pushgateway":
		url := m.PushgatewayURL
		if url == "" {
			url = DefaultPushgatewayURL
		}
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: backend=pushgateway url=%s job=%s", url, job)
		return b
	case "datadog":
		addr := m.DatadogAddr
		if addr == "" {
			addr = DefaultDatadogAddr
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:      addr,
			Namespace: "jsonlkit.",
			Tags:      []string{"job:" + job},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: backend=datadog addr=%s job=%s", addr, job)
		return b
	case "", "none":
		return nil
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", m.Backend)
		return nil
	}
}

// Install sets the backend chosen by m and returns a function that flushes
// it. The returned function is never nil.
func Install(m config.Metrics, job string) (flush func()) {
	b := Backend(m, job)
	if b == nil {
		return func() {}
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}
