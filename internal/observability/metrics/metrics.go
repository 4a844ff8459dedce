// Package metrics exposes Prometheus collectors for contract calls, handle
// rebinds, relayed events and the HTTP API.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scaffold"

// Call modes.
const (
	ModeRead  = "read"
	ModeWrite = "write"
)

var (
	registry = prometheus.NewRegistry()

	contractCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "contract_calls_total",
		Help:      "Contract calls and transactions issued through bindings.",
	}, []string{"contract", "method", "mode", "result"})

	contractLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "contract_call_duration_seconds",
		Help:      "Latency of contract calls and transaction submissions.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"contract", "method", "mode"})

	rebinds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "contract_rebinds_total",
		Help:      "Connection swaps on shared contract handles.",
	}, []string{"contract", "kind"})

	relayedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_relayed_total",
		Help:      "Contract events forwarded to the event queue.",
	}, []string{"contract", "event", "result"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests processed.",
	}, []string{"handler", "method", "code"})

	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"handler", "method"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		contractCalls, contractLatency, rebinds, relayedEvents, httpRequests, httpLatency,
	)
}

// Registry returns the registry all scaffold collectors are registered on.
func Registry() *prometheus.Registry { return registry }

// ObserveContractCall records one call or transaction submission.
func ObserveContractCall(contract, method, mode string, err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	contractCalls.WithLabelValues(contract, method, mode, result).Inc()
	contractLatency.WithLabelValues(contract, method, mode).Observe(duration.Seconds())
}

// ObserveRebind counts a connection swap; kind is "provider" or "signer".
func ObserveRebind(contract, kind string) {
	rebinds.WithLabelValues(contract, kind).Inc()
}

// ObserveRelayedEvent counts an event forwarded (or dropped) by the relay.
func ObserveRelayedEvent(contract, event string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	relayedEvents.WithLabelValues(contract, event, result).Inc()
}

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(handler, method).Observe(duration.Seconds())
}

// Handler exposes the metrics in Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// StartServer launches a standalone HTTP server exposing the /metrics endpoint.
func StartServer(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
